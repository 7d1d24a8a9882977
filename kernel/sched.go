package kernel

import (
	"context"
	"runtime"

	"github.com/sahneos/karnal64/loader"
)

// Scheduler is the external run-queue the kernel hands transitions to.
// The managers here never context switch themselves; they report that
// a task or thread became runnable and let the scheduler take it from
// there.
type Scheduler interface {
	Ready(t *Task, img *loader.Image)
	ReadyThread(th *Thread)
	Yield(ctx context.Context) error
}

// GoScheduler backs every runnable task with a goroutine. Entry is
// invoked once per task with the task bound into the context; a task
// whose entry returns without exiting is exited with code 0.
type GoScheduler struct {
	Entry       func(ctx context.Context, t *Task, img *loader.Image)
	ThreadEntry func(ctx context.Context, th *Thread)
}

func (s *GoScheduler) Ready(t *Task, img *loader.Image) {
	if s.Entry == nil {
		// nothing to run; the task stays runnable until something
		// exits it.
		return
	}

	go func() {
		t.setStatus(Running)

		ctx := SetTask(context.Background(), t)

		s.Entry(ctx, t, img)

		if !t.Exited() {
			t.Exit(0)
		}
	}()
}

func (s *GoScheduler) ReadyThread(th *Thread) {
	if s.ThreadEntry == nil {
		return
	}

	go func() {
		ctx := SetTask(context.Background(), th.Task)

		s.ThreadEntry(ctx, th)

		th.Task.ThreadExit(th.Tid, 0)
	}()
}

func (s *GoScheduler) Yield(ctx context.Context) error {
	runtime.Gosched()
	return nil
}
