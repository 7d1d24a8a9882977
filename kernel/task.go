package kernel

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/sahneos/karnal64/abi"
	"github.com/sahneos/karnal64/handle"
	"github.com/sahneos/karnal64/log"
	"github.com/sahneos/karnal64/memory"
)

type taskKey struct{}

func GetTask(ctx context.Context) (*Task, bool) {
	if v := ctx.Value(taskKey{}); v != nil {
		return v.(*Task), true
	}

	return nil, false
}

func SetTask(ctx context.Context, t *Task) context.Context {
	return context.WithValue(ctx, taskKey{}, t)
}

type TaskID uint64

type TaskStatus int

const (
	Created  TaskStatus = 0
	Runnable TaskStatus = 1
	Running  TaskStatus = 2
	Blocked  TaskStatus = 3
	Exited   TaskStatus = 4
)

func (s TaskStatus) String() string {
	switch s {
	case Created:
		return "created"
	case Runnable:
		return "runnable"
	case Running:
		return "running"
	case Blocked:
		return "blocked"
	case Exited:
		return "exited"
	default:
		return "unknown"
	}
}

// ExitStatus is the control-transfer outcome of a terminal call. Exit
// does not literally refuse to return; the dispatcher observes the
// status and unwinds the execution context deterministically.
type ExitStatus struct {
	Code int32
}

type Task struct {
	Kernel *Kernel
	Tid    TaskID
	Mem    *memory.AddressSpace

	// Args is the spawn argument payload, copied out of the parent's
	// address space.
	Args []byte

	mu sync.Mutex

	status   TaskStatus
	exitCode int32

	// handles this task acquired; released when the task exits.
	handles map[handle.Handle]struct{}

	queue   *MessageQueue
	threads map[ThreadID]*Thread

	// threads and issued task handles pin the record; the manager
	// retires the identifier only once an exited task is unpinned.
	refs int

	interruptFunc func()

	exitOnce sync.Once
	exited   chan struct{}
}

func newTask(k *Kernel) *Task {
	return &Task{
		Kernel:  k,
		Mem:     memory.NewAddressSpace(),
		status:  Created,
		handles: make(map[handle.Handle]struct{}),
		queue:   NewMessageQueue(),
		threads: make(map[ThreadID]*Thread),
		exited:  make(chan struct{}),
	}
}

func (t *Task) Status() TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.status
}

func (t *Task) setStatus(s TaskStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status == Exited {
		return
	}

	t.status = s
}

func (t *Task) Exited() bool {
	return t.Status() == Exited
}

func (t *Task) Queue() *MessageQueue {
	return t.queue
}

// TrackHandle records h as owned by this task so exit can release it.
func (t *Task) TrackHandle(h handle.Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.handles[h] = struct{}{}
}

func (t *Task) ForgetHandle(h handle.Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.handles, h)
}

func (t *Task) incRef() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.refs++
}

func (t *Task) decRef() {
	t.mu.Lock()
	t.refs--
	retire := t.refs <= 0 && t.status == Exited
	t.mu.Unlock()

	if retire {
		t.Kernel.tasks.Remove(t)
	}
}

// Exit is terminal. The task's open handles are released, waiters are
// woken and the identifier is retired once nothing references it.
func (t *Task) Exit(code int32) ExitStatus {
	t.exitOnce.Do(func() {
		log.L.Trace("task-exit", "tid", t.Tid, "code", code)

		t.mu.Lock()
		t.status = Exited
		t.exitCode = code

		open := make([]handle.Handle, 0, len(t.handles))
		for h := range t.handles {
			open = append(open, h)
		}
		t.handles = make(map[handle.Handle]struct{})

		retire := t.refs <= 0
		t.mu.Unlock()

		for _, h := range open {
			if kind, err := t.Kernel.Handles.Kind(h); err == nil && kind == handle.KindProvider {
				t.Kernel.Resources.Release(h)
				continue
			}
			t.Kernel.Handles.Release(h)
		}

		close(t.exited)

		if retire {
			t.Kernel.tasks.Remove(t)
		}
	})

	return ExitStatus{Code: code}
}

// WaitExited blocks until the task exits or ctx is done.
func (t *Task) WaitExited(ctx context.Context) (int32, error) {
	select {
	case <-t.exited:
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.exitCode, nil
	case <-ctx.Done():
		return 0, errors.Wrap(abi.Interrupted, "wait")
	}
}

// Sleep blocks the task until the deadline passes. An external signal
// cancels the wait and reports Interrupted; the caller must retry or
// abandon, never treat it as success.
func (t *Task) Sleep(ctx context.Context, d time.Duration) error {
	t.setStatus(Blocked)
	defer t.setStatus(Running)

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return errors.Wrap(abi.Interrupted, "sleep")
	}
}

// Yield hands the rest of the time slice back to the scheduler without
// blocking.
func (t *Task) Yield(ctx context.Context) error {
	t.setStatus(Runnable)
	defer t.setStatus(Running)

	return t.Kernel.sched.Yield(ctx)
}

func (t *Task) Interrupt() {
	t.mu.Lock()
	f := t.interruptFunc
	t.mu.Unlock()

	if f != nil {
		f()
	}
}

func (t *Task) SetInterrupt(f func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.interruptFunc = f
}

type TaskManager struct {
	mu        sync.RWMutex
	highWater TaskID
	tasks     map[TaskID]*Task
}

func NewTaskManager() *TaskManager {
	return &TaskManager{
		tasks: make(map[TaskID]*Task),
	}
}

// AssignTid hands out the lowest identifier not bound to a resident
// task. An exited task stays resident while anything still references
// it, so its identifier cannot be reissued early.
func (tm *TaskManager) AssignTid(t *Task) TaskID {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	for i := TaskID(1); i <= tm.highWater; i++ {
		if _, ok := tm.tasks[i]; !ok {
			t.Tid = i
			tm.tasks[i] = t
			return i
		}
	}

	tm.highWater++
	tid := tm.highWater
	tm.tasks[tid] = t
	t.Tid = tid

	return tid
}

func (tm *TaskManager) Lookup(tid TaskID) (*Task, bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	t, ok := tm.tasks[tid]
	return t, ok
}

func (tm *TaskManager) Remove(t *Task) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	delete(tm.tasks, t.Tid)
}

func (tm *TaskManager) Count() int {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	return len(tm.tasks)
}
