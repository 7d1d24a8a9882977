package kernel

import (
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/sahneos/karnal64/abi"
	"github.com/sahneos/karnal64/log"
)

type ThreadID uint64

// Thread is a finer grained execution context sharing its owning
// task's address space. The kernel only tracks the records; running
// them is the scheduler's concern.
type Thread struct {
	Tid  ThreadID
	Task *Task

	Entry     uint64
	StackSize uint64
	Arg       uint64
}

var nextThreadID uint64

// ThreadCreate registers a new thread under the task. The entry point
// and stack size must be non-zero.
func (t *Task) ThreadCreate(entry, stackSize, arg uint64) (ThreadID, error) {
	if entry == 0 {
		return 0, errors.Wrap(abi.InvalidArgument, "zero thread entry point")
	}

	if stackSize == 0 {
		return 0, errors.Wrap(abi.InvalidArgument, "zero thread stack size")
	}

	if t.Exited() {
		return 0, errors.Wrapf(abi.NotFound, "task %d has exited", t.Tid)
	}

	th := &Thread{
		Tid:       ThreadID(atomic.AddUint64(&nextThreadID, 1)),
		Task:      t,
		Entry:     entry,
		StackSize: stackSize,
		Arg:       arg,
	}

	t.mu.Lock()
	t.threads[th.Tid] = th
	t.mu.Unlock()

	t.incRef()

	log.L.Trace("thread-create", "tid", t.Tid, "thread", th.Tid, "entry", entry)

	t.Kernel.sched.ReadyThread(th)

	return th.Tid, nil
}

// ThreadExit retires the thread record. Terminal: the calling
// execution context does not resume.
func (t *Task) ThreadExit(tid ThreadID, code int32) ExitStatus {
	t.mu.Lock()
	_, ok := t.threads[tid]
	if ok {
		delete(t.threads, tid)
	}
	t.mu.Unlock()

	if ok {
		log.L.Trace("thread-exit", "tid", t.Tid, "thread", tid, "code", code)
		t.decRef()
	}

	return ExitStatus{Code: code}
}

func (t *Task) Threads() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.threads)
}
