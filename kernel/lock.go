package kernel

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/sahneos/karnal64/abi"
	"github.com/sahneos/karnal64/handle"
	"github.com/sahneos/karnal64/log"
	"github.com/sahneos/karnal64/pkg/waiter"
)

const (
	_ waiter.EventType = iota
	LockReleased
	MessageQueued
)

// Lock is the user-visible binary mutual exclusion object reachable
// through a handle. It is not re-entrant: a holder that acquires again
// fails with Busy instead of deadlocking or silently recursing.
type Lock struct {
	mu sync.Mutex

	held   bool
	holder TaskID

	events waiter.Waiter
}

func NewLock() *Lock {
	return &Lock{}
}

// Acquire takes the lock for tid, blocking while another task holds
// it. A cancelled ctx interrupts the wait.
func (l *Lock) Acquire(ctx context.Context, t *Task) error {
	for {
		l.mu.Lock()

		if !l.held {
			l.held = true
			l.holder = t.Tid
			l.mu.Unlock()
			return nil
		}

		if l.holder == t.Tid {
			l.mu.Unlock()
			return errors.Wrapf(abi.Busy, "task %d already holds the lock", t.Tid)
		}

		c := make(chan struct{}, 1)
		ev := l.events.RegisterChannel(LockReleased, c)
		holder := l.holder
		l.mu.Unlock()

		t.setStatus(Blocked)

		log.L.Trace("lock-wait", "tid", t.Tid, "holder", holder)

		select {
		case <-c:
			l.events.Unregister(ev)
			t.setStatus(Running)
			// retry
		case <-ctx.Done():
			l.events.Unregister(ev)
			t.setStatus(Running)
			return errors.Wrap(abi.Interrupted, "lock acquire")
		}
	}
}

// Release drops the lock. Only the current holder may release;
// anything else fails with PermissionDenied and leaves the lock
// untouched.
func (l *Lock) Release(t *Task) error {
	l.mu.Lock()

	if !l.held || l.holder != t.Tid {
		l.mu.Unlock()
		return errors.Wrapf(abi.PermissionDenied, "task %d does not hold the lock", t.Tid)
	}

	l.held = false
	l.holder = 0
	l.mu.Unlock()

	l.events.Notify(LockReleased)

	return nil
}

// Holder reports the current holder, if any.
func (l *Lock) Holder() (TaskID, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.holder, l.held
}

// LockManager issues lock handles out of the shared handle table.
type LockManager struct {
	handles *handle.Table
}

func NewLockManager(handles *handle.Table) *LockManager {
	return &LockManager{handles: handles}
}

func (m *LockManager) Create() handle.Handle {
	return m.handles.Allocate(handle.KindLock, NewLock())
}

// Get resolves a lock handle, pinning it for the duration of the call.
func (m *LockManager) Get(h handle.Handle) (*Lock, *handle.Ref, error) {
	ref, err := m.handles.Resolve(h, handle.KindLock)
	if err != nil {
		return nil, nil, err
	}

	return ref.Payload().(*Lock), ref, nil
}
