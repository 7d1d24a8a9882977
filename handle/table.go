package handle

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/sahneos/karnal64/abi"
)

// Kind tags what a handle refers to. It is fixed at allocation and
// checked on every resolve.
type Kind int

const (
	KindInvalid Kind = iota
	KindProvider
	KindLock
	KindTask
	KindQueue
)

func (k Kind) String() string {
	switch k {
	case KindProvider:
		return "provider"
	case KindLock:
		return "lock"
	case KindTask:
		return "task"
	case KindQueue:
		return "queue"
	default:
		return "invalid"
	}
}

// Handle is the opaque capability value handed to user space.
// Possession is the sole authorization to operate on the underlying
// object. Numeric values are allocated monotonically and never reissued.
type Handle uint64

// None is never a live handle.
const None Handle = 0

type entry struct {
	mu sync.Mutex

	kind    Kind
	payload interface{}
	refs    int
}

func (e *entry) incRef() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.refs++
}

func (e *entry) decRef() {
	e.mu.Lock()

	e.refs--
	if e.refs > 0 {
		e.mu.Unlock()
		return
	}

	payload := e.payload
	e.payload = nil
	e.mu.Unlock()

	if c, ok := payload.(io.Closer); ok {
		c.Close()
	}
}

// Ref pins a resolved entry. The underlying payload stays live until
// every Ref is closed, even if the handle itself is released mid-call.
type Ref struct {
	h     Handle
	entry *entry

	once sync.Once
}

func (r *Ref) Handle() Handle {
	return r.h
}

func (r *Ref) Payload() interface{} {
	return r.entry.payload
}

func (r *Ref) Close() {
	r.once.Do(r.entry.decRef)
}

// Table is the process-wide handle indirection structure. It is safe
// for concurrent use from any core; the user-visible lock primitive is
// never involved.
type Table struct {
	mu      sync.RWMutex
	entries map[Handle]*entry

	next uint64
}

func NewTable() *Table {
	return &Table{
		entries: make(map[Handle]*entry),
	}
}

// Allocate binds payload under a fresh handle of the given kind. The
// table holds one reference until Release.
func (t *Table) Allocate(kind Kind, payload interface{}) Handle {
	h := Handle(atomic.AddUint64(&t.next, 1))

	e := &entry{
		kind:    kind,
		payload: payload,
		refs:    1,
	}

	t.mu.Lock()
	t.entries[h] = e
	t.mu.Unlock()

	return h
}

// Resolve looks up h and pins it. An unknown or stale handle reports
// BadHandle; a live handle of another kind reports InvalidArgument.
func (t *Table) Resolve(h Handle, kind Kind) (*Ref, error) {
	t.mu.RLock()
	e, ok := t.entries[h]
	if ok {
		e.incRef()
	}
	t.mu.RUnlock()

	if !ok {
		return nil, errors.Wrapf(abi.BadHandle, "handle %d", h)
	}

	if e.kind != kind {
		e.decRef()
		return nil, errors.Wrapf(abi.InvalidArgument, "handle %d is a %s, not a %s", h, e.kind, kind)
	}

	return &Ref{h: h, entry: e}, nil
}

// Kind reports the kind of a live handle.
func (t *Table) Kind(h Handle) (Kind, error) {
	t.mu.RLock()
	e, ok := t.entries[h]
	t.mu.RUnlock()

	if !ok {
		return KindInvalid, errors.Wrapf(abi.BadHandle, "handle %d", h)
	}

	return e.kind, nil
}

// Release invalidates h. Releasing an unknown or already released
// handle reports BadHandle and disturbs nothing else. The payload is
// retired once the last outstanding Ref closes.
func (t *Table) Release(h Handle) error {
	t.mu.Lock()
	e, ok := t.entries[h]
	if ok {
		delete(t.entries, h)
	}
	t.mu.Unlock()

	if !ok {
		return errors.Wrapf(abi.BadHandle, "handle %d", h)
	}

	e.decRef()

	return nil
}

// Live reports the number of live handles.
func (t *Table) Live() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.entries)
}
