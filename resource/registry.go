package resource

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/sahneos/karnal64/abi"
	"github.com/sahneos/karnal64/handle"
)

// Access mode bits requested at acquire time and recorded on the
// issued handle.
const (
	ModeRead   uint32 = 1 << 0
	ModeWrite  uint32 = 1 << 1
	ModeCreate uint32 = 1 << 2
)

// Capability is the payload bound to a provider handle: the provider
// plus the access mode granted when the handle was issued. The offset
// advances as the holder reads and writes.
type Capability struct {
	ID       string
	Mode     uint32
	Provider Provider

	mu  sync.Mutex
	off uint64
}

func (c *Capability) advance(n int) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	off := c.off
	c.off += uint64(n)
	return off
}

func (c *Capability) offset() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.off
}

type registration struct {
	id       string
	provider Provider
	h        handle.Handle
}

// Registry maps hierarchical string identifiers (karnal://device/console)
// to providers and issues the handles through which they are reached.
// Dispatch is late bound: only the Provider interface is stored, so
// subsystems loaded independently of the core can satisfy it.
type Registry struct {
	mu   sync.RWMutex
	byID map[string]*registration

	handles *handle.Table

	// recently resolved handle -> *Capability, so hot read/write paths
	// skip the table lock. Entries are dropped on release; a call
	// already holding a capability finishes against the still live
	// provider, which the registry owns.
	resolved *lru.ARCCache
}

func NewRegistry(handles *handle.Table) *Registry {
	cache, err := lru.NewARC(128)
	if err != nil {
		panic(err)
	}

	return &Registry{
		byID:     make(map[string]*registration),
		handles:  handles,
		resolved: cache,
	}
}

// Register binds provider under id and issues the registry's own
// read/write handle for it. Duplicate identifiers fail with
// AlreadyExists and leave the first registration untouched.
func (r *Registry) Register(id string, provider Provider) (handle.Handle, error) {
	if id == "" {
		return handle.None, errors.Wrap(abi.InvalidArgument, "empty resource id")
	}

	if provider == nil {
		return handle.None, errors.Wrap(abi.InvalidArgument, "nil provider")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.byID[id]; dup {
		return handle.None, errors.Wrapf(abi.AlreadyExists, "resource %q", id)
	}

	h := r.handles.Allocate(handle.KindProvider, &Capability{
		ID:       id,
		Mode:     ModeRead | ModeWrite,
		Provider: provider,
	})

	r.byID[id] = &registration{
		id:       id,
		provider: provider,
		h:        h,
	}

	return h, nil
}

// Lookup returns the provider registered under id.
func (r *Registry) Lookup(id string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.byID[id]
	if !ok {
		return nil, false
	}

	return reg.provider, true
}

// Acquire issues a new handle for the resource registered under id,
// restricted to the requested mode bits.
func (r *Registry) Acquire(id string, mode uint32) (handle.Handle, error) {
	if id == "" {
		return handle.None, errors.Wrap(abi.InvalidArgument, "empty resource id")
	}

	r.mu.RLock()
	reg, ok := r.byID[id]
	r.mu.RUnlock()

	if !ok {
		return handle.None, errors.Wrapf(abi.NotFound, "resource %q", id)
	}

	return r.handles.Allocate(handle.KindProvider, &Capability{
		ID:       id,
		Mode:     mode,
		Provider: reg.provider,
	}), nil
}

// Release invalidates a provider handle. The cache purge runs after
// the table release so a racing resolve can never re-add a capability
// behind the removal.
func (r *Registry) Release(h handle.Handle) error {
	kind, err := r.handles.Kind(h)
	if err != nil {
		return err
	}

	if kind != handle.KindProvider {
		return errors.Wrapf(abi.InvalidArgument, "handle %d is a %s, not a provider", h, kind)
	}

	if err := r.handles.Release(h); err != nil {
		return err
	}

	r.resolved.Remove(h)

	return nil
}

func (r *Registry) resolve(h handle.Handle) (*Capability, *handle.Ref, error) {
	if val, ok := r.resolved.Get(h); ok {
		return val.(*Capability), nil, nil
	}

	ref, err := r.handles.Resolve(h, handle.KindProvider)
	if err != nil {
		return nil, nil, err
	}

	cap := ref.Payload().(*Capability)
	r.resolved.Add(h, cap)

	// a release can land between the table resolve and the cache add;
	// its purge runs after its table release, so re-checking liveness
	// here closes the window from both sides.
	if _, err := r.handles.Kind(h); err != nil {
		r.resolved.Remove(h)
	}

	return cap, ref, nil
}

// Read reads from the resource behind h into p, advancing the handle's
// offset. Zero length requests succeed without reaching the provider.
func (r *Registry) Read(h handle.Handle, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	cap, ref, err := r.resolve(h)
	if err != nil {
		return 0, err
	}
	if ref != nil {
		defer ref.Close()
	}

	if cap.Mode&ModeRead == 0 {
		return 0, errors.Wrapf(abi.PermissionDenied, "resource %q not acquired for reading", cap.ID)
	}

	n, err := cap.Provider.Read(p, cap.offset())
	if err != nil {
		return 0, err
	}

	cap.advance(n)

	return n, nil
}

// ReadAt reads from the resource behind h at an explicit offset,
// leaving the handle's cursor where it was. Spawning an image must not
// consume the code handle.
func (r *Registry) ReadAt(h handle.Handle, p []byte, off uint64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	cap, ref, err := r.resolve(h)
	if err != nil {
		return 0, err
	}
	if ref != nil {
		defer ref.Close()
	}

	if cap.Mode&ModeRead == 0 {
		return 0, errors.Wrapf(abi.PermissionDenied, "resource %q not acquired for reading", cap.ID)
	}

	return cap.Provider.Read(p, off)
}

// Write writes p to the resource behind h, advancing the handle's
// offset. Zero length requests succeed without reaching the provider.
func (r *Registry) Write(h handle.Handle, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	cap, ref, err := r.resolve(h)
	if err != nil {
		return 0, err
	}
	if ref != nil {
		defer ref.Close()
	}

	if cap.Mode&ModeWrite == 0 {
		return 0, errors.Wrapf(abi.PermissionDenied, "resource %q not acquired for writing", cap.ID)
	}

	n, err := cap.Provider.Write(p, cap.offset())
	if err != nil {
		return 0, err
	}

	cap.advance(n)

	return n, nil
}

// Control forwards a provider specific (request, argument) pair. The
// registry does not interpret it.
func (r *Registry) Control(h handle.Handle, req, arg uint64) (int64, error) {
	cap, ref, err := r.resolve(h)
	if err != nil {
		return 0, err
	}
	if ref != nil {
		defer ref.Close()
	}

	return cap.Provider.Control(req, arg)
}
