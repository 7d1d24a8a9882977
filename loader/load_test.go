package loader

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vektra/neko"

	"github.com/sahneos/karnal64/abi"
	"github.com/sahneos/karnal64/handle"
	"github.com/sahneos/karnal64/resource"
)

type countingImage struct {
	mu    sync.Mutex
	data  []byte
	reads int
}

func (p *countingImage) Read(b []byte, off uint64) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.reads++

	if off >= uint64(len(p.data)) {
		return 0, nil
	}

	return copy(b, p.data[off:]), nil
}

func (p *countingImage) Write(b []byte, off uint64) (int, error) {
	return 0, abi.PermissionDenied
}

func (p *countingImage) Control(req, arg uint64) (int64, error) {
	return 0, abi.NotSupported
}

func TestLoader(t *testing.T) {
	n := neko.Modern(t)

	n.It("loads an image out of a code provider", func(t *testing.T) {
		handles := handle.NewTable()
		reg := resource.NewRegistry(handles)

		_, err := reg.Register("karnal://boot/init", &countingImage{data: []byte("init image")})
		require.NoError(t, err)

		h, err := reg.Acquire("karnal://boot/init", resource.ModeRead)
		require.NoError(t, err)

		l := NewLoader(NewImageCache(), reg)

		img, err := l.Load(h)
		require.NoError(t, err)
		require.Equal(t, []byte("init image"), img.Code)
		require.NotEmpty(t, img.Key)
	})

	n.It("serves identical content from the cache", func(t *testing.T) {
		handles := handle.NewTable()
		reg := resource.NewRegistry(handles)

		p := &countingImage{data: []byte("init image")}
		_, err := reg.Register("karnal://boot/init", p)
		require.NoError(t, err)

		l := NewLoader(NewImageCache(), reg)

		ha, err := reg.Acquire("karnal://boot/init", resource.ModeRead)
		require.NoError(t, err)

		first, err := l.Load(ha)
		require.NoError(t, err)

		hb, err := reg.Acquire("karnal://boot/init", resource.ModeRead)
		require.NoError(t, err)

		second, err := l.Load(hb)
		require.NoError(t, err)

		require.Same(t, first, second)
	})

	n.It("loads repeatedly from the same code handle", func(t *testing.T) {
		handles := handle.NewTable()
		reg := resource.NewRegistry(handles)

		_, err := reg.Register("karnal://boot/init", &countingImage{data: []byte("init image")})
		require.NoError(t, err)

		h, err := reg.Acquire("karnal://boot/init", resource.ModeRead)
		require.NoError(t, err)

		l := NewLoader(NewImageCache(), reg)

		first, err := l.Load(h)
		require.NoError(t, err)

		second, err := l.Load(h)
		require.NoError(t, err)
		require.Same(t, first, second)
	})

	n.It("rejects a code provider with no content", func(t *testing.T) {
		handles := handle.NewTable()
		reg := resource.NewRegistry(handles)

		_, err := reg.Register("karnal://boot/empty", &countingImage{})
		require.NoError(t, err)

		h, err := reg.Acquire("karnal://boot/empty", resource.ModeRead)
		require.NoError(t, err)

		l := NewLoader(NewImageCache(), reg)

		_, err = l.Load(h)
		require.Equal(t, abi.InvalidArgument, abi.KError(abi.Errno(err)))
	})

	n.It("propagates a non-provider code handle", func(t *testing.T) {
		handles := handle.NewTable()
		reg := resource.NewRegistry(handles)

		h := handles.Allocate(handle.KindLock, "lk")

		l := NewLoader(NewImageCache(), reg)

		_, err := l.Load(h)
		require.Equal(t, abi.InvalidArgument, abi.KError(abi.Errno(err)))
	})

	n.Meow()
}
