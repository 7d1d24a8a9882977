package handle

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vektra/neko"

	"github.com/sahneos/karnal64/abi"
)

type closeSpy struct {
	mu     sync.Mutex
	closed bool
}

func (c *closeSpy) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	return nil
}

func (c *closeSpy) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

func TestTable(t *testing.T) {
	n := neko.Modern(t)

	n.It("never aliases two live handles", func(t *testing.T) {
		tbl := NewTable()

		var (
			mu   sync.Mutex
			seen = make(map[Handle]struct{})
			wg   sync.WaitGroup
		)

		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()

				for i := 0; i < 200; i++ {
					h := tbl.Allocate(KindLock, i)

					mu.Lock()
					_, dup := seen[h]
					seen[h] = struct{}{}
					mu.Unlock()

					require.False(t, dup)

					if i%2 == 0 {
						require.NoError(t, tbl.Release(h))
					}
				}
			}()
		}

		wg.Wait()

		require.Equal(t, 8*200, len(seen))
	})

	n.It("rejects a resolve with the wrong kind", func(t *testing.T) {
		tbl := NewTable()

		h := tbl.Allocate(KindLock, "lk")

		_, err := tbl.Resolve(h, KindProvider)
		require.Equal(t, abi.InvalidArgument, abi.KError(abi.Errno(err)))

		ref, err := tbl.Resolve(h, KindLock)
		require.NoError(t, err)
		require.Equal(t, "lk", ref.Payload())
		ref.Close()
	})

	n.It("fails a second release without touching other handles", func(t *testing.T) {
		tbl := NewTable()

		a := tbl.Allocate(KindProvider, "a")
		b := tbl.Allocate(KindProvider, "b")

		require.NoError(t, tbl.Release(a))
		err := tbl.Release(a)
		require.Equal(t, abi.BadHandle, abi.KError(abi.Errno(err)))

		ref, err := tbl.Resolve(b, KindProvider)
		require.NoError(t, err)
		require.Equal(t, "b", ref.Payload())
		ref.Close()
	})

	n.It("reports BadHandle for a value never issued", func(t *testing.T) {
		tbl := NewTable()

		_, err := tbl.Resolve(Handle(999), KindLock)
		require.Equal(t, abi.BadHandle, abi.KError(abi.Errno(err)))
	})

	n.It("keeps the payload alive while a ref is outstanding", func(t *testing.T) {
		tbl := NewTable()

		spy := &closeSpy{}
		h := tbl.Allocate(KindProvider, spy)

		ref, err := tbl.Resolve(h, KindProvider)
		require.NoError(t, err)

		require.NoError(t, tbl.Release(h))
		require.False(t, spy.Closed())

		ref.Close()
		require.True(t, spy.Closed())
	})

	n.It("does not reissue a released numeric value", func(t *testing.T) {
		tbl := NewTable()

		h := tbl.Allocate(KindLock, 1)
		require.NoError(t, tbl.Release(h))

		h2 := tbl.Allocate(KindLock, 2)
		require.NotEqual(t, h, h2)
	})

	n.Meow()
}
