package device

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vektra/neko"

	"github.com/sahneos/karnal64/abi"
)

func TestDevices(t *testing.T) {
	n := neko.Modern(t)

	n.It("writes console output to the backing writer", func(t *testing.T) {
		var out bytes.Buffer

		c := NewConsole(nil, &out)

		cnt, err := c.Write([]byte("boot: ok\n"), 0)
		require.NoError(t, err)
		require.Equal(t, 9, cnt)
		require.Equal(t, "boot: ok\n", out.String())

		_, err = c.Read(make([]byte, 1), 0)
		require.Equal(t, abi.NotSupported, abi.KError(abi.Errno(err)))
	})

	n.It("reads zeroes from the zero device", func(t *testing.T) {
		buf := []byte{1, 2, 3}

		cnt, err := Zero{}.Read(buf, 0)
		require.NoError(t, err)
		require.Equal(t, 3, cnt)
		require.Equal(t, []byte{0, 0, 0}, buf)
	})

	n.It("serves a buffer image at arbitrary offsets", func(t *testing.T) {
		b := NewBuffer([]byte("karnal"))

		buf := make([]byte, 3)
		cnt, err := b.Read(buf, 3)
		require.NoError(t, err)
		require.Equal(t, 3, cnt)
		require.Equal(t, "nal", string(buf))

		cnt, err = b.Read(buf, 100)
		require.NoError(t, err)
		require.Equal(t, 0, cnt)

		_, err = b.Write([]byte("x"), 0)
		require.Equal(t, abi.PermissionDenied, abi.KError(abi.Errno(err)))

		sz, err := b.Control(BufferSize, 0)
		require.NoError(t, err)
		require.Equal(t, int64(6), sz)
	})

	n.Meow()
}
