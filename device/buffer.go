package device

import (
	"github.com/pkg/errors"

	"github.com/sahneos/karnal64/abi"
)

// Buffer control requests.
const (
	BufferSize = 1
)

// Buffer serves a fixed byte image read-only. Boot uses it to publish
// executable content, the init image in particular, behind a resource
// handle.
type Buffer struct {
	data []byte
}

func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

func (b *Buffer) Read(p []byte, off uint64) (int, error) {
	if off >= uint64(len(b.data)) {
		return 0, nil
	}

	return copy(p, b.data[off:]), nil
}

func (b *Buffer) Write(p []byte, off uint64) (int, error) {
	return 0, errors.Wrap(abi.PermissionDenied, "buffer is read-only")
}

func (b *Buffer) Control(req, arg uint64) (int64, error) {
	switch req {
	case BufferSize:
		return int64(len(b.data)), nil
	default:
		return 0, errors.Wrapf(abi.NotSupported, "buffer control %d", req)
	}
}
