package device

import (
	"github.com/pkg/errors"

	"github.com/sahneos/karnal64/abi"
)

// Null discards writes and reads nothing.
type Null struct{}

func (Null) Read(p []byte, off uint64) (int, error) {
	return 0, nil
}

func (Null) Write(p []byte, off uint64) (int, error) {
	return len(p), nil
}

func (Null) Control(req, arg uint64) (int64, error) {
	return 0, errors.Wrapf(abi.NotSupported, "null control %d", req)
}

// Zero reads zero bytes forever and discards writes.
type Zero struct{}

func (Zero) Read(p []byte, off uint64) (int, error) {
	for i := range p {
		p[i] = 0
	}

	return len(p), nil
}

func (Zero) Write(p []byte, off uint64) (int, error) {
	return len(p), nil
}

func (Zero) Control(req, arg uint64) (int64, error) {
	return 0, errors.Wrapf(abi.NotSupported, "zero control %d", req)
}
