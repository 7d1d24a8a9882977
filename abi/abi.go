package abi

import (
	"fmt"

	"github.com/pkg/errors"
)

// KError is the closed set of kernel failure kinds. The numeric values
// are ABI: they are exactly the negative codes handed back to user space
// on the single signed result channel. New kinds may be appended, the
// existing codes never change.
type KError int64

const (
	PermissionDenied KError = -1
	NotFound         KError = -2
	InvalidArgument  KError = -3
	Interrupted      KError = -4
	BadHandle        KError = -9
	Busy             KError = -11
	OutOfMemory      KError = -12
	BadAddress       KError = -14
	AlreadyExists    KError = -17
	NotSupported     KError = -38
	NoMessage        KError = -61
	Internal         KError = -255
)

func (e KError) Error() string {
	switch e {
	case PermissionDenied:
		return "permission denied"
	case NotFound:
		return "not found"
	case InvalidArgument:
		return "invalid argument"
	case Interrupted:
		return "interrupted"
	case BadHandle:
		return "bad handle"
	case Busy:
		return "busy"
	case OutOfMemory:
		return "out of memory"
	case BadAddress:
		return "bad address"
	case AlreadyExists:
		return "already exists"
	case NotSupported:
		return "not supported"
	case NoMessage:
		return "no message"
	case Internal:
		return "internal error"
	default:
		return fmt.Sprintf("unknown kernel error (%d)", int64(e))
	}
}

// Errno converts err into the signed value returned to user space.
// Wrapped errors are unwrapped first. Anything that is not a KError
// reports Internal; a correct caller never expects Internal.
func Errno(err error) int64 {
	if err == nil {
		return 0
	}

	if ke, ok := errors.Cause(err).(KError); ok {
		return int64(ke)
	}

	return int64(Internal)
}
