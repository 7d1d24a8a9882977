package syscalls

import (
	"context"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/sahneos/karnal64/kernel"
)

// SysArgs is one decoded trap: the syscall number plus up to five raw
// argument words. Pointer arguments reference the calling task's
// address space and are validated before any dereference.
type SysArgs struct {
	Num  uint64
	Args SyscallRequest
}

type SyscallRequest struct {
	A1, A2, A3, A4, A5 uint64
}

var Syscalls [64]func(context.Context, hclog.Logger, *kernel.Task, SysArgs) int64

var SyscallNames [64]string

// Name returns the registered name of a syscall number, for trace
// logs.
func Name(num uint64) string {
	if num < uint64(len(SyscallNames)) && SyscallNames[num] != "" {
		return SyscallNames[num]
	}

	return "unknown"
}
