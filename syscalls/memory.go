package syscalls

import (
	"context"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/sahneos/karnal64/abi"
	"github.com/sahneos/karnal64/kernel"
)

func sysMemoryAllocate(ctx context.Context, l hclog.Logger, t *kernel.Task, args SysArgs) int64 {
	size := args.Args.A1

	addr, err := t.Mem.Allocate(size)
	if err != nil {
		return abi.Errno(err)
	}

	l.Trace("memory-allocate", "tid", t.Tid, "size", size, "addr", addr)

	return int64(addr)
}

func sysMemoryRelease(ctx context.Context, l hclog.Logger, t *kernel.Task, args SysArgs) int64 {
	var (
		addr = args.Args.A1
		size = args.Args.A2
	)

	if err := t.Mem.Release(addr, size); err != nil {
		return abi.Errno(err)
	}

	return 0
}

func init() {
	Syscalls[abi.SysMemoryAllocate] = sysMemoryAllocate
	Syscalls[abi.SysMemoryRelease] = sysMemoryRelease

	SyscallNames[abi.SysMemoryAllocate] = "memory_allocate"
	SyscallNames[abi.SysMemoryRelease] = "memory_release"
}
