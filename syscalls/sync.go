package syscalls

import (
	"context"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/sahneos/karnal64/abi"
	"github.com/sahneos/karnal64/handle"
	"github.com/sahneos/karnal64/kernel"
)

func sysLockCreate(ctx context.Context, l hclog.Logger, t *kernel.Task, args SysArgs) int64 {
	h := t.Kernel.Locks.Create()

	t.TrackHandle(h)

	return int64(h)
}

func sysLockAcquire(ctx context.Context, l hclog.Logger, t *kernel.Task, args SysArgs) int64 {
	h := handle.Handle(args.Args.A1)

	lk, ref, err := t.Kernel.Locks.Get(h)
	if err != nil {
		return abi.Errno(err)
	}
	defer ref.Close()

	if err := lk.Acquire(ctx, t); err != nil {
		return abi.Errno(err)
	}

	return 0
}

func sysLockRelease(ctx context.Context, l hclog.Logger, t *kernel.Task, args SysArgs) int64 {
	h := handle.Handle(args.Args.A1)

	lk, ref, err := t.Kernel.Locks.Get(h)
	if err != nil {
		return abi.Errno(err)
	}
	defer ref.Close()

	if err := lk.Release(t); err != nil {
		return abi.Errno(err)
	}

	return 0
}

func init() {
	Syscalls[abi.SysLockCreate] = sysLockCreate
	Syscalls[abi.SysLockAcquire] = sysLockAcquire
	Syscalls[abi.SysLockRelease] = sysLockRelease

	SyscallNames[abi.SysLockCreate] = "lock_create"
	SyscallNames[abi.SysLockAcquire] = "lock_acquire"
	SyscallNames[abi.SysLockRelease] = "lock_release"
}
