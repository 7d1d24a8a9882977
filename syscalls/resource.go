package syscalls

import (
	"context"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/sahneos/karnal64/abi"
	"github.com/sahneos/karnal64/handle"
	"github.com/sahneos/karnal64/kernel"
)

func sysResourceAcquire(ctx context.Context, l hclog.Logger, t *kernel.Task, args SysArgs) int64 {
	var (
		idPtr = args.Args.A1
		idLen = args.Args.A2
		mode  = uint32(args.Args.A3)
	)

	if idLen == 0 {
		return int64(abi.InvalidArgument)
	}

	id, err := copyIn(t, idPtr, idLen)
	if err != nil {
		l.Error("error reading resource id", "error", err, "tid", t.Tid)
		return abi.Errno(err)
	}

	h, err := t.Kernel.Resources.Acquire(string(id), mode)
	if err != nil {
		return abi.Errno(err)
	}

	t.TrackHandle(h)

	return int64(h)
}

func sysResourceRead(ctx context.Context, l hclog.Logger, t *kernel.Task, args SysArgs) int64 {
	var (
		h   = handle.Handle(args.Args.A1)
		ptr = args.Args.A2
		sz  = args.Args.A3
	)

	if sz == 0 {
		return 0
	}

	if err := t.Mem.CheckRange(ptr, sz); err != nil {
		return abi.Errno(err)
	}

	buf := make([]byte, sz)

	n, err := t.Kernel.Resources.Read(h, buf)
	if err != nil {
		return abi.Errno(err)
	}

	if err := copyOut(t, ptr, buf[:n]); err != nil {
		l.Error("error copying data to userspace", "error", err, "tid", t.Tid)
		return abi.Errno(err)
	}

	return int64(n)
}

func sysResourceWrite(ctx context.Context, l hclog.Logger, t *kernel.Task, args SysArgs) int64 {
	var (
		h   = handle.Handle(args.Args.A1)
		ptr = args.Args.A2
		sz  = args.Args.A3
	)

	if sz == 0 {
		return 0
	}

	data, err := copyIn(t, ptr, sz)
	if err != nil {
		l.Error("error reading data from userspace", "error", err, "tid", t.Tid)
		return abi.Errno(err)
	}

	n, err := t.Kernel.Resources.Write(h, data)
	if err != nil {
		return abi.Errno(err)
	}

	return int64(n)
}

func sysResourceRelease(ctx context.Context, l hclog.Logger, t *kernel.Task, args SysArgs) int64 {
	h := handle.Handle(args.Args.A1)

	if err := t.Kernel.Resources.Release(h); err != nil {
		return abi.Errno(err)
	}

	t.ForgetHandle(h)

	return 0
}

func sysResourceControl(ctx context.Context, l hclog.Logger, t *kernel.Task, args SysArgs) int64 {
	var (
		h   = handle.Handle(args.Args.A1)
		req = args.Args.A2
		arg = args.Args.A3
	)

	ret, err := t.Kernel.Resources.Control(h, req, arg)
	if err != nil {
		return abi.Errno(err)
	}

	return ret
}

func init() {
	Syscalls[abi.SysResourceAcquire] = sysResourceAcquire
	Syscalls[abi.SysResourceRead] = sysResourceRead
	Syscalls[abi.SysResourceWrite] = sysResourceWrite
	Syscalls[abi.SysResourceRelease] = sysResourceRelease
	Syscalls[abi.SysResourceControl] = sysResourceControl

	SyscallNames[abi.SysResourceAcquire] = "resource_acquire"
	SyscallNames[abi.SysResourceRead] = "resource_read"
	SyscallNames[abi.SysResourceWrite] = "resource_write"
	SyscallNames[abi.SysResourceRelease] = "resource_release"
	SyscallNames[abi.SysResourceControl] = "resource_control"
}
