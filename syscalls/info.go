package syscalls

import (
	"context"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/sahneos/karnal64/abi"
	"github.com/sahneos/karnal64/kernel"
)

func sysKernelInfo(ctx context.Context, l hclog.Logger, t *kernel.Task, args SysArgs) int64 {
	v, err := t.Kernel.Info(uint32(args.Args.A1))
	if err != nil {
		return abi.Errno(err)
	}

	return int64(v)
}

func sysKernelTime(ctx context.Context, l hclog.Logger, t *kernel.Task, args SysArgs) int64 {
	return int64(t.Kernel.Time())
}

func init() {
	Syscalls[abi.SysKernelInfo] = sysKernelInfo
	Syscalls[abi.SysKernelTime] = sysKernelTime

	SyscallNames[abi.SysKernelInfo] = "kernel_info"
	SyscallNames[abi.SysKernelTime] = "kernel_time"
}
