package syscalls

import (
	"context"
	"time"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/sahneos/karnal64/abi"
	"github.com/sahneos/karnal64/handle"
	"github.com/sahneos/karnal64/kernel"
)

func sysTaskSpawn(ctx context.Context, l hclog.Logger, t *kernel.Task, args SysArgs) int64 {
	var (
		code    = handle.Handle(args.Args.A1)
		argsPtr = args.Args.A2
		argsLen = args.Args.A3
	)

	var spawnArgs []byte

	if argsLen > 0 {
		data, err := copyIn(t, argsPtr, argsLen)
		if err != nil {
			l.Error("error reading spawn args", "error", err, "tid", t.Tid)
			return abi.Errno(err)
		}

		spawnArgs = data
	}

	tid, err := t.Kernel.Spawn(ctx, code, spawnArgs)
	if err != nil {
		return abi.Errno(err)
	}

	return int64(tid)
}

func sysTaskExit(ctx context.Context, l hclog.Logger, t *kernel.Task, args SysArgs) int64 {
	st := t.Exit(int32(args.Args.A1))

	// the dispatcher observes the exited status and never resumes the
	// caller; the status code here is for the run loop.
	return int64(st.Code)
}

func sysTaskCurrentID(ctx context.Context, l hclog.Logger, t *kernel.Task, args SysArgs) int64 {
	return int64(t.Tid)
}

func sysTaskSleep(ctx context.Context, l hclog.Logger, t *kernel.Task, args SysArgs) int64 {
	ms := args.Args.A1

	if err := t.Sleep(ctx, time.Duration(ms)*time.Millisecond); err != nil {
		return abi.Errno(err)
	}

	return 0
}

func sysTaskYield(ctx context.Context, l hclog.Logger, t *kernel.Task, args SysArgs) int64 {
	if err := t.Yield(ctx); err != nil {
		return abi.Errno(err)
	}

	return 0
}

func sysThreadCreate(ctx context.Context, l hclog.Logger, t *kernel.Task, args SysArgs) int64 {
	var (
		entry     = args.Args.A1
		stackSize = args.Args.A2
		arg       = args.Args.A3
	)

	tid, err := t.ThreadCreate(entry, stackSize, arg)
	if err != nil {
		return abi.Errno(err)
	}

	return int64(tid)
}

func sysThreadExit(ctx context.Context, l hclog.Logger, t *kernel.Task, args SysArgs) int64 {
	st := t.ThreadExit(kernel.ThreadID(args.Args.A2), int32(args.Args.A1))

	return int64(st.Code)
}

func init() {
	Syscalls[abi.SysTaskSpawn] = sysTaskSpawn
	Syscalls[abi.SysTaskExit] = sysTaskExit
	Syscalls[abi.SysTaskCurrentID] = sysTaskCurrentID
	Syscalls[abi.SysTaskSleep] = sysTaskSleep
	Syscalls[abi.SysTaskYield] = sysTaskYield
	Syscalls[abi.SysThreadCreate] = sysThreadCreate
	Syscalls[abi.SysThreadExit] = sysThreadExit

	SyscallNames[abi.SysTaskSpawn] = "task_spawn"
	SyscallNames[abi.SysTaskExit] = "task_exit"
	SyscallNames[abi.SysTaskCurrentID] = "task_current_id"
	SyscallNames[abi.SysTaskSleep] = "task_sleep"
	SyscallNames[abi.SysTaskYield] = "task_yield"
	SyscallNames[abi.SysThreadCreate] = "thread_create"
	SyscallNames[abi.SysThreadExit] = "thread_exit"
}
