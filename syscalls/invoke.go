package syscalls

import (
	"context"

	"github.com/sahneos/karnal64/abi"
	"github.com/sahneos/karnal64/kernel"
	"github.com/sahneos/karnal64/log"
)

type Invoker struct {
	Kernel *kernel.Kernel
}

// InvokeSyscall dispatches one trap. The handler runs under a
// cancellable context wired to the task's interrupt hook, so a blocked
// operation unwinds with Interrupted when the task is signalled.
func (i *Invoker) InvokeSyscall(ctx context.Context, args SysArgs) int64 {
	if args.Num >= uint64(len(Syscalls)) {
		return int64(abi.NotSupported)
	}

	f := Syscalls[args.Num]
	if f == nil {
		return int64(abi.NotSupported)
	}

	t, ok := kernel.GetTask(ctx)
	if !ok {
		return int64(abi.Internal)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	t.SetInterrupt(cancel)
	defer t.SetInterrupt(nil)

	return f(ctx, log.L, t, args)
}
