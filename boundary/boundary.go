package boundary

import (
	"context"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/sahneos/karnal64/abi"
	"github.com/sahneos/karnal64/kernel"
	"github.com/sahneos/karnal64/syscalls"
)

type SyscallInvoker interface {
	InvokeSyscall(context.Context, syscalls.SysArgs) int64
}

// Interface is the user/kernel trap boundary. Every operation enters
// with plain scalar words and leaves with exactly one signed 64-bit
// result: values >= 0 are the operation's magnitude, values < 0 are
// the fixed error codes. There is no secondary error path.
type Interface struct {
	L       hclog.Logger
	Invoker SyscallInvoker
}

func (b *Interface) Syscall(ctx context.Context, num, a1, a2, a3, a4, a5 uint64) int64 {
	t, ok := kernel.GetTask(ctx)
	if !ok {
		return int64(abi.Internal)
	}

	if t.Exited() {
		return int64(abi.NotFound)
	}

	b.L.Trace("syscall", "tid", t.Tid, "num", num, "name", syscalls.Name(num), "a1", a1, "a2", a2, "a3", a3)

	return b.Invoker.InvokeSyscall(ctx, syscalls.SysArgs{
		Num: num,
		Args: syscalls.SyscallRequest{
			A1: a1,
			A2: a2,
			A3: a3,
			A4: a4,
			A5: a5,
		},
	})
}

func (b *Interface) Syscall0(ctx context.Context, num uint64) int64 {
	return b.Syscall(ctx, num, 0, 0, 0, 0, 0)
}

func (b *Interface) Syscall1(ctx context.Context, num, a1 uint64) int64 {
	return b.Syscall(ctx, num, a1, 0, 0, 0, 0)
}

func (b *Interface) Syscall2(ctx context.Context, num, a1, a2 uint64) int64 {
	return b.Syscall(ctx, num, a1, a2, 0, 0, 0)
}

func (b *Interface) Syscall3(ctx context.Context, num, a1, a2, a3 uint64) int64 {
	return b.Syscall(ctx, num, a1, a2, a3, 0, 0)
}
