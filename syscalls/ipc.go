package syscalls

import (
	"context"

	"github.com/davecgh/go-spew/spew"
	hclog "github.com/hashicorp/go-hclog"

	"github.com/sahneos/karnal64/abi"
	"github.com/sahneos/karnal64/kernel"
)

func sysMessageSend(ctx context.Context, l hclog.Logger, t *kernel.Task, args SysArgs) int64 {
	var (
		target = kernel.TaskID(args.Args.A1)
		ptr    = args.Args.A2
		ln     = args.Args.A3
	)

	payload, err := copyIn(t, ptr, ln)
	if err != nil {
		l.Error("error reading message payload", "error", err, "tid", t.Tid)
		return abi.Errno(err)
	}

	if l.IsTrace() {
		l.Trace("message-send", "from", t.Tid, "to", target, "payload", spew.Sdump(payload))
	}

	if err := t.Kernel.Send(target, t.Tid, payload); err != nil {
		return abi.Errno(err)
	}

	return 0
}

func sysMessageReceive(ctx context.Context, l hclog.Logger, t *kernel.Task, args SysArgs) int64 {
	var (
		ptr = args.Args.A1
		cap = args.Args.A2
	)

	// validate the destination range before dequeuing so a bad buffer
	// never consumes the message.
	if err := t.Mem.CheckRange(ptr, cap); err != nil {
		return abi.Errno(err)
	}

	buf := make([]byte, cap)

	n, _, err := t.Queue().Receive(buf)
	if err != nil {
		return abi.Errno(err)
	}

	if err := copyOut(t, ptr, buf[:n]); err != nil {
		l.Error("error copying message to userspace", "error", err, "tid", t.Tid)
		return abi.Errno(err)
	}

	return int64(n)
}

func init() {
	Syscalls[abi.SysMessageSend] = sysMessageSend
	Syscalls[abi.SysMessageReceive] = sysMessageReceive

	SyscallNames[abi.SysMessageSend] = "message_send"
	SyscallNames[abi.SysMessageReceive] = "message_receive"
}
