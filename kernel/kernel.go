package kernel

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/sahneos/karnal64/abi"
	"github.com/sahneos/karnal64/device"
	"github.com/sahneos/karnal64/handle"
	"github.com/sahneos/karnal64/loader"
	"github.com/sahneos/karnal64/log"
	"github.com/sahneos/karnal64/resource"
)

// Version reported through Info.
const Version = 0x000400

// Info types.
const (
	InfoVersion   = 1
	InfoTaskCount = 2
	InfoUptime    = 3
)

type Kernel struct {
	Handles   *handle.Table
	Resources *resource.Registry
	Locks     *LockManager
	Loader    *loader.Loader

	tasks *TaskManager
	sched Scheduler

	bootTime time.Time
}

func New(sched Scheduler) (*Kernel, error) {
	if sched == nil {
		return nil, errors.Wrap(abi.InvalidArgument, "nil scheduler")
	}

	handles := handle.NewTable()
	resources := resource.NewRegistry(handles)

	k := &Kernel{
		Handles:   handles,
		Resources: resources,
		Locks:     NewLockManager(handles),
		Loader:    loader.NewLoader(loader.NewImageCache(), resources),
		tasks:     NewTaskManager(),
		sched:     sched,
		bootTime:  time.Now(),
	}

	return k, nil
}

func (k *Kernel) Tasks() *TaskManager {
	return k.tasks
}

// BootOptions carries the devices constructed by the platform layer.
// Devices are built and passed in explicitly; nothing here reaches for
// an ambient global instance.
type BootOptions struct {
	ConsoleIn  io.Reader
	ConsoleOut io.Writer

	// InitImage is the executable content of the initial task.
	InitImage []byte
}

// Boot registers the built-in resources and publishes the init image
// behind the well-known first handle. The returned handle is the code
// handle the initial task is spawned from.
func (k *Kernel) Boot(opts BootOptions) (handle.Handle, error) {
	initCode, err := k.Resources.Register("karnal://boot/init", device.NewBuffer(opts.InitImage))
	if err != nil {
		return handle.None, err
	}

	if _, err := k.Resources.Register("karnal://device/console", device.NewConsole(opts.ConsoleIn, opts.ConsoleOut)); err != nil {
		return handle.None, err
	}

	if _, err := k.Resources.Register("karnal://device/null", device.Null{}); err != nil {
		return handle.None, err
	}

	if _, err := k.Resources.Register("karnal://device/zero", device.Zero{}); err != nil {
		return handle.None, err
	}

	log.L.Info("boot complete", "init-code-handle", uint64(initCode))

	return initCode, nil
}

// Spawn creates a task from the executable content behind code. The
// handle must resolve to a provider that supplies content; the new
// task starts with a copy of args and is handed to the scheduler
// runnable.
func (k *Kernel) Spawn(ctx context.Context, code handle.Handle, args []byte) (TaskID, error) {
	t, err := k.spawnTask(ctx, code, args)
	if err != nil {
		return 0, err
	}

	return t.Tid, nil
}

// SpawnInit starts the single initial task from the boot-time code
// handle. Per the boot contract it receives no arguments.
func (k *Kernel) SpawnInit(ctx context.Context, code handle.Handle) (*Task, error) {
	return k.spawnTask(ctx, code, nil)
}

func (k *Kernel) spawnTask(ctx context.Context, code handle.Handle, args []byte) (*Task, error) {
	img, err := k.Loader.Load(code)
	if err != nil {
		return nil, err
	}

	t := newTask(k)
	t.Args = append([]byte(nil), args...)

	tid := k.tasks.AssignTid(t)

	t.setStatus(Runnable)

	log.L.Trace("task-spawn", "tid", tid, "image", img.Key, "args", len(args))

	k.sched.Ready(t, img)

	return t, nil
}

// Info answers a kernel information query.
func (k *Kernel) Info(infoType uint32) (uint64, error) {
	switch infoType {
	case InfoVersion:
		return Version, nil
	case InfoTaskCount:
		return uint64(k.tasks.Count()), nil
	case InfoUptime:
		return uint64(time.Since(k.bootTime).Nanoseconds()), nil
	default:
		return 0, errors.Wrapf(abi.InvalidArgument, "info type %d", infoType)
	}
}

// Time reports the system clock in nanoseconds since the epoch.
func (k *Kernel) Time() uint64 {
	return uint64(time.Now().UnixNano())
}
