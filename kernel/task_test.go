package kernel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vektra/neko"

	"github.com/sahneos/karnal64/abi"
	"github.com/sahneos/karnal64/device"
	"github.com/sahneos/karnal64/handle"
	"github.com/sahneos/karnal64/loader"
	"github.com/sahneos/karnal64/resource"
)

// parkingScheduler accepts transitions without running anything, so
// tests can drive thread lifecycles by hand.
type parkingScheduler struct{}

func (parkingScheduler) Ready(t *Task, img *loader.Image) {}
func (parkingScheduler) ReadyThread(th *Thread)           {}
func (parkingScheduler) Yield(ctx context.Context) error  { return nil }

func TestTask(t *testing.T) {
	n := neko.Modern(t)

	n.It("spawns a task from a code provider and runs it", func(t *testing.T) {
		ran := make(chan []byte, 1)

		sched := &GoScheduler{
			Entry: func(ctx context.Context, task *Task, img *loader.Image) {
				ran <- img.Code
				task.Exit(7)
			},
		}

		k, err := New(sched)
		require.NoError(t, err)

		code, err := k.Resources.Register("karnal://boot/init", device.NewBuffer([]byte("init image")))
		require.NoError(t, err)

		tid, err := k.Spawn(context.Background(), code, nil)
		require.NoError(t, err)

		select {
		case img := <-ran:
			require.Equal(t, []byte("init image"), img)
		case <-time.After(2 * time.Second):
			t.Fatal("task never ran")
		}

		task, ok := k.Tasks().Lookup(tid)
		if ok {
			code, err := task.WaitExited(context.Background())
			require.NoError(t, err)
			require.Equal(t, int32(7), code)
		}
	})

	n.It("rejects a spawn from a non-provider handle", func(t *testing.T) {
		k := testKernel(t)

		h := k.Locks.Create()

		_, err := k.Spawn(context.Background(), h, nil)
		require.Equal(t, abi.InvalidArgument, abi.KError(abi.Errno(err)))
	})

	n.It("rejects a spawn from a stale handle", func(t *testing.T) {
		k := testKernel(t)

		code, err := k.Resources.Register("karnal://boot/init", device.NewBuffer([]byte("x")))
		require.NoError(t, err)

		require.NoError(t, k.Resources.Release(code))

		_, err = k.Spawn(context.Background(), code, nil)
		require.Equal(t, abi.BadHandle, abi.KError(abi.Errno(err)))
	})

	n.It("releases a task's open handles on exit", func(t *testing.T) {
		k := testKernel(t)

		_, err := k.Resources.Register("karnal://device/disk0", device.Null{})
		require.NoError(t, err)

		task := testTask(k)

		h, err := k.Resources.Acquire("karnal://device/disk0", resource.ModeRead)
		require.NoError(t, err)
		task.TrackHandle(h)

		task.Exit(0)

		_, err = k.Handles.Resolve(h, handle.KindProvider)
		require.Equal(t, abi.BadHandle, abi.KError(abi.Errno(err)))
	})

	n.It("interrupts a sleeping task", func(t *testing.T) {
		k := testKernel(t)

		task := testTask(k)

		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)
		go func() {
			done <- task.Sleep(ctx, time.Hour)
		}()

		time.Sleep(20 * time.Millisecond)
		require.Equal(t, Blocked, task.Status())

		cancel()

		select {
		case err := <-done:
			require.Equal(t, abi.Interrupted, abi.KError(abi.Errno(err)))
		case <-time.After(2 * time.Second):
			t.Fatal("sleep never returned")
		}
	})

	n.It("completes a short sleep", func(t *testing.T) {
		k := testKernel(t)

		task := testTask(k)

		start := time.Now()
		require.NoError(t, task.Sleep(context.Background(), 10*time.Millisecond))
		require.True(t, time.Since(start) >= 10*time.Millisecond)
		require.Equal(t, Running, task.Status())
	})

	n.It("yields without blocking", func(t *testing.T) {
		k := testKernel(t)

		task := testTask(k)

		require.NoError(t, task.Yield(context.Background()))
		require.Equal(t, Running, task.Status())
	})

	n.It("keeps an exited identifier reserved while threads pin it", func(t *testing.T) {
		k, err := New(&parkingScheduler{})
		require.NoError(t, err)

		task := testTask(k)
		tid := task.Tid

		thread, err := task.ThreadCreate(0x1000, 4096, 0)
		require.NoError(t, err)

		task.Exit(0)

		// the thread record still references the task
		_, ok := k.Tasks().Lookup(tid)
		require.True(t, ok)

		task.ThreadExit(thread, 0)

		_, ok = k.Tasks().Lookup(tid)
		require.False(t, ok)
	})

	n.It("validates thread arguments", func(t *testing.T) {
		k := testKernel(t)

		task := testTask(k)

		_, err := task.ThreadCreate(0, 4096, 0)
		require.Equal(t, abi.InvalidArgument, abi.KError(abi.Errno(err)))

		_, err = task.ThreadCreate(0x1000, 0, 0)
		require.Equal(t, abi.InvalidArgument, abi.KError(abi.Errno(err)))
	})

	n.It("reports kernel info", func(t *testing.T) {
		k := testKernel(t)

		v, err := k.Info(InfoVersion)
		require.NoError(t, err)
		require.Equal(t, uint64(Version), v)

		testTask(k)

		cnt, err := k.Info(InfoTaskCount)
		require.NoError(t, err)
		require.Equal(t, uint64(1), cnt)

		_, err = k.Info(99)
		require.Equal(t, abi.InvalidArgument, abi.KError(abi.Errno(err)))
	})

	n.Meow()
}
