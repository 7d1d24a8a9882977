package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime/pprof"

	"github.com/spf13/pflag"

	"github.com/sahneos/karnal64/abi"
	"github.com/sahneos/karnal64/boundary"
	"github.com/sahneos/karnal64/kernel"
	clog "github.com/sahneos/karnal64/log"
	"github.com/sahneos/karnal64/loader"
	"github.com/sahneos/karnal64/resource"
	"github.com/sahneos/karnal64/syscalls"
)

var (
	fInit = pflag.StringP("init", "i", "", "file to publish as the init image")
)

// defaultInit is used when no init image is given; the init task just
// banners the console and exits.
var defaultInit = []byte("karnal64 init\n")

func main() {
	cpuprofile := os.Getenv("CPUPROFILE")
	if cpuprofile != "" {
		f, err := os.Create(cpuprofile)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		fmt.Printf("pprof: profiling started\n")
	}

	pflag.Parse()

	image := defaultInit

	if *fInit != "" {
		data, err := os.ReadFile(*fInit)
		if err != nil {
			log.Fatal(err)
		}

		image = data
	}

	bi := &boundary.Interface{
		L: clog.L,
	}

	exited := make(chan int32, 1)

	sched := &kernel.GoScheduler{
		Entry: func(ctx context.Context, t *kernel.Task, img *loader.Image) {
			runInit(ctx, bi, t, img)
			exited <- 0
		},
	}

	k, err := kernel.New(sched)
	if err != nil {
		log.Fatal(err)
	}

	bi.Invoker = &syscalls.Invoker{Kernel: k}

	initCode, err := k.Boot(kernel.BootOptions{
		ConsoleIn:  os.Stdin,
		ConsoleOut: os.Stdout,
		InitImage:  image,
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	if _, err := k.SpawnInit(ctx, initCode); err != nil {
		log.Fatal(err)
	}

	<-exited

	if cpuprofile != "" {
		pprof.StopCPUProfile()
		fmt.Printf("pprof: profiling finished\n")
	}
}

// runInit drives the init task entirely through the trap boundary: it
// maps a buffer, acquires the console, writes its own image there and
// exits.
func runInit(ctx context.Context, b *boundary.Interface, t *kernel.Task, img *loader.Image) {
	id := []byte("karnal://device/console")

	idAddr := b.Syscall1(ctx, abi.SysMemoryAllocate, uint64(len(id)))
	if idAddr < 0 {
		clog.L.Error("init: unable to map id buffer", "code", idAddr)
		b.Syscall1(ctx, abi.SysTaskExit, uint64(1))
		return
	}

	t.Mem.WriteAt(id, uint64(idAddr))

	console := b.Syscall3(ctx, abi.SysResourceAcquire, uint64(idAddr), uint64(len(id)), uint64(resource.ModeWrite))
	if console < 0 {
		clog.L.Error("init: unable to acquire console", "code", console)
		b.Syscall1(ctx, abi.SysTaskExit, uint64(1))
		return
	}

	bufAddr := b.Syscall1(ctx, abi.SysMemoryAllocate, uint64(len(img.Code)))
	if bufAddr < 0 {
		b.Syscall1(ctx, abi.SysTaskExit, uint64(1))
		return
	}

	t.Mem.WriteAt(img.Code, uint64(bufAddr))

	ret := b.Syscall3(ctx, abi.SysResourceWrite, uint64(console), uint64(bufAddr), uint64(len(img.Code)))
	if ret < 0 {
		clog.L.Error("init: console write failed", "code", ret)
	}

	b.Syscall1(ctx, abi.SysResourceRelease, uint64(console))
	b.Syscall1(ctx, abi.SysTaskExit, 0)
}
