package abi

// Syscall numbers. Like the error codes these are ABI and must match
// the values user space traps with.
const (
	SysMemoryAllocate  = 1
	SysMemoryRelease   = 2
	SysTaskSpawn       = 3
	SysTaskExit        = 4
	SysResourceAcquire = 5
	SysResourceRead    = 6
	SysResourceWrite   = 7
	SysResourceRelease = 8
	SysResourceControl = 9
	SysTaskCurrentID   = 10
	SysTaskSleep       = 11
	SysTaskYield       = 12
	SysThreadCreate    = 13

	// SysThreadExit takes the exit code in the first word and the
	// thread id in the second. Execution contexts are scheduler owned,
	// so the trap names the exiting thread explicitly instead of
	// relying on an implicit current-thread register.
	SysThreadExit = 14
	SysLockCreate      = 15
	SysLockAcquire     = 16
	SysLockRelease     = 17
	SysMessageSend     = 18
	SysMessageReceive  = 19
	SysKernelInfo      = 20
	SysKernelTime      = 21
)
