package resource

import (
	"github.com/sahneos/karnal64/abi"
)

// Provider is the capability every pluggable subsystem implements. A
// provider is shared between every task holding a handle to it and must
// be safe for concurrent invocation. Buffers handed to a provider are
// kernel memory; the dispatch boundary has already validated and copied
// any user range.
type Provider interface {
	Read(p []byte, off uint64) (int, error)
	Write(p []byte, off uint64) (int, error)
	Control(req, arg uint64) (int64, error)
}

// ProviderFuncs is the fixed-layout registration descriptor: three
// operation slots plus one opaque state value passed back unchanged on
// every call. Subsystems compiled independently of the registry
// register through it without sharing any concrete type.
type ProviderFuncs struct {
	ReadFn    func(state interface{}, p []byte, off uint64) (int, error)
	WriteFn   func(state interface{}, p []byte, off uint64) (int, error)
	ControlFn func(state interface{}, req, arg uint64) (int64, error)

	State interface{}
}

func (f *ProviderFuncs) Read(p []byte, off uint64) (int, error) {
	if f.ReadFn == nil {
		return 0, abi.NotSupported
	}

	return f.ReadFn(f.State, p, off)
}

func (f *ProviderFuncs) Write(p []byte, off uint64) (int, error) {
	if f.WriteFn == nil {
		return 0, abi.NotSupported
	}

	return f.WriteFn(f.State, p, off)
}

func (f *ProviderFuncs) Control(req, arg uint64) (int64, error) {
	if f.ControlFn == nil {
		return 0, abi.NotSupported
	}

	return f.ControlFn(f.State, req, arg)
}
