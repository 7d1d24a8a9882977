package memory

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/sahneos/karnal64/abi"
)

const PageSize = 4096

type Region struct {
	Start, Size uint64

	data []byte
}

func (reg *Region) Contains(addr uint64) bool {
	if addr < reg.Start {
		return false
	}

	if addr >= reg.Start+reg.Size {
		return false
	}

	return true
}

// ContainsRange reports whether [addr, addr+size) lies entirely inside
// the region. A zero size range is contained anywhere Contains holds.
func (reg *Region) ContainsRange(addr, size uint64) bool {
	if !reg.Contains(addr) {
		return false
	}

	// size is untrusted; addr+size can wrap. Compare against the room
	// left in the region instead.
	return size <= reg.Start+reg.Size-addr
}

func pageRound(sz uint64) uint64 {
	if sz < PageSize {
		return PageSize
	}

	diff := sz % PageSize
	if diff == 0 {
		return sz
	}

	return sz + (PageSize - diff)
}

func (reg *Region) project(addr, sz uint64) []byte {
	offset := addr - reg.Start

	if reg.data == nil {
		reg.data = make([]byte, reg.Size)
	}

	return reg.data[offset : offset+sz]
}

// AddressSpace models the user-visible memory of one task. Every
// pointer crossing the syscall boundary is checked against it before
// the kernel dereferences anything.
type AddressSpace struct {
	mu sync.Mutex

	regions   []*Region
	nextAlloc uint64
	size      uint64
}

func NewAddressSpace() *AddressSpace {
	return &AddressSpace{
		nextAlloc: 0x10000,
	}
}

func (as *AddressSpace) Size() uint64 {
	as.mu.Lock()
	defer as.mu.Unlock()

	return as.size
}

func (as *AddressSpace) findRegion(addr uint64) (*Region, bool) {
	for _, reg := range as.regions {
		if reg.Contains(addr) {
			return reg, true
		}
	}

	return nil, false
}

// Allocate maps a fresh page-rounded region and returns its start
// address.
func (as *AddressSpace) Allocate(size uint64) (uint64, error) {
	if size == 0 {
		return 0, errors.Wrap(abi.InvalidArgument, "zero size allocation")
	}

	as.mu.Lock()
	defer as.mu.Unlock()

	size = pageRound(size)

	reg := &Region{
		Start: as.nextAlloc,
		Size:  size,
	}

	as.regions = append(as.regions, reg)
	as.nextAlloc += size
	as.size += size

	return reg.Start, nil
}

// Release unmaps the region previously returned by Allocate. The
// address must be the region start; anything else is a bad address,
// not a partial unmap.
func (as *AddressSpace) Release(addr, size uint64) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	for i, reg := range as.regions {
		if reg.Start == addr {
			if pageRound(size) != reg.Size {
				return errors.Wrapf(abi.InvalidArgument, "release size %d does not match region size %d", size, reg.Size)
			}

			as.regions = append(as.regions[:i], as.regions[i+1:]...)
			as.size -= reg.Size
			return nil
		}
	}

	return errors.Wrapf(abi.BadAddress, "no region mapped at %x", addr)
}

// CheckRange validates that [addr, addr+size) is mapped. Zero sized
// ranges are always valid.
func (as *AddressSpace) CheckRange(addr, size uint64) error {
	if size == 0 {
		return nil
	}

	as.mu.Lock()
	defer as.mu.Unlock()

	reg, ok := as.findRegion(addr)
	if !ok || !reg.ContainsRange(addr, size) {
		return errors.Wrapf(abi.BadAddress, "range %x+%d not mapped", addr, size)
	}

	return nil
}

func (as *AddressSpace) ReadAt(p []byte, addr uint64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	as.mu.Lock()
	defer as.mu.Unlock()

	reg, ok := as.findRegion(addr)
	if !ok || !reg.ContainsRange(addr, uint64(len(p))) {
		return 0, errors.Wrapf(abi.BadAddress, "range %x+%d not mapped", addr, len(p))
	}

	return copy(p, reg.project(addr, uint64(len(p)))), nil
}

func (as *AddressSpace) WriteAt(p []byte, addr uint64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	as.mu.Lock()
	defer as.mu.Unlock()

	reg, ok := as.findRegion(addr)
	if !ok || !reg.ContainsRange(addr, uint64(len(p))) {
		return 0, errors.Wrapf(abi.BadAddress, "range %x+%d not mapped", addr, len(p))
	}

	return copy(reg.project(addr, uint64(len(p))), p), nil
}
