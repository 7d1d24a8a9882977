package syscalls

import (
	"github.com/sahneos/karnal64/kernel"
)

// copyIn reads ln bytes at the user address ptr into kernel memory.
// The range is validated against the task's address space first; a
// syntactically valid pointer into an unmapped range is BadAddress.
func copyIn(t *kernel.Task, ptr, ln uint64) ([]byte, error) {
	if err := t.Mem.CheckRange(ptr, ln); err != nil {
		return nil, err
	}

	buf := make([]byte, ln)

	if _, err := t.Mem.ReadAt(buf, ptr); err != nil {
		return nil, err
	}

	return buf, nil
}

// copyOut writes kernel memory back to the user address ptr.
func copyOut(t *kernel.Task, ptr uint64, data []byte) error {
	if err := t.Mem.CheckRange(ptr, uint64(len(data))); err != nil {
		return err
	}

	_, err := t.Mem.WriteAt(data, ptr)
	return err
}
