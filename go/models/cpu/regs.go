package cpu

import (
	"github.com/pkg/errors"
)

// Regs implements register IO for software CPUs.
// Every register is masked to the CPU word size on write.
type Regs struct {
	mask uint64
	vals map[int]uint64
}

func NewRegs(bits uint, enums []int) *Regs {
	r := &Regs{
		mask: ^uint64(0) >> (64 - bits),
		vals: make(map[int]uint64, len(enums)),
	}
	for _, e := range enums {
		r.vals[e] = 0
	}
	return r
}

func (r *Regs) RegRead(enum int) (uint64, error) {
	val, ok := r.vals[enum]
	if !ok {
		return 0, errors.Errorf("invalid register: %d", enum)
	}
	return val, nil
}

func (r *Regs) RegWrite(enum int, val uint64) error {
	if _, ok := r.vals[enum]; !ok {
		return errors.Errorf("invalid register: %d", enum)
	}
	r.vals[enum] = val & r.mask
	return nil
}

// ReadRegs reads a list of registers in order, stopping at the first error.
func ReadRegs(c Cpu, enums []int) ([]uint64, error) {
	ret := make([]uint64, len(enums))
	for i, e := range enums {
		val, err := c.RegRead(e)
		if err != nil {
			return nil, err
		}
		ret[i] = val
	}
	return ret, nil
}
