package trace

import (
	"fmt"
)

// Record is one bridged bus transaction.
// Op holds the wire opcode, Step the number of instructions retired before it.
type Record struct {
	Op    uint8
	Size  uint8
	Ok    bool
	Pad   uint8
	Addr  uint32
	Value uint32
	Step  uint64
}

func (r *Record) String() string {
	status := ""
	if !r.Ok {
		status = " (failed)"
	}
	return fmt.Sprintf("%8d op=%-2d %#08x/%d = %#0*x%s", r.Step, r.Op, r.Addr, r.Size, int(r.Size)*2+2, r.Value, status)
}
