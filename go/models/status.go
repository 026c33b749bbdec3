package models

import (
	"fmt"
	"strings"

	"github.com/mgutz/ansi"

	"github.com/ironic-emu/cronic/go/models/cpu"
)

// registers per line in Changes.String
const regColumns = 4

var (
	colorSame = ansi.ColorCode("default")
	colorNew  = ansi.ColorCode("yellow+b")
	colorOff  = ansi.Reset
)

// StatusDiff remembers register values between calls to Changes.
type StatusDiff struct {
	Arch *Arch
	Cpu  cpu.Cpu

	last map[int]uint64
}

type Change struct {
	Name     string
	Old, New uint64
}

func (c *Change) Changed() bool { return c.Old != c.New }

// hex renders New as width digits, highlighting the digits that differ from Old.
func (c *Change) hex(width int, color bool) string {
	s := fmt.Sprintf("%0*x", width, c.New)
	if !color || !c.Changed() {
		return s
	}
	old := fmt.Sprintf("%0*x", width, c.Old)
	var b strings.Builder
	hot := false
	for i := range s {
		diff := s[i] != old[i]
		if diff != hot {
			if diff {
				b.WriteString(colorNew)
			} else {
				b.WriteString(colorSame)
			}
			hot = diff
		}
		b.WriteByte(s[i])
	}
	b.WriteString(colorOff)
	return b.String()
}

type Changes struct {
	// hex digits per value
	Width   int
	Changes []*Change
}

func (cs *Changes) String(color bool) string {
	var lines []string
	var row []string
	for i, c := range cs.Changes {
		row = append(row, fmt.Sprintf("%4s 0x%s", c.Name, c.hex(cs.Width, color)))
		if (i+1)%regColumns == 0 || i == len(cs.Changes)-1 {
			lines = append(lines, strings.Join(row, " "))
			row = row[:0]
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// Changes reads every register and diffs it against the previous call.
// The first call reports every register as changed.
func (s *StatusDiff) Changes(onlyChanged bool) (*Changes, error) {
	regs, err := s.Arch.RegDump(s.Cpu)
	if err != nil {
		return nil, err
	}
	first := s.last == nil
	if first {
		s.last = make(map[int]uint64, len(regs))
	}
	cs := &Changes{Width: s.Arch.Bits / 4}
	for _, r := range regs {
		old, seen := s.last[r.Enum]
		c := &Change{Name: r.Name, Old: old, New: r.Val}
		if first || !seen {
			c.Old = ^r.Val
		}
		s.last[r.Enum] = r.Val
		if !onlyChanged || c.Changed() {
			cs.Changes = append(cs.Changes, c)
		}
	}
	return cs, nil
}
