package models

import (
	"sort"

	"github.com/lunixbochs/fvbommel-util/sortorder"

	"github.com/ironic-emu/cronic/go/models/cpu"
)

type Reg struct {
	Enum int
	Name string
}

type RegVal struct {
	Reg
	Val uint64
}

type regList []Reg

func (r regList) Len() int           { return len(r) }
func (r regList) Swap(i, j int)      { r[i], r[j] = r[j], r[i] }
func (r regList) Less(i, j int) bool { return sortorder.NaturalLess(r[i].Name, r[j].Name) }

type regMap map[int]string

func (r regMap) Items() regList {
	ret := make(regList, 0, len(r))
	for e, n := range r {
		ret = append(ret, Reg{e, n})
	}
	return ret
}

// Assembler turns guest assembly into code bytes.
type Assembler interface {
	Asm(asm string, addr uint64) ([]byte, error)
}

type Arch struct {
	Name string
	Bits int

	Cpu cpu.Builder
	Dis Disassembler
	Asm Assembler

	PC   int
	LR   int
	GPR  []int
	Regs regMap

	// sorted for RegDump
	regList regList
}

func (a *Arch) RegDump(c cpu.Cpu) ([]RegVal, error) {
	if a.regList == nil {
		rl := a.Regs.Items()
		sort.Sort(rl)
		a.regList = rl
	}
	ret := make([]RegVal, len(a.regList))
	for i, r := range a.regList {
		val, err := c.RegRead(r.Enum)
		if err != nil {
			return nil, err
		}
		ret[i] = RegVal{r, val}
	}
	return ret, nil
}
