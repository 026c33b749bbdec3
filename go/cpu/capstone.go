package cpu

import (
	cs "github.com/bnagy/gapstone"
	"github.com/pkg/errors"

	"github.com/ironic-emu/cronic/go/models"
)

type Capstone struct {
	Arch, Mode int

	cs *cs.Engine
	dc *models.Discache
}

func (c *Capstone) Open() error {
	engine, err := cs.New(c.Arch, uint(c.Mode))
	if err != nil {
		return errors.Wrap(err, "cs.New() failed")
	}
	c.cs = &engine
	c.dc = models.NewDiscache()
	return nil
}

func (c *Capstone) Dis(mem []byte, addr uint64) ([]models.Ins, error) {
	if c.cs == nil {
		if err := c.Open(); err != nil {
			return nil, err
		}
	}
	if ent := c.dc.Get(addr, mem); ent != nil {
		return ent.Dis, nil
	}
	dis, err := c.cs.Disasm(mem, addr, 0)
	if err != nil {
		return nil, errors.Wrap(err, "capstone disassembly failed")
	}
	ret := make([]models.Ins, len(dis))
	for i, ins := range dis {
		ret[i] = csIns(ins)
	}
	// the caller may reuse mem
	c.dc.Put(addr, append([]byte(nil), mem...), ret)
	return ret, nil
}

func (c *Capstone) Close() error {
	if c.cs == nil {
		return nil
	}
	err := c.cs.Close()
	c.cs = nil
	return err
}

// wrapper to make gapstone.Instruction conform to the models.Ins interface
type csIns cs.Instruction

func (c csIns) Addr() uint64     { return uint64(c.Address) }
func (c csIns) Bytes() []byte    { return cs.Instruction(c).Bytes }
func (c csIns) Mnemonic() string { return cs.Instruction(c).Mnemonic }
func (c csIns) OpStr() string    { return cs.Instruction(c).OpStr }
