// Package mock is a tiny software Broadway used to test the harness without cgo.
// It decodes a handful of integer instructions and routes every fetch, load
// and store through the registered MMIO windows.
package mock

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"

	"github.com/ironic-emu/cronic/go/models"
	"github.com/ironic-emu/cronic/go/models/cpu"
)

const (
	R0 = iota
	R1
	R2
	R3
	R4
	R5
	R6
	R7
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
	R16
	R17
	R18
	R19
	R20
	R21
	R22
	R23
	R24
	R25
	R26
	R27
	R28
	R29
	R30
	R31
	PC
	LR
	CTR
)

// exception number reported for sc, as on real hardware
const EXCP_SYSCALL = 8

var ErrInvalidInstruction = errors.New("Invalid instruction (UC_ERR_INSN_INVALID)")

var Arch = &models.Arch{
	Name: "ppc",
	Bits: 32,
	Cpu:  &Builder{},
	PC:   PC,
	LR:   LR,
	GPR:  gprs(),
	Regs: regNames(),
}

func gprs() []int {
	ret := make([]int, 32)
	for i := range ret {
		ret[i] = R0 + i
	}
	return ret
}

func regNames() map[int]string {
	ret := map[int]string{PC: "pc", LR: "lr", CTR: "ctr"}
	for i := 0; i < 32; i++ {
		ret[R0+i] = fmt.Sprintf("r%d", i)
	}
	return ret
}

type Builder struct{}

func (b *Builder) New() (cpu.Cpu, error) {
	c := &Cpu{
		Regs: cpu.NewRegs(32, append(gprs(), PC, LR, CTR)),
	}
	c.Mmio = cpu.NewMmio(c, binary.BigEndian)
	c.Hooks = cpu.NewHooks(c)
	return c, nil
}

type Cpu struct {
	*cpu.Hooks
	*cpu.Regs
	*cpu.Mmio

	stopRequest bool
	// Retired counts instructions that ran to completion.
	Retired uint64
	Closed  bool
}

func (c *Cpu) Start(begin, until uint64) error {
	return c.run(begin, until, 0)
}

func (c *Cpu) Step(begin uint64) error {
	return c.run(begin, 0xffffffff, 1)
}

func (c *Cpu) Stop() error {
	c.stopRequest = true
	return nil
}

func (c *Cpu) Close() error {
	c.Closed = true
	return nil
}

func (c *Cpu) run(begin, until uint64, count int) error {
	if c.Closed {
		return errors.New("cpu is closed")
	}
	c.stopRequest = false
	pc := begin & 0xffffffff
	c.RegWrite(PC, pc)
	for n := 0; count == 0 || n < count; n++ {
		if pc == until {
			break
		}
		word, err := c.ReadUint(pc, 4, cpu.MEM_FETCH)
		if err != nil {
			return err
		}
		// a fetch callback may have asked us to stop
		if c.stopRequest {
			break
		}
		c.OnCode(pc, 4)
		next, err := c.exec(pc, uint32(word))
		if err != nil {
			return err
		}
		if c.stopRequest {
			break
		}
		pc = next & 0xffffffff
		c.RegWrite(PC, pc)
		c.Retired++
	}
	return nil
}

func (c *Cpu) reg(n uint32) uint64 {
	val, _ := c.RegRead(R0 + int(n))
	return val
}

// rA|0 addressing
func (c *Cpu) base(n uint32) uint64 {
	if n == 0 {
		return 0
	}
	return c.reg(n)
}

func (c *Cpu) setReg(n uint32, val uint64) {
	c.RegWrite(R0+int(n), val)
}

func (c *Cpu) exec(pc uint64, word uint32) (uint64, error) {
	rd := (word >> 21) & 31
	ra := (word >> 16) & 31
	simm := uint64(int64(int16(word)))
	uimm := uint64(word & 0xffff)
	ea := (c.base(ra) + simm) & 0xffffffff
	next := pc + 4

	load := func(size int) error {
		val, err := c.ReadUint(ea, size, cpu.MEM_READ)
		if err == nil {
			c.setReg(rd, val)
		}
		return err
	}
	store := func(size int) error {
		return c.WriteUint(ea, size, c.reg(rd))
	}

	var err error
	switch word >> 26 {
	case 14: // addi
		c.setReg(rd, c.base(ra)+simm)
	case 15: // addis
		c.setReg(rd, c.base(ra)+simm<<16)
	case 17: // sc
		c.OnIntr(EXCP_SYSCALL)
	case 18: // b, ba, bl, bla
		li := uint64(int64(int32(word<<6)) >> 6 &^ 3)
		if word&2 == 0 {
			li += pc
		}
		if word&1 != 0 {
			c.RegWrite(LR, next)
		}
		next = li
	case 24: // ori (nop is ori 0,0,0)
		c.setReg(ra, c.reg(rd)|uimm)
	case 32: // lwz
		err = load(4)
	case 34: // lbz
		err = load(1)
	case 36: // stw
		err = store(4)
	case 38: // stb
		err = store(1)
	case 40: // lhz
		err = load(2)
	case 44: // sth
		err = store(2)
	default:
		if !c.OnInvalid() {
			return pc, errors.Wrapf(ErrInvalidInstruction, "%#08x @ %#08x", word, pc)
		}
		// the hook owns PC now
		next, _ = c.RegRead(PC)
	}
	return next, err
}
