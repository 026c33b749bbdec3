package models

import (
	"encoding/binary"
	"testing"

	"github.com/ironic-emu/cronic/go/models/cpu"
)

const (
	testCode = 0x1000
	testData = 0x2000
)

// SmokeTest checks that the arch can build a cpu and round trip its GPRs.
func (a *Arch) SmokeTest(t *testing.T) {
	c, err := a.Cpu.New()
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	for _, enum := range a.GPR {
		if err := c.RegWrite(enum, 0x1234); err != nil {
			t.Fatalf("write %s: %v", a.Regs[enum], err)
		}
	}
	for _, enum := range a.GPR {
		val, err := c.RegRead(enum)
		if err != nil {
			t.Fatal(err)
		}
		if val != 0x1234 {
			t.Fatalf("%s = %#x after write", a.Regs[enum], val)
		}
	}
	if _, err := a.RegDump(c); err != nil {
		t.Fatal(err)
	}
}

// TestExec assembles asm at a fixed address over a RAM window, runs it to the
// end and returns the cpu for inspection along with the data window.
func (a *Arch) TestExec(t *testing.T, asm string) (cpu.Cpu, []byte) {
	if a.Asm == nil {
		t.Skipf("%s has no assembler", a.Name)
	}
	code, err := a.Asm.Asm(asm, testCode)
	if err != nil {
		t.Fatal(err)
	}
	c, err := a.Cpu.New()
	if err != nil {
		t.Fatal(err)
	}
	text := make([]byte, 0x1000)
	copy(text, code)
	data := make([]byte, 0x1000)
	for _, m := range []struct {
		addr uint64
		mem  []byte
	}{{testCode, text}, {testData, data}} {
		read, write := cpu.Ram(m.mem, binary.BigEndian)
		if err := c.MmioMap(m.addr, uint64(len(m.mem)), read, write); err != nil {
			t.Fatal(err)
		}
		if err := c.MemProt(m.addr, uint64(len(m.mem)), cpu.PROT_ALL); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.Start(testCode, testCode+uint64(len(code))); err != nil {
		t.Fatal(err)
	}
	return c, data
}
