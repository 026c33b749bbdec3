package ppc

import (
	"encoding/binary"
	"testing"

	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"
)

func TestPpcSmoke(t *testing.T) {
	Arch.SmokeTest(t)
}

var testAsm = `
	li 3, 0x10
	lis 4, 0x1234
	ori 4, 4, 0x5678
	li 5, 0x2000
	stw 4, 0(5)
	lbz 6, 1(5)
	lhz 7, 2(5)
`

func TestPpcExec(t *testing.T) {
	c, data := Arch.TestExec(t, testAsm)
	defer c.Close()
	if binary.BigEndian.Uint32(data) != 0x12345678 {
		t.Fatalf("stw stored %x", data[:4])
	}
	for reg, want := range map[int]uint64{
		uc.PPC_REG_3: 0x10,
		uc.PPC_REG_6: 0x34,
		uc.PPC_REG_7: 0x5678,
	} {
		val, err := c.RegRead(reg)
		if err != nil {
			t.Fatal(err)
		}
		if val != want {
			t.Fatalf("%s = %#x, want %#x", Arch.Regs[reg], val, want)
		}
	}
}

func TestPpcDis(t *testing.T) {
	code, err := Arch.Asm.Asm("li 3, 5", 0x1000)
	if err != nil {
		t.Fatal(err)
	}
	if binary.BigEndian.Uint32(code) != 0x38600005 {
		t.Fatalf("li assembled to %x", code)
	}
	asm, err := Arch.Dis.Dis(code, 0x1000)
	if err != nil {
		t.Fatal(err)
	}
	if len(asm) != 1 || asm[0].Mnemonic() != "li" || asm[0].Addr() != 0x1000 {
		t.Fatalf("bad disassembly: %v", asm)
	}
}
