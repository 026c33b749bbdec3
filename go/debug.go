package cronic

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/ironic-emu/cronic/go/models"
	"github.com/ironic-emu/cronic/go/models/cpu"
)

// bytes of code shown around PC
const dumpCodeSize = 16

// Dump writes the code at PC and the integer register file.
func (h *Cronic) Dump() {
	h.Println("Code:")
	if code, err := h.code(); err != nil {
		h.Printf("  unavailable: %s\n", err)
	} else {
		h.Println(code)
	}
	h.Println("Registers:")
	if h.cpu == nil {
		h.Println("  unavailable: engine not running")
		return
	}
	gpr, err := cpu.ReadRegs(h.cpu, h.arch.GPR)
	if err != nil {
		h.Printf("  unavailable: %s\n", err)
		return
	}
	for i := 0; i+3 < len(gpr); i += 4 {
		label := fmt.Sprintf("%-3s - %-3s :", fmt.Sprintf("r%d", i), fmt.Sprintf("r%d", i+3))
		h.Printf("%s 0x%08x 0x%08x 0x%08x 0x%08x\n", label, gpr[i], gpr[i+1], gpr[i+2], gpr[i+3])
	}
	pclr, err := cpu.ReadRegs(h.cpu, []int{h.arch.PC, h.arch.LR})
	if err != nil {
		h.Printf("  unavailable: %s\n", err)
		return
	}
	h.Printf("%-10s: 0x%08x 0x%08x\n", "pc, lr", pclr[0], pclr[1])
}

// code fetches the bytes at PC straight from the bus, never through the engine.
func (h *Cronic) code() (string, error) {
	if h.regions == nil {
		return "", errors.New("no address map")
	}
	if err := h.bus.Err(); err != nil {
		return "", err
	}
	bulk, ok := h.bus.(bulkReader)
	if !ok {
		return "", errors.New("bus has no bulk read")
	}
	addr, err := h.regions.Translate(h.pc)
	if err != nil {
		return "", err
	}
	mem, err := bulk.GuestRead(addr, dumpCodeSize)
	if err != nil {
		return "", err
	}
	if h.arch.Dis != nil {
		if asm, err := h.arch.Dis.Dis(mem, h.pc); err == nil && len(asm) > 0 {
			return models.FormatIns(asm, 4), nil
		}
	}
	return models.Words(h.pc, mem), nil
}
