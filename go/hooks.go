package cronic

import (
	"encoding/binary"

	"github.com/ironic-emu/cronic/go/models/cpu"
)

// primary opcode of psq_l, a paired-single load the engine doesn't decode
const OP_PSQ_L = 0x38

func (h *Cronic) addHooks() error {
	if _, err := h.cpu.HookAdd(cpu.HOOK_INSN_INVALID, h.onInvalid, 1, 0); err != nil {
		return err
	}
	if _, err := h.cpu.HookAdd(cpu.HOOK_INTR, h.onIntr, 1, 0); err != nil {
		return err
	}
	return nil
}

// onInvalid skips psq_l and leaves every other invalid instruction to the engine.
func (h *Cronic) onInvalid(c cpu.Cpu) bool {
	pc, err := c.RegRead(h.arch.PC)
	if err != nil {
		return false
	}
	mem, err := c.MemRead(pc, 4)
	if err != nil || len(mem) < 4 {
		return false
	}
	ins := binary.BigEndian.Uint32(mem)
	h.Printf("Handling invalid instruction 0x%08X\n", ins)
	if ins>>26 == OP_PSQ_L {
		h.Printf("[STUB] Skipping psq_l at 0x%08X\n", pc)
		if err := c.RegWrite(h.arch.PC, pc+4); err != nil {
			return false
		}
		return true
	}
	return false
}

func (h *Cronic) onIntr(c cpu.Cpu, intno uint32) {
	h.Printf("Interrupt %d fired!\n", intno)
	h.Dump()
	if h.config.IntrPause > 0 {
		h.sleep(h.config.IntrPause)
	}
}
