// Package ppc describes the Broadway (PowerPC 750CL) guest to the engine,
// disassembler and assembler.
package ppc

import (
	"encoding/binary"
	"fmt"

	cs "github.com/bnagy/gapstone"
	ks "github.com/keystone-engine/keystone/bindings/go/keystone"
	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"

	"github.com/ironic-emu/cronic/go/cpu"
	"github.com/ironic-emu/cronic/go/cpu/unicorn"
	"github.com/ironic-emu/cronic/go/models"
)

var Arch = &models.Arch{
	Name: "ppc",
	Bits: 32,

	Cpu: &unicorn.Builder{
		Arch:  uc.ARCH_PPC,
		Mode:  uc.MODE_PPC32 | uc.MODE_BIG_ENDIAN,
		Model: uc.CPU_PPC32_750CL_V2_0,
		Order: binary.BigEndian,
	},
	Dis: &cpu.Capstone{
		Arch: cs.CS_ARCH_PPC,
		Mode: cs.CS_MODE_32 | cs.CS_MODE_BIG_ENDIAN,
	},
	Asm: &cpu.Keystone{
		Arch: ks.ARCH_PPC,
		Mode: ks.MODE_PPC32 | ks.MODE_BIG_ENDIAN,
	},

	PC:   uc.PPC_REG_PC,
	LR:   uc.PPC_REG_LR,
	GPR:  gprs(),
	Regs: regs(),
}

func gprs() []int {
	ret := make([]int, 32)
	for i := range ret {
		ret[i] = uc.PPC_REG_0 + i
	}
	return ret
}

func regs() map[int]string {
	ret := map[int]string{
		uc.PPC_REG_PC:  "pc",
		uc.PPC_REG_LR:  "lr",
		uc.PPC_REG_CTR: "ctr",
		uc.PPC_REG_XER: "xer",
		uc.PPC_REG_MSR: "msr",
		uc.PPC_REG_CR:  "cr",
	}
	for i := 0; i < 32; i++ {
		ret[uc.PPC_REG_0+i] = fmt.Sprintf("r%d", i)
	}
	return ret
}
