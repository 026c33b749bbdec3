// Package hollywood describes the Wii's Broadway-side physical address map
// as served by ironic.
package hollywood

import (
	"github.com/ironic-emu/cronic/go/models"
)

// Broadway comes out of reset here, inside the EXI boot stub remap.
const ResetVector = 0xFFFF0100

const (
	MEM1_START = 0x00000000
	MEM1_SIZE  = 0x01800000

	MEM2_START = 0x10000000
	MEM2_SIZE  = 0x04000000

	HLWD_START = 0x0D800000
	HLWD_SIZE  = 0x00800000

	MIRR_START = 0x0D000000
	MIRR_SIZE  = 0x00800000

	LEGC_START = 0x0C000000
	LEGC_SIZE  = 0x00800000

	RVEC_START      = 0xFFFF0000
	RVEC_SIZE       = 0x1000
	RVEC_REAL_START = 0x0D806840
	// the stub starts at the reset vector, 0x100 into the window
	RVEC_OFFSET = -0x100
)

// Regions in registration order.
var Regions = []models.Region{
	{Name: "mem1", Desc: "MEM1", Addr: MEM1_START, Size: MEM1_SIZE, Real: MEM1_START},
	{Name: "mem2", Desc: "MEM2", Addr: MEM2_START, Size: MEM2_SIZE, Real: MEM2_START},
	{Name: "hlwd", Desc: "Hollywood registers", Addr: HLWD_START, Size: HLWD_SIZE, Real: HLWD_START},
	{Name: "mirror", Desc: "Hollywood (mirror) registers", Addr: MIRR_START, Size: MIRR_SIZE, Real: MIRR_START},
	{Name: "legacy", Desc: "legacy (Flipper) registers", Addr: LEGC_START, Size: LEGC_SIZE, Real: LEGC_START},
	{Name: "rvec", Desc: "reset vector", Addr: RVEC_START, Size: RVEC_SIZE, Real: RVEC_REAL_START, Offset: RVEC_OFFSET},
}

var Board = &models.Board{
	Name:    "hollywood",
	Regions: Regions,
	Entry:   ResetVector,
}
