package cronic

import (
	"github.com/pkg/errors"

	"github.com/ironic-emu/cronic/go/models"
	"github.com/ironic-emu/cronic/go/models/cpu"
)

// Bus is the transport every guest access is forwarded to.
// Values are numeric; the bus owns wire byte order.
type Bus interface {
	Init() error
	Read(size int, addr uint32) (uint32, error)
	Write(size int, addr, val uint32) error
	// Err returns the sticky transport error.
	Err() error
}

// bulk reads let diagnostics fetch code without re-entering the engine
type bulkReader interface {
	GuestRead(addr uint32, size int) ([]byte, error)
}

// MemoryBackend services the engine's accesses to one region.
type MemoryBackend interface {
	Read(c cpu.Cpu, off uint64, size int) uint64
	Write(c cpu.Cpu, off uint64, size int, val uint64)
}

type regionBackend struct {
	h      *Cronic
	region *models.Region
}

func (r *regionBackend) Read(c cpu.Cpu, off uint64, size int) uint64 {
	h := r.h
	if !cpu.ValidSize(size) {
		h.unsupported(c, "read", r.region.Addr+off, size)
		return 0
	}
	addr := r.region.Translate(off)
	if h.config.TraceMem {
		h.Printf("MEM_Read @ 0x%08X, %d bytes\n", addr, size)
	}
	val, err := h.bus.Read(size, addr)
	if err != nil {
		h.transportFailed(c)
		return 0
	}
	if h.config.TraceMem {
		h.Printf("got val 0x%08X\n", val)
	}
	return uint64(val)
}

func (r *regionBackend) Write(c cpu.Cpu, off uint64, size int, val uint64) {
	h := r.h
	if !cpu.ValidSize(size) {
		h.unsupported(c, "write", r.region.Addr+off, size)
		return
	}
	addr := r.region.Translate(off)
	val = cpu.MaskUint(size, val)
	if h.config.TraceMem {
		h.Printf("MEM_Write @ 0x%08X, %d bytes, value 0x%0*X\n", addr, size, size*2, val)
	}
	if err := h.bus.Write(size, addr, uint32(val)); err != nil {
		h.transportFailed(c)
	}
}

// the loop reports the sticky error; stopping here keeps the failing
// instruction from running on a fabricated zero
func (h *Cronic) transportFailed(c cpu.Cpu) {
	c.Stop()
}

func (h *Cronic) unsupported(c cpu.Cpu, kind string, addr uint64, size int) {
	h.Printf("FATAL: Unknown %s size: %d\n", kind, size)
	if h.fatal == nil {
		h.fatal = errors.Wrapf(ErrUnsupportedSize, "%s of %d bytes @ 0x%08X", kind, size, addr)
	}
	h.running = false
	c.Stop()
}

// mapRegion registers one region as an MMIO window backed by b.
func (h *Cronic) mapRegion(r *models.Region, b MemoryBackend) error {
	read := func(c cpu.Cpu, off uint64, size int) uint64 {
		return b.Read(c, off, size)
	}
	write := func(c cpu.Cpu, off uint64, size int, val uint64) {
		b.Write(c, off, size, val)
	}
	if err := h.cpu.MmioMap(r.Addr, r.Size, read, write); err != nil {
		return err
	}
	return h.cpu.MemProt(r.Addr, r.Size, cpu.PROT_ALL)
}
