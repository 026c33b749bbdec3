package cpu

type Hook interface{}

// MmioReadCb is invoked by the engine for every guest load from a region
// mapped with MmioMap. offset is relative to the start of the mapping.
type MmioReadCb func(c Cpu, offset uint64, size int) uint64

// MmioWriteCb is invoked for every guest store into an MmioMap region.
type MmioWriteCb func(c Cpu, offset uint64, size int, value uint64)

// This interface abstracts the minimum functionality cronic requires in a CPU emulator.
// Guest memory is never owned by the emulator: every region is an MMIO window
// serviced by callbacks.
type Cpu interface {
	// memory mapping
	MmioMap(addr, size uint64, read MmioReadCb, write MmioWriteCb) error
	MemProt(addr, size uint64, prot int) error

	// memory IO (routed through the mmio callbacks)
	MemRead(addr, size uint64) ([]byte, error)

	// register IO
	RegRead(reg int) (uint64, error)
	RegWrite(reg int, val uint64) error

	// execution
	Start(begin, until uint64) error
	// Step executes exactly one instruction starting at begin.
	Step(begin uint64) error
	Stop() error

	// hooks
	HookAdd(htype int, cb interface{}, begin, end uint64, extra ...int) (Hook, error)
	HookDel(hook Hook) error

	// cleanup
	Close() error
}

// Builder opens a fresh engine context.
type Builder interface {
	New() (Cpu, error)
}
