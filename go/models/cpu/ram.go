package cpu

import (
	"encoding/binary"
)

// Ram returns callbacks backing an MMIO window with a plain byte slice.
// Out of range accesses read as zero and drop writes.
func Ram(mem []byte, order binary.ByteOrder) (MmioReadCb, MmioWriteCb) {
	read := func(_ Cpu, off uint64, size int) uint64 {
		if off+uint64(size) > uint64(len(mem)) {
			return 0
		}
		val, _ := UnpackUint(order, size, mem[off:])
		return val
	}
	write := func(_ Cpu, off uint64, size int, val uint64) {
		if off+uint64(size) <= uint64(len(mem)) {
			PackUint(order, size, mem[off:], val)
		}
	}
	return read, write
}
