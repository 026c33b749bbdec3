package cpu

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

type MemError struct {
	Addr uint64
	Size int
	Enum int
}

func (m *MemError) Error() string {
	reason := "memory error"
	switch m.Enum {
	case MEM_WRITE_UNMAPPED:
		reason = "unmapped write"
	case MEM_READ_UNMAPPED:
		reason = "unmapped read"
	case MEM_FETCH_UNMAPPED:
		reason = "unmapped fetch"
	}
	return fmt.Sprintf("%s at %#x(%d)", reason, m.Addr, m.Size)
}

type mmioMap struct {
	Addr, Size uint64
	Prot       int
	read       MmioReadCb
	write      MmioWriteCb
}

func (m *mmioMap) Contains(addr uint64) bool {
	return addr >= m.Addr && addr-m.Addr < m.Size
}

// Mmio dispatches loads and stores to callback-backed windows for software CPUs.
// Windows are kept sorted by address for binary search.
type Mmio struct {
	cpu   Cpu
	order binary.ByteOrder
	maps  []*mmioMap
}

func NewMmio(cpu Cpu, order binary.ByteOrder) *Mmio {
	return &Mmio{cpu: cpu, order: order}
}

func (m *Mmio) find(addr uint64) *mmioMap {
	l, r := 0, len(m.maps)-1
	for l <= r {
		mid := (l + r) / 2
		e := m.maps[mid]
		if e.Contains(addr) {
			return e
		} else if addr < e.Addr {
			r = mid - 1
		} else {
			l = mid + 1
		}
	}
	return nil
}

func (m *Mmio) MmioMap(addr, size uint64, read MmioReadCb, write MmioWriteCb) error {
	if size == 0 {
		return errors.New("zero-sized mapping")
	}
	for _, v := range m.maps {
		if addr < v.Addr+v.Size && v.Addr < addr+size {
			return errors.Errorf("mapping %#x-%#x overlaps %#x-%#x", addr, addr+size, v.Addr, v.Addr+v.Size)
		}
	}
	m.maps = append(m.maps, &mmioMap{Addr: addr, Size: size, read: read, write: write})
	sort.Slice(m.maps, func(i, j int) bool { return m.maps[i].Addr < m.maps[j].Addr })
	return nil
}

func (m *Mmio) MemProt(addr, size uint64, prot int) error {
	mm := m.find(addr)
	if mm == nil || mm.Addr != addr || mm.Size != size {
		return errors.Errorf("range %#x-%#x not mapped", addr, addr+size)
	}
	mm.Prot = prot
	return nil
}

// ReadUint performs a single access of size bytes. Accesses may not straddle windows.
func (m *Mmio) ReadUint(addr uint64, size int, access int) (uint64, error) {
	mm := m.find(addr)
	if mm == nil || !mm.Contains(addr+uint64(size)-1) || mm.read == nil {
		enum := MEM_READ_UNMAPPED
		if access == MEM_FETCH {
			enum = MEM_FETCH_UNMAPPED
		}
		return 0, &MemError{Addr: addr, Size: size, Enum: enum}
	}
	return mm.read(m.cpu, addr-mm.Addr, size), nil
}

func (m *Mmio) WriteUint(addr uint64, size int, val uint64) error {
	mm := m.find(addr)
	if mm == nil || !mm.Contains(addr+uint64(size)-1) || mm.write == nil {
		return &MemError{Addr: addr, Size: size, Enum: MEM_WRITE_UNMAPPED}
	}
	mm.write(m.cpu, addr-mm.Addr, size, MaskUint(size, val))
	return nil
}

// MemRead splits the range into the widest aligned accesses the bus supports.
func (m *Mmio) MemRead(addr, size uint64) ([]byte, error) {
	p := make([]byte, size)
	for pos := uint64(0); pos < size; {
		n := 4
		for n > 1 && ((addr+pos)%uint64(n) != 0 || pos+uint64(n) > size) {
			n /= 2
		}
		val, err := m.ReadUint(addr+pos, n, MEM_READ)
		if err != nil {
			return nil, err
		}
		if _, err := PackUint(m.order, n, p[pos:], val); err != nil {
			return nil, err
		}
		pos += uint64(n)
	}
	return p, nil
}
