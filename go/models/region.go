package models

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

// Region is a guest physical window forwarded to the hardware model.
// Bus address = Real + (guest address - Addr) + Offset.
type Region struct {
	Name   string
	Desc   string
	Addr   uint64
	Size   uint64
	Real   uint64
	Offset int64
}

// End is the last guest address inside the window.
func (r *Region) End() uint64 {
	return r.Addr + r.Size - 1
}

func (r *Region) Contains(addr uint64) bool {
	return addr >= r.Addr && addr-r.Addr < r.Size
}

// Translate maps a region-relative offset to a 32-bit bus address.
func (r *Region) Translate(off uint64) uint32 {
	return uint32(int64(r.Real+off) + r.Offset)
}

func (r *Region) String() string {
	return fmt.Sprintf("%-6s %#08x-%#08x -> %#08x%+d", r.Name, r.Addr, r.End(), r.Real, r.Offset)
}

// Regions is the registered address map. Registration order is kept for
// setup, lookups binary search a copy sorted by base.
type Regions struct {
	order  []*Region
	sorted []*Region
}

func (rs *Regions) Register(r Region) (*Region, error) {
	if r.Size == 0 {
		return nil, errors.Errorf("region %s: zero size", r.Name)
	}
	if r.Addr+r.Size-1 > 0xffffffff || r.Addr+r.Size < r.Addr {
		return nil, errors.Errorf("region %s: %#x+%#x exceeds 32-bit address space", r.Name, r.Addr, r.Size)
	}
	for _, v := range rs.order {
		if r.Addr <= v.End() && v.Addr <= r.End() {
			return nil, errors.Errorf("region %s overlaps %s", r.Name, v.Name)
		}
	}
	reg := &r
	rs.order = append(rs.order, reg)
	rs.sorted = append(rs.sorted, reg)
	sort.Slice(rs.sorted, func(i, j int) bool { return rs.sorted[i].Addr < rs.sorted[j].Addr })
	return reg, nil
}

// List returns regions in registration order.
func (rs *Regions) List() []*Region {
	return rs.order
}

func (rs *Regions) Find(addr uint64) *Region {
	i := sort.Search(len(rs.sorted), func(i int) bool { return rs.sorted[i].End() >= addr })
	if i < len(rs.sorted) && rs.sorted[i].Contains(addr) {
		return rs.sorted[i]
	}
	return nil
}

// Translate maps a guest address to its bus address.
func (rs *Regions) Translate(addr uint64) (uint32, error) {
	r := rs.Find(addr)
	if r == nil {
		return 0, errors.Errorf("address %#x is not in any region", addr)
	}
	return r.Translate(addr - r.Addr), nil
}

// Board is a fixed platform: the regions to register, in order, and the reset vector.
type Board struct {
	Name    string
	Regions []Region
	Entry   uint64
}

// Build registers every region of the board and checks the reset vector is mapped.
func (b *Board) Build() (*Regions, error) {
	rs := &Regions{}
	for _, r := range b.Regions {
		if _, err := rs.Register(r); err != nil {
			return nil, err
		}
	}
	if rs.Find(b.Entry) == nil {
		return nil, errors.Errorf("%s: reset vector %#x is not mapped", b.Name, b.Entry)
	}
	return rs, nil
}
