package models

import (
	"bytes"
	"sync"
)

// the dump only ever looks at a handful of addresses, so the cache is
// dropped wholesale rather than evicted entry by entry
const discacheLimit = 4096

type DiscacheEntry struct {
	Addr uint64
	Mem  []byte
	Dis  []Ins
}

// Discache memoizes disassembly by address. An entry only hits while the
// code bytes at that address are unchanged.
type Discache struct {
	sync.RWMutex
	cache map[uint64]*DiscacheEntry
}

func NewDiscache() *Discache {
	return &Discache{cache: make(map[uint64]*DiscacheEntry)}
}

func (d *Discache) Get(addr uint64, mem []byte) *DiscacheEntry {
	d.RLock()
	defer d.RUnlock()
	if ent, ok := d.cache[addr]; ok && bytes.Equal(mem, ent.Mem) {
		return ent
	}
	return nil
}

func (d *Discache) Put(addr uint64, mem []byte, dis []Ins) {
	d.Lock()
	defer d.Unlock()
	if len(d.cache) >= discacheLimit {
		d.cache = make(map[uint64]*DiscacheEntry)
	}
	d.cache[addr] = &DiscacheEntry{Addr: addr, Mem: mem, Dis: dis}
}

func (d *Discache) Len() int {
	d.RLock()
	defer d.RUnlock()
	return len(d.cache)
}
