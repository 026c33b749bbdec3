package unicorn

import (
	"encoding/binary"
	"runtime/cgo"

	"github.com/pkg/errors"
	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"

	"github.com/ironic-emu/cronic/go/models/cpu"
)

type Builder struct {
	Arch, Mode int
	// Model selects a CPU model with uc_ctl. Negative keeps the engine default.
	Model int
	// Order is the guest byte order, used when MemRead splits a range.
	Order binary.ByteOrder
}

func (b *Builder) New() (cpu.Cpu, error) {
	u, err := uc.NewUnicorn(b.Arch, b.Mode)
	if err != nil {
		return nil, errors.Wrap(err, "NewUnicorn() failed")
	}
	if b.Model >= 0 {
		if err := setCpuModel(u, b.Model); err != nil {
			u.Close()
			return nil, errors.Wrapf(err, "uc_ctl_set_cpu_model(%d) failed", b.Model)
		}
	}
	order := b.Order
	if order == nil {
		order = binary.BigEndian
	}
	c := &UnicornCpu{Unicorn: u}
	c.windows = cpu.NewMmio(c, order)
	return c, nil
}

type invalidHook struct {
	cpu *UnicornCpu
	cb  func(cpu.Cpu) bool
}

// UnicornCpu maps every guest region as an MMIO window. The same callbacks
// back both engine accesses and MemRead, which unicorn can't serve itself
// for callback-only regions.
type UnicornCpu struct {
	uc.Unicorn

	windows *cpu.Mmio
	handles []cgo.Handle
	// handles owned by a hook, released on HookDel
	hookHandles map[uc.Hook]cgo.Handle
}

func (u *UnicornCpu) MmioMap(addr, size uint64, read cpu.MmioReadCb, write cpu.MmioWriteCb) error {
	if err := u.windows.MmioMap(addr, size, read, write); err != nil {
		return err
	}
	h := cgo.NewHandle(&window{cpu: u, read: read, write: write})
	if err := mmioMap(u.Unicorn, addr, size, h); err != nil {
		h.Delete()
		return errors.Wrapf(err, "uc_mmio_map(%#x, %#x) failed", addr, size)
	}
	u.handles = append(u.handles, h)
	return nil
}

func (u *UnicornCpu) MemProt(addr, size uint64, prot int) error {
	if err := u.windows.MemProt(addr, size, prot); err != nil {
		return err
	}
	return u.Unicorn.MemProtect(addr, size, prot)
}

func (u *UnicornCpu) MemRead(addr, size uint64) ([]byte, error) {
	return u.windows.MemRead(addr, size)
}

func (u *UnicornCpu) Step(begin uint64) error {
	return u.Unicorn.StartWithOptions(begin, 0xffffffff, &uc.UcOptions{Count: 1})
}

func (u *UnicornCpu) HookAdd(htype int, cb interface{}, start uint64, end uint64, extra ...int) (cpu.Hook, error) {
	// have to wrap all hooks to conform to Cpu interface
	var wrap interface{}
	switch htype {
	case cpu.HOOK_CODE:
		cbc, ok := cb.(func(cpu.Cpu, uint64, uint32))
		if !ok {
			return nil, errors.Errorf("bad callback type for code hook: %T", cb)
		}
		wrap = func(_ uc.Unicorn, addr uint64, size uint32) { cbc(u, addr, size) }

	case cpu.HOOK_INTR:
		cbc, ok := cb.(func(cpu.Cpu, uint32))
		if !ok {
			return nil, errors.Errorf("bad callback type for interrupt hook: %T", cb)
		}
		wrap = func(_ uc.Unicorn, intno uint32) { cbc(u, intno) }

	case cpu.HOOK_INSN_INVALID:
		// the Go bindings have no trampoline for this one
		cbc, ok := cb.(func(cpu.Cpu) bool)
		if !ok {
			return nil, errors.Errorf("bad callback type for invalid instruction hook: %T", cb)
		}
		h := cgo.NewHandle(&invalidHook{cpu: u, cb: cbc})
		hh, err := hookInsnInvalid(u.Unicorn, h)
		if err != nil {
			h.Delete()
			return nil, errors.Wrap(err, "uc_hook_add(UC_HOOK_INSN_INVALID) failed")
		}
		if u.hookHandles == nil {
			u.hookHandles = make(map[uc.Hook]cgo.Handle)
		}
		u.hookHandles[hh] = h
		return hh, nil

	default:
		return nil, errors.Errorf("unknown hook type: %d", htype)
	}
	hh, err := u.Unicorn.HookAdd(htype, wrap, start, end, extra...)
	if err != nil {
		return nil, err
	}
	return hh, nil
}

func (u *UnicornCpu) HookDel(hh cpu.Hook) error {
	hook, ok := hh.(uc.Hook)
	if !ok {
		return errors.Errorf("not a unicorn hook: %T", hh)
	}
	err := u.Unicorn.HookDel(hook)
	if h, ok := u.hookHandles[hook]; ok {
		delete(u.hookHandles, hook)
		h.Delete()
	}
	return err
}

func (u *UnicornCpu) Close() error {
	err := u.Unicorn.Close()
	for _, h := range u.handles {
		h.Delete()
	}
	for _, h := range u.hookHandles {
		h.Delete()
	}
	u.handles, u.hookHandles = nil, nil
	return err
}
