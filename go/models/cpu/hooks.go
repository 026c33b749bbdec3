package cpu

import (
	"github.com/pkg/errors"
)

// maybe type aliases will fix the requirement to hardcode these types
// type CodeCb func(Cpu, uint64, uint32)
// type IntrCb func(Cpu, uint32)
// type InvalidCb func(Cpu) bool

type hookInfo struct {
	htype int
	start uint64
	end   uint64
}

func (h *hookInfo) Type() int {
	return h.htype
}

func (h *hookInfo) Contains(addr uint64) bool {
	return h.start > h.end || addr >= h.start && addr <= h.end
}

type hinfo interface {
	Type() int
}

type codeHook struct {
	hookInfo
	cb func(Cpu, uint64, uint32)
}

type intrHook struct {
	hookInfo
	cb func(Cpu, uint32)
}

type invalidHook struct {
	hookInfo
	cb func(Cpu) bool
}

// Hooks is a dispatch table for software CPUs that don't have native hook support.
type Hooks struct {
	cpu Cpu

	code    []*codeHook
	intr    []*intrHook
	invalid []*invalidHook
}

func NewHooks(cpu Cpu) *Hooks {
	return &Hooks{cpu: cpu}
}

// same callback signatures as UnicornCpu.HookAdd
func (h *Hooks) HookAdd(htype int, cb interface{}, start uint64, end uint64, extra ...int) (Hook, error) {
	info := hookInfo{htype, start, end}
	var hook interface{}
	switch htype {
	case HOOK_CODE:
		fn, ok := cb.(func(Cpu, uint64, uint32))
		if !ok {
			return nil, errors.Errorf("bad callback type for code hook: %T", cb)
		}
		hh := &codeHook{info, fn}
		h.code, hook = append(h.code, hh), hh

	case HOOK_INTR:
		fn, ok := cb.(func(Cpu, uint32))
		if !ok {
			return nil, errors.Errorf("bad callback type for interrupt hook: %T", cb)
		}
		hh := &intrHook{info, fn}
		h.intr, hook = append(h.intr, hh), hh

	case HOOK_INSN_INVALID:
		fn, ok := cb.(func(Cpu) bool)
		if !ok {
			return nil, errors.Errorf("bad callback type for invalid instruction hook: %T", cb)
		}
		hh := &invalidHook{info, fn}
		h.invalid, hook = append(h.invalid, hh), hh

	default:
		return nil, errors.Errorf("unknown hook type: %d", htype)
	}
	return hook, nil
}

func (h *Hooks) HookDel(hh Hook) error {
	info, ok := hh.(hinfo)
	if !ok {
		return errors.Errorf("not a hook: %T", hh)
	}
	switch info.Type() {
	case HOOK_CODE:
		var tmp []*codeHook
		for _, v := range h.code {
			if v != hh {
				tmp = append(tmp, v)
			}
		}
		h.code = tmp
	case HOOK_INTR:
		var tmp []*intrHook
		for _, v := range h.intr {
			if v != hh {
				tmp = append(tmp, v)
			}
		}
		h.intr = tmp
	case HOOK_INSN_INVALID:
		var tmp []*invalidHook
		for _, v := range h.invalid {
			if v != hh {
				tmp = append(tmp, v)
			}
		}
		h.invalid = tmp
	}
	return nil
}

func (h *Hooks) OnCode(addr uint64, size uint32) {
	for _, v := range h.code {
		if v.Contains(addr) {
			v.cb(h.cpu, addr, size)
		}
	}
}

func (h *Hooks) OnIntr(intno uint32) {
	for _, v := range h.intr {
		v.cb(h.cpu, intno)
	}
}

// OnInvalid returns true as soon as one hook reports the instruction handled.
func (h *Hooks) OnInvalid() bool {
	for _, v := range h.invalid {
		if v.cb(h.cpu) {
			return true
		}
	}
	return false
}
