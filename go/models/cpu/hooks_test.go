package cpu

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
)

func callAll(h *Hooks) bool {
	h.OnCode(0x1001, 4)
	h.OnIntr(3)
	return h.OnInvalid()
}

// this test ensures it's safe to dispatch all hooks while empty
func TestHooksEmpty(t *testing.T) {
	h := NewHooks(nil)
	if callAll(h) {
		t.Fatal("empty invalid instruction hook list reported handled")
	}
}

// checks if two lists of strings are equal
func strseq(a []string, b []string) error {
	if len(a) != len(b) {
		return errors.Errorf("output list length mismatch: %v != %v", a, b)
	}
	for i, v := range a {
		if v != b[i] {
			return errors.Errorf("output list value mismatch: %s != %s", v, b[i])
		}
	}
	return nil
}

func TestHooks(t *testing.T) {
	h := NewHooks(nil)
	compare := []string{"code(0x1001, 0x4)", "intr(3)", "invalid()"}
	var results []string
	handled := false
	codeCb := func(_ Cpu, addr uint64, size uint32) {
		results = append(results, fmt.Sprintf("code(%#x, %#x)", addr, size))
	}
	intrCb := func(_ Cpu, intno uint32) {
		results = append(results, fmt.Sprintf("intr(%d)", intno))
	}
	invalidCb := func(_ Cpu) bool {
		results = append(results, "invalid()")
		return handled
	}
	var hooks []Hook
	addHooks := func() {
		for _, v := range []struct {
			htype int
			cb    interface{}
		}{{HOOK_CODE, codeCb}, {HOOK_INTR, intrCb}, {HOOK_INSN_INVALID, invalidCb}} {
			hh, err := h.HookAdd(v.htype, v.cb, 1, 0)
			if err != nil {
				t.Fatal(err)
			}
			hooks = append(hooks, hh)
		}
	}
	removeHooks := func() {
		for _, v := range hooks {
			if err := h.HookDel(v); err != nil {
				t.Fatal(err)
			}
		}
		hooks = nil
	}

	addHooks()
	if callAll(h) {
		t.Fatal("invalid hook reported handled")
	}
	if err := strseq(results, compare); err != nil {
		t.Fatal(err)
	}
	results = nil

	removeHooks()
	addHooks()
	handled = true
	if !callAll(h) {
		t.Fatal("invalid hook did not report handled")
	}
	if err := strseq(results, compare); err != nil {
		t.Fatal(err)
	}
	results = nil

	removeHooks()
	callAll(h)
	if len(results) != 0 {
		t.Fatalf("hooks still fired after removal: %v", results)
	}
}

func TestHookRange(t *testing.T) {
	h := NewHooks(nil)
	var hits []uint64
	codeCb := func(_ Cpu, addr uint64, size uint32) { hits = append(hits, addr) }
	if _, err := h.HookAdd(HOOK_CODE, codeCb, 0x1000, 0x1fff); err != nil {
		t.Fatal(err)
	}
	for addr := uint64(0); addr < 0x4000; addr += 0x1000 {
		h.OnCode(addr, 4)
	}
	h.OnCode(0x1fff, 4)
	if len(hits) != 2 || hits[0] != 0x1000 || hits[1] != 0x1fff {
		t.Fatalf("unexpected code hook hits: %#x", hits)
	}
}

func TestHookBadCallback(t *testing.T) {
	h := NewHooks(nil)
	if _, err := h.HookAdd(HOOK_INTR, func() {}, 1, 0); err == nil {
		t.Fatal("accepted interrupt hook with wrong signature")
	}
	if _, err := h.HookAdd(12345, func() {}, 1, 0); err == nil {
		t.Fatal("accepted unknown hook type")
	}
}

func BenchmarkHook(b *testing.B) {
	h := NewHooks(nil)
	codeCb := func(_ Cpu, addr uint64, size uint32) {}
	if _, err := h.HookAdd(HOOK_CODE, codeCb, 0x1000, 0x1fff); err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.OnCode(0x1000, 4)
	}
}
