package unicorn

/*
#cgo LDFLAGS: -lunicorn
#include "mmio.h"
*/
import "C"

import (
	"runtime/cgo"
	"unsafe"

	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"

	"github.com/ironic-emu/cronic/go/models/cpu"
)

// window is the user data behind one uc_mmio_map call.
type window struct {
	cpu   *UnicornCpu
	read  cpu.MmioReadCb
	write cpu.MmioWriteCb
}

//export cronicMmioRead
func cronicMmioRead(handle C.uintptr_t, offset C.uint64_t, size C.uint) C.uint64_t {
	w := cgo.Handle(handle).Value().(*window)
	if w.read == nil {
		return 0
	}
	return C.uint64_t(w.read(w.cpu, uint64(offset), int(size)))
}

//export cronicMmioWrite
func cronicMmioWrite(handle C.uintptr_t, offset C.uint64_t, size C.uint, value C.uint64_t) {
	w := cgo.Handle(handle).Value().(*window)
	if w.write != nil {
		w.write(w.cpu, uint64(offset), int(size), uint64(value))
	}
}

//export cronicInsnInvalid
func cronicInsnInvalid(handle C.uintptr_t) C.bool {
	h := cgo.Handle(handle).Value().(*invalidHook)
	return C.bool(h.cb(h.cpu))
}

func ucErr(err C.uc_err) error {
	if err == C.UC_ERR_OK {
		return nil
	}
	return uc.UcError(err)
}

func engine(u uc.Unicorn) unsafe.Pointer {
	return unsafe.Pointer(u.Handle())
}

func mmioMap(u uc.Unicorn, addr, size uint64, h cgo.Handle) error {
	return ucErr(C.cronic_mmio_map(engine(u), C.uint64_t(addr), C.uint64_t(size), C.uintptr_t(h)))
}

func hookInsnInvalid(u uc.Unicorn, h cgo.Handle) (uc.Hook, error) {
	var hh C.uc_hook
	if err := ucErr(C.cronic_hook_insn_invalid(engine(u), &hh, C.uintptr_t(h))); err != nil {
		return 0, err
	}
	return uc.Hook(hh), nil
}

func setCpuModel(u uc.Unicorn, model int) error {
	return ucErr(C.cronic_set_cpu_model(engine(u), C.int(model)))
}
