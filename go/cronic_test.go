package cronic

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/ironic-emu/cronic/go/arch/ppc/hollywood"
	"github.com/ironic-emu/cronic/go/ipc"
	"github.com/ironic-emu/cronic/go/ipc/ipctest"
	"github.com/ironic-emu/cronic/go/models"
	"github.com/ironic-emu/cronic/go/models/cpu"
	"github.com/ironic-emu/cronic/go/models/mock"
)

// bus address of the reset vector
const stubAddr = hollywood.RVEC_REAL_START

const (
	insBranchSelf = 0x48000000 // b .
	insPsqL       = 0xe0000000 // psq_l f0, 0(0), 0, qr0
	insIllegal    = 0x00000000
	insSc         = 0x44000002
	insNop        = 0x60000000
)

type harness struct {
	*Cronic
	server *ipctest.Server
	client *ipc.Client
	out    *bytes.Buffer
}

func newHarness(t *testing.T, config *models.Config, code ...uint32) *harness {
	s, err := ipctest.NewServer()
	if err != nil {
		t.Fatal(err)
	}
	for i, w := range code {
		s.Poke32(stubAddr+uint32(i*4), w)
	}
	if config == nil {
		config = &models.Config{}
	}
	out := &bytes.Buffer{}
	config.Output = out
	client := ipc.NewClient(s.Path)
	h := &harness{
		Cronic: New(config, mock.Arch, hollywood.Board, client),
		server: s,
		client: client,
		out:    out,
	}
	h.sleep = func(time.Duration) {}
	return h
}

func (h *harness) Close() {
	h.Cronic.Close()
	h.client.Close()
	h.server.Close()
}

func (h *harness) boot(t *testing.T) {
	if err := h.Connect(); err != nil {
		t.Fatal(err)
	}
	if err := h.Setup(); err != nil {
		t.Fatal(err)
	}
	if err := h.Start(); err != nil {
		t.Fatal(err)
	}
}

func TestRunUntilTransportError(t *testing.T) {
	const answers = 5
	h := newHarness(t, nil, insBranchSelf)
	defer h.Close()
	// each step fetches one word from the boot stub
	h.server.CloseAfter(answers)
	err := h.Run()
	if errors.Cause(err) != ipc.ErrShortIO {
		t.Fatalf("Run() = %v", err)
	}
	if h.Steps() != answers {
		t.Fatalf("ran %d steps, expecting %d", h.Steps(), answers)
	}
	if h.State() != StoppedTransportError {
		t.Fatalf("state = %s", h.State())
	}
	if n := h.server.Answered(); n != answers {
		t.Fatalf("server answered %d fetches", n)
	}
	out := h.out.String()
	for _, s := range []string{
		"Setting up Ironic <--> Cronic IPC interface...",
		"Setting up MEM1...",
		"Setting up reset vector...",
		"Starting Broadway emulation...",
		"ERROR: Ironic <--> Cronic IPC Error detected",
		"Registers:",
		"Exiting...",
	} {
		if !strings.Contains(out, s) {
			t.Errorf("output is missing %q", s)
		}
	}
	if models.ExitCode(err) != 1 {
		t.Errorf("exit code %d", models.ExitCode(err))
	}
}

func TestHangupBeforeFetch(t *testing.T) {
	h := newHarness(t, nil, insBranchSelf)
	defer h.Close()
	h.boot(t)
	h.server.Close()
	if res := h.Step(); res != StopTransportError {
		t.Fatalf("step after hangup: %s (%v)", res, h.Err())
	}
	if !ipc.IsSticky(h.Err()) || errors.Cause(h.Err()) != ipc.ErrShortIO {
		t.Fatalf("err = %v", h.Err())
	}
	if h.Steps() != 0 {
		t.Fatalf("%d steps retired", h.Steps())
	}
	if h.State() != StoppedTransportError {
		t.Fatalf("state = %s", h.State())
	}
	// the loop stays stopped
	if res := h.Step(); res != StopTransportError {
		t.Fatalf("second step: %s", res)
	}
}

func TestResetVectorFetch(t *testing.T) {
	h := newHarness(t, nil, insNop, insBranchSelf)
	defer h.Close()
	h.boot(t)
	if h.PC() != hollywood.ResetVector {
		t.Fatalf("start PC %#x", h.PC())
	}
	for i := 0; i < 3; i++ {
		if res := h.Step(); res != Continue {
			t.Fatalf("step %d: %s (%v)", i, res, h.Err())
		}
	}
	if h.PC() != hollywood.ResetVector+4 {
		t.Fatalf("PC %#x", h.PC())
	}
	frames := h.server.Frames()
	if len(frames) != 3 {
		t.Fatalf("%d requests for 3 steps", len(frames))
	}
	hdr, err := ipc.UnpackHeader(frames[0])
	if err != nil {
		t.Fatal(err)
	}
	if ipc.Opcode(hdr.Op) != ipc.READ32 || hdr.Addr != stubAddr {
		t.Fatalf("first fetch was %s @ %#x", ipc.Opcode(hdr.Op), hdr.Addr)
	}
}

func TestMaxSteps(t *testing.T) {
	h := newHarness(t, &models.Config{MaxSteps: 3}, insBranchSelf)
	defer h.Close()
	if err := h.Run(); err != nil {
		t.Fatal(err)
	}
	if h.Steps() != 3 || h.State() != StoppedClean {
		t.Fatalf("steps=%d state=%s", h.Steps(), h.State())
	}
	if h.client.Err() != nil {
		t.Fatal("clean stop left the transport failed")
	}
}

func TestBadAckStopsLoop(t *testing.T) {
	// stw r3, 0x100(0)
	h := newHarness(t, nil, 0x90600100, insBranchSelf)
	defer h.Close()
	h.boot(t)
	h.server.BadAck()
	if res := h.Step(); res != StopTransportError {
		t.Fatalf("Step() = %s", res)
	}
	if errors.Cause(h.Err()) != ipc.ErrProtocolMismatch {
		t.Fatalf("Err() = %v", h.Err())
	}
	if h.Steps() != 0 {
		t.Fatalf("failed store counted as a step")
	}
	// stopped harness stays stopped
	if res := h.Step(); res != StopTransportError {
		t.Fatalf("second Step() = %s", res)
	}
}

func TestInvalidInstruction(t *testing.T) {
	h := newHarness(t, nil, insPsqL, insIllegal)
	defer h.Close()
	h.boot(t)
	if res := h.Step(); res != Continue {
		t.Fatalf("psq_l: %s (%v)", res, h.Err())
	}
	if h.PC() != hollywood.ResetVector+4 {
		t.Fatalf("psq_l was not skipped, PC %#x", h.PC())
	}
	if !strings.Contains(h.out.String(), "[STUB] Skipping psq_l at 0xFFFF0100") {
		t.Fatalf("missing stub message:\n%s", h.out.String())
	}
	if res := h.Step(); res != StopEngineError {
		t.Fatalf("illegal instruction: %s", res)
	}
	fault, ok := h.Err().(*EngineFault)
	if !ok || fault.PC != hollywood.ResetVector+4 {
		t.Fatalf("Err() = %v", h.Err())
	}
	if errors.Cause(fault) != mock.ErrInvalidInstruction {
		t.Fatalf("fault cause %v", errors.Cause(fault))
	}
}

func TestInvalidHookDecision(t *testing.T) {
	h := newHarness(t, nil)
	defer h.Close()
	h.boot(t)
	c := h.Cpu()
	for _, v := range []struct {
		word    uint32
		handled bool
	}{
		{0xe0000000, true},
		{0xe3ffffff, true},
		{0xe4000000, false}, // psq_lu
		{0xdc000000, false},
		{0x00000000, false},
	} {
		h.server.Poke32(stubAddr, v.word)
		c.RegWrite(mock.PC, hollywood.ResetVector)
		if got := h.onInvalid(c); got != v.handled {
			t.Errorf("%#08x: handled=%v, expecting %v", v.word, got, v.handled)
		}
		pc, _ := c.RegRead(mock.PC)
		want := uint64(hollywood.ResetVector)
		if v.handled {
			want += 4
		}
		if pc != want {
			t.Errorf("%#08x: PC %#x, expecting %#x", v.word, pc, want)
		}
	}
}

func TestInterrupt(t *testing.T) {
	h := newHarness(t, &models.Config{IntrPause: time.Second}, insSc, insBranchSelf)
	defer h.Close()
	var slept []time.Duration
	h.sleep = func(d time.Duration) { slept = append(slept, d) }
	h.boot(t)
	if res := h.Step(); res != Continue {
		t.Fatalf("Step() = %s (%v)", res, h.Err())
	}
	out := h.out.String()
	if !strings.Contains(out, "Interrupt 8 fired!") || !strings.Contains(out, "pc, lr    : 0xffff0100") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("slept %v", slept)
	}
}

func TestUnsupportedSize(t *testing.T) {
	h := newHarness(t, nil, insBranchSelf)
	defer h.Close()
	h.boot(t)
	r := h.Regions().Find(0)
	b := &regionBackend{h.Cronic, r}
	if val := b.Read(h.Cpu(), 0x10, 8); val != 0 {
		t.Fatalf("unsupported read returned %#x", val)
	}
	if len(h.server.Frames()) != 0 {
		t.Fatal("unsupported size reached the bus")
	}
	if res := h.Step(); res != StopEngineError {
		t.Fatalf("Step() = %s", res)
	}
	if errors.Cause(h.Err()) != ErrUnsupportedSize {
		t.Fatalf("Err() = %v", h.Err())
	}
	if h.client.Err() != nil {
		t.Fatal("size failure poisoned the transport")
	}
}

func TestSetupErrors(t *testing.T) {
	h := newHarness(t, nil)
	defer h.Close()
	h.board = &models.Board{
		Name: "broken",
		Regions: []models.Region{
			{Name: "a", Addr: 0, Size: 0x1000},
			{Name: "b", Addr: 0x800, Size: 0x1000},
		},
	}
	if err := h.Connect(); err != nil {
		t.Fatal(err)
	}
	err := h.Setup()
	if _, ok := err.(*EngineSetupError); !ok {
		t.Fatalf("Setup() = %v", err)
	}
	if h.State() != TransportReady {
		t.Fatalf("state %s after failed setup", h.State())
	}
	if err := h.Connect(); err == nil {
		t.Fatal("second Connect() succeeded")
	}
}

type failBuilder struct{}

func (failBuilder) New() (cpu.Cpu, error) { return nil, errors.New("no engine") }

func TestEngineOpenFailure(t *testing.T) {
	h := newHarness(t, nil)
	defer h.Close()
	arch := *mock.Arch
	arch.Cpu = failBuilder{}
	h.arch = &arch
	if err := h.Connect(); err != nil {
		t.Fatal(err)
	}
	err := h.Setup()
	se, ok := err.(*EngineSetupError)
	if !ok || se.Step != "engine" {
		t.Fatalf("Setup() = %v", err)
	}
}

func TestConnectFailure(t *testing.T) {
	client := ipc.NewClient("/nonexistent/ironic-ppc.sock")
	h := New(&models.Config{Output: &bytes.Buffer{}}, mock.Arch, hollywood.Board, client)
	err := h.Run()
	if !ipc.IsConnectionError(err) {
		t.Fatalf("Run() = %v", err)
	}
	if h.State() != Uninitialized {
		t.Fatalf("state %s", h.State())
	}
}

func TestTrace(t *testing.T) {
	h := newHarness(t, &models.Config{TraceMem: true, TraceExec: true, TraceReg: true}, insBranchSelf)
	defer h.Close()
	h.boot(t)
	if res := h.Step(); res != Continue {
		t.Fatal(res)
	}
	out := h.out.String()
	for _, s := range []string{
		"MEM_Read @ 0x0D806840, 4 bytes",
		"got val 0x48000000",
		"Emulating @ 0x0FFF0100",
		"pc 0xffff0100",
	} {
		if !strings.Contains(out, s) {
			t.Errorf("trace output is missing %q:\n%s", s, out)
		}
	}
}

func TestStoreThroughBridge(t *testing.T) {
	code := []uint32{
		0x3860abcd, // li r3, -0x5433
		0x98600010, // stb r3, 0x10(0)
		0xb0600020, // sth r3, 0x20(0)
		0x90600030, // stw r3, 0x30(0)
		insBranchSelf,
	}
	h := newHarness(t, nil, code...)
	defer h.Close()
	h.boot(t)
	for i := 0; i < 4; i++ {
		if res := h.Step(); res != Continue {
			t.Fatalf("step %d: %s (%v)", i, res, h.Err())
		}
	}
	if p := h.server.Peek(0x10, 1); p[0] != 0xcd {
		t.Errorf("stb wrote %x", p)
	}
	if p := h.server.Peek(0x20, 2); !bytes.Equal(p, []byte{0xab, 0xcd}) {
		t.Errorf("sth wrote %x", p)
	}
	if p := h.server.Peek(0x30, 4); !bytes.Equal(p, []byte{0xff, 0xff, 0xab, 0xcd}) {
		t.Errorf("stw wrote %x", p)
	}
}

func TestDump(t *testing.T) {
	h := newHarness(t, nil, insBranchSelf)
	defer h.Close()
	h.boot(t)
	c := h.Cpu()
	for i := 0; i < 32; i++ {
		c.RegWrite(mock.R0+i, uint64(i)<<24|uint64(i))
	}
	c.RegWrite(mock.PC, hollywood.ResetVector)
	c.RegWrite(mock.LR, 0x80003100)
	h.out.Reset()
	h.Dump()
	lines := strings.Split(strings.TrimSpace(h.out.String()), "\n")
	want := []string{
		"Code:",
		"0xffff0100: 48000000",
		"0xffff0104: 00000000",
		"0xffff0108: 00000000",
		"0xffff010c: 00000000",
		"Registers:",
		"r0  - r3  : 0x00000000 0x01000001 0x02000002 0x03000003",
		"r4  - r7  : 0x04000004 0x05000005 0x06000006 0x07000007",
		"r8  - r11 : 0x08000008 0x09000009 0x0a00000a 0x0b00000b",
		"r12 - r15 : 0x0c00000c 0x0d00000d 0x0e00000e 0x0f00000f",
		"r16 - r19 : 0x10000010 0x11000011 0x12000012 0x13000013",
		"r20 - r23 : 0x14000014 0x15000015 0x16000016 0x17000017",
		"r24 - r27 : 0x18000018 0x19000019 0x1a00001a 0x1b00001b",
		"r28 - r31 : 0x1c00001c 0x1d00001d 0x1e00001e 0x1f00001f",
		"pc, lr    : 0xffff0100 0x80003100",
	}
	if len(lines) != len(want) {
		t.Fatalf("dump has %d lines, expecting %d:\n%s", len(lines), len(want), h.out.String())
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: %q, expecting %q", i, lines[i], want[i])
		}
	}
}

var _ Bus = &ipc.Client{}
