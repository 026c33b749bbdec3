package cronic

import (
	"fmt"
	"runtime"
	"time"

	"github.com/pkg/errors"

	"github.com/ironic-emu/cronic/go/models"
	"github.com/ironic-emu/cronic/go/models/cpu"
)

type State int

const (
	Uninitialized State = iota
	TransportReady
	EngineReady
	Running
	StoppedClean
	StoppedTransportError
	StoppedEngineError
)

var stateNames = []string{
	"uninitialized", "transport ready", "engine ready", "running",
	"stopped", "stopped (transport error)", "stopped (engine error)",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// StepResult is the outcome of one loop iteration.
type StepResult int

const (
	Continue StepResult = iota
	StopClean
	StopTransportError
	StopEngineError
)

func (r StepResult) String() string {
	switch r {
	case Continue:
		return "continue"
	case StopClean:
		return "clean stop"
	case StopTransportError:
		return "transport error"
	case StopEngineError:
		return "engine error"
	}
	return fmt.Sprintf("StepResult(%d)", int(r))
}

// Cronic drives a Broadway engine whose entire address space lives on the bus.
type Cronic struct {
	config *models.Config
	arch   *models.Arch
	board  *models.Board
	bus    Bus

	cpu     cpu.Cpu
	regions *models.Regions
	state   State
	running bool
	pc      uint64
	steps   uint64
	fatal   error
	err     error
	status  *models.StatusDiff
	sleep   func(time.Duration)
}

// New builds a harness for arch on board. Every guest access goes to bus.
func New(config *models.Config, arch *models.Arch, board *models.Board, bus Bus) *Cronic {
	return &Cronic{
		config: config.Init(),
		arch:   arch,
		board:  board,
		bus:    bus,
		sleep:  time.Sleep,
	}
}

func (h *Cronic) Printf(f string, args ...interface{}) {
	h.config.Printf(f, args...)
}

func (h *Cronic) Println(s ...interface{}) {
	h.config.Println(s...)
}

func (h *Cronic) State() State            { return h.state }
func (h *Cronic) PC() uint64              { return h.pc }
func (h *Cronic) Cpu() cpu.Cpu            { return h.cpu }
func (h *Cronic) Regions() *models.Regions { return h.regions }

// Steps counts instructions that completed without a transport or engine error.
func (h *Cronic) Steps() uint64 { return h.steps }

// Err is the error that stopped the loop, if any.
func (h *Cronic) Err() error { return h.err }

// Connect brings up the transport.
func (h *Cronic) Connect() error {
	if h.state != Uninitialized {
		return errors.Errorf("Connect() in state %s", h.state)
	}
	h.Println("Setting up Ironic <--> Cronic IPC interface...")
	if err := h.bus.Init(); err != nil {
		return errors.Wrap(err, "problem setting up IPC interface")
	}
	h.state = TransportReady
	return nil
}

// Setup opens the engine, maps every region through the bridge and installs hooks.
func (h *Cronic) Setup() error {
	if h.state != TransportReady {
		return errors.Errorf("Setup() in state %s", h.state)
	}
	h.Println("Setting up Unicorn emulation...")
	regions, err := h.board.Build()
	if err != nil {
		return &EngineSetupError{"address map", err}
	}
	h.regions = regions
	c, err := h.arch.Cpu.New()
	if err != nil {
		return &EngineSetupError{"engine", err}
	}
	h.cpu = c
	for _, r := range regions.List() {
		h.Printf("Setting up %s...\n", r.Desc)
		if h.config.Verbose {
			h.Printf("  %s\n", r)
		}
		if err := h.mapRegion(r, &regionBackend{h, r}); err != nil {
			return &EngineSetupError{r.Name, err}
		}
	}
	if err := h.addHooks(); err != nil {
		return &EngineSetupError{"hooks", err}
	}
	if h.config.TraceReg {
		h.status = &models.StatusDiff{Arch: h.arch, Cpu: h.cpu}
	}
	h.state = EngineReady
	return nil
}

// Start points the engine at the reset vector.
func (h *Cronic) Start() error {
	if h.state != EngineReady {
		return errors.Errorf("Start() in state %s", h.state)
	}
	h.Println("Starting Broadway emulation...")
	h.pc = h.board.Entry
	h.running = true
	h.state = Running
	return nil
}

// Step executes exactly one guest instruction and decides whether to go on.
func (h *Cronic) Step() StepResult {
	if h.state != Running {
		return h.result()
	}
	if h.fatal != nil {
		return h.stop(StopEngineError, h.fatal)
	}
	if !h.running {
		return h.stop(StopClean, nil)
	}
	if err := h.bus.Err(); err != nil {
		return h.stop(StopTransportError, err)
	}
	stepErr := h.cpu.Step(h.pc)
	if h.fatal != nil {
		return h.stop(StopEngineError, h.fatal)
	}
	// a failed access can surface as an engine error too, so the transport goes first
	if err := h.bus.Err(); err != nil {
		return h.stop(StopTransportError, err)
	}
	if stepErr != nil {
		return h.stop(StopEngineError, &EngineFault{h.pc, stepErr})
	}
	pc, err := h.cpu.RegRead(h.arch.PC)
	if err != nil {
		return h.stop(StopEngineError, &EngineFault{h.pc, err})
	}
	h.pc = pc
	h.steps++
	if h.config.TraceExec {
		h.Printf("Emulating @ 0x%08X\n", pc&0x0FFFFFFF)
	}
	if h.status != nil {
		if changes, err := h.status.Changes(true); err == nil {
			h.Printf("%s", changes.String(h.config.Color))
		}
	}
	if h.config.MaxSteps > 0 && h.steps >= h.config.MaxSteps {
		return h.stop(StopClean, nil)
	}
	return Continue
}

func (h *Cronic) stop(res StepResult, err error) StepResult {
	h.running = false
	h.err = err
	switch res {
	case StopTransportError:
		h.state = StoppedTransportError
	case StopEngineError:
		h.state = StoppedEngineError
	default:
		h.state = StoppedClean
	}
	return res
}

func (h *Cronic) result() StepResult {
	switch h.state {
	case StoppedTransportError:
		return StopTransportError
	case StoppedEngineError:
		return StopEngineError
	}
	return StopClean
}

// Loop steps until the harness stops.
func (h *Cronic) Loop() StepResult {
	for {
		if res := h.Step(); res != Continue {
			return res
		}
	}
}

// Run connects, sets up, and emulates until a stop condition, reporting the
// outcome the way the command line expects. It returns nil on a clean stop.
func (h *Cronic) Run() error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer h.Println("Exiting...")

	if h.state == Uninitialized {
		if err := h.Connect(); err != nil {
			h.Printf("ERROR: %s\n", err)
			return err
		}
	}
	if err := h.Setup(); err != nil {
		h.Printf("ERROR: %s\n", err)
		return err
	}
	if err := h.Start(); err != nil {
		return err
	}
	switch h.Loop() {
	case StopTransportError:
		h.Printf("ERROR: Ironic <--> Cronic IPC Error detected: %s\n", h.err)
		h.Dump()
		return errors.Wrap(h.err, "Ironic <--> Cronic IPC Error detected")
	case StopEngineError:
		h.Printf("ERROR: %s\n", h.err)
		h.Dump()
		return h.err
	}
	return nil
}

// Close releases the engine. The transport belongs to the caller.
func (h *Cronic) Close() error {
	if h.cpu != nil {
		return h.cpu.Close()
	}
	return nil
}
