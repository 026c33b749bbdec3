package cronic

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrUnsupportedSize is fatal: the engine asked for an access the bus can't express.
var ErrUnsupportedSize = errors.New("unsupported access size")

// EngineSetupError aborts startup.
type EngineSetupError struct {
	Step string
	Err  error
}

func (e *EngineSetupError) Error() string {
	return fmt.Sprintf("during setup: %s: %v", e.Step, e.Err)
}

func (e *EngineSetupError) Cause() error {
	return e.Err
}

// EngineFault is an error reported by the engine while running.
type EngineFault struct {
	PC  uint64
	Err error
}

func (e *EngineFault) Error() string {
	return fmt.Sprintf("%v, occurred @ 0x%08X", e.Err, e.PC)
}

func (e *EngineFault) Cause() error {
	return e.Err
}
