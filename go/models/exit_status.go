package models

import "fmt"

type ExitStatus int

func (e ExitStatus) Error() string {
	return fmt.Sprintf("exit %d", e)
}

// ExitCode maps a harness result to a process exit code.
// nil exits 0, an ExitStatus exits with itself, anything else exits 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if e, ok := err.(ExitStatus); ok {
		return int(e)
	}
	return 1
}
