package ipc

import (
	"os/signal"

	"golang.org/x/sys/unix"
)

// a dead ironic must show up as EPIPE on the next write, not kill the process
func ignoreSigpipe() {
	signal.Ignore(unix.SIGPIPE)
}
