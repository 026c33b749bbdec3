//go:build darwin || freebsd

package ipc

import (
	"net"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func setNoSigpipe(conn *net.UnixConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return errors.Wrap(err, "setsockopt (not fatal)")
	}
	var serr error
	err = raw.Control(func(fd uintptr) {
		serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_NOSIGPIPE, 1)
	})
	if err == nil {
		err = serr
	}
	return errors.Wrap(err, "setsockopt (not fatal)")
}
