//go:build !darwin && !freebsd

package ipc

import (
	"net"

	"github.com/pkg/errors"
)

func setNoSigpipe(conn *net.UnixConn) error {
	return errors.New("System does not support SO_NOSIGPIPE")
}
