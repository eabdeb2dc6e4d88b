//go:build unix

package coord

import (
	"fmt"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

func setBroadcast(conn net.PacketConn) error {
	sconn, ok := conn.(syscall.Conn)
	if !ok {
		return fmt.Errorf("connection does not expose its socket")
	}

	rconn, err := sconn.SyscallConn()
	if err != nil {
		return err
	}

	var sockErr error

	err = rconn.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET,
			unix.SO_BROADCAST, 1)
	})
	if err != nil {
		return err
	}

	return sockErr
}
