//go:build !unix

package coord

import "net"

func setBroadcast(conn net.PacketConn) error {
	return nil
}
