//go:build linux

package dhcp4

import (
	"net"

	"golang.org/x/sys/unix"
)

func setReuseAddr(fd uintptr) error {
	return unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
}

func setBroadcast(pc net.PacketConn) error {
	udp, ok := pc.(*net.UDPConn)
	if !ok {
		return nil
	}
	raw, err := udp.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	if err := raw.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
	}); err != nil {
		return err
	}
	return sockErr
}

// bindToDevice implements SO_BINDTODEVICE, restricting the socket to
// datagrams arriving on the named interface. A missing interface or
// insufficient privilege surfaces to the caller of NewConn as a bind
// error, per spec.md §7.
func bindToDevice(fd uintptr, iface string) error {
	return unix.BindToDevice(int(fd), iface)
}
