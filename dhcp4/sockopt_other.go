//go:build !linux

package dhcp4

import "net"

// setReuseAddr is a no-op outside Linux; most BSD-family stacks
// default UDP sockets to address reuse across processes already.
func setReuseAddr(fd uintptr) error { return nil }

// setBroadcast is a no-op outside Linux. Senders on these platforms
// rely on the kernel's default broadcast permission for UDP sockets
// bound to a wildcard address.
func setBroadcast(pc net.PacketConn) error { return nil }

// bindToDevice is implemented only on Linux; elsewhere it is a no-op
// rather than a startup failure.
func bindToDevice(fd uintptr, iface string) error { return nil }
