// Copyright 2016 Google Inc.
// Copyright 2024 Kairos contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dhcp4

import (
	"context"
	"io"
	"net"
	"syscall"
	"time"

	"golang.org/x/net/ipv4"
)

// dhcpClientPort is where PXE clients listen for Offer/ACK; defined
// as a var so tests can override it.
var dhcpClientPort = 68

// Conn is the DHCP-oriented packet socket the responder reads from
// and writes to.
//
// Unlike a general BOOTP relay/client conn, this package only ever
// replies the way spec.md §4.E mandates: broadcast to
// 255.255.255.255:68. There is no unicast or relay transmission mode
// to select between.
type Conn interface {
	io.Closer
	// RecvDHCP reads a Message from the connection, skipping any
	// datagram that fails to decode. It returns the interface the
	// datagram arrived on, which the responder needs to pick a source
	// address and, on Linux, to set the outgoing interface for the
	// broadcast reply.
	RecvDHCP() (msg *Message, intf *net.Interface, err error)
	// SendDHCP broadcasts msg out intf.
	SendDHCP(msg *Message, intf *net.Interface) error
	// SetReadDeadline sets the deadline for future RecvDHCP calls. A
	// zero value disables the deadline.
	SetReadDeadline(t time.Time) error
}

// NewConn binds a Conn to addr (e.g. "0.0.0.0:67"), enabling
// SO_REUSEADDR and SO_BROADCAST, and SO_BINDTODEVICE to iface when
// iface is non-empty. On Linux a failed SO_BINDTODEVICE is returned as
// an error; on other platforms the interface binding is a no-op.
func NewConn(addr, iface string) (Conn, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var ctrlErr error
			err := c.Control(func(fd uintptr) {
				ctrlErr = setReuseAddr(fd)
				if ctrlErr == nil && iface != "" {
					ctrlErr = bindToDevice(fd, iface)
				}
			})
			if err != nil {
				return err
			}
			return ctrlErr
		},
	}

	pc, err := lc.ListenPacket(context.Background(), "udp4", addr)
	if err != nil {
		return nil, err
	}

	l := ipv4.NewPacketConn(pc)
	if err := l.SetControlMessage(ipv4.FlagInterface, true); err != nil {
		l.Close()
		return nil, err
	}
	if err := setBroadcast(pc); err != nil {
		l.Close()
		return nil, err
	}
	return &portableConn{conn: l}, nil
}

type portableConn struct {
	conn *ipv4.PacketConn
}

func (c *portableConn) Close() error {
	return c.conn.Close()
}

func (c *portableConn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

func (c *portableConn) RecvDHCP() (*Message, *net.Interface, error) {
	var buf [1500]byte
	for {
		n, cm, _, err := c.conn.ReadFrom(buf[:])
		if err != nil {
			return nil, nil, err
		}
		msg, err := Unmarshal(buf[:n])
		if err != nil {
			continue
		}
		var intf *net.Interface
		if cm != nil {
			intf, err = net.InterfaceByIndex(cm.IfIndex)
			if err != nil {
				return nil, nil, err
			}
		}
		return msg, intf, nil
	}
}

func (c *portableConn) SendDHCP(msg *Message, intf *net.Interface) error {
	b, err := msg.Marshal()
	if err != nil {
		return err
	}

	var cm *ipv4.ControlMessage
	if intf != nil {
		cm = &ipv4.ControlMessage{IfIndex: intf.Index}
	}
	addr := net.UDPAddr{IP: net.IPv4bcast, Port: dhcpClientPort}
	_, err = c.conn.WriteTo(b, cm, &addr)
	return err
}
