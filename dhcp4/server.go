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
	"fmt"
	"net"

	"github.com/rs/zerolog"
)

// Config is everything the responder needs besides its socket and
// pool: the fixed reply fields and the boot-protocol selection.
type Config struct {
	SubnetMask net.IP
	Gateway    net.IP // nil if not configured
	DNSServers []net.IP
	NextServer net.IP
	Protocols  ProtocolConfig
}

// Server is the DHCP responder: a thin, stateless-per-datagram loop
// over a shared Pool and Config.
type Server struct {
	Conn   Conn
	Pool   *Pool
	Config Config
	Log    zerolog.Logger
}

// Serve runs the receive loop described in spec.md §4.E until Conn is
// closed or a non-decode error occurs. It never returns nil; callers
// treat any return as the service having stopped.
func (s *Server) Serve() error {
	for {
		msg, intf, err := s.Conn.RecvDHCP()
		if err != nil {
			return fmt.Errorf("dhcp4: receive: %w", err)
		}
		s.handle(msg, intf)
	}
}

func (s *Server) handle(msg *Message, intf *net.Interface) {
	msgType := msg.Options.MessageType()
	if msgType != MsgDiscover && msgType != MsgRequest {
		return
	}

	var mac [6]byte
	copy(mac[:], msg.CHAddr[:6])
	log := s.Log.With().Str("mac", net.HardwareAddr(mac[:]).String()).Logger()

	ip, err := s.Pool.Allocate(mac)
	if err != nil {
		log.Warn().Err(err).Msg("dhcp: allocation failed, dropping request")
		return
	}

	clientArch, archPresent := msg.Options.ClientArch()
	protocol := SelectProtocol(s.Config.Protocols, clientArch, archPresent)
	if protocol == ProtocolNone {
		log.Debug().Msg("dhcp: no boot protocol enabled, dropping request")
		return
	}
	filename := BootFilename(protocol, s.Config.Protocols)

	replyType := byte(MsgOffer)
	if msgType == MsgRequest {
		replyType = MsgAck
	}

	reply := &Message{
		Op:     OpReply,
		HType:  msg.HType,
		HLen:   msg.HLen,
		Hops:   0,
		XID:    msg.XID,
		Flags:  msg.Flags,
		CIAddr: net.IPv4zero,
		YIAddr: ip,
		SIAddr: s.Config.NextServer,
		GIAddr: net.IPv4zero,
		CHAddr: msg.CHAddr,
	}
	reply.Options = BuildReplyOptions(ReplyOptions{
		MessageType: replyType,
		SubnetMask:  s.Config.SubnetMask,
		Router:      s.Config.Gateway,
		DNSServers:  s.Config.DNSServers,
		NextServer:  s.Config.NextServer,
		BootFile:    filename,
	})

	if err := s.Conn.SendDHCP(reply, intf); err != nil {
		log.Warn().Err(err).Msg("dhcp: send failed")
		return
	}
	log.Debug().IPAddr("offered_ip", ip).Str("boot_filename", filename).Msg("dhcp: replied")
}
