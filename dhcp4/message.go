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
	"encoding/binary"
	"errors"
	"fmt"
	"net"
)

// Op codes for the fixed BOOTP header.
const (
	OpRequest = 1
	OpReply   = 2
)

// Message types carried in option 53.
const (
	MsgDiscover = 1
	MsgOffer    = 2
	MsgRequest  = 3
	MsgAck      = 5
)

// Option tags this package reads or emits.
const (
	OptSubnetMask    = 1
	OptRouter        = 3
	OptDNSServers    = 6
	OptMessageType   = 53
	OptServerID      = 54
	OptBootFilename  = 67
	OptClientArch    = 93
	OptLeaseTime     = 51
	OptEnd           = 255
	OptPad           = 0
	minMessageLength = 240
)

var magicCookie = [4]byte{0x63, 0x82, 0x53, 0x63}

// Message is a BOOTP/DHCP frame: a fixed 240-byte header plus a
// variable-length option TLV stream (see Options).
type Message struct {
	Op      byte
	HType   byte
	HLen    byte
	Hops    byte
	XID     uint32
	Secs    uint16
	Flags   uint16
	CIAddr  net.IP
	YIAddr  net.IP
	SIAddr  net.IP
	GIAddr  net.IP
	CHAddr  [16]byte
	Options Options
}

// Unmarshal decodes a wire-format BOOTP/DHCP message. It fails only if
// b is shorter than the fixed 240-byte header; the options tail after
// byte 240 is kept verbatim. The magic cookie (bytes 236..240) is not
// validated, and bytes 44..236 (the BOOTP sname and file fields) are
// not kept, so Marshal writes them back as zeros.
func Unmarshal(b []byte) (*Message, error) {
	if len(b) < minMessageLength {
		return nil, fmt.Errorf("dhcp4: message too short: %d bytes", len(b))
	}

	m := &Message{
		Op:     b[0],
		HType:  b[1],
		HLen:   b[2],
		Hops:   b[3],
		XID:    binary.BigEndian.Uint32(b[4:8]),
		Secs:   binary.BigEndian.Uint16(b[8:10]),
		Flags:  binary.BigEndian.Uint16(b[10:12]),
		CIAddr: net.IP(append([]byte(nil), b[12:16]...)),
		YIAddr: net.IP(append([]byte(nil), b[16:20]...)),
		SIAddr: net.IP(append([]byte(nil), b[20:24]...)),
		GIAddr: net.IP(append([]byte(nil), b[24:28]...)),
	}
	copy(m.CHAddr[:], b[28:44])
	m.Options = Options(append([]byte(nil), b[240:]...))
	return m, nil
}

// Marshal encodes the message back to wire format: the 240-byte
// fixed header (with the magic cookie at bytes 236..240), followed by
// Options verbatim.
func (m *Message) Marshal() ([]byte, error) {
	buf := make([]byte, minMessageLength, minMessageLength+len(m.Options))
	buf[0] = m.Op
	buf[1] = m.HType
	buf[2] = m.HLen
	buf[3] = m.Hops
	binary.BigEndian.PutUint32(buf[4:8], m.XID)
	binary.BigEndian.PutUint16(buf[8:10], m.Secs)
	binary.BigEndian.PutUint16(buf[10:12], m.Flags)
	if err := putIP(buf[12:16], m.CIAddr); err != nil {
		return nil, fmt.Errorf("dhcp4: ciaddr: %w", err)
	}
	if err := putIP(buf[16:20], m.YIAddr); err != nil {
		return nil, fmt.Errorf("dhcp4: yiaddr: %w", err)
	}
	if err := putIP(buf[20:24], m.SIAddr); err != nil {
		return nil, fmt.Errorf("dhcp4: siaddr: %w", err)
	}
	if err := putIP(buf[24:28], m.GIAddr); err != nil {
		return nil, fmt.Errorf("dhcp4: giaddr: %w", err)
	}
	copy(buf[28:44], m.CHAddr[:])
	copy(buf[236:240], magicCookie[:])
	buf = append(buf, m.Options...)
	return buf, nil
}

func putIP(dst []byte, ip net.IP) error {
	if ip == nil {
		return nil
	}
	v4 := ip.To4()
	if v4 == nil {
		return errors.New("not an IPv4 address")
	}
	copy(dst, v4)
	return nil
}

// Options is a raw, undecoded option TLV stream: {tag, len, value...}
// terminated by tag 255. Tag 0 is padding and is skipped.
type Options []byte

// GetOption walks the option stream and returns the payload for the
// first occurrence of tag, or (nil, false) if absent. It never reads
// past the end of the buffer; a truncated record silently ends the
// walk.
func (o Options) GetOption(tag byte) ([]byte, bool) {
	i := 0
	for i < len(o) {
		t := o[i]
		if t == OptEnd {
			return nil, false
		}
		if t == OptPad {
			i++
			continue
		}
		if i+1 >= len(o) {
			return nil, false
		}
		length := int(o[i+1])
		if i+2+length > len(o) {
			return nil, false
		}
		if t == tag {
			return o[i+2 : i+2+length], true
		}
		i += 2 + length
	}
	return nil, false
}

// MessageType returns the value of option 53 (DHCP message type), or
// 0 if absent or empty.
func (o Options) MessageType() byte {
	v, ok := o.GetOption(OptMessageType)
	if !ok || len(v) == 0 {
		return 0
	}
	return v[0]
}

// ClientArch returns the PXE client architecture from option 93, and
// whether it was present and well-formed.
func (o Options) ClientArch() (uint16, bool) {
	v, ok := o.GetOption(OptClientArch)
	if !ok || len(v) < 2 {
		return 0, false
	}
	return binary.BigEndian.Uint16(v[:2]), true
}
