// Package tftp implements the read side of RFC 1350: opcode parsing,
// packet building, and a lockstep read server that demultiplexes
// inbound ACKs to per-client transfer goroutines.
package tftp

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Opcodes, big-endian u16 at the start of every TFTP packet.
const (
	OpRRQ   uint16 = 1
	OpWRQ   uint16 = 2
	OpDATA  uint16 = 3
	OpACK   uint16 = 4
	OpERROR uint16 = 5
)

// Error codes used by this server.
const (
	ErrCodeNotFound      uint16 = 1
	ErrCodeAccessDenied  uint16 = 2
	ErrCodeGeneric       uint16 = 0
	MaxDataLen                  = 512
)

// Packet is a parsed TFTP datagram. Only the fields relevant to its
// Opcode are meaningful; the rest are zero.
type Packet struct {
	Opcode   uint16
	Block    uint16
	Data     []byte
	ErrCode  uint16
	ErrMsg   string
	Filename string
	Mode     string
}

// Parse decodes b into a Packet. It fails if b is too short to carry
// an opcode, if the opcode is unknown, if an RRQ/WRQ payload has no
// NUL-terminated filename field, or if a DATA/ACK/ERROR packet is too
// short to carry its block number or error code.
func Parse(b []byte) (*Packet, error) {
	if len(b) < 2 {
		return nil, fmt.Errorf("tftp: packet too short (%d bytes)", len(b))
	}
	p := &Packet{Opcode: binary.BigEndian.Uint16(b[0:2])}
	rest := b[2:]

	switch p.Opcode {
	case OpRRQ, OpWRQ:
		name, mode, err := parseRequest(rest)
		if err != nil {
			return nil, err
		}
		p.Filename, p.Mode = name, mode
	case OpDATA:
		if len(rest) < 2 {
			return nil, fmt.Errorf("tftp: DATA missing block number")
		}
		p.Block = binary.BigEndian.Uint16(rest[0:2])
		p.Data = rest[2:]
	case OpACK:
		if len(rest) < 2 {
			return nil, fmt.Errorf("tftp: ACK missing block number")
		}
		p.Block = binary.BigEndian.Uint16(rest[0:2])
	case OpERROR:
		if len(rest) < 2 {
			return nil, fmt.Errorf("tftp: ERROR missing code")
		}
		p.ErrCode = binary.BigEndian.Uint16(rest[0:2])
		p.ErrMsg = string(bytes.TrimSuffix(rest[2:], []byte{0}))
	default:
		return nil, fmt.Errorf("tftp: unknown opcode %d", p.Opcode)
	}
	return p, nil
}

// parseRequest reads the filename\0mode\0 payload of an RRQ/WRQ,
// treating mode as unused: every request is served as binary.
func parseRequest(b []byte) (filename, mode string, err error) {
	i := bytes.IndexByte(b, 0)
	if i < 0 {
		return "", "", fmt.Errorf("tftp: request missing filename terminator")
	}
	filename = string(b[:i])
	rest := b[i+1:]
	if j := bytes.IndexByte(rest, 0); j >= 0 {
		mode = string(rest[:j])
	} else {
		mode = string(rest)
	}
	return filename, mode, nil
}

// ExtractFilename is a convenience accessor for an RRQ/WRQ packet.
func (p *Packet) ExtractFilename() string { return p.Filename }

// BuildACK builds an ACK packet for the given block number.
func BuildACK(block uint16) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint16(b[0:2], OpACK)
	binary.BigEndian.PutUint16(b[2:4], block)
	return b
}

// BuildData builds a DATA packet. len(data) must be <= MaxDataLen.
func BuildData(block uint16, data []byte) []byte {
	b := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(b[0:2], OpDATA)
	binary.BigEndian.PutUint16(b[2:4], block)
	copy(b[4:], data)
	return b
}

// BuildError builds an ERROR packet with a NUL-terminated message.
func BuildError(code uint16, msg string) []byte {
	b := make([]byte, 4+len(msg)+1)
	binary.BigEndian.PutUint16(b[0:2], OpERROR)
	binary.BigEndian.PutUint16(b[2:4], code)
	copy(b[4:], msg)
	b[len(b)-1] = 0
	return b
}
