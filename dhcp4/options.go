package dhcp4

import (
	"encoding/binary"
	"net"
)

// ReplyOptions carries the fields needed to build the Offer/ACK
// option block in the fixed order spec.md §4.B requires.
type ReplyOptions struct {
	MessageType byte // MsgOffer or MsgAck
	SubnetMask  net.IP
	Router      net.IP // nil if not configured
	DNSServers  []net.IP
	NextServer  net.IP
	BootFile    string
}

// BuildReplyOptions emits, in order: message type (53), subnet mask
// (1), router (3, if present), DNS servers (6, if non-empty), lease
// time (51, fixed at 3600s), server identifier (54), bootfile name
// (67), then the end tag (255).
func BuildReplyOptions(r ReplyOptions) Options {
	var out []byte

	out = appendOption(out, OptMessageType, []byte{r.MessageType})

	if mask := r.SubnetMask.To4(); mask != nil {
		out = appendOption(out, OptSubnetMask, mask)
	}

	if router := r.Router.To4(); router != nil {
		out = appendOption(out, OptRouter, router)
	}

	if len(r.DNSServers) > 0 {
		var dns []byte
		for _, ip := range r.DNSServers {
			v4 := ip.To4()
			if v4 == nil {
				continue
			}
			dns = append(dns, v4...)
		}
		if len(dns) > 0 {
			out = appendOption(out, OptDNSServers, dns)
		}
	}

	leaseTime := make([]byte, 4)
	binary.BigEndian.PutUint32(leaseTime, 3600)
	out = appendOption(out, OptLeaseTime, leaseTime)

	if server := r.NextServer.To4(); server != nil {
		out = appendOption(out, OptServerID, server)
	}

	out = appendOption(out, OptBootFilename, []byte(r.BootFile))

	out = append(out, OptEnd)
	return Options(out)
}

// appendOption appends a single {tag, len, value} TLV. Values longer
// than 255 bytes are truncated to fit the single-byte length field;
// none of the fields this package emits can reach that size.
func appendOption(dst []byte, tag byte, value []byte) []byte {
	if len(value) > 255 {
		value = value[:255]
	}
	dst = append(dst, tag, byte(len(value)))
	dst = append(dst, value...)
	return dst
}
