package tftp

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kairos-io/finiky/vfs"
)

// ackTimeout is how long a transfer waits for the next ACK before it
// gives up, per the wire format's lockstep-with-no-retransmission rule.
const ackTimeout = 5 * time.Second

// inboxCapacity bounds the per-peer ACK channel so a flood of
// duplicate or out-of-order ACKs cannot block the receive loop.
const inboxCapacity = 10

// Server is the TFTP read server: one receive loop demultiplexing
// inbound ACKs to per-client transfer goroutines via transfers.
type Server struct {
	FS  vfs.FileSystem
	Log zerolog.Logger

	mu        sync.Mutex
	transfers map[string]chan []byte
}

// Serve runs the receive loop until conn is closed or a fatal read
// error occurs. RRQ starts a new transfer goroutine; ACK is routed to
// the matching transfer's inbox; WRQ and anything else is answered or
// dropped per the wire format.
func (s *Server) Serve(conn net.PacketConn) error {
	s.mu.Lock()
	if s.transfers == nil {
		s.transfers = make(map[string]chan []byte)
	}
	s.mu.Unlock()

	buf := make([]byte, 65507)
	for {
		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			return fmt.Errorf("tftp: receive: %w", err)
		}
		raw := append([]byte(nil), buf[:n]...)
		pkt, err := Parse(raw)
		if err != nil {
			s.Log.Warn().Err(err).Stringer("peer", peer).Msg("tftp: dropping malformed packet")
			continue
		}
		s.dispatch(conn, peer, pkt, raw)
	}
}

func (s *Server) dispatch(conn net.PacketConn, peer net.Addr, pkt *Packet, raw []byte) {
	switch pkt.Opcode {
	case OpRRQ:
		s.startTransfer(conn, peer, pkt.ExtractFilename())
	case OpACK:
		s.routeAck(peer, raw)
	case OpWRQ:
		s.Log.Info().Stringer("peer", peer).Msg("tftp: write not supported")
		s.send(conn, peer, BuildError(ErrCodeAccessDenied, "Write not supported"))
	default:
		s.Log.Warn().Stringer("peer", peer).Uint16("opcode", pkt.Opcode).Msg("tftp: unexpected opcode, dropping")
	}
}

// startTransfer registers a fresh inbox for peer, replacing and
// closing any prior one for the same peer, and runs the transfer in
// its own goroutine.
func (s *Server) startTransfer(conn net.PacketConn, peer net.Addr, filename string) {
	acks := make(chan []byte, inboxCapacity)

	s.mu.Lock()
	if prior, ok := s.transfers[peer.String()]; ok {
		close(prior)
	}
	s.transfers[peer.String()] = acks
	s.mu.Unlock()

	go s.runTransfer(conn, peer, filename, acks)
}

func (s *Server) routeAck(peer net.Addr, raw []byte) {
	s.mu.Lock()
	acks, ok := s.transfers[peer.String()]
	s.mu.Unlock()
	if !ok {
		s.Log.Warn().Stringer("peer", peer).Msg("tftp: ACK for unknown transfer, dropping")
		return
	}
	select {
	case acks <- raw:
	default:
		s.Log.Warn().Stringer("peer", peer).Msg("tftp: ACK inbox full, dropping")
	}
}

// removeTransfer deletes the peer's inbox entry only if it still
// points at acks. A superseded transfer's goroutine sees its inbox
// closed by a newer RRQ and must not delete the newer transfer's
// entry on its way out.
func (s *Server) removeTransfer(peer net.Addr, acks chan []byte) {
	s.mu.Lock()
	if s.transfers[peer.String()] == acks {
		delete(s.transfers, peer.String())
	}
	s.mu.Unlock()
}

// runTransfer owns the send/await-ACK loop for one RRQ. It always
// terminates by removing itself from transfers.
func (s *Server) runTransfer(conn net.PacketConn, peer net.Addr, filename string, acks chan []byte) {
	defer s.removeTransfer(peer, acks)
	log := s.Log.With().Stringer("peer", peer).Str("file", filename).Logger()

	data, err := s.FS.Read(strings.TrimPrefix(filename, "/"))
	if errors.Is(err, vfs.ErrNotFound) || errors.Is(err, vfs.ErrInvalidPath) {
		log.Info().Msg("tftp: file not found")
		s.send(conn, peer, BuildError(ErrCodeNotFound, "File not found"))
		return
	}
	if err != nil {
		log.Warn().Err(err).Msg("tftp: read failed")
		s.send(conn, peer, BuildError(ErrCodeGeneric, err.Error()))
		return
	}

	var block uint16 = 1
	offset := 0
	total := len(data)

	for {
		end := offset + MaxDataLen
		if end > total {
			end = total
		}
		chunk := data[offset:end]

		if err := s.send(conn, peer, BuildData(block, chunk)); err != nil {
			log.Warn().Err(err).Msg("tftp: send failed")
			return
		}

		raw, ok := s.awaitAck(acks)
		if !ok {
			log.Info().Msg("tftp: transfer aborted")
			return
		}
		ack, err := Parse(raw)
		if err != nil || ack.Opcode != OpACK {
			log.Warn().Msg("tftp: malformed ACK, terminating transfer")
			return
		}
		if ack.Block != block {
			log.Warn().Uint16("expected", block).Uint16("got", ack.Block).Msg("tftp: wrong block ACK, terminating transfer")
			return
		}

		offset = end
		if len(chunk) < MaxDataLen {
			log.Debug().Int("bytes", total).Msg("tftp: transfer complete")
			return
		}
		block++
		if block == 0 {
			block = 1
		}
	}
}

func (s *Server) awaitAck(acks chan []byte) ([]byte, bool) {
	select {
	case raw, ok := <-acks:
		return raw, ok
	case <-time.After(ackTimeout):
		return nil, false
	}
}

func (s *Server) send(conn net.PacketConn, peer net.Addr, b []byte) error {
	_, err := conn.WriteTo(b, peer)
	return err
}
