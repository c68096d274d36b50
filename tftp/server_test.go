package tftp

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kairos-io/finiky/vfs"
)

func mustDir(t *testing.T, files map[string]string) vfs.FileSystem {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	fs, err := vfs.NewDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	return fs
}

func udpPair(t *testing.T) (serverConn *net.UDPConn, client *net.UDPConn) {
	t.Helper()
	s, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	c, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	return s, c
}

func TestServerSmallFileSingleBlock(t *testing.T) {
	fs := mustDir(t, map[string]string{"hello.txt": "hello world!!"}) // 13 bytes
	srv := &Server{FS: fs, Log: zerolog.Nop()}

	sc, cc := udpPair(t)
	defer sc.Close()
	defer cc.Close()

	go srv.Serve(sc)

	rrq := append([]byte{0, byte(OpRRQ)}, append([]byte("hello.txt\x00octet\x00"))...)
	if _, err := cc.WriteTo(rrq, sc.LocalAddr()); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 1024)
	cc.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, from, err := cc.ReadFrom(buf)
	if err != nil {
		t.Fatal(err)
	}
	pkt, err := Parse(buf[:n])
	if err != nil {
		t.Fatal(err)
	}
	if pkt.Opcode != OpDATA || pkt.Block != 1 {
		t.Fatalf("got %+v, want DATA block 1", pkt)
	}
	if string(pkt.Data) != "hello world!!" {
		t.Fatalf("data = %q", pkt.Data)
	}

	if _, err := cc.WriteTo(BuildACK(1), from); err != nil {
		t.Fatal(err)
	}

	// no further DATA should arrive since the file fit in one block.
	cc.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, _, err := cc.ReadFrom(buf); err == nil {
		t.Fatal("expected no further datagrams after last block ACKed")
	}
}

func TestServerMultiBlockTransfer(t *testing.T) {
	body := make([]byte, 1025)
	for i := range body {
		body[i] = byte(i)
	}
	fs := mustDir(t, map[string]string{"img.bin": string(body)})
	srv := &Server{FS: fs, Log: zerolog.Nop()}

	sc, cc := udpPair(t)
	defer sc.Close()
	defer cc.Close()
	go srv.Serve(sc)

	rrq := append([]byte{0, byte(OpRRQ)}, append([]byte("img.bin\x00octet\x00"))...)
	cc.WriteTo(rrq, sc.LocalAddr())

	buf := make([]byte, 2048)
	wantLens := []int{512, 512, 1}
	for i, wantLen := range wantLens {
		cc.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, from, err := cc.ReadFrom(buf)
		if err != nil {
			t.Fatal(err)
		}
		pkt, err := Parse(buf[:n])
		if err != nil {
			t.Fatal(err)
		}
		if int(pkt.Block) != i+1 {
			t.Fatalf("block %d: got %d, want %d", i, pkt.Block, i+1)
		}
		if len(pkt.Data) != wantLen {
			t.Fatalf("block %d: len %d, want %d", i, len(pkt.Data), wantLen)
		}
		cc.WriteTo(BuildACK(pkt.Block), from)
	}
}

// TestServerDuplicateRRQDoesNotStallNewTransfer guards against a
// superseded transfer's deferred cleanup deleting the replacement
// transfer's inbox entry. Without the fix, the old goroutine observes
// its closed inbox, returns immediately, and deletes
// transfers[peer] — which by then belongs to the new transfer —
// so the new transfer's ACKs are dropped as "unknown" until it times
// out and aborts.
func TestServerDuplicateRRQDoesNotStallNewTransfer(t *testing.T) {
	body := make([]byte, 1025)
	for i := range body {
		body[i] = byte(i)
	}
	fs := mustDir(t, map[string]string{"img.bin": string(body)})
	srv := &Server{FS: fs, Log: zerolog.Nop()}

	sc, cc := udpPair(t)
	defer sc.Close()
	defer cc.Close()
	go srv.Serve(sc)

	rrq := append([]byte{0, byte(OpRRQ)}, append([]byte("img.bin\x00octet\x00"))...)
	buf := make([]byte, 2048)

	if _, err := cc.WriteTo(rrq, sc.LocalAddr()); err != nil {
		t.Fatal(err)
	}
	cc.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, from, err := cc.ReadFrom(buf)
	if err != nil {
		t.Fatal(err)
	}
	pkt, err := Parse(buf[:n])
	if err != nil {
		t.Fatal(err)
	}
	if pkt.Opcode != OpDATA || pkt.Block != 1 {
		t.Fatalf("got %+v, want DATA block 1", pkt)
	}
	// Deliberately do not ACK. A second RRQ from the same peer arrives
	// while the first transfer is still in flight; the server must
	// replace it and keep serving the replacement correctly.
	if _, err := cc.WriteTo(rrq, sc.LocalAddr()); err != nil {
		t.Fatal(err)
	}

	wantLens := []int{512, 512, 1}
	for i, wantLen := range wantLens {
		cc.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, from, err = cc.ReadFrom(buf)
		if err != nil {
			t.Fatal(err)
		}
		pkt, err := Parse(buf[:n])
		if err != nil {
			t.Fatal(err)
		}
		if int(pkt.Block) != i+1 {
			t.Fatalf("block %d: got %d, want %d", i, pkt.Block, i+1)
		}
		if len(pkt.Data) != wantLen {
			t.Fatalf("block %d: len %d, want %d", i, len(pkt.Data), wantLen)
		}
		if _, err := cc.WriteTo(BuildACK(pkt.Block), from); err != nil {
			t.Fatal(err)
		}
	}
}

func TestServerFileNotFound(t *testing.T) {
	fs := mustDir(t, map[string]string{})
	srv := &Server{FS: fs, Log: zerolog.Nop()}

	sc, cc := udpPair(t)
	defer sc.Close()
	defer cc.Close()
	go srv.Serve(sc)

	rrq := append([]byte{0, byte(OpRRQ)}, append([]byte("missing.txt\x00octet\x00"))...)
	cc.WriteTo(rrq, sc.LocalAddr())

	buf := make([]byte, 1024)
	cc.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := cc.ReadFrom(buf)
	if err != nil {
		t.Fatal(err)
	}
	pkt, err := Parse(buf[:n])
	if err != nil {
		t.Fatal(err)
	}
	if pkt.Opcode != OpERROR || pkt.ErrCode != ErrCodeNotFound {
		t.Fatalf("got %+v, want ERROR(1)", pkt)
	}
}

func TestServerWRQRejected(t *testing.T) {
	fs := mustDir(t, map[string]string{})
	srv := &Server{FS: fs, Log: zerolog.Nop()}

	sc, cc := udpPair(t)
	defer sc.Close()
	defer cc.Close()
	go srv.Serve(sc)

	wrq := append([]byte{0, byte(OpWRQ)}, append([]byte("anything.txt\x00octet\x00"))...)
	cc.WriteTo(wrq, sc.LocalAddr())

	buf := make([]byte, 1024)
	cc.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := cc.ReadFrom(buf)
	if err != nil {
		t.Fatal(err)
	}
	pkt, err := Parse(buf[:n])
	if err != nil {
		t.Fatal(err)
	}
	if pkt.Opcode != OpERROR || pkt.ErrCode != ErrCodeAccessDenied {
		t.Fatalf("got %+v, want ERROR(2)", pkt)
	}
}
