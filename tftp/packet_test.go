package tftp

import (
	"bytes"
	"testing"
)

func TestParseRRQExtractsFilenameAndIgnoresMode(t *testing.T) {
	raw := append([]byte{0, byte(OpRRQ)}, append([]byte("bootx64.efi\x00octet\x00"))...)
	p, err := Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if p.Opcode != OpRRQ {
		t.Fatalf("opcode = %d, want RRQ", p.Opcode)
	}
	if p.ExtractFilename() != "bootx64.efi" {
		t.Fatalf("filename = %q", p.Filename)
	}
}

func TestParseACK(t *testing.T) {
	p, err := Parse(BuildACK(7))
	if err != nil {
		t.Fatal(err)
	}
	if p.Opcode != OpACK || p.Block != 7 {
		t.Fatalf("parsed %+v, want ACK block 7", p)
	}
}

func TestParseDataRoundTrip(t *testing.T) {
	payload := []byte("hello world!!")
	raw := BuildData(3, payload)
	p, err := Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if p.Opcode != OpDATA || p.Block != 3 {
		t.Fatalf("parsed %+v, want DATA block 3", p)
	}
	if !bytes.Equal(p.Data, payload) {
		t.Fatalf("data = %q, want %q", p.Data, payload)
	}
}

func TestParseErrorRoundTrip(t *testing.T) {
	raw := BuildError(ErrCodeNotFound, "File not found")
	p, err := Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if p.Opcode != OpERROR || p.ErrCode != ErrCodeNotFound {
		t.Fatalf("parsed %+v", p)
	}
	if p.ErrMsg != "File not found" {
		t.Fatalf("errmsg = %q", p.ErrMsg)
	}
}

func TestParseTooShort(t *testing.T) {
	if _, err := Parse([]byte{0}); err == nil {
		t.Fatal("expected error for 1-byte packet")
	}
}

func TestParseRRQMissingTerminator(t *testing.T) {
	raw := []byte{0, byte(OpRRQ), 'a', 'b', 'c'}
	if _, err := Parse(raw); err == nil {
		t.Fatal("expected error for missing NUL terminator")
	}
}

func TestParseUnknownOpcode(t *testing.T) {
	raw := []byte{0, 99}
	if _, err := Parse(raw); err == nil {
		t.Fatal("expected error for unknown opcode")
	}
}

func TestBuildDataOpcodeBytes(t *testing.T) {
	raw := BuildData(1, []byte("x"))
	if raw[0] != 0 || raw[1] != byte(OpDATA) {
		t.Fatalf("opcode bytes = %v, want [0 3]", raw[:2])
	}
}
