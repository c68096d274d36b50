package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultMatchesDocumentedValues(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DHCP.Port != 67 {
		t.Errorf("dhcp port = %d, want 67", cfg.DHCP.Port)
	}
	if cfg.TFTP.Port != 69 {
		t.Errorf("tftp port = %d, want 69", cfg.TFTP.Port)
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("http port = %d, want 8080", cfg.HTTP.Port)
	}
	if !cfg.DHCP.Protocols.EFI || !cfg.DHCP.Protocols.Legacy || !cfg.DHCP.Protocols.DHCPBoot {
		t.Errorf("expected all three boot protocols enabled by default, got %+v", cfg.DHCP.Protocols)
	}
	if cfg.DHCP.IPPoolStart != "192.168.1.100" || cfg.DHCP.IPPoolEnd != "192.168.1.200" {
		t.Errorf("unexpected pool bounds %s..%s", cfg.DHCP.IPPoolStart, cfg.DHCP.IPPoolEnd)
	}
}

func TestDefaultDocumentRoundTripsThroughLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, DefaultDocument(), 0o644); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	fromDefault, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(fromDefault, loaded); diff != "" {
		t.Fatalf("Load(gen-config output) mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("not = [valid"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error loading malformed TOML")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nonexistent.toml")); err == nil {
		t.Fatal("expected error loading missing file")
	}
}
