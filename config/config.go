// Package config loads and holds the TOML configuration document:
// dhcp, tftp, and http sections. The compiled-in default is embedded
// verbatim so the file `finiky gen-config` writes can never drift from
// the default this process falls back to.
package config

import (
	_ "embed"
	"fmt"

	"github.com/BurntSushi/toml"
)

//go:embed default.toml
var defaultTOML []byte

// DefaultDocument returns the embedded default configuration, byte for
// byte what gen-config writes.
func DefaultDocument() []byte {
	return append([]byte(nil), defaultTOML...)
}

// Config is the top-level document.
type Config struct {
	DHCP DHCP `toml:"dhcp"`
	TFTP TFTP `toml:"tftp"`
	HTTP HTTP `toml:"http"`
}

// DHCP mirrors the dhcp section: pool bounds, reply fields, and
// protocol enable flags/filename overrides.
type DHCP struct {
	Port        int       `toml:"port"`
	Interface   string    `toml:"interface"`
	Protocols   Protocols `toml:"protocols"`
	IPPoolStart string    `toml:"ip_pool_start"`
	IPPoolEnd   string    `toml:"ip_pool_end"`
	SubnetMask  string    `toml:"subnet_mask"`
	Gateway     string    `toml:"gateway"`
	DNSServers  []string  `toml:"dns_servers"`
	NextServer  string    `toml:"next_server"`
}

// Protocols is which boot protocols the responder offers, and their
// filename overrides.
type Protocols struct {
	EFI      bool `toml:"efi"`
	Legacy   bool `toml:"legacy"`
	DHCPBoot bool `toml:"dhcp_boot"`

	BootFilenameEFI      string `toml:"boot_filename_efi"`
	BootFilenameLegacy   string `toml:"boot_filename_legacy"`
	BootFilenameDHCPBoot string `toml:"boot_filename_dhcp_boot"`
}

// TFTP is the tftp section: listening port and filesystem root
// (directory or .tar.gz archive).
type TFTP struct {
	Port int    `toml:"port"`
	Root string `toml:"root"`
}

// HTTP is the http section, shaped identically to TFTP.
type HTTP struct {
	Port int    `toml:"port"`
	Root string `toml:"root"`
}

// Default returns the parsed form of the embedded default document.
func Default() (Config, error) {
	return parse(defaultTOML)
}

// Load reads and parses the TOML document at path.
func Load(path string) (Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: loading %s: %w", path, err)
	}
	return cfg, nil
}

func parse(doc []byte) (Config, error) {
	var cfg Config
	if _, err := toml.Decode(string(doc), &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing embedded default: %w", err)
	}
	return cfg, nil
}
