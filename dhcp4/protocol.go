package dhcp4

// BootProtocol is the boot path selected for a client, derived from
// its PXE client architecture (option 93) and which protocols are
// enabled in configuration.
type BootProtocol int

const (
	// ProtocolNone means no protocol is enabled; the caller must drop
	// the request.
	ProtocolNone BootProtocol = iota
	ProtocolEFI
	ProtocolLegacy
	ProtocolDHCPBoot
)

// Default boot filenames, used when no override is configured.
const (
	DefaultFilenameEFI      = "bootx64.efi"
	DefaultFilenameLegacy   = "pxelinux.0"
	DefaultFilenameDHCPBoot = "pxelinux.0"
)

// client architecture identifiers from PXE option 93.
const (
	archIntelX86PC = 0
	archNECPC98    = 1
	archEFIx64     = 6
)

// ProtocolConfig mirrors config.Protocols: which boot protocols are
// enabled and their filename overrides.
type ProtocolConfig struct {
	EFI, Legacy, DHCPBoot bool

	FilenameEFI      string // empty means use DefaultFilenameEFI
	FilenameLegacy   string
	FilenameDHCPBoot string
}

// SelectProtocol implements spec.md §4.D's selection rules in order.
// A recognized arch (EFI x64, or Intel PC/NEC PC-98) is decisive: it
// returns that protocol if enabled, or None if not — it never falls
// back to a different protocol. Only an absent or unrecognized arch
// falls through to the default selection: the first enabled protocol
// in EFI, Legacy, DHCPBoot order.
func SelectProtocol(cfg ProtocolConfig, clientArch uint16, archPresent bool) BootProtocol {
	if archPresent {
		switch clientArch {
		case archEFIx64:
			if cfg.EFI {
				return ProtocolEFI
			}
			return ProtocolNone
		case archIntelX86PC, archNECPC98:
			if cfg.Legacy {
				return ProtocolLegacy
			}
			return ProtocolNone
		}
	}
	return protocolDefault(cfg)
}

func protocolDefault(cfg ProtocolConfig) BootProtocol {
	switch {
	case cfg.EFI:
		return ProtocolEFI
	case cfg.Legacy:
		return ProtocolLegacy
	case cfg.DHCPBoot:
		return ProtocolDHCPBoot
	default:
		return ProtocolNone
	}
}

// BootFilename returns the configured override for protocol, or its
// compiled-in default.
func BootFilename(protocol BootProtocol, cfg ProtocolConfig) string {
	switch protocol {
	case ProtocolEFI:
		if cfg.FilenameEFI != "" {
			return cfg.FilenameEFI
		}
		return DefaultFilenameEFI
	case ProtocolLegacy:
		if cfg.FilenameLegacy != "" {
			return cfg.FilenameLegacy
		}
		return DefaultFilenameLegacy
	case ProtocolDHCPBoot:
		if cfg.FilenameDHCPBoot != "" {
			return cfg.FilenameDHCPBoot
		}
		return DefaultFilenameDHCPBoot
	default:
		return ""
	}
}
