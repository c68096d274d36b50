// Command finiky runs the PXE server (DHCP + TFTP + HTTP), or writes
// out the embedded default configuration.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kairos-io/finiky/config"
	"github.com/kairos-io/finiky/netlog"
	"github.com/kairos-io/finiky/pxeserver"
)

var startFlags struct {
	configPath     string
	dhcpPort       int
	tftpPort       int
	httpPort       int
	tftpRoot       string
	httpRoot       string
	iface          string
	enableEFI      bool
	enableLegacy   bool
	enableDHCPBoot bool
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "finiky",
		Short: "A self-contained PXE server (DHCP, TFTP, HTTP)",
	}
	root.AddCommand(startCmd(), genConfigCmd())
	return root
}

func startCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Run the DHCP, TFTP, and HTTP services",
		RunE:  runStart,
	}

	f := cmd.Flags()
	f.StringVar(&startFlags.configPath, "config", "", "path to a TOML configuration file (defaults to the compiled-in default)")
	f.IntVar(&startFlags.dhcpPort, "dhcp-port", 0, "override the DHCP listening port")
	f.IntVar(&startFlags.tftpPort, "tftp-port", 0, "override the TFTP listening port")
	f.IntVar(&startFlags.httpPort, "http-port", 0, "override the HTTP listening port")
	f.StringVar(&startFlags.tftpRoot, "tftp-root", "", "override the TFTP filesystem root (directory or .tar.gz)")
	f.StringVar(&startFlags.httpRoot, "http-root", "", "override the HTTP filesystem root (directory or .tar.gz)")
	f.StringVar(&startFlags.iface, "interface", "", "bind the DHCP socket to this interface")
	f.BoolVar(&startFlags.enableEFI, "enable-efi", false, "force-enable the EFI boot protocol")
	f.BoolVar(&startFlags.enableLegacy, "enable-legacy", false, "force-enable the legacy BIOS boot protocol")
	f.BoolVar(&startFlags.enableDHCPBoot, "enable-dhcp-boot", false, "force-enable the generic DHCP-boot protocol")

	return cmd
}

func runStart(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(startFlags.configPath)
	if err != nil {
		return err
	}
	applyOverrides(&cfg, cmd)

	log := netlog.New()
	srv := &pxeserver.Server{Config: cfg, Log: log}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigc
		log.Info().Stringer("signal", sig).Msg("finiky: shutting down")
		cancel()
	}()

	return srv.Run(ctx)
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default()
	}
	return config.Load(path)
}

// applyOverrides layers any flag the user actually set onto cfg, loaded
// from file or the compiled-in default.
func applyOverrides(cfg *config.Config, cmd *cobra.Command) {
	changed := cmd.Flags().Changed

	if changed("dhcp-port") {
		cfg.DHCP.Port = startFlags.dhcpPort
	}
	if changed("tftp-port") {
		cfg.TFTP.Port = startFlags.tftpPort
	}
	if changed("http-port") {
		cfg.HTTP.Port = startFlags.httpPort
	}
	if changed("tftp-root") {
		cfg.TFTP.Root = startFlags.tftpRoot
	}
	if changed("http-root") {
		cfg.HTTP.Root = startFlags.httpRoot
	}
	if changed("interface") {
		cfg.DHCP.Interface = startFlags.iface
	}
	if changed("enable-efi") {
		cfg.DHCP.Protocols.EFI = startFlags.enableEFI
	}
	if changed("enable-legacy") {
		cfg.DHCP.Protocols.Legacy = startFlags.enableLegacy
	}
	if changed("enable-dhcp-boot") {
		cfg.DHCP.Protocols.DHCPBoot = startFlags.enableDHCPBoot
	}
}

func genConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gen-config [file]",
		Short: "Write the embedded default configuration to a file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path := "config.toml"
			if len(args) == 1 {
				path = args[0]
			}
			return os.WriteFile(path, config.DefaultDocument(), 0o644)
		},
	}
}
