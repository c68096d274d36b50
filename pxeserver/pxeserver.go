// Package pxeserver is the top-level supervisor: it opens the three
// service sockets up front (so bind failures are fatal startup
// errors), then runs the DHCP, TFTP, and HTTP services concurrently
// until the context is cancelled or one of them returns.
package pxeserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kairos-io/finiky/config"
	"github.com/kairos-io/finiky/dhcp4"
	"github.com/kairos-io/finiky/httpserver"
	"github.com/kairos-io/finiky/tftp"
	"github.com/kairos-io/finiky/vfs"
)

// Server wires the three services from a loaded configuration.
type Server struct {
	Config config.Config
	Log    zerolog.Logger
}

// Run opens all three sockets and the two filesystems, then serves
// until ctx is cancelled or any one service returns. The first error
// observed from any service is returned; a cancelled context returns
// nil.
func (s *Server) Run(ctx context.Context) error {
	pool, err := dhcp4.NewPool(net.ParseIP(s.Config.DHCP.IPPoolStart), net.ParseIP(s.Config.DHCP.IPPoolEnd))
	if err != nil {
		return fmt.Errorf("pxeserver: %w", err)
	}

	dhcpConn, err := dhcp4.NewConn(fmt.Sprintf(":%d", s.Config.DHCP.Port), s.Config.DHCP.Interface)
	if err != nil {
		return fmt.Errorf("pxeserver: binding DHCP socket: %w", err)
	}

	tftpConn, err := net.ListenPacket("udp4", fmt.Sprintf(":%d", s.Config.TFTP.Port))
	if err != nil {
		dhcpConn.Close()
		return fmt.Errorf("pxeserver: binding TFTP socket: %w", err)
	}

	httpListener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.Config.HTTP.Port))
	if err != nil {
		dhcpConn.Close()
		tftpConn.Close()
		return fmt.Errorf("pxeserver: binding HTTP socket: %w", err)
	}

	tftpFS, err := vfs.New(s.Config.TFTP.Root)
	if err != nil {
		dhcpConn.Close()
		tftpConn.Close()
		httpListener.Close()
		return fmt.Errorf("pxeserver: opening TFTP root %s: %w", s.Config.TFTP.Root, err)
	}
	httpFS, err := vfs.New(s.Config.HTTP.Root)
	if err != nil {
		dhcpConn.Close()
		tftpConn.Close()
		httpListener.Close()
		return fmt.Errorf("pxeserver: opening HTTP root %s: %w", s.Config.HTTP.Root, err)
	}

	dhcpSrv := &dhcp4.Server{
		Conn:   dhcpConn,
		Pool:   pool,
		Config: s.dhcpConfig(),
		Log:    s.Log.With().Str("component", "dhcp").Logger(),
	}
	tftpSrv := &tftp.Server{FS: tftpFS, Log: s.Log.With().Str("component", "tftp").Logger()}
	httpSrv := &http.Server{Handler: httpserver.New(httpFS, s.Log.With().Str("component", "http").Logger())}

	errc := make(chan error, 3)
	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); errc <- dhcpSrv.Serve() }()
	go func() { defer wg.Done(); errc <- tftpSrv.Serve(tftpConn) }()
	go func() { defer wg.Done(); errc <- httpSrv.Serve(httpListener) }()

	var runErr error
	select {
	case <-ctx.Done():
		s.Log.Info().Msg("pxeserver: shutdown signal received")
	case runErr = <-errc:
		s.Log.Error().Err(runErr).Msg("pxeserver: a service exited unexpectedly")
	}

	dhcpConn.Close()
	tftpConn.Close()
	httpSrv.Close()
	wg.Wait()

	return runErr
}

func (s *Server) dhcpConfig() dhcp4.Config {
	var gateway net.IP
	if s.Config.DHCP.Gateway != "" {
		gateway = net.ParseIP(s.Config.DHCP.Gateway)
	}
	dns := make([]net.IP, 0, len(s.Config.DHCP.DNSServers))
	for _, raw := range s.Config.DHCP.DNSServers {
		dns = append(dns, net.ParseIP(raw))
	}
	return dhcp4.Config{
		SubnetMask: net.ParseIP(s.Config.DHCP.SubnetMask),
		Gateway:    gateway,
		DNSServers: dns,
		NextServer: net.ParseIP(s.Config.DHCP.NextServer),
		Protocols: dhcp4.ProtocolConfig{
			EFI:              s.Config.DHCP.Protocols.EFI,
			Legacy:           s.Config.DHCP.Protocols.Legacy,
			DHCPBoot:         s.Config.DHCP.Protocols.DHCPBoot,
			FilenameEFI:      s.Config.DHCP.Protocols.BootFilenameEFI,
			FilenameLegacy:   s.Config.DHCP.Protocols.BootFilenameLegacy,
			FilenameDHCPBoot: s.Config.DHCP.Protocols.BootFilenameDHCPBoot,
		},
	}
}
