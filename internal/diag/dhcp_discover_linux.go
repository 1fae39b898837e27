//go:build linux

package diag

import (
	"context"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/insomniacslk/dhcp/dhcpv4"

	"github.com/user/netdiag/internal/netinfo"
)

// DiscoverServerIdentities broadcasts one DHCPDISCOVER on the interface
// and collects the server identity from every OFFER that arrives within
// timeout. Multiple answering servers on one segment all show up here.
func DiscoverServerIdentities(ctx context.Context, iface netinfo.Interface, timeout time.Duration) ([]string, error) {
	ifi, err := net.InterfaceByName(iface.Name)
	if err != nil {
		return nil, fmt.Errorf("interface %s: %w", iface.Name, err)
	}
	if len(ifi.HardwareAddr) == 0 {
		return nil, fmt.Errorf("interface %s has no hardware address", iface.Name)
	}

	conn, err := openDHCPConn(ctx, ifi)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	discover, err := dhcpv4.NewDiscovery(ifi.HardwareAddr, dhcpv4.WithBroadcast(true))
	if err != nil {
		return nil, fmt.Errorf("failed to build discover: %w", err)
	}
	discover.UpdateOption(dhcpv4.OptParameterRequestList(
		dhcpv4.OptionSubnetMask,
		dhcpv4.OptionRouter,
		dhcpv4.OptionServerIdentifier,
	))

	raddr := &net.UDPAddr{IP: net.IPv4bcast, Port: 67}
	if _, err := conn.WriteToUDP(discover.ToBytes(), raddr); err != nil {
		return nil, fmt.Errorf("failed to send discover: %w", err)
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}

	var identities []string
	buf := make([]byte, 3000)
	for {
		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			break // window elapsed
		}
		pkt, perr := dhcpv4.FromBytes(buf[:n])
		if perr != nil || pkt.MessageType() != dhcpv4.MessageTypeOffer || pkt.TransactionID != discover.TransactionID {
			continue
		}
		server := src.IP
		if sid := pkt.ServerIdentifier(); sid != nil && !sid.IsUnspecified() {
			server = sid
		}
		identities = append(identities, server.String())
	}
	return identities, nil
}

// openDHCPConn binds the DHCP client port with broadcast enabled and the
// socket pinned to the interface so broadcast replies are received.
func openDHCPConn(ctx context.Context, ifi *net.Interface) (*net.UDPConn, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				if err := syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1); err != nil {
					sockErr = fmt.Errorf("SO_REUSEADDR: %w", err)
					return
				}
				if err := syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1); err != nil {
					sockErr = fmt.Errorf("SO_BROADCAST: %w", err)
					return
				}
				if err := syscall.SetsockoptString(int(fd), syscall.SOL_SOCKET, syscall.SO_BINDTODEVICE, ifi.Name); err != nil {
					sockErr = fmt.Errorf("SO_BINDTODEVICE: %w", err)
					return
				}
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}

	pc, err := lc.ListenPacket(ctx, "udp4", ":68")
	if err != nil {
		return nil, fmt.Errorf("failed to bind dhcp client port: %w", err)
	}
	conn, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close()
		return nil, fmt.Errorf("unexpected packet conn type %T", pc)
	}
	return conn, nil
}
