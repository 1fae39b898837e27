// Package netinfo provides read-only inventory of local network adapters,
// IPv4 configuration and the kernel route table.
package netinfo

import (
	"fmt"
	"net"

	psnet "github.com/shirou/gopsutil/v3/net"
)

// Interface describes one up, non-loopback adapter with a hardware address.
type Interface struct {
	Name  string
	Index int
	MAC   string
	MTU   int
}

// IPv4Config holds the primary IPv4 configuration of an interface.
type IPv4Config struct {
	Address        string
	PrefixLen      int
	DefaultGateway string
}

// ListUpInterfaces returns all adapters that are up, not loopback and carry
// a hardware address.
func ListUpInterfaces() ([]Interface, error) {
	stats, err := psnet.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}

	var out []Interface
	for _, st := range stats {
		if !hasFlag(st.Flags, "up") || hasFlag(st.Flags, "loopback") {
			continue
		}
		if st.HardwareAddr == "" {
			continue
		}
		out = append(out, Interface{
			Name:  st.Name,
			Index: st.Index,
			MAC:   st.HardwareAddr,
			MTU:   st.MTU,
		})
	}
	return out, nil
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}

// GetIPv4Config returns the first IPv4 address of the named interface plus
// the system default gateway.
func GetIPv4Config(name string) (*IPv4Config, error) {
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("interface %s: %w", name, err)
	}

	addrs, err := ifi.Addrs()
	if err != nil {
		return nil, fmt.Errorf("interface %s addresses: %w", name, err)
	}

	cfg := &IPv4Config{}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip4 := ipnet.IP.To4()
		if ip4 == nil {
			continue
		}
		ones, _ := ipnet.Mask.Size()
		cfg.Address = ip4.String()
		cfg.PrefixLen = ones
		break
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("interface %s has no IPv4 address", name)
	}

	if gw, _, err := DefaultGateway(); err == nil {
		cfg.DefaultGateway = gw
	}
	return cfg, nil
}
