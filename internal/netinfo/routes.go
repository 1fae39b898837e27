package netinfo

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
)

const procRoutePath = "/proc/net/route"

// Route is one IPv4 kernel route table entry, in table order.
type Route struct {
	Destination string // CIDR form, e.g. "0.0.0.0/0"
	NextHop     string // "0.0.0.0" for on-link routes
	Interface   string
	Metric      int
}

// ErrNoDefaultGateway is returned when the route table has no default route.
var ErrNoDefaultGateway = errors.New("no default gateway found")

// ListRoutes returns the IPv4 route table in kernel order.
func ListRoutes() ([]Route, error) {
	f, err := os.Open(procRoutePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read route table: %w", err)
	}
	defer f.Close()
	return parseRoutes(f)
}

// parseRoutes parses /proc/net/route content. Addresses are hex-encoded
// little-endian 32-bit values.
func parseRoutes(r io.Reader) ([]Route, error) {
	var routes []Route
	scanner := bufio.NewScanner(r)

	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if first { // header row
			first = false
			continue
		}
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 8 {
			continue
		}

		dest, err := parseHexIPv4(fields[1])
		if err != nil {
			continue
		}
		gw, err := parseHexIPv4(fields[2])
		if err != nil {
			continue
		}
		mask, err := parseHexIPv4(fields[7])
		if err != nil {
			continue
		}
		metric, _ := strconv.Atoi(fields[6])

		ones, _ := net.IPMask(mask).Size()
		routes = append(routes, Route{
			Destination: fmt.Sprintf("%s/%d", net.IP(dest).String(), ones),
			NextHop:     net.IP(gw).String(),
			Interface:   fields[0],
			Metric:      metric,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan route table: %w", err)
	}
	return routes, nil
}

func parseHexIPv4(s string) (net.IP, error) {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 4 {
		return nil, fmt.Errorf("bad hex address %q", s)
	}
	// little-endian on the wire
	return net.IPv4(raw[3], raw[2], raw[1], raw[0]).To4(), nil
}

// DefaultGateway returns the default gateway address and the interface it
// is reachable through.
func DefaultGateway() (gateway, iface string, err error) {
	routes, err := ListRoutes()
	if err != nil {
		return "", "", err
	}
	return defaultGatewayFrom(routes)
}

func defaultGatewayFrom(routes []Route) (gateway, iface string, err error) {
	for _, r := range routes {
		if r.Destination == "0.0.0.0/0" && r.NextHop != "0.0.0.0" {
			return r.NextHop, r.Interface, nil
		}
	}
	return "", "", ErrNoDefaultGateway
}

// LocalSubnet derives the local IPv4 subnet from the default-gateway
// interface, e.g. "192.168.1.0/24".
func LocalSubnet() (string, error) {
	_, iface, err := DefaultGateway()
	if err != nil {
		return "", err
	}
	cfg, err := GetIPv4Config(iface)
	if err != nil {
		return "", err
	}
	_, ipnet, err := net.ParseCIDR(fmt.Sprintf("%s/%d", cfg.Address, cfg.PrefixLen))
	if err != nil {
		return "", fmt.Errorf("failed to derive subnet: %w", err)
	}
	return ipnet.String(), nil
}
