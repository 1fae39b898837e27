package netinfo

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoLease is returned when no DHCP lease mentioning the interface could
// be located on the system.
var ErrNoLease = errors.New("no dhcp lease found")

// Lease file locations covered: dhclient, systemd-networkd and
// NetworkManager internal leases.
var leaseGlobs = []string{
	"/var/lib/dhcp/dhclient*.leases",
	"/var/lib/dhclient/*.leases",
	"/run/systemd/netif/leases/*",
	"/var/lib/NetworkManager/internal-*.lease",
}

// LeaseServerIdentity returns the DHCP server identity recorded in the
// system lease state for the given interface. This is the "currently
// leased" detection method; the active DISCOVER probe is the second.
func LeaseServerIdentity(iface string) (string, error) {
	for _, glob := range leaseGlobs {
		paths, err := filepath.Glob(glob)
		if err != nil {
			continue
		}
		for _, path := range paths {
			id, err := scanLeaseFile(path, iface)
			if err == nil && id != "" {
				return id, nil
			}
		}
	}
	return "", fmt.Errorf("interface %s: %w", iface, ErrNoLease)
}

// scanLeaseFile understands both dhclient lease syntax
// ("option dhcp-server-identifier 10.0.0.1;") and the key=value syntax of
// systemd/NetworkManager leases ("SERVER_ADDRESS=10.0.0.1").
func scanLeaseFile(path, iface string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	// Keyed lease files carry the interface in the file name.
	keyed := !strings.Contains(filepath.Base(path), "dhclient")
	ifaceMatched := keyed

	var identity string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if strings.HasPrefix(line, "interface ") {
			name := strings.Trim(strings.TrimSuffix(strings.TrimPrefix(line, "interface "), ";"), `"`)
			ifaceMatched = name == iface
			continue
		}
		if strings.HasPrefix(line, "option dhcp-server-identifier ") {
			if ifaceMatched {
				identity = strings.TrimSuffix(strings.TrimPrefix(line, "option dhcp-server-identifier "), ";")
			}
			continue
		}
		if strings.HasPrefix(line, "SERVER_ADDRESS=") {
			identity = strings.TrimPrefix(line, "SERVER_ADDRESS=")
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	if identity == "" {
		return "", ErrNoLease
	}
	return identity, nil
}
