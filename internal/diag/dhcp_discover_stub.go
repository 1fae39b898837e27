//go:build !linux

package diag

import (
	"context"
	"errors"
	"time"

	"github.com/user/netdiag/internal/netinfo"
)

// DiscoverServerIdentities requires the Linux socket options for receiving
// broadcast DHCP replies; elsewhere the lease-state method is the only one.
func DiscoverServerIdentities(_ context.Context, _ netinfo.Interface, _ time.Duration) ([]string, error) {
	return nil, errors.New("active dhcp discovery not supported on this platform")
}
