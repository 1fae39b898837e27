package diag

import (
	"context"
	"strings"
	"time"

	"github.com/user/netdiag/internal/model"
	"github.com/user/netdiag/internal/netinfo"
	"github.com/user/netdiag/internal/report"
	"github.com/user/netdiag/internal/util"
)

// LeaseIdentityFunc returns the DHCP server identity recorded in system
// lease state for an interface.
type LeaseIdentityFunc func(iface string) (string, error)

// DiscoverIdentityFunc actively probes an interface for DHCP server
// identities, returning every server that answered within the window.
type DiscoverIdentityFunc func(ctx context.Context, iface netinfo.Interface, timeout time.Duration) ([]string, error)

// ConflictDetector gathers DHCP server identities per up interface from
// two independent methods and deduplicates them into one identity set for
// the whole run. More than one distinct identity on the segment is a
// conflict.
type ConflictDetector struct {
	cfg                *util.Config
	store              *report.Store
	interfaces         func() ([]netinfo.Interface, error)
	leaseIdentity      LeaseIdentityFunc
	discoverIdentities DiscoverIdentityFunc
}

// NewConflictDetector creates a DHCP conflict detector using the system
// lease state and an active DISCOVER probe.
func NewConflictDetector(cfg *util.Config, store *report.Store) *ConflictDetector {
	return &ConflictDetector{
		cfg:                cfg,
		store:              store,
		interfaces:         netinfo.ListUpInterfaces,
		leaseIdentity:      netinfo.LeaseServerIdentity,
		discoverIdentities: DiscoverServerIdentities,
	}
}

// DetectConflicts queries every up interface with both methods and
// classifies the accumulated identity set. A single-interface failure is
// logged and never aborts the remaining interfaces.
func (d *ConflictDetector) DetectConflicts(ctx context.Context) *model.DHCPServerSet {
	set := model.NewDHCPServerSet()

	ifaces, err := d.interfaces()
	if err != nil {
		d.store.Warn("Could not list interfaces for DHCP detection: %v", err)
		d.classify(set)
		return set
	}

	for _, ifi := range ifaces {
		if id, err := d.leaseIdentity(ifi.Name); err != nil {
			d.store.Warn("Could not read DHCP lease state for %s: %v", ifi.Name, err)
		} else if set.Add(id) {
			d.store.Info("Interface %s: leased DHCP server %s", ifi.Name, id)
		}

		ids, err := d.discoverIdentities(ctx, ifi, d.cfg.DHCPTimeout)
		if err != nil {
			d.store.Warn("DHCP discovery failed on %s: %v", ifi.Name, err)
			continue
		}
		for _, id := range ids {
			if set.Add(id) {
				d.store.Info("Interface %s: DHCP offer from server %s", ifi.Name, id)
			}
		}
	}

	d.classify(set)
	return set
}

func (d *ConflictDetector) classify(set *model.DHCPServerSet) {
	switch {
	case set.Size() > 1:
		d.store.Error("DHCP conflict: %d distinct servers detected: %s",
			set.Size(), strings.Join(set.Members(), ", "))
	case set.Size() == 1:
		d.store.Success("Single DHCP server detected: %s", set.Members()[0])
	default:
		d.store.Warn("No DHCP server detected; network may be statically configured")
	}
}
