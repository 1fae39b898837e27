package diag

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/netdiag/internal/model"
	"github.com/user/netdiag/internal/netinfo"
)

func newTestConflictDetector(t *testing.T, lease LeaseIdentityFunc, discover DiscoverIdentityFunc, ifaces ...string) (*ConflictDetector, func() []model.LogEntry) {
	t.Helper()
	store := newTestStore(t)
	d := NewConflictDetector(testConfig(), store)
	d.interfaces = func() ([]netinfo.Interface, error) {
		out := make([]netinfo.Interface, 0, len(ifaces))
		for _, name := range ifaces {
			out = append(out, netinfo.Interface{Name: name})
		}
		return out, nil
	}
	d.leaseIdentity = lease
	d.discoverIdentities = discover
	return d, store.Entries
}

func TestDetectConflictsSingleServerBothMethods(t *testing.T) {
	lease := func(iface string) (string, error) { return "192.168.1.1", nil }
	discover := func(ctx context.Context, ifi netinfo.Interface, timeout time.Duration) ([]string, error) {
		return []string{"192.168.1.1"}, nil
	}
	d, entries := newTestConflictDetector(t, lease, discover, "eth0", "wlan0")

	set := d.DetectConflicts(context.Background())
	assert.Equal(t, 1, set.Size())
	assert.Equal(t, []string{"192.168.1.1"}, set.Members())
	assert.Equal(t, 0, countSeverity(entries(), model.SeverityError))
	assert.Equal(t, 1, countSeverity(entries(), model.SeveritySuccess))
}

func TestDetectConflictsTwoServers(t *testing.T) {
	lease := func(iface string) (string, error) { return "192.168.1.1", nil }
	discover := func(ctx context.Context, ifi netinfo.Interface, timeout time.Duration) ([]string, error) {
		return []string{"192.168.1.50", "192.168.1.1"}, nil
	}
	d, entries := newTestConflictDetector(t, lease, discover, "eth0")

	set := d.DetectConflicts(context.Background())
	assert.Equal(t, 2, set.Size())

	msgs := messagesOf(entries(), model.SeverityError)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "DHCP conflict: 2 distinct servers")
	assert.Contains(t, msgs[0], "192.168.1.1")
	assert.Contains(t, msgs[0], "192.168.1.50")
}

func TestDetectConflictsMethodOrderInvariant(t *testing.T) {
	// Identity set must not depend on which method reports an identity
	// first: both orderings converge on the same membership.
	leaseA := func(iface string) (string, error) { return "10.0.0.1", nil }
	discoverA := func(ctx context.Context, ifi netinfo.Interface, timeout time.Duration) ([]string, error) {
		return []string{"10.0.0.2"}, nil
	}
	leaseB := func(iface string) (string, error) { return "10.0.0.2", nil }
	discoverB := func(ctx context.Context, ifi netinfo.Interface, timeout time.Duration) ([]string, error) {
		return []string{"10.0.0.1"}, nil
	}

	dA, _ := newTestConflictDetector(t, leaseA, discoverA, "eth0")
	dB, _ := newTestConflictDetector(t, leaseB, discoverB, "eth0")

	setA := dA.DetectConflicts(context.Background())
	setB := dB.DetectConflicts(context.Background())

	assert.Equal(t, setA.Size(), setB.Size())
	assert.ElementsMatch(t, setA.Members(), setB.Members())
}

func TestDetectConflictsNoServers(t *testing.T) {
	lease := func(iface string) (string, error) { return "", errors.New("no lease files found") }
	discover := func(ctx context.Context, ifi netinfo.Interface, timeout time.Duration) ([]string, error) {
		return nil, nil
	}
	d, entries := newTestConflictDetector(t, lease, discover, "eth0")

	set := d.DetectConflicts(context.Background())
	assert.Equal(t, 0, set.Size())

	warns := messagesOf(entries(), model.SeverityWarn)
	assert.Contains(t, warns[len(warns)-1], "No DHCP server detected")
}

func TestDetectConflictsInterfaceFailureContinues(t *testing.T) {
	lease := func(iface string) (string, error) { return "", errors.New("no lease") }
	discover := func(ctx context.Context, ifi netinfo.Interface, timeout time.Duration) ([]string, error) {
		if ifi.Name == "eth0" {
			return nil, errors.New("socket: permission denied")
		}
		return []string{"192.168.1.1"}, nil
	}
	d, entries := newTestConflictDetector(t, lease, discover, "eth0", "wlan0")

	set := d.DetectConflicts(context.Background())
	// eth0's failure is logged but wlan0 still contributes its server.
	assert.Equal(t, 1, set.Size())
	assert.Equal(t, 0, countSeverity(entries(), model.SeverityError))
	assert.GreaterOrEqual(t, countSeverity(entries(), model.SeverityWarn), 1)
}

func TestDHCPServerSetDedup(t *testing.T) {
	set := model.NewDHCPServerSet()
	assert.True(t, set.Add("192.168.1.1"))
	assert.False(t, set.Add("192.168.1.1"))
	assert.True(t, set.Add("192.168.1.2"))
	assert.False(t, set.Add(""))
	assert.Equal(t, 2, set.Size())
	assert.Equal(t, []string{"192.168.1.1", "192.168.1.2"}, set.Members())
	assert.True(t, set.Contains("192.168.1.2"))
	assert.False(t, set.Contains("192.168.1.3"))
}
