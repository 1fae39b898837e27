package diag

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/netdiag/internal/model"
)

// fakeProber answers from a fixed liveness map, optionally after a delay.
type fakeProber struct {
	mu    sync.Mutex
	alive map[string]bool
	delay time.Duration
	hang  bool
}

func (f *fakeProber) Liveness(ctx context.Context, addr string, timeout time.Duration) (float64, bool) {
	if f.hang {
		<-ctx.Done()
		return 0, false
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return 0, false
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.alive[addr] {
		return 1.5, true
	}
	return 0, false
}

type fakeResolver struct {
	names map[string]string
}

func (f *fakeResolver) Reverse(ctx context.Context, addr string, timeout time.Duration) (string, error) {
	if name, ok := f.names[addr]; ok {
		return name, nil
	}
	return "", assert.AnError
}

func TestDiscoverSmallSubnet(t *testing.T) {
	prober := &fakeProber{alive: map[string]bool{
		"192.168.1.1": true,
		"192.168.1.5": true,
	}}
	store := newTestStore(t)
	s := NewScanner(testConfig(), store, prober, nil)

	records, err := s.Discover(context.Background(), "192.168.1.0/29", 5*time.Second, false)
	require.NoError(t, err)

	// /29 sweeps .1 through .6: network and broadcast are excluded.
	assert.Len(t, records, 6)

	reachable := 0
	for _, r := range records {
		if r.Reachable {
			reachable++
			assert.Greater(t, r.LatencyMs, 0.0)
		}
	}
	assert.Equal(t, 2, reachable)
	assert.Equal(t, 2, countSeverity(store.Entries(), model.SeveritySuccess))
}

func TestDiscoverNoDuplicateRecords(t *testing.T) {
	prober := &fakeProber{}
	store := newTestStore(t)
	s := NewScanner(testConfig(), store, prober, nil)

	records, err := s.Discover(context.Background(), "10.10.10.0/24", 10*time.Second, false)
	require.NoError(t, err)
	assert.Len(t, records, 254)

	seen := make(map[string]struct{})
	for _, r := range records {
		_, dup := seen[r.Address]
		assert.False(t, dup, "duplicate record for %s", r.Address)
		seen[r.Address] = struct{}{}
	}
}

func TestDiscoverTruncatesLargeSubnet(t *testing.T) {
	prober := &fakeProber{}
	store := newTestStore(t)
	s := NewScanner(testConfig(), store, prober, nil)

	records, err := s.Discover(context.Background(), "172.16.0.0/16", 10*time.Second, false)
	require.NoError(t, err)
	assert.Len(t, records, 254)

	for _, r := range records {
		assert.True(t, strings.HasPrefix(r.Address, "172.16.0."), "address %s outside first /24", r.Address)
	}

	warns := messagesOf(store.Entries(), model.SeverityWarn)
	require.NotEmpty(t, warns)
	assert.Contains(t, warns[0], "larger than /24")
}

func TestDiscoverAbandonsOnDeadline(t *testing.T) {
	prober := &fakeProber{hang: true}
	store := newTestStore(t)
	cfg := testConfig()
	cfg.DiscoveryConcurrency = 4
	s := NewScanner(cfg, store, prober, nil)

	start := time.Now()
	records, err := s.Discover(context.Background(), "192.168.50.0/28", 150*time.Millisecond, false)
	require.NoError(t, err)
	elapsed := time.Since(start)

	// The sweep returns promptly after the deadline instead of waiting
	// for the hung probes.
	assert.Less(t, elapsed, 2*time.Second)
	assert.Less(t, len(records), 14)

	warns := messagesOf(store.Entries(), model.SeverityWarn)
	require.NotEmpty(t, warns)
	assert.Contains(t, warns[0], "abandoned")
}

func TestDiscoverContextCancellation(t *testing.T) {
	prober := &fakeProber{hang: true}
	store := newTestStore(t)
	s := NewScanner(testConfig(), store, prober, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := s.Discover(ctx, "192.168.50.0/28", 30*time.Second, false)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestDiscoverDeepScanResolvesNames(t *testing.T) {
	prober := &fakeProber{alive: map[string]bool{
		"192.168.1.1": true,
		"192.168.1.2": true,
	}}
	resolver := &fakeResolver{names: map[string]string{
		"192.168.1.1": "router.lan",
	}}
	store := newTestStore(t)
	s := NewScanner(testConfig(), store, prober, resolver)

	records, err := s.Discover(context.Background(), "192.168.1.0/29", 5*time.Second, true)
	require.NoError(t, err)

	byAddr := make(map[string]model.HostRecord)
	for _, r := range records {
		byAddr[r.Address] = r
	}
	assert.Equal(t, "router.lan", byAddr["192.168.1.1"].ResolvedName)
	// Resolution failure on .2 is tolerated, the record survives.
	assert.Empty(t, byAddr["192.168.1.2"].ResolvedName)
	assert.True(t, byAddr["192.168.1.2"].Reachable)
}

func TestDiscoverInvalidSubnet(t *testing.T) {
	store := newTestStore(t)
	s := NewScanner(testConfig(), store, &fakeProber{}, nil)

	_, err := s.Discover(context.Background(), "not-a-subnet", time.Second, false)
	require.Error(t, err)

	_, err = s.Discover(context.Background(), "fe80::/64", time.Second, false)
	require.Error(t, err)
}
