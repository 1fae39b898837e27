// Package diag implements the probe orchestration and anomaly-detection
// engine: host discovery, storm detection, DHCP conflict detection,
// performance analysis, port connectivity testing and routing analysis.
package diag

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/user/netdiag/internal/model"
	"github.com/user/netdiag/internal/report"
	"github.com/user/netdiag/internal/util"
)

// sweepCap bounds a sweep to a /24-equivalent range.
const sweepCap = 254

// LivenessProber performs a single-attempt reachability check.
type LivenessProber interface {
	Liveness(ctx context.Context, addr string, timeout time.Duration) (latencyMs float64, reachable bool)
}

// ReverseResolver resolves an address to a name for deep scans.
type ReverseResolver interface {
	Reverse(ctx context.Context, addr string, timeout time.Duration) (string, error)
}

// Scanner sweeps an address range with a bounded worker pool. It owns the
// concurrency and timeout contract: every address gets one short liveness
// probe, and probes still outstanding when the overall deadline elapses are
// abandoned, never awaited.
type Scanner struct {
	cfg      *util.Config
	store    *report.Store
	prober   LivenessProber
	resolver ReverseResolver
}

// NewScanner creates a new host discovery scanner.
func NewScanner(cfg *util.Config, store *report.Store, prober LivenessProber, resolver ReverseResolver) *Scanner {
	return &Scanner{cfg: cfg, store: store, prober: prober, resolver: resolver}
}

// Discover sweeps the subnet and returns one HostRecord per probed address
// that completed before the deadline, in completion order.
func (s *Scanner) Discover(ctx context.Context, subnet string, timeout time.Duration, deepScan bool) ([]model.HostRecord, error) {
	addrs, truncated, err := expandSweep(subnet)
	if err != nil {
		return nil, err
	}
	if truncated {
		s.store.Warn("Subnet %s is larger than /24; sweep truncated to %d addresses", subnet, len(addrs))
	}
	s.store.Info("Scanning %d addresses in %s (timeout %s)", len(addrs), subnet, timeout)

	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan string, len(addrs))
	// Buffered to capacity: an abandoned worker can always finish its send
	// and exit without leaking.
	results := make(chan model.HostRecord, len(addrs))

	concurrency := s.cfg.DiscoveryConcurrency
	if concurrency <= 0 || concurrency > len(addrs) {
		concurrency = len(addrs)
	}

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for addr := range jobs {
				select {
				case <-wctx.Done():
					return
				default:
				}
				results <- s.probeHost(wctx, addr)
			}
		}()
	}

	for _, addr := range addrs {
		jobs <- addr
	}
	close(jobs)

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	seen := make(map[string]struct{}, len(addrs))
	var records []model.HostRecord
	completed := 0

collect:
	for completed < len(addrs) {
		select {
		case rec := <-results:
			completed++
			if _, dup := seen[rec.Address]; dup {
				continue
			}
			seen[rec.Address] = struct{}{}
			if rec.Reachable {
				s.store.Success("Host %s is reachable (%.1f ms)", rec.Address, rec.LatencyMs)
			}
			records = append(records, rec)
		case <-deadline.C:
			cancel()
			s.store.Warn("Discovery deadline reached; abandoned %d outstanding probes", len(addrs)-completed)
			break collect
		case <-ctx.Done():
			cancel()
			break collect
		}
	}

	if deepScan {
		s.resolveNames(ctx, records)
	}
	return records, nil
}

func (s *Scanner) probeHost(ctx context.Context, addr string) model.HostRecord {
	latency, reachable := s.prober.Liveness(ctx, addr, s.cfg.PingTimeout)
	return model.HostRecord{
		Address:   addr,
		Reachable: reachable,
		LatencyMs: latency,
	}
}

// resolveNames performs one reverse lookup per reachable host, in order,
// tolerating per-host resolution failure.
func (s *Scanner) resolveNames(ctx context.Context, records []model.HostRecord) {
	if s.resolver == nil {
		return
	}
	for i := range records {
		if !records[i].Reachable {
			continue
		}
		name, err := s.resolver.Reverse(ctx, records[i].Address, s.cfg.PingTimeout)
		if err != nil {
			continue
		}
		records[i].ResolvedName = name
		s.store.Info("Host %s resolves to %s", records[i].Address, name)
	}
}

// expandSweep expands a CIDR into its sweepable host addresses. Subnets
// larger than /24 are truncated to the first /24 of the network.
func expandSweep(subnet string) (addrs []string, truncated bool, err error) {
	ip, ipnet, err := net.ParseCIDR(subnet)
	if err != nil {
		return nil, false, fmt.Errorf("invalid subnet %q: %w", subnet, err)
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return nil, false, fmt.Errorf("subnet %q is not IPv4", subnet)
	}

	ones, _ := ipnet.Mask.Size()
	if ones < 24 {
		base := ip4.Mask(ipnet.Mask).To4()
		for octet := 1; octet <= sweepCap; octet++ {
			addrs = append(addrs, fmt.Sprintf("%d.%d.%d.%d", base[0], base[1], base[2], octet))
		}
		return addrs, true, nil
	}

	for cur := ip4.Mask(ipnet.Mask); ipnet.Contains(cur); incIP(cur) {
		addrs = append(addrs, cur.String())
		if len(addrs) > sweepCap+2 {
			break
		}
	}
	// Drop network and broadcast addresses.
	if len(addrs) > 2 {
		addrs = addrs[1 : len(addrs)-1]
	}
	if len(addrs) > sweepCap {
		addrs = addrs[:sweepCap]
	}
	return addrs, false, nil
}

func incIP(ip net.IP) {
	for j := len(ip) - 1; j >= 0; j-- {
		ip[j]++
		if ip[j] > 0 {
			break
		}
	}
}
