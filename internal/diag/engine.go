package diag

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/user/netdiag/internal/model"
	"github.com/user/netdiag/internal/netinfo"
	"github.com/user/netdiag/internal/probes"
	"github.com/user/netdiag/internal/report"
	"github.com/user/netdiag/internal/util"
)

// Engine orchestrates one diagnostic run. Host discovery runs first and
// owns the worker pool; the remaining probe families have no data
// dependency on each other and run as parallel pipelines writing to the
// shared append-only store. Probe failures are converted to report entries
// and never abort a run.
type Engine struct {
	cfg   *util.Config
	store *report.Store

	scanner *Scanner
	storm   *StormDetector
	dhcp    *ConflictDetector
	perf    *PerformanceAnalyzer
	ports   *PortTester
	routes  *RouteAnalyzer
}

// NewEngine wires the default probes into every detector.
func NewEngine(cfg *util.Config, store *report.Store) *Engine {
	icmp := probes.NewICMPProbe()
	dns := probes.NewDNSProbe("")
	connect := probes.NewConnectProbe()
	counters := probes.NewCounterProbe()

	return &Engine{
		cfg:     cfg,
		store:   store,
		scanner: NewScanner(cfg, store, icmp, dns),
		storm:   NewStormDetector(cfg, store, counters),
		dhcp:    NewConflictDetector(cfg, store),
		perf:    NewPerformanceAnalyzer(cfg, store, icmp),
		ports:   NewPortTester(cfg, store, connect),
		routes:  NewRouteAnalyzer(cfg, store),
	}
}

// Run executes the full battery and returns the aggregated summary. The
// run always completes and always produces a verdict.
func (e *Engine) Run(ctx context.Context) model.Summary {
	e.store.Info("Starting network diagnostics")

	e.runDiscovery(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		e.storm.DetectStorms(gctx, e.cfg.StormWindow)
		return nil
	})
	g.Go(func() error {
		e.dhcp.DetectConflicts(gctx)
		return nil
	})
	g.Go(func() error {
		e.perf.AnalyzePerformance(gctx, e.cfg.ReferenceTargets)
		e.perf.CheckGateway(gctx)
		return nil
	})
	g.Go(func() error {
		e.ports.TestPorts(gctx, e.cfg.Services)
		return nil
	})
	g.Go(func() error {
		e.routes.AnalyzeRoutes()
		return nil
	})
	_ = g.Wait()

	return report.Summarize(e.store)
}

// runDiscovery derives the sweep subnet and runs the scanner. An
// undeterminable subnet skips discovery with a WARN, not an ERROR.
func (e *Engine) runDiscovery(ctx context.Context) {
	subnet := e.cfg.Subnet
	if subnet == "" {
		derived, err := netinfo.LocalSubnet()
		if err != nil {
			e.store.Warn("Could not determine local subnet; skipping host discovery: %v", err)
			return
		}
		subnet = derived
	}

	records, err := e.scanner.Discover(ctx, subnet, e.cfg.DiscoveryTimeout, e.cfg.DeepScan)
	if err != nil {
		e.store.Warn("Host discovery skipped: %v", err)
		return
	}

	reachable := 0
	for _, r := range records {
		if r.Reachable {
			reachable++
		}
	}
	e.store.Info("Discovery complete: %d of %d probed hosts reachable", reachable, len(records))
}
