package diag

import (
	"context"
	"time"

	"github.com/user/netdiag/internal/model"
	"github.com/user/netdiag/internal/netinfo"
	"github.com/user/netdiag/internal/report"
	"github.com/user/netdiag/internal/util"
)

// ServiceChecker validates service reachability per protocol. UDP checks
// require a full protocol round-trip, not a bare port-open.
type ServiceChecker interface {
	TCP(ctx context.Context, host string, port int, timeout time.Duration) error
	NTP(ctx context.Context, host string, timeout time.Duration) error
	DNSQuery(ctx context.Context, server string, timeout time.Duration) error
}

// PortTester probes the curated service table. Internet-facing services
// are tested against a capped sample of public candidates; local-scope
// services are tested once against the gateway and never scored as
// failures.
type PortTester struct {
	cfg     *util.Config
	store   *report.Store
	checker ServiceChecker
	gateway func() (string, string, error)
}

// NewPortTester creates a port connectivity tester.
func NewPortTester(cfg *util.Config, store *report.Store, checker ServiceChecker) *PortTester {
	return &PortTester{
		cfg:     cfg,
		store:   store,
		checker: checker,
		gateway: netinfo.DefaultGateway,
	}
}

// TestPorts runs the whole service table and returns per-service results
// in table order.
func (t *PortTester) TestPorts(ctx context.Context, services []util.ServiceSpec) []model.PortTestResult {
	results := make([]model.PortTestResult, 0, len(services))
	for _, svc := range services {
		results = append(results, t.testService(ctx, svc))
	}
	return results
}

func (t *PortTester) testService(ctx context.Context, svc util.ServiceSpec) model.PortTestResult {
	result := model.PortTestResult{
		Service:    svc.Name,
		Port:       svc.Port,
		Protocol:   svc.Protocol,
		LocalScope: svc.LocalScope,
	}

	if svc.LocalScope {
		return t.testLocalService(ctx, svc, result)
	}

	if len(svc.Hosts) == 0 {
		result.Skipped = true
		t.store.Info("%s: no public candidates; requires local testing", svc.Name)
		return result
	}

	cap := t.cfg.PortHostCap
	if cap <= 0 {
		cap = 3
	}
	candidates := svc.Hosts
	if len(candidates) > cap {
		candidates = candidates[:cap]
	}

	for _, host := range candidates {
		open := t.check(ctx, svc, host)
		result.HostsTested = append(result.HostsTested, model.PortHostResult{Host: host, Open: open})
		if open {
			break
		}
	}

	if result.Reachable() {
		t.store.Success("%s reachable (port %d/%s, %d host(s) tested)",
			svc.Name, svc.Port, svc.Protocol, len(result.HostsTested))
	} else {
		t.store.Error("%s unreachable: all %d tested hosts failed (port %d/%s)",
			svc.Name, len(result.HostsTested), svc.Port, svc.Protocol)
	}
	return result
}

// testLocalService probes the gateway once. A closed local service is not
// necessarily a fault, so failure stays informational.
func (t *PortTester) testLocalService(ctx context.Context, svc util.ServiceSpec, result model.PortTestResult) model.PortTestResult {
	gw, _, err := t.gateway()
	if err != nil {
		result.Skipped = true
		t.store.Info("%s: no gateway available; requires local testing", svc.Name)
		return result
	}

	open := t.check(ctx, svc, gw)
	result.HostsTested = append(result.HostsTested, model.PortHostResult{Host: gw, Open: open})
	if open {
		t.store.Success("%s open on gateway %s (port %d/%s)", svc.Name, gw, svc.Port, svc.Protocol)
	} else {
		t.store.Info("%s not open on gateway %s (port %d/%s)", svc.Name, gw, svc.Port, svc.Protocol)
	}
	return result
}

func (t *PortTester) check(ctx context.Context, svc util.ServiceSpec, host string) bool {
	switch svc.Check {
	case "ntp":
		return t.checker.NTP(ctx, host, t.cfg.PortTimeout) == nil
	case "dns":
		return t.checker.DNSQuery(ctx, host, t.cfg.PortTimeout) == nil
	default:
		return t.checker.TCP(ctx, host, svc.Port, t.cfg.PortTimeout) == nil
	}
}
