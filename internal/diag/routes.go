package diag

import (
	"net"
	"strings"

	"github.com/user/netdiag/internal/netinfo"
	"github.com/user/netdiag/internal/report"
	"github.com/user/netdiag/internal/util"
)

// RouteReport partitions the IPv4 route table for anomaly analysis.
// Loopback and multicast routes are excluded from consideration.
type RouteReport struct {
	Defaults []netinfo.Route
	Statics  []netinfo.Route
	Excluded []netinfo.Route
}

// RouteAnalyzer classifies the route table and flags anomalies.
type RouteAnalyzer struct {
	cfg    *util.Config
	store  *report.Store
	routes func() ([]netinfo.Route, error)
}

// NewRouteAnalyzer creates a routing analyzer over the kernel route table.
func NewRouteAnalyzer(cfg *util.Config, store *report.Store) *RouteAnalyzer {
	return &RouteAnalyzer{cfg: cfg, store: store, routes: netinfo.ListRoutes}
}

// AnalyzeRoutes partitions the routes, warns on multiple default routes
// and reports custom/static routes up to the configured cap.
func (a *RouteAnalyzer) AnalyzeRoutes() RouteReport {
	routes, err := a.routes()
	if err != nil {
		a.store.Warn("Could not read route table: %v", err)
		return RouteReport{}
	}

	rep := partitionRoutes(routes)

	switch {
	case len(rep.Defaults) > 1:
		a.store.Warn("Multiple default routes detected (%d); possible conflicting gateways", len(rep.Defaults))
		for _, r := range rep.Defaults {
			a.store.Info("Default route via %s on %s (metric %d)", r.NextHop, r.Interface, r.Metric)
		}
	case len(rep.Defaults) == 1:
		r := rep.Defaults[0]
		a.store.Info("Default route via %s on %s (metric %d)", r.NextHop, r.Interface, r.Metric)
	default:
		a.store.Warn("No default route present")
	}

	cap := a.cfg.StaticRouteCap
	if cap <= 0 {
		cap = 10
	}
	shown := rep.Statics
	if len(shown) > cap {
		shown = shown[:cap]
	}
	for _, r := range shown {
		a.store.Info("Custom route %s via %s on %s", r.Destination, r.NextHop, r.Interface)
	}
	if len(rep.Statics) > cap {
		a.store.Info("... and %d more custom routes", len(rep.Statics)-cap)
	}
	return rep
}

// partitionRoutes splits routes into default, excluded (loopback and
// multicast) and custom/static (any other route with a real next hop).
func partitionRoutes(routes []netinfo.Route) RouteReport {
	var rep RouteReport
	for _, r := range routes {
		switch {
		case r.Destination == "0.0.0.0/0":
			rep.Defaults = append(rep.Defaults, r)
		case isExcludedRoute(r):
			rep.Excluded = append(rep.Excluded, r)
		case r.NextHop != "0.0.0.0":
			rep.Statics = append(rep.Statics, r)
		}
	}
	return rep
}

func isExcludedRoute(r netinfo.Route) bool {
	if r.Interface == "lo" || strings.HasPrefix(r.Destination, "127.") {
		return true
	}
	ip, _, err := net.ParseCIDR(r.Destination)
	if err != nil {
		return false
	}
	return ip.IsMulticast() || ip.IsLoopback()
}
