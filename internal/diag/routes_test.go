package diag

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/netdiag/internal/model"
	"github.com/user/netdiag/internal/netinfo"
)

func newTestRouteAnalyzer(t *testing.T, routes []netinfo.Route) (*RouteAnalyzer, func() []model.LogEntry) {
	t.Helper()
	store := newTestStore(t)
	a := NewRouteAnalyzer(testConfig(), store)
	a.routes = func() ([]netinfo.Route, error) { return routes, nil }
	return a, store.Entries
}

func TestAnalyzeRoutesSingleDefault(t *testing.T) {
	a, entries := newTestRouteAnalyzer(t, []netinfo.Route{
		{Destination: "0.0.0.0/0", NextHop: "192.168.1.1", Interface: "eth0", Metric: 100},
		{Destination: "192.168.1.0/24", NextHop: "0.0.0.0", Interface: "eth0"},
	})

	rep := a.AnalyzeRoutes()
	assert.Len(t, rep.Defaults, 1)
	assert.Empty(t, rep.Statics)
	assert.Equal(t, 0, countSeverity(entries(), model.SeverityWarn))
}

func TestAnalyzeRoutesMultipleDefaults(t *testing.T) {
	a, entries := newTestRouteAnalyzer(t, []netinfo.Route{
		{Destination: "0.0.0.0/0", NextHop: "192.168.1.1", Interface: "eth0", Metric: 100},
		{Destination: "0.0.0.0/0", NextHop: "192.168.1.254", Interface: "wlan0", Metric: 600},
	})

	rep := a.AnalyzeRoutes()
	assert.Len(t, rep.Defaults, 2)

	warns := messagesOf(entries(), model.SeverityWarn)
	require.Len(t, warns, 1)
	assert.Contains(t, warns[0], "Multiple default routes detected (2)")
}

func TestAnalyzeRoutesNoDefault(t *testing.T) {
	a, entries := newTestRouteAnalyzer(t, []netinfo.Route{
		{Destination: "192.168.1.0/24", NextHop: "0.0.0.0", Interface: "eth0"},
	})

	a.AnalyzeRoutes()
	warns := messagesOf(entries(), model.SeverityWarn)
	require.Len(t, warns, 1)
	assert.Contains(t, warns[0], "No default route present")
}

func TestAnalyzeRoutesStaticCap(t *testing.T) {
	routes := []netinfo.Route{
		{Destination: "0.0.0.0/0", NextHop: "192.168.1.1", Interface: "eth0"},
	}
	for i := 0; i < 12; i++ {
		routes = append(routes, netinfo.Route{
			Destination: fmt.Sprintf("10.0.%d.0/24", i),
			NextHop:     "192.168.1.2",
			Interface:   "eth0",
		})
	}
	a, entries := newTestRouteAnalyzer(t, routes)

	rep := a.AnalyzeRoutes()
	assert.Len(t, rep.Statics, 12)

	infos := messagesOf(entries(), model.SeverityInfo)
	custom := 0
	overflow := ""
	for _, m := range infos {
		if strings.HasPrefix(m, "Custom route") {
			custom++
		}
		if strings.HasPrefix(m, "... and") {
			overflow = m
		}
	}
	assert.Equal(t, 10, custom)
	assert.Equal(t, "... and 2 more custom routes", overflow)
}

func TestPartitionRoutesExclusions(t *testing.T) {
	rep := partitionRoutes([]netinfo.Route{
		{Destination: "0.0.0.0/0", NextHop: "192.168.1.1", Interface: "eth0"},
		{Destination: "127.0.0.0/8", NextHop: "0.0.0.0", Interface: "lo"},
		{Destination: "224.0.0.0/4", NextHop: "0.0.0.0", Interface: "eth0"},
		{Destination: "10.8.0.0/24", NextHop: "10.8.0.1", Interface: "tun0"},
		{Destination: "192.168.1.0/24", NextHop: "0.0.0.0", Interface: "eth0"},
	})

	assert.Len(t, rep.Defaults, 1)
	assert.Len(t, rep.Excluded, 2)
	require.Len(t, rep.Statics, 1)
	assert.Equal(t, "tun0", rep.Statics[0].Interface)
}
