package probes

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	psnet "github.com/shirou/gopsutil/v3/net"

	"github.com/user/netdiag/internal/model"
)

// InterfaceCounters is one receive-side counter snapshot for an interface.
type InterfaceCounters struct {
	MulticastIn uint64
	BroadcastIn uint64
	TotalIn     uint64
}

// CounterProbe samples per-interface packet counters. Totals come from the
// kernel IO counters; multicast and broadcast receive counts come from the
// per-device sysfs statistics. Not every driver exposes a broadcast
// counter, in which case it reads 0 and only absolute multicast and ratio
// classification remain meaningful.
type CounterProbe struct {
	sysfsRoot string
}

var _ Probe = (*CounterProbe)(nil)

// NewCounterProbe creates a new counter sampler.
func NewCounterProbe() *CounterProbe {
	return &CounterProbe{sysfsRoot: "/sys/class/net"}
}

// Kind implements Probe.
func (p *CounterProbe) Kind() model.ProbeKind { return model.ProbeCounters }

// Execute implements Probe: the measurement value is the total receive
// packet count of the target interface at sample time.
func (p *CounterProbe) Execute(ctx context.Context, target string, _ time.Duration) (model.Measurement, error) {
	snap, err := p.Snapshot()
	if err != nil {
		return newMeasurement(model.ProbeCounters, target, 0, err), err
	}
	c, ok := snap[target]
	if !ok {
		err = fmt.Errorf("no counters for interface %s", target)
		return newMeasurement(model.ProbeCounters, target, 0, err), err
	}
	return newMeasurement(model.ProbeCounters, target, float64(c.TotalIn), nil), nil
}

// Snapshot returns current counters for every interface.
func (p *CounterProbe) Snapshot() (map[string]InterfaceCounters, error) {
	stats, err := psnet.IOCounters(true)
	if err != nil {
		return nil, fmt.Errorf("failed to read interface counters: %w", err)
	}

	snap := make(map[string]InterfaceCounters, len(stats))
	for _, st := range stats {
		snap[st.Name] = InterfaceCounters{
			TotalIn:     st.PacketsRecv,
			MulticastIn: p.readStatistic(st.Name, "multicast"),
			BroadcastIn: p.readStatistic(st.Name, "rx_broadcast"),
		}
	}
	return snap, nil
}

func (p *CounterProbe) readStatistic(iface, name string) uint64 {
	raw, err := os.ReadFile(filepath.Join(p.sysfsRoot, iface, "statistics", name))
	if err != nil {
		return 0
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
