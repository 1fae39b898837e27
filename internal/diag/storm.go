package diag

import (
	"context"
	"time"

	"github.com/user/netdiag/internal/model"
	"github.com/user/netdiag/internal/netinfo"
	"github.com/user/netdiag/internal/probes"
	"github.com/user/netdiag/internal/report"
	"github.com/user/netdiag/internal/util"
)

// CounterSource provides per-interface receive counter snapshots.
type CounterSource interface {
	Snapshot() (map[string]probes.InterfaceCounters, error)
}

// StormDetector samples interface counters twice over a fixed window and
// classifies the deltas against the configured storm thresholds. The wait
// blocks only this detector; other probe families keep running.
type StormDetector struct {
	cfg        *util.Config
	store      *report.Store
	source     CounterSource
	interfaces func() ([]netinfo.Interface, error)
	wait       func(ctx context.Context, d time.Duration) bool
}

// NewStormDetector creates a storm detector over the given counter source.
func NewStormDetector(cfg *util.Config, store *report.Store, source CounterSource) *StormDetector {
	return &StormDetector{
		cfg:        cfg,
		store:      store,
		source:     source,
		interfaces: netinfo.ListUpInterfaces,
		wait:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// DetectStorms takes before/after snapshots separated by window and
// classifies each up interface.
func (d *StormDetector) DetectStorms(ctx context.Context, window time.Duration) []model.StormReading {
	first, err := d.source.Snapshot()
	if err != nil {
		d.store.Warn("Could not sample interface counters: %v", err)
		return nil
	}

	d.store.Info("Sampling interface counters over %s window", window)
	if !d.wait(ctx, window) {
		return nil
	}

	second, err := d.source.Snapshot()
	if err != nil {
		d.store.Warn("Could not resample interface counters: %v", err)
		return nil
	}

	ifaces, err := d.interfaces()
	if err != nil {
		d.store.Warn("Could not list interfaces for storm detection: %v", err)
		return nil
	}

	var readings []model.StormReading
	for _, ifi := range ifaces {
		before, okB := first[ifi.Name]
		after, okA := second[ifi.Name]
		if !okB || !okA {
			continue
		}
		reading := computeReading(ifi.Name, before, after)
		d.store.Info("Interface %s: +%d multicast, +%d broadcast, +%d total packets",
			reading.Interface, reading.MulticastDelta, reading.BroadcastDelta, reading.TotalDelta)
		d.classify(reading, window)
		readings = append(readings, reading)
	}
	return readings
}

// computeReading derives counter deltas for one interface. Percentages are
// only computed when the total delta is positive; a zero total skips ratio
// classification entirely.
func computeReading(name string, before, after probes.InterfaceCounters) model.StormReading {
	r := model.StormReading{
		Interface:      name,
		MulticastDelta: counterDelta(before.MulticastIn, after.MulticastIn),
		BroadcastDelta: counterDelta(before.BroadcastIn, after.BroadcastIn),
		TotalDelta:     counterDelta(before.TotalIn, after.TotalIn),
	}
	if r.TotalDelta > 0 {
		r.PctValid = true
		r.MulticastPct = float64(r.MulticastDelta) / float64(r.TotalDelta) * 100
		r.BroadcastPct = float64(r.BroadcastDelta) / float64(r.TotalDelta) * 100
	}
	return r
}

// counterDelta guards against counter resets between snapshots.
func counterDelta(before, after uint64) uint64 {
	if after < before {
		return 0
	}
	return after - before
}

// classify applies the absolute-delta and ratio thresholds. The two checks
// are independent: one interface can raise both an ERROR and a WARN.
func (d *StormDetector) classify(r model.StormReading, window time.Duration) {
	if r.MulticastDelta > d.cfg.StormMulticastDelta {
		d.store.Error("Multicast storm detected on %s: %d packets in %s",
			r.Interface, r.MulticastDelta, window)
	}
	if r.BroadcastDelta > d.cfg.StormBroadcastDelta {
		d.store.Error("Broadcast storm detected on %s: %d packets in %s",
			r.Interface, r.BroadcastDelta, window)
	}
	if !r.PctValid {
		return
	}
	if r.MulticastPct > d.cfg.StormMulticastPct || r.BroadcastPct > d.cfg.StormBroadcastPct {
		d.store.Warn("High multicast/broadcast ratio on %s: %.1f%% multicast, %.1f%% broadcast",
			r.Interface, r.MulticastPct, r.BroadcastPct)
	}
}
