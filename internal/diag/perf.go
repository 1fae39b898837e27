package diag

import (
	"context"
	"time"

	"github.com/user/netdiag/internal/model"
	"github.com/user/netdiag/internal/netinfo"
	"github.com/user/netdiag/internal/report"
	"github.com/user/netdiag/internal/util"
)

// LatencySampler issues a fixed-count sequence of latency probes against
// one target. The repetition is the sampling protocol, not a retry.
type LatencySampler interface {
	Sample(ctx context.Context, addr string, count int, perAttempt time.Duration) (rttMs []float64, attempts int)
}

// PerformanceAnalyzer measures latency, loss and jitter against the
// reference targets, aggregates per-target and cross-target statistics and
// classifies the overall rating.
type PerformanceAnalyzer struct {
	cfg     *util.Config
	store   *report.Store
	sampler LatencySampler
	gateway func() (string, string, error)
}

// NewPerformanceAnalyzer creates a performance analyzer.
func NewPerformanceAnalyzer(cfg *util.Config, store *report.Store, sampler LatencySampler) *PerformanceAnalyzer {
	return &PerformanceAnalyzer{
		cfg:     cfg,
		store:   store,
		sampler: sampler,
		gateway: netinfo.DefaultGateway,
	}
}

// AnalyzePerformance probes every reference target and derives the
// cross-target profile.
func (a *PerformanceAnalyzer) AnalyzePerformance(ctx context.Context, targets []string) model.PerformanceProfile {
	samples := make([]model.PerformanceSample, 0, len(targets))
	for _, target := range targets {
		rtts, attempts := a.sampler.Sample(ctx, target, a.cfg.LatencySamples, a.cfg.PingTimeout)
		sample := buildSample(target, rtts, attempts)
		a.reportSample(sample)
		samples = append(samples, sample)
	}

	profile := buildProfile(samples)
	if profile.MaxLatencyVariation > a.cfg.VariationWarnMs {
		a.store.Warn("Latency variation across targets is %.1f ms; possible routing inconsistency",
			profile.MaxLatencyVariation)
	}

	switch profile.Rating {
	case model.RatingPoor:
		a.store.Error("Overall performance rating: %s", profile.Rating)
	case model.RatingFair:
		a.store.Warn("Overall performance rating: %s", profile.Rating)
	default:
		a.store.Success("Overall performance rating: %s", profile.Rating)
	}
	return profile
}

// buildSample aggregates one target's round-trip samples. Statistics cover
// successful samples only; jitter is 0 with fewer than 2 successes.
func buildSample(target string, rttMs []float64, attempts int) model.PerformanceSample {
	s := model.PerformanceSample{
		Target:    target,
		Attempts:  attempts,
		Successes: len(rttMs),
	}
	if attempts > 0 {
		s.PacketLossPct = float64(attempts-len(rttMs)) / float64(attempts) * 100
	}
	if len(rttMs) > 0 {
		s.AvgLatency = util.Mean(rttMs)
		s.MinLatency, s.MaxLatency = util.MinMax(rttMs)
		s.Jitter = util.SampleStdDev(rttMs)
	}
	return s
}

func (a *PerformanceAnalyzer) reportSample(s model.PerformanceSample) {
	if s.Successes == 0 {
		a.store.Error("Target %s unreachable: all %d probes lost", s.Target, s.Attempts)
		return
	}

	a.store.Info("Target %s: avg=%.1fms min=%.1fms max=%.1fms loss=%.1f%% jitter=%.1fms",
		s.Target, s.AvgLatency, s.MinLatency, s.MaxLatency, s.PacketLossPct, s.Jitter)

	if s.AvgLatency > a.cfg.LatencyWarnMs {
		a.store.Warn("High latency to %s: %.1f ms", s.Target, s.AvgLatency)
	}
	if s.AvgLatency > a.cfg.LatencyCritMs {
		a.store.Error("Very high latency to %s: %.1f ms", s.Target, s.AvgLatency)
	}
	if s.Jitter > a.cfg.JitterWarnMs {
		a.store.Warn("High jitter to %s: %.1f ms", s.Target, s.Jitter)
	}
	if s.PacketLossPct > 0 {
		a.store.Warn("Packet loss to %s: %.1f%%", s.Target, s.PacketLossPct)
	}
	if s.PacketLossPct > a.cfg.LossCritPct {
		a.store.Error("Severe packet loss to %s: %.1f%%", s.Target, s.PacketLossPct)
	}
}

// buildProfile derives the cross-target aggregate. Latency and jitter
// means plus the variation cover targets that answered at least once; the
// loss mean covers every sample in the run.
func buildProfile(samples []model.PerformanceSample) model.PerformanceProfile {
	p := model.PerformanceProfile{Samples: samples}

	var lats, jits, losses []float64
	for _, s := range samples {
		losses = append(losses, s.PacketLossPct)
		if s.Successes > 0 {
			lats = append(lats, s.AvgLatency)
			jits = append(jits, s.Jitter)
		}
	}
	p.AvgPacketLossOverall = util.Mean(losses)
	p.AvgLatencyOverall = util.Mean(lats)
	p.AvgJitterOverall = util.Mean(jits)
	if len(lats) > 0 {
		min, max := util.MinMax(lats)
		p.MaxLatencyVariation = max - min
	}
	p.Rating = classifyRating(p.AvgLatencyOverall, p.AvgPacketLossOverall, p.AvgJitterOverall)
	return p
}

// classifyRating is the overall performance classifier. It is a total
// function over all non-negative (latency, loss, jitter) triples and is
// evaluated in strict priority order: the first matching rule wins.
func classifyRating(latencyMs, lossPct, jitterMs float64) model.Rating {
	switch {
	case lossPct > 5:
		return model.RatingPoor
	case latencyMs > 200:
		return model.RatingPoor
	case jitterMs > 20:
		return model.RatingPoor
	case latencyMs > 100 || lossPct > 1 || jitterMs > 10:
		return model.RatingFair
	case latencyMs > 50 || jitterMs > 5:
		return model.RatingGood
	default:
		return model.RatingExcellent
	}
}

// CheckGateway probes the local default gateway with tighter thresholds:
// it measures local-segment health, not WAN path health.
func (a *PerformanceAnalyzer) CheckGateway(ctx context.Context) {
	gw, _, err := a.gateway()
	if err != nil {
		a.store.Warn("Could not determine default gateway: %v", err)
		return
	}

	rtts, attempts := a.sampler.Sample(ctx, gw, a.cfg.LatencySamples, a.cfg.PingTimeout)
	sample := buildSample(gw, rtts, attempts)
	if sample.Successes == 0 {
		a.store.Error("Gateway %s unreachable: all %d probes lost", gw, attempts)
		return
	}

	switch {
	case sample.AvgLatency > a.cfg.GatewayCritMs:
		a.store.Error("Gateway %s latency is %.1f ms; local segment degraded", gw, sample.AvgLatency)
	case sample.AvgLatency > a.cfg.GatewayWarnMs:
		a.store.Warn("Gateway %s latency is %.1f ms", gw, sample.AvgLatency)
	default:
		a.store.Success("Gateway %s latency %.1f ms", gw, sample.AvgLatency)
	}
}
