package probes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/user/netdiag/internal/model"
	"github.com/user/netdiag/internal/util"
)

// HTTPResult holds one timed HTTP request observation.
type HTTPResult struct {
	StatusCode int
	BodyLength int64
	ElapsedMs  float64
	Err        string
}

// Succeeded reports whether the request completed with a 2xx/3xx status.
func (r HTTPResult) Succeeded() bool {
	return r.Err == "" && r.StatusCode >= 200 && r.StatusCode < 400
}

// LatencyStats summarizes a batch of HTTP samples. It is returned to the
// caller, which owns it; there is no process-wide result cache.
type LatencyStats struct {
	Count     int
	Successes int
	MeanMs    float64
	MinMs     float64
	MaxMs     float64
	StdDevMs  float64
}

// HTTPProbe is the standalone HTTP latency sampler: issue a timed request,
// record duration and status.
type HTTPProbe struct {
	client *http.Client
}

var _ Probe = (*HTTPProbe)(nil)

// NewHTTPProbe creates an HTTP probe with the given request timeout.
func NewHTTPProbe(timeout time.Duration) *HTTPProbe {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProbe{client: &http.Client{Timeout: timeout}}
}

// Kind implements Probe.
func (p *HTTPProbe) Kind() model.ProbeKind { return model.ProbeHTTP }

// Execute implements Probe: GET target, value is the elapsed milliseconds.
func (p *HTTPProbe) Execute(ctx context.Context, target string, timeout time.Duration) (model.Measurement, error) {
	res, err := p.Get(ctx, target, nil)
	return newMeasurement(model.ProbeHTTP, target, res.ElapsedMs, err), err
}

// Get issues a timed GET and records status, body length and duration.
func (p *HTTPProbe) Get(ctx context.Context, url string, headers map[string]string) (HTTPResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return HTTPResult{Err: err.Error()}, err
	}
	req.Header.Set("User-Agent", "netdiag/1.0")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0
	if err != nil {
		err = classifyNetErr(err)
		return HTTPResult{ElapsedMs: elapsed, Err: err.Error()}, err
	}
	defer resp.Body.Close()

	n, _ := io.Copy(io.Discard, resp.Body)
	return HTTPResult{
		StatusCode: resp.StatusCode,
		BodyLength: n,
		ElapsedMs:  float64(time.Since(start).Microseconds()) / 1000.0,
	}, nil
}

// SampleLatency issues count sequential GETs and summarizes them.
func (p *HTTPProbe) SampleLatency(ctx context.Context, url string, count int) (LatencyStats, []HTTPResult) {
	if count <= 0 {
		count = 1
	}
	results := make([]HTTPResult, 0, count)
	for i := 0; i < count; i++ {
		select {
		case <-ctx.Done():
			return SummarizeLatency(results), results
		default:
		}
		res, _ := p.Get(ctx, url, nil)
		results = append(results, res)
	}
	return SummarizeLatency(results), results
}

// SummarizeLatency computes latency statistics over the successful samples.
func SummarizeLatency(results []HTTPResult) LatencyStats {
	stats := LatencyStats{Count: len(results)}
	var ok []float64
	for _, r := range results {
		if r.Succeeded() {
			ok = append(ok, r.ElapsedMs)
		}
	}
	stats.Successes = len(ok)
	if len(ok) == 0 {
		return stats
	}
	stats.MeanMs = util.Mean(ok)
	stats.MinMs, stats.MaxMs = util.MinMax(ok)
	stats.StdDevMs = util.SampleStdDev(ok)
	return stats
}

// String renders the stats for report lines.
func (s LatencyStats) String() string {
	return fmt.Sprintf("%d/%d ok, mean=%.1fms min=%.1fms max=%.1fms stddev=%.1fms",
		s.Successes, s.Count, s.MeanMs, s.MinMs, s.MaxMs, s.StdDevMs)
}
