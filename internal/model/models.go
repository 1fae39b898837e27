// Package model defines core data structures for netdiag.
package model

import "time"

// Severity classifies a log entry in the diagnostic report.
type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeveritySuccess Severity = "SUCCESS"
	SeverityWarn    Severity = "WARN"
	SeverityError   Severity = "ERROR"
)

// ProbeKind identifies the probe variant that produced a measurement.
type ProbeKind string

const (
	ProbeICMP     ProbeKind = "icmp"
	ProbeTCP      ProbeKind = "tcp"
	ProbeUDP      ProbeKind = "udp"
	ProbeDNS      ProbeKind = "dns"
	ProbeCounters ProbeKind = "counters"
	ProbeHTTP     ProbeKind = "http"
)

// Measurement is a single probe observation. Immutable once recorded.
type Measurement struct {
	Source    ProbeKind `json:"source"`
	Target    string    `json:"target"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	Succeeded bool      `json:"succeeded"`
	Err       string    `json:"err,omitempty"`
}

// LogEntry is one timestamped, leveled line in the diagnostic report.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
}

// HostRecord represents one address probed during host discovery.
type HostRecord struct {
	Address      string  `json:"address"`
	Reachable    bool    `json:"reachable"`
	ResolvedName string  `json:"resolved_name,omitempty"`
	LatencyMs    float64 `json:"latency_ms"`
}

// DHCPServerSet accumulates distinct DHCP server identities across
// interfaces and detection methods. Membership is checked before every
// insert so no method can double-count the same identity.
type DHCPServerSet struct {
	members []string
	index   map[string]struct{}
}

// NewDHCPServerSet creates an empty server-identity set.
func NewDHCPServerSet() *DHCPServerSet {
	return &DHCPServerSet{index: make(map[string]struct{})}
}

// Add inserts an identity if not already present. Returns true when the
// identity was newly added.
func (s *DHCPServerSet) Add(identity string) bool {
	if identity == "" {
		return false
	}
	if _, ok := s.index[identity]; ok {
		return false
	}
	s.index[identity] = struct{}{}
	s.members = append(s.members, identity)
	return true
}

// Contains reports whether the identity is already in the set.
func (s *DHCPServerSet) Contains(identity string) bool {
	_, ok := s.index[identity]
	return ok
}

// Size returns the number of distinct identities.
func (s *DHCPServerSet) Size() int { return len(s.members) }

// Members returns the identities in insertion order.
func (s *DHCPServerSet) Members() []string {
	out := make([]string, len(s.members))
	copy(out, s.members)
	return out
}

// PerformanceSample holds per-target latency statistics.
type PerformanceSample struct {
	Target        string  `json:"target"`
	AvgLatency    float64 `json:"avg_latency_ms"`
	MinLatency    float64 `json:"min_latency_ms"`
	MaxLatency    float64 `json:"max_latency_ms"`
	PacketLossPct float64 `json:"packet_loss_pct"`
	Jitter        float64 `json:"jitter_ms"`
	Attempts      int     `json:"attempts"`
	Successes     int     `json:"successes"`
}

// Rating is the overall performance classification.
type Rating string

const (
	RatingPoor      Rating = "Poor"
	RatingFair      Rating = "Fair"
	RatingGood      Rating = "Good"
	RatingExcellent Rating = "Excellent"
)

// PerformanceProfile aggregates samples across all reference targets.
// MaxLatencyVariation is max(AvgLatency) - min(AvgLatency) over samples.
type PerformanceProfile struct {
	Samples              []PerformanceSample `json:"samples"`
	AvgLatencyOverall    float64             `json:"avg_latency_overall"`
	AvgPacketLossOverall float64             `json:"avg_packet_loss_overall"`
	AvgJitterOverall     float64             `json:"avg_jitter_overall"`
	MaxLatencyVariation  float64             `json:"max_latency_variation"`
	Rating               Rating              `json:"rating"`
}

// PortHostResult is one (host, open) observation for a service.
type PortHostResult struct {
	Host string `json:"host"`
	Open bool   `json:"open"`
}

// PortTestResult holds per-service reachability. HostsTested is capped at
// the configured per-service sample size.
type PortTestResult struct {
	Service     string           `json:"service"`
	Port        int              `json:"port"`
	Protocol    string           `json:"protocol"`
	HostsTested []PortHostResult `json:"hosts_tested"`
	LocalScope  bool             `json:"local_scope"`
	Skipped     bool             `json:"skipped"`
}

// Reachable reports whether at least one tested host succeeded.
func (r PortTestResult) Reachable() bool {
	for _, h := range r.HostsTested {
		if h.Open {
			return true
		}
	}
	return false
}

// StormReading holds counter deltas for one interface over the sampling
// window. Percentages are only valid when TotalDelta > 0.
type StormReading struct {
	Interface      string  `json:"interface"`
	MulticastDelta uint64  `json:"multicast_delta"`
	BroadcastDelta uint64  `json:"broadcast_delta"`
	TotalDelta     uint64  `json:"total_delta"`
	MulticastPct   float64 `json:"multicast_pct"`
	BroadcastPct   float64 `json:"broadcast_pct"`
	PctValid       bool    `json:"pct_valid"`
}

// Verdict is the final run-level classification derived from error and
// warning counts in the report.
type Verdict string

const (
	VerdictClean          Verdict = "Clean"
	VerdictMinorIssues    Verdict = "MinorIssues"
	VerdictCriticalIssues Verdict = "CriticalIssues"
)

// Summary is the aggregated outcome of one diagnostic run.
type Summary struct {
	Errors   int     `json:"errors"`
	Warnings int     `json:"warnings"`
	Verdict  Verdict `json:"verdict"`
}

// Run represents one persisted diagnostic run.
type Run struct {
	ID         int64     `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Verdict    Verdict   `json:"verdict"`
	Errors     int       `json:"errors"`
	Warnings   int       `json:"warnings"`
}
