// Package probes provides the active network measurement primitives: ICMP
// echo, TCP/UDP connect, DNS resolution, interface counter sampling and
// the HTTP latency sampler.
package probes

import (
	"context"
	"errors"
	"net"
	"syscall"
	"time"

	"github.com/user/netdiag/internal/model"
)

// Probe is the shared contract of every probe variant. New kinds extend
// the set without touching the orchestration engine.
type Probe interface {
	Kind() model.ProbeKind
	Execute(ctx context.Context, target string, timeout time.Duration) (model.Measurement, error)
}

// Probe failure taxonomy. Probe-level failures are classified against
// these sentinels at the probe boundary and converted into report entries;
// they never abort sibling probes.
var (
	ErrProbeTimeout        = errors.New("probe timed out")
	ErrProbeRefused        = errors.New("connection refused")
	ErrResolutionFailure   = errors.New("name resolution failed")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrConfigIndeterminate = errors.New("configuration indeterminate")
)

// classifyNetErr maps a raw network error onto the probe failure taxonomy,
// keeping the original error in the chain.
func classifyNetErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return errors.Join(ErrProbeTimeout, err)
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET):
		return errors.Join(ErrProbeRefused, err)
	case errors.Is(err, syscall.EPERM), errors.Is(err, syscall.EACCES):
		return errors.Join(ErrPermissionDenied, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.Join(ErrProbeTimeout, err)
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return errors.Join(ErrResolutionFailure, err)
	}
	return err
}

// newMeasurement records one observation with the current timestamp.
func newMeasurement(kind model.ProbeKind, target string, value float64, err error) model.Measurement {
	m := model.Measurement{
		Source:    kind,
		Target:    target,
		Value:     value,
		Timestamp: time.Now(),
		Succeeded: err == nil,
	}
	if err != nil {
		m.Err = err.Error()
	}
	return m
}
