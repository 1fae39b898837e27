package probes

import (
	"context"
	"net"
	"time"

	"github.com/user/netdiag/internal/model"
)

// DNSProbe resolves names and reverse-resolves addresses, optionally
// through a specific server.
type DNSProbe struct {
	resolver *net.Resolver
}

var _ Probe = (*DNSProbe)(nil)

// NewDNSProbe creates a DNS probe. An empty server uses the system
// resolver configuration.
func NewDNSProbe(server string) *DNSProbe {
	r := net.DefaultResolver
	if server != "" {
		addr := net.JoinHostPort(server, "53")
		r = &net.Resolver{
			PreferGo: true,
			Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
				d := net.Dialer{Timeout: 2 * time.Second}
				return d.DialContext(ctx, "udp", addr)
			},
		}
	}
	return &DNSProbe{resolver: r}
}

// Kind implements Probe.
func (p *DNSProbe) Kind() model.ProbeKind { return model.ProbeDNS }

// Execute implements Probe: resolve target to its first IPv4 address. The
// measurement value is the lookup latency in milliseconds.
func (p *DNSProbe) Execute(ctx context.Context, target string, timeout time.Duration) (model.Measurement, error) {
	start := time.Now()
	_, err := p.Resolve(ctx, target, timeout)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0
	return newMeasurement(model.ProbeDNS, target, elapsed, err), err
}

// Resolve returns the first IPv4 address of name.
func (p *DNSProbe) Resolve(ctx context.Context, name string, timeout time.Duration) (string, error) {
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ips, err := p.resolver.LookupIP(dctx, "ip4", name)
	if err != nil {
		return "", classifyNetErr(err)
	}
	if len(ips) == 0 {
		return "", ErrResolutionFailure
	}
	return ips[0].String(), nil
}

// Reverse returns the first PTR name of addr.
func (p *DNSProbe) Reverse(ctx context.Context, addr string, timeout time.Duration) (string, error) {
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	names, err := p.resolver.LookupAddr(dctx, addr)
	if err != nil {
		return "", classifyNetErr(err)
	}
	if len(names) == 0 {
		return "", ErrResolutionFailure
	}
	return names[0], nil
}
