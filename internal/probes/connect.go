package probes

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/user/netdiag/internal/model"
)

// ntpPacketSize is the fixed NTP wire size; a valid server reply echoes it.
const ntpPacketSize = 48

// ConnectProbe tests TCP and UDP service reachability. For UDP protocols
// that define an application-level reply (NTP, DNS) success means a full
// protocol round-trip, not a bare port-open.
type ConnectProbe struct {
	dialer net.Dialer
}

var _ Probe = (*ConnectProbe)(nil)

// NewConnectProbe creates a new connect probe.
func NewConnectProbe() *ConnectProbe {
	return &ConnectProbe{}
}

// Kind implements Probe.
func (p *ConnectProbe) Kind() model.ProbeKind { return model.ProbeTCP }

// Execute implements Probe. Target is "host:port"; value is the connect
// latency in milliseconds.
func (p *ConnectProbe) Execute(ctx context.Context, target string, timeout time.Duration) (model.Measurement, error) {
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		return newMeasurement(model.ProbeTCP, target, 0, err), err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return newMeasurement(model.ProbeTCP, target, 0, err), err
	}

	start := time.Now()
	err = p.TCP(ctx, host, port, timeout)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0
	return newMeasurement(model.ProbeTCP, target, elapsed, err), err
}

// TCP attempts a TCP connect to host:port within timeout.
func (p *ConnectProbe) TCP(ctx context.Context, host string, port int, timeout time.Duration) error {
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := p.dialer.DialContext(dctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return classifyNetErr(err)
	}
	return conn.Close()
}

// withDefaultPort appends port unless addr already carries one.
func withDefaultPort(addr, port string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, port)
}

// NTP performs a full SNTP round-trip: one client-mode request, success
// iff a matching-length reply arrives within timeout. Host defaults to
// port 123 unless it already carries one.
func (p *ConnectProbe) NTP(ctx context.Context, host string, timeout time.Duration) error {
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := p.dialer.DialContext(dctx, "udp", withDefaultPort(host, "123"))
	if err != nil {
		return classifyNetErr(err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}

	req := make([]byte, ntpPacketSize)
	req[0] = 0x1B // LI=0, VN=3, Mode=3 (client)
	if _, err := conn.Write(req); err != nil {
		return classifyNetErr(err)
	}

	reply := make([]byte, ntpPacketSize)
	n, err := conn.Read(reply)
	if err != nil {
		return classifyNetErr(err)
	}
	if n != ntpPacketSize {
		return fmt.Errorf("short ntp reply: %d bytes", n)
	}
	return nil
}

// DNSQuery validates a resolver by performing a real lookup through it.
func (p *ConnectProbe) DNSQuery(ctx context.Context, server string, timeout time.Duration) error {
	r := &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			d := net.Dialer{Timeout: timeout}
			return d.DialContext(ctx, "udp", withDefaultPort(server, "53"))
		},
	}

	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := r.LookupHost(dctx, "example.com"); err != nil {
		return classifyNetErr(err)
	}
	return nil
}
