package probes

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"

	"github.com/user/netdiag/internal/model"
)

const icmpPayload = "netdiag-echo"

var icmpSeq uint32

// ICMPProbe measures round-trip latency with ICMP echo requests. It opens
// a raw ip4:icmp socket when privileged and falls back to an unprivileged
// udp4 datagram socket (Linux ping_group_range) otherwise.
type ICMPProbe struct {
	id int
}

var _ Probe = (*ICMPProbe)(nil)

// NewICMPProbe creates a new ICMP echo probe.
func NewICMPProbe() *ICMPProbe {
	return &ICMPProbe{id: os.Getpid() & 0xffff}
}

// Kind implements Probe.
func (p *ICMPProbe) Kind() model.ProbeKind { return model.ProbeICMP }

// Execute implements Probe: a single echo against target.
func (p *ICMPProbe) Execute(ctx context.Context, target string, timeout time.Duration) (model.Measurement, error) {
	rtt, err := p.Echo(ctx, target, timeout)
	return newMeasurement(model.ProbeICMP, target, float64(rtt.Microseconds())/1000.0, err), err
}

// Echo sends one echo request and waits for the matching reply.
func (p *ICMPProbe) Echo(ctx context.Context, addr string, timeout time.Duration) (time.Duration, error) {
	ip := net.ParseIP(addr)
	if ip == nil {
		ips, err := net.DefaultResolver.LookupIP(ctx, "ip4", addr)
		if err != nil {
			return 0, classifyNetErr(err)
		}
		if len(ips) == 0 {
			return 0, fmt.Errorf("%w: no addresses for %s", ErrResolutionFailure, addr)
		}
		ip = ips[0]
	}
	ip = ip.To4()
	if ip == nil {
		return 0, fmt.Errorf("%w: %s is not IPv4", ErrResolutionFailure, addr)
	}

	conn, dst, err := openEchoConn(ip)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	seq := int(atomic.AddUint32(&icmpSeq, 1) & 0xffff)
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{ID: p.id, Seq: seq, Data: []byte(icmpPayload)},
	}
	wire, err := msg.Marshal(nil)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal echo request: %w", err)
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return 0, err
	}

	start := time.Now()
	if _, err := conn.WriteTo(wire, dst); err != nil {
		return 0, classifyNetErr(err)
	}

	buf := make([]byte, 1500)
	for {
		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			return 0, classifyNetErr(err)
		}
		reply, err := icmp.ParseMessage(ipv4.ICMPTypeEchoReply.Protocol(), buf[:n])
		if err != nil {
			continue
		}
		if reply.Type != ipv4.ICMPTypeEchoReply {
			continue
		}
		echo, ok := reply.Body.(*icmp.Echo)
		if !ok || echo.Seq != seq {
			continue
		}
		if !peerMatches(peer, ip) {
			continue
		}
		return time.Since(start), nil
	}
}

// openEchoConn tries a privileged raw socket first, then the unprivileged
// datagram fallback. The destination address type depends on the socket.
func openEchoConn(ip net.IP) (*icmp.PacketConn, net.Addr, error) {
	if conn, err := icmp.ListenPacket("ip4:icmp", "0.0.0.0"); err == nil {
		return conn, &net.IPAddr{IP: ip}, nil
	}
	conn, err := icmp.ListenPacket("udp4", "0.0.0.0")
	if err != nil {
		return nil, nil, classifyNetErr(err)
	}
	return conn, &net.UDPAddr{IP: ip}, nil
}

func peerMatches(peer net.Addr, want net.IP) bool {
	switch a := peer.(type) {
	case *net.IPAddr:
		return a.IP.Equal(want)
	case *net.UDPAddr:
		return a.IP.Equal(want)
	}
	return false
}

// Liveness performs a single-attempt reachability check, returning the
// observed latency in milliseconds.
func (p *ICMPProbe) Liveness(ctx context.Context, addr string, timeout time.Duration) (float64, bool) {
	rtt, err := p.Echo(ctx, addr, timeout)
	if err != nil {
		return 0, false
	}
	return float64(rtt.Microseconds()) / 1000.0, true
}

// Sample issues count sequential echo requests and returns the round-trip
// times of the successful ones, in milliseconds, plus the attempt count.
// A failed attempt is recorded as loss, never retried.
func (p *ICMPProbe) Sample(ctx context.Context, addr string, count int, perAttempt time.Duration) (rttMs []float64, attempts int) {
	for i := 0; i < count; i++ {
		select {
		case <-ctx.Done():
			return rttMs, attempts
		default:
		}
		attempts++
		if rtt, err := p.Echo(ctx, addr, perAttempt); err == nil {
			rttMs = append(rttMs, float64(rtt.Microseconds())/1000.0)
		}
	}
	return rttMs, attempts
}
