// Package rcon implements the out-of-band UDP administration protocol used
// by Quake 3 derived servers.
package rcon

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/brianly1003/warden/internal/clock"
	"github.com/brianly1003/warden/internal/domain"
	"github.com/brianly1003/warden/internal/sync"
)

// Transport defaults.
const (
	DefaultChunkTimeout  = 300 * time.Millisecond
	DefaultMaxPacketSize = 16384
)

var (
	// oobMarker prefixes every out-of-band datagram in both directions.
	oobMarker   = []byte{0xff, 0xff, 0xff, 0xff}
	printPrefix = []byte("print\n")
)

// Endpoint identifies the server and the secret used to address it.
type Endpoint struct {
	Address     string // host:port of the server
	BindAddress string // local address; empty for any
	Password    string
}

// Dialer opens a datagram connection from bind to address.
type Dialer func(bind, address string) (net.Conn, error)

// Stats counts transport activity since construction.
type Stats struct {
	Requests uint64 // Send calls
	Attempts uint64 // datagrams written
	Resends  uint64 // datagrams re-written after a silent receive window
	Timeouts uint64 // Send calls that hit their deadline before completing
}

// Transport sends RCON requests and collects replies. Requests are
// serialized: at most one is in flight, so replies never interleave.
type Transport struct {
	endpoint     Endpoint
	clock        clock.Clock
	dial         Dialer
	limiter      *RateLimiter
	chunkTimeout time.Duration
	maxPacket    int

	mu sync.Mutex

	requests atomic.Uint64
	attempts atomic.Uint64
	resends  atomic.Uint64
	timeouts atomic.Uint64
}

// Option is a functional option for configuring Transport.
type Option func(*Transport)

// WithClock sets the clock used for request deadlines.
func WithClock(c clock.Clock) Option {
	return func(t *Transport) {
		if c != nil {
			t.clock = c
		}
	}
}

// WithDialer replaces the UDP dialer.
func WithDialer(d Dialer) Option {
	return func(t *Transport) {
		if d != nil {
			t.dial = d
		}
	}
}

// WithRateLimiter throttles outgoing requests. Nil disables throttling.
func WithRateLimiter(l *RateLimiter) Option {
	return func(t *Transport) {
		t.limiter = l
	}
}

// WithChunkTimeout sets how long a single receive waits before the request
// is resent (when nothing has arrived) or the wait is repeated.
func WithChunkTimeout(d time.Duration) Option {
	return func(t *Transport) {
		if d > 0 {
			t.chunkTimeout = d
		}
	}
}

// WithMaxPacketSize sets the receive buffer size.
func WithMaxPacketSize(n int) Option {
	return func(t *Transport) {
		if n > 0 {
			t.maxPacket = n
		}
	}
}

// NewTransport creates a transport for endpoint.
func NewTransport(endpoint Endpoint, opts ...Option) *Transport {
	t := &Transport{
		endpoint:     endpoint,
		clock:        clock.Real(),
		dial:         dialUDP,
		chunkTimeout: DefaultChunkTimeout,
		maxPacket:    DefaultMaxPacketSize,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Open checks that the endpoint addresses resolve. The socket itself is
// opened per request.
func (t *Transport) Open() error {
	if t.endpoint.Address == "" {
		return domain.NewTransportError("rcon", "open",
			fmt.Errorf("%w: server address is empty", domain.ErrTransportUnavailable))
	}
	if _, err := net.ResolveUDPAddr("udp", t.endpoint.Address); err != nil {
		return domain.NewTransportError("rcon", "open",
			fmt.Errorf("%w: resolve %s: %v", domain.ErrTransportUnavailable, t.endpoint.Address, err))
	}
	if t.endpoint.BindAddress != "" {
		if _, err := net.ResolveUDPAddr("udp", withPort(t.endpoint.BindAddress)); err != nil {
			return domain.NewTransportError("rcon", "open",
				fmt.Errorf("%w: resolve bind %s: %v", domain.ErrTransportUnavailable, t.endpoint.BindAddress, err))
		}
	}
	return nil
}

// Endpoint returns the configured endpoint.
func (t *Transport) Endpoint() Endpoint {
	return t.endpoint
}

// Command sends "rcon <password> <command>" and returns the reply text with
// the trailing newline removed. An empty string means no reply arrived in
// time, not that the command failed.
func (t *Transport) Command(command string, policy CompletionPolicy, timeout time.Duration) string {
	reply, _ := t.Query(command, policy, timeout)
	return reply
}

// Query is Command that also reports whether policy was satisfied before
// the deadline.
func (t *Transport) Query(command string, policy CompletionPolicy, timeout time.Duration) (string, bool) {
	payload := "rcon " + t.endpoint.Password + " " + command
	reply, ok := t.exchange([]byte(payload), policy, timeout)
	return strings.TrimSuffix(string(reply), "\n"), ok
}

// Send transmits payload and accumulates reply datagrams until policy is
// satisfied or timeout elapses. A receive window that passes before any
// reply datagram resends the request. Send never fails: on deadline it returns
// whatever arrived, possibly nothing.
func (t *Transport) Send(payload []byte, policy CompletionPolicy, timeout time.Duration) []byte {
	reply, _ := t.exchange(payload, policy, timeout)
	return reply
}

func (t *Transport) exchange(payload []byte, policy CompletionPolicy, timeout time.Duration) ([]byte, bool) {
	if policy == nil {
		policy = EndsWithNewline
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.requests.Add(1)
	if t.limiter != nil {
		_ = t.limiter.Wait(context.Background())
	}

	request := make([]byte, 0, len(oobMarker)+len(payload))
	request = append(request, oobMarker...)
	request = append(request, payload...)

	deadline := t.clock.Now().Add(timeout)
	packet := make([]byte, t.maxPacket)
	var response bytes.Buffer
	var conn net.Conn
	defer func() {
		if conn != nil {
			_ = conn.Close()
		}
	}()

	pending := true // request must be (re)written
	first := true
	received := false
	for t.clock.Now().Before(deadline) {
		if conn == nil {
			c, err := t.dial(t.endpoint.BindAddress, t.endpoint.Address)
			if err != nil {
				log.Warn().Err(err).Str("address", t.endpoint.Address).Msg("rcon dial failed")
				t.clock.Sleep(t.chunkTimeout)
				continue
			}
			conn = c
			pending = true
		}

		if pending {
			if _, err := conn.Write(request); err != nil {
				log.Warn().Err(err).Str("address", t.endpoint.Address).Msg("rcon write failed")
				_ = conn.Close()
				conn = nil
				t.clock.Sleep(t.chunkTimeout)
				continue
			}
			t.attempts.Add(1)
			if !first {
				t.resends.Add(1)
			}
			first = false
			pending = false
		}

		_ = conn.SetReadDeadline(time.Now().Add(t.chunkTimeout))
		n, err := conn.Read(packet)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				if !received {
					pending = true
				}
				continue
			}
			log.Warn().Err(err).Str("address", t.endpoint.Address).Msg("rcon read failed")
			_ = conn.Close()
			conn = nil
			t.clock.Sleep(t.chunkTimeout)
			continue
		}

		received = true
		response.Write(stripHeader(packet[:n]))
		if policy(response.Bytes()) {
			return response.Bytes(), true
		}
	}

	t.timeouts.Add(1)
	log.Debug().
		Str("address", t.endpoint.Address).
		Dur("timeout", timeout).
		Int("received", response.Len()).
		Msg("rcon request deadline reached")
	return response.Bytes(), false
}

// Stats returns a snapshot of the transport counters.
func (t *Transport) Stats() Stats {
	return Stats{
		Requests: t.requests.Load(),
		Attempts: t.attempts.Load(),
		Resends:  t.resends.Load(),
		Timeouts: t.timeouts.Load(),
	}
}

// stripHeader removes the out-of-band marker and an optional "print\n"
// line from a reply datagram.
func stripHeader(datagram []byte) []byte {
	datagram = bytes.TrimPrefix(datagram, oobMarker)
	return bytes.TrimPrefix(datagram, printPrefix)
}

func dialUDP(bind, address string) (net.Conn, error) {
	raddr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, err
	}
	var laddr *net.UDPAddr
	if bind != "" {
		laddr, err = net.ResolveUDPAddr("udp", withPort(bind))
		if err != nil {
			return nil, err
		}
	}
	return net.DialUDP("udp", laddr, raddr)
}

// withPort appends an ephemeral port to a bare host.
func withPort(addr string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, "0")
}
