package clock

import (
	"context"
	"fmt"
	"time"

	"github.com/beevik/ntp"
)

// Drift is a single measurement of the host clock against a time server.
type Drift struct {
	Server  string
	Offset  time.Duration
	RTT     time.Duration
	Stratum uint8
	At      time.Time
}

// Probe measures the host clock offset against an NTP server. It only reads
// time from the server; correcting the host clock is left to the OS time
// service.
type Probe struct {
	server  string
	timeout time.Duration
	logger  Logger
	query   func(host string, opt ntp.QueryOptions) (*ntp.Response, error)
}

// Option configures a Probe.
type Option func(*Probe)

// WithServer sets the NTP server address.
func WithServer(server string) Option {
	return func(p *Probe) { p.server = server }
}

// WithTimeout sets the NTP query timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Probe) { p.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(p *Probe) { p.logger = l }
}

const (
	defaultServer  = "pool.ntp.org"
	defaultTimeout = 5 * time.Second
)

// NewProbe creates a Probe with the given options.
func NewProbe(opts ...Option) *Probe {
	p := &Probe{
		server:  defaultServer,
		timeout: defaultTimeout,
		logger:  nopLogger{},
		query:   ntp.QueryWithOptions,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Server returns the default server measured against.
func (p *Probe) Server() string { return p.server }

// Measure queries server (or the configured default when empty) once.
func (p *Probe) Measure(ctx context.Context, server string) (Drift, error) {
	if server == "" {
		server = p.server
	}
	if err := ctx.Err(); err != nil {
		return Drift{}, err
	}

	timeout := p.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	resp, err := p.query(server, ntp.QueryOptions{Timeout: timeout})
	if err != nil {
		p.logger.WarnW("ntp query failed", "server", server, "error", err)
		return Drift{}, fmt.Errorf("ntp query %s: %w", server, err)
	}
	if err := resp.Validate(); err != nil {
		p.logger.WarnW("ntp response rejected", "server", server, "error", err)
		return Drift{}, fmt.Errorf("ntp response %s: %w", server, err)
	}

	d := Drift{
		Server:  server,
		Offset:  resp.ClockOffset,
		RTT:     resp.RTT,
		Stratum: resp.Stratum,
		At:      time.Now(),
	}
	p.logger.InfoW("ntp drift measured", "server", server, "offset", d.Offset, "rtt", d.RTT)
	return d, nil
}
