// Package connectivity provides a quick reachability probe used to decide
// between the live pipeline and the offline fallback.
package connectivity

import (
	"context"
	"net"
	"net/http"
	"time"
)

const (
	// dnsProbeAddr is Google's public DNS resolver, chosen because a TCP
	// dial to it succeeds fast on almost any connected network.
	dnsProbeAddr = "8.8.8.8:53"

	httpProbeURL = "https://www.google.com"

	defaultTimeout = 3 * time.Second
)

// Prober reports whether the live pipeline should be attempted.
type Prober interface {
	Online(ctx context.Context) bool
}

// Probe performs a two-stage reachability check: a TCP dial to a public
// DNS resolver first, then an HTTP GET as fallback.
type Probe struct {
	Timeout time.Duration
	// DialAddr and HTTPURL override the probe targets, mainly for tests.
	DialAddr string
	HTTPURL  string
}

// NewProbe returns a Probe with default targets and timeout.
func NewProbe() *Probe {
	return &Probe{
		Timeout:  defaultTimeout,
		DialAddr: dnsProbeAddr,
		HTTPURL:  httpProbeURL,
	}
}

// Online reports whether the network is reachable. A failed probe is
// never an error: the caller just switches to the offline path.
func (p *Probe) Online(ctx context.Context) bool {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", p.DialAddr)
	if err == nil {
		conn.Close()
		return true
	}

	httpCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(httpCtx, "GET", p.HTTPURL, nil)
	if err != nil {
		return false
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// Static is a Prober with a fixed answer, used in tests and to honor
// a forced offline flag.
type Static bool

// Online implements Prober.
func (s Static) Online(context.Context) bool { return bool(s) }
