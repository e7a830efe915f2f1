package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"uptimeworker/models"
)

const (
	UserAgent           = "UptimeMonitor/1.0"
	SecretHeader        = "X-Monitor-Secret"
	DefaultProbeTimeout = 10 * time.Second
)

// ProbeResult is the outcome of one availability check. Status is 0 when the
// request never produced a response; Err then carries the transport error.
// Aborted means the caller's context ended first, so nothing was learned
// about the target.
type ProbeResult struct {
	Status  int
	Latency time.Duration
	Err     string
	Aborted bool
}

func (r ProbeResult) Up() bool { return models.IsUp(r.Status) }

func (r ProbeResult) LatencyMs() int { return int(r.Latency.Milliseconds()) }

type Prober struct {
	client  *http.Client
	timeout time.Duration
}

func NewProber(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Prober{
		// timeout is applied per request through the context
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     60 * time.Second,
			},
		},
		timeout: timeout,
	}
}

// Probe issues a HEAD request to url. It never retries and never returns an
// error: transport failures and timeouts are reported as status 0.
func (p *Prober) Probe(parent context.Context, url, secret string) ProbeResult {
	if err := parent.Err(); err != nil {
		return ProbeResult{Aborted: true, Err: err.Error()}
	}
	ctx, cancel := context.WithTimeout(parent, p.timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return ProbeResult{Latency: time.Since(start), Err: fmt.Sprintf("invalid request: %v", err)}
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Cache-Control", "no-cache")
	if secret != "" {
		req.Header.Set(SecretHeader, secret)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if perr := parent.Err(); perr != nil {
			return ProbeResult{Latency: time.Since(start), Err: perr.Error(), Aborted: true}
		}
		return ProbeResult{Latency: time.Since(start), Err: err.Error()}
	}
	resp.Body.Close()

	return ProbeResult{Status: resp.StatusCode, Latency: time.Since(start)}
}

func (p *Prober) Close() {
	if t, ok := p.client.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
}
