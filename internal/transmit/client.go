// Package transmit delivers sealed frames to a collector over HTTP.
package transmit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/banshee-data/emg.report/internal/emg"
	"github.com/banshee-data/emg.report/internal/httputil"
	"github.com/banshee-data/emg.report/internal/monitoring"
)

// Status classifies one delivery attempt.
type Status int

const (
	// StatusOK means the collector accepted the frame.
	StatusOK Status = iota
	// StatusRejected means the collector refused the frame; the link itself
	// still works.
	StatusRejected
	// StatusUnreachable means the exchange never completed.
	StatusUnreachable
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusRejected:
		return "rejected"
	case StatusUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// Outcome reports one delivery attempt. A rejected outcome carries the HTTP
// status code; an unreachable one carries the transport error.
type Outcome struct {
	Status Status
	Code   int
	Err    error
}

// Client pushes frames to a collector. Every attempt is a single bounded
// exchange; there are no retries and no queue, so a frame that fails here is
// gone and shows up downstream as a sequence gap.
type Client struct {
	HTTPClient httputil.HTTPClient
	BaseURL    string
	Timeout    time.Duration
}

// NewClient creates a client for the collector at baseURL. A nil httpClient
// gets a standard client bounded by the same timeout.
func NewClient(httpClient httputil.HTTPClient, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if httpClient == nil {
		httpClient = httputil.NewStandardClient(&http.Client{Timeout: timeout})
	}
	return &Client{
		HTTPClient: httpClient,
		BaseURL:    baseURL,
		Timeout:    timeout,
	}
}

// Send attempts delivery of one frame to the collector's ingest endpoint.
func (c *Client) Send(ctx context.Context, frame *emg.Frame) Outcome {
	data, err := json.Marshal(frame)
	if err != nil {
		return Outcome{Status: StatusRejected, Err: fmt.Errorf("marshal frame: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/frames", bytes.NewReader(data))
	if err != nil {
		return Outcome{Status: StatusUnreachable, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return Outcome{Status: StatusUnreachable, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Outcome{
			Status: StatusRejected,
			Code:   resp.StatusCode,
			Err:    fmt.Errorf("status %d: %s", resp.StatusCode, string(body)),
		}
	}
	return Outcome{Status: StatusOK, Code: resp.StatusCode}
}

// CheckHealth probes the collector's health endpoint and reports whether the
// link is usable.
func (c *Client) CheckHealth(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// SendFrame adapts Send to the scheduler's sender contract.
func (c *Client) SendFrame(ctx context.Context, frame *emg.Frame) (sent bool, linkUp bool) {
	outcome := c.Send(ctx, frame)
	switch outcome.Status {
	case StatusOK:
		monitoring.Debugf("transmit: frame %d acked", frame.FrameSequence)
		return true, true
	case StatusRejected:
		monitoring.Logf("transmit: frame %d rejected: %v", frame.FrameSequence, outcome.Err)
		return false, true
	default:
		monitoring.Logf("transmit: frame %d undeliverable: %v", frame.FrameSequence, outcome.Err)
		return false, false
	}
}

// Healthy adapts CheckHealth to the scheduler's sender contract.
func (c *Client) Healthy(ctx context.Context) bool {
	return c.CheckHealth(ctx)
}

var _ emg.FrameSender = (*Client)(nil)
