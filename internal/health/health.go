// Package health aggregates dependency checks for the track daemon's
// /health endpoint.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// ChainProbe is the slice of the registry contract the checker needs.
type ChainProbe interface {
	Probe(ctx context.Context) error
	Endpoints() map[string]bool
}

// PollStatus is the slice of the portfolio the checker needs.
type PollStatus interface {
	LastPoll() time.Time
	LastPollErr() error
}

// UpstreamProbe checks that the price aggregator answers.
type UpstreamProbe interface {
	Probe(ctx context.Context) error
}

// Checker performs health checks on application dependencies. Any of
// its dependencies may be nil; the corresponding check is then skipped.
type Checker struct {
	chain        ChainProbe
	upstream     UpstreamProbe
	poll         PollStatus
	pollInterval time.Duration
}

// NewChecker creates a new health checker. pollInterval bounds how stale
// the last successful poll may be before the daemon counts as degraded.
func NewChecker(chain ChainProbe, upstream UpstreamProbe, poll PollStatus, pollInterval time.Duration) *Checker {
	return &Checker{
		chain:        chain,
		upstream:     upstream,
		poll:         poll,
		pollInterval: pollInterval,
	}
}

// CheckStatus represents the health status of a component
type CheckStatus string

const (
	StatusOK       CheckStatus = "ok"
	StatusDegraded CheckStatus = "degraded"
	StatusError    CheckStatus = "error"
)

// HealthResponse is the JSON response structure
type HealthResponse struct {
	Status    CheckStatus            `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckDetail `json:"checks"`
	Uptime    string                 `json:"uptime,omitempty"`
}

// CheckDetail contains details about a specific health check
type CheckDetail struct {
	Status  CheckStatus `json:"status"`
	Message string      `json:"message,omitempty"`
}

var startTime = time.Now()

// Check performs all health checks and returns the aggregated status
func (c *Checker) Check(ctx context.Context) HealthResponse {
	checks := make(map[string]CheckDetail)
	overall := StatusOK

	merge := func(name string, detail CheckDetail) {
		checks[name] = detail
		switch detail.Status {
		case StatusError:
			overall = StatusError
		case StatusDegraded:
			if overall == StatusOK {
				overall = StatusDegraded
			}
		}
	}

	if c.chain != nil {
		merge("rpc_endpoints", c.checkChain(ctx))
	}
	if c.upstream != nil {
		merge("price_upstream", c.checkUpstream(ctx))
	}
	if c.poll != nil {
		merge("price_poller", c.checkPoller())
	}

	return HealthResponse{
		Status:    overall,
		Timestamp: time.Now(),
		Checks:    checks,
		Uptime:    time.Since(startTime).Round(time.Second).String(),
	}
}

// checkChain verifies that at least one RPC endpoint answers.
func (c *Checker) checkChain(ctx context.Context) CheckDetail {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := c.chain.Probe(ctx); err != nil {
		slog.Error("Health check: RPC probe failed", "error", err)
		return CheckDetail{
			Status:  StatusError,
			Message: "no RPC endpoint responding: " + err.Error(),
		}
	}

	endpoints := c.chain.Endpoints()
	healthy := 0
	for _, ok := range endpoints {
		if ok {
			healthy++
		}
	}
	if healthy == len(endpoints) {
		return CheckDetail{Status: StatusOK, Message: "all RPC endpoints healthy"}
	}
	return CheckDetail{
		Status:  StatusDegraded,
		Message: fmt.Sprintf("%d/%d RPC endpoints healthy", healthy, len(endpoints)),
	}
}

// checkUpstream verifies the price aggregator is reachable.
func (c *Checker) checkUpstream(ctx context.Context) CheckDetail {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := c.upstream.Probe(ctx); err != nil {
		slog.Error("Health check: price upstream failed", "error", err)
		return CheckDetail{
			Status:  StatusError,
			Message: "price upstream unreachable: " + err.Error(),
		}
	}
	return CheckDetail{Status: StatusOK, Message: "price upstream reachable"}
}

// checkPoller verifies quotes are being refreshed on schedule.
func (c *Checker) checkPoller() CheckDetail {
	lastPoll := c.poll.LastPoll()

	// Never polled yet: probably still starting up
	if lastPoll.IsZero() {
		return CheckDetail{Status: StatusOK, Message: "poller not yet executed (startup)"}
	}

	if err := c.poll.LastPollErr(); err != nil {
		return CheckDetail{
			Status:  StatusDegraded,
			Message: "last poll failed: " + err.Error(),
		}
	}

	// Allow a 2x interval grace period
	sinceLast := time.Since(lastPoll)
	if sinceLast > c.pollInterval*2 {
		return CheckDetail{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("no successful poll in %s (expected every %s)", sinceLast.Round(time.Second), c.pollInterval),
		}
	}

	return CheckDetail{
		Status:  StatusOK,
		Message: fmt.Sprintf("last polled %s ago", sinceLast.Round(time.Second)),
	}
}

// Handler returns an http.HandlerFunc for the health endpoint
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := c.Check(r.Context())

		statusCode := http.StatusOK
		if status.Status == StatusError {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)

		if err := json.NewEncoder(w).Encode(status); err != nil {
			slog.Error("Failed to encode health response", "error", err)
		}
	}
}
