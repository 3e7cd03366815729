package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
)

const (
	unhealthyCooldown  = 5 * time.Minute
	healthCheckTimeout = 5 * time.Second
)

type endpoint struct {
	url         string
	client      *ethclient.Client
	healthy     bool
	lastErr     error
	lastErrTime time.Time
	mu          sync.RWMutex
}

// FailoverClient rotates across multiple RPC endpoints, skipping ones
// that recently failed until their cooldown expires.
type FailoverClient struct {
	endpoints []*endpoint
	current   int
	mu        sync.Mutex
}

// NewFailoverClient dials all endpoints and requires at least one of
// them to answer a ChainID probe.
func NewFailoverClient(urls []string) (*FailoverClient, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("at least one RPC URL is required")
	}

	fc := &FailoverClient{endpoints: make([]*endpoint, 0, len(urls))}

	healthyCount := 0
	for _, url := range urls {
		client, err := dialAndProbe(url)

		fc.endpoints = append(fc.endpoints, &endpoint{
			url:         url,
			client:      client,
			healthy:     err == nil,
			lastErr:     err,
			lastErrTime: time.Now(),
		})

		if err == nil {
			healthyCount++
			slog.Info("Connected to RPC endpoint", "url", url)
		} else {
			slog.Warn("RPC endpoint unavailable, will retry later", "url", url, "error", err)
		}
	}

	if healthyCount == 0 {
		return nil, fmt.Errorf("no healthy RPC endpoints available")
	}
	return fc, nil
}

func dialAndProbe(url string) (*ethclient.Client, error) {
	client, err := ethclient.Dial(url)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()
	if _, err := client.ChainID(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// Client returns a healthy client, reconnecting cooled-down endpoints
// on the way if needed.
func (fc *FailoverClient) Client() (*ethclient.Client, string, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	start := fc.current
	for i := 0; i < len(fc.endpoints); i++ {
		idx := (start + i) % len(fc.endpoints)
		ep := fc.endpoints[idx]

		ep.mu.RLock()
		healthy, client, url := ep.healthy, ep.client, ep.url
		cooledDown := time.Since(ep.lastErrTime) > unhealthyCooldown
		ep.mu.RUnlock()

		if healthy && client != nil {
			fc.current = idx
			return client, url, nil
		}

		if !healthy && cooledDown {
			if client, err := dialAndProbe(url); err == nil {
				ep.mu.Lock()
				if ep.client != nil {
					ep.client.Close()
				}
				ep.client = client
				ep.healthy = true
				ep.lastErr = nil
				ep.mu.Unlock()

				fc.current = idx
				slog.Info("Reconnected to RPC endpoint", "url", url)
				return client, url, nil
			}
		}
	}

	return nil, "", fmt.Errorf("no healthy RPC endpoints available")
}

// MarkUnhealthy takes an endpoint out of rotation until its cooldown
// expires and closes its connection.
func (fc *FailoverClient) MarkUnhealthy(url string, err error) {
	for _, ep := range fc.endpoints {
		if ep.url != url {
			continue
		}

		ep.mu.Lock()
		ep.healthy = false
		ep.lastErr = err
		ep.lastErrTime = time.Now()
		if ep.client != nil {
			ep.client.Close()
			ep.client = nil
		}
		ep.mu.Unlock()

		slog.Warn("Marked RPC endpoint as unhealthy",
			"url", url,
			"error", err,
			"retry_after", unhealthyCooldown)
		return
	}
}

// Health reports per-endpoint health, keyed by URL.
func (fc *FailoverClient) Health() map[string]bool {
	health := make(map[string]bool, len(fc.endpoints))
	for _, ep := range fc.endpoints {
		ep.mu.RLock()
		health[ep.url] = ep.healthy
		ep.mu.RUnlock()
	}
	return health
}

// Close closes all endpoint connections.
func (fc *FailoverClient) Close() {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	for _, ep := range fc.endpoints {
		ep.mu.Lock()
		if ep.client != nil {
			ep.client.Close()
			ep.client = nil
		}
		ep.mu.Unlock()
	}
}
