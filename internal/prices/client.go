package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is the typed client for the proxy endpoint; the portfolio
// poller fetches through it.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a proxy client for baseURL, e.g.
// "http://localhost:8080".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: upstreamTimeout},
	}
}

// Fetch asks the proxy for quotes covering ids and returns them with the
// proxy's timestamp.
func (c *Client) Fetch(ctx context.Context, ids []string) (QuoteMap, time.Time, error) {
	endpoint := c.baseURL + "/api/prices"
	if len(ids) > 0 {
		endpoint += "?ids=" + url.QueryEscape(strings.Join(ids, ","))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("build proxy request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("proxy request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return nil, time.Time{}, fmt.Errorf("proxy returned status %d: %s", resp.StatusCode, apiErr.Error)
		}
		return nil, time.Time{}, fmt.Errorf("proxy returned status %d", resp.StatusCode)
	}

	var decoded Response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode proxy response: %w", err)
	}
	return decoded.Prices, time.Unix(decoded.TS, 0), nil
}
