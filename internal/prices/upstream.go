// Package prices fetches spot prices from an upstream aggregator and
// serves them through a small stateless proxy endpoint.
package prices

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultIDs is the identifier set served when a request names none.
var DefaultIDs = []string{
	"coingecko:bitcoin",
	"coingecko:ethereum",
	"coingecko:tether",
	"coingecko:usd-coin",
	"coingecko:solana",
}

const upstreamTimeout = 5 * time.Second

// Quote is the normalized per-identifier record: an optional display
// symbol and a spot price, zero when the upstream had none.
type Quote struct {
	Symbol string  `json:"symbol,omitempty"`
	Price  float64 `json:"price"`
}

// QuoteMap maps identifier strings to quotes. It is always replaced
// wholesale, never merged field by field.
type QuoteMap map[string]Quote

// UpstreamStatusError reports a non-success status from the aggregator,
// distinguished from transport and decode failures so the proxy can
// answer 502 instead of 500.
type UpstreamStatusError struct {
	Status int
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.Status)
}

// Upstream queries the aggregator. One request per Fetch call; no
// caching and no cross-caller batching.
type Upstream struct {
	baseURL    string
	httpClient *http.Client
}

// NewUpstream creates a client for the aggregator at baseURL, e.g.
// "https://coins.llama.fi". Requests are bounded by a 5s timeout.
func NewUpstream(baseURL string) *Upstream {
	return &Upstream{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: upstreamTimeout},
	}
}

// upstreamResponse is the aggregator's wire shape.
type upstreamResponse struct {
	Coins map[string]struct {
		Symbol string   `json:"symbol"`
		Price  *float64 `json:"price"`
	} `json:"coins"`
}

// Fetch returns one quote per requested identifier, in a single upstream
// round trip. Identifiers absent from the upstream response come back
// with a zero price.
func (u *Upstream) Fetch(ctx context.Context, ids []string) (QuoteMap, error) {
	joined := strings.Join(ids, ",")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		u.baseURL+"/prices/current/"+joined, nil)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamStatusError{Status: resp.StatusCode}
	}

	var decoded upstreamResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode upstream response: %w", err)
	}

	quotes := make(QuoteMap, len(ids))
	for _, id := range ids {
		quote := Quote{}
		if coin, ok := decoded.Coins[id]; ok {
			quote.Symbol = coin.Symbol
			if coin.Price != nil {
				quote.Price = *coin.Price
			}
		}
		quotes[id] = quote
	}
	return quotes, nil
}

// IsUpstreamStatus reports whether err carries a non-success upstream
// status.
func IsUpstreamStatus(err error) bool {
	var statusErr *UpstreamStatusError
	return errors.As(err, &statusErr)
}
