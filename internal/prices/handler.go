package prices

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Response is the proxy's success payload.
type Response struct {
	Prices QuoteMap `json:"prices"`
	TS     int64    `json:"ts"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler serves GET /api/prices: it reshapes the upstream aggregator's
// response into one quote per requested identifier.
type Handler struct {
	upstream *Upstream
	defaults []string
	now      func() time.Time
}

// NewHandler creates the proxy handler. defaults is the identifier set
// used when the request carries no ids parameter; nil means DefaultIDs.
func NewHandler(upstream *Upstream, defaults []string) *Handler {
	if len(defaults) == 0 {
		defaults = DefaultIDs
	}
	return &Handler{
		upstream: upstream,
		defaults: defaults,
		now:      time.Now,
	}
}

// ParseIDs splits a comma-separated identifier list, trimming each entry
// and dropping empty ones.
func ParseIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
}

// ServeHTTP handles GET /api/prices?ids=a,b. Responses are marked
// no-store; quotes must not be cached downstream.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ids := ParseIDs(r.URL.Query().Get("ids"))
	if len(ids) == 0 {
		ids = h.defaults
	}

	quotes, err := h.upstream.Fetch(r.Context(), ids)
	if err != nil {
		status := http.StatusInternalServerError
		if IsUpstreamStatus(err) {
			status = http.StatusBadGateway
		}
		slog.Error("Price fetch failed", "ids", len(ids), "error", err)
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, Response{
		Prices: quotes,
		TS:     h.now().Unix(),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
