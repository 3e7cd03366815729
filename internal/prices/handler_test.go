package prices

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIDs(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"single", "a", []string{"a"}},
		{"multiple", "a,b,c", []string{"a", "b", "c"}},
		{"entries trimmed", " a , b ", []string{"a", "b"}},
		{"empty entries dropped", "a,,b,", []string{"a", "b"}},
		{"only separators", ",, ,", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseIDs(tt.input)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
			} else {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

// fakeUpstream serves a canned aggregator response and records the
// requested path.
func fakeUpstream(t *testing.T, status int, body string) (*Upstream, *string) {
	t.Helper()
	var requested string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return NewUpstream(server.URL), &requested
}

func doRequest(handler *Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHandlerSuccess(t *testing.T) {
	upstream, requested := fakeUpstream(t, http.StatusOK,
		`{"coins":{"a":{"symbol":"AAA","price":1.5},"b":{"symbol":"BBB"}}}`)
	handler := NewHandler(upstream, nil)

	rec := doRequest(handler, "/api/prices?ids=a,b")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "/prices/current/a,b", *requested)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Prices, 2)
	assert.Equal(t, Quote{Symbol: "AAA", Price: 1.5}, resp.Prices["a"])
	// Price absent upstream defaults to zero
	assert.Equal(t, Quote{Symbol: "BBB", Price: 0}, resp.Prices["b"])
	assert.NotZero(t, resp.TS)
}

func TestHandlerIdentifierAbsentUpstream(t *testing.T) {
	upstream, _ := fakeUpstream(t, http.StatusOK, `{"coins":{}}`)
	handler := NewHandler(upstream, nil)

	rec := doRequest(handler, "/api/prices?ids=a,b")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	// Every requested identifier appears, zero-valued
	require.Len(t, resp.Prices, 2)
	assert.Equal(t, 0.0, resp.Prices["a"].Price)
	assert.Equal(t, 0.0, resp.Prices["b"].Price)
}

func TestHandlerDefaultIdentifiers(t *testing.T) {
	upstream, requested := fakeUpstream(t, http.StatusOK, `{"coins":{}}`)
	handler := NewHandler(upstream, nil)

	rec := doRequest(handler, "/api/prices")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Prices, len(DefaultIDs))
	for _, id := range DefaultIDs {
		_, ok := resp.Prices[id]
		assert.True(t, ok, "missing default id %s", id)
	}
	assert.Contains(t, *requested, DefaultIDs[0])
}

func TestHandlerBlankIDsFallBackToDefaults(t *testing.T) {
	upstream, _ := fakeUpstream(t, http.StatusOK, `{"coins":{}}`)
	handler := NewHandler(upstream, nil)

	rec := doRequest(handler, "/api/prices?ids=%2C+%2C")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Prices, len(DefaultIDs))
}

func TestHandlerCustomDefaults(t *testing.T) {
	upstream, _ := fakeUpstream(t, http.StatusOK, `{"coins":{}}`)
	handler := NewHandler(upstream, []string{"custom:one"})

	rec := doRequest(handler, "/api/prices")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Prices, 1)
	_, ok := resp.Prices["custom:one"]
	assert.True(t, ok)
}

func TestHandlerUpstreamErrorStatus(t *testing.T) {
	upstream, _ := fakeUpstream(t, http.StatusTooManyRequests, `rate limited`)
	handler := NewHandler(upstream, nil)

	rec := doRequest(handler, "/api/prices?ids=a")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["error"])
}

func TestHandlerUpstreamUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on
	handler := NewHandler(NewUpstream(server.URL), nil)

	rec := doRequest(handler, "/api/prices?ids=a")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["error"])
}

func TestHandlerUpstreamMalformedBody(t *testing.T) {
	upstream, _ := fakeUpstream(t, http.StatusOK, `{"coins": not-json`)
	handler := NewHandler(upstream, nil)

	rec := doRequest(handler, "/api/prices?ids=a")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestUpstreamStatusError(t *testing.T) {
	err := &UpstreamStatusError{Status: 503}
	assert.Contains(t, err.Error(), "503")
	assert.True(t, IsUpstreamStatus(err))
	assert.False(t, IsUpstreamStatus(assert.AnError))
}
