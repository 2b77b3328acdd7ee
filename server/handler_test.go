package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/mscno/yaml2props"
	"github.com/mscno/yaml2props/pkg/yaml"
)

func setupTestServer(t *testing.T, cfg Config, options ...HandlerOption) *Server {
	t.Helper()
	s := New(NewHandler(slog.Default(), options...), cfg, slog.Default())
	t.Cleanup(s.limiter.Stop)
	return s
}

func do(s *Server, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestConvert(t *testing.T) {
	s := setupTestServer(t, Config{})
	rec := do(s, http.MethodPost, "/v1/convert", "server:\n  port: 8080\n  host: localhost\n")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "server.port = 8080\nserver.host = localhost", rec.Body.String())
	assert.Equal(t, "2", rec.Header().Get("X-Property-Count"))
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestConvertErrors(t *testing.T) {
	evil := `"toString": !<tag:yaml.org,2002:js/function> "function (){very_evil_thing();}"`
	tests := []struct {
		name   string
		target string
		body   string
		status int
		kind   string
	}{
		{"empty body", "/v1/convert", "", http.StatusBadRequest, "empty_input"},
		{"malformed", "/v1/convert?filename=broken.yml", "{unclosed", http.StatusBadRequest, "parse"},
		{"unknown schema", "/v1/convert?schema=yaml11", "a: b", http.StatusBadRequest, "unknown_schema"},
		{"invalid safe", "/v1/convert?safe=maybe", "a: b", http.StatusBadRequest, "invalid_request"},
		{"unsafe tag", "/v1/convert", evil, http.StatusUnprocessableEntity, "schema_violation"},
		{"unsafe tag under json", "/v1/convert?schema=json&safe=false", evil, http.StatusUnprocessableEntity, "schema_violation"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := setupTestServer(t, Config{})
			rec := do(s, http.MethodPost, tc.target, tc.body)
			assert.Equal(t, tc.status, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tc.kind, resp.Kind)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestConvertFilenameInErrors(t *testing.T) {
	s := setupTestServer(t, Config{})
	rec := do(s, http.MethodPost, "/v1/convert?filename=app.yml", "")
	assert.Contains(t, decodeError(t, rec).Error, "file app.yml is empty")
}

func TestConvertUnsafe(t *testing.T) {
	s := setupTestServer(t, Config{})
	evil := `"toString": !<tag:yaml.org,2002:js/function> "function (){very_evil_thing();}"`

	rec := do(s, http.MethodPost, "/v1/convert?safe=false", evil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", rec.Body.String())
	assert.Equal(t, "0", rec.Header().Get("X-Property-Count"))
}

func TestConvertDefaults(t *testing.T) {
	s := setupTestServer(t, Config{}, WithDefaults(yaml2props.Options{Schema: "failsafe"}))

	rec := do(s, http.MethodPost, "/v1/convert", "flag: true\ncount: 010\n")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "flag = true\ncount = 010", rec.Body.String())

	rec = do(s, http.MethodPost, "/v1/convert?schema=default_safe", "count: 010\n")
	assert.Equal(t, "count = 8", rec.Body.String())
}

func TestConvertBodyLimit(t *testing.T) {
	s := setupTestServer(t, Config{}, WithMaxBodyBytes(16))
	rec := do(s, http.MethodPost, "/v1/convert", "key: "+strings.Repeat("x", 32))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "too_large", decodeError(t, rec).Kind)
}

type countingCache struct {
	mu     sync.Mutex
	stored map[string][]string
	hits   int
}

func (c *countingCache) Lookup(schema yaml.Schema, data []byte) ([]string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	lines, ok := c.stored[schema.String()+string(data)]
	if ok {
		c.hits++
	}
	return lines, ok, nil
}

func (c *countingCache) Store(schema yaml.Schema, data []byte, lines []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stored[schema.String()+string(data)] = lines
	return nil
}

func TestConvertCache(t *testing.T) {
	cache := &countingCache{stored: map[string][]string{}}
	s := setupTestServer(t, Config{}, WithCache(cache))

	for i := 0; i < 3; i++ {
		rec := do(s, http.MethodPost, "/v1/convert", "a: b")
		assert.Equal(t, "a = b", rec.Body.String())
	}
	assert.Equal(t, 2, cache.hits)
}

func TestSchemas(t *testing.T) {
	s := setupTestServer(t, Config{})
	rec := do(s, http.MethodGet, "/v1/schemas", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []schemaResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 5)
	assert.Equal(t, "default_safe", resp[0].Name)
	assert.True(t, resp[0].Safe)
	assert.Equal(t, "default_full", resp[1].Name)
	assert.False(t, resp[1].Safe)
	assert.Contains(t, resp[1].Tags, "!!js/function")
	assert.Equal(t, "failsafe", resp[4].Name)
	assert.ElementsMatch(t, []string{"!!str", "!!seq", "!!map"}, resp[4].Tags)
}

func TestHealthzSkipsRateLimit(t *testing.T) {
	s := setupTestServer(t, Config{RateLimit: rate.Every(time.Hour), RateBurst: 1})

	assert.Equal(t, http.StatusOK, do(s, http.MethodPost, "/v1/convert", "a: b").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(s, http.MethodPost, "/v1/convert", "a: b").Code)
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/healthz", "").Code)
	}
}
