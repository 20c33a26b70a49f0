package server

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"required-backend/internal/auth"
	"required-backend/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orders.yaml"), []byte("requires: coupon -> total > 0\n"), 0o644))

	hash, err := auth.HashPassword("pw")
	require.NoError(t, err)
	return &config.Config{
		Server:  config.ServerConfig{Port: 8080},
		Rules:   config.RulesConfig{Dir: dir},
		Auth:    config.AuthConfig{JWTSecret: "s", AdminUser: "admin", AdminPasswordHash: hash},
		Metrics: config.MetricsConfig{Enabled: true},
	}
}

func request(t *testing.T, s *Server, method, path, body string, header ...string) (*http.Response, string) {
	t.Helper()
	req, _ := http.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := s.App.Test(req, -1)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	return resp, string(raw)
}

func TestServerWiring(t *testing.T) {
	s, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)
	assert.Equal(t, 1, s.Registry.Len())

	resp, body := request(t, s, "GET", "/health", "")
	assert.Equal(t, 200, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","rulesets":1}`, body)

	resp, _ = request(t, s, "POST", "/api/validate/orders", `{"coupon":"X","total":0}`, "X-Trace-ID", "trace-1")
	assert.Equal(t, 422, resp.StatusCode)
	assert.Equal(t, "trace-1", resp.Header.Get("X-Trace-ID"))

	resp, body = request(t, s, "POST", "/api/validate/orders", `{"coupon":"X","total":3}`, "X-Trace-ID", "trace-2")
	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, body, `"request_id":"trace-2"`)

	resp, body = request(t, s, "GET", "/metrics", "")
	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, body, `required_spans_total{action="requires.validate",component="requires",ruleset="orders",source="engine",status="invalid"} 1`)

	resp, _ = request(t, s, "GET", "/api/_admin/rulesets", "")
	assert.Equal(t, 401, resp.StatusCode)
}

func TestServerAdminLogin(t *testing.T) {
	s, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)

	resp, body := request(t, s, "POST", "/api/auth/login", `{"username":"admin","password":"pw"}`)
	require.Equal(t, 200, resp.StatusCode, body)

	start := strings.Index(body, `"access_token":"`) + len(`"access_token":"`)
	token := body[start : start+strings.Index(body[start:], `"`)]

	resp, body = request(t, s, "GET", "/api/_admin/rulesets/orders/graph", "", "Authorization", "Bearer "+token)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, body, "total where total > 0")
}

func TestServerMissingRulesDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.Rules.Dir = filepath.Join(t.TempDir(), "missing")
	cfg.Metrics.Enabled = false

	s, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Registry.Len())

	resp, _ := request(t, s, "GET", "/metrics", "")
	assert.Equal(t, 404, resp.StatusCode)
}
