package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAuthMiddleware_GuardsAPIRoutes(t *testing.T) {
	cfg := testConfig()
	cfg.APIKey = "sekrit"
	srv := newTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/nope", nil)
	rec := do(srv, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no header: status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "missing authorization") {
		t.Errorf("no header body = %q", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/sessions/nope", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = do(srv, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong key: status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid api key") {
		t.Errorf("wrong key body = %q", rec.Body.String())
	}

	// Correct key clears auth; 404 means the handler ran.
	req = httptest.NewRequest(http.MethodGet, "/api/sessions/nope", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	if rec := do(srv, req); rec.Code != http.StatusNotFound {
		t.Errorf("correct key: status = %d, want 404", rec.Code)
	}
}

func TestAuthMiddleware_HealthStaysPublic(t *testing.T) {
	cfg := testConfig()
	cfg.APIKey = "sekrit"
	srv := newTestServer(t, cfg)

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200 without credentials", rec.Code)
	}
}

func TestAuthMiddleware_DisabledWithoutKey(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/stats/backend", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with auth disabled", rec.Code)
	}
}
