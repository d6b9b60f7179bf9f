package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type stubLogins struct{}

func (stubLogins) LoginExternal(context.Context, string, string) (TokenPair, error) {
	return TokenPair{AccessToken: "a", RefreshToken: "r"}, nil
}

func TestStateStoreConsumesOnce(t *testing.T) {
	s := newStateStore()
	s.put("fresh", time.Now().Add(time.Minute))
	s.put("stale", time.Now().Add(-time.Minute))

	if !s.consume("fresh") {
		t.Fatalf("expected fresh state accepted")
	}
	if s.consume("fresh") {
		t.Fatalf("state must be single use")
	}
	if s.consume("stale") {
		t.Fatalf("expired state must be rejected")
	}
}

func TestAppendTokens(t *testing.T) {
	got, err := appendTokens("https://ui.example/callback?x=1", TokenPair{AccessToken: "a", RefreshToken: "r"})
	if err != nil {
		t.Fatalf("appendTokens: %v", err)
	}
	u, _ := url.Parse(got)
	q := u.Query()
	if q.Get("access_token") != "a" || q.Get("refresh_token") != "r" || q.Get("x") != "1" {
		t.Fatalf("unexpected redirect %s", got)
	}
	if _, err := appendTokens("", TokenPair{}); err == nil {
		t.Fatalf("expected error for empty redirect")
	}
}

func TestGoogleRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	unconfigured := gin.New()
	NewGoogleService("", "", "", "", stubLogins{}).RegisterRoutes(unconfigured.Group("/auth"))
	resp := httptest.NewRecorder()
	unconfigured.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/auth/google/start", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when unconfigured, got %d", resp.Code)
	}

	router := gin.New()
	NewGoogleService("id", "secret", "http://localhost/cb", "http://ui", stubLogins{}).RegisterRoutes(router.Group("/auth"))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/auth/google/start", nil))
	if resp.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", resp.Code)
	}
	loc, _ := url.Parse(resp.Header().Get("Location"))
	if loc.Query().Get("state") == "" {
		t.Fatalf("expected state in redirect %s", loc)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=bogus&code=c", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown state, got %d", resp.Code)
	}
}
