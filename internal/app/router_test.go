package app

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/smallwat3r/safes/internal/domain"
	"github.com/smallwat3r/safes/internal/vault"
)

func newTestRouter(t *testing.T) (http.Handler, *Metrics) {
	t.Helper()
	v := vault.New()
	metrics := NewMetrics(v.Len)
	handler := NewHandler(domain.NewMemoryRepository(v), WithMetrics(metrics), WithWebDir(t.TempDir()))
	return NewRouter(handler, DefaultRouterConfig()), metrics
}

func lockSafe(t *testing.T, router http.Handler, body string) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/safes", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("lock: expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	var res domain.LockRes
	if err := json.NewDecoder(rr.Body).Decode(&res); err != nil {
		t.Fatalf("lock: could not decode response: %v", err)
	}
	return res.Href
}

func unlockSafe(router http.Handler, href string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, href, strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestNewRouter_Health(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("expected X-Content-Type-Options to be nosniff, got %q", got)
	}
	if got := rr.Header().Get(RequestIDHeader); got == "" {
		t.Error("expected a request ID header")
	}
}

func TestNewRouter_LockAndUnlock(t *testing.T) {
	router, _ := newTestRouter(t)

	href := lockSafe(t, router, `{"open_duration":3600,"unlocks_left":2,"nonce":"bm9uY2U","secrets":"p@ss"}`)
	if !strings.HasPrefix(href, "/safes/") || len(strings.TrimPrefix(href, "/safes/")) != 32 {
		t.Fatalf("unexpected href %q", href)
	}

	for i := range 2 {
		rr := unlockSafe(router, href)
		if rr.Code != http.StatusOK {
			t.Fatalf("unlock %d: expected status %d, got %d", i+1, http.StatusOK, rr.Code)
		}
		var res domain.Contents
		if err := json.NewDecoder(rr.Body).Decode(&res); err != nil {
			t.Fatalf("unlock %d: could not decode response: %v", i+1, err)
		}
		if res.Secrets != "p@ss" || res.Nonce != "bm9uY2U" {
			t.Errorf("unlock %d: unexpected contents %+v", i+1, res)
		}
	}

	if rr := unlockSafe(router, href); rr.Code != http.StatusNotFound {
		t.Errorf("third unlock: expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
}

func TestNewRouter_NotFoundIsIndistinguishable(t *testing.T) {
	router, _ := newTestRouter(t)

	consumed := lockSafe(t, router, `{"open_duration":3600,"secrets":"s"}`)
	if rr := unlockSafe(router, consumed); rr.Code != http.StatusOK {
		t.Fatalf("expected first unlock to succeed, got %d", rr.Code)
	}
	expired := lockSafe(t, router, `{"open_duration":0,"unlocks_left":5,"secrets":"s"}`)

	paths := map[string]string{
		"consumed":  consumed,
		"expired":   expired,
		"unknown":   "/safes/00000000000000000000000000000000",
		"malformed": "/safes/not-a-handle",
	}

	var wantBody string
	for name, path := range paths {
		rr := unlockSafe(router, path)
		if rr.Code != http.StatusNotFound {
			t.Errorf("%s: expected status %d, got %d", name, http.StatusNotFound, rr.Code)
		}
		body := rr.Body.String()
		if wantBody == "" {
			wantBody = body
		}
		if body != wantBody {
			t.Errorf("%s: body %q differs from %q", name, body, wantBody)
		}
	}
}

func TestNewRouter_LockValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	t.Run("zero unlocks rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/safes",
			strings.NewReader(`{"open_duration":60,"unlocks_left":0,"secrets":"s"}`))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
		}
	})

	t.Run("oversized body rejected", func(t *testing.T) {
		big := `{"open_duration":60,"secrets":"` + strings.Repeat("a", domain.MaxRequestBodySize) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/safes", strings.NewReader(big))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("expected status %d, got %d", http.StatusRequestEntityTooLarge, rr.Code)
		}
	})
}

func TestNewRouter_ConcurrentUnlockSingleWinner(t *testing.T) {
	router, _ := newTestRouter(t)
	href := lockSafe(t, router, `{"open_duration":3600,"secrets":"once"}`)

	const attempts = 32
	codes := make(chan int, attempts)
	var wg sync.WaitGroup
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes <- unlockSafe(router, href).Code
		}()
	}
	wg.Wait()
	close(codes)

	ok := 0
	for code := range codes {
		switch code {
		case http.StatusOK:
			ok++
		case http.StatusNotFound:
		default:
			t.Errorf("unexpected status %d", code)
		}
	}
	if ok != 1 {
		t.Errorf("expected exactly one successful unlock, got %d", ok)
	}
}

func TestNewRouter_Metrics(t *testing.T) {
	router, _ := newTestRouter(t)

	href := lockSafe(t, router, `{"open_duration":3600,"secrets":"s"}`)
	lockSafe(t, router, `{"open_duration":3600,"secrets":"s"}`)
	unlockSafe(router, href)
	unlockSafe(router, href)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	for _, want := range []string{
		"safes_locked_total 2",
		`safes_unlock_attempts_total{result="ok"} 1`,
		`safes_unlock_attempts_total{result="not_found"} 1`,
		"safes_resident 1",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected metrics to contain %q", want)
		}
	}
}

func TestNewRouter_Frontend(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<p>index</p>"), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "static", "js"), 0o755); err != nil {
		t.Fatalf("mkdir static: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "static", "js", "app.js"), []byte("'use strict';"), 0o644); err != nil {
		t.Fatalf("write app.js: %v", err)
	}

	handler := NewHandler(domain.NewMemoryRepository(vault.New()), WithWebDir(dir))
	router := NewRouter(handler, DefaultRouterConfig())

	testCases := []struct {
		name string
		path string
		want string
	}{
		{"root page", "/", "<p>index</p>"},
		{"safe page", "/safes/0123456789abcdef0123456789abcdef", "<p>index</p>"},
		{"static asset", "/static/js/app.js", "'use strict';"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tc.want) {
				t.Errorf("expected body to contain %q, got %q", tc.want, rr.Body.String())
			}
		})
	}
}

func TestNewRouter_RedirectSlashes(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health/", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	// Chi's RedirectSlashes middleware returns 301 redirect
	if rr.Code != http.StatusMovedPermanently {
		t.Errorf("expected redirect status %d, got %d",
			http.StatusMovedPermanently, rr.Code)
	}
}
