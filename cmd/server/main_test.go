package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/janisto/huma-hello/internal/http/index"
	"github.com/janisto/huma-hello/internal/platform/config"
)

func testConfig() config.Config {
	return config.Config{Host: "127.0.0.1", Port: "0", ShutdownTimeout: 2 * time.Second}
}

func TestIndexReturnsGreeting(t *testing.T) {
	srv := newRouter(testConfig())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(chimiddleware.RequestIDHeader, "test-index-req")
	resp := httptest.NewRecorder()
	srv.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", resp.Code)
	}
	if body := resp.Body.String(); body != "Hello, world!" {
		t.Fatalf("expected body 'Hello, world!', got %q", body)
	}
	if got := resp.Header().Get(chimiddleware.RequestIDHeader); got != "test-index-req" {
		t.Fatalf("expected request ID echoed, got %q", got)
	}
	if got := resp.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected security headers, got X-Content-Type-Options %q", got)
	}
	if got := resp.Header().Get("Vary"); !strings.Contains(got, "Accept") {
		t.Fatalf("expected Vary to include Accept, got %q", got)
	}
}

func TestIndexIgnoresRequestInputs(t *testing.T) {
	srv := newRouter(testConfig())

	tests := []struct {
		name    string
		target  string
		headers map[string]string
		body    string
	}{
		{"plain", "/", nil, ""},
		{"query", "/?greeting=bonjour", nil, ""},
		{"headers", "/", map[string]string{"Accept": "application/cbor", "Accept-Language": "fr"}, ""},
		{"origin", "/", map[string]string{"Origin": "http://example.com"}, ""},
		{"body", "/", map[string]string{"Content-Type": "text/plain"}, "ignored"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, strings.NewReader(tt.body))
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			resp := httptest.NewRecorder()
			srv.ServeHTTP(resp, req)

			if resp.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", resp.Code)
			}
			if body := resp.Body.String(); body != index.Greeting {
				t.Fatalf("expected %q, got %q", index.Greeting, body)
			}
		})
	}
}

func TestOtherPathsReturnNotFound(t *testing.T) {
	srv := newRouter(testConfig())

	for _, path := range []string{"/missing", "/index.html", "/openapi.json", "/openapi.yaml", "/docs", "/schemas/ErrorModel.json", "/health"} {
		t.Run(path, func(t *testing.T) {
			resp := httptest.NewRecorder()
			srv.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))

			if resp.Code != http.StatusNotFound {
				t.Fatalf("expected 404 got %d", resp.Code)
			}
			if ct := resp.Header().Get("Content-Type"); ct != "application/problem+json" {
				t.Fatalf("expected application/problem+json content type, got %q", ct)
			}
			var problem huma.ErrorModel
			if err := json.Unmarshal(resp.Body.Bytes(), &problem); err != nil {
				t.Fatalf("failed to unmarshal 404 response: %v", err)
			}
			if problem.Detail != "resource not found" {
				t.Fatalf("unexpected detail: %s", problem.Detail)
			}
		})
	}
}

func TestMethodNotAllowedReturnsProblemDetails(t *testing.T) {
	srv := newRouter(testConfig())

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch} {
		t.Run(method, func(t *testing.T) {
			resp := httptest.NewRecorder()
			srv.ServeHTTP(resp, httptest.NewRequest(method, "/", nil))

			if resp.Code != http.StatusMethodNotAllowed {
				t.Fatalf("expected 405 got %d", resp.Code)
			}
			if allow := resp.Header().Get("Allow"); !strings.Contains(allow, http.MethodGet) {
				t.Fatalf("expected Allow header to list GET, got %q", allow)
			}
			var problem huma.ErrorModel
			if err := json.Unmarshal(resp.Body.Bytes(), &problem); err != nil {
				t.Fatalf("failed to unmarshal 405 response: %v", err)
			}
			if !strings.Contains(problem.Detail, method) {
				t.Fatalf("expected detail to mention %s, got %s", method, problem.Detail)
			}
		})
	}
}

func TestHeadIndex(t *testing.T) {
	srv := newRouter(testConfig())

	resp := httptest.NewRecorder()
	srv.ServeHTTP(resp, httptest.NewRequest(http.MethodHead, "/", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ct)
	}
}

// startServer runs the real server on an ephemeral port and returns its base URL.
func startServer(t *testing.T) (string, context.CancelFunc, <-chan error) {
	t.Helper()
	cfg := testConfig()
	srv := newServer(cfg)
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, srv, ln, cfg.ShutdownTimeout)
	}()
	return "http://" + ln.Addr().String(), cancel, done
}

func TestServeConcurrentRequests(t *testing.T) {
	baseURL, cancel, done := startServer(t)
	defer func() {
		cancel()
		<-done
	}()

	client := &http.Client{Timeout: 5 * time.Second}
	const workers = 16
	const perWorker = 10

	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for w := range workers {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := range perWorker {
				resp, err := client.Get(fmt.Sprintf("%s/?worker=%d&i=%d", baseURL, w, i))
				if err != nil {
					errs <- err
					continue
				}
				body, err := io.ReadAll(resp.Body)
				_ = resp.Body.Close()
				if err != nil {
					errs <- err
					continue
				}
				if resp.StatusCode != http.StatusOK || string(body) != "Hello, world!" {
					errs <- fmt.Errorf("unexpected response %d %q", resp.StatusCode, body)
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	baseURL, cancel, done := startServer(t)

	resp, err := http.Get(baseURL + "/")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	_ = resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for shutdown")
	}

	if _, err := http.Get(baseURL + "/"); err == nil {
		t.Fatal("expected request after shutdown to fail")
	}
}

func TestServeReturnsListenerError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	// A closed listener makes Serve fail immediately.
	_ = ln.Close()

	srv := newServer(testConfig())
	err = serve(context.Background(), srv, ln, time.Second)
	if err == nil {
		t.Fatal("expected error from closed listener")
	}
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected wrapped *net.OpError, got %T: %v", err, err)
	}
}

func TestNewServerAddr(t *testing.T) {
	srv := newServer(config.Config{Port: "8000"})
	if srv.Addr != ":8000" {
		t.Fatalf("expected :8000, got %q", srv.Addr)
	}
	if srv.ReadHeaderTimeout == 0 {
		t.Fatal("expected ReadHeaderTimeout to be set")
	}
}
