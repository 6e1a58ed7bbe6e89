package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/threadcrawl/threadcrawl/pkg/proxy"
)

func newTestStatic(t *testing.T, cfg StaticConfig) *Static {
	t.Helper()
	s, err := NewStatic(cfg)
	if err != nil {
		t.Fatalf("NewStatic: %v", err)
	}
	return s
}

func TestStatic_Fetch(t *testing.T) {
	const body = "<html><body><div class=\"feed\"></div></body></html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("request carried no User-Agent")
		}
		if r.Header.Get("Accept") == "" {
			t.Error("request carried no Accept header")
		}
		w.Write([]byte(body))
	}))
	defer srv.Close()

	s := newTestStatic(t, StaticConfig{Site: "test"})
	page, err := s.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if page.StatusCode != http.StatusOK {
		t.Errorf("status: got %d", page.StatusCode)
	}
	if string(page.Body) != body {
		t.Errorf("body: got %q", page.Body)
	}
	if page.Rendered {
		t.Error("static pages must not be marked rendered")
	}
}

// An HTTP error status is terminal: no retries, the status surfaces in the error.
func TestStatic_Fetch_ErrorStatusNotRetried(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	s := newTestStatic(t, StaticConfig{Site: "test", Retries: 3})
	_, err := s.Fetch(context.Background(), srv.URL)

	var fe *Error
	if !errors.As(err, &fe) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if fe.Kind != KindHTTPStatus || fe.Status != http.StatusNotFound {
		t.Errorf("expected http_status 404, got kind=%q status=%d", fe.Kind, fe.Status)
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("error status must not be retried: %d attempts", got)
	}
}

// A dropped connection is transient and retried; the retry succeeds.
func TestStatic_Fetch_RetriesDroppedConnection(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Error("server does not support hijacking")
				return
			}
			conn, _, err := hj.Hijack()
			if err != nil {
				t.Errorf("hijack: %v", err)
				return
			}
			conn.Close()
			return
		}
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	s := newTestStatic(t, StaticConfig{Site: "test", Retries: 2})
	page, err := s.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if page.StatusCode != http.StatusOK {
		t.Errorf("status: got %d", page.StatusCode)
	}
	if got := attempts.Load(); got != 2 {
		t.Errorf("expected 2 attempts, got %d", got)
	}
}

func TestStatic_Fetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	s := newTestStatic(t, StaticConfig{Site: "test", Timeout: 50 * time.Millisecond})
	_, err := s.Fetch(context.Background(), srv.URL)

	var fe *Error
	if !errors.As(err, &fe) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if fe.Kind != KindTimeout {
		t.Errorf("expected timeout kind, got %q", fe.Kind)
	}
}

func TestStatic_Fetch_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newTestStatic(t, StaticConfig{Site: "test", Retries: 3})
	_, err := s.Fetch(ctx, srv.URL)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestStatic_Fetch_RoutesThroughProxy(t *testing.T) {
	var proxied atomic.Int32
	proxySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A forward proxy receives the absolute target URL.
		if !r.URL.IsAbs() || r.URL.Host != "marketplace.test" {
			t.Errorf("expected proxied absolute URL, got %s", r.URL)
		}
		proxied.Add(1)
		w.Write([]byte("<html>via proxy</html>"))
	}))
	defer proxySrv.Close()

	pool := proxy.NewPool(proxy.Config{MaxFailures: 1, Cooldown: time.Hour})
	if err := pool.Add(proxySrv.URL); err != nil {
		t.Fatalf("add proxy: %v", err)
	}

	s := newTestStatic(t, StaticConfig{Site: "test", ProxyPool: pool})
	page, err := s.Fetch(context.Background(), "http://marketplace.test/search")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(page.Body) != "<html>via proxy</html>" {
		t.Errorf("body: got %q", page.Body)
	}
	if proxied.Load() != 1 {
		t.Errorf("expected 1 proxied request, got %d", proxied.Load())
	}
	// The good response marked the endpoint healthy, so it stays in rotation.
	if pool.Next() == nil {
		t.Error("healthy proxy left rotation")
	}
}

func TestStatic_Fetch_SidelinesFailingProxy(t *testing.T) {
	// A closed listener: connections to the former address are refused.
	deadSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := deadSrv.URL
	deadSrv.Close()

	pool := proxy.NewPool(proxy.Config{MaxFailures: 1, Cooldown: time.Hour})
	if err := pool.Add(deadURL); err != nil {
		t.Fatalf("add proxy: %v", err)
	}

	s := newTestStatic(t, StaticConfig{Site: "test", ProxyPool: pool})
	_, err := s.Fetch(context.Background(), "http://marketplace.test/search")
	var fe *Error
	if !errors.As(err, &fe) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if fe.Kind != KindConnectionRefused {
		t.Errorf("expected connection_refused, got %q", fe.Kind)
	}
	if pool.Next() != nil {
		t.Error("failing proxy must be sidelined after hitting the failure limit")
	}
}

func TestTransient(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindTimeout, true},
		{KindConnectionRefused, true},
		{KindHTTPStatus, false},
		{KindRenderTimeout, false},
	}
	for _, tt := range tests {
		if got := transient(&Error{Kind: tt.kind}); got != tt.want {
			t.Errorf("transient(%s): expected %v, got %v", tt.kind, tt.want, got)
		}
	}
	if transient(nil) {
		t.Error("transient(nil) must be false")
	}
}
