package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// redirectChain serves /hop/0 -> /hop/1 -> /hop/2 -> 200.
func redirectChain(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/hop/0", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/hop/1", http.StatusFound)
	})
	mux.HandleFunc("/hop/1", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/hop/2", http.StatusFound)
	})
	mux.HandleFunc("/hop/2", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, c *Client, url string) (*http.Response, error) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c.Do(context.Background(), req)
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)

	client, err := New(Config{Timeout: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := get(t, client, srv.URL); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestClient_RedirectLimit(t *testing.T) {
	srv := redirectChain(t)

	client, err := New(Config{MaxRedirects: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = get(t, client, srv.URL+"/hop/0")
	if err == nil || !strings.Contains(err.Error(), "stopped after 1 redirects") {
		t.Fatalf("expected redirect limit error, got %v", err)
	}
}

func TestClient_NoFollow(t *testing.T) {
	srv := redirectChain(t)

	client, err := New(Config{MaxRedirects: -1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err := get(t, client, srv.URL+"/hop/0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusFound {
		t.Errorf("status = %d, want %d", res.StatusCode, http.StatusFound)
	}
	if loc := res.Header.Get("Location"); loc != "/hop/1" {
		t.Errorf("Location = %q, want %q", loc, "/hop/1")
	}
}

func TestClient_CookieJar(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc123"})
	})
	mux.HandleFunc("/feed", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session"); err != nil || c.Value != "abc123" {
			http.Error(w, "no session", http.StatusUnauthorized)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := New(Config{UseCookieJar: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := get(t, client, srv.URL+"/login")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res.Body.Close()

	res, err = get(t, client, srv.URL+"/feed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d; session cookie not replayed", res.StatusCode, http.StatusOK)
	}
}

func TestClient_UserAgent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
	}))
	t.Cleanup(srv.Close)

	client, err := New(Config{UserAgent: "monitor/1.0"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := get(t, client, srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res.Body.Close()
	if got != "monitor/1.0" {
		t.Errorf("User-Agent = %q, want the client default", got)
	}

	// A header set on the request wins over the client default.
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req.Header.Set("User-Agent", "explicit/2.0")
	res, err = client.Do(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res.Body.Close()
	if got != "explicit/2.0" {
		t.Errorf("User-Agent = %q, want the per-request value", got)
	}
}

type headerStamp struct {
	base http.RoundTripper
}

func (h headerStamp) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("X-Stamp", "yes")
	return h.base.RoundTrip(r)
}

func TestClient_CustomTransport(t *testing.T) {
	var stamped bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stamped = r.Header.Get("X-Stamp") == "yes"
	}))
	t.Cleanup(srv.Close)

	client, err := New(Config{Transport: headerStamp{base: http.DefaultTransport}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err := get(t, client, srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res.Body.Close()
	if !stamped {
		t.Error("custom transport was not used")
	}
}

func TestClient_NilContext(t *testing.T) {
	client, err := New(Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req, _ := http.NewRequest(http.MethodGet, "http://example.invalid", nil)
	if _, err := client.Do(nil, req); err == nil || err.Error() != "context cannot be nil" {
		t.Errorf("expected nil context error, got %v", err)
	}
}

func TestClient_Cancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	t.Cleanup(srv.Close)

	client, err := New(Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	if _, err := client.Do(ctx, req); err == nil {
		t.Fatal("expected cancellation error")
	}
}
