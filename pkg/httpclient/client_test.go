package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := New(Config{Timeout: 10 * time.Millisecond})

	req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)
	if _, err := client.Do(context.Background(), req); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestClient_ContextCancel(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer ts.Close()

	client := New(Config{Timeout: 5 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)
	start := time.Now()
	if _, err := client.Do(ctx, req); err == nil {
		t.Fatal("expected cancellation error")
	}
	if time.Since(start) > 150*time.Millisecond {
		t.Errorf("context cancellation was not honoured")
	}
}

func TestClient_Redirects(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/1":
			http.Redirect(w, r, "/2", http.StatusFound)
		case "/2":
			http.Redirect(w, r, "/3", http.StatusFound)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer ts.Close()

	limited := New(Config{MaxRedirects: 1})
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/1", nil)
	if _, err := limited.Do(context.Background(), req); err == nil {
		t.Fatal("expected redirect limit error")
	}

	following := New(Config{})
	req, _ = http.NewRequest(http.MethodGet, ts.URL+"/1", nil)
	resp, err := following.Do(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 after redirects, got %d", resp.StatusCode)
	}

	none := New(Config{MaxRedirects: -1})
	req, _ = http.NewRequest(http.MethodGet, ts.URL+"/1", nil)
	resp, err = none.Do(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		t.Errorf("expected 302, got %d", resp.StatusCode)
	}
}
