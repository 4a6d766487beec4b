package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandlerExposesFetchMetrics(t *testing.T) {
	RecordFetch("example.com", 200, "", false, time.Second, 11)
	RecordFetch("example.com", 0, "", true, 2*time.Second, 0)

	ts := httptest.NewServer(Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	if err != nil {
		t.Fatalf("failed to fetch metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	output := string(body)

	for _, want := range []string{
		`gleaner_fetches_total{blocked_by="",domain="example.com",status="200"}`,
		`gleaner_fetches_total{blocked_by="",domain="example.com",status="error"}`,
		`gleaner_fetch_duration_seconds_bucket`,
		`gleaner_fetch_bytes_total{domain="example.com"} 11`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in metrics output", want)
		}
	}
}

func TestOutcome(t *testing.T) {
	if Outcome(nil) != "ok" {
		t.Error("nil error should map to ok")
	}
	if Outcome(errors.New("boom")) != "error" {
		t.Error("non-nil error should map to error")
	}
}

func TestServerStartStop(t *testing.T) {
	srv := Start("127.0.0.1:0", nil)
	if err := srv.Stop(context.Background()); err != nil {
		t.Errorf("unexpected stop error: %v", err)
	}

	var nilSrv *Server
	if err := nilSrv.Stop(context.Background()); err != nil {
		t.Errorf("nil server stop should be a no-op, got %v", err)
	}
}
