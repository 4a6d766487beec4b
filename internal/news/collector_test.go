package news

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/FranksOps/gleaner/internal/scraper"
)

const listingPage = `<html><body>
<article>
  <a class="gPFEn" href="/1">Markets   rally on rate cut</a>
  <a class="gPFEn" href="/2" title="Solar eclipse  visible tonight">ignored text</a>
  <a class="gPFEn" href="/3">Senate debates the budget...</a>
</article>
<article>
  <a class="JtKRv" href="/4" aria-label="Markets rally on rate cut"></a>
  <a class="JtKRv" href="/5" aria-label="New species found in the Amazon"></a>
  <a class="JtKRv" href="/6">Storm heads north…</a>
  <a class="JtKRv" href="/7">   </a>
</article>
</body></html>`

func newListing(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(ts.Close)
	return ts, &hits
}

func newCollector(t *testing.T, url string, target, attempts int) *Collector {
	t.Helper()
	fetcher, err := scraper.NewFetcher(scraper.FetchConfig{Timeout: time.Second})
	if err != nil {
		t.Fatalf("fetcher: %v", err)
	}
	return NewCollector(Config{
		ListingURL:  url,
		Selectors:   []string{"a.gPFEn", "a.JtKRv"},
		Target:      target,
		MaxAttempts: attempts,
		ErrorDelay:  time.Millisecond,
		RetryDelay:  time.Millisecond,
	}, fetcher, nil)
}

func TestCollect_DedupAcrossSelectors(t *testing.T) {
	ts, hits := newListing(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(listingPage))
	})

	c := newCollector(t, ts.URL, 3, 5)
	recs, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"Markets rally on rate cut",
		"Solar eclipse visible tonight",
		"New species found in the Amazon",
	}
	if got := Texts(recs); !reflect.DeepEqual(got, want) {
		t.Errorf("headlines = %q, want %q", got, want)
	}
	if recs[0].SourceSelector != "a.gPFEn" || recs[2].SourceSelector != "a.JtKRv" {
		t.Errorf("unexpected selectors %+v", recs)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("expected a single fetch, got %d", n)
	}
}

func TestCollect_TruncatesToTarget(t *testing.T) {
	ts, _ := newListing(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(listingPage))
	})

	recs, err := newCollector(t, ts.URL, 2, 1).Collect(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 2 || recs[1].RawText != "Solar eclipse visible tonight" {
		t.Errorf("expected first two headlines, got %q", Texts(recs))
	}
}

func TestCollect_RetriesUntilTarget(t *testing.T) {
	var calls atomic.Int32
	ts, hits := newListing(t, func(w http.ResponseWriter, _ *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			_, _ = w.Write([]byte(`<a class="gPFEn">First story</a>`))
		default:
			_, _ = w.Write([]byte(`<a class="gPFEn">First story</a><a class="JtKRv">Second story</a>`))
		}
	})

	recs, err := newCollector(t, ts.URL, 2, 5).Collect(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := Texts(recs); !reflect.DeepEqual(got, []string{"First story", "Second story"}) {
		t.Errorf("unexpected headlines %q", got)
	}
	if n := hits.Load(); n != 3 {
		t.Errorf("expected 3 attempts, got %d", n)
	}
}

func TestCollect_IncompleteAfterBudget(t *testing.T) {
	ts, hits := newListing(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(listingPage))
	})

	recs, err := newCollector(t, ts.URL, 10, 3).Collect(context.Background())
	if !errors.Is(err, ErrCollectionIncomplete) {
		t.Fatalf("expected ErrCollectionIncomplete, got %v", err)
	}
	if len(recs) != 3 {
		t.Errorf("expected the 3 partial headlines, got %d", len(recs))
	}
	if n := hits.Load(); n != 3 {
		t.Errorf("expected attempt budget of 3 fetches, got %d", n)
	}
	if !strings.Contains(err.Error(), "3 of 10") {
		t.Errorf("error should describe the shortfall: %v", err)
	}
}

func TestCollect_PersistentFailure(t *testing.T) {
	ts, _ := newListing(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	recs, err := newCollector(t, ts.URL, 5, 2).Collect(context.Background())
	if !errors.Is(err, ErrCollectionIncomplete) {
		t.Fatalf("expected ErrCollectionIncomplete, got %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("expected no headlines, got %d", len(recs))
	}
}

func TestCollect_ContextCancelledDuringBackoff(t *testing.T) {
	ts, _ := newListing(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	fetcher, _ := scraper.NewFetcher(scraper.FetchConfig{Timeout: time.Second})
	c := NewCollector(Config{ListingURL: ts.URL, MaxAttempts: 5, ErrorDelay: time.Hour}, fetcher, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if _, err := c.Collect(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}
}

func TestNewCollector_Defaults(t *testing.T) {
	c := NewCollector(Config{}, nil, nil)
	if c.Target() != DefaultTarget || c.cfg.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("unexpected defaults %+v", c.cfg)
	}
	if !reflect.DeepEqual(c.cfg.Selectors, DefaultSelectors) {
		t.Errorf("expected default selectors, got %v", c.cfg.Selectors)
	}
}
