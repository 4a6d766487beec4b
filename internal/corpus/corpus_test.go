package corpus

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/gleaner/internal/news"
	"github.com/FranksOps/gleaner/internal/phrase"
	"github.com/FranksOps/gleaner/internal/scraper"
)

const listingPage = `<html><body>
<article>
  <a class="hl" href="/1">Markets rally on rate cut</a>
  <a class="hl" href="/2" title="Solar eclipse visible tonight">read more</a>
  <a class="hl" href="/3">Senate debates the budget...</a>
</article>
<article>
  <a class="hl" href="/4">Markets   rally on rate cut</a>
  <a class="hl" href="/5">New species found in the Amazon</a>
</article>
</body></html>`

func listingServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(listingPage))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newsCollector(t *testing.T, url string, target, attempts int) *news.Collector {
	t.Helper()
	fetcher, err := scraper.NewFetcher(scraper.FetchConfig{Timeout: time.Second})
	if err != nil {
		t.Fatalf("fetcher: %v", err)
	}
	return news.NewCollector(news.Config{
		ListingURL:  url,
		Selectors:   []string{"a.hl"},
		Target:      target,
		MaxAttempts: attempts,
		ErrorDelay:  time.Millisecond,
		RetryDelay:  time.Millisecond,
	}, fetcher, nil)
}

type stubCollector struct {
	recs  []news.HeadlineRecord
	err   error
	calls int
}

func (s *stubCollector) Collect(context.Context) ([]news.HeadlineRecord, error) {
	s.calls++
	return s.recs, s.err
}

type reducerFunc func(context.Context, []string) ([]string, error)

func (f reducerFunc) Reduce(ctx context.Context, h []string) ([]string, error) { return f(ctx, h) }

type rewriterFunc func(context.Context, []string) ([]string, error)

func (f rewriterFunc) Rewrite(ctx context.Context, p []string) ([]string, error) { return f(ctx, p) }

func records(texts ...string) []news.HeadlineRecord {
	out := make([]news.HeadlineRecord, len(texts))
	for i, s := range texts {
		out[i] = news.HeadlineRecord{RawText: s, SourceSelector: "a"}
	}
	return out
}

func TestRefresh_RoundTrip(t *testing.T) {
	ts := listingServer(t)
	f := NewFile(filepath.Join(t.TempDir(), "corpus.csv"))
	r := NewRefresher(newsCollector(t, ts.URL, 3, 2), phrase.Local{}, nil, f, nil)

	res, err := r.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if res.Status != StatusOK || res.Headlines != 3 || res.Phrases != 3 || res.Degraded {
		t.Errorf("unexpected result %+v", res)
	}

	data, err := f.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "Prompt\nMarkets rally rate\nSolar eclipse visible\nNew species found\n"
	if string(data) != want {
		t.Errorf("corpus = %q, want %q", data, want)
	}
}

func TestRefresh_PartialCollectionStillWrites(t *testing.T) {
	ts := listingServer(t)
	f := NewFile(filepath.Join(t.TempDir(), "corpus.csv"))
	r := NewRefresher(newsCollector(t, ts.URL, 10, 2), phrase.Local{}, nil, f, nil)

	res, err := r.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if res.Status != StatusPartial || res.Phrases != 3 {
		t.Errorf("unexpected result %+v", res)
	}
	if !f.Exists() {
		t.Error("corpus not written")
	}
}

func TestRefresh_NothingCollectedKeepsCorpus(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "corpus.csv"))
	if err := f.Write([]string{"old phrase"}); err != nil {
		t.Fatal(err)
	}

	c := &stubCollector{err: errors.New("listing down")}
	r := NewRefresher(c, nil, nil, f, nil)
	if _, err := r.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	c.err = nil
	if _, err := r.Refresh(context.Background()); !errors.Is(err, ErrNothingCollected) {
		t.Fatalf("err = %v, want ErrNothingCollected", err)
	}

	got, err := f.Phrases()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"old phrase"}) {
		t.Errorf("corpus changed: %q", got)
	}
}

func TestRefresh_DegradedReducer(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "corpus.csv"))
	c := &stubCollector{recs: records("One headline", "Two headline")}
	reducer := reducerFunc(func(_ context.Context, h []string) ([]string, error) {
		return []string{"one"}, phrase.ErrCountMismatch
	})

	res, err := NewRefresher(c, reducer, nil, f, nil).Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !res.Degraded || res.Phrases != 1 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestRefresh_Rewriter(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "corpus.csv"))
	c := &stubCollector{recs: records("Solar eclipse visible tonight")}

	rw := rewriterFunc(func(_ context.Context, p []string) ([]string, error) {
		out := make([]string, len(p))
		for i, s := range p {
			out[i] = strings.ToLower(s)
		}
		return out, nil
	})
	if _, err := NewRefresher(c, phrase.Local{}, rw, f, nil).Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	got, _ := f.Phrases()
	if !reflect.DeepEqual(got, []string{"solar eclipse visible"}) {
		t.Errorf("phrases = %q", got)
	}

	failing := rewriterFunc(func(_ context.Context, p []string) ([]string, error) {
		return nil, errors.New("oracle down")
	})
	res, err := NewRefresher(c, phrase.Local{}, failing, f, nil).Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	got, _ = f.Phrases()
	if !res.Degraded || !reflect.DeepEqual(got, []string{"Solar eclipse visible"}) {
		t.Errorf("degraded=%v phrases=%q", res.Degraded, got)
	}
}

func TestEnsureExists(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "nested", "corpus.csv"))
	c := &stubCollector{recs: records("Markets rally on rate cut")}
	r := NewRefresher(c, nil, nil, f, nil)

	res, err := r.EnsureExists(context.Background())
	if err != nil || res == nil {
		t.Fatalf("first EnsureExists: res=%v err=%v", res, err)
	}
	res, err = r.EnsureExists(context.Background())
	if err != nil || res != nil {
		t.Fatalf("second EnsureExists: res=%v err=%v", res, err)
	}
	if c.calls != 1 {
		t.Errorf("collector called %d times, want 1", c.calls)
	}
}

func TestEncodeDecode(t *testing.T) {
	phrases := []string{"plain", "with, comma", `say "hi"`, ""}
	data, err := Encode(phrases)
	if err != nil {
		t.Fatal(err)
	}
	want := "Prompt\nplain\n\"with, comma\"\n\"say \"\"hi\"\"\"\n\"\"\n"
	if string(data) != want {
		t.Errorf("encoded = %q, want %q", data, want)
	}

	got, err := Decode(strings.NewReader(string(data)))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, phrases) {
		t.Errorf("decoded = %q, want %q", got, phrases)
	}
}

func TestDecode_BadHeader(t *testing.T) {
	if _, err := Decode(strings.NewReader("Phrase\nx\n")); !errors.Is(err, ErrCorpusUnavailable) {
		t.Errorf("err = %v, want ErrCorpusUnavailable", err)
	}
}

func TestRead_Missing(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "absent.csv"))
	if _, err := f.Read(); !errors.Is(err, ErrCorpusUnavailable) {
		t.Errorf("err = %v, want ErrCorpusUnavailable", err)
	}
}

func TestWrite_ReplacesWholeFile(t *testing.T) {
	dir := t.TempDir()
	f := NewFile(filepath.Join(dir, "corpus.csv"))
	if err := f.Write([]string{"a", "b", "c"}); err != nil {
		t.Fatal(err)
	}
	if err := f.Write([]string{"d"}); err != nil {
		t.Fatal(err)
	}
	data, _ := f.Read()
	if string(data) != "Prompt\nd\n" {
		t.Errorf("corpus = %q", data)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("leftover files in corpus dir: %d", len(entries))
	}
}
