package analysis

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"suffixguard/internal/engine"
)

const testRules = "uk\nco.uk\ncom\nnet\n*.ck\n"

const pageHTML = `
<html><body>
  <a href="https://news.bbc.co.uk/story">Story</a>
  <script src="/app.js"></script>
  <script src="https://cdn.tracker.com/t.js"></script>
  <img src="http://127.0.0.1/pixel.gif">
  <img src="https://assets.example.org/logo.png">
  <a href="http://printer.local/">Printer</a>
</body></html>
`

func newTestScanner(t *testing.T) *Scanner {
	t.Helper()
	e := engine.NewFromText(testRules, 0)
	s, err := NewScanner(e, []string{"*.local"}, time.Second, 2)
	if err != nil {
		t.Fatalf("NewScanner: %v", err)
	}
	return s
}

func TestClassify(t *testing.T) {
	s := newTestScanner(t)

	report := s.Classify("https://www.bbc.co.uk/news", pageHTML)
	if report.Err != nil {
		t.Fatalf("Classify error: %v", report.Err)
	}
	if report.RegistrableDomain != "bbc.co.uk" {
		t.Errorf("RegistrableDomain = %q", report.RegistrableDomain)
	}

	want := map[string]Party{
		"news.bbc.co.uk":     FirstParty,
		"www.bbc.co.uk":      FirstParty,
		"cdn.tracker.com":    ThirdParty,
		"127.0.0.1":          Unknown,
		"assets.example.org": Unknown, // no "org" rule loaded
	}

	if len(report.Hosts) != len(want) {
		t.Fatalf("got %d hosts, want %d: %+v", len(report.Hosts), len(want), report.Hosts)
	}
	for _, h := range report.Hosts {
		if p, ok := want[h.Host]; !ok || p != h.Party {
			t.Errorf("%s classified %s, want %s", h.Host, h.Party, want[h.Host])
		}
	}

	if got := report.Count(FirstParty); got != 2 {
		t.Errorf("first-party count = %d, want 2", got)
	}
}

func TestNewScanner_BadPattern(t *testing.T) {
	if _, err := NewScanner(engine.NewFromText("", 0), []string{"[unclosed"}, 0, 0); err == nil {
		t.Error("expected error for invalid glob")
	}
}

func TestScanAll(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<a href="https://other.com/">x</a>`))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := newTestScanner(t)
	reports, err := s.ScanAll(context.Background(), []string{
		srv.URL + "/ok",
		srv.URL + "/missing",
		"not a url",
	})
	if err != nil {
		t.Fatalf("ScanAll: %v", err)
	}
	if len(reports) != 3 {
		t.Fatalf("got %d reports", len(reports))
	}

	ok := reports[0]
	if ok.Err != nil {
		t.Fatalf("/ok failed: %v", ok.Err)
	}
	// The test server is an IP literal, so nothing can be placed relative
	// to it.
	if len(ok.Hosts) != 1 || ok.Hosts[0].Host != "other.com" || ok.Hosts[0].Party != Unknown {
		t.Errorf("/ok hosts = %+v", ok.Hosts)
	}
	if ok.Hosts[0].RegistrableDomain != "other.com" {
		t.Errorf("RegistrableDomain = %q", ok.Hosts[0].RegistrableDomain)
	}

	if reports[1].Err == nil {
		t.Error("expected error for 404 page")
	}
	if reports[2].Err == nil {
		t.Error("expected error for invalid url")
	}
}

func TestScanAll_Cancelled(t *testing.T) {
	s := newTestScanner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.ScanAll(ctx, []string{"https://www.bbc.co.uk/"}); err == nil {
		t.Error("expected context error")
	}
}
