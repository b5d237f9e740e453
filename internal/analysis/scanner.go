package analysis

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"suffixguard/internal/engine"
	"suffixguard/internal/features"
	"suffixguard/internal/hostname"
	"suffixguard/internal/logging"

	"github.com/gobwas/glob"
	"golang.org/x/sync/errgroup"
)

type Party string

const (
	FirstParty Party = "first-party"
	ThirdParty Party = "third-party"
	// Unknown means either host has no registrable domain (no rule, IP
	// literal), so no site boundary can be drawn.
	Unknown Party = "unknown"
)

// HostReport classifies one host referenced by a page.
type HostReport struct {
	Host              string
	RegistrableDomain string
	Party             Party
	Kinds             []string
}

type Report struct {
	URL               string
	Host              string
	RegistrableDomain string
	Hosts             []HostReport
	Err               error
}

// Count returns how many referenced hosts fall into p.
func (r *Report) Count(p Party) int {
	n := 0
	for _, h := range r.Hosts {
		if h.Party == p {
			n++
		}
	}
	return n
}

type Scanner struct {
	engine      *engine.Engine
	client      *http.Client
	ignore      []glob.Glob
	concurrency int
}

// NewScanner builds a Scanner. ignoreHosts are glob patterns (e.g.
// "*.local") for hosts left out of reports.
func NewScanner(e *engine.Engine, ignoreHosts []string, timeout time.Duration, concurrency int) (*Scanner, error) {
	patterns := make([]glob.Glob, 0, len(ignoreHosts))
	for _, h := range ignoreHosts {
		g, err := glob.Compile(strings.ToLower(h), '.')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", h, err)
		}
		patterns = append(patterns, g)
	}

	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if concurrency < 1 {
		concurrency = 1
	}

	return &Scanner{
		engine:      e,
		client:      &http.Client{Timeout: timeout},
		ignore:      patterns,
		concurrency: concurrency,
	}, nil
}

func (s *Scanner) ignored(host string) bool {
	for _, g := range s.ignore {
		if g.Match(host) {
			return true
		}
	}
	return false
}

// fetchContent downloads a page body, capped at 10MB.
func (s *Scanner) fetchContent(ctx context.Context, targetURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %s", resp.Status)
	}

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return "", err
	}
	return string(bodyBytes), nil
}

// Scan fetches pageURL and classifies every host it references.
func (s *Scanner) Scan(ctx context.Context, pageURL string) Report {
	report := Report{URL: pageURL}

	host, err := hostname.FromURL(pageURL)
	if err != nil {
		report.Err = err
		return report
	}
	report.Host = host

	htmlContent, err := s.fetchContent(ctx, pageURL)
	if err != nil {
		report.Err = fmt.Errorf("fetching %s: %w", pageURL, err)
		return report
	}

	s.classify(&report, htmlContent)
	return report
}

// Classify is Scan without the download, for pages already in hand.
func (s *Scanner) Classify(pageURL, htmlContent string) Report {
	report := Report{URL: pageURL}

	host, err := hostname.FromURL(pageURL)
	if err != nil {
		report.Err = err
		return report
	}
	report.Host = host

	s.classify(&report, htmlContent)
	return report
}

func (s *Scanner) classify(report *Report, htmlContent string) {
	logger := logging.For("analysis")

	refs, err := features.ExtractHosts(htmlContent, report.URL)
	if err != nil {
		report.Err = fmt.Errorf("extracting hosts: %w", err)
		return
	}

	pageSite, pageOK := s.registrable(report.Host)
	report.RegistrableDomain = pageSite

	for _, ref := range refs {
		if s.ignored(ref.Host) {
			continue
		}

		hr := HostReport{Host: ref.Host, Kinds: ref.Kinds, Party: Unknown}
		site, ok := s.registrable(ref.Host)
		hr.RegistrableDomain = site

		switch {
		case !ok || !pageOK:
		case site == pageSite:
			hr.Party = FirstParty
		default:
			hr.Party = ThirdParty
		}
		report.Hosts = append(report.Hosts, hr)
	}

	logger.Debug().
		Str("url", report.URL).
		Int("hosts", len(report.Hosts)).
		Int("third_party", report.Count(ThirdParty)).
		Msg("page classified")
}

func (s *Scanner) registrable(host string) (string, bool) {
	if hostname.IsIP(host) {
		return "", false
	}
	site, ok := s.engine.RegistrableDomain(host)
	if !ok || site == "" {
		return "", false
	}
	return site, true
}

// ScanAll scans urls with bounded concurrency. Reports keep the input order;
// per-page failures are recorded in Report.Err rather than aborting.
func (s *Scanner) ScanAll(ctx context.Context, urls []string) ([]Report, error) {
	reports := make([]Report, len(urls))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, u := range urls {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			reports[i] = s.Scan(ctx, u)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return reports, err
	}
	return reports, nil
}
