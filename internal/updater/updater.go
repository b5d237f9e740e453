package updater

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"suffixguard/internal/config"
	"suffixguard/internal/logging"
	"suffixguard/internal/repository"
)

const fetchTimeout = 60 * time.Second

// Result reports what happened to one source.
type Result struct {
	Source      string
	Count       int
	NotModified bool
	Err         error
}

// Run refreshes every source concurrently and returns one Result per source,
// in the order given.
func Run(ctx context.Context, db *repository.RuleDB, sources []config.SourceConfig) []Result {
	results := make([]Result, len(sources))
	var wg sync.WaitGroup

	for i, src := range sources {
		wg.Add(1)
		go func(i int, s config.SourceConfig) {
			defer wg.Done()
			results[i] = processSource(ctx, db, s)
		}(i, src)
	}

	wg.Wait()
	return results
}

func processSource(ctx context.Context, db *repository.RuleDB, src config.SourceConfig) Result {
	logger := logging.For("updater").With().Str("source", src.Name).Logger()
	logger.Info().Str("format", src.Format).Str("url", src.URL).Msg("checking source")

	res := Result{Source: src.Name}

	body, etag, notModified, err := open(ctx, db, src)
	if err != nil {
		logger.Error().Err(err).Msg("fetch failed")
		res.Err = err
		return res
	}
	if notModified {
		logger.Info().Msg("up to date")
		res.NotModified = true
		return res
	}
	defer body.Close()

	ruleChan := make(chan repository.StoredRule, 2000)
	type syncResult struct {
		count int
		err   error
	}
	doneChan := make(chan syncResult, 1)

	importErr := make(chan error, 1)

	go func() {
		count, err := db.StreamSync(ruleChan, src.Name, importErr)
		doneChan <- syncResult{count, err}
	}()

	importErr <- repository.ParseAndStream(body, ruleChan, src)

	sr := <-doneChan
	if sr.err != nil {
		logger.Error().Err(sr.err).Msg("db sync failed")
		res.Err = fmt.Errorf("syncing %s: %w", src.Name, sr.err)
		return res
	}
	res.Count = sr.count
	logger.Info().Int("rules", sr.count).Msg("updated")

	// Only remember the ETag once the rules are safely stored.
	if etag != "" {
		if err := db.UpdateETag(etagKey(src), etag); err != nil {
			logger.Warn().Err(err).Msg("could not store etag")
		}
	}
	return res
}

// etagKey uses Name + URL so a changed URL triggers a fresh download.
func etagKey(src config.SourceConfig) string {
	return src.Name + "_" + src.URL
}

// open returns a reader over the source body. Local paths and file:// URLs
// are read from disk and never report NotModified.
func open(ctx context.Context, db *repository.RuleDB, src config.SourceConfig) (io.ReadCloser, string, bool, error) {
	u, err := url.Parse(src.URL)
	if err != nil {
		return nil, "", false, fmt.Errorf("invalid source url %q: %w", src.URL, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	case "file":
		f, err := os.Open(u.Path)
		return f, "", false, err
	case "":
		f, err := os.Open(src.URL)
		return f, "", false, err
	default:
		return nil, "", false, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		cancel()
		return nil, "", false, fmt.Errorf("create request: %w", err)
	}
	if current := db.GetETag(etagKey(src)); current != "" {
		req.Header.Set("If-None-Match", current)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		return nil, "", false, fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode == http.StatusNotModified {
		resp.Body.Close()
		cancel()
		return nil, "", true, nil
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, "", false, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	return &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}, resp.Header.Get("ETag"), false, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// Loop runs Run every interval until ctx is done. The first pass happens
// immediately.
func Loop(ctx context.Context, db *repository.RuleDB, sources []config.SourceConfig, interval time.Duration, onUpdate func([]Result)) error {
	logger := logging.For("updater")

	pass := func() {
		results := Run(ctx, db, sources)
		if onUpdate != nil {
			onUpdate(results)
		}
	}
	pass()

	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Err(ctx.Err()).Msg("updater stopped")
			return ctx.Err()
		case <-ticker.C:
			pass()
		}
	}
}
