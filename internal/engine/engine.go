package engine

import (
	"errors"
	"fmt"
	"sync"

	"suffixguard/internal/suffix"

	"github.com/rs/zerolog/log"
)

var ErrUninitialized = errors.New("engine uninitialized")

// TextSource supplies the raw ruleset text. repository.RuleDB implements it.
type TextSource interface {
	LoadRuleText() (string, error)
}

type staticText string

func (s staticText) LoadRuleText() (string, error) { return string(s), nil }

// Engine answers suffix queries against a RuleSet that is built on first
// use and shared read-only afterwards.
type Engine struct {
	source TextSource
	cache  *ResultCache

	once  sync.Once
	rules *suffix.RuleSet
	err   error
}

// New returns an Engine that loads its rules from src on first use.
// cacheSize 0 disables result caching.
func New(src TextSource, cacheSize int) *Engine {
	return &Engine{source: src, cache: NewResultCache(cacheSize)}
}

func NewFromText(text string, cacheSize int) *Engine {
	return New(staticText(text), cacheSize)
}

// Init forces the ruleset to load and reports any failure. Calling it is
// optional; lookups trigger the same single load.
func (e *Engine) Init() error {
	_, err := e.RuleSet()
	return err
}

// RuleSet returns the loaded rules. Concurrent first calls share one build.
func (e *Engine) RuleSet() (*suffix.RuleSet, error) {
	if e == nil || e.source == nil {
		return nil, ErrUninitialized
	}

	e.once.Do(func() {
		text, err := e.source.LoadRuleText()
		if err != nil {
			e.err = fmt.Errorf("loading rules: %w", err)
			log.Error().Err(err).Msg("engine: could not load ruleset")
			return
		}
		e.rules = suffix.Parse(text)
		log.Debug().Int("rules", e.rules.Len()).Msg("engine: ruleset built")
	})

	return e.rules, e.err
}

// PublicSuffix returns the public suffix of host. ok is false when no rule
// applies or the ruleset could not be loaded.
func (e *Engine) PublicSuffix(host string) (string, bool) {
	return e.BaseDomain(host, 0)
}

// RegistrableDomain returns the eTLD+1 of host.
func (e *Engine) RegistrableDomain(host string) (string, bool) {
	return e.BaseDomain(host, 1)
}

// BaseDomain returns the public suffix of host plus additionalParts labels.
func (e *Engine) BaseDomain(host string, additionalParts int) (string, bool) {
	rules, err := e.RuleSet()
	if err != nil {
		return "", false
	}

	key := cacheKey{host: host, parts: additionalParts}
	if r, hit := e.cache.Get(key); hit {
		return r.value, r.ok
	}

	value, ok := rules.BaseDomain(host, additionalParts)
	e.cache.Put(key, result{value: value, ok: ok})
	return value, ok
}

// Explain returns the suffix decision for host along with the rule behind
// it. Results are not cached.
func (e *Engine) Explain(host string) (suffix.Match, error) {
	rules, err := e.RuleSet()
	if err != nil {
		return suffix.Match{}, err
	}
	return rules.Match(host), nil
}

// SameSite reports whether a and b share a registrable domain. Hosts without
// a registrable domain are never same-site, not even with themselves.
func (e *Engine) SameSite(a, b string) (bool, error) {
	if _, err := e.RuleSet(); err != nil {
		return false, err
	}

	da, ok := e.RegistrableDomain(a)
	if !ok || da == "" {
		return false, nil
	}
	db, ok := e.RegistrableDomain(b)
	if !ok || db == "" {
		return false, nil
	}
	return da == db, nil
}

type Stats struct {
	Rules       int
	CacheHits   uint64
	CacheMisses uint64
	CacheSize   int
}

func (e *Engine) Stats() Stats {
	rules, _ := e.RuleSet()
	hits, misses, size := e.cache.Stats()
	return Stats{
		Rules:       rules.Len(),
		CacheHits:   hits,
		CacheMisses: misses,
		CacheSize:   size,
	}
}
