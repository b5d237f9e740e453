package packet

import (
	"sort"
	"sync"

	"suffixguard/internal/engine"
)

// SiteCount is how often a registrable domain was seen, and through which
// hosts.
type SiteCount struct {
	Site  string
	Count int
	Hosts []string
}

// Tally groups observed hostnames by registrable domain. Hosts without one
// are counted separately, see Unmatched.
type Tally struct {
	engine *engine.Engine

	mu        sync.Mutex
	sites     map[string]*siteEntry
	unmatched map[string]int
}

type siteEntry struct {
	count int
	hosts map[string]struct{}
}

func NewTally(e *engine.Engine) *Tally {
	return &Tally{
		engine:    e,
		sites:     make(map[string]*siteEntry),
		unmatched: make(map[string]int),
	}
}

// Observe records host and returns its registrable domain, if any.
func (t *Tally) Observe(host string) (string, bool) {
	site, ok := t.engine.RegistrableDomain(host)
	if ok && site == "" {
		ok = false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !ok {
		t.unmatched[host]++
		return "", false
	}

	e := t.sites[site]
	if e == nil {
		e = &siteEntry{hosts: make(map[string]struct{})}
		t.sites[site] = e
	}
	e.count++
	e.hosts[host] = struct{}{}
	return site, true
}

// Sites returns the tally sorted by count, then name.
func (t *Tally) Sites() []SiteCount {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]SiteCount, 0, len(t.sites))
	for site, e := range t.sites {
		hosts := make([]string, 0, len(e.hosts))
		for h := range e.hosts {
			hosts = append(hosts, h)
		}
		sort.Strings(hosts)
		out = append(out, SiteCount{Site: site, Count: e.count, Hosts: hosts})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Site < out[j].Site
	})
	return out
}

// Unmatched returns hosts that had no registrable domain, with counts.
func (t *Tally) Unmatched() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]int, len(t.unmatched))
	for h, n := range t.unmatched {
		out[h] = n
	}
	return out
}
