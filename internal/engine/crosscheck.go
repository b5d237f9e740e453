package engine

import (
	"golang.org/x/net/publicsuffix"
)

// Mismatch is a host where the loaded ruleset disagrees with the list
// compiled into golang.org/x/net/publicsuffix.
type Mismatch struct {
	Host      string
	Ours      string
	OursOK    bool
	Reference string
	ICANN     bool // reference answer came from an ICANN rule
}

// CrossCheck compares PublicSuffix for each host with the x/net reference.
// The reference falls back to the last label when nothing matches, so hosts
// we report as unmatched show up here whenever the reference still answers.
func (e *Engine) CrossCheck(hosts []string) []Mismatch {
	var out []Mismatch
	for _, h := range hosts {
		ours, ok := e.PublicSuffix(h)
		ref, icann := publicsuffix.PublicSuffix(h)
		if ok && ours == ref {
			continue
		}
		out = append(out, Mismatch{
			Host:      h,
			Ours:      ours,
			OursOK:    ok,
			Reference: ref,
			ICANN:     icann,
		})
	}
	return out
}
