package suffix

import "strings"

// Suffix returns the public suffix of host.
//
// The host is walked from its full form toward the root, one label at a
// time, and the first level with a rule decides the answer, so the longest
// applicable rule wins. ok is false when no level matched any rule; there is
// no fallback to the last label. An empty host, or one whose last label is
// empty, yields ("", true).
func (rs *RuleSet) Suffix(host string) (suffix string, ok bool) {
	m := rs.Match(host)
	return m.Suffix, m.OK
}

// Match is the outcome of a suffix lookup together with the rule that
// decided it. Rule is the zero value when no rule was involved.
type Match struct {
	Suffix string
	OK     bool
	Rule   RuleEntry
	Ruled  bool
}

// Match runs the same walk as Suffix and also reports the deciding rule.
func (rs *RuleSet) Match(host string) Match {
	if host == "" || strings.HasSuffix(host, ".") {
		return Match{OK: true}
	}

	current := host
	previous, hasPrevious := "", false

	for {
		next, hasNext := "", false
		if dot := strings.IndexByte(current, '.'); dot >= 0 {
			next, hasNext = current[dot+1:], true
		}

		if entry, found := rs.Lookup(current); found {
			switch {
			case entry.Kind == Wildcard && hasPrevious:
				return Match{Suffix: previous, OK: true, Rule: entry, Ruled: true}
			case entry.Kind == Normal || !hasNext:
				return Match{Suffix: current, OK: true, Rule: entry, Ruled: true}
			case entry.Kind == Exception:
				return Match{Suffix: next, OK: true, Rule: entry, Ruled: true}
			}
		}

		if !hasNext {
			return Match{}
		}
		previous, hasPrevious = current, true
		current = next
	}
}

// Line renders the rule back in list syntax.
func (e RuleEntry) Line() string {
	switch e.Kind {
	case Wildcard:
		return "*." + e.Text
	case Exception:
		return "!" + e.Text
	default:
		return e.Text
	}
}

// PublicSuffix is Suffix under the name callers usually look for.
func (rs *RuleSet) PublicSuffix(host string) (string, bool) {
	return rs.Suffix(host)
}

// RegistrableDomain returns the eTLD+1 of host.
func (rs *RuleSet) RegistrableDomain(host string) (string, bool) {
	return rs.BaseDomain(host, 1)
}

// BaseDomain returns the public suffix of host plus additionalParts labels.
func (rs *RuleSet) BaseDomain(host string, additionalParts int) (string, bool) {
	s, ok := rs.Suffix(host)
	return BaseDomain(host, s, ok, additionalParts)
}
