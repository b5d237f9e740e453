// Package suffix implements public suffix matching over a parsed ruleset.
//
// A RuleSet is built once from the text of a public suffix list and is safe
// for concurrent use afterwards. Hosts are expected to already be lowercase
// ASCII; no IDN or case normalization happens here.
package suffix

import "strings"

type Kind int

const (
	Normal Kind = iota
	Wildcard
	Exception
)

func (k Kind) String() string {
	switch k {
	case Wildcard:
		return "wildcard"
	case Exception:
		return "exception"
	default:
		return "normal"
	}
}

// RuleEntry is one line of the ruleset. Text never carries the "*." or "!"
// prefix; Kind records which one was there.
type RuleEntry struct {
	Text string
	Kind Kind
}

// RuleSet maps lookup keys to their rule. It is never mutated after Parse.
type RuleSet struct {
	entries map[string]RuleEntry
}

// Parse builds a RuleSet from list text. It never fails: comments, blank
// lines and lines with an empty key are skipped. A key seen twice keeps the
// later entry.
func Parse(text string) *RuleSet {
	rs := &RuleSet{entries: make(map[string]RuleEntry)}

	for _, line := range strings.Split(text, "\n") {
		entry, ok := ParseLine(strings.TrimSuffix(line, "\r"))
		if !ok {
			continue
		}
		rs.entries[entry.Text] = entry
	}

	return rs
}

// ParseLine classifies a single ruleset line. ok is false for comments,
// blank lines and lines whose key is empty after stripping the prefix.
func ParseLine(line string) (entry RuleEntry, ok bool) {
	if line == "" || strings.HasPrefix(line, "//") {
		return RuleEntry{}, false
	}

	switch {
	case strings.HasPrefix(line, "*."):
		entry = RuleEntry{Text: line[2:], Kind: Wildcard}
	case strings.HasPrefix(line, "!"):
		entry = RuleEntry{Text: line[1:], Kind: Exception}
	default:
		entry = RuleEntry{Text: line, Kind: Normal}
	}

	if entry.Text == "" {
		return RuleEntry{}, false
	}
	return entry, true
}

// Lookup returns the rule stored under key.
func (rs *RuleSet) Lookup(key string) (RuleEntry, bool) {
	if rs == nil {
		return RuleEntry{}, false
	}
	e, ok := rs.entries[key]
	return e, ok
}

func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.entries)
}
