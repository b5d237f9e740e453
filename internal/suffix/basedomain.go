package suffix

import "strings"

// BaseDomain extends a computed suffix with up to additionalParts labels of
// host, taken from those closest to the suffix.
//
// The suffix is cut out of host at its first textual occurrence, not anchored
// at the end. For crafted hosts where an earlier label equals the suffix this
// splits in the wrong place; callers relying on the existing behaviour keep
// it.
func BaseDomain(host, suffix string, ok bool, additionalParts int) (string, bool) {
	if !ok {
		return "", false
	}
	if additionalParts <= 0 {
		return suffix, true
	}

	remainder := strings.Replace(host, suffix, "", 1)

	var tokens []string
	for _, t := range strings.Split(remainder, ".") {
		if t != "" {
			tokens = append(tokens, t)
		}
	}

	start := len(tokens) - additionalParts
	if start < 0 {
		start = 0
	}
	parts := strings.Join(tokens[start:], ".")

	switch {
	case parts == "":
		return suffix, true
	case suffix == "":
		return parts, true
	default:
		return parts + "." + suffix, true
	}
}
