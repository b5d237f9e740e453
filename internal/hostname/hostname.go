// Package hostname turns user input into the lowercase ASCII host form the
// suffix engine expects. The engine itself never normalizes.
package hostname

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

// Normalize accepts a bare host, host:port, or a URL and returns the host in
// lowercase ASCII with any trailing dot removed.
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty host")
	}

	if strings.Contains(raw, "://") {
		return FromURL(raw)
	}

	// Cut off any path, query or fragment.
	if i := strings.IndexAny(raw, "/?#"); i != -1 {
		raw = raw[:i]
	}

	return normalizeHost(raw)
}

// FromURL extracts and normalizes the host of an absolute URL.
func FromURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url has no host: %q", raw)
	}
	return normalizeHost(u.Host)
}

func normalizeHost(hostport string) (string, error) {
	hostport = strings.TrimSpace(hostport)

	// Strip userinfo if present: user:pass@host
	if at := strings.LastIndexByte(hostport, '@'); at != -1 {
		hostport = hostport[at+1:]
	}

	host := hostport

	// Best-effort host:port split. Works for both IPv4 and IPv6 with brackets.
	if strings.Contains(hostport, ":") {
		if h, _, err := net.SplitHostPort(hostport); err == nil {
			host = h
		}
	}

	// "example.com." → "example.com"
	host = strings.TrimSuffix(strings.TrimSpace(host), ".")

	if len(host) > 2 && host[0] == '[' && host[len(host)-1] == ']' {
		host = host[1 : len(host)-1]
	}

	if host == "" {
		return "", fmt.Errorf("empty host")
	}

	if ip := net.ParseIP(host); ip != nil {
		return ip.String(), nil
	}

	if isASCII(host) {
		return strings.ToLower(host), nil
	}

	asciiHost, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", fmt.Errorf("idna: %w", err)
	}
	return strings.ToLower(asciiHost), nil
}

// IsIP reports whether host is an IP literal. IPs have no public suffix.
func IsIP(host string) bool {
	return net.ParseIP(host) != nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
