package features

import (
	"net/url"
	"strings"

	"suffixguard/internal/hostname"

	"github.com/PuerkitoBio/goquery"
)

// referenceAttrs lists the elements whose attribute points at another host.
var referenceAttrs = []struct {
	selector string
	attr     string
	kind     string
}{
	{"a[href]", "href", "link"},
	{"link[href]", "href", "stylesheet"},
	{"script[src]", "src", "script"},
	{"img[src]", "src", "image"},
	{"iframe[src]", "src", "iframe"},
	{"form[action]", "action", "form"},
}

// Reference is one host referenced by a page.
type Reference struct {
	Host  string
	Kinds []string // element kinds that referenced the host, first-seen order
}

// ExtractHosts returns the unique hosts referenced from htmlContent, in
// document order per element kind. Relative references resolve against
// pageURL and so count as the page's own host.
func ExtractHosts(htmlContent string, pageURL string) ([]Reference, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		// Garbage page URL: relative references just get dropped.
		base = &url.URL{}
	}

	var refs []Reference
	index := make(map[string]int)

	add := func(host, kind string) {
		i, seen := index[host]
		if !seen {
			index[host] = len(refs)
			refs = append(refs, Reference{Host: host, Kinds: []string{kind}})
			return
		}
		for _, k := range refs[i].Kinds {
			if k == kind {
				return
			}
		}
		refs[i].Kinds = append(refs[i].Kinds, kind)
	}

	for _, ra := range referenceAttrs {
		doc.Find(ra.selector).Each(func(_ int, s *goquery.Selection) {
			val, _ := s.Attr(ra.attr)
			host, ok := resolveHost(base, val)
			if ok {
				add(host, ra.kind)
			}
		})
	}

	return refs, nil
}

func resolveHost(base *url.URL, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return "", false
	}

	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	u = base.ResolveReference(u)

	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		// javascript:, mailto:, data: and friends
		return "", false
	}

	host, err := hostname.Normalize(u.Host)
	if err != nil {
		return "", false
	}
	return host, true
}
