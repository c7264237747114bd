// Package urlutil canonicalizes raw search-result URLs and filters them
// into a stable, deduplicated candidate set.
package urlutil

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// trackingParams is the deny-list of query parameters stripped during
// normalization. Everything else is kept and sorted.
var trackingParams = map[string]struct{}{
	"utm_source": {}, "utm_medium": {}, "utm_campaign": {}, "utm_term": {},
	"utm_content": {}, "utm_id": {}, "gclid": {}, "fbclid": {}, "msclkid": {},
	"mc_cid": {}, "mc_eid": {}, "ref": {}, "referrer": {},
}

// Normalize canonicalizes a raw URL: lowercase scheme and host, default
// ports stripped, fragment dropped, tracking parameters removed, remaining
// query sorted, trailing slash stripped except at the root.
func Normalize(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid url %q: unsupported scheme", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid url %q: missing host", raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if (u.Scheme == "http" && strings.HasSuffix(u.Host, ":80")) ||
		(u.Scheme == "https" && strings.HasSuffix(u.Host, ":443")) {
		u.Host = u.Host[:strings.LastIndex(u.Host, ":")]
	}
	u.Fragment = ""

	q := u.Query()
	for param := range q {
		if _, deny := trackingParams[strings.ToLower(param)]; deny {
			q.Del(param)
		}
	}
	if len(q) == 0 {
		u.RawQuery = ""
	} else {
		keys := make([]string, 0, len(q))
		for k := range q {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for _, k := range keys {
			for _, v := range q[k] {
				if b.Len() > 0 {
					b.WriteByte('&')
				}
				b.WriteString(url.QueryEscape(k))
				b.WriteByte('=')
				b.WriteString(url.QueryEscape(v))
			}
		}
		u.RawQuery = b.String()
	}

	if u.Path == "" {
		u.Path = "/"
	} else if u.Path != "/" {
		u.Path = strings.TrimRight(u.Path, "/")
		if u.Path == "" {
			u.Path = "/"
		}
	}
	return u.String(), nil
}

// Domain extracts the lowercased host (without port) from a URL, or an
// empty string when the URL cannot be parsed.
func Domain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// MatchesAny reports whether dom matches one of the excluded-domain
// patterns. A pattern starting with "." matches any host with that suffix
// (".edu" covers "mit.edu"); otherwise the pattern matches the exact
// domain or any subdomain of it.
func MatchesAny(dom string, patterns []string) bool {
	dom = strings.ToLower(dom)
	for _, p := range patterns {
		p = strings.ToLower(p)
		if strings.HasPrefix(p, ".") {
			if strings.HasSuffix(dom, p) || dom == strings.TrimPrefix(p, ".") {
				return true
			}
		} else if dom == p || strings.HasSuffix(dom, "."+p) {
			return true
		}
	}
	return false
}

// Blacklist is the subset of the blacklist store the filter needs.
type Blacklist interface {
	IsBlacklisted(domain string) bool
}

// FilterAndDedupe normalizes raw URLs, drops invalid ones, drops domains
// matching the excluded patterns or the blacklist, and removes duplicates.
// Output order is stable: first occurrence wins.
func FilterAndDedupe(raws []string, bl Blacklist, excluded []string) []string {
	seen := make(map[string]struct{}, len(raws))
	out := make([]string, 0, len(raws))
	for _, raw := range raws {
		normalized, err := Normalize(raw)
		if err != nil {
			continue
		}
		dom := Domain(normalized)
		if MatchesAny(dom, excluded) {
			continue
		}
		if bl != nil && bl.IsBlacklisted(dom) {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}
