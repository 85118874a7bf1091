// Package wikiurl normalises wiki URLs and encodes page titles for use in them.
package wikiurl

import (
	"net/url"
	"strings"
)

// Secure upgrades a plain http:// URL to https://. Other values, including
// protocol-relative URLs and the empty string, pass through unchanged.
func Secure(u string) string {
	if strings.HasPrefix(u, "http://") {
		return "https://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

// Trim normalises a project root URL to exactly one trailing slash. The
// scheme is left as configured.
func Trim(u string) string {
	u = strings.TrimSpace(u)
	if u == "" {
		return ""
	}
	return strings.TrimRight(u, "/") + "/"
}

// Root is Trim with the scheme upgraded to https. Persisted roots are read
// through it.
func Root(u string) string {
	return Secure(Trim(u))
}

// Encode turns a page title into its URL path form. Spaces become
// underscores and each subpage segment is path-escaped.
func Encode(title string) string {
	segs := strings.Split(strings.ReplaceAll(title, " ", "_"), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

// Page returns the article URL for title under the given project root.
func Page(root, title string) string {
	return Trim(root) + "wiki/" + Encode(title)
}
