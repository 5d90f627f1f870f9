// Package routeprefix normalizes the configured base path and joins it onto
// route tails, keeping every generated path free of leading or trailing
// slash ambiguity.
package routeprefix

import "strings"

// Prefixer normalizes a basePath once and exposes Join for building route
// patterns and redirect Locations from it.
type Prefixer struct {
	prefix string // never starts or ends with "/"
}

// New strips one leading and one trailing "/" from basePath (if present)
// and returns a Prefixer for it.
func New(basePath string) *Prefixer {
	p := basePath
	p = strings.TrimPrefix(p, "/")
	p = strings.TrimSuffix(p, "/")
	return &Prefixer{prefix: p}
}

// Prefix returns the normalized base path (no leading or trailing slash).
func (p *Prefixer) Prefix() string {
	return p.prefix
}

// Join returns "/" + prefix + "/" + tail with doubled slashes collapsed.
// When the prefix is empty, it returns "/" + tail.
func (p *Prefixer) Join(tail string) string {
	tail = strings.TrimPrefix(tail, "/")
	var joined string
	if p.prefix == "" {
		joined = "/" + tail
	} else {
		joined = "/" + p.prefix + "/" + tail
	}
	for strings.Contains(joined, "//") {
		joined = strings.ReplaceAll(joined, "//", "/")
	}
	if joined != "/" && strings.HasSuffix(joined, "/") && !strings.HasSuffix(tail, "/") {
		// Join("") should yield a bare "/prefix" root, not "/prefix/".
		joined = strings.TrimSuffix(joined, "/")
	}
	return joined
}

// Pattern returns the Fiber-style route pattern "{prefix}/tailPattern",
// e.g. Pattern("api/*") -> "/api/*" or "/myapp/api/*".
func (p *Prefixer) Pattern(tailPattern string) string {
	return p.Join(tailPattern)
}
