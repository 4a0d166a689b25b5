// Package publicpath holds the list of paths that bypass authentication and
// admission control.
//
// A single List is shared by the authentication gate and the rate limiter so
// both stages always agree on what is public.
//
//	paths := publicpath.New(publicpath.Defaults()...)
//	paths.Match("/health/ready") // true
package publicpath

import (
	"slices"
	"strings"
)

// Rule matches a request path either exactly or by segment-aware prefix.
type Rule struct {
	Path   string `yaml:"path"`
	Prefix bool   `yaml:"prefix"`
}

// Exact returns a rule that only matches the given path.
func Exact(path string) Rule {
	return Rule{Path: normalize(path)}
}

// Prefix returns a rule that matches the path and everything below it.
func Prefix(path string) Rule {
	return Rule{Path: normalize(path), Prefix: true}
}

// Defaults returns the gateway's built-in public paths.
func Defaults() []Rule {
	return []Rule{
		Prefix("/health"),
		Exact("/metrics"),
		Exact("/api/auth/login"),
		Exact("/api/auth/register"),
		Exact("/api/auth/refresh"),
	}
}

// List is an immutable set of public path rules. The zero value matches nothing.
type List struct {
	rules []Rule
}

// New builds a List. Duplicate rules are collapsed.
func New(rules ...Rule) List {
	clean := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.Path == "" {
			continue
		}
		r.Path = normalize(r.Path)
		if slices.Contains(clean, r) {
			continue
		}
		clean = append(clean, r)
	}
	return List{rules: clean}
}

// Match reports whether path is public.
func (l List) Match(path string) bool {
	path = normalize(path)
	for _, r := range l.rules {
		if r.matches(path) {
			return true
		}
	}
	return false
}

// Rules returns a copy of the configured rules.
func (l List) Rules() []Rule {
	return slices.Clone(l.rules)
}

func (r Rule) matches(path string) bool {
	if path == r.Path {
		return true
	}
	if !r.Prefix {
		return false
	}
	if r.Path == "/" {
		return true
	}
	// "/health" covers "/health/ready" but not "/healthz".
	return strings.HasPrefix(path, r.Path+"/")
}

func normalize(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}
