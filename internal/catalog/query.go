package catalog

import "strings"

// Filter combines the directory's filters. Every set field must match
// (logical AND); within Categories or AuthTypes any listed value may match.
// Empty fields place no constraint. Listed values are compared as given,
// the same way FilterByCategory and FilterByAuth compare them.
type Filter struct {
	Query      string
	Categories []string
	AuthTypes  []string
	HTTPS      *bool
}

// Query applies f, keeping source order.
func (c *Catalog) Query(f Filter) []API {
	m := f.matcher()
	return c.collect(m)
}

func (f Filter) matcher() func(API) bool {
	text := newTextMatcher(f.Query)
	cats := newFoldSet(f.Categories)
	auths := newFoldSet(f.AuthTypes)
	https := f.HTTPS

	return func(a API) bool {
		if !text.match(a) {
			return false
		}
		if cats != nil && !cats.has(a.Category) {
			return false
		}
		if auths != nil && !auths.has(string(a.Auth)) {
			return false
		}
		if https != nil && a.HTTPS != *https {
			return false
		}
		return true
	}
}

type textMatcher struct {
	q string
}

func newTextMatcher(query string) textMatcher {
	return textMatcher{q: strings.ToLower(strings.TrimSpace(query))}
}

func (m textMatcher) match(a API) bool {
	if m.q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(a.Name), m.q) ||
		strings.Contains(strings.ToLower(a.Description), m.q) ||
		strings.Contains(strings.ToLower(a.Category), m.q)
}

// facetEqual is the one comparison rule for category and auth filters.
func facetEqual(value, want string) bool {
	return strings.EqualFold(value, want)
}

// foldSet matches any of its values under facetEqual; nil means no
// constraint.
type foldSet []string

func newFoldSet(values []string) foldSet {
	if len(values) == 0 {
		return nil
	}
	return foldSet(values)
}

func (s foldSet) has(v string) bool {
	for _, want := range s {
		if facetEqual(v, want) {
			return true
		}
	}
	return false
}
