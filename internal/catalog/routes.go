package catalog

import (
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// CategorySlug is the route key of a category: lower-cased, with each run
// of whitespace replaced by "-". Distinct categories can share a slug
// ("Web 3" and "web-3"); see Catalog.CategoryBySlug.
func CategorySlug(category string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(category), "-")
}

// AuthSlug is the route key of an auth type: lower-cased only.
func AuthSlug(auth string) string {
	return strings.ToLower(auth)
}

// CategoryBySlug resolves a route key back to its category. When several
// categories share the key the first in sorted order is returned and the
// conflict is listed in Issues.
func (c *Catalog) CategoryBySlug(slug string) (string, bool) {
	v, ok := c.categoryRoutes[strings.ToLower(slug)]
	return v, ok
}

func (c *Catalog) AuthTypeBySlug(slug string) (AuthType, bool) {
	v, ok := c.authRoutes[strings.ToLower(slug)]
	return v, ok
}

// routeIndex maps route keys to facet values. values must be sorted; the
// first value claims a key and later claimants are reported.
func routeIndex(facet string, values []string, slugOf func(string) string) (map[string]string, []Issue) {
	idx := make(map[string]string, len(values))
	var issues []Issue
	for _, v := range values {
		key := slugOf(v)
		if owner, taken := idx[key]; taken {
			issues = append(issues, Issue{
				Kind:   IssueRouteSlugConflict,
				Key:    facet + ":" + key,
				Detail: facet + " " + quote(v) + " shares route slug with " + quote(owner),
			})
			continue
		}
		idx[key] = v
	}
	return idx, issues
}
