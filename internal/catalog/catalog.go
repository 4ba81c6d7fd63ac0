// Package catalog holds the immutable API directory and answers read-only
// queries over it: lookup by slug, facet filters, free-text search, facet
// lists and the featured ranking. A *Catalog is safe for concurrent use
// because nothing mutates it after New returns.
package catalog

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

const DefaultFeaturedLimit = 6

// IssueKind classifies a data-integrity problem found while building a
// catalog. Issues never fail a load.
type IssueKind string

const (
	IssueDuplicateSlug     IssueKind = "duplicate_slug"
	IssueCaseVariantFacet  IssueKind = "case_variant_facet"
	IssueRouteSlugConflict IssueKind = "route_slug_conflict"
)

type Issue struct {
	Kind   IssueKind `json:"kind"`
	Key    string    `json:"key"`
	Detail string    `json:"detail"`
}

type Catalog struct {
	apis   []API
	bySlug map[string]int

	categories []string
	authTypes  []AuthType

	categoryRoutes map[string]string
	authRoutes     map[string]AuthType

	issues   []Issue
	revision string
	source   string
}

type Option func(*Catalog)

// WithRevision pins the revision id; otherwise a random one is generated.
func WithRevision(rev string) Option {
	return func(c *Catalog) { c.revision = rev }
}

func WithSource(name string) Option {
	return func(c *Catalog) { c.source = name }
}

// New builds a catalog from apis, keeping their order. The slice is copied.
// For duplicate slugs the first record wins lookups; the rest are reported
// by Issues.
func New(apis []API, opts ...Option) *Catalog {
	c := &Catalog{
		apis:   make([]API, 0, len(apis)),
		bySlug: make(map[string]int, len(apis)),
	}
	for _, o := range opts {
		o(c)
	}
	if c.revision == "" {
		c.revision = uuid.NewString()
	}

	for _, a := range apis {
		a = a.clone()
		if first, dup := c.bySlug[a.Slug]; dup {
			c.issues = append(c.issues, Issue{
				Kind:   IssueDuplicateSlug,
				Key:    a.Slug,
				Detail: "slug of " + quote(a.Name) + " already used by " + quote(c.apis[first].Name),
			})
		} else {
			c.bySlug[a.Slug] = len(c.apis)
		}
		c.apis = append(c.apis, a)
	}

	c.categories = distinct(c.apis, func(a API) string { return a.Category })
	authNames := distinct(c.apis, func(a API) string { return string(a.Auth) })
	c.authTypes = make([]AuthType, len(authNames))
	for i, s := range authNames {
		c.authTypes[i] = AuthType(s)
	}

	c.issues = append(c.issues, caseVariants("category", c.categories)...)
	c.issues = append(c.issues, caseVariants("auth", authNames)...)

	var issues []Issue
	c.categoryRoutes, issues = routeIndex("category", c.categories, CategorySlug)
	c.issues = append(c.issues, issues...)

	var authRoutes map[string]string
	authRoutes, issues = routeIndex("auth", authNames, AuthSlug)
	c.issues = append(c.issues, issues...)
	c.authRoutes = make(map[string]AuthType, len(authRoutes))
	for k, v := range authRoutes {
		c.authRoutes[k] = AuthType(v)
	}

	return c
}

// List returns every record in source order.
func (c *Catalog) List() []API {
	return c.collect(func(API) bool { return true })
}

// GetBySlug is a case-sensitive exact lookup.
func (c *Catalog) GetBySlug(slug string) (API, bool) {
	i, ok := c.bySlug[slug]
	if !ok {
		return API{}, false
	}
	return c.apis[i].clone(), true
}

// FilterByCategory matches the whole category name, ignoring case.
func (c *Catalog) FilterByCategory(category string) []API {
	return c.collect(func(a API) bool { return facetEqual(a.Category, category) })
}

// FilterByAuth matches the whole auth type, ignoring case.
func (c *Catalog) FilterByAuth(auth string) []API {
	return c.collect(func(a API) bool { return facetEqual(string(a.Auth), auth) })
}

func (c *Catalog) FilterByHTTPS(https bool) []API {
	return c.collect(func(a API) bool { return a.HTTPS == https })
}

// Search returns records whose name, description or category contains the
// trimmed query, ignoring case. A blank query matches everything.
func (c *Catalog) Search(query string) []API {
	m := newTextMatcher(query)
	return c.collect(m.match)
}

// DistinctCategories is sorted byte-wise and deduplicated case-sensitively,
// so "Dev" and "dev" are separate facets.
func (c *Catalog) DistinctCategories() []string {
	out := make([]string, len(c.categories))
	copy(out, c.categories)
	return out
}

// DistinctAuthTypes follows the same rules as DistinctCategories.
func (c *Catalog) DistinctAuthTypes() []AuthType {
	out := make([]AuthType, len(c.authTypes))
	copy(out, c.authTypes)
	return out
}

func (c *Catalog) Count() int { return len(c.apis) }

// Featured returns up to limit records ordered by rating, highest first.
// Missing ratings count as 0 and ties keep source order. limit <= 0 means
// DefaultFeaturedLimit.
func (c *Catalog) Featured(limit int) []API {
	if limit <= 0 {
		limit = DefaultFeaturedLimit
	}

	out := c.List()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RatingOrZero() > out[j].RatingOrZero()
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Issues lists the integrity problems found at build time.
func (c *Catalog) Issues() []Issue {
	return append([]Issue(nil), c.issues...)
}

// Revision identifies this particular load of the data.
func (c *Catalog) Revision() string { return c.revision }

// Source names where the data came from.
func (c *Catalog) Source() string { return c.source }

func (c *Catalog) collect(keep func(API) bool) []API {
	out := make([]API, 0)
	for _, a := range c.apis {
		if keep(a) {
			out = append(out, a.clone())
		}
	}
	return out
}

func distinct(apis []API, key func(API) string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, a := range apis {
		k := key(a)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// caseVariants reports facet values that differ only in case. They stay
// distinct facets; the report is for whoever curates the data.
func caseVariants(facet string, values []string) []Issue {
	groups := make(map[string][]string)
	var order []string
	for _, v := range values {
		k := strings.ToLower(v)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], v)
	}

	var out []Issue
	for _, k := range order {
		if vs := groups[k]; len(vs) > 1 {
			out = append(out, Issue{
				Kind:   IssueCaseVariantFacet,
				Key:    facet + ":" + k,
				Detail: facet + " values differ only in case: " + strings.Join(vs, ", "),
			})
		}
	}
	return out
}

func quote(s string) string { return `"` + s + `"` }
