package catalog

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"APIHub/pkg/kit"
)

const maxFeaturedLimit = 100

type Server struct {
	Catalog       *Catalog
	Log           *zap.Logger
	FeaturedLimit int
}

// apiView is a record plus the display fields page renderers need.
type apiView struct {
	API
	AuthLabel    string `json:"authLabel"`
	SuccessGrade Grade  `json:"successGrade,omitempty"`
}

type listResponse struct {
	Count int       `json:"count"`
	Items []apiView `json:"items"`
}

type facet struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

type facetsResponse struct {
	Categories []facet `json:"categories"`
	AuthTypes  []facet `json:"authTypes"`
	HTTPS      []bool  `json:"https"`
}

type statsResponse struct {
	APIs            int    `json:"apis"`
	Categories      int    `json:"categories"`
	AuthTypes       int    `json:"authTypes"`
	Revision        string `json:"revision"`
	Source          string `json:"source"`
	IntegrityIssues int    `json:"integrityIssues"`
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if s.Catalog == nil {
			kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Get("/apis", s.list)
	r.Get("/apis/{slug}", s.get)
	r.Get("/apis/category/{category}", s.byCategory)
	r.Get("/apis/auth/{type}", s.byAuth)
	r.Get("/apis/https/{value}", s.byHTTPS)
	r.Get("/featured", s.featured)
	r.Get("/facets", s.facets)
	r.Get("/stats", s.stats)

	return r
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r.URL.Query())
	if err != nil {
		s.reject(w, r, http.StatusBadRequest, err.Error(), nil, zap.String("https", r.URL.Query().Get("https")))
		return
	}
	writeList(w, s.Catalog.Query(f))
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	slug := pathParam(r, "slug")

	a, ok := s.Catalog.GetBySlug(slug)
	if !ok {
		s.reject(w, r, http.StatusNotFound, "not found", map[string]any{"slug": slug}, zap.String("slug", slug))
		return
	}
	kit.WriteJSON(w, http.StatusOK, view(a))
}

func (s *Server) byCategory(w http.ResponseWriter, r *http.Request) {
	slug := pathParam(r, "category")

	category, ok := s.Catalog.CategoryBySlug(slug)
	if !ok {
		s.reject(w, r, http.StatusNotFound, "unknown category", map[string]any{"category": slug}, zap.String("category", slug))
		return
	}
	writeList(w, s.Catalog.FilterByCategory(category))
}

func (s *Server) byAuth(w http.ResponseWriter, r *http.Request) {
	slug := pathParam(r, "type")

	auth, ok := s.Catalog.AuthTypeBySlug(slug)
	if !ok {
		s.reject(w, r, http.StatusNotFound, "unknown auth type", map[string]any{"type": slug}, zap.String("type", slug))
		return
	}
	writeList(w, s.Catalog.FilterByAuth(string(auth)))
}

func (s *Server) byHTTPS(w http.ResponseWriter, r *http.Request) {
	var https bool
	switch v := chi.URLParam(r, "value"); v {
	case "true":
		https = true
	case "false":
	default:
		s.reject(w, r, http.StatusNotFound, "not found", map[string]any{"value": v}, zap.String("value", v))
		return
	}
	writeList(w, s.Catalog.FilterByHTTPS(https))
}

func (s *Server) featured(w http.ResponseWriter, r *http.Request) {
	limit := s.FeaturedLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxFeaturedLimit {
			s.reject(w, r, http.StatusBadRequest, "bad limit", map[string]any{"min": 1, "max": maxFeaturedLimit}, zap.String("limit", raw))
			return
		}
		limit = n
	}
	writeList(w, s.Catalog.Featured(limit))
}

func (s *Server) facets(w http.ResponseWriter, _ *http.Request) {
	cats := s.Catalog.DistinctCategories()
	auths := s.Catalog.DistinctAuthTypes()

	resp := facetsResponse{
		Categories: make([]facet, 0, len(cats)),
		AuthTypes:  make([]facet, 0, len(auths)),
		HTTPS:      []bool{true, false},
	}
	for _, c := range cats {
		resp.Categories = append(resp.Categories, facet{Value: c, Label: c, Slug: CategorySlug(c)})
	}
	for _, a := range auths {
		resp.AuthTypes = append(resp.AuthTypes, facet{Value: string(a), Label: a.Label(), Slug: AuthSlug(string(a))})
	}
	kit.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) stats(w http.ResponseWriter, _ *http.Request) {
	c := s.Catalog
	kit.WriteJSON(w, http.StatusOK, statsResponse{
		APIs:            c.Count(),
		Categories:      len(c.categories),
		AuthTypes:       len(c.authTypes),
		Revision:        c.Revision(),
		Source:          c.Source(),
		IntegrityIssues: len(c.issues),
	})
}

type badQueryError string

func (e badQueryError) Error() string { return string(e) }

func filterFromQuery(q url.Values) (Filter, error) {
	f := Filter{
		Query:      q.Get("q"),
		Categories: listParam(q, "categories"),
		AuthTypes:  listParam(q, "auth"),
	}

	switch v := q.Get("https"); v {
	case "":
	case "true", "false":
		b := v == "true"
		f.HTTPS = &b
	default:
		return Filter{}, badQueryError("bad https value")
	}
	return f, nil
}

// listParam collects a repeated query parameter (?categories=a&categories=b).
// Values are taken whole, since category names may contain commas; blank
// values are dropped.
func listParam(q url.Values, key string) []string {
	var out []string
	for _, v := range q[key] {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// reject writes an error response and records why the request was refused.
func (s *Server) reject(w http.ResponseWriter, r *http.Request, status int, msg string, details any, fields ...zap.Field) {
	if s.Log != nil {
		s.Log.Debug("request rejected", append(fields,
			zap.Int("status", status),
			zap.String("reason", msg),
			zap.String("path", r.URL.Path),
		)...)
	}
	kit.WriteError(w, r, status, msg, details)
}

// pathParam returns the unescaped URL parameter; chi hands back the raw
// segment when the path contains escapes.
func pathParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

func view(a API) apiView {
	return apiView{API: a, AuthLabel: a.Auth.Label(), SuccessGrade: a.SuccessGrade()}
}

func writeList(w http.ResponseWriter, apis []API) {
	items := make([]apiView, 0, len(apis))
	for _, a := range apis {
		items = append(items, view(a))
	}
	kit.WriteJSON(w, http.StatusOK, listResponse{Count: len(items), Items: items})
}
