package catalog_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"APIHub/internal/catalog"
)

type listBody struct {
	Count int `json:"count"`
	Items []struct {
		Slug         string `json:"slug"`
		Name         string `json:"name"`
		Auth         string `json:"auth"`
		AuthLabel    string `json:"authLabel"`
		SuccessGrade string `json:"successGrade"`
		Rating       *int   `json:"rating"`
	} `json:"items"`
}

func (b listBody) slugs() []string {
	out := []string{}
	for _, it := range b.Items {
		out = append(out, it.Slug)
	}
	return out
}

func newCatalogTS(t *testing.T, deps catalog.HTTPDeps) *httptest.Server {
	t.Helper()

	s := &catalog.Server{
		Catalog: catalog.New(fixture(), catalog.WithRevision("rev-1"), catalog.WithSource("fixture")),
		Log:     zap.NewNop(),
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Service == "" {
		deps.Service = "catalog"
	}

	ts := httptest.NewServer(catalog.NewHandler(s, deps))
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, raw
}

func getList(t *testing.T, url string) listBody {
	t.Helper()

	resp, raw := get(t, url, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s status=%d body=%s", url, resp.StatusCode, string(raw))
	}

	var b listBody
	if err := json.Unmarshal(raw, &b); err != nil {
		t.Fatalf("decode: %v body=%s", err, string(raw))
	}
	if b.Count != len(b.Items) {
		t.Fatalf("count=%d items=%d", b.Count, len(b.Items))
	}
	return b
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestHTTP_Health(t *testing.T) {
	ts := newCatalogTS(t, catalog.HTTPDeps{})

	for _, p := range []string{"/healthz", "/readyz"} {
		resp, _ := get(t, ts.URL+p, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s status=%d", p, resp.StatusCode)
		}
	}
}

func TestHTTP_List(t *testing.T) {
	ts := newCatalogTS(t, catalog.HTTPDeps{})

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"cat-facts", "dog-ceo", "ebird", "github", "pokeapi", "deck"}},
		{"?q=cat", []string{"cat-facts"}},
		{"?q=%20%20", []string{"cat-facts", "dog-ceo", "ebird", "github", "pokeapi", "deck"}},
		{"?categories=Animals&https=true", []string{"cat-facts", "ebird"}},
		{"?categories=Development&categories=Games%20%26%20Comics", []string{"github", "pokeapi", "deck"}},
		{"?auth=apiKey&auth=OAuth", []string{"ebird", "github"}},
		{"?https=false", []string{"dog-ceo", "deck"}},
		{"?q=o&categories=animals&auth=none&https=false", []string{"dog-ceo"}},
		{"?categories=Weather", []string{}},
	}

	for _, tt := range tests {
		b := getList(t, ts.URL+"/apis"+tt.query)
		if !equal(b.slugs(), tt.want) {
			t.Fatalf("GET /apis%s=%v want=%v", tt.query, b.slugs(), tt.want)
		}
	}
}

func TestHTTP_List_BadHTTPS(t *testing.T) {
	ts := newCatalogTS(t, catalog.HTTPDeps{})

	resp, raw := get(t, ts.URL+"/apis?https=maybe", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(raw))
	}
}

func TestHTTP_GetBySlug(t *testing.T) {
	ts := newCatalogTS(t, catalog.HTTPDeps{})

	resp, raw := get(t, ts.URL+"/apis/github", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(raw))
	}

	var got struct {
		Slug         string  `json:"slug"`
		Name         string  `json:"name"`
		AuthLabel    string  `json:"authLabel"`
		SuccessRate  float64 `json:"successRate"`
		SuccessGrade string  `json:"successGrade"`
		Rating       int     `json:"rating"`
	}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Slug != "github" || got.Name != "GitHub" || got.Rating != 5 {
		t.Fatalf("got=%+v", got)
	}
	if got.AuthLabel != "OAuth" || got.SuccessGrade != "good" || got.SuccessRate != 99.9 {
		t.Fatalf("got=%+v", got)
	}
}

func TestHTTP_GetBySlug_NotFound(t *testing.T) {
	ts := newCatalogTS(t, catalog.HTTPDeps{})

	resp, raw := get(t, ts.URL+"/apis/nope", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d", resp.StatusCode)
	}

	var e struct {
		Error     string         `json:"error"`
		Details   map[string]any `json:"details"`
		RequestID string         `json:"request_id"`
	}
	if err := json.Unmarshal(raw, &e); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.Error != "not found" || e.Details["slug"] != "nope" || e.RequestID == "" {
		t.Fatalf("error body=%+v", e)
	}
}

func TestHTTP_ByCategory(t *testing.T) {
	ts := newCatalogTS(t, catalog.HTTPDeps{})

	b := getList(t, ts.URL+"/apis/category/games-&-comics")
	if !equal(b.slugs(), []string{"pokeapi", "deck"}) {
		t.Fatalf("slugs=%v", b.slugs())
	}

	b = getList(t, ts.URL+"/apis/category/animals")
	if !equal(b.slugs(), []string{"cat-facts", "dog-ceo", "ebird"}) {
		t.Fatalf("slugs=%v", b.slugs())
	}

	resp, _ := get(t, ts.URL+"/apis/category/weather", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown category status=%d", resp.StatusCode)
	}
}

func TestHTTP_ByAuth(t *testing.T) {
	ts := newCatalogTS(t, catalog.HTTPDeps{})

	b := getList(t, ts.URL+"/apis/auth/apikey")
	if !equal(b.slugs(), []string{"ebird"}) {
		t.Fatalf("slugs=%v", b.slugs())
	}
	if b.Items[0].AuthLabel != "API Key" {
		t.Fatalf("label=%q", b.Items[0].AuthLabel)
	}

	resp, _ := get(t, ts.URL+"/apis/auth/basic", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown auth status=%d", resp.StatusCode)
	}
}

func TestHTTP_ByHTTPS(t *testing.T) {
	ts := newCatalogTS(t, catalog.HTTPDeps{})

	if b := getList(t, ts.URL+"/apis/https/true"); !equal(b.slugs(), []string{"cat-facts", "ebird", "github", "pokeapi"}) {
		t.Fatalf("true=%v", b.slugs())
	}
	if b := getList(t, ts.URL+"/apis/https/false"); !equal(b.slugs(), []string{"dog-ceo", "deck"}) {
		t.Fatalf("false=%v", b.slugs())
	}

	resp, _ := get(t, ts.URL+"/apis/https/yes", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d", resp.StatusCode)
	}
}

func TestHTTP_Featured(t *testing.T) {
	ts := newCatalogTS(t, catalog.HTTPDeps{})

	b := getList(t, ts.URL+"/featured?limit=3")
	if !equal(b.slugs(), []string{"dog-ceo", "github", "cat-facts"}) {
		t.Fatalf("featured=%v", b.slugs())
	}

	if b := getList(t, ts.URL+"/featured"); b.Count != 6 {
		t.Fatalf("default featured count=%d", b.Count)
	}

	for _, bad := range []string{"0", "-1", "x", "101"} {
		resp, _ := get(t, ts.URL+"/featured?limit="+bad, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("limit=%s status=%d", bad, resp.StatusCode)
		}
	}
}

func TestHTTP_FacetsAndStats(t *testing.T) {
	ts := newCatalogTS(t, catalog.HTTPDeps{})

	resp, raw := get(t, ts.URL+"/facets", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	var facets struct {
		Categories []struct{ Value, Label, Slug string } `json:"categories"`
		AuthTypes  []struct{ Value, Label, Slug string } `json:"authTypes"`
		HTTPS      []bool                                `json:"https"`
	}
	if err := json.Unmarshal(raw, &facets); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(facets.Categories) != 4 || facets.Categories[1].Value != "Development" || facets.Categories[2].Slug != "games-&-comics" {
		t.Fatalf("categories=%+v", facets.Categories)
	}
	if len(facets.AuthTypes) != 4 || facets.AuthTypes[3].Label != "No Auth" || facets.AuthTypes[2].Slug != "apikey" {
		t.Fatalf("auth=%+v", facets.AuthTypes)
	}
	if len(facets.HTTPS) != 2 {
		t.Fatalf("https=%v", facets.HTTPS)
	}

	resp, raw = get(t, ts.URL+"/stats", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	var stats struct {
		APIs            int    `json:"apis"`
		Categories      int    `json:"categories"`
		Revision        string `json:"revision"`
		Source          string `json:"source"`
		IntegrityIssues int    `json:"integrityIssues"`
	}
	if err := json.Unmarshal(raw, &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.APIs != 6 || stats.Categories != 4 || stats.Revision != "rev-1" || stats.Source != "fixture" {
		t.Fatalf("stats=%+v", stats)
	}
	if stats.IntegrityIssues != 2 {
		t.Fatalf("issues=%d", stats.IntegrityIssues)
	}
}

func TestHTTP_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	ts := newCatalogTS(t, catalog.HTTPDeps{
		Registry:       reg,
		MetricsEnabled: true,
		MetricsToken:   "secret",
	})

	_, _ = get(t, ts.URL+"/apis/github", nil)

	resp, _ := get(t, ts.URL+"/metrics", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("metrics without token status=%d", resp.StatusCode)
	}

	resp, raw := get(t, ts.URL+"/metrics", map[string]string{"Authorization": "Bearer secret"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status=%d", resp.StatusCode)
	}
	body := string(raw)
	if !strings.Contains(body, `apihub_http_requests_total{method="GET",path="/apis/{slug}",service="catalog",status="200"}`) {
		t.Fatalf("request counter missing:\n%s", body)
	}
}

func TestHTTP_CORS(t *testing.T) {
	ts := newCatalogTS(t, catalog.HTTPDeps{CORSOrigins: []string{"https://site.example"}})

	resp, _ := get(t, ts.URL+"/apis", map[string]string{"Origin": "https://site.example"})
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://site.example" {
		t.Fatalf("allow-origin=%q", got)
	}

	resp, _ = get(t, ts.URL+"/apis", map[string]string{"Origin": "https://other.example"})
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("foreign origin allowed: %q", got)
	}
}

func TestHTTP_RateLimit(t *testing.T) {
	ts := newCatalogTS(t, catalog.HTTPDeps{RateLimitRequests: 2, RateLimitWindow: time.Minute})

	for i := 0; i < 2; i++ {
		if resp, _ := get(t, ts.URL+"/stats", nil); resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d status=%d", i, resp.StatusCode)
		}
	}
	resp, _ := get(t, ts.URL+"/stats", nil)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status=%d want 429", resp.StatusCode)
	}
}

func TestHTTP_List_RepeatedParams(t *testing.T) {
	books := api("books", "Open Library", "Books, Comics", catalog.AuthNone, true)
	s := &catalog.Server{Catalog: catalog.New(append(fixture(), books)), Log: zap.NewNop()}
	ts := httptest.NewServer(catalog.NewHandler(s, catalog.HTTPDeps{Log: zap.NewNop(), Service: "catalog"}))
	t.Cleanup(ts.Close)

	b := getList(t, ts.URL+"/apis?categories=books,%20comics")
	if !equal(b.slugs(), []string{"books"}) {
		t.Fatalf("comma category=%v", b.slugs())
	}

	b = getList(t, ts.URL+"/apis?categories=Books,%20Comics&categories=Development&categories=%20")
	if !equal(b.slugs(), []string{"github", "books"}) {
		t.Fatalf("repeated categories=%v", b.slugs())
	}
}

func TestHTTP_RejectionsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := &catalog.Server{Catalog: catalog.New(fixture()), Log: zap.New(core)}
	ts := httptest.NewServer(catalog.NewHandler(s, catalog.HTTPDeps{Log: zap.NewNop(), Service: "catalog"}))
	t.Cleanup(ts.Close)

	get(t, ts.URL+"/apis/category/weather", nil)
	get(t, ts.URL+"/featured?limit=x", nil)
	get(t, ts.URL+"/apis/github", nil)

	entries := logs.FilterMessage("request rejected").All()
	if len(entries) != 2 {
		t.Fatalf("rejections logged=%d want 2", len(entries))
	}

	first := entries[0].ContextMap()
	if first["category"] != "weather" || first["status"] != int64(http.StatusNotFound) || first["reason"] != "unknown category" {
		t.Fatalf("first=%v", first)
	}
	second := entries[1].ContextMap()
	if second["limit"] != "x" || second["status"] != int64(http.StatusBadRequest) {
		t.Fatalf("second=%v", second)
	}
}
