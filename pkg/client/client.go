// Package client is a typed HTTP client for the catalog service.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"APIHub/internal/catalog"
)

var (
	ErrNotFound    = errors.New("catalog: not found")
	ErrBadRequest  = errors.New("catalog: bad request")
	ErrBadStatus   = errors.New("catalog: bad status")
	ErrUnavailable = errors.New("catalog: unavailable")
)

const defaultTimeout = 3 * time.Second

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

type List struct {
	Count int           `json:"count"`
	Items []catalog.API `json:"items"`
}

type Stats struct {
	APIs            int    `json:"apis"`
	Categories      int    `json:"categories"`
	AuthTypes       int    `json:"authTypes"`
	Revision        string `json:"revision"`
	Source          string `json:"source"`
	IntegrityIssues int    `json:"integrityIssues"`
}

func New(baseURL string) *Client {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: defaultTimeout},
	}
}

func (c *Client) Get(ctx context.Context, slug string) (catalog.API, error) {
	var a catalog.API
	err := c.get(ctx, "/apis/"+url.PathEscape(slug), nil, &a)
	return a, err
}

func (c *Client) Query(ctx context.Context, f catalog.Filter) (List, error) {
	q := url.Values{}
	if f.Query != "" {
		q.Set("q", f.Query)
	}
	for _, v := range f.Categories {
		q.Add("categories", v)
	}
	for _, v := range f.AuthTypes {
		q.Add("auth", v)
	}
	if f.HTTPS != nil {
		q.Set("https", strconv.FormatBool(*f.HTTPS))
	}

	var l List
	err := c.get(ctx, "/apis", q, &l)
	return l, err
}

func (c *Client) ByCategory(ctx context.Context, category string) (List, error) {
	var l List
	err := c.get(ctx, "/apis/category/"+url.PathEscape(catalog.CategorySlug(category)), nil, &l)
	return l, err
}

func (c *Client) ByAuth(ctx context.Context, auth string) (List, error) {
	var l List
	err := c.get(ctx, "/apis/auth/"+url.PathEscape(catalog.AuthSlug(auth)), nil, &l)
	return l, err
}

// Featured asks for the top rated records; limit <= 0 uses the server default.
func (c *Client) Featured(ctx context.Context, limit int) (List, error) {
	var q url.Values
	if limit > 0 {
		q = url.Values{"limit": {strconv.Itoa(limit)}}
	}

	var l List
	err := c.get(ctx, "/featured", q, &l)
	return l, err
}

func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := c.get(ctx, "/stats", nil, &s)
	return s, err
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		var ne net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
			return fmt.Errorf("%w: timeout: %v", ErrUnavailable, err)
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return ErrNotFound
	case http.StatusBadRequest:
		_, _ = io.Copy(io.Discard, resp.Body)
		return ErrBadRequest
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: status=%d", ErrBadStatus, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
