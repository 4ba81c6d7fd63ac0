package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"APIHub/data"
	"APIHub/internal/validation"
)

// ErrDataLoad matches every *LoadError via errors.Is.
var ErrDataLoad = errors.New("catalog data load failed")

// LoadError reports why a source could not produce a catalog. Index is the
// offending record's position, or -1 when the failure is not tied to one.
type LoadError struct {
	Source string
	Index  int
	Field  string
	Err    error
}

func (e *LoadError) Error() string {
	msg := "load " + e.Source
	if e.Index >= 0 {
		msg += ": record " + strconv.Itoa(e.Index)
	}
	if e.Field != "" {
		msg += ": field " + e.Field
	}
	return msg + ": " + e.Err.Error()
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool { return target == ErrDataLoad }

// Source produces the full record list once, at start.
type Source interface {
	Name() string
	Load(ctx context.Context) ([]API, error)
}

// Load reads src, validates every record and builds the catalog. Any
// failure aborts the whole load.
func Load(ctx context.Context, src Source, log *zap.Logger) (*Catalog, error) {
	if log == nil {
		log = zap.NewNop()
	}

	apis, err := src.Load(ctx)
	if err != nil {
		var le *LoadError
		if !errors.As(err, &le) {
			err = &LoadError{Source: src.Name(), Index: -1, Err: err}
		}
		return nil, err
	}

	c := New(apis, WithSource(src.Name()))

	log.Info("catalog loaded",
		zap.String("source", c.Source()),
		zap.String("revision", c.Revision()),
		zap.Int("apis", c.Count()),
		zap.Int("categories", len(c.categories)),
		zap.Int("auth_types", len(c.authTypes)),
	)
	for _, is := range c.Issues() {
		log.Warn("catalog integrity issue",
			zap.String("kind", string(is.Kind)),
			zap.String("key", is.Key),
			zap.String("detail", is.Detail),
		)
	}
	return c, nil
}

// record is the wire form. Pointers mark fields whose presence is checked.
type record struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description" validate:"required"`
	Category    string   `json:"category" validate:"required"`
	Auth        string   `json:"auth" validate:"required"`
	HTTPS       *bool    `json:"https" validate:"required"`
	CORS        string   `json:"cors" validate:"required"`
	Link        string   `json:"link" validate:"required"`
	Slug        string   `json:"slug" validate:"required"`
	Latency     string   `json:"latency"`
	SuccessRate *float64 `json:"successRate" validate:"omitnil,gte=0,lte=100"`
	Premium     bool     `json:"premium"`
	Rating      *int     `json:"rating" validate:"omitnil,gte=0,lte=5"`
}

func (r record) api() API {
	return API{
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		Auth:        AuthType(r.Auth),
		HTTPS:       *r.HTTPS,
		CORS:        CORS(r.CORS),
		Link:        r.Link,
		Slug:        r.Slug,
		Latency:     r.Latency,
		SuccessRate: r.SuccessRate,
		Premium:     r.Premium,
		Rating:      r.Rating,
	}
}

func validateRecords(source string, recs []record) ([]API, error) {
	out := make([]API, 0, len(recs))
	for i, rec := range recs {
		if err := validation.Struct(rec); err != nil {
			le := &LoadError{Source: source, Index: i, Err: err}
			var verr *validation.Error
			if errors.As(err, &verr) {
				le.Field = verr.First().Field
			}
			return nil, le
		}
		out = append(out, rec.api())
	}
	return out, nil
}

// DecodeJSON parses a JSON array of records. Unknown fields, wrong types
// and trailing data are rejected.
func DecodeJSON(r io.Reader, source string) ([]API, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var recs []record
	if err := dec.Decode(&recs); err != nil {
		return nil, &LoadError{Source: source, Index: -1, Err: fmt.Errorf("decode: %w", err)}
	}
	if recs == nil {
		return nil, &LoadError{Source: source, Index: -1, Err: errors.New("expected a JSON array of records")}
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, &LoadError{Source: source, Index: -1, Err: errors.New("extra data after JSON array")}
	}

	return validateRecords(source, recs)
}

// EmbeddedSource serves the dataset compiled into the binary.
type EmbeddedSource struct{}

func (EmbeddedSource) Name() string { return "embedded" }

func (s EmbeddedSource) Load(ctx context.Context) ([]API, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return DecodeJSON(bytes.NewReader(data.APIs), s.Name())
}

// FileSource reads a JSON array from disk.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return "file:" + s.Path }

func (s FileSource) Load(ctx context.Context) ([]API, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return nil, &LoadError{Source: s.Name(), Index: -1, Err: err}
	}
	defer f.Close()

	return DecodeJSON(f, s.Name())
}
