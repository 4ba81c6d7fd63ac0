// Package validation wraps go-playground/validator with a shared instance
// and readable field errors. It is used for catalog records at load time
// and for service configuration.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is a single failed rule.
type FieldError struct {
	Field   string
	Tag     string
	Param   string
	Message string
}

func (e FieldError) Error() string { return e.Message }

// Error collects every failed rule of one struct.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, "; ")
}

// First returns the first failed rule, which callers use for short reports.
func (e *Error) First() FieldError {
	if len(e.Fields) == 0 {
		return FieldError{}
	}
	return e.Fields[0]
}

// Validator returns the shared instance. Field names in errors come from
// the json tag, then the koanf tag, so messages match what users wrote.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(tagName)
	})
	return validate
}

// Struct validates s. It returns nil or an *Error.
func Struct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &Error{Fields: []FieldError{{Field: "unknown", Tag: "unknown", Message: err.Error()}}}
	}

	out := &Error{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fieldPath(fe),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: translate(fe),
		})
	}
	return out
}

func tagName(f reflect.StructField) string {
	for _, key := range []string{"json", "koanf"} {
		name := strings.SplitN(f.Tag.Get(key), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

var messageTemplates = map[string]string{
	"required": "%s is required",
	"url":      "%s must be a valid URL",
}

var messageWithParam = map[string]string{
	"oneof":       "%s must be one of: %s",
	"gte":         "%s must be greater than or equal to %s",
	"lte":         "%s must be less than or equal to %s",
	"min":         "%s must be at least %s",
	"max":         "%s must be at most %s",
	"required_if": "%s is required when %s",
}

func translate(fe validator.FieldError) string {
	field := fieldPath(fe)
	if tmpl, ok := messageTemplates[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, field)
	}
	if tmpl, ok := messageWithParam[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}
