package catalog

import "strings"

// AuthType is the authentication scheme an API requires. The set is open:
// the data may carry values not listed here.
type AuthType string

const (
	AuthNone   AuthType = "none"
	AuthAPIKey AuthType = "apiKey"
	AuthOAuth  AuthType = "OAuth"
)

// Label is the human-readable name of the scheme.
func (a AuthType) Label() string {
	switch strings.ToLower(string(a)) {
	case "none":
		return "No Auth"
	case "apikey":
		return "API Key"
	case "oauth":
		return "OAuth"
	}
	return string(a)
}

// CORS is a free-form marker of cross-origin support.
type CORS string

const (
	CORSYes     CORS = "yes"
	CORSNo      CORS = "no"
	CORSUnknown CORS = "unknown"
)

// Grade buckets an API's success rate.
type Grade string

const (
	GradeGood Grade = "good"
	GradeFair Grade = "fair"
	GradePoor Grade = "poor"
)

// API is one directory entry.
type API struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Auth        AuthType `json:"auth"`
	HTTPS       bool     `json:"https"`
	CORS        CORS     `json:"cors"`
	Link        string   `json:"link"`
	Slug        string   `json:"slug"`

	Latency     string   `json:"latency,omitempty"`
	SuccessRate *float64 `json:"successRate,omitempty"`
	Premium     bool     `json:"premium,omitempty"`
	Rating      *int     `json:"rating,omitempty"`
}

// RatingOrZero treats a missing rating as 0.
func (a API) RatingOrZero() int {
	if a.Rating == nil {
		return 0
	}
	return *a.Rating
}

// SuccessGrade is empty when the success rate is unknown.
func (a API) SuccessGrade() Grade {
	if a.SuccessRate == nil {
		return ""
	}
	switch r := *a.SuccessRate; {
	case r >= 98:
		return GradeGood
	case r >= 95:
		return GradeFair
	default:
		return GradePoor
	}
}

// clone copies the optional fields so callers cannot write through to
// the catalog's records.
func (a API) clone() API {
	if a.SuccessRate != nil {
		v := *a.SuccessRate
		a.SuccessRate = &v
	}
	if a.Rating != nil {
		v := *a.Rating
		a.Rating = &v
	}
	return a
}
