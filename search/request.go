package search

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jonwraymond/fhirstore/cache"
	"github.com/jonwraymond/fhirstore/resource"
)

// DefaultCount is the page size when a request leaves Count unset.
const DefaultCount = 100

// MaxCount bounds a single page.
const MaxCount = 10000

// Errors returned for malformed requests.
var (
	ErrMissingType  = errors.New("search: resource type is required")
	ErrInvalidCount = errors.New("search: count out of range")
	ErrMissingID    = errors.New("search: id is required")
)

// Request is a typed search over one resource type.
type Request struct {
	ResourceType string
	Patient      string
	Category     string
	Count        int
}

// Normalize trims fields and applies DefaultCount.
func (r Request) Normalize() Request {
	r.ResourceType = strings.TrimSpace(r.ResourceType)
	r.Patient = strings.TrimSpace(r.Patient)
	r.Category = strings.TrimSpace(r.Category)
	if r.Count == 0 {
		r.Count = DefaultCount
	}
	return r
}

// Validate reports malformed requests. Call it on a normalized request.
func (r Request) Validate() error {
	if r.ResourceType == "" {
		return ErrMissingType
	}
	if r.Count < 0 || r.Count > MaxCount {
		return fmt.Errorf("%w: %d", ErrInvalidCount, r.Count)
	}
	return nil
}

// Predicate combines the patient and category filters. It is nil when the
// request filters nothing.
func (r Request) Predicate() resource.Predicate {
	var preds []resource.Predicate
	if r.Patient != "" {
		preds = append(preds, resource.BelongsToPatient(r.Patient))
	}
	if r.Category != "" {
		preds = append(preds, resource.HasCategory(r.Category))
	}
	return resource.And(preds...)
}

// SelfURL renders the request as a FHIR search URL with query-escaped
// values. ParseURL reads it back to the same request.
func (r Request) SelfURL() string {
	var params []string
	if r.Patient != "" {
		params = append(params, "patient="+url.QueryEscape(r.Patient))
	}
	if r.Category != "" {
		params = append(params, "category="+url.QueryEscape(r.Category))
	}
	if r.Count != DefaultCount {
		params = append(params, fmt.Sprintf("_count=%d", r.Count))
	}
	if len(params) == 0 {
		return "/" + r.ResourceType
	}
	return "/" + r.ResourceType + "?" + strings.Join(params, "&")
}

func (r Request) args() cache.Args {
	return cache.Kw(map[string]any{
		"type":     r.ResourceType,
		"patient":  r.Patient,
		"category": r.Category,
		"count":    r.Count,
	})
}

func requestFromArgs(a cache.Args) Request {
	str := func(k string) string {
		s, _ := a.Keyword[k].(string)
		return s
	}
	n, _ := a.Keyword["count"].(int)
	return Request{
		ResourceType: str("type"),
		Patient:      str("patient"),
		Category:     str("category"),
		Count:        n,
	}
}
