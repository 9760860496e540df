package bundle

import (
	"errors"
	"fmt"

	"github.com/jonwraymond/fhirstore/resource"
)

// ErrMissingID is returned when a document to wrap has no id.
var ErrMissingID = errors.New("bundle: resource has no id")

// Bundle is a FHIR searchset envelope.
type Bundle struct {
	ResourceType string  `json:"resourceType"`
	Type         string  `json:"type"`
	Total        int     `json:"total"`
	Link         []Link  `json:"link"`
	Entry        []Entry `json:"entry"`
}

// Link is a bundle navigation link.
type Link struct {
	Relation string `json:"relation"`
	URL      string `json:"url"`
}

// Entry is one matched document.
type Entry struct {
	FullURL  string            `json:"fullUrl"`
	Resource resource.Resource `json:"resource"`
	Search   Search            `json:"search"`
}

// Search carries how an entry was selected.
type Search struct {
	Mode string `json:"mode"`
}

// Option configures Wrap.
type Option func(*wrapConfig)

type wrapConfig struct {
	total   int
	selfURL string
}

// WithTotal sets the reported total, typically the full match count when the
// entries are a page. Negative values are ignored.
func WithTotal(n int) Option {
	return func(c *wrapConfig) {
		if n >= 0 {
			c.total = n
		}
	}
}

// WithSelfURL replaces the default "/{type}" self link.
func WithSelfURL(url string) Option {
	return func(c *wrapConfig) {
		if url != "" {
			c.selfURL = url
		}
	}
}

// Wrap builds a searchset bundle over resources in their given order.
// Each entry gets fullUrl "/{type}/{id}" and search mode "match". Every
// document must carry an id.
func Wrap(resources []resource.Resource, resourceType string, opts ...Option) (Bundle, error) {
	cfg := wrapConfig{total: -1, selfURL: "/" + resourceType}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.total < 0 {
		cfg.total = len(resources)
	}

	entries := make([]Entry, 0, len(resources))
	for i, r := range resources {
		id := r.ID()
		if id == "" {
			return Bundle{}, fmt.Errorf("%w: entry %d", ErrMissingID, i)
		}
		entries = append(entries, Entry{
			FullURL:  "/" + resourceType + "/" + id,
			Resource: r,
			Search:   Search{Mode: "match"},
		})
	}

	return Bundle{
		ResourceType: "Bundle",
		Type:         "searchset",
		Total:        cfg.total,
		Link:         []Link{{Relation: "self", URL: cfg.selfURL}},
		Entry:        entries,
	}, nil
}

// Resources returns the wrapped documents in entry order.
func (b Bundle) Resources() []resource.Resource {
	out := make([]resource.Resource, len(b.Entry))
	for i, e := range b.Entry {
		out[i] = e.Resource
	}
	return out
}
