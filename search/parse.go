package search

import (
	"errors"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// ErrUnsupportedParam is returned for search parameters other than patient,
// subject, category and _count.
var ErrUnsupportedParam = errors.New("search: unsupported parameter")

// Target is a parsed FHIR URL: a read when ID is set, a search otherwise.
type Target struct {
	Request Request
	ID      string
}

// IsRead reports whether the target names a single resource.
func (t Target) IsRead() bool { return t.ID != "" }

// ParseURL parses "/Type/id" and "/Type?patient=..&category=..&_count=N".
// The leading slash is optional. subject is accepted as an alias of patient
// and a "Patient/" prefix on either is removed.
func ParseURL(raw string) (Target, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Target{}, fmt.Errorf("search: parse %q: %w", raw, err)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	var t Target
	switch len(parts) {
	case 1:
		t.Request.ResourceType = parts[0]
	case 2:
		t.Request.ResourceType, t.ID = parts[0], parts[1]
		if t.ID == "" {
			return Target{}, ErrMissingID
		}
	default:
		return Target{}, fmt.Errorf("search: unsupported path %q", u.Path)
	}
	if t.Request.ResourceType == "" {
		return Target{}, ErrMissingType
	}

	q := u.Query()
	if t.IsRead() && len(q) > 0 {
		return Target{}, fmt.Errorf("%w: parameters on a read", ErrUnsupportedParam)
	}
	for _, key := range slices.Sorted(maps.Keys(q)) {
		switch key {
		case "patient", "subject", "category", "_count":
		default:
			return Target{}, fmt.Errorf("%w: %s", ErrUnsupportedParam, key)
		}
	}

	// patient wins over subject; the last value of a repeated key wins.
	last := func(key string) string {
		vs := q[key]
		if len(vs) == 0 {
			return ""
		}
		return vs[len(vs)-1]
	}
	patient := last("patient")
	if _, ok := q["patient"]; !ok {
		patient = last("subject")
	}
	t.Request.Patient = strings.TrimPrefix(patient, "Patient/")
	t.Request.Category = last("category")
	if _, ok := q["_count"]; ok {
		v := last("_count")
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Target{}, fmt.Errorf("%w: %q", ErrInvalidCount, v)
		}
		t.Request.Count = n
	}

	t.Request = t.Request.Normalize()
	return t, nil
}
