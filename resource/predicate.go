package resource

import (
	"strings"

	"github.com/buger/jsonparser"
)

// Predicate selects documents. A nil Predicate matches everything.
type Predicate func(Resource) bool

// Match applies p, treating nil as match-all.
func (p Predicate) Match(r Resource) bool {
	return p == nil || p(r)
}

// referenceFields lists where a document names its patient.
var referenceFields = [][]string{
	{"patient", "reference"},
	{"subject", "reference"},
}

// BelongsToPatient matches documents whose patient.reference or
// subject.reference ends with "/"+patientID.
//
// The suffix test matches any reference type, so "Group/p1" also matches p1.
func BelongsToPatient(patientID string) Predicate {
	suffix := "/" + patientID
	return func(r Resource) bool {
		for _, path := range referenceFields {
			if strings.HasSuffix(r.String(path...), suffix) {
				return true
			}
		}
		return false
	}
}

// HasID matches the document with the given id.
func HasID(id string) Predicate {
	return func(r Resource) bool {
		return r.ID() == id
	}
}

// HasCategory matches when the first coding of any category entry has code.
func HasCategory(code string) Predicate {
	return func(r Resource) bool {
		found := false
		_ = r.ArrayEach(func(value []byte, typ jsonparser.ValueType) {
			if found || typ != jsonparser.Object {
				return
			}
			if c, err := jsonparser.GetString(value, "coding", "[0]", "code"); err == nil && c == code {
				found = true
			}
		}, "category")
		return found
	}
}

// And combines predicates. Nil entries are skipped; with no non-nil entries
// the result is nil, which matches everything.
func And(preds ...Predicate) Predicate {
	active := make([]Predicate, 0, len(preds))
	for _, p := range preds {
		if p != nil {
			active = append(active, p)
		}
	}
	switch len(active) {
	case 0:
		return nil
	case 1:
		return active[0]
	}
	return func(r Resource) bool {
		for _, p := range active {
			if !p(r) {
				return false
			}
		}
		return true
	}
}
