package resource

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/buger/jsonparser"
)

// Sentinel errors for document parsing.
var (
	ErrEmpty     = errors.New("resource: empty document")
	ErrNotObject = errors.New("resource: document is not a JSON object")
	ErrInvalid   = errors.New("resource: invalid JSON")
)

// Resource is one FHIR document held as raw JSON.
//
// Field access goes through jsonparser paths, so a document is never decoded
// in full and re-encodes byte for byte. A Resource must not be modified after
// Parse; Bytes exposes the shared buffer.
type Resource struct {
	raw []byte
}

// Parse validates b as a JSON object and copies it into a Resource.
func Parse(b []byte) (Resource, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return Resource{}, ErrEmpty
	}
	if b[0] != '{' {
		return Resource{}, ErrNotObject
	}
	if !json.Valid(b) {
		return Resource{}, ErrInvalid
	}
	raw := make([]byte, len(b))
	copy(raw, b)
	return Resource{raw: raw}, nil
}

// MustParse is Parse for literals known to be valid. It panics on error.
func MustParse(s string) Resource {
	r, err := Parse([]byte(s))
	if err != nil {
		panic(fmt.Sprintf("resource.MustParse: %v", err))
	}
	return r
}

// IsZero reports whether r holds no document.
func (r Resource) IsZero() bool {
	return len(r.raw) == 0
}

// ID returns the "id" field, or "" when it is absent or not a string.
func (r Resource) ID() string {
	return r.String("id")
}

// Type returns the "resourceType" field.
func (r Resource) Type() string {
	return r.String("resourceType")
}

// String returns the string at path, or "" when the path is missing or holds
// another JSON type. Array elements are addressed as "[0]".
func (r Resource) String(path ...string) string {
	s, err := jsonparser.GetString(r.raw, path...)
	if err != nil {
		return ""
	}
	return s
}

// Lookup returns the raw value at path and its JSON type.
func (r Resource) Lookup(path ...string) ([]byte, jsonparser.ValueType, bool) {
	v, typ, _, err := jsonparser.Get(r.raw, path...)
	if err != nil || typ == jsonparser.NotExist {
		return nil, jsonparser.NotExist, false
	}
	return v, typ, true
}

// Has reports whether path exists.
func (r Resource) Has(path ...string) bool {
	_, _, ok := r.Lookup(path...)
	return ok
}

// ArrayEach calls fn for every element of the array at path. A missing path is
// not an error.
func (r Resource) ArrayEach(fn func(value []byte, typ jsonparser.ValueType), path ...string) error {
	if _, typ, ok := r.Lookup(path...); !ok {
		return nil
	} else if typ != jsonparser.Array {
		return fmt.Errorf("resource: %v is %s, not an array", path, typ)
	}
	_, err := jsonparser.ArrayEach(r.raw, func(value []byte, typ jsonparser.ValueType, _ int, _ error) {
		fn(value, typ)
	}, path...)
	return err
}

// Bytes returns the document bytes. Callers must not modify them.
func (r Resource) Bytes() []byte {
	return r.raw
}

// MarshalJSON emits the stored document unchanged.
func (r Resource) MarshalJSON() ([]byte, error) {
	if r.IsZero() {
		return []byte("null"), nil
	}
	return r.raw, nil
}

// UnmarshalJSON accepts a JSON object.
func (r *Resource) UnmarshalJSON(b []byte) error {
	parsed, err := Parse(b)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

var (
	_ json.Marshaler   = Resource{}
	_ json.Unmarshaler = (*Resource)(nil)
)
