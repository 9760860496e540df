package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// Args are the arguments of one producer invocation.
//
// Positional arguments are order-sensitive. Keyword arguments are serialised
// sorted by name, so {a:1,b:2} and {b:2,a:1} derive the same key.
type Args struct {
	Positional []any
	Keyword    map[string]any
}

// Pos builds Args from positional values.
func Pos(values ...any) Args {
	return Args{Positional: values}
}

// Kw builds Args from keyword values.
func Kw(values map[string]any) Args {
	return Args{Keyword: values}
}

// Keyer turns a producer invocation into a cache key. Implementations must
// be safe for concurrent use and must not depend on map iteration order.
type Keyer interface {
	Key(producerID string, args Args) (string, error)
}

// DefaultKeyer keys invocations as "<producerID>:<digest>", where digest is
// the first 16 bytes, hex encoded, of SHA-256 over the canonical JSON of the
// positional and keyword arguments.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key implements Keyer.
func (k *DefaultKeyer) Key(producerID string, args Args) (string, error) {
	if producerID == "" {
		return "", fmt.Errorf("%w: empty producer id", ErrInvalidKey)
	}

	var buf bytes.Buffer
	if err := writeCanonical(&buf, args.Positional); err != nil {
		return "", fmt.Errorf("cache: key %s positional args: %w", producerID, err)
	}
	buf.WriteByte('|')
	if err := writeCanonical(&buf, args.Keyword); err != nil {
		return "", fmt.Errorf("cache: key %s keyword args: %w", producerID, err)
	}

	digest := sha256.Sum256(buf.Bytes())
	return producerID + ":" + hex.EncodeToString(digest[:16]), nil
}

// writeCanonical appends the JSON encoding of v to buf with the keys of
// untyped maps sorted at every depth. Typed values go through encoding/json,
// which already sorts map keys.
func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case map[string]any:
		buf.WriteByte('{')
		for i, key := range slices.Sorted(maps.Keys(val)) {
			if i > 0 {
				buf.WriteByte(',')
			}
			name, _ := json.Marshal(key)
			buf.Write(name)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[key]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	return nil
}

var _ Keyer = (*DefaultKeyer)(nil)
