package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/jonwraymond/fhirstore/observe"
	"github.com/jonwraymond/fhirstore/resource"
)

// Store answers typed queries over NDJSON datasets.
//
// Contract:
// - Documents are yielded in registered dataset order, then file line order.
// - limit <= 0 means unlimited; only matching documents count toward limit.
// - Unregistered types return ErrResourceTypeNotFound.
// - Missing files and malformed lines are skipped, never returned as errors.
// - Concurrency: implementations must be safe for concurrent use.
type Store interface {
	Query(ctx context.Context, resourceType string, pred resource.Predicate, limit int) ([]resource.Resource, error)
	Types() []string
	Mode() Mode
}

// Scanner is implemented by stores that can visit matches without collecting
// them. visit returns false to stop.
type Scanner interface {
	Scan(ctx context.Context, resourceType string, pred resource.Predicate, visit func(resource.Resource) bool) error
}

// Mode selects how a store reads its datasets.
type Mode string

const (
	// ModeStreaming reads files on every query.
	ModeStreaming Mode = "streaming"
	// ModePreloaded reads every file once and answers from memory.
	ModePreloaded Mode = "preloaded"
)

// ParseMode parses a mode name. Empty selects ModeStreaming.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeStreaming:
		return ModeStreaming, nil
	case ModePreloaded:
		return ModePreloaded, nil
	default:
		return "", fmt.Errorf("store: unknown mode %q", s)
	}
}

// DefaultMaxConcurrentReads bounds open dataset files per store.
const DefaultMaxConcurrentReads = 8

// DefaultMaxLineSize is the longest NDJSON line accepted.
const DefaultMaxLineSize = 16 << 20

// Option configures a store.
type Option func(*options)

type options struct {
	logger             observe.Logger
	maxConcurrentReads int
	maxLineSize        int
}

func defaultOptions() options {
	return options{
		logger:             observe.NewNopLogger(),
		maxConcurrentReads: DefaultMaxConcurrentReads,
		maxLineSize:        DefaultMaxLineSize,
	}
}

// WithLogger sets the logger for skipped files and lines.
func WithLogger(l observe.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMaxConcurrentReads bounds how many dataset files are read at once.
func WithMaxConcurrentReads(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxConcurrentReads = n
		}
	}
}

// WithMaxLineSize sets the longest accepted line in bytes.
func WithMaxLineSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxLineSize = n
		}
	}
}

// Open builds a store of the given mode.
func Open(ctx context.Context, mode Mode, fs afero.Fs, dir string, reg *Registry, opts ...Option) (Store, error) {
	switch mode {
	case ModeStreaming, "":
		return NewStreaming(fs, dir, reg, opts...)
	case ModePreloaded:
		return NewPreloaded(ctx, fs, dir, reg, opts...)
	default:
		return nil, fmt.Errorf("store: unknown mode %q", mode)
	}
}

// FindByID returns the first document of resourceType with the given id.
func FindByID(ctx context.Context, s Store, resourceType, id string) (resource.Resource, error) {
	docs, err := s.Query(ctx, resourceType, resource.HasID(id), 1)
	if err != nil {
		return resource.Resource{}, err
	}
	if len(docs) == 0 {
		return resource.Resource{}, fmt.Errorf("%w: %s/%s", ErrResourceNotFound, resourceType, id)
	}
	return docs[0], nil
}

// Count returns how many documents of resourceType match pred.
func Count(ctx context.Context, s Store, resourceType string, pred resource.Predicate) (int, error) {
	if sc, ok := s.(Scanner); ok {
		n := 0
		err := sc.Scan(ctx, resourceType, pred, func(resource.Resource) bool {
			n++
			return true
		})
		return n, err
	}
	docs, err := s.Query(ctx, resourceType, pred, 0)
	return len(docs), err
}

// collect runs a Scan and gathers up to limit matches.
func collect(ctx context.Context, sc Scanner, resourceType string, pred resource.Predicate, limit int) ([]resource.Resource, error) {
	var out []resource.Resource
	err := sc.Scan(ctx, resourceType, pred, func(r resource.Resource) bool {
		out = append(out, r)
		return limit <= 0 || len(out) < limit
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
