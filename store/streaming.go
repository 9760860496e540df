package store

import (
	"context"

	"github.com/spf13/afero"
	"golang.org/x/sync/semaphore"

	"github.com/jonwraymond/fhirstore/resource"
)

// Streaming reads dataset files on every query and stops reading as soon as
// the limit is reached. Memory use is bounded by the result size.
type Streaming struct {
	registry *Registry
	reader   *datasetReader
	sem      *semaphore.Weighted
}

// NewStreaming creates a streaming store over dir in fs.
func NewStreaming(fs afero.Fs, dir string, reg *Registry, opts ...Option) (*Streaming, error) {
	if fs == nil {
		return nil, ErrNilFs
	}
	if reg == nil {
		return nil, ErrNilRegistry
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	reg.freeze()
	return &Streaming{
		registry: reg,
		reader:   newDatasetReader(fs, dir, o),
		sem:      semaphore.NewWeighted(int64(o.maxConcurrentReads)),
	}, nil
}

// Query implements Store.
func (s *Streaming) Query(ctx context.Context, resourceType string, pred resource.Predicate, limit int) ([]resource.Resource, error) {
	return collect(ctx, s, resourceType, pred, limit)
}

// Scan implements Scanner. Each dataset holds one read slot while open.
func (s *Streaming) Scan(ctx context.Context, resourceType string, pred resource.Predicate, visit func(resource.Resource) bool) error {
	datasets, err := s.registry.Datasets(resourceType)
	if err != nil {
		return err
	}

	stopped := false
	for _, ds := range datasets {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return err
		}
		err := s.reader.read(ctx, ds, func(r resource.Resource) bool {
			if !pred.Match(r) {
				return true
			}
			if !visit(r) {
				stopped = true
				return false
			}
			return true
		})
		s.sem.Release(1)

		if err != nil {
			return err
		}
		if stopped {
			return nil
		}
	}
	return nil
}

// Types implements Store.
func (s *Streaming) Types() []string {
	return s.registry.Types()
}

// Mode implements Store.
func (s *Streaming) Mode() Mode {
	return ModeStreaming
}

var (
	_ Store   = (*Streaming)(nil)
	_ Scanner = (*Streaming)(nil)
)
