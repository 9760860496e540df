package store

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/fhirstore/observe"
	"github.com/jonwraymond/fhirstore/resource"
)

// table is an immutable snapshot of every loaded dataset.
type table struct {
	types     map[string][]string
	docs      map[string][]resource.Resource
	documents int
	loadedAt  time.Time
}

// Preloaded reads every registered dataset once and answers queries from
// memory. Reload builds a new table and publishes it atomically, so readers
// see either the old or the new table, never a partial one.
type Preloaded struct {
	registry *Registry
	reader   *datasetReader
	logger   observe.Logger
	workers  int

	reloadMu sync.Mutex
	tbl      atomic.Pointer[table]
}

// NewPreloaded creates a store and loads every registered dataset.
func NewPreloaded(ctx context.Context, fs afero.Fs, dir string, reg *Registry, opts ...Option) (*Preloaded, error) {
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

	p := &Preloaded{
		registry: reg,
		reader:   newDatasetReader(fs, dir, o),
		logger:   o.logger,
		workers:  o.maxConcurrentReads,
	}
	if err := p.Reload(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// Reload re-reads every registered dataset. On error the previous table stays
// in place.
func (p *Preloaded) Reload(ctx context.Context) error {
	p.reloadMu.Lock()
	defer p.reloadMu.Unlock()

	start := time.Now()
	types := make(map[string][]string)
	for _, typ := range p.registry.Types() {
		if ds, err := p.registry.Datasets(typ); err == nil {
			types[typ] = ds
		}
	}
	datasets := p.registry.AllDatasets()
	loaded := make([][]resource.Resource, len(datasets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, ds := range datasets {
		g.Go(func() error {
			return p.reader.read(gctx, ds, func(r resource.Resource) bool {
				loaded[i] = append(loaded[i], r)
				return true
			})
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("store: preload: %w", err)
	}

	t := &table{types: types, docs: make(map[string][]resource.Resource, len(datasets)), loadedAt: time.Now()}
	for i, ds := range datasets {
		t.docs[ds] = loaded[i]
		t.documents += len(loaded[i])
	}
	p.tbl.Store(t)

	p.logger.Info(ctx, "datasets preloaded",
		observe.F("datasets", len(datasets)),
		observe.F("documents", t.documents),
		observe.F("duration_ms", time.Since(start).Milliseconds()),
	)
	return nil
}

// Query implements Store.
func (p *Preloaded) Query(ctx context.Context, resourceType string, pred resource.Predicate, limit int) ([]resource.Resource, error) {
	return collect(ctx, p, resourceType, pred, limit)
}

// Scan implements Scanner.
func (p *Preloaded) Scan(ctx context.Context, resourceType string, pred resource.Predicate, visit func(resource.Resource) bool) error {
	t := p.tbl.Load()
	datasets, ok := t.types[resourceType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrResourceTypeNotFound, resourceType)
	}

	for _, ds := range datasets {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, r := range t.docs[ds] {
			if pred.Match(r) && !visit(r) {
				return nil
			}
		}
	}
	return nil
}

// Types implements Store.
func (p *Preloaded) Types() []string {
	return p.registry.Types()
}

// Mode implements Store.
func (p *Preloaded) Mode() Mode {
	return ModePreloaded
}

// Documents returns how many documents the current table holds.
func (p *Preloaded) Documents() int {
	return p.tbl.Load().documents
}

// LoadedAt returns when the current table was published.
func (p *Preloaded) LoadedAt() time.Time {
	return p.tbl.Load().loadedAt
}

var (
	_ Store   = (*Preloaded)(nil)
	_ Scanner = (*Preloaded)(nil)
)
