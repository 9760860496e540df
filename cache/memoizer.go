package cache

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/fhirstore/observe"
)

// Producer computes a value from invocation arguments.
type Producer[V any] func(ctx context.Context, args Args) (V, error)

// Memoizer wraps a Producer with a Cache.
//
// A hit returns the stored value without invoking the producer. A miss invokes
// the producer and stores the result. Producer errors propagate unchanged and
// are never stored. Concurrent misses on one key each invoke the producer
// unless WithSingleFlight is set. A nil result is stored like any other value.
type Memoizer[V any] struct {
	cache     Cache
	keyer     Keyer
	id        string
	producer  Producer[V]
	ttl       time.Duration
	group     *singleflight.Group
	cacheName string
	metrics   observe.Metrics
	logger    observe.Logger
}

// MemoOption configures a Memoizer.
type MemoOption func(*memoConfig)

type memoConfig struct {
	ttl          time.Duration
	keyer        Keyer
	singleFlight bool
	cacheName    string
	metrics      observe.Metrics
	logger       observe.Logger
}

// WithTTL sets the TTL for stored results. Zero defers to the cache default.
func WithTTL(ttl time.Duration) MemoOption {
	return func(c *memoConfig) { c.ttl = ttl }
}

// WithKeyer replaces the DefaultKeyer.
func WithKeyer(k Keyer) MemoOption {
	return func(c *memoConfig) {
		if k != nil {
			c.keyer = k
		}
	}
}

// WithSingleFlight collapses concurrent misses on one key into a single
// producer invocation.
func WithSingleFlight() MemoOption {
	return func(c *memoConfig) { c.singleFlight = true }
}

// WithMetrics records hits and misses under cacheName.
func WithMetrics(cacheName string, m observe.Metrics) MemoOption {
	return func(c *memoConfig) {
		c.cacheName = cacheName
		if m != nil {
			c.metrics = m
		}
	}
}

// WithLogger sets the logger used for producer failures and store errors.
func WithLogger(l observe.Logger) MemoOption {
	return func(c *memoConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// ErrNilProducer is returned by NewMemoizer when producer is nil.
var ErrNilProducer = errors.New("cache: producer is nil")

// NewMemoizer wraps producer with c. producerID namespaces every derived key.
func NewMemoizer[V any](c Cache, producerID string, producer Producer[V], opts ...MemoOption) (*Memoizer[V], error) {
	if c == nil {
		return nil, ErrNilCache
	}
	if producer == nil {
		return nil, ErrNilProducer
	}
	if err := ValidateKey(producerID); err != nil {
		return nil, err
	}

	cfg := memoConfig{
		keyer:     NewDefaultKeyer(),
		cacheName: producerID,
		metrics:   observe.NewNopMetrics(),
		logger:    observe.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	m := &Memoizer[V]{
		cache:     c,
		keyer:     cfg.keyer,
		id:        producerID,
		producer:  producer,
		ttl:       cfg.ttl,
		cacheName: cfg.cacheName,
		metrics:   cfg.metrics,
		logger:    cfg.logger.With(observe.F("producer", producerID)),
	}
	if cfg.singleFlight {
		m.group = &singleflight.Group{}
	}
	return m, nil
}

// ID returns the producer identifier.
func (m *Memoizer[V]) ID() string {
	return m.id
}

// Key returns the cache key for args.
func (m *Memoizer[V]) Key(args Args) (string, error) {
	return m.keyer.Key(m.id, args)
}

// Call returns the memoized result for args.
func (m *Memoizer[V]) Call(ctx context.Context, args Args) (V, error) {
	key, err := m.Key(args)
	if err != nil {
		// Arguments that cannot be serialised are never cached.
		m.logger.Debug(ctx, "memo key derivation failed, calling through", observe.Err(err))
		return m.producer(ctx, args)
	}

	if cached, ok := m.cache.Get(ctx, key); ok {
		// A stored nil is a cached zero value.
		if cached == nil {
			m.metrics.RecordCacheLookup(ctx, m.cacheName, true)
			var zero V
			return zero, nil
		}
		if v, ok := cached.(V); ok {
			m.metrics.RecordCacheLookup(ctx, m.cacheName, true)
			return v, nil
		}
		// Another producer wrote this key with a different type. The cache
		// counted a hit; the produced value below replaces the entry.
		m.logger.Warn(ctx, "memoized value has unexpected type, recomputing", observe.F("key", key))
	}
	m.metrics.RecordCacheLookup(ctx, m.cacheName, false)

	if m.group == nil {
		return m.produce(ctx, key, args)
	}

	// The shared call outlives any single caller; each waiter stops at its
	// own cancellation.
	shared := context.WithoutCancel(ctx)
	ch := m.group.DoChan(key, func() (any, error) {
		return m.produce(shared, key, args)
	})
	select {
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	case res := <-ch:
		v, _ := res.Val.(V)
		return v, res.Err
	}
}

func (m *Memoizer[V]) produce(ctx context.Context, key string, args Args) (V, error) {
	v, err := m.producer(ctx, args)
	if err != nil {
		m.logger.Debug(ctx, "producer failed, result not cached", observe.Err(err))
		return v, err
	}
	if serr := m.cache.Set(ctx, key, v, m.ttl); serr != nil {
		m.logger.Warn(ctx, "failed to store memoized result", observe.F("key", key), observe.Err(serr))
	}
	return v, nil
}

// Clear removes every stored result of this producer and returns the count.
func (m *Memoizer[V]) Clear(ctx context.Context) int {
	return m.cache.Clear(ctx, m.id+":")
}

// Stats returns the stats of the backing cache.
func (m *Memoizer[V]) Stats() Stats {
	return m.cache.Stats()
}

// Func1 adapts a single-argument function into a memoized function of the same shape.
func Func1[A, V any](c Cache, producerID string, fn func(context.Context, A) (V, error), opts ...MemoOption) (func(context.Context, A) (V, error), *Memoizer[V], error) {
	if fn == nil {
		return nil, nil, ErrNilProducer
	}
	m, err := NewMemoizer(c, producerID, func(ctx context.Context, args Args) (V, error) {
		a, _ := args.Positional[0].(A)
		return fn(ctx, a)
	}, opts...)
	if err != nil {
		return nil, nil, err
	}
	return func(ctx context.Context, a A) (V, error) {
		return m.Call(ctx, Pos(a))
	}, m, nil
}
