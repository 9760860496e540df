package search

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/jonwraymond/fhirstore/bundle"
	"github.com/jonwraymond/fhirstore/cache"
	"github.com/jonwraymond/fhirstore/observe"
	"github.com/jonwraymond/fhirstore/resource"
	"github.com/jonwraymond/fhirstore/store"
)

// ErrNilStore is returned by New when no store is given.
var ErrNilStore = errors.New("search: store is nil")

// Producer identifiers. Each namespaces its keys inside the shared caches.
const (
	producerSearch         = "search"
	producerRead           = "read"
	producerPatientBundle  = "patient-bundle"
	producerPatientSummary = "patient-summaries"
	componentName          = "search"
)

// Option configures a Service.
type Option func(*config)

type config struct {
	mw           *observe.Middleware
	singleFlight bool
	exactTotals  bool
	ttl          time.Duration
}

// WithMiddleware sets the tracing, metrics and logging wrapper.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(c *config) {
		if mw != nil {
			c.mw = mw
		}
	}
}

// WithSingleFlight collapses concurrent identical misses.
func WithSingleFlight() Option {
	return func(c *config) { c.singleFlight = true }
}

// WithExactTotals reports the full match count as the bundle total instead
// of the page size. It costs one extra pass over the datasets per miss.
func WithExactTotals() Option {
	return func(c *config) { c.exactTotals = true }
}

// WithTTL sets the TTL of memoized results. Zero keeps each cache's default.
func WithTTL(ttl time.Duration) Option {
	return func(c *config) { c.ttl = ttl }
}

// Service answers searches and reads from a Store, memoizing results in the
// patient, resource and bundle caches of a cache.Registry.
type Service struct {
	store       store.Store
	caches      *cache.Registry
	mw          *observe.Middleware
	exactTotals bool

	search        *cache.Memoizer[bundle.Bundle]
	read          *cache.Memoizer[resource.Resource]
	patientBundle *cache.Memoizer[bundle.Bundle]
	summaries     *cache.Memoizer[[]PatientSummary]
}

// New builds a Service. caches must hold the caches named by
// cache.NewDefaultRegistry.
func New(s store.Store, caches *cache.Registry, opts ...Option) (*Service, error) {
	if s == nil {
		return nil, ErrNilStore
	}
	if caches == nil {
		return nil, cache.ErrNilCache
	}
	cfg := config{mw: observe.NopMiddleware()}
	for _, opt := range opts {
		opt(&cfg)
	}

	svc := &Service{store: s, caches: caches, mw: cfg.mw, exactTotals: cfg.exactTotals}

	memoOpts := func(cacheName string) []cache.MemoOption {
		o := []cache.MemoOption{
			cache.WithTTL(cfg.ttl),
			cache.WithMetrics(cacheName, cfg.mw.Metrics()),
			cache.WithLogger(cfg.mw.Logger()),
		}
		if cfg.singleFlight {
			o = append(o, cache.WithSingleFlight())
		}
		return o
	}

	bundleCache, err := caches.Get(cache.BundleCache)
	if err != nil {
		return nil, err
	}
	resourceCache, err := caches.Get(cache.ResourceCache)
	if err != nil {
		return nil, err
	}
	patientCache, err := caches.Get(cache.PatientCache)
	if err != nil {
		return nil, err
	}

	if svc.search, err = cache.NewMemoizer[bundle.Bundle](bundleCache, producerSearch, svc.produceBundle, memoOpts(cache.BundleCache)...); err != nil {
		return nil, err
	}
	if svc.read, err = cache.NewMemoizer[resource.Resource](resourceCache, producerRead, svc.produceRead, memoOpts(cache.ResourceCache)...); err != nil {
		return nil, err
	}
	if svc.patientBundle, err = cache.NewMemoizer[bundle.Bundle](patientCache, producerPatientBundle, svc.produceBundle, memoOpts(cache.PatientCache)...); err != nil {
		return nil, err
	}
	if svc.summaries, err = cache.NewMemoizer[[]PatientSummary](patientCache, producerPatientSummary, svc.produceSummaries, memoOpts(cache.PatientCache)...); err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *Service) meta(op, resourceType string) observe.OpMeta {
	return observe.OpMeta{
		Component:    componentName,
		Operation:    op,
		ResourceType: resourceType,
		Mode:         string(s.store.Mode()),
	}
}

func bundleSize(b bundle.Bundle) int { return len(b.Entry) }

// Search runs req and wraps the matches in a searchset bundle.
func (s *Service) Search(ctx context.Context, req Request) (bundle.Bundle, error) {
	req = req.Normalize()
	return observe.Run(ctx, s.mw, s.meta("search", req.ResourceType), func(ctx context.Context) (bundle.Bundle, error) {
		if err := req.Validate(); err != nil {
			return bundle.Bundle{}, err
		}
		return s.search.Call(ctx, req.args())
	}, bundleSize)
}

// PatientBundle returns the documents of resourceType that belong to
// patientID. Results are kept in the patient cache.
func (s *Service) PatientBundle(ctx context.Context, patientID, resourceType string, count int) (bundle.Bundle, error) {
	req := Request{ResourceType: resourceType, Patient: patientID, Count: count}.Normalize()
	return observe.Run(ctx, s.mw, s.meta("patient_bundle", req.ResourceType), func(ctx context.Context) (bundle.Bundle, error) {
		if err := req.Validate(); err != nil {
			return bundle.Bundle{}, err
		}
		if req.Patient == "" {
			return bundle.Bundle{}, ErrMissingID
		}
		return s.patientBundle.Call(ctx, req.args())
	}, bundleSize)
}

// Read returns the document of resourceType with the given id.
func (s *Service) Read(ctx context.Context, resourceType, id string) (resource.Resource, error) {
	resourceType, id = strings.TrimSpace(resourceType), strings.TrimSpace(id)
	return observe.Run(ctx, s.mw, s.meta("read", resourceType), func(ctx context.Context) (resource.Resource, error) {
		if resourceType == "" {
			return resource.Resource{}, ErrMissingType
		}
		if id == "" {
			return resource.Resource{}, ErrMissingID
		}
		return s.read.Call(ctx, cache.Pos(resourceType, id))
	}, nil)
}

// PatientSummaries lists up to count patients with sampled clinical counts.
func (s *Service) PatientSummaries(ctx context.Context, count int) ([]PatientSummary, error) {
	if count == 0 {
		count = DefaultCount
	}
	return observe.Run(ctx, s.mw, s.meta("patient_summaries", "Patient"), func(ctx context.Context) ([]PatientSummary, error) {
		if count < 0 || count > MaxCount {
			return nil, ErrInvalidCount
		}
		return s.summaries.Call(ctx, cache.Pos(count))
	}, func(v []PatientSummary) int { return len(v) })
}

// Capability describes the served resource types.
func (s *Service) Capability(now time.Time) bundle.CapabilityStatement {
	return bundle.Capability(s.store.Types(), now)
}

// Types lists the served resource types.
func (s *Service) Types() []string {
	return s.store.Types()
}

// Caches returns the cache registry backing the service.
func (s *Service) Caches() *cache.Registry {
	return s.caches
}

// Invalidate drops every memoized result and returns the count per producer.
func (s *Service) Invalidate(ctx context.Context) map[string]int {
	return map[string]int{
		producerSearch:         s.search.Clear(ctx),
		producerRead:           s.read.Clear(ctx),
		producerPatientBundle:  s.patientBundle.Clear(ctx),
		producerPatientSummary: s.summaries.Clear(ctx),
	}
}

func (s *Service) produceBundle(ctx context.Context, args cache.Args) (bundle.Bundle, error) {
	req := requestFromArgs(args)
	pred := req.Predicate()

	docs, err := s.store.Query(ctx, req.ResourceType, pred, req.Count)
	if err != nil {
		return bundle.Bundle{}, err
	}

	opts := []bundle.Option{bundle.WithSelfURL(req.SelfURL())}
	if s.exactTotals {
		total, err := store.Count(ctx, s.store, req.ResourceType, pred)
		if err != nil {
			return bundle.Bundle{}, err
		}
		opts = append(opts, bundle.WithTotal(total))
	}
	return bundle.Wrap(docs, req.ResourceType, opts...)
}

func (s *Service) produceRead(ctx context.Context, args cache.Args) (resource.Resource, error) {
	resourceType, _ := args.Positional[0].(string)
	id, _ := args.Positional[1].(string)
	return store.FindByID(ctx, s.store, resourceType, id)
}

func (s *Service) produceSummaries(ctx context.Context, args cache.Args) ([]PatientSummary, error) {
	count, _ := args.Positional[0].(int)

	patients, err := s.store.Query(ctx, "Patient", nil, count)
	if err != nil {
		return nil, err
	}

	out := make([]PatientSummary, 0, len(patients))
	for _, p := range patients {
		belongs := resource.BelongsToPatient(p.ID())
		obs, err := s.optionalQuery(ctx, "Observation", belongs, summaryObservationLimit)
		if err != nil {
			return nil, err
		}
		enc, err := s.optionalQuery(ctx, "Encounter", belongs, summaryEncounterLimit)
		if err != nil {
			return nil, err
		}
		cond, err := s.optionalQuery(ctx, "Condition", belongs, summaryConditionLimit)
		if err != nil {
			return nil, err
		}
		out = append(out, summarize(p, obs, enc, cond))
	}
	// Busiest patients first; ties keep store order.
	slices.SortStableFunc(out, func(a, b PatientSummary) int {
		return cmp.Compare(b.ObservationCount, a.ObservationCount)
	})
	return out, nil
}

// optionalQuery treats an unregistered type as having no documents.
func (s *Service) optionalQuery(ctx context.Context, resourceType string, pred resource.Predicate, limit int) ([]resource.Resource, error) {
	docs, err := s.store.Query(ctx, resourceType, pred, limit)
	if errors.Is(err, store.ErrResourceTypeNotFound) {
		return nil, nil
	}
	return docs, err
}
