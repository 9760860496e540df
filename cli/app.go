package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"github.com/jonwraymond/fhirstore/cache"
	"github.com/jonwraymond/fhirstore/config"
	"github.com/jonwraymond/fhirstore/observe"
	"github.com/jonwraymond/fhirstore/search"
	"github.com/jonwraymond/fhirstore/store"
)

// App holds the components shared by every command.
type App struct {
	Config   config.Config
	FS       afero.Fs
	Registry *store.Registry
	Store    store.Store
	Caches   *cache.Registry
	Service  *search.Service
	Logger   observe.Logger

	// changes orders dataset reloads against in-flight lookups so a lookup
	// that read old data cannot store its result after the invalidation.
	changes  sync.RWMutex
	observer observe.Observer
}

// NewApp wires configuration into a running service. Close releases the
// telemetry exporters.
func NewApp(ctx context.Context, cfg config.Config, fs afero.Fs) (app *App, err error) {
	obs, err := observe.NewObserver(ctx, cfg.Observe)
	if err != nil {
		return nil, fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, obs.Shutdown(context.WithoutCancel(ctx)))
		}
	}()

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return nil, fmt.Errorf("initialize metrics: %w", err)
	}
	logger := obs.Logger()

	reg, err := cfg.Registry(fs)
	if err != nil {
		return nil, err
	}
	mode, err := cfg.StoreMode()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, mode, fs, cfg.DataDir, reg, cfg.StoreOptions(logger)...)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	policies, err := cfg.CachePolicies()
	if err != nil {
		return nil, err
	}
	caches, err := cache.NewDefaultRegistry(policies)
	if err != nil {
		return nil, err
	}

	opts := []search.Option{search.WithMiddleware(mw)}
	if cfg.SingleFlight {
		opts = append(opts, search.WithSingleFlight())
	}
	if cfg.ExactTotals {
		opts = append(opts, search.WithExactTotals())
	}
	svc, err := search.New(st, caches, opts...)
	if err != nil {
		return nil, err
	}

	logger.Debug(ctx, "service ready",
		observe.F("data_dir", cfg.DataDir),
		observe.F("mode", string(mode)),
		observe.F("types", len(reg.Types())))

	return &App{
		Config:   cfg,
		FS:       fs,
		Registry: reg,
		Store:    st,
		Caches:   caches,
		Service:  svc,
		Logger:   logger,
		observer: obs,
	}, nil
}

// Close flushes and stops telemetry.
func (a *App) Close(ctx context.Context) error {
	if a == nil || a.observer == nil {
		return nil
	}
	obs := a.observer
	a.observer = nil
	return obs.Shutdown(ctx)
}
