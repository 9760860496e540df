package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/afero"

	"github.com/jonwraymond/fhirstore/cache"
	"github.com/jonwraymond/fhirstore/observe"
	"github.com/jonwraymond/fhirstore/store"
)

// Sentinel errors for configuration.
var (
	ErrMissingDataDir = errors.New("config: data_dir is required")
	ErrInvalidMode    = errors.New("config: invalid mode")
	ErrInvalidCache   = errors.New("config: invalid cache settings")
	ErrMissingEnv     = errors.New("config: missing required environment variables")
)

// Config is the full runtime configuration.
type Config struct {
	DataDir            string                 `mapstructure:"data_dir"`
	Mode               string                 `mapstructure:"mode"`
	RegistryFile       string                 `mapstructure:"registry_file"`
	MaxConcurrentReads int                    `mapstructure:"max_concurrent_reads"`
	ExactTotals        bool                   `mapstructure:"exact_totals"`
	SingleFlight       bool                   `mapstructure:"single_flight"`
	Caches             map[string]CacheConfig `mapstructure:"caches"`
	Observe            observe.Config         `mapstructure:"observe"`
}

// CacheConfig overrides the policy of one named cache.
type CacheConfig struct {
	Capacity int           `mapstructure:"capacity"`
	TTL      time.Duration `mapstructure:"ttl"`
	MaxTTL   time.Duration `mapstructure:"max_ttl"`
	Eviction string        `mapstructure:"eviction"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	caches := make(map[string]CacheConfig)
	for name, p := range cache.DefaultPolicies() {
		caches[name] = CacheConfig{Capacity: p.Capacity, Eviction: string(p.Eviction)}
	}
	return Config{
		DataDir:            "data",
		Mode:               string(store.ModeStreaming),
		MaxConcurrentReads: store.DefaultMaxConcurrentReads,
		Caches:             caches,
		Observe: observe.Config{
			ServiceName: "fhirstore",
			Tracing:     observe.TracingConfig{Exporter: "none", SamplePct: 1},
			Metrics:     observe.MetricsConfig{Exporter: "none"},
			Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
		},
	}
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return ErrMissingDataDir
	}
	if _, err := c.StoreMode(); err != nil {
		return err
	}
	if c.MaxConcurrentReads < 0 {
		return fmt.Errorf("config: max_concurrent_reads must not be negative, got %d", c.MaxConcurrentReads)
	}
	if _, err := c.CachePolicies(); err != nil {
		return err
	}
	return c.Observe.Validate()
}

// StoreMode parses Mode.
func (c Config) StoreMode() (store.Mode, error) {
	m, err := store.ParseMode(c.Mode)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, c.Mode)
	}
	return m, nil
}

// CachePolicies converts the cache section into validated policies.
func (c Config) CachePolicies() (map[string]cache.Policy, error) {
	out := make(map[string]cache.Policy, len(c.Caches))
	for name, cc := range c.Caches {
		ev, err := cache.ParseEviction(cc.Eviction)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidCache, name, err)
		}
		if cc.TTL < 0 || cc.MaxTTL < 0 {
			return nil, fmt.Errorf("%w: %s: negative ttl", ErrInvalidCache, name)
		}
		p := cache.Policy{Capacity: cc.Capacity, DefaultTTL: cc.TTL, MaxTTL: cc.MaxTTL, Eviction: ev}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidCache, name, err)
		}
		out[name] = p
	}
	return out, nil
}

// Registry returns the dataset registry: the file named by RegistryFile when
// set, otherwise the built-in MIMIC layout.
func (c Config) Registry(fs afero.Fs) (*store.Registry, error) {
	if c.RegistryFile == "" {
		return store.DefaultRegistry(), nil
	}
	f, err := fs.Open(c.RegistryFile)
	if err != nil {
		return nil, fmt.Errorf("config: open registry file: %w", err)
	}
	defer f.Close()
	return store.LoadRegistry(f)
}

// StoreOptions returns the store options implied by the configuration.
func (c Config) StoreOptions(logger observe.Logger) []store.Option {
	return []store.Option{
		store.WithLogger(logger),
		store.WithMaxConcurrentReads(c.MaxConcurrentReads),
	}
}
