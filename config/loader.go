package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. FHIRSTORE_DATA_DIR.
const EnvPrefix = "FHIRSTORE"

// Loader reads configuration from defaults, a YAML file, the environment and
// bound flags, in increasing order of precedence.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader that searches for fhirstore.yaml in the working
// directory and in $XDG_CONFIG_HOME/fhirstore.
func NewLoader() (*Loader, error) {
	v := viper.New()
	v.SetConfigName("fhirstore")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "fhirstore"))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("observe.logging.level", EnvPrefix+"_LOG_LEVEL"); err != nil {
		return nil, fmt.Errorf("failed to bind %s_LOG_LEVEL: %w", EnvPrefix, err)
	}

	l := &Loader{v: v}
	l.setDefaults(Default())
	return l, nil
}

// Viper exposes the underlying instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// SetConfigFile replaces the search paths with an explicit file.
func (l *Loader) SetConfigFile(path string) {
	if path != "" {
		l.v.SetConfigFile(path)
	}
}

// ConfigFileUsed returns the file that was read, or "".
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Load reads, expands and validates the configuration. A missing config
// file is not an error when no explicit file was set.
func (l *Loader) Load() (Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", l.v.ConfigFileUsed(), err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	var err error
	if cfg.DataDir, err = ExpandEnvStrict(cfg.DataDir); err != nil {
		return Config{}, fmt.Errorf("data_dir: %w", err)
	}
	if cfg.RegistryFile, err = ExpandEnvStrict(cfg.RegistryFile); err != nil {
		return Config{}, fmt.Errorf("registry_file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (l *Loader) setDefaults(d Config) {
	l.v.SetDefault("data_dir", d.DataDir)
	l.v.SetDefault("mode", d.Mode)
	l.v.SetDefault("registry_file", d.RegistryFile)
	l.v.SetDefault("max_concurrent_reads", d.MaxConcurrentReads)
	l.v.SetDefault("exact_totals", d.ExactTotals)
	l.v.SetDefault("single_flight", d.SingleFlight)

	for name, c := range d.Caches {
		prefix := "caches." + name + "."
		l.v.SetDefault(prefix+"capacity", c.Capacity)
		l.v.SetDefault(prefix+"ttl", c.TTL)
		l.v.SetDefault(prefix+"max_ttl", c.MaxTTL)
		l.v.SetDefault(prefix+"eviction", c.Eviction)
	}

	l.v.SetDefault("observe.service_name", d.Observe.ServiceName)
	l.v.SetDefault("observe.version", d.Observe.Version)
	l.v.SetDefault("observe.tracing.enabled", d.Observe.Tracing.Enabled)
	l.v.SetDefault("observe.tracing.exporter", d.Observe.Tracing.Exporter)
	l.v.SetDefault("observe.tracing.sample_pct", d.Observe.Tracing.SamplePct)
	l.v.SetDefault("observe.metrics.enabled", d.Observe.Metrics.Enabled)
	l.v.SetDefault("observe.metrics.exporter", d.Observe.Metrics.Exporter)
	l.v.SetDefault("observe.logging.enabled", d.Observe.Logging.Enabled)
	l.v.SetDefault("observe.logging.level", d.Observe.Logging.Level)
}
