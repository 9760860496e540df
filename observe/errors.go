package observe

import "errors"

var (
	ErrMissingServiceName     = errors.New("observe: service name is required")
	ErrInvalidSamplePct       = errors.New("observe: tracing sample_pct must be within [0, 1]")
	ErrInvalidTracingExporter = errors.New("observe: unsupported tracing exporter")
	ErrInvalidMetricsExporter = errors.New("observe: unsupported metrics exporter")
	ErrInvalidLogLevel        = errors.New("observe: unsupported log level")

	// ErrMissingOperation is returned for an OpMeta without an operation.
	ErrMissingOperation = errors.New("observe: operation name is required")
)

// Exporter and level names accepted by Config.Validate. The empty string
// selects the default.
var (
	tracingExporters = []string{"", "none", "stdout", "otlp", "jaeger"}
	metricsExporters = []string{"", "none", "stdout", "otlp", "prometheus"}
	logLevels        = []string{"", "debug", "info", "warn", "error"}
)

// RedactedFields are log field keys whose values are replaced before
// writing. Patient identifiers appear in cache keys and query targets.
var RedactedFields = []string{
	"password",
	"token",
	"api_key",
	"credential",
	"birthDate",
}
