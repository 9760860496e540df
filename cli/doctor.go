package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/fhirstore/health"
	"github.com/jonwraymond/fhirstore/store"
)

var errUnhealthy = errors.New("doctor: unhealthy")

func newDoctorCommand(r *runner) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check datasets, memory and caches",
		Long: `Doctor verifies that the data directory exists and which registered
dataset files are present, then reports memory use and cache statistics.

It exits non-zero when the service could not answer reads.`,
		Args: cobra.NoArgs,
		RunE: r.run(func(cmd *cobra.Command, app *App, _ []string) error {
			report := newHealthAggregator(app).CheckAll(cmd.Context())

			out := cmd.OutOrStdout()
			if asJSON {
				if err := writeJSON(out, report); err != nil {
					return err
				}
			} else {
				for _, e := range report.Entries {
					fmt.Fprintf(out, "%-9s %-9s %s\n", e.Name, e.Result.Status, e.Result.Message)
					if missing, ok := e.Result.Details["missing"].([]string); ok {
						for _, m := range missing {
							fmt.Fprintf(out, "          missing %s\n", m)
						}
					}
				}
				fmt.Fprintf(out, "overall: %s\n", report.Status)
			}

			if report.Status == health.StatusUnhealthy {
				return errUnhealthy
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func newHealthAggregator(app *App) *health.Aggregator {
	agg := health.NewAggregator()
	agg.Register(health.NewDatasetChecker(app.FS, app.Config.DataDir, app.Registry))
	agg.Register(health.NewCheckerFunc("store", func(context.Context) health.Result {
		details := map[string]any{"mode": string(app.Store.Mode()), "types": len(app.Store.Types())}
		if p, ok := app.Store.(*store.Preloaded); ok {
			details["documents"] = p.Documents()
			details["loaded_at"] = p.LoadedAt()
			return health.Healthy(fmt.Sprintf("preloaded %d documents", p.Documents())).WithDetails(details)
		}
		return health.Healthy("streaming from " + app.Config.DataDir).WithDetails(details)
	}))
	agg.Register(health.NewMemoryChecker(health.MemoryCheckerConfig{}))
	agg.Register(health.NewCacheChecker(app.Caches))
	return agg
}
