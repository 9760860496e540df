// Package cli implements the fhirstore command line.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/jonwraymond/fhirstore/config"
	"github.com/jonwraymond/fhirstore/observe/exporters"
)

// Options configures NewRootCommand.
type Options struct {
	Version string
	// FS is the filesystem datasets are read from. Default: the OS.
	FS afero.Fs
}

type runner struct {
	opts       Options
	configFile string
	app        *App
}

var errNotInitialized = errors.New("app not initialized")

// NewRootCommand builds the fhirstore command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.FS == nil {
		opts.FS = afero.NewOsFs()
	}
	r := &runner{opts: opts}

	root := &cobra.Command{
		Use:   "fhirstore",
		Short: "Query FHIR R4 NDJSON datasets",
		Long: `fhirstore reads FHIR R4 resources from NDJSON files, one file set per
resource type, and answers reads and searches as searchset bundles.

Results are memoized in bounded in-memory caches. Datasets are either
streamed from disk on every cache miss or preloaded into memory.

Examples:
  fhirstore types
  fhirstore query Observation --patient p1 --category laboratory
  fhirstore read Patient p1
  fhirstore doctor
  fhirstore shell --watch`,
		Version:            opts.Version,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  r.setup,
		PersistentPostRunE: r.teardown,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&r.configFile, "config", "", "config file (default ./fhirstore.yaml)")
	pf.String("data-dir", "", "directory holding the NDJSON datasets")
	pf.String("mode", "", "store mode: streaming or preloaded")
	pf.String("log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		newQueryCommand(r),
		newReadCommand(r),
		newPatientsCommand(r),
		newTypesCommand(r),
		newMetadataCommand(r),
		newDoctorCommand(r),
		newShellCommand(r),
	)
	return root
}

// Execute runs the command line and returns the first error.
func Execute(ctx context.Context, opts Options, args []string) error {
	root := NewRootCommand(opts)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

var flagKeys = map[string]string{
	"data-dir":  "data_dir",
	"mode":      "mode",
	"log-level": "observe.logging.level",
}

func (r *runner) setup(cmd *cobra.Command, _ []string) error {
	switch cmd.Name() {
	case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
		return nil
	}

	loader, err := config.NewLoader()
	if err != nil {
		return err
	}
	loader.SetConfigFile(r.configFile)
	for flag, key := range flagKeys {
		if err := loader.Viper().BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("bind --%s: %w", flag, err)
		}
	}

	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	if cfg.Observe.Version == "" {
		cfg.Observe.Version = r.opts.Version
	}

	// Results go to stdout; keep stdout telemetry exporters off it.
	exporters.Stdout = cmd.ErrOrStderr()

	r.app, err = NewApp(cmd.Context(), cfg, r.opts.FS)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	return nil
}

func (r *runner) teardown(cmd *cobra.Command, _ []string) error {
	return r.close(cmd.Context())
}

func (r *runner) close(ctx context.Context) error {
	if r.app == nil {
		return nil
	}
	err := r.app.Close(context.WithoutCancel(ctx))
	r.app = nil
	return err
}

func (r *runner) App() (*App, error) {
	if r.app == nil {
		return nil, errNotInitialized
	}
	return r.app, nil
}

// run adapts a command body that needs the App.
func (r *runner) run(fn func(cmd *cobra.Command, app *App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := r.App()
		if err != nil {
			return err
		}
		if err := fn(cmd, app, args); err != nil {
			// PersistentPostRunE is skipped when RunE fails.
			return multierr.Append(err, r.close(cmd.Context()))
		}
		return nil
	}
}
