package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newTypesCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List resource types and their dataset files",
		Args:  cobra.NoArgs,
		RunE: r.run(func(cmd *cobra.Command, app *App, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TYPE\tDATASETS")
			for _, t := range app.Registry.Types() {
				datasets, err := app.Registry.Datasets(t)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\n", t, strings.Join(datasets, ", "))
			}
			return tw.Flush()
		}),
	}
}

func newMetadataCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "metadata",
		Short: "Print the CapabilityStatement",
		Args:  cobra.NoArgs,
		RunE: r.run(func(cmd *cobra.Command, app *App, _ []string) error {
			return writeJSON(cmd.OutOrStdout(), app.Service.Capability(time.Now()))
		}),
	}
}
