package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/fhirstore/search"
)

func newQueryCommand(r *runner) *cobra.Command {
	var (
		req    search.Request
		format string
	)
	cmd := &cobra.Command{
		Use:   "query <resource-type>",
		Short: "Search one resource type and print a searchset bundle",
		Long: `Query filters the documents of one resource type by patient and
category and prints the matches.

Examples:
  fhirstore query Patient --count 10
  fhirstore query Observation --patient p1 --category vital-signs
  fhirstore query Condition --patient p1 --format ndjson`,
		Args: cobra.ExactArgs(1),
		RunE: r.run(func(cmd *cobra.Command, app *App, args []string) error {
			req.ResourceType = args[0]
			b, err := app.Service.Search(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch format {
			case "bundle":
				return writeJSON(out, b)
			case "ndjson":
				return writeNDJSON(out, b)
			case "summary":
				return writeBundleSummary(out, b)
			default:
				return fmt.Errorf("unknown format %q", format)
			}
		}),
	}
	f := cmd.Flags()
	f.StringVar(&req.Patient, "patient", "", "only documents referencing this patient id")
	f.StringVar(&req.Category, "category", "", "only documents whose first category code matches")
	f.IntVar(&req.Count, "count", search.DefaultCount, "maximum number of entries")
	f.StringVar(&format, "format", "bundle", "output format: bundle, ndjson or summary")
	return cmd
}

func newReadCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "read <resource-type> <id>",
		Short: "Print one resource by id",
		Args:  cobra.ExactArgs(2),
		RunE: r.run(func(cmd *cobra.Command, app *App, args []string) error {
			res, err := app.Service.Read(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		}),
	}
}

func newPatientsCommand(r *runner) *cobra.Command {
	var (
		count  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "patients",
		Short: "List patients with observation, encounter and condition counts",
		Args:  cobra.NoArgs,
		RunE: r.run(func(cmd *cobra.Command, app *App, _ []string) error {
			summaries, err := app.Service.PatientSummaries(cmd.Context(), count)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), summaries)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tGENDER\tBORN\tOBS\tENC\tCOND\tCONDITIONS")
			for _, s := range summaries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
					s.ID, s.Name, s.Gender, s.BirthDate,
					s.ObservationCount, s.EncounterCount, s.ConditionCount,
					strings.Join(s.Conditions, "; "))
			}
			return tw.Flush()
		}),
	}
	cmd.Flags().IntVar(&count, "count", 20, "number of patients")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}
