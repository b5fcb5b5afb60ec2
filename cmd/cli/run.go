package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	infraBQ "github.com/dvloznov/rental-tax/internal/infra/bigquery"
	"github.com/dvloznov/rental-tax/internal/logger"
	"github.com/dvloznov/rental-tax/internal/pipeline"
	"github.com/dvloznov/rental-tax/internal/reconcile"
	"github.com/dvloznov/rental-tax/internal/tax"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile bookings and write the tax summary report",
		Example: `  rental-tax run --registry Properties.xlsx --airbnb airbnb.xlsx --vrbo vrbo.xlsx \
    --output Final_Taxes_2023.xlsx --tax-year 2023`,
		Args: cobra.NoArgs,
		RunE: a.runReconcile,
	}

	addInputFlags(cmd)
	f := cmd.Flags()
	f.String("output", "", "report workbook to write")
	f.String("output-sheet", "", `report sheet name (default "Taxes <year>")`)
	f.Float64("tax-rate", 0, "tax rate applied to income net of cleaning")
	f.Int("tax-year", 0, "tax year recorded in the export")
	f.Bool("legacy-drop-first-row", false, "drop the first summary row as older reports did")
	addBigQueryFlags(cmd)

	return cmd
}

func (a *app) runReconcile(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	log := logger.FromContext(ctx)
	out := cmd.OutOrStdout()

	if err := a.cfg.Validate(); err != nil {
		return err
	}
	opts, err := a.cfg.PipelineOptions()
	if err != nil {
		return err
	}

	deps := pipeline.DefaultDeps()
	if a.cfg.BigQueryEnabled() {
		repo, err := infraBQ.NewBigQuerySummaryRepository(ctx, a.cfg.BigQuery.Project, a.cfg.BigQuery.Dataset, a.cfg.BigQuery.Table)
		if err != nil {
			return err
		}
		defer repo.Close()

		if _, err := repo.EnsureTable(ctx); err != nil {
			return err
		}
		deps.Exporter = repo
	} else {
		log.Debug().Msg("BigQuery export disabled")
	}

	state, err := pipeline.ReconcileWithDeps(ctx, opts, deps)
	if state != nil {
		printUnresolved(out, state.Unresolved())
		if state.Summary != nil {
			printFailures(out, state.Summary.Failures)
		}
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Wrote %d properties to %s (sheet %q).\n",
		len(state.Summary.Rows), state.Options.OutputPath, state.Options.OutputSheet)
	return nil
}

func printUnresolved(w io.Writer, records []reconcile.UnresolvedRecord) {
	if len(records) == 0 {
		return
	}
	fmt.Fprintf(w, "Unresolved booking codes (%d):\n", len(records))
	for _, r := range records {
		fmt.Fprintf(w, "  %s\n", r)
	}
}

func printFailures(w io.Writer, failures []*tax.AggregationError) {
	if len(failures) == 0 {
		return
	}
	fmt.Fprintf(w, "Skipped properties (%d):\n", len(failures))
	for _, f := range failures {
		fmt.Fprintf(w, "  %s\n", f)
	}
}
