package main

import (
	"fmt"

	"github.com/spf13/cobra"

	infraBQ "github.com/dvloznov/rental-tax/internal/infra/bigquery"
)

func newInitBQCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init-bq",
		Short: "Create the BigQuery tax summary table if it does not exist",
		Args:  cobra.NoArgs,
		RunE:  a.runInitBQ,
	}
	addBigQueryFlags(cmd)
	return cmd
}

func (a *app) runInitBQ(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	bq := a.cfg.BigQuery
	if !a.cfg.BigQueryEnabled() {
		return fmt.Errorf("bigquery.project and bigquery.dataset are required")
	}

	repo, err := infraBQ.NewBigQuerySummaryRepository(ctx, bq.Project, bq.Dataset, bq.Table)
	if err != nil {
		return err
	}
	defer repo.Close()

	created, err := repo.EnsureTable(ctx)
	if err != nil {
		return err
	}

	if created {
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s.%s.%s\n", bq.Project, bq.Dataset, bq.Table)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "%s.%s.%s already exists\n", bq.Project, bq.Dataset, bq.Table)
	}
	return nil
}
