package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dvloznov/rental-tax/internal/pipeline"
)

func newCheckCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the inputs and list booking codes that cannot be matched",
		Long: `check loads the registry and both booking exports, validates their columns
and runs the matcher. Nothing is written.`,
		Args: cobra.NoArgs,
		RunE: a.runCheck,
	}
	addInputFlags(cmd)
	return cmd
}

func (a *app) runCheck(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	if err := a.cfg.ValidateInputs(); err != nil {
		return err
	}
	opts, err := a.cfg.PipelineOptions()
	if err != nil {
		return err
	}

	state, err := pipeline.CheckWithDeps(cmd.Context(), opts, pipeline.DefaultDeps())
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Registry: %d properties.\n", state.Registry.Len())
	fmt.Fprintf(out, "Airbnb:   %d bookings, %d resolved.\n", state.Airbnb.Table.Len(), len(state.Airbnb.Table.Resolved()))
	fmt.Fprintf(out, "VRBO:     %d bookings, %d resolved.\n", state.VRBO.Table.Len(), len(state.VRBO.Table.Resolved()))

	unresolved := state.Unresolved()
	if len(unresolved) == 0 {
		fmt.Fprintln(out, "All booking codes resolved.")
		return nil
	}
	printUnresolved(out, unresolved)
	return nil
}
