package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/rental-tax/internal/logger"
	"github.com/dvloznov/rental-tax/internal/reconcile"
	"github.com/dvloznov/rental-tax/internal/table"
	"github.com/dvloznov/rental-tax/internal/tax"
)

// PipelineStep represents a single stage of a reconciliation run.
type PipelineStep interface {
	Name() string
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	RunID   string
	Options Options

	RegistryTable *table.Table
	AirbnbTable   *table.Table
	VRBOTable     *table.Table

	Registry *reconcile.Registry
	Airbnb   *reconcile.MatchResult
	VRBO     *reconcile.MatchResult

	Summary *tax.Result
}

// Unresolved returns the residual records of both sources, Airbnb first.
func (s *PipelineState) Unresolved() []reconcile.UnresolvedRecord {
	var out []reconcile.UnresolvedRecord
	for _, m := range []*reconcile.MatchResult{s.Airbnb, s.VRBO} {
		if m != nil {
			out = append(out, m.Unresolved...)
		}
	}
	return out
}

// StageError names the stage a run failed in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage returns the stage name carried by err, if any.
func FailedStage(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// LoadInputsStep reads the registry and both booking tables.
type LoadInputsStep struct {
	Loader DatasetLoader
}

func (s *LoadInputsStep) Name() string { return StageLoad }

func (s *LoadInputsStep) Execute(ctx context.Context, state *PipelineState) error {
	var err error
	o := state.Options

	if state.RegistryTable, err = s.Loader.Load(ctx, "registry", o.Registry.Path, o.Registry.Sheet); err != nil {
		return err
	}
	if state.AirbnbTable, err = s.Loader.Load(ctx, "airbnb", o.Airbnb.Path, o.Airbnb.Sheet); err != nil {
		return err
	}
	if state.VRBOTable, err = s.Loader.Load(ctx, "vrbo", o.VRBO.Path, o.VRBO.Sheet); err != nil {
		return err
	}

	logShape(ctx, "Loaded inputs", state.RegistryTable, state.AirbnbTable, state.VRBOTable)
	return nil
}

// ValidateInputsStep indexes the registry and checks every table has the
// columns the matcher reads. Nothing is matched if any check fails.
type ValidateInputsStep struct{}

func (s *ValidateInputsStep) Name() string { return StageValidate }

func (s *ValidateInputsStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)

	reg, err := reconcile.NewRegistry(state.RegistryTable, state.Options.DuplicatePolicy)
	if err != nil {
		return err
	}

	var errs []error
	if err := reconcile.AirbnbSpec.Validate(state.AirbnbTable); err != nil {
		errs = append(errs, err)
	}
	if err := reconcile.VRBOSpec.Validate(state.VRBOTable); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	for _, d := range reg.Duplicates {
		log.Warn().Str("code", d.Key).Ints("rows", d.Rows).Msg("Duplicate registry code, keeping first row")
	}
	if reg.BlankCodes > 0 {
		log.Warn().Int("rows", reg.BlankCodes).Msg("Skipped registry rows without a code")
	}
	if !reg.HasPropertyIDB {
		log.Info().Msg("Registry has no VRBO_ID column, VRBO property fallback disabled")
	}

	log.Info().
		Int("properties", reg.Len()).
		Msg("Registry validated")

	state.Registry = reg
	return nil
}

// MatchStep enriches one booking source against the registry.
type MatchStep struct {
	Spec reconcile.SourceSpec
}

func (s *MatchStep) Name() string {
	if s.Spec.Source == reconcile.SourceVRBO {
		return StageMatchVRBO
	}
	return StageMatchAirbnb
}

func (s *MatchStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx).With().Str("source", string(s.Spec.Source)).Logger()

	input := state.AirbnbTable
	if s.Spec.Source == reconcile.SourceVRBO {
		input = state.VRBOTable
	}

	res, err := reconcile.NewMatcher(state.Registry).Match(s.Spec, input)
	if err != nil {
		return err
	}

	if len(res.Unresolved) > 0 {
		log.Warn().
			Strs("codes", res.UnresolvedCodes()).
			Msg("Unresolved booking codes")
	}

	log.Info().
		Int("rows", res.Table.Len()).
		Int("columns", len(res.Table.Columns)).
		Int("resolved", len(res.Table.Resolved())).
		Int("filtered", res.Filtered).
		Msg("Bookings matched")

	if s.Spec.Source == reconcile.SourceVRBO {
		state.VRBO = res
	} else {
		state.Airbnb = res
	}
	return nil
}

// AggregateStep computes the per-property tax summary.
type AggregateStep struct {
	Aggregator *tax.Aggregator
}

func (s *AggregateStep) Name() string { return StageAggregate }

func (s *AggregateStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)

	if state.Airbnb == nil || state.VRBO == nil {
		return errors.New("bookings have not been matched")
	}

	res, err := s.Aggregator.Aggregate(state.Airbnb.Table, state.VRBO.Table)
	if err != nil {
		return err
	}

	for _, f := range res.Failures {
		log.Error().
			Err(f.Err).
			Str("code", f.Code).
			Str("listing", f.Listing).
			Msg("Skipped property")
	}

	log.Info().
		Int("rows", len(res.Rows)).
		Int("columns", len(tax.Columns)).
		Int("failed", len(res.Failures)).
		Int("dropped", res.Dropped).
		Str("rate", s.Aggregator.Rate().String()).
		Msg("Summary computed")

	state.Summary = res
	return nil
}

// ExportSummaryStep stores the summary rows in the warehouse.
type ExportSummaryStep struct {
	Exporter SummaryExporter
}

func (s *ExportSummaryStep) Name() string { return StageExport }

func (s *ExportSummaryStep) Execute(ctx context.Context, state *PipelineState) error {
	if err := s.Exporter.ExportSummaries(ctx, state.RunID, state.Options.TaxYear, state.Summary.Rows); err != nil {
		return err
	}
	log := logger.FromContext(ctx)
	log.Info().
		Int("rows", len(state.Summary.Rows)).
		Int("tax_year", state.Options.TaxYear).
		Msg("Summary exported")
	return nil
}

// WriteReportStep renders the summary to the output location.
type WriteReportStep struct {
	Writer ReportWriter
}

func (s *WriteReportStep) Name() string { return StageWriteReport }

func (s *WriteReportStep) Execute(ctx context.Context, state *PipelineState) error {
	return s.Writer.WriteReport(ctx, state.Options.OutputPath, state.Options.OutputSheet, state.Summary.Rows)
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially and stops at the
// first failure.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return &StageError{Stage: step.Name(), Err: err}
		}
		stepCtx := logger.WithContext(ctx, logger.FromContext(ctx).With().Str("stage", step.Name()).Logger())
		if err := step.Execute(stepCtx, state); err != nil {
			return &StageError{Stage: step.Name(), Err: err}
		}
	}
	return nil
}

func logShape(ctx context.Context, msg string, tables ...*table.Table) {
	log := logger.FromContext(ctx)
	ev := log.Info()
	for _, t := range tables {
		ev = ev.Str(t.Name, fmt.Sprintf("%dx%d", t.Len(), len(t.Columns)))
	}
	ev.Msg(msg)
}
