package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dvloznov/rental-tax/internal/gcsuploader"
	"github.com/dvloznov/rental-tax/internal/logger"
	"github.com/dvloznov/rental-tax/internal/reconcile"
	"github.com/dvloznov/rental-tax/internal/sheets"
	"github.com/dvloznov/rental-tax/internal/tax"
)

// Dataset locates one input sheet. Path is a local file or a gs:// URI.
type Dataset struct {
	Path  string
	Sheet string
}

// Options configures a reconciliation run.
type Options struct {
	Registry Dataset
	Airbnb   Dataset
	VRBO     Dataset

	OutputPath  string
	OutputSheet string

	TaxRate float64
	TaxYear int

	DuplicatePolicy    reconcile.DuplicatePolicy
	LegacyDropFirstRow bool
}

// withDefaults fills unset sheet names, output location, rate and policy.
func (o Options) withDefaults() Options {
	if o.Registry.Sheet == "" {
		o.Registry.Sheet = DefaultRegistrySheet
	}
	if o.Airbnb.Sheet == "" {
		o.Airbnb.Sheet = DefaultAirbnbSheet
	}
	if o.VRBO.Sheet == "" {
		o.VRBO.Sheet = DefaultVRBOSheet
	}
	if o.OutputPath == "" {
		o.OutputPath = DefaultOutputPath
	}
	if o.OutputSheet == "" {
		o.OutputSheet = DefaultOutputSheet
	}
	if o.TaxRate == 0 {
		o.TaxRate = tax.DefaultTaxRate
	}
	if o.DuplicatePolicy == "" {
		o.DuplicatePolicy = reconcile.DuplicateReject
	}
	return o
}

func (o Options) validate() error {
	var errs []error
	for _, d := range []struct {
		name string
		Dataset
	}{{"registry", o.Registry}, {"airbnb", o.Airbnb}, {"vrbo", o.VRBO}} {
		if d.Path == "" {
			errs = append(errs, fmt.Errorf("%s path is required", d.name))
		}
	}
	if o.TaxRate < 0 {
		errs = append(errs, fmt.Errorf("tax rate must not be negative, got %v", o.TaxRate))
	}
	return errors.Join(errs...)
}

// Deps holds the collaborators of a run. Exporter is optional.
type Deps struct {
	Loader   DatasetLoader
	Writer   ReportWriter
	Exporter SummaryExporter
}

// DefaultDeps reads and writes workbooks locally or through Cloud Storage.
func DefaultDeps() Deps {
	storage := gcsuploader.NewGCSStorageService()
	return Deps{
		Loader: sheets.NewLoader(storage),
		Writer: sheets.NewReportWriter(storage),
	}
}

// Reconcile runs the full pipeline with DefaultDeps.
func Reconcile(ctx context.Context, opts Options) (*PipelineState, error) {
	return ReconcileWithDeps(ctx, opts, DefaultDeps())
}

// ReconcileWithDeps loads the three inputs, matches both booking sources,
// aggregates the tax summary, optionally exports it and writes the report.
// The report is written last so a failed run leaves no output behind.
func ReconcileWithDeps(ctx context.Context, opts Options, deps Deps) (*PipelineState, error) {
	if deps.Loader == nil || deps.Writer == nil {
		return nil, errors.New("reconcile: loader and writer are required")
	}

	steps := append(checkSteps(deps), &AggregateStep{Aggregator: newAggregator(opts)})
	if deps.Exporter != nil {
		steps = append(steps, &ExportSummaryStep{Exporter: deps.Exporter})
	}
	steps = append(steps, &WriteReportStep{Writer: deps.Writer})

	return run(ctx, opts, NewPipeline(steps...))
}

// CheckWithDeps loads, validates and matches the inputs without computing
// or writing anything.
func CheckWithDeps(ctx context.Context, opts Options, deps Deps) (*PipelineState, error) {
	if deps.Loader == nil {
		return nil, errors.New("check: loader is required")
	}
	return run(ctx, opts, NewPipeline(checkSteps(deps)...))
}

func checkSteps(deps Deps) []PipelineStep {
	return []PipelineStep{
		&LoadInputsStep{Loader: deps.Loader},
		&ValidateInputsStep{},
		&MatchStep{Spec: reconcile.AirbnbSpec},
		&MatchStep{Spec: reconcile.VRBOSpec},
	}
}

func newAggregator(opts Options) *tax.Aggregator {
	opts = opts.withDefaults()
	return tax.NewAggregator(
		tax.WithTaxRate(opts.TaxRate),
		tax.WithLegacyDropFirstRow(opts.LegacyDropFirstRow),
	)
}

func run(ctx context.Context, opts Options, p *Pipeline) (*PipelineState, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, &StageError{Stage: StageValidate, Err: err}
	}

	state := &PipelineState{
		RunID:   uuid.NewString(),
		Options: opts,
	}

	log := logger.WithFields(logger.FromContext(ctx), map[string]interface{}{
		"run_id": state.RunID,
	})
	ctx = logger.WithContext(ctx, log)

	log.Info().
		Str("registry", opts.Registry.Path).
		Str("airbnb", opts.Airbnb.Path).
		Str("vrbo", opts.VRBO.Path).
		Int("tax_year", opts.TaxYear).
		Msg("Starting reconciliation run")

	if err := p.Execute(ctx, state); err != nil {
		log.Error().Err(err).Str("stage", FailedStage(err)).Msg("Run failed")
		return state, err
	}

	log.Info().Int("unresolved", len(state.Unresolved())).Msg("Run finished")
	return state, nil
}
