package pipeline

// Default values for a reconciliation run.
// These can be overridden via configuration or CLI flags.
const (
	// DefaultRegistrySheet is the registry sheet read when none is configured.
	DefaultRegistrySheet = "Properties"

	// DefaultAirbnbSheet is the Airbnb export sheet.
	DefaultAirbnbSheet = "Airbnb"

	// DefaultVRBOSheet is the VRBO export sheet.
	DefaultVRBOSheet = "VRBO"

	// DefaultOutputPath is where the report goes when no path is configured.
	DefaultOutputPath = "Final_Taxes.xlsx"

	// DefaultOutputSheet is the report sheet name.
	DefaultOutputSheet = "Taxes"
)

// Stage names reported in logs and StageError.
const (
	StageLoad        = "load"
	StageValidate    = "validate"
	StageMatchAirbnb = "match_airbnb"
	StageMatchVRBO   = "match_vrbo"
	StageAggregate   = "aggregate"
	StageExport      = "export"
	StageWriteReport = "write_report"
)
