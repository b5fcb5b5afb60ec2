// Package config loads run configuration from flags, environment, .env
// files and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	infra "github.com/dvloznov/rental-tax/internal/infra/bigquery"
	"github.com/dvloznov/rental-tax/internal/pipeline"
	"github.com/dvloznov/rental-tax/internal/reconcile"
	"github.com/dvloznov/rental-tax/internal/tax"
)

// EnvPrefix is prepended to every environment variable, e.g.
// RENTALTAX_AIRBNB_PATH for airbnb.path.
const EnvPrefix = "RENTALTAX"

// Configuration keys.
const (
	KeyRegistryPath       = "registry.path"
	KeyRegistrySheet      = "registry.sheet"
	KeyDuplicatePolicy    = "registry.duplicate_policy"
	KeyAirbnbPath         = "airbnb.path"
	KeyAirbnbSheet        = "airbnb.sheet"
	KeyVRBOPath           = "vrbo.path"
	KeyVRBOSheet          = "vrbo.sheet"
	KeyOutputPath         = "output.path"
	KeyOutputSheet        = "output.sheet"
	KeyTaxRate            = "tax.rate"
	KeyTaxYear            = "tax.year"
	KeyLegacyDropFirstRow = "legacy_drop_first_row"
	KeyLogLevel           = "log.level"
	KeyBigQueryProject    = "bigquery.project"
	KeyBigQueryDataset    = "bigquery.dataset"
	KeyBigQueryTable      = "bigquery.table"
)

// Dataset locates one workbook sheet.
type Dataset struct {
	Path  string
	Sheet string
}

// BigQuery names the optional summary export table.
type BigQuery struct {
	Project string
	Dataset string
	Table   string
}

// Config holds the application configuration loaded from various sources.
type Config struct {
	Registry Dataset
	Airbnb   Dataset
	VRBO     Dataset

	OutputPath  string
	OutputSheet string

	TaxRate float64
	TaxYear int

	DuplicatePolicy    string
	LegacyDropFirstRow bool

	LogLevel string

	BigQuery BigQuery

	// ConfigFile is the YAML file that was read, if any.
	ConfigFile string
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyRegistrySheet, pipeline.DefaultRegistrySheet)
	v.SetDefault(KeyAirbnbSheet, pipeline.DefaultAirbnbSheet)
	v.SetDefault(KeyVRBOSheet, pipeline.DefaultVRBOSheet)
	v.SetDefault(KeyOutputPath, pipeline.DefaultOutputPath)
	v.SetDefault(KeyTaxRate, tax.DefaultTaxRate)
	v.SetDefault(KeyTaxYear, time.Now().Year()-1)
	v.SetDefault(KeyDuplicatePolicy, string(reconcile.DuplicateReject))
	v.SetDefault(KeyLegacyDropFirstRow, false)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyBigQueryTable, infra.DefaultSummariesTable)
}

// Load reads configuration in order of precedence:
// 1. Command-line flags (bound to v by the caller)
// 2. Environment variables (RENTALTAX_ prefix)
// 3. .env.local and .env files
// 4. Config file (configFile, or ./rental-tax.yaml when empty)
// 5. Defaults
func Load(v *viper.Viper, configFile string) (*Config, error) {
	loadEnvFiles()

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("rental-tax")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{
		Registry: Dataset{Path: v.GetString(KeyRegistryPath), Sheet: v.GetString(KeyRegistrySheet)},
		Airbnb:   Dataset{Path: v.GetString(KeyAirbnbPath), Sheet: v.GetString(KeyAirbnbSheet)},
		VRBO:     Dataset{Path: v.GetString(KeyVRBOPath), Sheet: v.GetString(KeyVRBOSheet)},

		OutputPath:  v.GetString(KeyOutputPath),
		OutputSheet: v.GetString(KeyOutputSheet),

		TaxRate: v.GetFloat64(KeyTaxRate),
		TaxYear: v.GetInt(KeyTaxYear),

		DuplicatePolicy:    v.GetString(KeyDuplicatePolicy),
		LegacyDropFirstRow: v.GetBool(KeyLegacyDropFirstRow),

		LogLevel: v.GetString(KeyLogLevel),

		BigQuery: BigQuery{
			Project: v.GetString(KeyBigQueryProject),
			Dataset: v.GetString(KeyBigQueryDataset),
			Table:   v.GetString(KeyBigQueryTable),
		},

		ConfigFile: v.ConfigFileUsed(),
	}

	if cfg.OutputSheet == "" {
		cfg.OutputSheet = fmt.Sprintf("%s %d", pipeline.DefaultOutputSheet, cfg.TaxYear)
	}

	return cfg, nil
}

// loadEnvFiles loads environment variables from .env files. godotenv never
// overrides a variable that is already set, so .env.local goes first.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}

// ValidateInputs checks the settings needed to read and match the inputs.
func (c *Config) ValidateInputs() error {
	var errs []error
	for _, d := range []struct {
		key  string
		path string
	}{
		{KeyRegistryPath, c.Registry.Path},
		{KeyAirbnbPath, c.Airbnb.Path},
		{KeyVRBOPath, c.VRBO.Path},
	} {
		if d.path == "" {
			errs = append(errs, fmt.Errorf("%s is required", d.key))
		}
	}
	if _, err := reconcile.ParseDuplicatePolicy(c.DuplicatePolicy); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Validate checks everything a full run needs.
func (c *Config) Validate() error {
	errs := []error{c.ValidateInputs()}
	if c.OutputPath == "" {
		errs = append(errs, fmt.Errorf("%s is required", KeyOutputPath))
	}
	if c.TaxRate <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", KeyTaxRate, c.TaxRate))
	}
	if c.TaxYear < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative, got %d", KeyTaxYear, c.TaxYear))
	}
	if (c.BigQuery.Project == "") != (c.BigQuery.Dataset == "") {
		errs = append(errs, fmt.Errorf("%s and %s must be set together", KeyBigQueryProject, KeyBigQueryDataset))
	}
	return errors.Join(errs...)
}

// BigQueryEnabled reports whether summaries should be exported.
func (c *Config) BigQueryEnabled() bool {
	return c.BigQuery.Project != "" && c.BigQuery.Dataset != ""
}

// PipelineOptions converts the configuration into run options.
func (c *Config) PipelineOptions() (pipeline.Options, error) {
	policy, err := reconcile.ParseDuplicatePolicy(c.DuplicatePolicy)
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{
		Registry:           pipeline.Dataset{Path: c.Registry.Path, Sheet: c.Registry.Sheet},
		Airbnb:             pipeline.Dataset{Path: c.Airbnb.Path, Sheet: c.Airbnb.Sheet},
		VRBO:               pipeline.Dataset{Path: c.VRBO.Path, Sheet: c.VRBO.Sheet},
		OutputPath:         c.OutputPath,
		OutputSheet:        c.OutputSheet,
		TaxRate:            c.TaxRate,
		TaxYear:            c.TaxYear,
		DuplicatePolicy:    policy,
		LegacyDropFirstRow: c.LegacyDropFirstRow,
	}, nil
}
