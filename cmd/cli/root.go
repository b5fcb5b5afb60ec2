package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dvloznov/rental-tax/internal/config"
	"github.com/dvloznov/rental-tax/internal/logger"
)

// app carries state shared by every subcommand.
type app struct {
	v          *viper.Viper
	configFile string
	cfg        *config.Config
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"registry":              config.KeyRegistryPath,
	"registry-sheet":        config.KeyRegistrySheet,
	"duplicate-policy":      config.KeyDuplicatePolicy,
	"airbnb":                config.KeyAirbnbPath,
	"airbnb-sheet":          config.KeyAirbnbSheet,
	"vrbo":                  config.KeyVRBOPath,
	"vrbo-sheet":            config.KeyVRBOSheet,
	"output":                config.KeyOutputPath,
	"output-sheet":          config.KeyOutputSheet,
	"tax-rate":              config.KeyTaxRate,
	"tax-year":              config.KeyTaxYear,
	"legacy-drop-first-row": config.KeyLegacyDropFirstRow,
	"log-level":             config.KeyLogLevel,
	"bq-project":            config.KeyBigQueryProject,
	"bq-dataset":            config.KeyBigQueryDataset,
	"bq-table":              config.KeyBigQueryTable,
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "rental-tax",
		Short: "Reconcile rental bookings and compute per-property taxes",
		Long: `rental-tax matches Airbnb and VRBO booking exports against the property
registry and writes a per-property tax summary workbook.

Inputs and the report may be local paths or gs:// URIs. Settings come from
flags, RENTALTAX_* environment variables, .env files and rental-tax.yaml.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default is ./rental-tax.yaml)")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newRunCmd(a),
		newCheckCmd(a),
		newInitBQCmd(a),
	)

	return root
}

// setup binds the executing command's flags, loads the configuration and
// installs the logger on the command context.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || bindErr != nil {
			return
		}
		if err := a.v.BindPFlag(key, f); err != nil {
			bindErr = fmt.Errorf("bind flag %s: %w", f.Name, err)
		}
	})
	if bindErr != nil {
		return bindErr
	}

	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	log := logger.New().Level(logger.ParseLevel(cfg.LogLevel))
	if cfg.ConfigFile != "" {
		log.Debug().Str("config_file", cfg.ConfigFile).Msg("Using config file")
	}
	cmd.SetContext(logger.WithContext(cmd.Context(), log))
	return nil
}

func addInputFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("registry", "", "property registry workbook")
	f.String("registry-sheet", "", "registry sheet name")
	f.String("duplicate-policy", "", `duplicate registry codes: "reject" or "first"`)
	f.String("airbnb", "", "Airbnb export workbook")
	f.String("airbnb-sheet", "", "Airbnb sheet name")
	f.String("vrbo", "", "VRBO export workbook")
	f.String("vrbo-sheet", "", "VRBO sheet name")
}

func addBigQueryFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("bq-project", "", "BigQuery project for the summary export")
	f.String("bq-dataset", "", "BigQuery dataset for the summary export")
	f.String("bq-table", "", "BigQuery table for the summary export")
}
