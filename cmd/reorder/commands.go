package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mobilepoint/apexorder/internal/config"
	"github.com/mobilepoint/apexorder/internal/domain/models"
	"github.com/mobilepoint/apexorder/internal/export"
	"github.com/mobilepoint/apexorder/internal/service/pipeline"
	"github.com/mobilepoint/apexorder/internal/service/reorder"
	"github.com/mobilepoint/apexorder/internal/service/schema"
	"github.com/mobilepoint/apexorder/internal/tabular"
	"github.com/mobilepoint/apexorder/pkg/logger"
)

type rootFlags struct {
	envFile  string
	logLevel string
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "reorder",
		Short:         "Compute supplier reorder quantities",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "dotenv file with pipeline settings")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	cmd.AddCommand(newRunCommand(flags))
	cmd.AddCommand(newAliasesCommand(flags))
	return cmd
}

type runFlags struct {
	catalog     string
	movement    string
	out         string
	diagnostics bool
	tiers       string
	multiplier  float64
	strict      bool
}

func newRunCommand(root *rootFlags) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile a catalog with a movement report and write the order",
		Long: `Run reads the supplier catalog and the stock-movement report, joins them
on product code and writes the tier-rounded order quantities.

The output format follows the --out extension (.csv or .xlsx). Use "-" to
write CSV to stdout.`,
		Example: `  reorder run --catalog apex.xlsx --movement smartbill.xlsx
  reorder run --catalog apex.csv --movement miscari.csv --out comanda.xlsx --diagnostics
  reorder run --catalog apex.csv --movement miscari.csv --tiers legacy --out -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOrder(cmd, root, flags)
		},
	}

	cmd.Flags().StringVar(&flags.catalog, "catalog", "", "supplier catalog file (.csv or .xlsx)")
	cmd.Flags().StringVar(&flags.movement, "movement", "", "stock movement report (.csv or .xlsx)")
	cmd.Flags().StringVarP(&flags.out, "out", "o", export.DefaultBaseName+".csv", "output file, or - for stdout")
	cmd.Flags().BoolVar(&flags.diagnostics, "diagnostics", false, "include outboundQty and finalStock columns")
	cmd.Flags().StringVar(&flags.tiers, "tiers", "", "pack tiers: standard, legacy or a comma list (overrides PACK_TIERS)")
	cmd.Flags().Float64Var(&flags.multiplier, "multiplier", 0, "catalog price multiplier (overrides PRICE_MULTIPLIER)")
	cmd.Flags().BoolVar(&flags.strict, "strict", false, "fail when an input has no data rows")
	_ = cmd.MarkFlagRequired("catalog")
	_ = cmd.MarkFlagRequired("movement")

	return cmd
}

func runOrder(cmd *cobra.Command, root *rootFlags, flags *runFlags) error {
	cfg, log, err := loadConfig(root)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	opts, err := cfg.PipelineOptions()
	if err != nil {
		return err
	}
	if flags.tiers != "" {
		if opts.Tiers, err = reorder.ParseTiers(flags.tiers); err != nil {
			return err
		}
	}
	if flags.multiplier != 0 {
		opts.Schema.PriceMultiplier = flags.multiplier
	}
	if flags.strict {
		opts.StrictEmpty = true
	}

	driver, err := pipeline.NewDriver(opts, nil, logger.Named(log, "svc.pipeline"))
	if err != nil {
		return err
	}

	input := tabular.Options{Encoding: cfg.Input.CSVEncoding, Sheet: cfg.Input.Sheet}
	catalog, err := readFile(flags.catalog, input)
	if err != nil {
		return err
	}
	movement, err := readFile(flags.movement, input)
	if err != nil {
		return err
	}

	result, err := driver.Run(catalog, movement)
	if err != nil {
		return err
	}

	if err := writeOrder(cmd.OutOrStdout(), flags.out, result.Rows, flags.diagnostics); err != nil {
		return err
	}

	printSummary(cmd.ErrOrStderr(), result)
	return nil
}

func loadConfig(root *rootFlags) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(root.envFile)
	if err != nil {
		return nil, nil, err
	}
	level := cfg.LogLevel
	if root.logLevel != "" {
		level = root.logLevel
	}
	log, err := logger.New(level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func readFile(path string, opts tabular.Options) (models.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Table{}, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	return tabular.Read(path, "", f, opts)
}

func writeOrder(stdout io.Writer, out string, rows []models.ReconciledRow, diagnostics bool) error {
	if out == "-" {
		return export.WriteCSV(stdout, rows, diagnostics)
	}

	write := export.WriteCSV
	switch strings.ToLower(filepath.Ext(out)) {
	case ".csv":
	case ".xlsx":
		write = export.WriteXLSX
	default:
		return fmt.Errorf("%w: output %s must end in .csv or .xlsx", tabular.ErrUnsupportedFormat, out)
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := write(f, rows, diagnostics); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func printSummary(w io.Writer, result *pipeline.Result) {
	s := result.Summary
	fmt.Fprintf(w, "run %s: %d catalog rows, %d movement rows, %d matched\n",
		result.RunID, s.CatalogRecords, s.MovementRecords, s.Matched)
	fmt.Fprintf(w, "order: %d lines, %d units, value %.2f\n", s.OrderLines, s.OrderUnits, s.OrderValue)
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
}

func newAliasesCommand(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "aliases",
		Short: "Print the effective header alias tables as JSON",
		Long: `Aliases prints the header spellings accepted for each canonical column,
including overrides from ALIASES_FILE. The output is a valid ALIASES_FILE.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(root.envFile)
			if err != nil {
				return err
			}
			aliases, err := schema.LoadAliases(cfg.Pipeline.AliasesFile)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(aliases)
		},
	}
}
