package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guttosm/k4ledger/config"
	"github.com/guttosm/k4ledger/internal/app"
	"github.com/guttosm/k4ledger/internal/ingestion"
	"github.com/guttosm/k4ledger/internal/logger"
	"github.com/guttosm/k4ledger/internal/service"
)

type reportFlags struct {
	year      int
	years     []int
	indata    string
	indata2   string
	dir       string
	out       string
	longNames bool
	parallel  int
	policy    string
}

func newReportCmd() *cobra.Command {
	var f reportFlags
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Replay tax years and write the K4 files",
		Example: `  k4ledger report --year 2025 --indata input/ibkr.csv --indata2 input/bitstamp.csv
  k4ledger report --years 2024,2025 --dir input --out output`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReport(cmd.Context(), config.AppConfig, f, cmd.Flags().Changed)
		},
	}
	cmd.Flags().IntVar(&f.year, "year", 0, "Tax year (default TAX_YEAR)")
	cmd.Flags().IntSliceVar(&f.years, "years", nil, "Tax years read from --dir, processed in parallel")
	cmd.Flags().StringVar(&f.indata, "indata", "", "Primary broker export with trades and currency rates")
	cmd.Flags().StringVar(&f.indata2, "indata2", "", "Secondary export with trades only")
	cmd.Flags().StringVar(&f.dir, "dir", "", "Directory with indata_ibkr_{year}.csv files (default INPUT_DIR)")
	cmd.Flags().StringVar(&f.out, "out", "", "Output directory (default OUTPUT_DIR)")
	cmd.Flags().BoolVar(&f.longNames, "longnames", false, "Write descriptions instead of tickers in BLANKETTER.SRU")
	cmd.Flags().IntVar(&f.parallel, "parallel", 0, "Years processed concurrently (0=auto, max 4)")
	cmd.Flags().StringVar(&f.policy, "option-sell", "", "Option sell without position: fail or skip (default OPTION_UNMATCHED_SELL)")
	cmd.MarkFlagsMutuallyExclusive("indata", "years")
	cmd.MarkFlagsMutuallyExclusive("indata", "dir")
	return cmd
}

// runReport applies flags over cfg, builds the jobs and runs them.
func runReport(ctx context.Context, cfg config.Config, f reportFlags, changed func(string) bool) error {
	if f.dir != "" {
		cfg.Ledger.InputDir = f.dir
	}
	if f.out != "" {
		cfg.Ledger.OutputDir = f.out
	}
	if changed("longnames") {
		cfg.Ledger.LongNames = f.longNames
	}
	if f.policy != "" {
		cfg.Ledger.UnmatchedOptionSell = f.policy
	}
	year := cfg.Ledger.Year
	if f.year != 0 {
		year = f.year
	}

	jobs, err := reportJobs(cfg, f, year)
	if err != nil {
		return err
	}

	settings, err := app.SettingsFrom(cfg)
	if err != nil {
		return err
	}
	settings.SplitByYear = len(jobs) > 1

	store, closeStore, err := app.NewStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := service.NewReportService(store, settings)
	err = ingestion.ProcessYears(ctx, jobs, f.parallel, func(ctx context.Context, job ingestion.Job) error {
		_, err := svc.Run(ctx, job)
		return err
	})
	if err != nil {
		logger.L().Error().Err(err).Msg("report failed")
		return err
	}
	logger.L().Info().Int("years", len(jobs)).Str("out", cfg.Ledger.OutputDir).Msg("report completed successfully")
	return nil
}

// reportJobs resolves the jobs: the explicit --indata files for one year,
// or one job per year found in the input directory.
func reportJobs(cfg config.Config, f reportFlags, year int) ([]ingestion.Job, error) {
	if f.indata != "" {
		return []ingestion.Job{{Year: year, Primary: f.indata, Secondary: f.indata2}}, nil
	}
	if f.indata2 != "" {
		return nil, fmt.Errorf("--indata2 requires --indata")
	}
	years := f.years
	if len(years) == 0 {
		years = []int{year}
	}
	return ingestion.JobsForDir(cfg.Ledger.InputDir, years)
}
