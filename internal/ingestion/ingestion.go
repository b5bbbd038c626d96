package ingestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/guttosm/k4ledger/internal/logger"
)

const (
	primaryPattern   = "indata_ibkr_%d.csv"
	secondaryPattern = "indata_bitstamp_%d.csv"
	maxParallelYears = 4
)

// Job is one tax year to process. Secondary is optional.
type Job struct {
	Year      int
	Primary   string
	Secondary string
}

// RunFunc processes one job. Each call is a complete single-threaded run.
type RunFunc func(ctx context.Context, job Job) error

// JobsForDir builds one job per year from the export files in dir.
//
// Behavior:
//   - Expects "indata_ibkr_{year}.csv" for every year; all missing files are
//     reported together before anything runs.
//   - Adds "indata_bitstamp_{year}.csv" when present.
func JobsForDir(dir string, years []int) ([]Job, error) {
	var jobs []Job
	var missing []string

	for _, y := range years {
		name := fmt.Sprintf(primaryPattern, y)
		job := Job{Year: y, Primary: filepath.Join(dir, name)}

		if _, err := os.Stat(job.Primary); err != nil {
			if os.IsNotExist(err) {
				missing = append(missing, name)
				continue
			}
			return nil, fmt.Errorf("stat failed for %s: %w", job.Primary, err)
		}

		sec := filepath.Join(dir, fmt.Sprintf(secondaryPattern, y))
		if _, err := os.Stat(sec); err == nil {
			job.Secondary = sec
		}
		jobs = append(jobs, job)
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required files: %s", strings.Join(missing, ", "))
	}
	return jobs, nil
}

// Load reads the primary export of job and, when set, the secondary one.
// Secondary trades are appended after the primary trades.
func Load(ctx context.Context, job Job) (Statement, error) {
	st, err := ReadIBKRFile(ctx, job.Primary)
	if err != nil {
		return Statement{}, fmt.Errorf("file %s: %w", job.Primary, err)
	}
	logger.L().Info().Str("file", filepath.Base(job.Primary)).Int("trades", len(st.Trades)).Int("rates", len(st.Rates)).Msg("export read")

	if job.Secondary != "" {
		extra, err := ReadTradesFile(ctx, job.Secondary)
		if err != nil {
			return Statement{}, fmt.Errorf("file %s: %w", job.Secondary, err)
		}
		logger.L().Info().Str("file", filepath.Base(job.Secondary)).Int("trades", len(extra)).Msg("export read")
		st.Trades = append(st.Trades, extra...)
	}

	if n := OutsideYear(st.Trades, job.Year); n > 0 {
		logger.L().Warn().Int("year", job.Year).Int("trades", n).Msg("trades outside tax year")
	}
	return st, nil
}

// ProcessYears runs jobs concurrently. Years are independent: each job gets
// its own ledger, rates and aggregator through run.
//
// Behavior:
//   - Uses a concurrency limit of min(4, NumCPU), or parallel clamped to 1..4.
//   - If any job returns an error, cancels the rest and returns that error.
func ProcessYears(ctx context.Context, jobs []Job, parallel int, run RunFunc) error {
	maxParallel := maxParallelYears
	if parallel > 0 {
		if parallel < maxParallel {
			maxParallel = parallel
		}
	} else if c := runtime.NumCPU(); c < maxParallel {
		maxParallel = c
	}

	logger.L().Info().Int("jobs", len(jobs)).Int("max_parallel", maxParallel).Msg("years start")

	// errgroup will cancel siblings on first error.
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, maxParallel)

	for i, job := range jobs {
		idx := i
		j := job
		sem <- struct{}{}

		g.Go(func() error {
			defer func() { <-sem }()
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			logger.L().Info().Int("idx", idx+1).Int("total", len(jobs)).Int("year", j.Year).Msg("year start")

			if err := run(gctx, j); err != nil {
				logger.L().Error().Int("year", j.Year).Dur("elapsed", time.Since(start)).Err(err).Msg("year failed")
				return fmt.Errorf("year %d: %w", j.Year, err)
			}
			logger.L().Info().Int("idx", idx+1).Int("total", len(jobs)).Int("year", j.Year).Dur("elapsed", time.Since(start)).Msg("year done")
			return nil
		})
	}

	return g.Wait()
}
