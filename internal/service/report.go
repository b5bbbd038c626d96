// Package service runs the tax-year pipeline and serves stored reports.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/guttosm/k4ledger/internal/domain/models"
	"github.com/guttosm/k4ledger/internal/engine"
	"github.com/guttosm/k4ledger/internal/fx"
	"github.com/guttosm/k4ledger/internal/ingestion"
	"github.com/guttosm/k4ledger/internal/journal"
	"github.com/guttosm/k4ledger/internal/k4"
	"github.com/guttosm/k4ledger/internal/ledger"
	"github.com/guttosm/k4ledger/internal/logger"
	"github.com/guttosm/k4ledger/internal/sequencer"
	"github.com/guttosm/k4ledger/internal/sru"
	"github.com/guttosm/k4ledger/internal/storage"
)

// ErrNotFound is returned when a year has no stored run.
var ErrNotFound = errors.New("no report for year")

// Settings configures a ReportService.
//
// Fields:
//   - InputDir: directory holding indata_ibkr_{year}.csv for RunYear.
//   - OutputDir: directory receiving the SRU files and the statistics CSV.
//     Empty disables file export.
//   - SplitByYear: export into OutputDir/{year}/ so parallel years don't
//     overwrite each other's SRU files.
//   - Engine: engine policy.
//   - Taxpayer, LongNames: SRU identity and beteckning style.
//   - Now: clock for run timestamps. Defaults to time.Now.
type Settings struct {
	InputDir    string
	OutputDir   string
	SplitByYear bool
	Engine      engine.Options
	Taxpayer    sru.Taxpayer
	LongNames   bool
	Now         func() time.Time
}

// Result is the outcome of one pipeline run.
type Result struct {
	Report  *models.Report
	Rows    []models.K4Row
	Totals  k4.Totals
	Journal []models.JournalEntry
}

// JournalView is the journal of a stored run with its statistics.
type JournalView struct {
	Year    int                   `json:"year"`
	Entries []models.JournalEntry `json:"entries"`
	Summary journal.Summary       `json:"summary"`
	Monthly []journal.MonthlyRow  `json:"monthly"`
}

// ReportService runs tax years and reads back their results.
type ReportService interface {
	Run(ctx context.Context, job ingestion.Job) (*Result, error)
	RunYear(ctx context.Context, year int) (*Result, error)
	GetReport(ctx context.Context, year int) (*models.Report, error)
	GetJournal(ctx context.Context, year int) (*JournalView, error)
}

type reportService struct {
	store    storage.SnapshotStore
	settings Settings
}

// NewReportService wires a ReportService over store.
func NewReportService(store storage.SnapshotStore, settings Settings) ReportService {
	if settings.Now == nil {
		settings.Now = time.Now
	}
	return &reportService{store: store, settings: settings}
}

// RunYear runs year from the export files found in Settings.InputDir.
func (s *reportService) RunYear(ctx context.Context, year int) (*Result, error) {
	jobs, err := ingestion.JobsForDir(s.settings.InputDir, []int{year})
	if err != nil {
		return nil, err
	}
	return s.Run(ctx, jobs[0])
}

// Run executes the pipeline for one job.
//
// Steps:
//  1. Read the exports and the persisted opening state of the year.
//  2. Build the FX table; persisted rates fill dates the export lacks.
//  3. Sequence the trades and replay them on a fresh run.
//  4. Persist the closing positions, the rates and the report.
//  5. Export the SRU files and the statistics CSV when OutputDir is set.
//
// A failed replay aborts before anything is persisted. Cancellation is
// honoured up to the first save; the three saves then run to completion so a
// stored position set always has its report.
func (s *reportService) Run(ctx context.Context, job ingestion.Job) (*Result, error) {
	start := time.Now()
	log := logger.L().With().Int("year", job.Year).Logger()

	st, err := ingestion.Load(ctx, job)
	if err != nil {
		return nil, err
	}

	positions, err := s.store.LoadPositions(ctx, job.Year)
	if err != nil {
		return nil, fmt.Errorf("load positions: %w", err)
	}

	table, err := fx.Build(st.Rates)
	if err != nil {
		return nil, fmt.Errorf("build rates: %w", err)
	}
	persisted, err := s.store.LoadRates(ctx, job.Year)
	if err != nil {
		return nil, fmt.Errorf("load rates: %w", err)
	}
	if n := table.Merge(persisted); n > 0 {
		log.Info().Int("rates", n).Msg("persisted rates merged")
	}

	trades := sequencer.Order(st.Trades)
	run := engine.NewRun(ledger.FromSnapshot(positions), table, s.settings.Engine)
	if err := run.Replay(trades); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries := run.K4.Finalize()
	report := &models.Report{
		RunID:       uuid.NewString(),
		Year:        job.Year,
		GeneratedAt: s.settings.Now().UTC(),
		Trades:      len(trades),
		Entries:     entries,
		Statistics:  run.Stats,
		Positions:   run.Ledger.Open(),
	}

	saveCtx := context.WithoutCancel(ctx)
	if err := s.store.SavePositions(saveCtx, job.Year, report.Positions); err != nil {
		return nil, fmt.Errorf("save positions: %w", err)
	}
	if err := s.store.SaveRates(saveCtx, job.Year, table.Snapshot()); err != nil {
		return nil, fmt.Errorf("save rates: %w", err)
	}
	if err := s.store.SaveReport(saveCtx, job.Year, report); err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}

	rows := k4.ToIntegers(entries)
	res := &Result{
		Report:  report,
		Rows:    rows,
		Totals:  k4.Sum(rows),
		Journal: journal.Build(run.Stats),
	}

	if err := s.export(job.Year, res); err != nil {
		return nil, err
	}

	Print(res)
	log.Info().
		Str("run_id", report.RunID).
		Int("trades", report.Trades).
		Int("k4_rows", len(rows)).
		Int("open_positions", len(report.Positions)).
		Dur("elapsed", time.Since(start)).
		Msg("year processed")
	return res, nil
}

func (s *reportService) export(year int, res *Result) error {
	dir := s.settings.OutputDir
	if dir == "" {
		return nil
	}
	if s.settings.SplitByYear {
		dir = filepath.Join(dir, strconv.Itoa(year))
	}

	opts := sru.Options{LongNames: s.settings.LongNames, Now: s.settings.Now}
	if err := sru.WriteFiles(dir, s.settings.Taxpayer, res.Rows, opts); err != nil {
		return fmt.Errorf("write sru: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("trading_statistics_%d.csv", year))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := journal.WriteCSV(f, res.Journal); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// GetReport returns the stored report of year or ErrNotFound.
func (s *reportService) GetReport(ctx context.Context, year int) (*models.Report, error) {
	r, err := s.store.LoadReport(ctx, year)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("%w %d", ErrNotFound, year)
	}
	return r, nil
}

// GetJournal rebuilds the journal of a stored run from its statistics.
func (s *reportService) GetJournal(ctx context.Context, year int) (*JournalView, error) {
	r, err := s.GetReport(ctx, year)
	if err != nil {
		return nil, err
	}
	entries := journal.Build(r.Statistics)
	return &JournalView{
		Year:    year,
		Entries: entries,
		Summary: journal.Summarize(entries),
		Monthly: journal.Monthly(entries),
	}, nil
}
