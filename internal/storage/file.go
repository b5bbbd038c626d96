package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/guttosm/k4ledger/internal/domain/models"
	"github.com/guttosm/k4ledger/internal/fx"
	"github.com/guttosm/k4ledger/internal/ledger"
	"github.com/guttosm/k4ledger/internal/logger"
)

const entryDateLayout = models.DateLayout + ";150405"

// filePosition is the on-disk form of a position in the portfolio files.
type filePosition struct {
	Quantity   float64 `json:"quantity"`
	TotalPrice float64 `json:"totalprice"`
	AvgPrice   float64 `json:"avgprice"`
	EntryDate  string  `json:"entry_date,omitempty"`
}

// FileStore keeps snapshots as JSON files:
//
//	{input}/input_portfolio_{year}.json       opening portfolio
//	{output}/output_portfolio_{year}.json     closing portfolio
//	{input}/input_currency_rates_{year}.json  persisted rates
//	{output}/output_currency_rates_{year}.json
//	{output}/report_{year}.json
type FileStore struct {
	InputDir  string
	OutputDir string
}

// NewFileStore returns a store reading from inputDir and writing to outputDir.
func NewFileStore(inputDir, outputDir string) *FileStore {
	return &FileStore{InputDir: inputDir, OutputDir: outputDir}
}

// LoadPositions reads the opening portfolio of year. Without an input file
// the previous year's closing portfolio is used; with neither it is empty.
func (s *FileStore) LoadPositions(_ context.Context, year int) (map[string]models.Position, error) {
	path := filepath.Join(s.InputDir, fmt.Sprintf("input_portfolio_%d.json", year))
	positions, err := ReadPositions(path)
	if err == nil {
		logger.L().Info().Int("year", year).Int("positions", len(positions)).Str("file", path).Msg("portfolio loaded")
		return positions, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	prev := filepath.Join(s.OutputDir, fmt.Sprintf("output_portfolio_%d.json", year-1))
	positions, err = ReadPositions(prev)
	if errors.Is(err, os.ErrNotExist) {
		logger.L().Info().Int("year", year).Msg("no portfolio file, starting empty")
		return map[string]models.Position{}, nil
	}
	if err != nil {
		return nil, err
	}
	logger.L().Info().Int("year", year).Int("positions", len(positions)).Str("file", prev).Msg("portfolio carried over")
	return positions, nil
}

// SavePositions writes the closing portfolio of year, flat positions dropped.
func (s *FileStore) SavePositions(_ context.Context, year int, positions map[string]models.Position) error {
	path := filepath.Join(s.OutputDir, fmt.Sprintf("output_portfolio_%d.json", year))
	return WritePositions(path, ledger.FilterOpen(positions))
}

// LoadRates reads persisted rates keyed "YYYYMMDD_CUR". A missing file is an
// empty map.
func (s *FileStore) LoadRates(_ context.Context, year int) (map[fx.Key]float64, error) {
	path := filepath.Join(s.InputDir, fmt.Sprintf("input_currency_rates_%d.json", year))
	raw := map[string]float64{}
	if err := readJSON(path, &raw); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[fx.Key]float64{}, nil
		}
		return nil, err
	}
	out := make(map[fx.Key]float64, len(raw))
	for k, v := range raw {
		key, err := fx.ParseKey(k)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out[key] = v
	}
	return out, nil
}

// SaveRates writes rates in the same layout LoadRates reads.
func (s *FileStore) SaveRates(_ context.Context, year int, rates map[fx.Key]float64) error {
	raw := make(map[string]float64, len(rates))
	for k, v := range rates {
		raw[k.String()] = v
	}
	return writeJSON(filepath.Join(s.OutputDir, fmt.Sprintf("output_currency_rates_%d.json", year)), raw)
}

// SaveReport writes the run report of year, replacing any earlier one.
func (s *FileStore) SaveReport(_ context.Context, year int, report *models.Report) error {
	return writeJSON(s.reportPath(year), report)
}

// LoadReport reads the run report of year.
func (s *FileStore) LoadReport(_ context.Context, year int) (*models.Report, error) {
	var r models.Report
	if err := readJSON(s.reportPath(year), &r); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

// Ping checks that the input directory is readable.
func (s *FileStore) Ping(_ context.Context) error {
	info, err := os.Stat(s.InputDir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.InputDir)
	}
	return nil
}

func (s *FileStore) reportPath(year int) string {
	return filepath.Join(s.OutputDir, fmt.Sprintf("report_%d.json", year))
}

// ReadPositions reads a portfolio file. The average price is recomputed
// from quantity and total price.
func ReadPositions(path string) (map[string]models.Position, error) {
	raw := map[string]filePosition{}
	if err := readJSON(path, &raw); err != nil {
		return nil, err
	}
	out := make(map[string]models.Position, len(raw))
	for sym, fp := range raw {
		p := models.Position{Quantity: fp.Quantity, TotalCost: fp.TotalPrice}
		if fp.Quantity != 0 {
			p.AverageCost = fp.TotalPrice / fp.Quantity
		}
		if fp.EntryDate != "" {
			d, err := parseEntryDate(fp.EntryDate)
			if err != nil {
				return nil, fmt.Errorf("%s: %s: invalid entry_date: %w", path, sym, err)
			}
			p.OpenDate = d
		}
		out[sym] = p
	}
	return out, nil
}

// WritePositions writes a portfolio file in the layout ReadPositions reads.
func WritePositions(path string, positions map[string]models.Position) error {
	raw := make(map[string]filePosition, len(positions))
	for sym, p := range positions {
		fp := filePosition{Quantity: p.Quantity, TotalPrice: p.TotalCost, AvgPrice: p.AverageCost}
		if !p.OpenDate.IsZero() {
			fp.EntryDate = p.OpenDate.Format(entryDateLayout)
		}
		raw[sym] = fp
	}
	return writeJSON(path, raw)
}

func parseEntryDate(s string) (time.Time, error) {
	if strings.Contains(s, ";") {
		return time.Parse(entryDateLayout, s)
	}
	return time.Parse(models.DateLayout, s)
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("invalid JSON in %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	b, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}

	// write-then-rename so concurrent readers never see a partial file
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
