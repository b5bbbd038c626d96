package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/guttosm/k4ledger/internal/domain/models"
)

var csvHeader = []string{"Date", "Symbol", "Description", "Profit/Loss", "Percent", "Win"}

// WriteCSV writes entries with a header row. Dates use YYYYMMDD.
func WriteCSV(w io.Writer, entries []models.JournalEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, e := range entries {
		rec := []string{
			e.Date.Format(models.DateLayout),
			e.Symbol,
			e.Description,
			strconv.FormatFloat(e.ProfitLoss, 'f', 2, 64),
			strconv.FormatFloat(e.ProfitLossPct, 'f', 2, 64),
			strconv.FormatBool(e.Win),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write %s: %w", e.Symbol, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
