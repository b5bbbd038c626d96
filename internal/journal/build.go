// Package journal turns realized-gain statistics into round-trip journal
// entries and derives win-rate figures from them.
package journal

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/guttosm/k4ledger/internal/domain/models"
	"github.com/guttosm/k4ledger/internal/ledger"
)

// open accumulates the partial closes of one round trip.
type open struct {
	profitLoss float64
	pcts       []float64
	deltas     []float64
}

// Build replays stats in order and emits one entry each time a position
// returns to flat. Partial closes are accumulated; the entry carries the
// summed profit/loss and the delta-weighted average percentage.
//
// Options, currency balances and BTC are left out.
func Build(stats []models.Statistic) []models.JournalEntry {
	var out []models.JournalEntry
	acc := make(map[string]*open)

	for _, s := range stats {
		if Excluded(s.Symbol) {
			continue
		}
		o, ok := acc[s.Symbol]
		if !ok {
			o = &open{}
			acc[s.Symbol] = o
		}
		o.profitLoss += s.ProfitLoss
		o.pcts = append(o.pcts, s.ProfitLossPct)
		o.deltas = append(o.deltas, s.Delta)

		if math.Abs(s.PriorQuantity+s.Delta) >= ledger.QuantityEpsilon {
			continue
		}
		out = append(out, models.JournalEntry{
			Date:          s.Date,
			Symbol:        s.Symbol,
			Description:   s.Description,
			ProfitLoss:    o.profitLoss,
			ProfitLossPct: weightedPct(o.pcts, o.deltas),
			DurationDays:  DurationDays(s.OpenDate, s.Date),
			Win:           o.profitLoss >= 0,
		})
		delete(acc, s.Symbol)
	}
	return out
}

// Excluded reports whether symbol is kept out of the journal.
func Excluded(symbol string) bool {
	return symbol == ledger.DustSymbol || models.IsOption(symbol) || models.IsCurrency(symbol)
}

// DurationDays counts whole calendar days from opened to closed.
func DurationDays(opened, closed time.Time) int {
	if opened.IsZero() {
		return 0
	}
	o := time.Date(opened.Year(), opened.Month(), opened.Day(), 0, 0, 0, 0, time.UTC)
	c := time.Date(closed.Year(), closed.Month(), closed.Day(), 0, 0, 0, 0, time.UTC)
	return int(c.Sub(o).Hours() / 24)
}

func weightedPct(pcts, deltas []float64) float64 {
	var sum float64
	for _, d := range deltas {
		sum += d
	}
	if sum == 0 {
		return 0
	}
	return stat.Mean(pcts, deltas)
}
