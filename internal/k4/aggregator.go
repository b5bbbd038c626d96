// Package k4 accumulates realized gains per instrument and turns them into
// the whole-krona rows of the K4 tax form.
package k4

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/guttosm/k4ledger/internal/domain/models"
)

// TaxRate is the flat capital income tax applied to the net gain.
var TaxRate = decimal.RequireFromString("0.3")

// Aggregator accumulates one K4Entry per instrument for the whole run.
type Aggregator struct {
	entries map[string]*models.K4Entry
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{entries: make(map[string]*models.K4Entry)}
}

// Record adds one disposal. disposed is a positive unit count; proceeds and
// cost are in the base currency. The first description seen for a symbol
// is kept.
func (a *Aggregator) Record(symbol, description string, disposed, proceeds, cost float64) {
	e, ok := a.entries[symbol]
	if !ok {
		e = &models.K4Entry{Symbol: symbol, Description: description}
		a.entries[symbol] = e
	}
	e.Quantity += disposed
	e.Proceeds += proceeds
	e.CostBasis += cost
}

// Len returns the number of instruments with at least one disposal.
func (a *Aggregator) Len() int { return len(a.entries) }

// Finalize returns the accumulated entries sorted by symbol.
func (a *Aggregator) Finalize() []models.K4Entry {
	out := make([]models.K4Entry, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// ToIntegers rounds every entry to whole units with half-to-even rounding,
// the form the tax authority accepts.
func ToIntegers(entries []models.K4Entry) []models.K4Row {
	rows := make([]models.K4Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, models.K4Row{
			Symbol:      e.Symbol,
			Description: e.Description,
			Quantity:    round(e.Quantity),
			Proceeds:    round(e.Proceeds),
			CostBasis:   round(e.CostBasis),
		})
	}
	return rows
}

// Totals is the net capital income of a set of rows and the tax on it.
type Totals struct {
	Income int64 `json:"income"`
	Tax    int64 `json:"tax"`
}

// Sum returns the totals of rows. Tax is computed on the net income even
// when it is negative, matching the printed statistics.
func Sum(rows []models.K4Row) Totals {
	income := decimal.Zero
	for _, r := range rows {
		income = income.Add(decimal.NewFromInt(r.Gain()))
	}
	return Totals{
		Income: income.IntPart(),
		Tax:    income.Mul(TaxRate).RoundBank(0).IntPart(),
	}
}

func round(v float64) int64 {
	return decimal.NewFromFloat(v).RoundBank(0).IntPart()
}
