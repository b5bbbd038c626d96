// Package ledger keeps the weighted-average-cost position of every
// instrument, currency balance and pair leg touched by a run.
package ledger

import (
	"math"
	"sort"
	"time"

	"github.com/guttosm/k4ledger/internal/domain/models"
	"github.com/guttosm/k4ledger/internal/logger"
)

// Rounding tolerances. Quantities below the quantity epsilon are treated as
// flat; the residual cost is only zeroed when it is below the cost epsilon.
const (
	QuantityEpsilon = 1e-4
	CostEpsilon     = 1e-4

	// BTC carries satoshi-level fee dust.
	DustSymbol          = "BTC"
	DustQuantityEpsilon = 2e-3
	DustCostEpsilon     = 100
)

// Ledger maps ledger keys to positions. Not safe for concurrent use; one
// ledger belongs to one run.
type Ledger struct {
	positions map[string]models.Position
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{positions: make(map[string]models.Position)}
}

// FromSnapshot seeds a ledger from persisted positions. Average costs are
// recomputed so the loaded state satisfies the same invariants as Set.
func FromSnapshot(snapshot map[string]models.Position) *Ledger {
	l := New()
	for code, p := range snapshot {
		l.positions[code] = normalize(p)
	}
	return l
}

// Get returns the position for code and whether it exists.
func (l *Ledger) Get(code string) (models.Position, bool) {
	p, ok := l.positions[code]
	return p, ok
}

// Ensure returns the position for code, creating a flat one on first access.
func (l *Ledger) Ensure(code string) models.Position {
	p, ok := l.positions[code]
	if !ok {
		l.positions[code] = p
	}
	return p
}

// Set stores quantity and total cost for code and recomputes the average.
//
// Behavior:
//   - quantity exactly zero: the position is reset to flat (cost, average and
//     open date cleared).
//   - |quantity| below the tolerance: quantity and average snap to zero and
//     the open date is cleared; the total cost is zeroed only when it is also
//     below the tolerance, otherwise it is kept and logged.
//   - otherwise average = totalCost / quantity.
func (l *Ledger) Set(code string, quantity, totalCost float64, openDate time.Time) models.Position {
	qEps, cEps := tolerances(code)
	p := models.Position{Quantity: quantity, TotalCost: totalCost, OpenDate: openDate}

	switch {
	case quantity == 0:
		p = models.Position{}
	case math.Abs(quantity) < qEps:
		p.Quantity = 0
		p.AverageCost = 0
		p.OpenDate = time.Time{}
		if math.Abs(totalCost) < cEps {
			p.TotalCost = 0
		} else {
			logger.L().Info().
				Str("symbol", code).
				Float64("quantity", quantity).
				Float64("total_cost", totalCost).
				Msg("residual cost after flat position")
		}
	default:
		p.AverageCost = totalCost / quantity
	}

	l.positions[code] = p
	return p
}

// Len returns the number of keys, flat ones included.
func (l *Ledger) Len() int { return len(l.positions) }

// Symbols returns every key in ascending order.
func (l *Ledger) Symbols() []string {
	out := make([]string, 0, len(l.positions))
	for k := range l.positions {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Snapshot copies every position, flat ones included.
func (l *Ledger) Snapshot() map[string]models.Position {
	out := make(map[string]models.Position, len(l.positions))
	for k, p := range l.positions {
		out[k] = p
	}
	return out
}

// Open copies the positions whose quantity is not zero. This is the form
// persisted between runs.
func (l *Ledger) Open() map[string]models.Position {
	return FilterOpen(l.positions)
}

// FilterOpen drops flat positions.
func FilterOpen(positions map[string]models.Position) map[string]models.Position {
	out := make(map[string]models.Position, len(positions))
	for k, p := range positions {
		if p.Quantity != 0 {
			out[k] = p
		}
	}
	return out
}

func normalize(p models.Position) models.Position {
	if p.Quantity == 0 {
		p.AverageCost = 0
		p.OpenDate = time.Time{}
		return p
	}
	p.AverageCost = p.TotalCost / p.Quantity
	return p
}

func tolerances(code string) (quantity, cost float64) {
	if code == DustSymbol {
		return DustQuantityEpsilon, DustCostEpsilon
	}
	return QuantityEpsilon, CostEpsilon
}
