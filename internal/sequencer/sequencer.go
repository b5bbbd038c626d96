// Package sequencer orders raw trade events for replay.
package sequencer

import (
	"sort"

	"github.com/guttosm/k4ledger/internal/domain/models"
)

// ContractMultiplier is the number of underlying units per option lot.
const ContractMultiplier = 100

// Order returns a sorted copy of trades. The input is not modified.
//
// Ordering:
//   - Dated events sort by trade date, then currency pairs before everything
//     else on the same date, then intraday time, then input order.
//   - Option lots come after all dated events, grouped by symbol with BUY
//     legs before SELL legs, then by time.
//
// Option prices are scaled by ContractMultiplier so the ledger sees
// per-lot amounts.
func Order(trades []models.Trade) []models.Trade {
	out := make([]models.Trade, len(trades))
	copy(out, trades)

	for i := range out {
		if models.IsOption(out[i].Symbol) {
			out[i].Price *= ContractMultiplier
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		ao, bo := models.IsOption(a.Symbol), models.IsOption(b.Symbol)
		if ao != bo {
			return !ao
		}
		if ao {
			if a.Symbol != b.Symbol {
				return a.Symbol < b.Symbol
			}
			if sa, sb := sideRank(a.Side), sideRank(b.Side); sa != sb {
				return sa < sb
			}
			return a.DateTime.Before(b.DateTime)
		}
		if da, db := a.Date(), b.Date(); da != db {
			return da < db
		}
		if pa, pb := pairRank(a.Symbol), pairRank(b.Symbol); pa != pb {
			return pa < pb
		}
		return a.DateTime.Before(b.DateTime)
	})
	return out
}

func pairRank(symbol string) int {
	if models.IsPair(symbol) {
		return 1
	}
	return 2
}

func sideRank(s models.Side) int {
	if s == models.SideBuy {
		return 1
	}
	return 2
}
