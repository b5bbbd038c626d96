package service

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/guttosm/k4ledger/internal/journal"
	"github.com/guttosm/k4ledger/internal/logger"
)

// Print logs the K4 rows, the totals and the journal statistics of res.
func Print(res *Result) {
	log := logger.L()
	year := res.Report.Year

	for _, r := range res.Rows {
		log.Info().
			Int("year", year).
			Str("symbol", r.Symbol).
			Str("description", r.Description).
			Int64("quantity", r.Quantity).
			Int64("proceeds", r.Proceeds).
			Int64("cost_basis", r.CostBasis).
			Int64("gain", r.Gain()).
			Msg("k4")
	}
	log.Info().Int("year", year).Int64("income", res.Totals.Income).Int64("tax", res.Totals.Tax).Msg("k4 totals")

	for _, m := range journal.Monthly(res.Journal) {
		log.Debug().
			Str("month", m.Month).
			Int("trades", m.Trades).
			Float64("win_rate", m.WinRate).
			Float64("avg_gain_pct", m.AvgGainPct).
			Float64("avg_loss_pct", m.AvgLossPct).
			Float64("largest_gain_pct", m.LargestGainPct).
			Float64("largest_loss_pct", m.LargestLossPct).
			Float64("avg_days_gain", m.AvgDaysGain).
			Float64("avg_days_loss", m.AvgDaysLoss).
			Msg("journal month")
	}

	sum := journal.Summarize(res.Journal)
	ev := log.Info().
		Int("year", year).
		Int("trades", sum.Trades).
		Int("wins", sum.Wins).
		Float64("win_rate", sum.WinRate).
		Float64("avg_gain_pct", sum.AvgGainPct).
		Float64("avg_loss_pct", sum.AvgLossPct)
	ratio(ev, "win_loss_ratio", sum.WinLossRatio)
	ratio(ev, "adj_win_loss_ratio", sum.AdjWinLossRatio)
	ev.Msg("journal summary")
}

// ratio adds v to ev, as a string when it is infinite.
func ratio(ev *zerolog.Event, key string, v float64) {
	if math.IsInf(v, 0) {
		ev.Str(key, "inf")
		return
	}
	ev.Float64(key, v)
}
