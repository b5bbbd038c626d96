package journal

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/guttosm/k4ledger/internal/domain/models"
)

// MonthlyRow is the win-rate tracker for one calendar month.
type MonthlyRow struct {
	Month          string  `json:"month" example:"202503"`
	AvgGainPct     float64 `json:"avg_gain_pct"`
	AvgLossPct     float64 `json:"avg_loss_pct"`
	WinRate        float64 `json:"win_rate"`
	Trades         int     `json:"trades"`
	LargestGainPct float64 `json:"largest_gain_pct"`
	LargestLossPct float64 `json:"largest_loss_pct"`
	AvgDaysGain    float64 `json:"avg_days_gain"`
	AvgDaysLoss    float64 `json:"avg_days_loss"`
}

// Summary aggregates every journal entry of a run.
type Summary struct {
	Trades          int     `json:"trades"`
	Wins            int     `json:"wins"`
	WinRate         float64 `json:"win_rate"`
	AvgGainPct      float64 `json:"avg_gain_pct"`
	AvgLossPct      float64 `json:"avg_loss_pct"`
	WinLossRatio    float64 `json:"-"`
	AdjWinLossRatio float64 `json:"-"`
}

// split partitions entries into winners and losers.
type split struct {
	gainPct, lossPct   []float64
	gainDays, lossDays []float64
}

func partition(entries []models.JournalEntry) split {
	var s split
	for _, e := range entries {
		if e.Win {
			s.gainPct = append(s.gainPct, e.ProfitLossPct)
			s.gainDays = append(s.gainDays, float64(e.DurationDays))
			continue
		}
		s.lossPct = append(s.lossPct, e.ProfitLossPct)
		s.lossDays = append(s.lossDays, float64(e.DurationDays))
	}
	return s
}

// mean is stat.Mean with an empty input mapped to zero.
func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

func winRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total) * 100
}

// Monthly groups entries by the YYYYMM of their close date, in ascending
// month order.
func Monthly(entries []models.JournalEntry) []MonthlyRow {
	byMonth := make(map[string][]models.JournalEntry)
	for _, e := range entries {
		m := e.Date.Format("200601")
		byMonth[m] = append(byMonth[m], e)
	}
	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)

	out := make([]MonthlyRow, 0, len(months))
	for _, m := range months {
		es := byMonth[m]
		s := partition(es)
		row := MonthlyRow{
			Month:       m,
			AvgGainPct:  mean(s.gainPct),
			AvgLossPct:  mean(s.lossPct),
			WinRate:     winRate(len(s.gainPct), len(es)),
			Trades:      len(es),
			AvgDaysGain: mean(s.gainDays),
			AvgDaysLoss: mean(s.lossDays),
		}
		for i, p := range s.gainPct {
			if i == 0 || p > row.LargestGainPct {
				row.LargestGainPct = p
			}
		}
		for i, p := range s.lossPct {
			if i == 0 || p < row.LargestLossPct {
				row.LargestLossPct = p
			}
		}
		out = append(out, row)
	}
	return out
}

// Summarize computes the win rate and the win/loss ratios over entries.
// Ratios are +Inf when the average loss is zero; the adjusted ratio is also
// +Inf at a 100% win rate.
func Summarize(entries []models.JournalEntry) Summary {
	s := partition(entries)
	sum := Summary{
		Trades:     len(entries),
		Wins:       len(s.gainPct),
		WinRate:    winRate(len(s.gainPct), len(entries)),
		AvgGainPct: mean(s.gainPct),
		AvgLossPct: mean(s.lossPct),
	}

	loss := math.Abs(sum.AvgLossPct)
	sum.WinLossRatio = math.Inf(1)
	sum.AdjWinLossRatio = math.Inf(1)
	if loss != 0 {
		sum.WinLossRatio = sum.AvgGainPct / loss
		if sum.WinRate < 100 {
			w := sum.WinRate / 100
			sum.AdjWinLossRatio = sum.AvgGainPct * w / (loss * (1 - w))
		}
	}
	return sum
}
