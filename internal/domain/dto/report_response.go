package dto

import (
	"math"
	"sort"
	"time"

	"github.com/guttosm/k4ledger/internal/domain/models"
	"github.com/guttosm/k4ledger/internal/journal"
	"github.com/guttosm/k4ledger/internal/k4"
)

// K4Response is the body of GET /api/v1/reports/{year}/k4.
type K4Response struct {
	Year        int            `json:"year" example:"2025"`
	RunID       string         `json:"run_id" example:"6f1c1f43-52d8-4c8e-9f0e-3a0a2f7f3f7a"`
	GeneratedAt time.Time      `json:"generated_at"`
	Rows        []models.K4Row `json:"rows"`
	Totals      k4.Totals      `json:"totals"`
}

// NewK4Response rounds the stored entries of r into form rows.
func NewK4Response(r *models.Report) K4Response {
	rows := k4.ToIntegers(r.Entries)
	return K4Response{
		Year:        r.Year,
		RunID:       r.RunID,
		GeneratedAt: r.GeneratedAt,
		Rows:        rows,
		Totals:      k4.Sum(rows),
	}
}

// PositionResponse is one open position.
type PositionResponse struct {
	Symbol      string    `json:"symbol" example:"AAPL"`
	Quantity    float64   `json:"quantity" example:"10"`
	TotalCost   float64   `json:"total_cost" example:"24650.5"`
	AverageCost float64   `json:"average_cost" example:"2465.05"`
	OpenDate    time.Time `json:"open_date"`
}

// PositionsResponse is the body of GET /api/v1/reports/{year}/positions.
type PositionsResponse struct {
	Year      int                `json:"year" example:"2025"`
	Positions []PositionResponse `json:"positions"`
}

// NewPositionsResponse lists the closing positions of r ordered by symbol.
func NewPositionsResponse(r *models.Report) PositionsResponse {
	out := PositionsResponse{Year: r.Year, Positions: make([]PositionResponse, 0, len(r.Positions))}
	for sym, p := range r.Positions {
		out.Positions = append(out.Positions, PositionResponse{
			Symbol:      sym,
			Quantity:    p.Quantity,
			TotalCost:   p.TotalCost,
			AverageCost: p.AverageCost,
			OpenDate:    p.OpenDate,
		})
	}
	sort.Slice(out.Positions, func(i, j int) bool { return out.Positions[i].Symbol < out.Positions[j].Symbol })
	return out
}

// SummaryResponse is journal.Summary with the unbounded ratios as nullable
// numbers; JSON has no infinity.
type SummaryResponse struct {
	journal.Summary
	WinLossRatio    *float64 `json:"win_loss_ratio"`
	AdjWinLossRatio *float64 `json:"adj_win_loss_ratio"`
}

// JournalResponse is the body of GET /api/v1/reports/{year}/journal.
type JournalResponse struct {
	Year    int                   `json:"year" example:"2025"`
	Entries []models.JournalEntry `json:"entries"`
	Summary SummaryResponse       `json:"summary"`
	Monthly []journal.MonthlyRow  `json:"monthly"`
}

// NewJournalResponse builds the response from journal entries and their
// aggregates.
func NewJournalResponse(year int, entries []models.JournalEntry, sum journal.Summary, monthly []journal.MonthlyRow) JournalResponse {
	if entries == nil {
		entries = []models.JournalEntry{}
	}
	if monthly == nil {
		monthly = []journal.MonthlyRow{}
	}
	return JournalResponse{
		Year:    year,
		Entries: entries,
		Summary: SummaryResponse{
			Summary:         sum,
			WinLossRatio:    finite(sum.WinLossRatio),
			AdjWinLossRatio: finite(sum.AdjWinLossRatio),
		},
		Monthly: monthly,
	}
}

// RunResponse is the body of POST /api/v1/reports/{year}/run.
type RunResponse struct {
	Year           int       `json:"year" example:"2025"`
	RunID          string    `json:"run_id"`
	Trades         int       `json:"trades" example:"412"`
	Rows           int       `json:"rows" example:"37"`
	OpenPositions  int       `json:"open_positions" example:"12"`
	JournalEntries int       `json:"journal_entries" example:"58"`
	Totals         k4.Totals `json:"totals"`
}

func finite(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}
