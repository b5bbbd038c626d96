package models

import "time"

// K4Entry is the realized-gain aggregate of one instrument over a run,
// expressed in the base currency.
//
// Fields:
//   - Symbol: ledger key (beteckning).
//   - Description: description of the first disposal seen.
//   - Quantity: accumulated disposed units (antal), always positive.
//   - Proceeds: accumulated sale proceeds (försäljningspris).
//   - CostBasis: accumulated cost basis (omkostnadsbelopp).
type K4Entry struct {
	Symbol      string  `json:"symbol"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Proceeds    float64 `json:"proceeds"`
	CostBasis   float64 `json:"cost_basis"`
}

// Gain is proceeds minus cost basis.
func (e K4Entry) Gain() float64 { return e.Proceeds - e.CostBasis }

// K4Row is a K4Entry rounded to the whole units the tax form accepts.
type K4Row struct {
	Symbol      string `json:"symbol" example:"AAPL"`
	Description string `json:"description" example:"APPLE INC"`
	Quantity    int64  `json:"quantity" example:"10"`
	Proceeds    int64  `json:"proceeds" example:"18250"`
	CostBasis   int64  `json:"cost_basis" example:"15010"`
}

// Gain is proceeds minus cost basis.
func (r K4Row) Gain() int64 { return r.Proceeds - r.CostBasis }

// Statistic is emitted once per realized-gain event.
//
// PriorQuantity is the position quantity immediately before the event and
// Delta the signed change the event applied to it, so a position is flat
// after the event when PriorQuantity+Delta is zero.
type Statistic struct {
	Date          time.Time `json:"date"`
	Symbol        string    `json:"symbol"`
	Description   string    `json:"description"`
	PriorQuantity float64   `json:"prior_quantity"`
	Delta         float64   `json:"delta"`
	ProfitLoss    float64   `json:"profit_loss"`
	ProfitLossPct float64   `json:"profit_loss_pct"`
	OpenDate      time.Time `json:"open_date"`
}

// JournalEntry is one completed round trip (open → flat).
type JournalEntry struct {
	Date          time.Time `json:"date"`
	Symbol        string    `json:"symbol"`
	Description   string    `json:"description"`
	ProfitLoss    float64   `json:"profit_loss"`
	ProfitLossPct float64   `json:"profit_loss_pct"`
	DurationDays  int       `json:"duration_days"`
	Win           bool      `json:"win"`
}

// Report is the persisted outcome of one tax-year run.
type Report struct {
	RunID       string              `json:"run_id"`
	Year        int                 `json:"year"`
	GeneratedAt time.Time           `json:"generated_at"`
	Trades      int                 `json:"trades"`
	Entries     []K4Entry           `json:"entries"`
	Statistics  []Statistic         `json:"statistics"`
	Positions   map[string]Position `json:"positions"`
}
