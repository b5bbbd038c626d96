package models

import "time"

// DateLayout is the compact calendar-date layout used by the broker export
// and as the date part of FX table keys.
const DateLayout = "20060102"

// Side is the direction of an execution as reported in the Buy/Sell column.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Trade represents a single execution row in the broker export.
// Each field matches one column in the trades section of the .csv file.
//
// Column order:
//  1. DateTime
//  2. Symbol
//  3. Buy/Sell
//  4. Quantity
//  5. TradePrice
//  6. IBCommission
//  7. CurrencyPrimary
//  8. Description
//  9. ISIN
//  10. Exchange
//
// Quantity is signed (positive = buy, negative = sell). Commission is always
// stored as a positive cost even though the export reports it as negative.
type Trade struct {
	DateTime    time.Time
	Symbol      string
	Side        Side
	Quantity    float64
	Price       float64
	Commission  float64
	Currency    string
	Description string
	ISIN        string
	Exchange    string
}

// Date returns the trade date in DateLayout.
func (t Trade) Date() string {
	return t.DateTime.Format(DateLayout)
}

// RateRow is one line of the currency-rates section of the export.
type RateRow struct {
	DateTime time.Time
	From     string
	To       string
	Rate     float64
}
