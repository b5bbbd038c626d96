package models

import "time"

// Position is the weighted-average-cost state of one ledger key.
//
// Quantity and TotalCost share the same sign: positive for a long holding,
// negative for a short or margin-loan balance. AverageCost is
// TotalCost/Quantity, or 0 when flat. OpenDate is the zero time when the
// position is flat.
type Position struct {
	Quantity    float64   `json:"quantity"`
	TotalCost   float64   `json:"total_cost"`
	AverageCost float64   `json:"average_cost"`
	OpenDate    time.Time `json:"open_date,omitempty"`
}

// Flat reports whether the position holds no units.
func (p Position) Flat() bool { return p.Quantity == 0 }
