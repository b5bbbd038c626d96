package engine

import (
	"errors"
	"fmt"
)

// ErrNoPosition is matched by PositionError via errors.Is.
var ErrNoPosition = errors.New("sell without prior position")

// PositionError reports a sell of an instrument the ledger has never seen.
type PositionError struct {
	Symbol string
	Date   string
}

func (e *PositionError) Error() string {
	return fmt.Sprintf("%s: %s on %s", ErrNoPosition, e.Symbol, e.Date)
}

func (e *PositionError) Is(target error) bool { return target == ErrNoPosition }

// TradeError wraps the failure of one trade with its identity.
type TradeError struct {
	Index  int
	Symbol string
	Date   string
	Err    error
}

func (e *TradeError) Error() string {
	return fmt.Sprintf("trade %d (%s on %s): %v", e.Index+1, e.Symbol, e.Date, e.Err)
}

func (e *TradeError) Unwrap() error { return e.Err }
