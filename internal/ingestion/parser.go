package ingestion

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/guttosm/k4ledger/internal/domain/models"
)

// tradeHeaders enforces strict column ordering for the trades section of a
// broker export. If the header doesn't match EXACTLY (order + count), the
// file is rejected.
var tradeHeaders = []string{
	"DateTime",
	"Symbol",
	"Buy/Sell",
	"Quantity",
	"TradePrice",
	"IBCommission",
	"CurrencyPrimary",
	"Description",
	"ISIN",
	"Exchange",
}

// rateHeaders is the header of the currency-rates section that follows the
// trades in the primary export.
var rateHeaders = []string{
	"Date/Time",
	"FromCurrency",
	"ToCurrency",
	"Rate",
}

// ErrNoRates is returned when a primary export has no currency-rates section.
var ErrNoRates = errors.New("no currency rates section found")

// Statement is the parsed content of one export file.
type Statement struct {
	Trades []models.Trade
	Rates  []models.RateRow
}

// ReadIBKRFile parses a primary export: trades followed by currency rates.
func ReadIBKRFile(ctx context.Context, path string) (Statement, error) {
	f, err := os.Open(path)
	if err != nil {
		return Statement{}, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ParseStatement(ctx, f, true)
}

// ReadTradesFile parses a secondary export in the same trade layout with no
// rates section.
func ReadTradesFile(ctx context.Context, path string) ([]models.Trade, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	st, err := ParseStatement(ctx, f, false)
	if err != nil {
		return nil, err
	}
	if len(st.Rates) > 0 {
		return nil, fmt.Errorf("unexpected currency rates section (%d rows)", len(st.Rates))
	}
	return st.Trades, nil
}

// ParseStatement reads an export from r.
//
// The trades section starts with tradeHeaders. The rates section begins at
// the first record with fewer fields than the trade header and must start
// with rateHeaders. It fails on:
//   - a header not matching the expected order/length
//   - a record with the wrong column count for its section
//   - a malformed date, side or number
//   - a missing rates section when requireRates is set
//
// Every error carries the line number.
func ParseStatement(ctx context.Context, r io.Reader, requireRates bool) (Statement, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // sections differ in width; checked explicitly
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return Statement{}, fmt.Errorf("read header: %w", err)
	}
	if err := checkHeader(header, tradeHeaders); err != nil {
		return Statement{}, fmt.Errorf("line 1: %w", err)
	}

	var st Statement
	inRates := false
	lineNumber := 1

	for {
		select {
		case <-ctx.Done():
			return Statement{}, ctx.Err()
		default:
		}

		rec, err := cr.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return Statement{}, fmt.Errorf("read line after %d: %w", lineNumber, err)
		}
		lineNumber++

		if !inRates && len(rec) < len(tradeHeaders) {
			if err := checkHeader(rec, rateHeaders); err != nil {
				return Statement{}, fmt.Errorf("line %d: rates section: %w", lineNumber, err)
			}
			inRates = true
			continue
		}

		if inRates {
			if len(rec) != len(rateHeaders) {
				return Statement{}, fmt.Errorf("invalid column count on line %d: expected %d got %d", lineNumber, len(rateHeaders), len(rec))
			}
			rate, err := recordToRate(rec)
			if err != nil {
				return Statement{}, fmt.Errorf("line %d: %w", lineNumber, err)
			}
			st.Rates = append(st.Rates, rate)
			continue
		}

		if len(rec) != len(tradeHeaders) {
			return Statement{}, fmt.Errorf("invalid column count on line %d: expected %d got %d", lineNumber, len(tradeHeaders), len(rec))
		}
		tr, err := recordToTrade(rec)
		if err != nil {
			return Statement{}, fmt.Errorf("line %d: %w", lineNumber, err)
		}
		st.Trades = append(st.Trades, tr)
	}

	if requireRates && !inRates {
		return Statement{}, ErrNoRates
	}
	return st, nil
}

func checkHeader(got, want []string) error {
	if len(got) != len(want) {
		return fmt.Errorf("invalid header length: expected %d, got %d", len(want), len(got))
	}
	for i, h := range got {
		if strings.TrimSpace(h) != want[i] {
			return fmt.Errorf("invalid header at col %d: expected %q, got %q", i+1, want[i], h)
		}
	}
	return nil
}

// recordToTrade converts a single trades-section record (already validated
// length==10) into a models.Trade. It is STRICT about dates and sides but
// TOLERATES empty numeric cells, mapping them to zero.
//
//	0 DateTime        → DateTime ("YYYYMMDD;HHMMSS" or "YYYYMMDD")
//	1 Symbol          → Symbol
//	2 Buy/Sell        → Side (BUY|SELL)
//	3 Quantity        → Quantity (signed)
//	4 TradePrice      → Price
//	5 IBCommission    → Commission (negated; the export reports a cost as negative)
//	6 CurrencyPrimary → Currency
//	7 Description     → Description
//	8 ISIN            → ISIN
//	9 Exchange        → Exchange
func recordToTrade(rec []string) (models.Trade, error) {
	var t models.Trade

	// DateTime (0)
	dt, err := parseDateTime(rec[0])
	if err != nil {
		return t, fmt.Errorf("invalid DateTime: %v", err)
	}
	t.DateTime = dt

	// Symbol (1)
	t.Symbol = strings.TrimSpace(rec[1])
	if t.Symbol == "" {
		return t, errors.New("empty Symbol")
	}

	// Buy/Sell (2)
	switch side := models.Side(strings.ToUpper(strings.TrimSpace(rec[2]))); side {
	case models.SideBuy, models.SideSell:
		t.Side = side
	default:
		return t, fmt.Errorf("invalid Buy/Sell: %q", rec[2])
	}

	// Quantity (3)
	if t.Quantity, err = parseFloat(rec[3]); err != nil {
		return t, fmt.Errorf("invalid Quantity: %v", err)
	}

	// TradePrice (4)
	if t.Price, err = parseFloat(rec[4]); err != nil {
		return t, fmt.Errorf("invalid TradePrice: %v", err)
	}

	// IBCommission (5)
	c, err := parseFloat(rec[5])
	if err != nil {
		return t, fmt.Errorf("invalid IBCommission: %v", err)
	}
	t.Commission = -c

	// CurrencyPrimary (6)
	t.Currency = strings.ToUpper(strings.TrimSpace(rec[6]))

	// Description (7), ISIN (8), Exchange (9)
	t.Description = strings.TrimSpace(rec[7])
	t.ISIN = strings.TrimSpace(rec[8])
	t.Exchange = strings.TrimSpace(rec[9])

	return t, nil
}

// recordToRate converts a rates-section record into a models.RateRow.
//
//	0 Date/Time    → DateTime
//	1 FromCurrency → From
//	2 ToCurrency   → To
//	3 Rate         → Rate
func recordToRate(rec []string) (models.RateRow, error) {
	var r models.RateRow

	dt, err := parseDateTime(rec[0])
	if err != nil {
		return r, fmt.Errorf("invalid Date/Time: %v", err)
	}
	r.DateTime = dt
	r.From = strings.ToUpper(strings.TrimSpace(rec[1]))
	r.To = strings.ToUpper(strings.TrimSpace(rec[2]))
	if r.From == "" || r.To == "" {
		return r, errors.New("empty currency")
	}

	s := strings.TrimSpace(rec[3])
	if s == "" {
		return r, errors.New("empty Rate")
	}
	if r.Rate, err = strconv.ParseFloat(s, 64); err != nil {
		return r, fmt.Errorf("invalid Rate: %v", err)
	}
	return r, nil
}

// parseDateTime accepts "20250225;030616" and "20250225".
func parseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if day, clock, ok := strings.Cut(s, ";"); ok {
		return time.Parse(models.DateLayout+"150405", day+clock)
	}
	return time.Parse(models.DateLayout, s)
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
