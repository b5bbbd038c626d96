// Package fx holds the date-indexed table converting foreign currencies
// into the base currency.
package fx

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/guttosm/k4ledger/internal/domain/models"
)

// Pivot is the currency cross rates are quoted against.
const Pivot = "USD"

// CrossCurrencies are only quoted against Pivot in the export and get their
// base-currency rate through it.
var CrossCurrencies = map[string]bool{
	"EUR": true,
	"DKK": true,
}

// ErrMissingRate matches every MissingRateError via errors.Is.
var ErrMissingRate = errors.New("missing fx rate")

// MissingRateError reports a (date, currency) pair with no known rate.
type MissingRateError struct {
	Date     string
	Currency string
}

func (e *MissingRateError) Error() string {
	return fmt.Sprintf("missing fx rate for %s on %s", e.Currency, e.Date)
}

func (e *MissingRateError) Is(target error) bool { return target == ErrMissingRate }

// Key identifies one rate: a calendar date in models.DateLayout and a currency code.
type Key struct {
	Date     string
	Currency string
}

// String renders the key the way persisted rate files store it: "20250225_USD".
func (k Key) String() string { return k.Date + "_" + k.Currency }

// ParseKey is the inverse of Key.String.
func ParseKey(s string) (Key, error) {
	date, cur, ok := strings.Cut(s, "_")
	if !ok || len(date) != len(models.DateLayout) || cur == "" {
		return Key{}, fmt.Errorf("invalid rate key %q", s)
	}
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return Key{}, fmt.Errorf("invalid rate key %q: %w", s, err)
	}
	return Key{Date: date, Currency: cur}, nil
}

// Table maps (date, currency) to the base-currency value of one unit.
// It is built once per run and only read afterwards.
type Table struct {
	rates map[Key]float64
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{rates: make(map[Key]float64)}
}

// Build computes a table from the rate rows of the export.
//
// Rules per row:
//   - From == SEK: the row quotes foreign units per krona; store 1/rate under To.
//   - To == SEK: a direct quote; store the rate under From.
//   - From in CrossCurrencies: store the raw rate, then multiply it by the
//     SEK rate of the row's To currency on the same date.
//
// Several rows for one (date, currency) keep the last rate; a cross rate is
// converted through its pivot exactly once. Other rows are ignored. A cross
// rate whose pivot is unknown yields a *MissingRateError.
func Build(rows []models.RateRow) (*Table, error) {
	t := NewTable()
	crosses := make(map[Key]string)

	for _, row := range rows {
		if row.Rate <= 0 {
			return nil, fmt.Errorf("rate %s/%s on %s must be positive, got %v",
				row.From, row.To, row.DateTime.Format(models.DateLayout), row.Rate)
		}
		date := row.DateTime.Format(models.DateLayout)
		switch {
		case row.From == models.BaseCurrency:
			k := Key{Date: date, Currency: row.To}
			t.rates[k] = 1 / row.Rate
			delete(crosses, k)
		case row.To == models.BaseCurrency:
			k := Key{Date: date, Currency: row.From}
			t.rates[k] = row.Rate
			delete(crosses, k)
		case CrossCurrencies[row.From]:
			k := Key{Date: date, Currency: row.From}
			t.rates[k] = row.Rate
			crosses[k] = row.To
		}
	}

	keys := make([]Key, 0, len(crosses))
	for k := range crosses {
		keys = append(keys, k)
	}
	sortKeys(keys)
	for _, k := range keys {
		pivot := crosses[k]
		p, ok := t.rates[Key{Date: k.Date, Currency: pivot}]
		if !ok {
			return nil, &MissingRateError{Date: k.Date, Currency: pivot}
		}
		t.rates[k] *= p
	}
	return t, nil
}

// Merge fills keys absent from t with persisted values and returns how many
// were added. Rates already in t win.
func (t *Table) Merge(persisted map[Key]float64) int {
	added := 0
	for k, v := range persisted {
		if _, ok := t.rates[k]; ok {
			continue
		}
		t.rates[k] = v
		added++
	}
	return added
}

// Set stores a rate, replacing any previous value.
func (t *Table) Set(date, currency string, rate float64) {
	t.rates[Key{Date: date, Currency: currency}] = rate
}

// Rate returns the base-currency value of one unit of currency on the date
// of at. The base currency itself is always 1.
func (t *Table) Rate(at time.Time, currency string) (float64, error) {
	if currency == models.BaseCurrency {
		return 1, nil
	}
	date := at.Format(models.DateLayout)
	v, ok := t.rates[Key{Date: date, Currency: currency}]
	if !ok {
		return 0, &MissingRateError{Date: date, Currency: currency}
	}
	return v, nil
}

// Len returns the number of stored rates.
func (t *Table) Len() int { return len(t.rates) }

// Snapshot returns a copy of every stored rate.
func (t *Table) Snapshot() map[Key]float64 {
	out := make(map[Key]float64, len(t.rates))
	for k, v := range t.rates {
		out[k] = v
	}
	return out
}

// Keys returns the stored keys ordered by date, then currency.
func (t *Table) Keys() []Key {
	keys := make([]Key, 0, len(t.rates))
	for k := range t.rates {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Date != keys[j].Date {
			return keys[i].Date < keys[j].Date
		}
		return keys[i].Currency < keys[j].Currency
	})
}
