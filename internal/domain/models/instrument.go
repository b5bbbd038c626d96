package models

import "strings"

// BaseCurrency is the currency all realized figures are expressed in.
const BaseCurrency = "SEK"

// PairSeparator splits a currency-pair symbol into BASE and QUOTE.
const PairSeparator = "."

// Kind classifies what a ledger key stands for. All kinds share the same
// position-update algorithm; the kind decides which rules apply around it
// (short bootstrap, journal exclusion, tax-form section).
type Kind int

const (
	KindSecurity Kind = iota + 1 // equity, fund, crypto or option lot
	KindCurrency                 // cash balance in a foreign currency
	KindPairLeg                  // BASE leg of a BASE.QUOTE symbol
)

func (k Kind) String() string {
	switch k {
	case KindSecurity:
		return "security"
	case KindCurrency:
		return "currency"
	case KindPairLeg:
		return "pair_leg"
	default:
		return "unknown"
	}
}

// CurrencyCodes lists the codes treated as currency balances.
var CurrencyCodes = []string{
	"USD", "EUR", "GBP", "CHF", "SEK", "NOK", "DKK", "CAD", "AUD", "NZD", "JPY",
	"CNY", "HKD", "MXN", "BRL", "ARS", "CLP", "COP", "PEN", "UYU", "PYG",
}

// Instrument is a parsed trade symbol.
//
// Code is the ledger key the trade updates. Quote is only set for pair legs.
type Instrument struct {
	Kind   Kind
	Code   string
	Quote  string
	Symbol string
}

// ParseSymbol resolves a raw symbol into the instrument it updates.
//
//	"AAPL"     → security AAPL
//	"USD"      → currency USD
//	"EUR.USD"  → pair leg EUR settled in USD
func ParseSymbol(symbol string) Instrument {
	symbol = strings.TrimSpace(symbol)
	if base, quote, ok := strings.Cut(symbol, PairSeparator); ok {
		return Instrument{Kind: KindPairLeg, Code: base, Quote: quote, Symbol: symbol}
	}
	if IsCurrency(symbol) {
		return Instrument{Kind: KindCurrency, Code: symbol, Symbol: symbol}
	}
	return Instrument{Kind: KindSecurity, Code: symbol, Symbol: symbol}
}

// IsCurrency reports whether code is a known currency.
func IsCurrency(code string) bool {
	for _, c := range CurrencyCodes {
		if c == code {
			return true
		}
	}
	return false
}

// IsOption reports whether code is an option-lot symbol, e.g.
// "AAPL 250117C00150000".
func IsOption(code string) bool {
	return strings.Contains(code, " ") && strings.ContainsAny(code, "0123456789")
}

// IsPair reports whether symbol encodes a BASE.QUOTE currency pair.
func IsPair(symbol string) bool {
	return strings.Contains(symbol, PairSeparator)
}
