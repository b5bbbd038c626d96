// Package engine replays trade events against a position ledger and emits
// realized gains.
package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/guttosm/k4ledger/internal/domain/models"
	"github.com/guttosm/k4ledger/internal/fx"
	"github.com/guttosm/k4ledger/internal/k4"
	"github.com/guttosm/k4ledger/internal/ledger"
	"github.com/guttosm/k4ledger/internal/logger"
)

// OptionPolicy decides what happens to an option-lot sell with no position.
type OptionPolicy int

const (
	OptionFail OptionPolicy = iota // abort the run with a PositionError
	OptionSkip                     // log a warning and drop the event
)

// ParseOptionPolicy maps "fail" and "skip" to a policy.
func ParseOptionPolicy(s string) (OptionPolicy, error) {
	switch s {
	case "", "fail":
		return OptionFail, nil
	case "skip":
		return OptionSkip, nil
	default:
		return OptionFail, fmt.Errorf("unknown option policy %q", s)
	}
}

// Options tunes a Run.
type Options struct {
	UnmatchedOptionSell OptionPolicy
}

// Run bundles the mutable state of one replay: the ledger, the FX table,
// the realized-gain aggregator and the statistics emitted so far. A Run is
// single-threaded; independent runs may execute concurrently.
type Run struct {
	Ledger *ledger.Ledger
	Rates  *fx.Table
	K4     *k4.Aggregator
	Stats  []models.Statistic

	opts    Options
	applied int
	skipped int
}

// NewRun creates a run over l and rates. A nil ledger starts empty.
func NewRun(l *ledger.Ledger, rates *fx.Table, opts Options) *Run {
	if l == nil {
		l = ledger.New()
	}
	if rates == nil {
		rates = fx.NewTable()
	}
	return &Run{
		Ledger: l,
		Rates:  rates,
		K4:     k4.NewAggregator(),
		opts:   opts,
	}
}

// Applied returns the number of trades that changed the ledger.
func (r *Run) Applied() int { return r.applied }

// Skipped returns the number of trades dropped without effect.
func (r *Run) Skipped() int { return r.skipped }

// Replay applies trades in the given order and stops at the first error.
// No state is rolled back on failure.
func (r *Run) Replay(trades []models.Trade) error {
	for i, t := range trades {
		if err := r.Apply(t); err != nil {
			return &TradeError{Index: i, Symbol: t.Symbol, Date: t.Date(), Err: err}
		}
	}
	logger.L().Info().
		Int("trades", len(trades)).
		Int("applied", r.applied).
		Int("skipped", r.skipped).
		Int("k4_entries", r.K4.Len()).
		Msg("replay done")
	return nil
}

// Apply dispatches one trade on its side.
func (r *Run) Apply(t models.Trade) error {
	switch t.Side {
	case models.SideBuy:
		return r.ApplyBuy(t)
	case models.SideSell:
		return r.ApplySell(t)
	default:
		return fmt.Errorf("unknown side %q", t.Side)
	}
}

// leg is one position update: qty units of code at price per unit, plus
// commission, both in the settlement currency; rate converts them to SEK.
type leg struct {
	code        string
	description string
	date        time.Time
	qty         float64
	price       float64
	commission  float64
	rate        float64
}

// ApplyBuy processes a buy. With foreign settlement the currency balance is
// reduced by quantity*price+commission at the day's rate before the
// instrument is credited at the converted cost.
func (r *Run) ApplyBuy(t models.Trade) error {
	qty := math.Abs(t.Quantity)
	if qty == 0 {
		r.skip(t, "zero quantity")
		return nil
	}
	inst := models.ParseSymbol(t.Symbol)
	settle := settlement(t, inst)

	rate, err := r.Rates.Rate(t.DateTime, settle)
	if err != nil {
		return err
	}

	if models.IsOption(inst.Code) {
		if _, ok := r.Ledger.Get(inst.Code); !ok {
			logger.L().Debug().Str("symbol", inst.Code).Str("date", t.Date()).Msg("opening option lot")
		}
	}

	if settle != models.BaseCurrency {
		r.currencyLeg(settle, -(qty*t.Price + t.Commission), rate, t.DateTime)
	}
	r.buyLeg(leg{
		code:        inst.Code,
		description: t.Description,
		date:        t.DateTime,
		qty:         qty,
		price:       t.Price,
		commission:  t.Commission,
		rate:        rate,
	})
	r.applied++
	return nil
}

// ApplySell processes a sell. The instrument must already be in the ledger
// unless it is a currency; option lots follow Options.UnmatchedOptionSell.
// With foreign settlement the net proceeds are credited to the currency
// balance first.
func (r *Run) ApplySell(t models.Trade) error {
	qty := math.Abs(t.Quantity)
	if qty == 0 {
		r.skip(t, "zero quantity")
		return nil
	}
	inst := models.ParseSymbol(t.Symbol)
	settle := settlement(t, inst)

	if _, ok := r.Ledger.Get(inst.Code); !ok {
		switch {
		case models.IsCurrency(inst.Code):
			r.Ledger.Ensure(inst.Code)
		case models.IsOption(inst.Code) && r.opts.UnmatchedOptionSell == OptionSkip:
			logger.L().Warn().Str("symbol", inst.Code).Str("date", t.Date()).Msg("option sell without position skipped")
			r.skipped++
			return nil
		default:
			return &PositionError{Symbol: inst.Code, Date: t.Date()}
		}
	}

	rate, err := r.Rates.Rate(t.DateTime, settle)
	if err != nil {
		return err
	}

	if settle != models.BaseCurrency {
		r.currencyLeg(settle, qty*t.Price-t.Commission, rate, t.DateTime)
	}
	r.sellLeg(leg{
		code:        inst.Code,
		description: t.Description,
		date:        t.DateTime,
		qty:         -qty,
		price:       t.Price,
		commission:  t.Commission,
		rate:        rate,
	})
	r.applied++
	return nil
}

// currencyLeg moves amount units into (positive) or out of (negative) the
// balance of currency, valued at rate SEK per unit.
func (r *Run) currencyLeg(currency string, amount, rate float64, at time.Time) {
	l := leg{code: currency, description: currency, date: at, price: rate, rate: 1}
	switch {
	case amount > 0:
		l.qty = amount
		r.buyLeg(l)
	case amount < 0:
		l.qty = amount
		r.sellLeg(l)
	}
}

// buyLeg adds l.qty (> 0) units to l.code.
//
//   - flat or long: cost grows by (qty*price + commission) * rate.
//   - short, not fully covered: the covered units realize the old average as
//     proceeds against the commission-inclusive purchase cost.
//   - short, covered or crossed: the whole short is closed; any surplus opens
//     a long at the commission-adjusted unit price.
func (r *Run) buyLeg(l leg) {
	pos := r.Ledger.Ensure(l.code)

	switch {
	case pos.Quantity >= 0:
		opened := pos.OpenDate
		if pos.Quantity == 0 || opened.IsZero() {
			opened = l.date
		}
		r.Ledger.Set(l.code, pos.Quantity+l.qty, pos.TotalCost+(l.qty*l.price+l.commission)*l.rate, opened)

	case pos.Quantity+l.qty < 0:
		cost := (l.qty*l.price + l.commission) * l.rate
		r.realize(l, pos, l.qty, l.qty, l.qty*pos.AverageCost, cost)
		r.Ledger.Set(l.code, pos.Quantity+l.qty, pos.TotalCost+l.qty*pos.AverageCost, pos.OpenDate)

	default:
		covered := -pos.Quantity
		surplus := pos.Quantity + l.qty
		closeFee, openFee := Prorate(l.commission, covered, surplus)
		r.realize(l, pos, covered, covered, covered*pos.AverageCost, (covered*l.price+closeFee)*l.rate)
		if surplus == 0 {
			r.Ledger.Set(l.code, 0, 0, time.Time{})
			return
		}
		r.Ledger.Set(l.code, surplus, (surplus*l.price+openFee)*l.rate, l.date)
	}
}

// sellLeg removes -l.qty (l.qty < 0) units from l.code.
//
//   - long covering the sale: proceeds (sold*price - commission) * rate are
//     realized against the average cost of the sold units.
//   - long smaller than the sale: the whole long is disposed with its share
//     of the commission; the remainder opens a short at the
//     commission-adjusted unit price.
//   - flat or short: the short grows by (qty*price + commission) * rate with
//     no realized event.
func (r *Run) sellLeg(l leg) {
	pos := r.Ledger.Ensure(l.code)
	sold := -l.qty

	switch {
	case pos.Quantity > 0 && pos.Quantity >= sold:
		proceeds := (sold*l.price - l.commission) * l.rate
		cost := sold * pos.AverageCost
		r.realize(l, pos, l.qty, sold, proceeds, cost)
		remaining := pos.Quantity - sold
		if remaining == 0 {
			r.Ledger.Set(l.code, 0, 0, time.Time{})
			return
		}
		r.Ledger.Set(l.code, remaining, pos.TotalCost-cost, pos.OpenDate)

	case pos.Quantity > 0:
		closing := pos.Quantity
		short := sold - closing
		closeFee, openFee := Prorate(l.commission, closing, short)
		proceeds := (closing*l.price - closeFee) * l.rate
		r.realize(l, pos, -closing, closing, proceeds, closing*pos.AverageCost)
		r.Ledger.Set(l.code, -short, -(short*l.price-openFee)*l.rate, l.date)

	default:
		opened := pos.OpenDate
		if pos.Quantity == 0 || opened.IsZero() {
			opened = l.date
		}
		r.Ledger.Set(l.code, pos.Quantity+l.qty, pos.TotalCost+(l.qty*l.price+l.commission)*l.rate, opened)
	}
}

// realize records one disposal in the aggregator and the statistics list.
// delta is the signed change applied to prior.Quantity.
func (r *Run) realize(l leg, prior models.Position, delta, disposed, proceeds, cost float64) {
	r.K4.Record(l.code, l.description, disposed, proceeds, cost)

	pl := proceeds - cost
	pct := 0.0
	if cost != 0 {
		pct = pl / cost * 100
	}
	opened := prior.OpenDate
	if opened.IsZero() {
		opened = l.date
	}
	r.Stats = append(r.Stats, models.Statistic{
		Date:          l.date,
		Symbol:        l.code,
		Description:   l.description,
		PriorQuantity: prior.Quantity,
		Delta:         delta,
		ProfitLoss:    pl,
		ProfitLossPct: pct,
		OpenDate:      opened,
	})

	logger.L().Debug().
		Str("symbol", l.code).
		Str("date", l.date.Format(models.DateLayout)).
		Float64("disposed", disposed).
		Float64("proceeds", proceeds).
		Float64("cost", cost).
		Float64("profit_loss", pl).
		Msg("realized")
}

func (r *Run) skip(t models.Trade, reason string) {
	r.skipped++
	logger.L().Debug().Str("symbol", t.Symbol).Str("date", t.Date()).Str("reason", reason).Msg("trade skipped")
}

// Prorate splits commission between a closing leg of closeQty units and an
// opening leg of openQty units in proportion to their sizes.
func Prorate(commission, closeQty, openQty float64) (closeFee, openFee float64) {
	total := closeQty + openQty
	if total == 0 {
		return commission, 0
	}
	perUnit := commission / total
	return perUnit * closeQty, perUnit * openQty
}

// settlement returns the currency a trade settles in: the reported
// currency, or the quote of a pair when the row carries none.
func settlement(t models.Trade, inst models.Instrument) string {
	if t.Currency != "" {
		return t.Currency
	}
	if inst.Quote != "" {
		return inst.Quote
	}
	return models.BaseCurrency
}
