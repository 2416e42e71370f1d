// Package projection computes the price-by-date profit matrix of an option
// book together with its risk statistics. Everything here is pure and safe
// to call concurrently.
package projection

import (
	"math"
	"time"

	"github.com/alanyoungcy/optionscalc/internal/domain"
	"github.com/alanyoungcy/optionscalc/internal/pricing"
)

const (
	DefaultPriceBuckets = 20
	DefaultDateBuckets  = 16

	// ContractMultiplier converts per-share premium into per-contract dollars.
	ContractMultiplier = 100.0

	// profitFloor seeds the running maximum so an all-loss book still
	// reports a finite MaxProfit.
	profitFloor = -99999.0

	riskFreeRate = 0.0
)

// Options tunes a projection run.
type Options struct {
	Now          time.Time
	PriceBuckets int
	DateBuckets  int
}

// DefaultOptions returns the standard bucket counts evaluated at now.
func DefaultOptions(now time.Time) Options {
	return Options{Now: now, PriceBuckets: DefaultPriceBuckets, DateBuckets: DefaultDateBuckets}
}

// Cell is one (price, day) entry of the matrix.
type Cell struct {
	Profit float64 `json:"profit"`
	Price  float64 `json:"price"` // signed theoretical value of the book per share
}

// Result is a full projection. Cells is indexed [price][day] following
// Prices and Days.
type Result struct {
	Prices    []float64 `json:"prices"`
	Days      []float64 `json:"days"`
	Cells     [][]Cell  `json:"cells"`
	MaxRisk   float64   `json:"maxRisk"`
	MaxProfit float64   `json:"maxProfit"`
	EntryCost float64   `json:"entryCost"`
}

// Project evaluates every visible leg across the price and date axes.
func Project(state domain.State, opts Options) Result {
	if opts.PriceBuckets < 1 {
		opts.PriceBuckets = DefaultPriceBuckets
	}
	if opts.DateBuckets < 1 {
		opts.DateBuckets = DefaultDateBuckets
	}

	res := Result{
		Prices:    PriceAxis(state, opts.PriceBuckets),
		Days:      DateAxis(state, opts.Now, opts.DateBuckets),
		MaxRisk:   0,
		MaxProfit: profitFloor,
		EntryCost: EntryCost(state),
	}

	legs := state.VisibleLegs()
	res.Cells = make([][]Cell, len(res.Prices))
	for i, p := range res.Prices {
		row := make([]Cell, len(res.Days))
		for j, d := range res.Days {
			c := evaluate(legs, p, d, opts.Now)
			row[j] = c
			res.MaxRisk = math.Min(res.MaxRisk, c.Profit)
			res.MaxProfit = math.Max(res.MaxProfit, c.Profit)
		}
		res.Cells[i] = row
	}
	return res
}

// Evaluate computes a single cell: the book valued at price, days from now.
func Evaluate(state domain.State, price, days float64, now time.Time) Cell {
	return evaluate(state.VisibleLegs(), price, days, now)
}

func evaluate(legs []domain.Leg, price, days float64, now time.Time) Cell {
	at := unixSeconds(now) + days*86400

	var c Cell
	for _, l := range legs {
		years := pricing.YearsBetween(at, float64(l.Expiry.ToUse.Timestamp))
		value := pricing.Value(l.Type, price, l.Strike.ToUse, years, l.IV, riskFreeRate)

		mod := l.Modifier()
		c.Profit += (value*mod + EffectivePrice(l)*(-mod)) * ContractMultiplier * l.Quantity.ToUse
		c.Price += value * mod
	}
	return c
}

// EffectivePrice is the entry price used in P&L math: the resolved price if
// positive, else the theoretical price if positive, else 0.
func EffectivePrice(l domain.Leg) float64 {
	if l.Price.ToUse > 0 {
		return l.Price.ToUse
	}
	if l.TheoreticalPrice != nil && *l.TheoreticalPrice > 0 {
		return *l.TheoreticalPrice
	}
	return 0
}

// EntryCost sums the premium of the visible legs. Positive is a net credit,
// negative a net debit.
func EntryCost(state domain.State) float64 {
	var total float64
	for _, l := range state.VisibleLegs() {
		total += EffectivePrice(l) * l.Quantity.ToUse * ContractMultiplier * -l.Modifier()
	}
	return total
}
