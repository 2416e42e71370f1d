package projection

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/alanyoungcy/optionscalc/internal/domain"
)

func TestProperty_ExpiredLongCallProfit(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("profit equals (p - K - P) * 100 above the strike", prop.ForAll(
		func(strike, premium, above float64) bool {
			s := book(leg(0, domain.Call, domain.Buy, strike, premium, 1, -1))
			p := strike + above
			got := Evaluate(s, p, 0, now).Profit
			want := (p - strike - premium) * 100
			return math.Abs(got-want) < 1e-6
		},
		gen.Float64Range(1, 1000),
		gen.Float64Range(0.01, 50),
		gen.Float64Range(0.01, 500),
	))

	properties.TestingRun(t)
}

func TestProperty_ExtremesMatchMatrix(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("MaxRisk and MaxProfit are the seeded min and max of all cells", prop.ForAll(
		func(strike, premium, qty float64, days int, isCall, isBuy bool) bool {
			typ, sale := domain.Put, domain.Sell
			if isCall {
				typ = domain.Call
			}
			if isBuy {
				sale = domain.Buy
			}
			s := book(leg(0, typ, sale, strike, premium, qty, days))
			s.Symbol.Price = domain.Fixed(strike)

			r := Project(s, DefaultOptions(now))
			lo, hi := 0.0, profitFloor
			for _, row := range r.Cells {
				for _, c := range row {
					lo = math.Min(lo, c.Profit)
					hi = math.Max(hi, c.Profit)
				}
			}
			return r.MaxRisk == lo && r.MaxProfit == hi
		},
		gen.Float64Range(10, 500),
		gen.Float64Range(0, 20),
		gen.Float64Range(1, 20),
		gen.IntRange(-5, 90),
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
