// Package pricing evaluates European option values with the Black-Scholes
// model and at-expiry payoffs.
package pricing

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/alanyoungcy/optionscalc/internal/domain"
)

// DaysPerYear is the day-count convention used when converting time to
// expiry into years for the projection engine.
const DaysPerYear = 360.0

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

func d1d2(spot, strike, years, vol, rate float64) (float64, float64) {
	sqrtT := math.Sqrt(years)
	d1 := (math.Log(spot/strike) + (rate+vol*vol/2)*years) / (vol * sqrtT)
	return d1, d1 - vol*sqrtT
}

// BlackScholes returns the model value per share. The result can be NaN for
// degenerate inputs (zero volatility at the money, zero strike); callers
// decide how to treat it.
func BlackScholes(t domain.OptionType, spot, strike, years, vol, rate float64) float64 {
	d1, d2 := d1d2(spot, strike, years, vol, rate)
	discount := math.Exp(-rate * years)
	if t == domain.Call {
		return spot*stdNormal.CDF(d1) - strike*discount*stdNormal.CDF(d2)
	}
	return strike*discount*stdNormal.CDF(-d2) - spot*stdNormal.CDF(-d1)
}

// Delta is the first derivative of the model value with respect to spot.
func Delta(t domain.OptionType, spot, strike, years, vol, rate float64) float64 {
	d1, _ := d1d2(spot, strike, years, vol, rate)
	if t == domain.Call {
		return stdNormal.CDF(d1)
	}
	return stdNormal.CDF(d1) - 1
}

// Intrinsic is the payoff at expiry.
func Intrinsic(t domain.OptionType, spot, strike float64) float64 {
	if t == domain.Call {
		return math.Max(0, spot-strike)
	}
	return math.Max(0, strike-spot)
}

// Value returns the Black-Scholes value while time remains and the intrinsic
// payoff otherwise. NaN collapses to 0.
func Value(t domain.OptionType, spot, strike, years, vol, rate float64) float64 {
	var v float64
	if years > 0 {
		v = BlackScholes(t, spot, strike, years, vol, rate)
	} else {
		v = Intrinsic(t, spot, strike)
	}
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// YearsBetween converts a span of unix seconds into years using DaysPerYear.
func YearsBetween(fromUnix, toUnix float64) float64 {
	return (toUnix - fromUnix) / (DaysPerYear * 86400)
}
