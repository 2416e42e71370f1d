package projection

import (
	"math"
	"slices"
	"time"

	"github.com/alanyoungcy/optionscalc/internal/domain"
)

// Range steps from start towards end in increments of
// ceil(max(1, (end-start)/buckets)) and always ends with end itself. The
// step count is bounded by buckets; steps lost to float resolution are
// dropped.
func Range(start, end float64, buckets int) []float64 {
	if buckets < 1 {
		buckets = 1
	}
	span := end - start
	if !(span > 0) || math.IsInf(span, 0) {
		return []float64{end}
	}
	incr := math.Ceil(math.Max(1, span/float64(buckets)))
	n := min(int(math.Ceil(span/incr)), buckets+1)

	out := make([]float64, 0, n+1)
	for k := 0; k < n; k++ {
		v := start + float64(k)*incr
		if v >= end || (len(out) > 0 && v <= out[len(out)-1]) {
			continue
		}
		out = append(out, v)
	}
	return append(out, end)
}

// PriceBounds returns the low and high end of the projected-price axis.
// Display overrides win; otherwise the bounds are derived from the leg
// strikes and the underlying price.
func PriceBounds(state domain.State) (float64, float64) {
	values := make([]float64, 0, len(state.Legs)+1)
	for _, l := range state.Legs {
		values = append(values, l.Strike.ToUse)
	}
	values = append(values, state.Symbol.Price.ToUse)

	hi := math.Ceil(math.Max(0, slices.Max(values)) * 1.3)
	lo := math.Floor(math.Min(hi, slices.Min(values)) * 0.7)

	if state.Display.MaxPrice != nil {
		hi = *state.Display.MaxPrice
	}
	if state.Display.MinPrice != nil {
		lo = *state.Display.MinPrice
	}
	return lo, hi
}

// PriceAxis returns the projected prices in descending order.
func PriceAxis(state domain.State, buckets int) []float64 {
	lo, hi := PriceBounds(state)
	axis := Range(lo, hi, buckets)
	slices.Reverse(axis)
	return axis
}

// Horizon is the number of fractional days from now until the latest leg
// expiry. It is 0 for an empty book and never negative.
func Horizon(state domain.State, now time.Time) float64 {
	if len(state.Legs) == 0 {
		return 0
	}
	var last int64
	for _, l := range state.Legs {
		last = max(last, l.Expiry.ToUse.Timestamp)
	}
	days := (float64(last) - unixSeconds(now)) / 86400
	return math.Max(0, days)
}

// DateAxis returns day offsets from now in ascending order.
func DateAxis(state domain.State, now time.Time, buckets int) []float64 {
	return Range(0, Horizon(state, now), buckets)
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixMilli()) / 1000
}
