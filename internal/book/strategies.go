package book

import (
	"errors"
	"math"
	"sort"

	"github.com/alanyoungcy/optionscalc/internal/domain"
)

// ErrNotEnoughStrikes is returned when a strategy needs more listed strikes
// around the spot than are available.
var ErrNotEnoughStrikes = errors.New("book: not enough strikes around the spot price")

// IronCondor returns the four legs of an iron condor centred on the listed
// strike nearest to spot: long put two strikes below, short put one below,
// short call one above and long call two above. Feed the result to
// ClearLegs followed by one AddLeg per template.
func IronCondor(spot float64, strikes []float64, expiry domain.Expiration) ([]domain.Leg, error) {
	sorted := append([]float64(nil), strikes...)
	sort.Float64s(sorted)

	center := -1
	best := math.Inf(1)
	for i, s := range sorted {
		if d := math.Abs(s - spot); d < best {
			best, center = d, i
		}
	}
	if center < 2 || center+2 >= len(sorted) {
		return nil, ErrNotEnoughStrikes
	}

	mk := func(strike float64, t domain.OptionType, sale domain.Sale) domain.Leg {
		return domain.Leg{
			Strike:   domain.EditField[float64]{User: domain.Ptr(formatNumber(strike)), LastParsed: domain.Ptr(strike), ToUse: strike},
			Quantity: domain.EditField[float64]{User: domain.Ptr("1"), LastParsed: domain.Ptr(1.0), ToUse: 1},
			Expiry:   domain.EditField[domain.Expiration]{User: domain.Ptr(expiry.Label), LastParsed: domain.Ptr(expiry), ToUse: expiry},
			Type:     t,
			Sale:     sale,
		}
	}

	return []domain.Leg{
		mk(sorted[center-2], domain.Put, domain.Buy),
		mk(sorted[center-1], domain.Put, domain.Sell),
		mk(sorted[center+1], domain.Call, domain.Sell),
		mk(sorted[center+2], domain.Call, domain.Buy),
	}, nil
}

// ApplyTemplates replaces the legs of s with the given templates.
func (r Reducer) ApplyTemplates(s domain.State, legs []domain.Leg) domain.State {
	next := r.Transition(s, ClearLegs{})
	for i := range legs {
		next = r.Transition(next, AddLeg{Template: &legs[i]})
	}
	return next
}
