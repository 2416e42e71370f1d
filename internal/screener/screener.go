// Package screener ranks the puts of one expiration by the premium they
// pay relative to the strike, for cash-secured put selling.
package screener

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/alanyoungcy/optionscalc/internal/domain"
)

// DaysPerYear annualizes returns here. The projection engine uses 360.
const DaysPerYear = 365

// SortKey names a column to sort by.
type SortKey string

const (
	SortStrike         SortKey = "strike"
	SortEffectivePrice SortKey = "effprice"
	SortOpenInterest   SortKey = "openint"
	SortReturn         SortKey = "return"
)

// Sort orders the rows.
type Sort struct {
	Key  SortKey
	Desc bool
}

// ParseSort reads a key and a direction ("asc" or "desc"). Empty values
// default to strike ascending.
func ParseSort(key, dir string) (Sort, error) {
	s := Sort{Key: SortKey(strings.ToLower(key))}
	switch s.Key {
	case "":
		s.Key = SortStrike
	case SortStrike, SortEffectivePrice, SortOpenInterest, SortReturn:
	default:
		return Sort{}, fmt.Errorf("screener: unknown sort key %q", key)
	}
	switch strings.ToLower(dir) {
	case "", "asc":
	case "desc":
		s.Desc = true
	default:
		return Sort{}, fmt.Errorf("screener: unknown sort direction %q", dir)
	}
	return s, nil
}

// Filter drops rows. Bounds are exclusive; nil bounds do not filter.
type Filter struct {
	MinReturn         float64  // fraction, 0.01 = 1%
	MaxStrike         *float64
	MaxEffectivePrice *float64
}

// Row is one screened contract.
type Row struct {
	ContractSymbol    string  `json:"contractSymbol,omitempty"`
	Strike            float64 `json:"strike"`
	LastPrice         float64 `json:"lastPrice"`
	Bid               float64 `json:"bid"`
	EffectivePrice    float64 `json:"effectivePrice"` // strike minus premium
	ImpliedVolatility float64 `json:"impliedVolatility"`
	OpenInterest      int64   `json:"openInterest"`
	Return            float64 `json:"return"`
	AnnualizedReturn  float64 `json:"annualizedReturn"`
}

// Result is the screened chain.
type Result struct {
	Expiration   domain.Expiration `json:"expiration"`
	DaysToExpiry float64           `json:"daysToExpiry"`
	Rows         []Row             `json:"rows"`
}

func sortValue(cd domain.ContractData, key SortKey) float64 {
	switch key {
	case SortEffectivePrice:
		return cd.Strike - cd.LastPrice
	case SortOpenInterest:
		return float64(cd.OpenInterest)
	case SortReturn:
		return lastReturn(cd)
	default:
		return cd.Strike
	}
}

func lastReturn(cd domain.ContractData) float64 {
	if cd.Strike == 0 {
		return 0
	}
	return cd.LastPrice / cd.Strike
}

// Screen filters and sorts the puts of chain as of now.
func Screen(chain domain.OptionChain, now time.Time, f Filter, s Sort) Result {
	dte := float64(chain.Expiration.Timestamp-now.Unix()) / 86400
	res := Result{Expiration: chain.Expiration, DaysToExpiry: dte, Rows: []Row{}}

	puts := append([]domain.ContractData(nil), chain.Puts...)
	sort.SliceStable(puts, func(i, j int) bool {
		a, b := sortValue(puts[i], s.Key), sortValue(puts[j], s.Key)
		if s.Desc {
			return a > b
		}
		return a < b
	})

	for _, cd := range puts {
		if lastReturn(cd) <= f.MinReturn {
			continue
		}
		if f.MaxStrike != nil && cd.Strike >= *f.MaxStrike {
			continue
		}
		if f.MaxEffectivePrice != nil && cd.Strike-cd.LastPrice >= *f.MaxEffectivePrice {
			continue
		}
		res.Rows = append(res.Rows, row(cd, dte))
	}
	return res
}

func row(cd domain.ContractData, dte float64) Row {
	premium := cd.LastPrice
	if premium == 0 {
		premium = cd.Bid
	}
	r := Row{
		ContractSymbol:    cd.ContractSymbol,
		Strike:            cd.Strike,
		LastPrice:         cd.LastPrice,
		Bid:               cd.Bid,
		EffectivePrice:    cd.Strike - cd.LastPrice,
		ImpliedVolatility: cd.ImpliedVolatility,
		OpenInterest:      cd.OpenInterest,
	}
	if cd.Strike > 0 {
		r.Return = premium / cd.Strike
	}
	r.AnnualizedReturn = r.Return
	if dte > 0 {
		r.AnnualizedReturn = math.Pow(1+r.Return, DaysPerYear/dte) - 1
	}
	return r
}
