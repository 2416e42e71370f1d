package domain

import (
	"context"
	"sort"
)

// Quote is the subset of a provider quote the application reads. Absent
// fields are nil.
type Quote struct {
	Symbol             string   `json:"symbol"`
	Bid                *float64 `json:"bid,omitempty"`
	Ask                *float64 `json:"ask,omitempty"`
	LastPrice          *float64 `json:"lastPrice,omitempty"`
	PostMarketPrice    *float64 `json:"postMarketPrice,omitempty"`
	RegularMarketPrice *float64 `json:"regularMarketPrice,omitempty"`
	ShortName          string   `json:"shortName,omitempty"`
	LongName           string   `json:"longName,omitempty"`
	ImpliedVolatility  *float64 `json:"impliedVolatility,omitempty"`
}

// PriceToUse picks bid, then post-market, then regular-market price. Zero
// values are skipped the same way absent ones are.
func (q Quote) PriceToUse() float64 {
	for _, p := range []*float64{q.Bid, q.PostMarketPrice, q.RegularMarketPrice} {
		if p != nil && *p != 0 {
			return *p
		}
	}
	return 0
}

// DisplayName prefers the short name.
func (q Quote) DisplayName() string {
	if q.ShortName != "" {
		return q.ShortName
	}
	return q.LongName
}

// OptionMeta lists the strikes and expirations available for a symbol.
type OptionMeta struct {
	Strikes     []float64    `json:"strikes"`
	Expirations []Expiration `json:"expirations"`
}

// Clone returns a deep copy of m.
func (m OptionMeta) Clone() OptionMeta {
	out := OptionMeta{}
	if m.Strikes != nil {
		out.Strikes = append([]float64{}, m.Strikes...)
	}
	if m.Expirations != nil {
		out.Expirations = append([]Expiration{}, m.Expirations...)
	}
	return out
}

// HasStrike reports whether strike is listed.
func (m OptionMeta) HasStrike(strike float64) bool {
	for _, s := range m.Strikes {
		if s == strike {
			return true
		}
	}
	return false
}

// FindExpiration looks an expiration up by its display label.
func (m OptionMeta) FindExpiration(label string) (Expiration, bool) {
	for _, e := range m.Expirations {
		if e.Label == label {
			return e, true
		}
	}
	return Expiration{}, false
}

// ContractData is one row of an option chain.
type ContractData struct {
	ContractSymbol    string   `json:"contractSymbol,omitempty"`
	Strike            float64  `json:"strike"`
	Bid               float64  `json:"bid"`
	Ask               float64  `json:"ask"`
	LastPrice         float64  `json:"lastPrice"`
	ImpliedVolatility float64  `json:"impliedVolatility"`
	OpenInterest      int64    `json:"openInterest"`
	Delta             *float64 `json:"delta,omitempty"`
	Gamma             *float64 `json:"gamma,omitempty"`
	Leverage          *float64 `json:"leverage,omitempty"`
}

// OptionChain holds the contracts of a single expiration.
type OptionChain struct {
	Expiration Expiration     `json:"expiration"`
	Calls      []ContractData `json:"calls"`
	Puts       []ContractData `json:"puts"`
}

// Contracts returns the side of the chain for t.
func (c OptionChain) Contracts(t OptionType) []ContractData {
	if t == Call {
		return c.Calls
	}
	return c.Puts
}

// Lookup finds the contract of the given type and strike.
func (c OptionChain) Lookup(t OptionType, strike float64) (ContractData, bool) {
	for _, cd := range c.Contracts(t) {
		if cd.Strike == strike {
			return cd, true
		}
	}
	return ContractData{}, false
}

// SortedStrikes returns the union of call and put strikes in ascending order.
func (c OptionChain) SortedStrikes() []float64 {
	seen := make(map[float64]bool)
	var out []float64
	for _, side := range [][]ContractData{c.Calls, c.Puts} {
		for _, cd := range side {
			if !seen[cd.Strike] {
				seen[cd.Strike] = true
				out = append(out, cd.Strike)
			}
		}
	}
	sort.Float64s(out)
	return out
}

// QuoteProvider is the external quote and option-chain source.
type QuoteProvider interface {
	Quote(ctx context.Context, symbol string) (Quote, error)
	OptionMeta(ctx context.Context, symbol string) (OptionMeta, error)
	Options(ctx context.Context, symbol string, expiration int64) (OptionChain, error)
}
