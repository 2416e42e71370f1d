package yahoo

import (
	"time"

	"github.com/alanyoungcy/optionscalc/internal/domain"
)

// APIQuote is a quote as returned by /v7/finance/quote and embedded in
// option chain responses. Fields Yahoo omits stay nil.
type APIQuote struct {
	Symbol             string   `json:"symbol"`
	Bid                *float64 `json:"bid"`
	Ask                *float64 `json:"ask"`
	PostMarketPrice    *float64 `json:"postMarketPrice"`
	RegularMarketPrice *float64 `json:"regularMarketPrice"`
	ShortName          string   `json:"shortName"`
	LongName           string   `json:"longName"`
}

type quoteResponse struct {
	QuoteResponse struct {
		Result []APIQuote `json:"result"`
		Error  *apiError  `json:"error"`
	} `json:"quoteResponse"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// APIContract is one contract of an option chain.
type APIContract struct {
	ContractSymbol    string   `json:"contractSymbol"`
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

// APIOptions is one expiration's worth of contracts.
type APIOptions struct {
	ExpirationDate int64         `json:"expirationDate"`
	Calls          []APIContract `json:"calls"`
	Puts           []APIContract `json:"puts"`
}

// APIOptionChain is optionChain.result[0] of /v7/finance/options/{symbol}.
type APIOptionChain struct {
	UnderlyingSymbol string       `json:"underlyingSymbol"`
	ExpirationDates  []int64      `json:"expirationDates"`
	Strikes          []float64    `json:"strikes"`
	Quote            APIQuote     `json:"quote"`
	Options          []APIOptions `json:"options"`
}

type optionsResponse struct {
	OptionChain struct {
		Result []APIOptionChain `json:"result"`
		Error  *apiError        `json:"error"`
	} `json:"optionChain"`
}

// ToDomain converts the quote.
func (q APIQuote) ToDomain() domain.Quote {
	return domain.Quote{
		Symbol:             q.Symbol,
		Bid:                q.Bid,
		Ask:                q.Ask,
		PostMarketPrice:    q.PostMarketPrice,
		RegularMarketPrice: q.RegularMarketPrice,
		ShortName:          q.ShortName,
		LongName:           q.LongName,
	}
}

// ToDomain converts the contract.
func (c APIContract) ToDomain() domain.ContractData {
	return domain.ContractData{
		ContractSymbol:    c.ContractSymbol,
		Strike:            c.Strike,
		Bid:               c.Bid,
		Ask:               c.Ask,
		LastPrice:         c.LastPrice,
		ImpliedVolatility: c.ImpliedVolatility,
		OpenInterest:      c.OpenInterest,
		Delta:             c.Delta,
		Gamma:             c.Gamma,
		Leverage:          c.Leverage,
	}
}

// Expiration builds the descriptor Yahoo's date picker shows for ts.
func Expiration(ts int64) domain.Expiration {
	return domain.Expiration{Timestamp: ts, Label: time.Unix(ts, 0).UTC().Format("2006-01-02")}
}

// Meta extracts the listed strikes and expirations.
func (c APIOptionChain) Meta() domain.OptionMeta {
	meta := domain.OptionMeta{
		Strikes:     append([]float64{}, c.Strikes...),
		Expirations: make([]domain.Expiration, 0, len(c.ExpirationDates)),
	}
	for _, ts := range c.ExpirationDates {
		meta.Expirations = append(meta.Expirations, Expiration(ts))
	}
	return meta
}

// Chain converts the first expiration block into a domain chain.
func (c APIOptionChain) Chain() (domain.OptionChain, bool) {
	if len(c.Options) == 0 {
		return domain.OptionChain{}, false
	}
	o := c.Options[0]
	chain := domain.OptionChain{
		Expiration: Expiration(o.ExpirationDate),
		Calls:      make([]domain.ContractData, 0, len(o.Calls)),
		Puts:       make([]domain.ContractData, 0, len(o.Puts)),
	}
	for _, cd := range o.Calls {
		chain.Calls = append(chain.Calls, cd.ToDomain())
	}
	for _, cd := range o.Puts {
		chain.Puts = append(chain.Puts, cd.ToDomain())
	}
	return chain, true
}
