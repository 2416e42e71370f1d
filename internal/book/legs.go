package book

import (
	"math"
	"time"

	"github.com/alanyoungcy/optionscalc/internal/domain"
	"github.com/alanyoungcy/optionscalc/internal/pricing"
)

// DefaultIV is used when a listed contract carries no implied volatility.
const DefaultIV = 0.66

// ChainLookup resolves cached option chains without blocking.
type ChainLookup interface {
	Chain(symbol string, expiration int64) (domain.OptionChain, bool)
}

// Snapshot is an in-memory ChainLookup keyed by symbol and expiration.
type Snapshot map[string]map[int64]domain.OptionChain

// Chain implements ChainLookup.
func (s Snapshot) Chain(symbol string, expiration int64) (domain.OptionChain, bool) {
	c, ok := s[symbol][expiration]
	return c, ok
}

// Put stores a chain in the snapshot.
func (s Snapshot) Put(symbol string, expiration int64, chain domain.OptionChain) {
	if s[symbol] == nil {
		s[symbol] = make(map[int64]domain.OptionChain)
	}
	s[symbol][expiration] = chain
}

// resolveExpiry maps the user's expiry label onto a known expiration.
// Without chain metadata a plain date label is accepted as is.
func resolveExpiry(l *domain.Leg, meta *domain.OptionMeta) {
	if l.Expiry.User == nil {
		return
	}
	label := *l.Expiry.User

	if meta != nil && len(meta.Expirations) > 0 {
		if e, ok := meta.FindExpiration(label); ok {
			l.Expiry.LastParsed = domain.Ptr(e)
			l.Expiry.Error = ""
			l.Expiry.ToUse = e
			return
		}
	} else if t, err := time.Parse(LabelLayout, label); err == nil {
		e := ExpirationAt(t)
		l.Expiry.LastParsed = domain.Ptr(e)
		l.Expiry.Error = ""
		l.Expiry.ToUse = e
		return
	}

	l.Expiry.LastParsed = nil
	l.Expiry.ToUse = invalidExpiry
	l.Expiry.Error = msgInvalidExpiry
}

// refreshLeg recomputes everything on l that depends on the underlying,
// the chain metadata or the cached chains.
func (r Reducer) refreshLeg(s *domain.State, l *domain.Leg) {
	meta := s.Symbol.Meta

	resolveExpiry(l, meta)

	l.Strike.Refresh(0)
	if l.Strike.Error != msgStrikeNotNumber {
		l.Strike.Error = ""
		if meta != nil && len(meta.Strikes) > 0 && !meta.HasStrike(l.Strike.ToUse) {
			l.Strike.Error = msgInvalidStrike
		}
	}

	if l.Strike.ToUse > 0 && l.Expiry.ToUse.Timestamp > 0 && r.Chains != nil {
		if chain, ok := r.Chains.Chain(s.Symbol.Ticker, l.Expiry.ToUse.Timestamp); ok {
			if cd, found := chain.Lookup(l.Type, l.Strike.ToUse); found {
				l.IV = cd.ImpliedVolatility
				if l.IV == 0 {
					l.IV = DefaultIV
				}
				l.Price.Actual = domain.Ptr(contractPrice(l.Sale, cd))
			} else {
				l.IV = 0
				l.Price.Actual = nil
				if l.Strike.Error == "" {
					l.Strike.Error = msgChainMiss
				}
			}
		}
	}

	l.Price.Refresh(0)
	l.Quantity.Refresh(0)
	l.TheoreticalPrice = r.theoretical(s.Symbol.Price.ToUse, *l)
}

// contractPrice is what opening the leg costs per share: the ask when
// buying, the bid when selling, the last trade when that side is empty.
func contractPrice(sale domain.Sale, cd domain.ContractData) float64 {
	p := cd.Ask
	if sale == domain.Sell {
		p = cd.Bid
	}
	if p == 0 {
		p = cd.LastPrice
	}
	return p
}

// theoretical prices the leg today, rounded to cents.
func (r Reducer) theoretical(underlying float64, l domain.Leg) *float64 {
	if underlying <= 0 || l.Strike.ToUse <= 0 || l.IV <= 0 || l.Expiry.ToUse.Timestamp <= 0 {
		return nil
	}
	now := r.now()
	years := pricing.YearsBetween(float64(now.Unix()), float64(l.Expiry.ToUse.Timestamp))
	v := pricing.Value(l.Type, underlying, l.Strike.ToUse, years, l.IV, 0)
	return domain.Ptr(math.Round(v*100) / 100)
}
