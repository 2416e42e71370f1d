package domain

// OptionType is the contract kind of a leg.
type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// Sale is the direction of a leg.
type Sale string

const (
	Buy  Sale = "buy"
	Sell Sale = "sell"
)

// ProfitDisplay controls how projection cells are rendered.
type ProfitDisplay string

const (
	ProfitAbsolute    ProfitDisplay = "absolute"
	ProfitPercentRisk ProfitDisplay = "percent_risk"
)

// DefaultTicker is the placeholder symbol of a fresh state.
const DefaultTicker = "SPY"

// Expiration identifies an option expiration date.
type Expiration struct {
	Timestamp int64  `json:"expirationTimestamp"` // unix seconds
	Label     string `json:"expirationString"`
}

// Leg is a single option position within a book.
type Leg struct {
	ID               int                   `json:"id"`
	Strike           EditField[float64]    `json:"strike"`
	Price            EditField[float64]    `json:"price"` // entry premium per share
	TheoreticalPrice *float64              `json:"theoreticalPrice,omitempty"`
	IV               float64               `json:"iv"`
	Quantity         EditField[float64]    `json:"quantity"`
	Expiry           EditField[Expiration] `json:"expiry"`
	Type             OptionType            `json:"type"`
	Sale             Sale                  `json:"sale"`
	Editing          bool                  `json:"editing"`
	Hidden           bool                  `json:"hidden"`
}

// Modifier returns +1 for a long leg and -1 for a short one.
func (l Leg) Modifier() float64 {
	if l.Sale == Sell {
		return -1
	}
	return 1
}

// Clone returns a deep copy of l.
func (l Leg) Clone() Leg {
	out := l
	out.Strike = l.Strike.Clone()
	out.Price = l.Price.Clone()
	out.Quantity = l.Quantity.Clone()
	out.Expiry = l.Expiry.Clone()
	if l.TheoreticalPrice != nil {
		out.TheoreticalPrice = Ptr(*l.TheoreticalPrice)
	}
	return out
}

// Symbol describes the underlying.
type Symbol struct {
	Ticker string             `json:"symbol"`
	Name   string             `json:"name"`
	Price  EditField[float64] `json:"price"`
	Meta   *OptionMeta        `json:"meta,omitempty"`
}

// Clone returns a deep copy of s.
func (s Symbol) Clone() Symbol {
	out := s
	out.Price = s.Price.Clone()
	if s.Meta != nil {
		m := s.Meta.Clone()
		out.Meta = &m
	}
	return out
}

// Display holds presentation preferences that affect the projection axes.
type Display struct {
	Profit   ProfitDisplay `json:"profit"`
	MinPrice *float64      `json:"minPrice,omitempty"`
	MaxPrice *float64      `json:"maxPrice,omitempty"`
}

// Clone returns a deep copy of d.
func (d Display) Clone() Display {
	out := d
	if d.MinPrice != nil {
		out.MinPrice = Ptr(*d.MinPrice)
	}
	if d.MaxPrice != nil {
		out.MaxPrice = Ptr(*d.MaxPrice)
	}
	return out
}

// State is the whole option book plus the context it is evaluated in.
type State struct {
	Legs      []Leg   `json:"options"`
	Symbol    Symbol  `json:"symbol"`
	Display   Display `json:"display"`
	NextOptID int     `json:"nextOptId"`
	Loaded    bool    `json:"loaded"`
}

// DefaultState returns an empty book on the placeholder symbol.
func DefaultState() State {
	return State{
		Legs:    []Leg{},
		Symbol:  Symbol{Ticker: DefaultTicker},
		Display: Display{Profit: ProfitPercentRisk},
		Loaded:  true,
	}
}

// Clone returns a deep copy of s. A nil leg slice stays nil.
func (s State) Clone() State {
	out := s
	if s.Legs != nil {
		out.Legs = make([]Leg, len(s.Legs))
		for i, l := range s.Legs {
			out.Legs[i] = l.Clone()
		}
	}
	out.Symbol = s.Symbol.Clone()
	out.Display = s.Display.Clone()
	return out
}

// Leg returns the index of the leg with the given id, or -1.
func (s State) Leg(id int) int {
	for i := range s.Legs {
		if s.Legs[i].ID == id {
			return i
		}
	}
	return -1
}

// VisibleLegs returns the legs that take part in P&L aggregation.
func (s State) VisibleLegs() []Leg {
	out := make([]Leg, 0, len(s.Legs))
	for _, l := range s.Legs {
		if !l.Hidden {
			out = append(out, l)
		}
	}
	return out
}
