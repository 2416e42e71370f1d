package book

import (
	"strconv"
	"time"

	"github.com/alanyoungcy/optionscalc/internal/domain"
)

// Reducer applies actions to states. Both fields are optional: Now defaults
// to time.Now and a nil Chains means no chain data is available.
type Reducer struct {
	Now    func() time.Time
	Chains ChainLookup
}

func (r Reducer) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Transition returns the state that results from applying a to s. The input
// is never modified and the result shares no memory with it. Actions that
// cannot be applied (unknown leg id, invalid enum value) return an unchanged
// copy.
func (r Reducer) Transition(s domain.State, a Action) domain.State {
	next := s.Clone()
	if ok := r.apply(&next, a); !ok {
		return s.Clone()
	}
	return next
}

func (r Reducer) apply(s *domain.State, a Action) bool {
	switch a := a.(type) {
	case AddLeg:
		r.addLeg(s, a)
	case RemoveLeg:
		i := s.Leg(a.ID)
		if i < 0 {
			return false
		}
		s.Legs = append(s.Legs[:i], s.Legs[i+1:]...)
	case ModifyLeg:
		return r.modifyLeg(s, a)
	case SetAllExpirations:
		for i := range s.Legs {
			s.Legs[i].Expiry.User = domain.Ptr(a.Label)
			r.refreshLeg(s, &s.Legs[i])
		}
	case ModifySymbol:
		r.modifySymbol(s, a)
	case SetDisplay:
		return setDisplay(&s.Display, a)
	case ReplaceState:
		*s = a.State.Clone()
		normalizeCounter(s)
	case ClearLegs:
		s.Legs = []domain.Leg{}
	default:
		return false
	}
	return true
}

// normalizeCounter keeps NextOptID above every leg id.
func normalizeCounter(s *domain.State) {
	for _, l := range s.Legs {
		if l.ID >= s.NextOptID {
			s.NextOptID = l.ID + 1
		}
	}
}

func (r Reducer) addLeg(s *domain.State, a AddLeg) {
	normalizeCounter(s)
	id := s.NextOptID
	s.NextOptID++

	var l domain.Leg
	if a.Template != nil {
		l = a.Template.Clone()
	} else {
		l = r.defaultLeg(*s)
	}
	l.ID = id

	r.refreshLeg(s, &l)
	s.Legs = append(s.Legs, l)
}

func (r Reducer) defaultLeg(s domain.State) domain.Leg {
	qty := 1.0
	exp := ExpirationAt(r.now().Add(24 * time.Hour))
	if len(s.Legs) > 0 {
		qty = s.Legs[0].Quantity.ToUse
		exp = s.Legs[0].Expiry.ToUse
	}

	return domain.Leg{
		Quantity: domain.EditField[float64]{User: domain.Ptr(formatNumber(qty)), LastParsed: domain.Ptr(qty), ToUse: qty},
		Expiry:   domain.EditField[domain.Expiration]{Actual: domain.Ptr(exp), ToUse: exp},
		Type:     domain.Put,
		Sale:     domain.Buy,
		Editing:  true,
	}
}

func (r Reducer) modifyLeg(s *domain.State, a ModifyLeg) bool {
	i := s.Leg(a.ID)
	if i < 0 {
		return false
	}
	l := &s.Legs[i]

	value := ""
	if a.Value != nil {
		value = *a.Value
	}

	switch a.Field {
	case FieldStrike:
		l.Strike.User = a.Value
		parseInto(&l.Strike, msgStrikeNotNumber)
	case FieldPrice:
		l.Price.User = a.Value
		parseInto(&l.Price, msgPriceNotNumber)
	case FieldQuantity:
		l.Quantity.User = a.Value
		parseInto(&l.Quantity, msgQtyNotNumber)
	case FieldExpiry:
		l.Expiry.User = a.Value
		if a.Value == nil {
			l.Expiry.LastParsed = nil
			l.Expiry.Error = ""
			l.Expiry.Refresh(domain.Expiration{})
		}
	case FieldType:
		switch t := domain.OptionType(value); t {
		case domain.Call, domain.Put:
			l.Type = t
		default:
			return false
		}
	case FieldSale:
		switch v := domain.Sale(value); v {
		case domain.Buy, domain.Sell:
			l.Sale = v
		default:
			return false
		}
	case FieldIV:
		v, ok := parseNumber(value)
		if !ok {
			return false
		}
		l.IV = v
	case FieldEditing, FieldHidden:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return false
		}
		if a.Field == FieldEditing {
			l.Editing = b
		} else {
			l.Hidden = b
		}
	default:
		return false
	}

	r.refreshLeg(s, l)
	return true
}

func (r Reducer) modifySymbol(s *domain.State, a ModifySymbol) {
	prevTicker := s.Symbol.Ticker
	prevPrice := s.Symbol.Price.ToUse
	sym := &s.Symbol

	if a.Ticker != nil {
		sym.Ticker = *a.Ticker
		if sym.Ticker != prevTicker {
			sym.Price.Actual = nil
			sym.Name = ""
			sym.Meta = nil
		}
	}
	if a.ClearUserPrice {
		sym.Price.User = nil
		sym.Price.LastParsed = nil
		sym.Price.Error = ""
	} else if a.UserPrice != nil {
		sym.Price.User = domain.Ptr(*a.UserPrice)
		v, ok := parseNumber(*a.UserPrice)
		switch {
		case !ok:
			sym.Price.Error = msgPriceNotNumber
		case v > 0:
			sym.Price.LastParsed = domain.Ptr(v)
			sym.Price.Error = ""
		default:
			sym.Price.Error = ""
		}
	}
	if a.ActualPrice != nil {
		sym.Price.Actual = domain.Ptr(*a.ActualPrice)
	}
	if a.Name != nil {
		sym.Name = *a.Name
	}
	if a.Meta != nil {
		m := a.Meta.Clone()
		sym.Meta = &m
	}
	sym.Price.Refresh(0)

	if sym.Ticker != prevTicker || sym.Price.ToUse != prevPrice || a.Meta != nil {
		for i := range s.Legs {
			r.refreshLeg(s, &s.Legs[i])
		}
	}
}

// maxDisplayBound is the first price at which whole-dollar axis steps stop
// being representable as float64.
const maxDisplayBound = 1 << 53

func setDisplay(d *domain.Display, a SetDisplay) bool {
	switch a.Field {
	case DisplayProfit:
		switch p := domain.ProfitDisplay(a.Value); p {
		case domain.ProfitAbsolute, domain.ProfitPercentRisk:
			d.Profit = p
			return true
		}
		return false
	case DisplayMinPrice, DisplayMaxPrice:
		var bound *float64
		if a.Value != "" {
			v, ok := parseNumber(a.Value)
			if !ok || v >= maxDisplayBound {
				return false
			}
			if v > 0 {
				bound = domain.Ptr(v)
			}
		}
		if a.Field == DisplayMinPrice {
			d.MinPrice = bound
		} else {
			d.MaxPrice = bound
		}
		return true
	}
	return false
}
