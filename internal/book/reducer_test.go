package book

import (
	"reflect"
	"testing"
	"time"

	"github.com/alanyoungcy/optionscalc/internal/domain"
)

var fixedNow = time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)

func testReducer(chains ChainLookup) Reducer {
	return Reducer{Now: func() time.Time { return fixedNow }, Chains: chains}
}

func str(s string) *string { return &s }

var febExpiry = domain.Expiration{Timestamp: time.Date(2024, 2, 16, 0, 0, 0, 0, time.UTC).Unix(), Label: "2024-02-16"}

func marketState() domain.State {
	s := domain.DefaultState()
	s.Symbol.Price = domain.Fixed(105.0)
	s.Symbol.Meta = &domain.OptionMeta{
		Strikes:     []float64{95, 97, 100, 105},
		Expirations: []domain.Expiration{febExpiry},
	}
	return s
}

func marketSnapshot() Snapshot {
	snap := Snapshot{}
	snap.Put("SPY", febExpiry.Timestamp, domain.OptionChain{
		Expiration: febExpiry,
		Puts: []domain.ContractData{
			{Strike: 100, Bid: 2.0, Ask: 2.5, LastPrice: 2.2, ImpliedVolatility: 0.3},
			{Strike: 105, Bid: 0, Ask: 0, LastPrice: 4.1},
		},
	})
	return snap
}

func TestAddLegDefaults(t *testing.T) {
	r := testReducer(nil)
	s := r.Transition(domain.DefaultState(), AddLeg{})

	if len(s.Legs) != 1 {
		t.Fatalf("legs = %d, want 1", len(s.Legs))
	}
	l := s.Legs[0]
	if l.ID != 0 || s.NextOptID != 1 {
		t.Errorf("id = %d next = %d, want 0 and 1", l.ID, s.NextOptID)
	}
	if l.Quantity.ToUse != 1 {
		t.Errorf("quantity = %v, want 1", l.Quantity.ToUse)
	}
	want := fixedNow.Add(24 * time.Hour)
	if l.Expiry.ToUse.Timestamp != want.Unix() || l.Expiry.ToUse.Label != "2024-01-11" {
		t.Errorf("expiry = %+v, want %d 2024-01-11", l.Expiry.ToUse, want.Unix())
	}
	if !l.Editing || l.Sale != domain.Buy || l.Type != domain.Put {
		t.Errorf("flags = editing %v sale %s type %s", l.Editing, l.Sale, l.Type)
	}
	if l.TheoreticalPrice != nil {
		t.Errorf("theoretical price = %v, want nil without an underlying", *l.TheoreticalPrice)
	}
}

func TestAddLegCopiesFirstLeg(t *testing.T) {
	r := testReducer(nil)
	s := r.Transition(domain.DefaultState(), AddLeg{})
	s = r.Transition(s, ModifyLeg{ID: 0, Field: FieldQuantity, Value: str("15")})
	s = r.Transition(s, ModifyLeg{ID: 0, Field: FieldExpiry, Value: str("2024-03-15")})
	s = r.Transition(s, AddLeg{})

	if len(s.Legs) != 2 {
		t.Fatalf("legs = %d, want 2", len(s.Legs))
	}
	second := s.Legs[1]
	if second.ID != 1 {
		t.Errorf("id = %d, want 1", second.ID)
	}
	if second.Quantity.ToUse != 15 {
		t.Errorf("quantity = %v, want 15", second.Quantity.ToUse)
	}
	if second.Expiry.ToUse != s.Legs[0].Expiry.ToUse {
		t.Errorf("expiry = %+v, want %+v", second.Expiry.ToUse, s.Legs[0].Expiry.ToUse)
	}
}

func TestAddLegTemplateGetsFreshID(t *testing.T) {
	r := testReducer(nil)
	tmpl := domain.Leg{ID: 42, Strike: domain.Fixed(100.0), Type: domain.Call, Sale: domain.Sell}
	s := r.Transition(domain.DefaultState(), AddLeg{Template: &tmpl})

	if s.Legs[0].ID != 0 || s.Legs[0].Type != domain.Call || s.Legs[0].Sale != domain.Sell {
		t.Errorf("leg = %+v", s.Legs[0])
	}
	if tmpl.ID != 42 {
		t.Errorf("template mutated: id = %d", tmpl.ID)
	}
}

func TestRemoveLegNeverReusesID(t *testing.T) {
	r := testReducer(nil)
	s := domain.DefaultState()
	for range 3 {
		s = r.Transition(s, AddLeg{})
	}
	s = r.Transition(s, RemoveLeg{ID: 2})
	s = r.Transition(s, AddLeg{})

	var ids []int
	for _, l := range s.Legs {
		ids = append(ids, l.ID)
	}
	if !reflect.DeepEqual(ids, []int{0, 1, 3}) {
		t.Errorf("ids = %v, want [0 1 3]", ids)
	}
	if s.NextOptID != 4 {
		t.Errorf("next = %d, want 4", s.NextOptID)
	}
}

func TestUnknownLegIsNoop(t *testing.T) {
	r := testReducer(nil)
	s := r.Transition(domain.DefaultState(), AddLeg{})

	actions := []Action{
		RemoveLeg{ID: 9},
		ModifyLeg{ID: 9, Field: FieldStrike, Value: str("100")},
	}
	for _, a := range actions {
		if got := r.Transition(s, a); !reflect.DeepEqual(got, s) {
			t.Errorf("%T changed the state", a)
		}
	}
}

func TestModifyLegInvalidValuesAreAtomic(t *testing.T) {
	r := testReducer(nil)
	s := r.Transition(domain.DefaultState(), AddLeg{})

	tests := []ModifyLeg{
		{ID: 0, Field: FieldType, Value: str("straddle")},
		{ID: 0, Field: FieldSale, Value: str("hold")},
		{ID: 0, Field: FieldIV, Value: str("high")},
		{ID: 0, Field: FieldEditing, Value: str("maybe")},
		{ID: 0, Field: "colour", Value: str("red")},
	}
	for _, a := range tests {
		if got := r.Transition(s, a); !reflect.DeepEqual(got, s) {
			t.Errorf("%s=%q changed the state", a.Field, *a.Value)
		}
	}
}

func TestModifyLegNumericParse(t *testing.T) {
	r := testReducer(nil)
	s := r.Transition(domain.DefaultState(), AddLeg{})

	s = r.Transition(s, ModifyLeg{ID: 0, Field: FieldStrike, Value: str("abc")})
	l := s.Legs[0]
	if l.Strike.Error != msgStrikeNotNumber || l.Strike.ToUse != 0 {
		t.Errorf("strike = %+v, want flagged and 0", l.Strike)
	}
	if l.Strike.User == nil || *l.Strike.User != "abc" {
		t.Errorf("user text not kept: %v", l.Strike.User)
	}

	s = r.Transition(s, ModifyLeg{ID: 0, Field: FieldStrike, Value: str("101.5")})
	if l := s.Legs[0]; l.Strike.Error != "" || l.Strike.ToUse != 101.5 {
		t.Errorf("strike = %+v, want 101.5", l.Strike)
	}

	s = r.Transition(s, ModifyLeg{ID: 0, Field: FieldPrice, Value: str("-1")})
	if l := s.Legs[0]; l.Price.Error != msgPriceNotNumber || l.Price.ToUse != 0 {
		t.Errorf("price = %+v", l.Price)
	}

	s = r.Transition(s, ModifyLeg{ID: 0, Field: FieldHidden, Value: str("true")})
	if !s.Legs[0].Hidden {
		t.Error("hidden not set")
	}
}

func TestRefreshFromChain(t *testing.T) {
	r := testReducer(marketSnapshot())
	s := r.Transition(marketState(), AddLeg{})
	s = r.Transition(s, ModifyLeg{ID: 0, Field: FieldExpiry, Value: str("2024-02-16")})
	s = r.Transition(s, ModifyLeg{ID: 0, Field: FieldStrike, Value: str("100")})

	l := s.Legs[0]
	if l.Expiry.ToUse != febExpiry {
		t.Fatalf("expiry = %+v, want %+v", l.Expiry.ToUse, febExpiry)
	}
	if l.IV != 0.3 {
		t.Errorf("iv = %v, want 0.3", l.IV)
	}
	if l.Price.ToUse != 2.5 {
		t.Errorf("buy price = %v, want ask 2.5", l.Price.ToUse)
	}
	if l.TheoreticalPrice == nil || *l.TheoreticalPrice <= 0 {
		t.Errorf("theoretical price = %v, want positive", l.TheoreticalPrice)
	}

	s = r.Transition(s, ModifyLeg{ID: 0, Field: FieldSale, Value: str("sell")})
	if got := s.Legs[0].Price.ToUse; got != 2.0 {
		t.Errorf("sell price = %v, want bid 2.0", got)
	}

	s = r.Transition(s, ModifyLeg{ID: 0, Field: FieldStrike, Value: str("105")})
	l = s.Legs[0]
	if l.IV != DefaultIV {
		t.Errorf("iv = %v, want default %v", l.IV, DefaultIV)
	}
	if l.Price.ToUse != 4.1 {
		t.Errorf("price = %v, want last price 4.1", l.Price.ToUse)
	}
}

func TestRefreshChainMiss(t *testing.T) {
	r := testReducer(marketSnapshot())
	s := r.Transition(marketState(), AddLeg{})
	s = r.Transition(s, ModifyLeg{ID: 0, Field: FieldExpiry, Value: str("2024-02-16")})
	s = r.Transition(s, ModifyLeg{ID: 0, Field: FieldStrike, Value: str("95")})

	l := s.Legs[0]
	if l.Strike.Error != msgChainMiss {
		t.Errorf("error = %q, want %q", l.Strike.Error, msgChainMiss)
	}
	if l.IV != 0 || l.Price.ToUse != 0 {
		t.Errorf("iv = %v price = %v, want 0 and 0", l.IV, l.Price.ToUse)
	}
	if l.TheoreticalPrice != nil {
		t.Errorf("theoretical price = %v, want nil", *l.TheoreticalPrice)
	}
}

func TestRefreshValidatesAgainstMeta(t *testing.T) {
	r := testReducer(nil)
	s := r.Transition(marketState(), AddLeg{})

	s = r.Transition(s, ModifyLeg{ID: 0, Field: FieldStrike, Value: str("96")})
	if got := s.Legs[0].Strike.Error; got != msgInvalidStrike {
		t.Errorf("strike error = %q, want %q", got, msgInvalidStrike)
	}

	s = r.Transition(s, ModifyLeg{ID: 0, Field: FieldExpiry, Value: str("2030-01-01")})
	exp := s.Legs[0].Expiry
	if exp.Error != msgInvalidExpiry || exp.ToUse.Label != "0-0-0" {
		t.Errorf("expiry = %+v, want invalid", exp)
	}
}

func TestSetAllExpirations(t *testing.T) {
	r := testReducer(nil)
	s := domain.DefaultState()
	s = r.Transition(s, AddLeg{})
	s = r.Transition(s, AddLeg{})
	s = r.Transition(s, SetAllExpirations{Label: "2024-06-21"})

	for _, l := range s.Legs {
		if l.Expiry.ToUse.Label != "2024-06-21" {
			t.Errorf("leg %d expiry = %+v", l.ID, l.Expiry.ToUse)
		}
	}
}

func TestModifySymbol(t *testing.T) {
	r := testReducer(nil)
	s := marketState()
	s.Symbol.Price = domain.EditField[float64]{Actual: domain.Ptr(105.0), ToUse: 105}
	s.Symbol.Name = "SPDR S&P 500"
	s = r.Transition(s, AddLeg{})
	s = r.Transition(s, ModifyLeg{ID: 0, Field: FieldStrike, Value: str("100")})
	s = r.Transition(s, ModifyLeg{ID: 0, Field: FieldType, Value: str("call")})
	s = r.Transition(s, ModifyLeg{ID: 0, Field: FieldIV, Value: str("0.4")})
	if s.Legs[0].TheoreticalPrice == nil {
		t.Fatal("theoretical price not computed")
	}

	t.Run("ticker change resets market fields", func(t *testing.T) {
		got := r.Transition(s, ModifySymbol{Ticker: str("QQQ")})
		if got.Symbol.Price.Actual != nil || got.Symbol.Name != "" || got.Symbol.Meta != nil {
			t.Errorf("symbol = %+v", got.Symbol)
		}
		if got.Symbol.Price.ToUse != 0 {
			t.Errorf("price = %v, want 0", got.Symbol.Price.ToUse)
		}
		if got.Legs[0].TheoreticalPrice != nil {
			t.Errorf("theoretical price = %v, want nil without an underlying", *got.Legs[0].TheoreticalPrice)
		}
	})

	t.Run("user price overrides actual", func(t *testing.T) {
		got := r.Transition(s, ModifySymbol{UserPrice: str("110")})
		if got.Symbol.Price.ToUse != 110 {
			t.Errorf("price = %v, want 110", got.Symbol.Price.ToUse)
		}
		if *got.Legs[0].TheoreticalPrice == *s.Legs[0].TheoreticalPrice {
			t.Error("theoretical price not recomputed")
		}
		cleared := r.Transition(got, ModifySymbol{ClearUserPrice: true})
		if cleared.Symbol.Price.ToUse != 105 {
			t.Errorf("cleared price = %v, want 105", cleared.Symbol.Price.ToUse)
		}
	})

	t.Run("invalid user price", func(t *testing.T) {
		got := r.Transition(s, ModifySymbol{UserPrice: str("1o5")})
		if got.Symbol.Price.Error != msgPriceNotNumber {
			t.Errorf("error = %q", got.Symbol.Price.Error)
		}
		if got.Symbol.Price.ToUse != 105 {
			t.Errorf("price = %v, want 105", got.Symbol.Price.ToUse)
		}
	})

	t.Run("name only", func(t *testing.T) {
		got := r.Transition(s, ModifySymbol{Name: str("Spider")})
		if got.Symbol.Name != "Spider" || !reflect.DeepEqual(got.Legs, s.Legs) {
			t.Errorf("unexpected change: %+v", got.Symbol)
		}
	})
}

func TestSetDisplayRejectsUnrepresentableBounds(t *testing.T) {
	r := testReducer(nil)
	s := domain.DefaultState()
	for _, v := range []string{"10000000000000000", "9007199254740992"} {
		if got := r.Transition(s, SetDisplay{Field: DisplayMaxPrice, Value: v}); !reflect.DeepEqual(got, s) {
			t.Errorf("max price %s accepted: %v", v, got.Display.MaxPrice)
		}
	}
	if got := r.Transition(s, SetDisplay{Field: DisplayMinPrice, Value: "9007199254740991"}); got.Display.MinPrice == nil {
		t.Error("largest representable bound rejected")
	}
}

func TestSetDisplay(t *testing.T) {
	r := testReducer(nil)
	s := domain.DefaultState()

	s = r.Transition(s, SetDisplay{Field: DisplayProfit, Value: string(domain.ProfitAbsolute)})
	if s.Display.Profit != domain.ProfitAbsolute {
		t.Errorf("profit = %s", s.Display.Profit)
	}
	if got := r.Transition(s, SetDisplay{Field: DisplayProfit, Value: "pips"}); !reflect.DeepEqual(got, s) {
		t.Error("invalid profit mode changed the state")
	}

	s = r.Transition(s, SetDisplay{Field: DisplayMinPrice, Value: "150"})
	if s.Display.MinPrice == nil || *s.Display.MinPrice != 150 {
		t.Errorf("min price = %v", s.Display.MinPrice)
	}
	s = r.Transition(s, SetDisplay{Field: DisplayMinPrice, Value: ""})
	if s.Display.MinPrice != nil {
		t.Errorf("min price = %v, want nil", *s.Display.MinPrice)
	}
	s = r.Transition(s, SetDisplay{Field: DisplayMaxPrice, Value: "0"})
	if s.Display.MaxPrice != nil {
		t.Errorf("max price = %v, want nil", *s.Display.MaxPrice)
	}
}

func TestReplaceStateNormalizesCounter(t *testing.T) {
	r := testReducer(nil)
	loaded := domain.DefaultState()
	loaded.Legs = []domain.Leg{{ID: 4}, {ID: 7}}
	loaded.NextOptID = 2

	s := r.Transition(domain.DefaultState(), ReplaceState{State: loaded})
	if s.NextOptID != 8 {
		t.Errorf("next = %d, want 8", s.NextOptID)
	}
	s.Legs[0].ID = 99
	if loaded.Legs[0].ID != 4 {
		t.Error("replacement aliases the loaded state")
	}
}

func TestClearLegsKeepsCounter(t *testing.T) {
	r := testReducer(nil)
	s := domain.DefaultState()
	s = r.Transition(s, AddLeg{})
	s = r.Transition(s, AddLeg{})
	s = r.Transition(s, SetDisplay{Field: DisplayProfit, Value: string(domain.ProfitAbsolute)})
	s = r.Transition(s, ClearLegs{})

	if len(s.Legs) != 0 || s.Legs == nil {
		t.Errorf("legs = %v, want empty", s.Legs)
	}
	if s.NextOptID != 2 || s.Display.Profit != domain.ProfitAbsolute {
		t.Errorf("state = %+v", s)
	}
}

func TestTransitionDoesNotAlias(t *testing.T) {
	r := testReducer(nil)
	s := r.Transition(domain.DefaultState(), AddLeg{})
	next := r.Transition(s, ModifyLeg{ID: 0, Field: FieldStrike, Value: str("100")})

	*next.Legs[0].Strike.User = "200"
	next.Legs[0].Quantity.ToUse = 50
	if *s.Legs[0].Quantity.User != "1" || s.Legs[0].Quantity.ToUse != 1 {
		t.Error("mutating the result changed the input")
	}
	if s.Legs[0].Strike.User != nil {
		t.Error("input gained a strike")
	}
}
