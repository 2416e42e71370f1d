package codec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"math"
	"reflect"
	"testing"

	"github.com/alanyoungcy/optionscalc/internal/domain"
)

func shortPutState() domain.State {
	s := domain.DefaultState()
	s.Legs = []domain.Leg{{
		ID:       0,
		Strike:   domain.Fixed(240.0),
		Price:    domain.Fixed(3.5),
		IV:       0.66,
		Quantity: domain.Fixed(15.0),
		Expiry:   domain.Fixed(domain.Expiration{Timestamp: 1_700_000_000, Label: "2023-11-14"}),
		Type:     domain.Put,
		Sale:     domain.Sell,
	}}
	s.Symbol.Price = domain.EditField[float64]{Actual: domain.Ptr(245.5), ToUse: 245.5}
	s.Display.Profit = domain.ProfitAbsolute
	s.Display.MaxPrice = domain.Ptr(300.0)
	s.NextOptID = 1
	return s
}

func legacyBytes() []byte {
	var b bytes.Buffer
	text := func(s string) {
		b.WriteByte(byte(len(s)))
		b.WriteString(s)
	}
	b.WriteByte(1) // legs
	b.WriteByte(0) // id
	text("240")
	text("3.5")
	text("-1")
	text("15")
	text("1700000000")
	b.WriteByte(1) // put
	b.WriteByte(2) // sell
	text("SPY")
	text("245.5")
	text("0.66")
	b.WriteByte(1) // absolute
	b.Write([]byte{0xff, 0xff, 0xff, 0xff})
	b.Write([]byte{0x00, 0x00, 0x01, 0x2c})
	b.WriteByte(1) // next id
	return b.Bytes()
}

func TestEncodeLegacyLayout(t *testing.T) {
	token, err := EncodeLegacy(shortPutState())
	if err != nil {
		t.Fatalf("EncodeLegacy: %v", err)
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		t.Fatalf("token is not base64url: %v", err)
	}
	if want := legacyBytes(); !bytes.Equal(raw, want) {
		t.Errorf("bytes:\n got % x\nwant % x", raw, want)
	}
}

func TestDecodeLegacy(t *testing.T) {
	token := base64.RawURLEncoding.EncodeToString(legacyBytes())
	s, format, err := DecodeFormat(token)
	if err != nil {
		t.Fatalf("DecodeFormat: %v", err)
	}
	if format != FormatLegacy {
		t.Errorf("format = %s, want legacy", format)
	}
	if len(s.Legs) != 1 {
		t.Fatalf("legs = %d, want 1", len(s.Legs))
	}
	l := s.Legs[0]
	if l.Strike.ToUse != 240 || l.Price.ToUse != 3.5 || l.Quantity.ToUse != 15 {
		t.Errorf("leg numbers = %v %v %v", l.Strike.ToUse, l.Price.ToUse, l.Quantity.ToUse)
	}
	if l.TheoreticalPrice != nil {
		t.Errorf("theoretical = %v, want nil", *l.TheoreticalPrice)
	}
	if l.Expiry.ToUse != (domain.Expiration{Timestamp: 1_700_000_000, Label: "2023-11-14"}) {
		t.Errorf("expiry = %+v", l.Expiry.ToUse)
	}
	if l.Type != domain.Put || l.Sale != domain.Sell || l.IV != 0.66 {
		t.Errorf("leg = %s %s iv %v", l.Type, l.Sale, l.IV)
	}
	if s.Symbol.Ticker != "SPY" || s.Symbol.Price.ToUse != 245.5 {
		t.Errorf("symbol = %+v", s.Symbol)
	}
	if s.Display.Profit != domain.ProfitAbsolute || s.Display.MinPrice != nil || s.Display.MaxPrice == nil || *s.Display.MaxPrice != 300 {
		t.Errorf("display = %+v", s.Display)
	}
	if s.NextOptID != 1 || !s.Loaded {
		t.Errorf("next = %d loaded = %v", s.NextOptID, s.Loaded)
	}
}

func TestDecodeLegacyEmptyTextIsZero(t *testing.T) {
	raw := []byte{
		0,          // no legs
		3, 'Q', 'Q', 'Q',
		0,          // price
		0,          // iv
		2,          // percent of risk
		0xff, 0xff, 0xff, 0xff,
		0xff, 0xff, 0xff, 0xff,
		0,
	}
	s, err := Decode(base64.RawURLEncoding.EncodeToString(raw))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if s.Symbol.Ticker != "QQQ" || s.Symbol.Price.ToUse != 0 || s.Display.Profit != domain.ProfitPercentRisk {
		t.Errorf("state = %+v", s)
	}
}

func TestDecodeNormalizesCounter(t *testing.T) {
	raw := legacyBytes()
	raw[len(raw)-1] = 0
	s, err := Decode(base64.RawURLEncoding.EncodeToString(raw))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if s.NextOptID != 1 {
		t.Errorf("next = %d, want 1", s.NextOptID)
	}
}

func TestEncodeLegacyLimits(t *testing.T) {
	s := shortPutState()
	s.Legs[0].ID = 300
	if _, err := EncodeLegacy(s); !errors.Is(err, domain.ErrEncode) {
		t.Errorf("id 300: err = %v, want ErrEncode", err)
	}

	s = shortPutState()
	s.NextOptID = 256
	if _, err := EncodeLegacy(s); err == nil {
		t.Error("counter 256 encoded")
	}

	for _, strike := range []float64{1e305, math.Inf(1), math.NaN()} {
		s = shortPutState()
		s.Legs[0].Strike = domain.Fixed(strike)
		if _, err := EncodeLegacy(s); !errors.Is(err, domain.ErrEncode) {
			t.Errorf("strike %v: err = %v, want ErrEncode", strike, err)
		}
	}
}

func TestDecodeLegacyZeroBoundIsAbsent(t *testing.T) {
	raw := legacyBytes()
	copy(raw[len(raw)-9:], []byte{0, 0, 0, 0, 0, 0, 0, 0})
	s, err := Decode(base64.RawURLEncoding.EncodeToString(raw))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if s.Display.MinPrice != nil || s.Display.MaxPrice != nil {
		t.Errorf("display = %+v, want no bounds", s.Display)
	}
}

func TestLegacyDecimal(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{240, "240"},
		{3.5, "3.5"},
		{-1, "-1"},
		{0, "0"},
		{1.23456, "1.2346"},
		{0.1 + 0.2, "0.3"},
		{1_700_000_000, "1700000000"},
	}
	for _, tt := range tests {
		if got := legacyDecimal(tt.in); got != tt.want {
			t.Errorf("legacyDecimal(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestV2RoundTrip(t *testing.T) {
	s := shortPutState()
	s.Symbol.Meta = &domain.OptionMeta{Strikes: []float64{235, 240}, Expirations: []domain.Expiration{{Timestamp: 1_700_000_000, Label: "2023-11-14"}}}
	s.Legs[0].TheoreticalPrice = domain.Ptr(3.12)
	s.Legs[0].Strike.User = domain.Ptr("240")
	s.Legs[0].Hidden = true

	token, err := Encode(s)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, format, err := DecodeFormat(token)
	if err != nil {
		t.Fatalf("DecodeFormat: %v", err)
	}
	if format != FormatV2 {
		t.Errorf("format = %s, want v2", format)
	}
	if !reflect.DeepEqual(got, s) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, s)
	}
}

func TestV2IsDeterministic(t *testing.T) {
	a, err := Encode(shortPutState())
	if err != nil {
		t.Fatal(err)
	}
	b, err := Encode(shortPutState())
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("encoding the same state twice gave different tokens")
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, token := range []string{
		"",
		"not-a-valid-token",
		"!!!",
		base64.RawURLEncoding.EncodeToString([]byte{0xA2, 0x01, 0x02}),
		base64.RawURLEncoding.EncodeToString(legacyBytes()[:10]),
		base64.RawURLEncoding.EncodeToString(append(legacyBytes(), 0)),
	} {
		_, err := Decode(token)
		if !errors.Is(err, domain.ErrDecode) {
			t.Errorf("Decode(%q) err = %v, want ErrDecode", token, err)
		}
	}
}

func TestDecodeRejectsForeignStruct(t *testing.T) {
	s := shortPutState()
	s.Legs[0].Type = "straddle"
	token, err := Encode(s)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(token); !errors.Is(err, domain.ErrDecode) {
		t.Errorf("err = %v, want ErrDecode", err)
	}
}

func TestDecodeOrDefault(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if got := DecodeOrDefault("not-a-valid-token", logger); !reflect.DeepEqual(got, domain.DefaultState()) {
		t.Errorf("got %+v, want default state", got)
	}

	token, err := Encode(shortPutState())
	if err != nil {
		t.Fatal(err)
	}
	if got := DecodeOrDefault(token, nil); len(got.Legs) != 1 {
		t.Errorf("legs = %d, want 1", len(got.Legs))
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatV2, "v2": FormatV2, "LEGACY": FormatLegacy} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("msgpack"); !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestMigrateLegacyToV2(t *testing.T) {
	legacy := base64.RawURLEncoding.EncodeToString(legacyBytes())
	s, err := Decode(legacy)
	if err != nil {
		t.Fatal(err)
	}
	token, err := Encode(s)
	if err != nil {
		t.Fatal(err)
	}
	back, format, err := DecodeFormat(token)
	if err != nil || format != FormatV2 {
		t.Fatalf("DecodeFormat = %s, %v", format, err)
	}
	if !reflect.DeepEqual(back, s) {
		t.Errorf("migrated state differs:\n got %+v\nwant %+v", back, s)
	}
}
