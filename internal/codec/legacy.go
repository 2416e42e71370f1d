package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/optionscalc/internal/domain"
)

// Legacy layout, all integers big-endian:
//
//	u8  leg count
//	per leg: u8 id, text strike, text price, text theoretical (-1 = none),
//	         text quantity, text expiry (unix seconds), u8 type (1 put, 2 call),
//	         u8 sale (1 buy, 2 sell)
//	text symbol, text underlying price, text iv
//	u8  profit display (1 absolute, otherwise percent of risk)
//	i32 min price (-1 = none), i32 max price (-1 = none)
//	u8  next leg id
//
// text is a u8 length followed by that many bytes; numbers are written as
// their shortest decimal form after rounding to 4 places. An empty text
// reads back as 0.

const (
	legacyPut  = 1
	legacyCall = 2
	legacyBuy  = 1
	legacySell = 2

	legacyAbsolute = 1
	legacyPercent  = 2

	legacyAbsent = -1
)

var (
	errTooLarge  = errors.New("value does not fit in one byte")
	errNotFinite = errors.New("number is not finite")
)

type legacyWriter struct {
	buf bytes.Buffer
	err error
}

func (w *legacyWriter) u8(v int) {
	if w.err != nil {
		return
	}
	if v < 0 || v > math.MaxUint8 {
		w.err = fmt.Errorf("%w: %d", errTooLarge, v)
		return
	}
	w.buf.WriteByte(byte(v))
}

func (w *legacyWriter) i32(v int32) {
	if w.err != nil {
		return
	}
	w.buf.Write(binary.BigEndian.AppendUint32(nil, uint32(v)))
}

func (w *legacyWriter) text(s string) {
	if w.err != nil {
		return
	}
	if len(s) > math.MaxUint8 {
		w.err = fmt.Errorf("%w: text of %d bytes", errTooLarge, len(s))
		return
	}
	w.buf.WriteByte(byte(len(s)))
	w.buf.WriteString(s)
}

func (w *legacyWriter) number(v float64) {
	if w.err != nil {
		return
	}
	if scaled := v*10000 + 0.5; math.IsNaN(scaled) || math.IsInf(scaled, 0) {
		w.err = fmt.Errorf("%w: %v", errNotFinite, v)
		return
	}
	w.text(legacyDecimal(v))
}

// legacyDecimal rounds half up to 4 places and prints the shortest form.
func legacyDecimal(v float64) string {
	rounded := math.Floor(v*10000+0.5) / 10000
	return decimal.NewFromFloat(rounded).String()
}

func encodeLegacy(s domain.State) ([]byte, error) {
	w := &legacyWriter{}

	w.u8(len(s.Legs))
	for _, l := range s.Legs {
		w.u8(l.ID)
		w.number(l.Strike.ToUse)
		w.number(l.Price.ToUse)
		theo := float64(legacyAbsent)
		if l.TheoreticalPrice != nil && *l.TheoreticalPrice != 0 {
			theo = *l.TheoreticalPrice
		}
		w.number(theo)
		w.number(l.Quantity.ToUse)
		w.number(float64(l.Expiry.ToUse.Timestamp))
		if l.Type == domain.Put {
			w.u8(legacyPut)
		} else {
			w.u8(legacyCall)
		}
		if l.Sale == domain.Buy {
			w.u8(legacyBuy)
		} else {
			w.u8(legacySell)
		}
	}

	w.text(s.Symbol.Ticker)
	w.number(s.Symbol.Price.ToUse)
	iv := 0.0
	if len(s.Legs) > 0 {
		iv = s.Legs[0].IV
	}
	w.number(iv)

	if s.Display.Profit == domain.ProfitAbsolute {
		w.u8(legacyAbsolute)
	} else {
		w.u8(legacyPercent)
	}
	w.i32(legacyBound(s.Display.MinPrice))
	w.i32(legacyBound(s.Display.MaxPrice))
	w.u8(s.NextOptID)

	if w.err != nil {
		return nil, w.err
	}
	return w.buf.Bytes(), nil
}

func legacyBound(p *float64) int32 {
	if p == nil || *p <= 0 || *p > math.MaxInt32 {
		return legacyAbsent
	}
	return int32(*p)
}

type legacyReader struct {
	r *bytes.Reader
}

func (r legacyReader) u8() (int, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		return 0, io.ErrUnexpectedEOF
	}
	return int(b), nil
}

func (r legacyReader) i32() (int32, error) {
	var v int32
	if err := binary.Read(r.r, binary.BigEndian, &v); err != nil {
		return 0, io.ErrUnexpectedEOF
	}
	return v, nil
}

func (r legacyReader) text() (string, error) {
	n, err := r.u8()
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return "", io.ErrUnexpectedEOF
	}
	return string(buf), nil
}

func (r legacyReader) number() (float64, error) {
	s, err := r.text()
	if err != nil {
		return 0, err
	}
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("number %q: %w", s, err)
	}
	return d.InexactFloat64(), nil
}

func decodeLegacy(raw []byte) (domain.State, error) {
	r := legacyReader{r: bytes.NewReader(raw)}
	s := domain.DefaultState()

	n, err := r.u8()
	if err != nil {
		return domain.State{}, err
	}
	s.Legs = make([]domain.Leg, 0, n)
	for i := 0; i < n; i++ {
		l, err := decodeLegacyLeg(r)
		if err != nil {
			return domain.State{}, fmt.Errorf("leg %d: %w", i, err)
		}
		s.Legs = append(s.Legs, l)
	}

	if s.Symbol.Ticker, err = r.text(); err != nil {
		return domain.State{}, fmt.Errorf("symbol: %w", err)
	}
	price, err := r.number()
	if err != nil {
		return domain.State{}, fmt.Errorf("price: %w", err)
	}
	if price > 0 {
		s.Symbol.Price = domain.EditField[float64]{Actual: domain.Ptr(price), ToUse: price}
	}
	iv, err := r.number()
	if err != nil {
		return domain.State{}, fmt.Errorf("iv: %w", err)
	}
	for i := range s.Legs {
		s.Legs[i].IV = iv
	}

	profit, err := r.u8()
	if err != nil {
		return domain.State{}, err
	}
	s.Display.Profit = domain.ProfitPercentRisk
	if profit == legacyAbsolute {
		s.Display.Profit = domain.ProfitAbsolute
	}
	for _, bound := range []**float64{&s.Display.MinPrice, &s.Display.MaxPrice} {
		v, err := r.i32()
		if err != nil {
			return domain.State{}, err
		}
		if v > 0 {
			*bound = domain.Ptr(float64(v))
		}
	}

	if s.NextOptID, err = r.u8(); err != nil {
		return domain.State{}, err
	}
	if r.r.Len() != 0 {
		return domain.State{}, fmt.Errorf("%d trailing bytes", r.r.Len())
	}
	return s, nil
}

func decodeLegacyLeg(r legacyReader) (domain.Leg, error) {
	var l domain.Leg
	var err error

	if l.ID, err = r.u8(); err != nil {
		return l, err
	}
	nums := make([]float64, 5)
	for i := range nums {
		if nums[i], err = r.number(); err != nil {
			return l, err
		}
	}
	strike, price, theo, qty, expiry := nums[0], nums[1], nums[2], nums[3], nums[4]

	l.Strike = domain.Fixed(strike)
	l.Price = domain.Fixed(price)
	if theo >= 0 {
		l.TheoreticalPrice = domain.Ptr(theo)
	}
	l.Quantity = domain.Fixed(qty)
	ts := int64(expiry)
	l.Expiry = domain.Fixed(domain.Expiration{
		Timestamp: ts,
		Label:     time.Unix(ts, 0).UTC().Format("2006-01-02"),
	})

	typ, err := r.u8()
	if err != nil {
		return l, err
	}
	l.Type = domain.Call
	if typ == legacyPut {
		l.Type = domain.Put
	}
	sale, err := r.u8()
	if err != nil {
		return l, err
	}
	l.Sale = domain.Sell
	if sale == legacyBuy {
		l.Sale = domain.Buy
	}
	return l, nil
}
