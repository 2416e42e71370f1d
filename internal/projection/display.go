package projection

import (
	"fmt"
	"math"
	"strconv"

	"github.com/alanyoungcy/optionscalc/internal/domain"
)

// Float is a float64 that encodes NaN and infinities as JSON null.
type Float float64

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

// PercentOfMaxRisk expresses profit relative to the largest loss. It is NaN
// or infinite when maxRisk is 0.
func PercentOfMaxRisk(profit, maxRisk float64) float64 {
	return profit / -maxRisk * 100
}

// MaxGainsPercent is the best case relative to the worst case.
func MaxGainsPercent(r Result) float64 {
	return r.MaxProfit / -r.MaxRisk * 100
}

// PriceChangePercent is how far a projected price is from the underlying.
func PriceChangePercent(projected, underlying float64) float64 {
	return (projected - underlying) / underlying * 100
}

// Color is an RGBA background for a cell.
type Color struct {
	R, G, B int
	A       float64
}

func (c Color) String() string {
	return fmt.Sprintf("rgba(%d,%d, %d, %s)", c.R, c.G, c.B, strconv.FormatFloat(c.A, 'f', -1, 64))
}

const (
	alphaBase  = 0.1
	alphaSlope = 0.7
)

// Gradient shades losses red and gains green, scaled against the extremes.
func Gradient(maxRisk, maxProfit, profit float64) Color {
	var c Color
	switch {
	case profit < 0:
		c.R = 200
		c.A = profit/maxRisk*alphaSlope + alphaBase
	case profit > 0:
		c.G = 200
		c.A = profit/maxProfit*alphaSlope + alphaBase
	}
	return c
}

// ViewCell is a cell decorated for rendering.
type ViewCell struct {
	Profit  float64 `json:"profit"`
	Price   float64 `json:"price"`
	Percent Float   `json:"percentOfMaxRisk"`
	Color   string  `json:"color"`
}

// View is a Result decorated with rendering values.
type View struct {
	Prices        []float64    `json:"prices"`
	PriceChange   []Float      `json:"priceChangePercent"`
	Days          []float64    `json:"days"`
	Cells         [][]ViewCell `json:"cells"`
	Mode          string       `json:"mode"`
	MaxRisk       float64      `json:"maxRisk"`
	MaxProfit     float64      `json:"maxProfit"`
	MaxGains      Float        `json:"maxGainsPercent"`
	EntryCost     float64      `json:"entryCost"`
	EntryIsCredit bool         `json:"entryIsCredit"`
}

// Render decorates r for the given underlying price and display mode.
func Render(r Result, underlying float64, mode domain.ProfitDisplay) View {
	v := View{
		Prices:        r.Prices,
		Days:          r.Days,
		Mode:          string(mode),
		MaxRisk:       r.MaxRisk,
		MaxProfit:     r.MaxProfit,
		MaxGains:      Float(MaxGainsPercent(r)),
		EntryCost:     r.EntryCost,
		EntryIsCredit: r.EntryCost > 0,
	}
	v.PriceChange = make([]Float, len(r.Prices))
	for i, p := range r.Prices {
		v.PriceChange[i] = Float(PriceChangePercent(p, underlying))
	}
	v.Cells = make([][]ViewCell, len(r.Cells))
	for i, row := range r.Cells {
		out := make([]ViewCell, len(row))
		for j, c := range row {
			out[j] = ViewCell{
				Profit:  c.Profit,
				Price:   c.Price,
				Percent: Float(PercentOfMaxRisk(c.Profit, r.MaxRisk)),
				Color:   Gradient(r.MaxRisk, r.MaxProfit, c.Profit).String(),
			}
		}
		v.Cells[i] = out
	}
	return v
}
