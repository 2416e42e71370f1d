package book

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/optionscalc/internal/domain"
)

var numberPattern = regexp.MustCompile(`^([0-9]+\.?[0-9]*|\.[0-9]+)$`)

// parseNumber accepts plain non-negative decimals only.
func parseNumber(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	if !numberPattern.MatchString(text) {
		return 0, false
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// LabelLayout is the display form of an expiration date.
const LabelLayout = "2006-01-02"

// ExpirationAt builds an expiration descriptor for t.
func ExpirationAt(t time.Time) domain.Expiration {
	return domain.Expiration{Timestamp: t.Unix(), Label: t.UTC().Format(LabelLayout)}
}

// invalidExpiry is what an unknown expiry label resolves to.
var invalidExpiry = domain.Expiration{Label: "0-0-0"}

const (
	msgInvalidExpiry   = "Invalid expiration date for this option"
	msgInvalidStrike   = "Invalid strike price for this option"
	msgChainMiss       = "Invalid strike/expiration for this option"
	msgPriceNotNumber  = "Price must be a number"
	msgStrikeNotNumber = "Strike must be a number"
	msgQtyNotNumber    = "Quantity must be a number"
)

// parseInto feeds user text into a numeric field. Invalid text flags the
// field and drops the parsed value so the field falls back to its market
// value or 0.
func parseInto(f *domain.EditField[float64], msg string) {
	if f.User == nil {
		f.LastParsed = nil
		f.Error = ""
		return
	}
	v, ok := parseNumber(*f.User)
	if !ok {
		f.LastParsed = nil
		f.Error = msg
		return
	}
	f.LastParsed = domain.Ptr(v)
	f.Error = ""
}
