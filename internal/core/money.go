// Package core provides money parsing and handling utilities.
//
// Amounts arrive from two places: user input on forms, and gateway rows
// where the value may be a JSON number, a numeric string, or garbage left
// behind by older clients. Both end up as decimal.Decimal.
package core

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// RawAmount is an amount exactly as the gateway delivered it.
type RawAmount string

// UnmarshalJSON accepts a JSON number, a JSON string or null.
func (a *RawAmount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = RawAmount(s)
		return nil
	}
	*a = RawAmount(b)
	return nil
}

// MarshalJSON emits the amount as a JSON number when it parses, otherwise as
// a string so the original text is not lost.
func (a RawAmount) MarshalJSON() ([]byte, error) {
	if d, err := ParseAmount(a); err == nil {
		return []byte(d.String()), nil
	}
	return json.Marshal(string(a))
}

// AmountOf converts a parsed decimal back to its raw form.
func AmountOf(d decimal.Decimal) RawAmount {
	return RawAmount(d.String())
}

// ParseAmount parses a gateway amount. Only plain decimal notation is
// accepted ("150000", "250.5", "1e3" is rejected).
func ParseAmount(raw RawAmount) (decimal.Decimal, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if !isPlainDecimal(s) {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseAmountInput parses an amount typed into a form.
//
// Both dot (250.5) and comma (250,5) decimal separators are accepted when
// only one separator is present. Negative values and empty input are
// rejected; zero is allowed.
//
// Examples:
//
//	ParseAmountInput("150000") -> 150000, nil
//	ParseAmountInput("250,5")  -> 250.5, nil
//	ParseAmountInput("-1")     -> 0, ErrInvalidAmount
func ParseAmountInput(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Contains(s, ",") {
		if strings.Contains(s, ".") {
			return decimal.Zero, ErrInvalidAmount
		}
		s = strings.ReplaceAll(s, ",", ".")
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := ParseAmount(RawAmount(s))
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

func isPlainDecimal(s string) bool {
	if s[0] == '-' || s[0] == '+' {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	dots := 0
	digits := 0
	for _, r := range s {
		switch {
		case r == '.':
			dots++
			if dots > 1 {
				return false
			}
		case unicode.IsDigit(r):
			digits++
		default:
			return false
		}
	}
	return digits > 0
}

// FormatIDR renders an amount the way the dashboard shows rupiah totals:
// "RP 225.000", with up to two fraction digits and Indonesian separators.
// It works on the decimal text so totals of any size stay exact.
func FormatIDR(d decimal.Decimal) string {
	d = d.Round(2)
	intPart, frac, _ := strings.Cut(d.Abs().StringFixed(2), ".")
	frac = strings.TrimRight(frac, "0")

	var b strings.Builder
	b.WriteString("RP ")
	if d.IsNegative() {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte(',')
		b.WriteString(frac)
	}
	return b.String()
}
