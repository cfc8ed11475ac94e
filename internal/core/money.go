// Package core provides money parsing and handling utilities.
//
// Amounts coming from the backend are decoded leniently: anything that is not
// a number (or a numeric string) becomes NaN instead of failing the decode, so
// a single bad row never hides the rest of the dashboard. Amounts typed into
// forms are parsed strictly with decimal arithmetic.
package core

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a backend-supplied monetary value in Birr.
type Amount struct {
	value float64
	set   bool
}

// AmountOf wraps a known value.
func AmountOf(v float64) Amount {
	return Amount{value: v, set: true}
}

// Float returns the value, NaN when the field was missing or malformed.
func (a Amount) Float() float64 {
	if !a.set {
		return math.NaN()
	}
	return a.value
}

// Valid reports whether the amount holds a finite number.
func (a Amount) Valid() bool {
	return a.set && !math.IsNaN(a.value) && !math.IsInf(a.value, 0)
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*a = Amount{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*a = AmountOf(f)
		}
		return nil
	}
	if f, err := strconv.ParseFloat(string(data), 64); err == nil {
		*a = AmountOf(f)
	}
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid() {
		return []byte("null"), nil
	}
	return []byte(FormatNumber(a.value)), nil
}

// String renders the value the way a browser would print a number.
func (a Amount) String() string {
	return FormatNumber(a.Float())
}

// FormatNumber prints the shortest representation of f, with NaN and
// infinities spelled out.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	if f == 0 {
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// TruncInt truncates toward zero, mapping NaN and infinities to 0.
func TruncInt(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(f)
}

// FormatBirr renders an amount with the currency suffix used across the UI.
func FormatBirr(f float64) string {
	return FormatNumber(f) + " Birr"
}

// ParseAmount parses a non-negative decimal typed into a form. It accepts both
// dot and comma separators.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// SaleTotal is games × price, rounded to cents.
func SaleTotal(games int, price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(games))).Round(2)
}
