package money

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DecimalConfig defines fixed-point precision.
type DecimalConfig struct {
	DecimalPrecision int   // Number of decimal places
	Scale            int64 // 10^DecimalPrecision
}

// AmountConfig is the single precision used for all ledger amounts.
// Balances, makeup, profit, reserves and withdrawals are currency values
// recorded to the cent.
var AmountConfig = DecimalConfig{DecimalPrecision: 2, Scale: 100}

// Amount is a fixed-point currency value in cents. All ledger arithmetic is
// additive, so plain int64 addition and subtraction are exact.
type Amount int64

// FromUnits builds an Amount from whole currency units (e.g. FromUnits(1000)
// is 1000.00).
func FromUnits(units int64) Amount {
	return Amount(units * AmountConfig.Scale)
}

// Parse converts a decimal string ("125.50", "-3", "0.05") into an Amount.
// More fractional digits than the configured precision are rejected rather
// than silently rounded; amounts on the wire are exact snapshot values.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("parse amount: empty string")
	}

	negative := false
	switch s[0] {
	case '-':
		negative = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	if intPart == "" && fracPart == "" {
		return 0, fmt.Errorf("parse amount: %q is not a number", s)
	}
	if len(fracPart) > AmountConfig.DecimalPrecision {
		return 0, fmt.Errorf("parse amount: %q exceeds %d decimal places", s, AmountConfig.DecimalPrecision)
	}

	// ParseUint rejects embedded signs, so "--1", "-+1" and "1.-5" fail here
	// instead of sneaking through as misparsed amounts.
	units := uint64(0)
	if intPart != "" {
		v, err := strconv.ParseUint(intPart, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse amount: %q: %w", s, err)
		}
		units = v
	}

	// Right-pad the fraction to full precision ("5" -> "50").
	for len(fracPart) < AmountConfig.DecimalPrecision {
		fracPart += "0"
	}
	frac := uint64(0)
	if fracPart != "" {
		v, err := strconv.ParseUint(fracPart, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse amount: %q: %w", s, err)
		}
		frac = v
	}

	scale := uint64(AmountConfig.Scale)
	if units > (math.MaxInt64-frac)/scale {
		return 0, fmt.Errorf("parse amount: %q overflows", s)
	}
	total := int64(units*scale + frac)
	if negative {
		total = -total
	}
	return Amount(total), nil
}

// String formats the amount as a decimal string with full precision.
func (a Amount) String() string {
	v := int64(a)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%0*d", sign, v/AmountConfig.Scale, AmountConfig.DecimalPrecision, v%AmountConfig.Scale)
}

// IsPositive reports whether the amount is strictly greater than zero.
func (a Amount) IsPositive() bool {
	return a > 0
}

// Max returns the larger of a and b.
func Max(a, b Amount) Amount {
	if a > b {
		return a
	}
	return b
}
