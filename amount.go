package ledgercore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Amount is a signed fixed-point decimal with a per-value precision.
// Precision is fixed once a value is constructed and is preserved by
// Add/Sub (promoted to the larger of the two operands'); Mul/Div require
// an explicit result precision because the natural product precision is
// the sum of the operands'.
type Amount struct {
	value     decimal.Decimal
	precision uint8
}

// MaxPrecision is the highest precision an Amount can carry.
const MaxPrecision = 6

// NewAmount builds an Amount from an integer numerator and denominator-power
// of ten, i.e. value = base * 10^-precision. This is the inverse of
// Amount.Storeable.
func NewAmount(base int64, precision uint8) Amount {
	return Amount{value: decimal.New(base, -int32(precision)), precision: precision}
}

// AmountFromFloat rounds a float64 to precision using round-half-to-nearest-
// even
func AmountFromFloat(f float64, precision uint8) Amount {
	d := decimal.NewFromFloat(f).RoundBank(int32(precision))
	return Amount{value: d, precision: precision}
}

// AmountFromDecimal preserves a decimal.Decimal's value at the requested
// precision, rounding bankers'-style if narrowing.
func AmountFromDecimal(d decimal.Decimal, precision uint8) Amount {
	return Amount{value: d.RoundBank(int32(precision)), precision: precision}
}

// ZeroAmount returns the additive identity at the given precision.
func ZeroAmount(precision uint8) Amount { return Amount{value: decimal.Zero, precision: precision} }

func maxPrecision(a, b uint8) uint8 {
	if a > b {
		return a
	}
	return b
}

// Precision returns the value's fixed precision.
func (a Amount) Precision() uint8 { return a.precision }

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool { return a.value.IsZero() }

// Sign returns -1, 0 or 1.
func (a Amount) Sign() int { return a.value.Sign() }

func (a Amount) IsPositive() bool { return a.value.IsPositive() }
func (a Amount) IsNegative() bool { return a.value.IsNegative() }

// Neg returns -a.
func (a Amount) Neg() Amount { return Amount{value: a.value.Neg(), precision: a.precision} }

// Add promotes to the greater of the two operands' precision.
func (a Amount) Add(b Amount) Amount {
	p := maxPrecision(a.precision, b.precision)
	return Amount{value: a.value.Add(b.value), precision: p}
}

// Sub promotes to the greater of the two operands' precision.
func (a Amount) Sub(b Amount) Amount {
	p := maxPrecision(a.precision, b.precision)
	return Amount{value: a.value.Sub(b.value), precision: p}
}

// Mul multiplies and rounds the result to resultPrecision.
func (a Amount) Mul(b Amount, resultPrecision uint8) Amount {
	return AmountFromDecimal(a.value.Mul(b.value), resultPrecision)
}

// MulInt scales by an integer factor without changing precision.
func (a Amount) MulInt(n int64) Amount {
	return Amount{value: a.value.Mul(decimal.NewFromInt(n)), precision: a.precision}
}

// MulFrac scales by a rational new/old, as used by stock splits and
// proportional lot reductions. Result keeps the receiver's precision.
func (a Amount) MulFrac(newN, oldN int64) Amount {
	if oldN == 0 {
		return a
	}
	d := a.value.Mul(decimal.NewFromInt(newN)).Div(decimal.NewFromInt(oldN))
	return AmountFromDecimal(d, a.precision)
}

// Div divides and rounds the result to resultPrecision.
func (a Amount) Div(b Amount, resultPrecision uint8) Amount {
	return AmountFromDecimal(a.value.DivRound(b.value, int32(resultPrecision)+2), resultPrecision)
}

// Cmp returns -1, 0, 1 comparing the numeric value regardless of precision.
func (a Amount) Cmp(b Amount) int { return a.value.Cmp(b.value) }

func (a Amount) Equal(b Amount) bool { return a.value.Equal(b.value) }
func (a Amount) LessThan(b Amount) bool { return a.value.LessThan(b.value) }
func (a Amount) GreaterThan(b Amount) bool { return a.value.GreaterThan(b.value) }

// Abs returns the absolute value, keeping precision.
func (a Amount) Abs() Amount { return Amount{value: a.value.Abs(), precision: a.precision} }

// Float64 is an inexact escape hatch for display/rate computation only.
func (a Amount) Float64() float64 { f, _ := a.value.Float64(); return f }

// String renders the decimal value at its fixed precision, e.g. "12.50".
func (a Amount) String() string { return a.value.StringFixed(int32(a.precision)) }

// CurrencyString renders the value using go-money's symbol/format for
// cur.
func (a Amount) CurrencyString(cur string) string {
	c := *money.New(0, cur).Currency()
	shifted := a.value.Shift(int32(c.Fraction))
	return c.Formatter().Format(shifted.IntPart())
}

// ParseAmount parses a decimal literal like "12.50" at the given precision.
func ParseAmount(s string, precision uint8) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Amount{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return Amount{value: d.RoundBank(int32(precision)), precision: precision}, nil
}

// Storeable renders the persisted form "base/precision"
func (a Amount) Storeable() string {
	base := a.value.Shift(int32(a.precision)).Round(0).IntPart()
	return fmt.Sprintf("%d/%d", base, a.precision)
}

// AmountFromStoreable parses the "base/precision" persisted form.
func AmountFromStoreable(s string) (Amount, error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return Amount{}, fmt.Errorf("invalid storeable amount %q", s)
	}
	base, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid storeable amount %q: %w", s, err)
	}
	precision, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid storeable amount %q: %w", s, err)
	}
	return NewAmount(base, uint8(precision)), nil
}

// MarshalJSON implements json.Marshaler, reusing the persisted form.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(a.Storeable())), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return err
	}
	parsed, err := AmountFromStoreable(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// currencyPrecision looks up the default fractional digits of a currency
// code via go-money.
func currencyPrecision(code string) uint8 {
	c := *money.New(0, code).Currency()
	return uint8(c.Fraction)
}
