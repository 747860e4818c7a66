// Package currency provides an exact fixed-point money type.
//
// Amounts are stored as integer micro-dollars (one millionth of a dollar) so
// that sums of many line items never drift. Equality is fuzzy: two amounts are
// equal when they differ by less than Epsilon micro-dollars, which absorbs the
// rounding introduced by division and multiplication chains.
//
// Example usage:
//
//	price, err := currency.Parse("$1,234.50")
//	total := price.Mul(3).Add(shipping)
//	fmt.Println(total) // $3703.50
package currency

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// Epsilon is the largest difference (exclusive) treated as equal.
	Epsilon MicroUSD = 50

	// Cent is one US cent in micro-dollars.
	Cent MicroUSD = 10000

	// Dollar is one US dollar in micro-dollars.
	Dollar MicroUSD = 1000000

	// dollarEps biases float rounding so that x.xx5 values round up.
	dollarEps = 0.0001

	// displayNegativeThreshold: anything at or above half a cent below zero
	// renders without a sign.
	displayNegativeThreshold MicroUSD = -5000
)

// MicroUSD is an amount of US dollars in millionths of a dollar.
type MicroUSD int64

// Zero is the zero amount.
const Zero MicroUSD = 0

var microsPerDollar = decimal.NewFromInt(int64(Dollar))

// FormatError is returned when a string cannot be parsed as a dollar amount.
type FormatError struct {
	Input string
	Err   error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid currency amount %q: %v", e.Input, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Parse converts strings like "$1,234.56", "-$5.00", "'12.30'" or "7" into
// micro-dollars. An empty (or whitespace-only) string is zero.
func Parse(s string) (MicroUSD, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.ReplaceAll(cleaned, "'", "")
	if cleaned == "" {
		return Zero, nil
	}

	negate := false
	if strings.HasPrefix(cleaned, "-") {
		negate = true
		cleaned = cleaned[1:]
	}
	cleaned = strings.TrimPrefix(cleaned, "$")

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return Zero, &FormatError{Input: s, Err: err}
	}
	if negate {
		d = d.Neg()
	}
	return FromDecimal(d), nil
}

// MustParse is like Parse but panics on malformed input. Intended for tests
// and constants.
func MustParse(s string) MicroUSD {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// FromDecimal rounds a decimal dollar amount to the nearest micro-dollar.
func FromDecimal(d decimal.Decimal) MicroUSD {
	return MicroUSD(d.Mul(microsPerDollar).Round(0).IntPart())
}

// FromFloat rounds a float dollar amount to the nearest micro-dollar.
func FromFloat(f float64) MicroUSD {
	return MicroUSD(math.Round(f * float64(Dollar)))
}

// FromCents builds an amount from a whole number of cents.
func FromCents(cents int64) MicroUSD {
	return MicroUSD(cents) * Cent
}

// Decimal returns the exact dollar value.
func (m MicroUSD) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -6)
}

// ToFloat returns the amount in dollars rounded to two decimal places.
func (m MicroUSD) ToFloat() float64 {
	return roundUSD(float64(m) / float64(Dollar))
}

func (m MicroUSD) Add(o MicroUSD) MicroUSD { return m + o }
func (m MicroUSD) Sub(o MicroUSD) MicroUSD { return m - o }
func (m MicroUSD) Neg() MicroUSD           { return -m }
func (m MicroUSD) Mul(n int64) MicroUSD    { return m * MicroUSD(n) }

// Div divides by n, truncating toward zero.
func (m MicroUSD) Div(n int64) MicroUSD {
	return m / MicroUSD(n)
}

func (m MicroUSD) Abs() MicroUSD {
	if m < 0 {
		return -m
	}
	return m
}

// IsZero reports whether the amount is fuzzy-equal to zero.
func (m MicroUSD) IsZero() bool {
	return m.Equal(Zero)
}

// Equal reports whether two amounts differ by less than Epsilon.
func (m MicroUSD) Equal(o MicroUSD) bool {
	return (m - o).Abs() < Epsilon
}

// RoundToCent rounds to the nearest cent. Rounding a cent-aligned amount
// returns it unchanged.
func (m MicroUSD) RoundToCent() MicroUSD {
	return FromFloat(m.ToFloat())
}

// String renders the amount as "$X.XX" or "-$X.XX". Rounding happens before
// the sign is dropped, so half cents round up for credits and toward zero
// for debits.
func (m MicroUSD) String() string {
	sign := ""
	if m < displayNegativeThreshold {
		sign = "-"
	}
	return fmt.Sprintf("%s$%.2f", sign, math.Abs(m.ToFloat()))
}

// MarshalJSON encodes the exact dollar value as a JSON number.
func (m MicroUSD) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted dollar string.
func (m *MicroUSD) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = Zero
		return nil
	}
	s := string(bytes.Trim(data, `"`))
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Sum adds all amounts.
func Sum(amounts ...MicroUSD) MicroUSD {
	var total MicroUSD
	for _, a := range amounts {
		total += a
	}
	return total
}

func roundUSD(f float64) float64 {
	return math.Round((f+dollarEps)*100) / 100
}
