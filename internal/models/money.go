package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a currency value. Arithmetic goes through decimal so repeated
// cart mutations never accumulate floating-point drift, and JSON keeps the
// plain-number shape the orders API and the cart mirror expect.
type Amount struct {
	decimal.Decimal
}

func NewAmount(value string) (Amount, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return Amount{d}, nil
}

// MustAmount is for literals in tests and fixtures.
func MustAmount(value string) Amount {
	a, err := NewAmount(value)
	if err != nil {
		panic(err)
	}
	return a
}

func AmountFromFloat(value float64) Amount {
	return Amount{decimal.NewFromFloat(value)}
}

func ZeroAmount() Amount {
	return Amount{decimal.Zero}
}

func (a Amount) Add(b Amount) Amount {
	return Amount{a.Decimal.Add(b.Decimal)}
}

func (a Amount) MulInt(n int) Amount {
	return Amount{a.Decimal.Mul(decimal.NewFromInt(int64(n)))}
}

func (a Amount) Equal(b Amount) bool {
	return a.Decimal.Equal(b.Decimal)
}

func (a Amount) IsNegative() bool {
	return a.Decimal.IsNegative()
}

// String renders with exactly two decimal places for currency display.
func (a Amount) String() string {
	return a.Decimal.StringFixed(2)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.StringFixed(2)), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		a.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", s, err)
	}
	a.Decimal = d
	return nil
}
