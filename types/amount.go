package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math/big"
)

// Amount represents a non-negative quantity of an asset in its smallest
// indivisible unit. All arithmetic is integer-only over arbitrary precision
// values, so token amounts larger than 64 bits are handled exactly.
//
// The zero value is a valid zero amount.
type Amount struct {
	i *big.Int
}

// NewAmount creates an Amount from an int64 value.
func NewAmount(v int64) Amount {
	return Amount{i: big.NewInt(v)}
}

// AmountFromBig creates an Amount from a big.Int, copying the value.
// A nil input yields a zero Amount.
func AmountFromBig(v *big.Int) Amount {
	if v == nil {
		return Amount{}
	}
	return Amount{i: new(big.Int).Set(v)}
}

// ParseAmount parses a base-10 string into an Amount.
func ParseAmount(s string) (Amount, error) {
	if s == "" {
		return Amount{}, nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, fmt.Errorf("types: parse amount %q: not a base-10 integer", s)
	}
	return Amount{i: v}, nil
}

// ZeroAmount returns a zero Amount.
func ZeroAmount() Amount { return Amount{} }

func (a Amount) value() *big.Int {
	if a.i == nil {
		return new(big.Int)
	}
	return a.i
}

// BigInt returns a copy of the underlying big.Int value.
func (a Amount) BigInt() *big.Int {
	return new(big.Int).Set(a.value())
}

// Int64 returns the amount as an int64. Only valid for amounts that fit.
func (a Amount) Int64() int64 { return a.value().Int64() }

// Arithmetic operations. Each returns a fresh Amount; operands are never
// mutated.

// Add returns a + other.
func (a Amount) Add(other Amount) Amount {
	return Amount{i: new(big.Int).Add(a.value(), other.value())}
}

// Subtract returns a - other.
func (a Amount) Subtract(other Amount) Amount {
	return Amount{i: new(big.Int).Sub(a.value(), other.value())}
}

// Comparison methods

// Cmp compares a and other, returning -1, 0 or +1.
func (a Amount) Cmp(other Amount) int {
	return a.value().Cmp(other.value())
}

// IsZero returns true if the amount is zero.
func (a Amount) IsZero() bool { return a.value().Sign() == 0 }

// IsPositive returns true if the amount is greater than zero.
func (a Amount) IsPositive() bool { return a.value().Sign() > 0 }

// IsNegative returns true if the amount is less than zero. A well-formed
// escrow balance is never negative; this exists for invariant checks.
func (a Amount) IsNegative() bool { return a.value().Sign() < 0 }

// Equal returns true if both amounts are equal.
func (a Amount) Equal(other Amount) bool { return a.Cmp(other) == 0 }

// LessThan returns true if a < other.
func (a Amount) LessThan(other Amount) bool { return a.Cmp(other) < 0 }

// GreaterThan returns true if a > other.
func (a Amount) GreaterThan(other Amount) bool { return a.Cmp(other) > 0 }

// String returns the base-10 representation.
func (a Amount) String() string { return a.value().String() }

// MarshalJSON encodes the amount as a base-10 JSON string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes a base-10 JSON string or number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Tolerate bare JSON numbers.
		s = string(data)
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value implements driver.Valuer, storing the amount as TEXT.
func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

// Scan implements sql.Scanner.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = Amount{}
		return nil
	case string:
		parsed, err := ParseAmount(v)
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	case []byte:
		parsed, err := ParseAmount(string(v))
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	case int64:
		*a = NewAmount(v)
		return nil
	default:
		return fmt.Errorf("types: cannot scan %T into Amount", src)
	}
}
