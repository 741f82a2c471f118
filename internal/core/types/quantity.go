package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Quantity is a whole number of stock units.
//
// Batches and sales are counted in pieces, so there is no fractional part.
// JSON stays a plain number; strings holding an integer are accepted too.
type Quantity int64

// MaxQuantity bounds a single batch, sale or top-up.
const MaxQuantity Quantity = 1_000_000_000

func (q Quantity) Int64() int64 { return int64(q) }

func (q Quantity) IsZero() bool { return q == 0 }

func (q Quantity) IsPositive() bool { return q > 0 }

func (q Quantity) IsNegative() bool { return q < 0 }

// Min returns the smaller of q and other.
func (q Quantity) Min(other Quantity) Quantity {
	if other < q {
		return other
	}
	return q
}

// Add returns q + other, clamped to the int64 range.
func (q Quantity) Add(other Quantity) Quantity {
	sum := q + other
	switch {
	case other > 0 && sum < q:
		return math.MaxInt64
	case other < 0 && sum > q:
		return math.MinInt64
	}
	return sum
}

func (q Quantity) String() string {
	return strconv.FormatInt(int64(q), 10)
}

// UnmarshalJSON accepts either a JSON number or a string holding an integer.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*q = 0
		return nil
	}

	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}

	parsed, err := ParseQuantity(string(data))
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

// ParseQuantity parses a whole-unit quantity. "4" and "4.0" are accepted,
// "4.5" is rejected.
func ParseQuantity(s string) (Quantity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty quantity")
	}

	if intPart, frac, ok := strings.Cut(s, "."); ok {
		if strings.Trim(frac, "0") != "" {
			return 0, fmt.Errorf("quantity %q is not a whole number", s)
		}
		s = intPart
	}

	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse quantity: %w", err)
	}
	return Quantity(v), nil
}
