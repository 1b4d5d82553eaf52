// Package core holds the Spentee domain: ledger record types, money and
// date primitives, and the derived summary shapes. All monetary arithmetic
// is in integer minor units to keep sums exact.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Money is an amount in minor currency units (cents/paise).
type Money struct {
	Cents int64 `json:"cents"`
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns m + o.
func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

// Sub returns m - o. The result may be negative (balances can be).
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// Mul returns m scaled by an integer factor.
func (m Money) Mul(n int64) Money { return Money{Cents: m.Cents * n} }

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool { return m.Cents == 0 }

// String renders the amount as a plain decimal, e.g. "1234.50" or "-2.05".
func (m Money) String() string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := fmt.Sprintf("%d.%02d", cents/100, cents%100)
	if neg {
		return "-" + s
	}
	return s
}

// ParseAmount converts a decimal string to Money with half-up rounding on
// the third decimal place. Both dot and comma separators are accepted.
// Negative amounts are rejected; zero is allowed (down payments may be 0).
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return Money{}, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return Money{}, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return Money{}, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	const maxSafe = (1<<63 - 1) / 100
	if iv > maxSafe {
		return Money{}, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	return Money{Cents: iv*100 + fracCents}, nil
}
