// Package money holds the rounding rules shared by everything that touches
// currency amounts.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// Places is the number of minor-unit digits kept on emitted amounts.
	Places = 2

	// internalPlaces is the precision kept on intermediate per-person shares
	// so that rounding happens once, on the final amount.
	internalPlaces = 10
)

const (
	// maxExponent bounds the exponent accepted from callers. Anything larger
	// cannot be below MaxAmount with a sane coefficient.
	maxExponent = 12
)

var (
	// Epsilon is the tolerance for conservation checks: one minor unit.
	Epsilon = decimal.New(1, -Places)

	// MaxAmount is the exclusive upper bound on the magnitude of an amount.
	MaxAmount = decimal.New(1, 12)

	// ErrInvalidAmount is returned by Validate.
	ErrInvalidAmount = errors.New("amount is not a valid currency value")
)

// Round rounds an amount half away from zero to minor-unit precision.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Split divides amount evenly into n shares at internal precision.
// n must be positive.
func Split(amount decimal.Decimal, n int) decimal.Decimal {
	return amount.DivRound(decimal.NewFromInt(int64(n)), internalPlaces)
}

// WithinEpsilon reports whether |d| is no more than one minor unit.
func WithinEpsilon(d decimal.Decimal) bool {
	return d.Abs().LessThanOrEqual(Epsilon)
}

// Sum adds a list of amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	if len(amounts) == 0 {
		return decimal.Zero
	}
	return decimal.Sum(amounts[0], amounts[1:]...)
}

// Parse reads a decimal amount from its string form.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// Validate checks that d has the shape of a currency amount: at most Places
// fractional digits and a magnitude below MaxAmount. The exponent is checked
// before any arithmetic so oversized inputs are rejected without rescaling.
func Validate(d decimal.Decimal) error {
	exp := d.Exponent()
	if exp < -Places {
		return fmt.Errorf("%w: more than %d decimal places", ErrInvalidAmount, Places)
	}
	if exp > maxExponent || !d.Abs().LessThan(MaxAmount) {
		return fmt.Errorf("%w: magnitude must be below %s", ErrInvalidAmount, MaxAmount)
	}
	return nil
}
