// Package fixmath implements fixed point arithmetic with an 10^18
// denominator, as used for streaming fee percentages and basket component
// units. All products are computed in full precision before dividing and
// division truncates toward zero. Any result that cannot be represented
// within 256 bits fails with an overflow error.
package fixmath

import (
	"math/big"

	"cosmossdk.io/math"
	"github.com/iov-one/weave/errors"
)

// SecondsPerYear is the number of seconds in a Julian year (365.25 days).
// Streaming fee percentages are annualized against it.
const SecondsPerYear int64 = 31557600

var (
	// One is the fixed point representation of 1 (100%).
	One = math.NewIntWithDecimal(1, 18)

	// YearSeconds is SecondsPerYear as a fixed point operand.
	YearSeconds = math.NewInt(SecondsPerYear)
)

// MulDiv returns a*b/div. The intermediate product is computed in full
// precision, so it cannot overflow even when a*b exceeds 256 bits. The
// division truncates toward zero.
func MulDiv(a, b, div math.Int) (math.Int, error) {
	if div.IsNil() || div.IsZero() {
		return math.Int{}, errors.Wrap(errors.ErrInput, "division by zero")
	}
	product := new(big.Int).Mul(a.BigInt(), b.BigInt())
	res := product.Quo(product, div.BigInt())
	if res.BitLen() > math.MaxBitLen {
		return math.Int{}, errors.Wrap(errors.ErrOverflow, "result out of range")
	}
	return math.NewIntFromBigInt(res), nil
}

// PreciseMul returns a*b scaled back by One.
func PreciseMul(a, b math.Int) (math.Int, error) {
	return MulDiv(a, b, One)
}

// PreciseDiv returns a/b scaled up by One before the division, preserving
// 18 decimals of the quotient.
func PreciseDiv(a, b math.Int) (math.Int, error) {
	return MulDiv(a, One, b)
}

// NonNegative ensures a signed value can be used where an unsigned ratio is
// expected.
func NonNegative(i math.Int) (math.Int, error) {
	if i.IsNil() {
		return math.Int{}, errors.Wrap(errors.ErrInput, "nil value")
	}
	if i.IsNegative() {
		return math.Int{}, errors.Wrap(errors.ErrOverflow, "negative value")
	}
	return i, nil
}

// MustInt parses a base 10 integer literal. It is intended for constants in
// genesis fixtures and tests and panics on malformed input.
func MustInt(s string) math.Int {
	i, ok := math.NewIntFromString(s)
	if !ok {
		panic("invalid integer: " + s)
	}
	return i
}
