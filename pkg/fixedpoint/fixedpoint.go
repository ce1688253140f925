package fixedpoint

import (
	"math/big"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// WorkingDecimals is the precision every cross-token computation is carried at.
// Prices, valuations and ratios are all expressed at this scale before they are
// combined, so two working-precision integers can be multiplied and shifted back
// down without tracking per-operand scales.
const WorkingDecimals = uint8(18)

var ErrDivisionByZero = errors.New("fixedpoint: division by zero")

// Pow10 returns 10^n.
func Pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// Rescale shifts x from one decimal precision to another. Scaling up pads
// zeros, scaling down truncates toward zero. The argument is never mutated;
// a nil amount stays nil.
func Rescale(x *big.Int, from, to uint8) *big.Int {
	if x == nil {
		return nil
	}
	switch {
	case from == to:
		return new(big.Int).Set(x)
	case to > from:
		return new(big.Int).Mul(x, Pow10(to-from))
	default:
		return new(big.Int).Quo(new(big.Int).Set(x), Pow10(from-to))
	}
}

// Ratio returns num/den scaled to WorkingDecimals, truncating toward zero.
// A zero denominator is an undefined metric, not a crash.
func Ratio(num, den *big.Int) (*big.Int, error) {
	return MulDiv(num, Pow10(WorkingDecimals), den)
}

// MulDiv returns (x*y)/den at full intermediate precision, truncating toward
// zero on the final division.
func MulDiv(x, y, den *big.Int) (*big.Int, error) {
	if den == nil || den.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	return new(big.Int).Quo(new(big.Int).Mul(x, y), den), nil
}

// FromDecimalString converts a decimal string ("1.0234") to an integer amount
// at the given precision, truncating digits beyond it. This is the only place
// decimal text from an external source becomes an on-chain style integer.
func FromDecimalString(s string, decimals uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, errors.Wrapf(err, "parse decimal %q", s)
	}
	return d.Shift(int32(decimals)).BigInt(), nil
}
