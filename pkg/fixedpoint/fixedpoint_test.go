package fixedpoint

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRescaleRoundTrip(t *testing.T) {
	pairs := [][2]uint8{{6, 18}, {8, 18}, {18, 18}, {0, 6}, {6, 36}}
	x := big.NewInt(123456789)
	for _, p := range pairs {
		up := Rescale(x, p[0], p[1])
		back := Rescale(up, p[1], p[0])
		assert.Equal(t, x, back, "round trip %d -> %d", p[0], p[1])
	}
	// scaling down first loses the sub-unit digits
	down := Rescale(big.NewInt(1999), 3, 0)
	assert.Equal(t, big.NewInt(1), down)
}

func TestRescaleTruncatesTowardZero(t *testing.T) {
	assert.Equal(t, big.NewInt(-1), Rescale(big.NewInt(-1999), 3, 0))
	assert.Equal(t, big.NewInt(0), Rescale(big.NewInt(999), 3, 0))
}

func TestRescaleDoesNotMutate(t *testing.T) {
	x := big.NewInt(42)
	_ = Rescale(x, 6, 18)
	assert.Equal(t, big.NewInt(42), x)
	assert.Nil(t, Rescale(nil, 6, 18))
}

func TestRatio(t *testing.T) {
	r, err := Ratio(big.NewInt(1), big.NewInt(4))
	require.Nil(t, err)
	assert.Equal(t, "250000000000000000", r.String())

	_, err = Ratio(big.NewInt(1), big.NewInt(0))
	assert.ErrorIs(t, err, ErrDivisionByZero)
	_, err = Ratio(big.NewInt(1), nil)
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestMulDiv(t *testing.T) {
	// 1000 * 50 / 100, exact partial percentage math
	v, err := MulDiv(big.NewInt(1000), big.NewInt(50), big.NewInt(100))
	require.Nil(t, err)
	assert.Equal(t, big.NewInt(500), v)

	// intermediate product exceeds 64 bits
	x := new(big.Int).Mul(big.NewInt(1e18), big.NewInt(1e9))
	v, err = MulDiv(x, big.NewInt(3), big.NewInt(3))
	require.Nil(t, err)
	assert.Equal(t, x, v)

	_, err = MulDiv(big.NewInt(1), big.NewInt(1), big.NewInt(0))
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestFromDecimalString(t *testing.T) {
	v, err := FromDecimalString("1.0234", WorkingDecimals)
	require.Nil(t, err)
	assert.Equal(t, "1023400000000000000", v.String())

	v, err = FromDecimalString("0.5", 6)
	require.Nil(t, err)
	assert.Equal(t, big.NewInt(500000), v)

	// digits beyond the precision truncate, they never round up
	v, err = FromDecimalString("1.9999999", 6)
	require.Nil(t, err)
	assert.Equal(t, big.NewInt(1999999), v)

	_, err = FromDecimalString("not-a-number", 6)
	assert.NotNil(t, err)
}
