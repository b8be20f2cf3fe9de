package math

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMulDiv(t *testing.T) {
	assert.Equal(t, big.NewInt(3), MulDivF(big.NewInt(10), big.NewInt(1), big.NewInt(3)))
	assert.Equal(t, big.NewInt(4), MulDivC(big.NewInt(10), big.NewInt(1), big.NewInt(3)))
	assert.Equal(t, big.NewInt(5), MulDivC(big.NewInt(10), big.NewInt(1), big.NewInt(2)))

	assert.Panics(t, func() { MulDivF(big.NewInt(1), big.NewInt(1), big.NewInt(0)) })
}

func TestApplyPPM(t *testing.T) {
	// 3% of 48 is 1.44
	assert.Equal(t, big.NewInt(1), ApplyPPM(big.NewInt(48), 30_000))
	assert.Equal(t, big.NewInt(47), DeductPPM(big.NewInt(48), 30_000))
	assert.Equal(t, big.NewInt(48), ApplyPPM(big.NewInt(48), PPMResolution))
	assert.Zero(t, ApplyPPM(big.NewInt(48), 0).Sign())
}

func TestHelpers(t *testing.T) {
	a, b := big.NewInt(1), big.NewInt(2)
	assert.Same(t, a, Min(a, b))
	assert.Same(t, a, Min(b, a))

	assert.True(t, IsPositive(b))
	assert.False(t, IsPositive(nil))
	assert.False(t, IsPositive(big.NewInt(0)))

	c := Clone(a)
	c.SetInt64(9)
	assert.Equal(t, int64(1), a.Int64())
	assert.Equal(t, int64(0), Clone(nil).Int64())
}
