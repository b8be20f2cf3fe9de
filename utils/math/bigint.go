package math

import (
	"math/big"
)

// PPMResolution is the denominator of parts-per-million fractions
const PPMResolution = 1_000_000

var ppm = big.NewInt(PPMResolution)

// MulDivF returns floor(x * y / z)
func MulDivF(x, y, z *big.Int) *big.Int {
	if z.Sign() == 0 {
		panic("math: division by zero")
	}
	n := new(big.Int).Mul(x, y)
	return n.Div(n, z)
}

// MulDivC returns ceil(x * y / z)
func MulDivC(x, y, z *big.Int) *big.Int {
	if z.Sign() == 0 {
		panic("math: division by zero")
	}
	n := new(big.Int).Mul(x, y)
	q, r := new(big.Int).QuoRem(n, z, new(big.Int))
	if r.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// ApplyPPM returns floor(amount * portionPPM / 1_000_000)
func ApplyPPM(amount *big.Int, portionPPM uint32) *big.Int {
	return MulDivF(amount, new(big.Int).SetUint64(uint64(portionPPM)), ppm)
}

// DeductPPM returns amount minus its portionPPM share
func DeductPPM(amount *big.Int, portionPPM uint32) *big.Int {
	return new(big.Int).Sub(amount, ApplyPPM(amount, portionPPM))
}

// Min returns the smaller of x and y
func Min(x, y *big.Int) *big.Int {
	if x.Cmp(y) <= 0 {
		return x
	}
	return y
}

// IsPositive returns true if x is non-nil and greater than zero
func IsPositive(x *big.Int) bool {
	return x != nil && x.Sign() > 0
}

// Clone returns a copy of x, treating nil as zero
func Clone(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(x)
}
