package dex

import (
	"math/big"

	"github.com/cespare/xxhash/v2"
	"github.com/ethereum/go-ethereum/common"
)

// SortTokens returns the pair in canonical order
func SortTokens(tokenA, tokenB common.Address) (common.Address, common.Address) {
	if tokenA.Cmp(tokenB) > 0 {
		return tokenB, tokenA
	}
	return tokenA, tokenB
}

// PairKey returns an order independent index key for a token pair and an
// optional fee tier
func PairKey(tokenA, tokenB common.Address, fee uint32) uint64 {
	token0, token1 := SortTokens(tokenA, tokenB)

	var buf [2*common.AddressLength + 4]byte
	copy(buf[:], token0.Bytes())
	copy(buf[common.AddressLength:], token1.Bytes())
	buf[40] = byte(fee >> 24)
	buf[41] = byte(fee >> 16)
	buf[42] = byte(fee >> 8)
	buf[43] = byte(fee)

	return xxhash.Sum64(buf[:])
}

// GetAmountOut prices an exact input against constant product reserves,
// charging feePPM of the input
func GetAmountOut(amountIn, reserveIn, reserveOut *big.Int, feePPM uint32) *big.Int {
	if amountIn.Sign() <= 0 || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return big.NewInt(0)
	}

	amountInWithFee := new(big.Int).Mul(amountIn, big.NewInt(int64(1_000_000-feePPM)))
	numerator := new(big.Int).Mul(amountInWithFee, reserveOut)
	denominator := new(big.Int).Add(new(big.Int).Mul(reserveIn, big.NewInt(1_000_000)), amountInWithFee)

	return numerator.Div(numerator, denominator)
}
