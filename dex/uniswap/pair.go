package uniswap

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/michaelpento.lv/arbengine/chain"
	"github.com/michaelpento.lv/arbengine/dex"
)

// Pair is a constant product pool. Its reserves are whatever the ledger says
// the pool address holds of each token.
type Pair struct {
	Address common.Address
	Token0  common.Address
	Token1  common.Address
	Fee     uint32
}

// GetReserves returns the reserves of the pair ordered as (tokenIn, tokenOut)
func (p *Pair) GetReserves(state *chain.State, tokenIn common.Address) (*big.Int, *big.Int) {
	reserve0 := state.BalanceOf(p.Token0, p.Address)
	reserve1 := state.BalanceOf(p.Token1, p.Address)
	if tokenIn == p.Token0 {
		return reserve0, reserve1
	}
	return reserve1, reserve0
}

// Other returns the token on the opposite side of the pair
func (p *Pair) Other(token common.Address) common.Address {
	if token == p.Token0 {
		return p.Token1
	}
	return p.Token0
}

// GetAmountOut quotes an exact input trade against the current reserves
func (p *Pair) GetAmountOut(state *chain.State, tokenIn common.Address, amountIn *big.Int) *big.Int {
	reserveIn, reserveOut := p.GetReserves(state, tokenIn)
	return dex.GetAmountOut(amountIn, reserveIn, reserveOut, p.Fee)
}

// pairFor calculates the CREATE2 address of a V2 pair
func pairFor(factory common.Address, initCode []byte, tokenA, tokenB common.Address) common.Address {
	token0, token1 := dex.SortTokens(tokenA, tokenB)

	salt := crypto.Keccak256(token0.Bytes(), token1.Bytes())
	return common.BytesToAddress(crypto.Keccak256([]byte{
		0xff,
	}, factory.Bytes(), salt, initCode))
}

// poolFor calculates the CREATE2 address of a V3 pool, salted with the
// abi encoded (token0, token1, fee)
func poolFor(factory common.Address, initCode []byte, tokenA, tokenB common.Address, fee uint32) common.Address {
	token0, token1 := dex.SortTokens(tokenA, tokenB)

	salt := crypto.Keccak256(
		common.LeftPadBytes(token0.Bytes(), 32),
		common.LeftPadBytes(token1.Bytes(), 32),
		common.LeftPadBytes(big.NewInt(int64(fee)).Bytes(), 32),
	)
	return common.BytesToAddress(crypto.Keccak256([]byte{
		0xff,
	}, factory.Bytes(), salt, initCode))
}
