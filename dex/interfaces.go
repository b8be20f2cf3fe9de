package dex

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInvalidExchangeID  = errors.New("invalid exchange id")
	ErrNoPairForTokens    = errors.New("no pair for tokens")
	ErrInsufficientOutput = errors.New("insufficient output amount")
	ErrDeadlineExpired    = errors.New("deadline expired")
	ErrZeroOutput         = errors.New("zero output amount")
	ErrInvalidFeeTier     = errors.New("invalid fee tier")
)

// Order is a single-hop exact-input trade request
type Order struct {
	Trader    common.Address
	Source    common.Address
	Target    common.Address
	Amount    *big.Int
	MinReturn *big.Int
	Deadline  uint64
}

// ConstantProductRouter swaps through a Uniswap V2 style pair
type ConstantProductRouter interface {
	GetName() string
	SwapExactTokensForTokens(ctx context.Context, order Order) (*big.Int, error)
}

// ConcentratedLiquidityRouter swaps through a single Uniswap V3 style pool
type ConcentratedLiquidityRouter interface {
	GetName() string
	ExactInputSingle(ctx context.Context, order Order, fee uint32) (*big.Int, error)
}

// LegacyConverter converts along a Bancor V2 style path of tokens
type LegacyConverter interface {
	GetName() string
	ConvertByPath(ctx context.Context, path []common.Address, order Order) (*big.Int, error)
}

// NetworkTrader trades by source amount on a Bancor V3 style network
type NetworkTrader interface {
	GetName() string
	TradeBySourceAmount(ctx context.Context, order Order) (*big.Int, error)
}
