package bancor

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TokensTraded is emitted for every pool leg a trade passes through
type TokensTraded struct {
	Pool         common.Address
	SourceToken  common.Address
	TargetToken  common.Address
	SourceAmount *big.Int
	TargetAmount *big.Int
	TradingFee   *big.Int
	Trader       common.Address
}

func (TokensTraded) EventName() string { return "TokensTraded" }

// FlashLoanCompleted is emitted once a flash loan has been repaid
type FlashLoanCompleted struct {
	Token    common.Address
	Borrower common.Address
	Amount   *big.Int
	Fee      *big.Int
}

func (FlashLoanCompleted) EventName() string { return "FlashLoanCompleted" }

// Conversion is emitted by legacy converters
type Conversion struct {
	Converter    common.Address
	SourceToken  common.Address
	TargetToken  common.Address
	SourceAmount *big.Int
	TargetAmount *big.Int
	Trader       common.Address
}

func (Conversion) EventName() string { return "Conversion" }
