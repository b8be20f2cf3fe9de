package flashloan

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrNoProvider            = errors.New("no flash loan provider available")
	ErrInsufficientLiquidity = errors.New("insufficient flash loan liquidity")
	ErrRateLimited           = errors.New("flash loan rate limit exceeded")
	ErrZeroAmount            = errors.New("flash loan amount must be positive")
)

// Params contains parameters for executing a flash loan
type Params struct {
	Token     common.Address // Token to borrow
	Amount    *big.Int       // Amount to borrow
	Initiator common.Address // Account requesting the loan
	Recipient Borrower       // Receives the funds and the callback
	Data      []byte         // Passed through to the callback untouched
}

// ProviderConfig contains configuration for flash loan providers
type ProviderConfig struct {
	RateLimit float64 `json:"rate_limit"` // loans per second, 0 disables limiting
	Burst     int     `json:"burst"`
}
