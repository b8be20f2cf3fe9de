package flashloan

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Provider defines the interface for flash loan providers
type Provider interface {
	// Address is the account loans are paid from and repaid to
	Address() common.Address
	// FlashLoan transfers params.Amount to the recipient, invokes its
	// callback and fails unless amount plus fee has come back by the time
	// the callback returns.
	FlashLoan(ctx context.Context, params Params) error
	GetFlashLoanFee(ctx context.Context, token common.Address, amount *big.Int) (*big.Int, error)
	GetLiquidity(ctx context.Context, token common.Address) (*big.Int, error)
	String() string
}

// Borrower receives flash loans
type Borrower interface {
	Address() common.Address
	// OnFlashLoan is invoked by the lender after the funds were sent. sender
	// is the lender making the call and initiator the account that asked
	// for the loan.
	OnFlashLoan(ctx context.Context, sender, initiator, token common.Address, amount, fee *big.Int, data []byte) error
}
