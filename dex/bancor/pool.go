package bancor

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/michaelpento.lv/arbengine/chain"
	arbmath "github.com/michaelpento.lv/arbengine/utils/math"
)

// Mainnet deployments
var (
	MainnetNetwork       = common.HexToAddress("0xeEF417e1D5CC832e619ae18D2F140De2999dD4fB")
	MainnetLegacyNetwork = common.HexToAddress("0x2F9EC37d6CcFFf1caB21733BdaDEdE11c823cCB0")
	BNT                  = common.HexToAddress("0x1F573D6Fb3F13d689FF844B4cE37794d79a7FF1C")
)

var (
	ErrPoolExists                  = errors.New("pool already exists")
	ErrInvalidFee                  = errors.New("fee must not exceed 100%")
	ErrInsufficientFlashLoanReturn = errors.New("insufficient flash loan return")
)

// holderAddress derives the account a pool or converter keeps its reserves in
func holderAddress(kind string, owner common.Address, tokens ...common.Address) common.Address {
	data := [][]byte{[]byte(kind), owner.Bytes()}
	for _, t := range tokens {
		data = append(data, t.Bytes())
	}
	return common.BytesToAddress(crypto.Keccak256(data...))
}

// targetAmountAndFee prices an exact source trade against two reserves. The
// trading fee is taken from the target amount and stays in the pool.
func targetAmountAndFee(sourceBalance, targetBalance, amount *big.Int, feePPM uint32) (*big.Int, *big.Int) {
	if sourceBalance.Sign() <= 0 || targetBalance.Sign() <= 0 || amount.Sign() <= 0 {
		return big.NewInt(0), big.NewInt(0)
	}
	target := arbmath.MulDivF(targetBalance, amount, new(big.Int).Add(sourceBalance, amount))
	fee := arbmath.ApplyPPM(target, feePPM)
	return target.Sub(target, fee), fee
}

// reserves returns the balances holder keeps of source and target
func reserves(state *chain.State, holder, source, target common.Address) (*big.Int, *big.Int) {
	return state.BalanceOf(source, holder), state.BalanceOf(target, holder)
}
