package arbitrage

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/michaelpento.lv/arbengine/types"
)

// ArbitrageExecuted is emitted once per settled execution
type ArbitrageExecuted struct {
	Caller       common.Address
	SourceToken  common.Address
	TargetToken  common.Address
	Principal    *big.Int
	FlashLoanFee *big.Int
	TotalProfit  *big.Int
	CallerReward *big.Int
	BurnAmount   *big.Int
	Hops         []types.HopResult
}

func (ArbitrageExecuted) EventName() string { return "ArbitrageExecuted" }

// RewardsConfigUpdated is emitted when the rewards configuration changes
type RewardsConfigUpdated struct {
	PrevPercentagePPM uint32
	NewPercentagePPM  uint32
	PrevMaxAmount     *big.Int
	NewMaxAmount      *big.Int
}

func (RewardsConfigUpdated) EventName() string { return "RewardsConfigUpdated" }
