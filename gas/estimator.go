package gas

import (
	"math/big"
	"sync"

	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbengine/types"
)

const (
	// Base cost for transaction
	TxBaseCost uint64 = 21000
	// Flash loan request, callback dispatch, repayment and settlement
	FlashLoanCost uint64 = 120000
)

// hopCost is the approximate gas of one hop per venue, token transfers included
var hopCost = map[types.PlatformID]uint64{
	types.PlatformBancorV2:  180000,
	types.PlatformBancorV3:  160000,
	types.PlatformUniswapV2: 110000,
	types.PlatformUniswapV3: 130000,
	types.PlatformSushiSwap: 110000,
}

const defaultHopCost uint64 = 152000

// Native legs on WETH venues pay for a deposit or withdrawal
const wrapCost uint64 = 30000

// Estimator prices route plans in gas
type Estimator struct {
	logger      *zap.Logger
	mu          sync.RWMutex
	baseFee     *big.Int
	priorityFee *big.Int
}

// NewEstimator creates a new gas estimator with the given fee levels in wei
func NewEstimator(baseFee, priorityFee *big.Int, logger *zap.Logger) *Estimator {
	e := &Estimator{logger: logger}
	e.SetPrices(baseFee, priorityFee)
	return e
}

// SetPrices updates the base and priority fee
func (e *Estimator) SetPrices(baseFee, priorityFee *big.Int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.baseFee = new(big.Int)
	if baseFee != nil {
		e.baseFee.Set(baseFee)
	}
	e.priorityFee = new(big.Int)
	if priorityFee != nil {
		e.priorityFee.Set(priorityFee)
	}
}

// EstimateRoute estimates the gas an execution of routes uses
func (e *Estimator) EstimateRoute(routes []types.TradeRoute) uint64 {
	total := TxBaseCost + FlashLoanCost
	for _, r := range routes {
		cost, ok := hopCost[r.PlatformID]
		if !ok {
			cost = defaultHopCost
		}
		total += cost

		wrapsNative := r.PlatformID == types.PlatformUniswapV2 ||
			r.PlatformID == types.PlatformUniswapV3 ||
			r.PlatformID == types.PlatformSushiSwap
		if wrapsNative && types.IsNative(r.SourceToken) {
			total += wrapCost
		}
		if wrapsNative && types.IsNative(r.TargetToken) {
			total += wrapCost
		}
	}

	e.logger.Debug("Estimated route gas", zap.Int("hops", len(routes)), zap.Uint64("gas", total))
	return total
}

// EstimateGasCost estimates the cost in wei of gasLimit units
func (e *Estimator) EstimateGasCost(gasLimit uint64) *big.Int {
	e.mu.RLock()
	totalGasPrice := new(big.Int).Add(e.baseFee, e.priorityFee)
	e.mu.RUnlock()

	return totalGasPrice.Mul(totalGasPrice, new(big.Int).SetUint64(gasLimit))
}
