package simulator

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbengine/chain"
	"github.com/michaelpento.lv/arbengine/gas"
	"github.com/michaelpento.lv/arbengine/strategies/arbitrage"
	"github.com/michaelpento.lv/arbengine/types"
)

// SimulationResult represents the result of a dry-run execution
type SimulationResult struct {
	Success  bool
	Event    *arbitrage.ArbitrageExecuted
	GasLimit uint64
	GasCost  *big.Int
	Error    error
}

// Simulator dry-runs arbitrage executions against the current ledger
type Simulator struct {
	state  *chain.State
	engine *arbitrage.Engine
	gas    *gas.Estimator
	logger *zap.Logger
}

// NewSimulator creates a new execution simulator
func NewSimulator(state *chain.State, engine *arbitrage.Engine, estimator *gas.Estimator, logger *zap.Logger) *Simulator {
	return &Simulator{
		state:  state,
		engine: engine,
		gas:    estimator,
		logger: logger,
	}
}

// Simulate runs a full execution and reverts it, reporting what would have
// happened. A failing execution is reported in the result, not as an error.
func (s *Simulator) Simulate(ctx context.Context, caller common.Address, routes []types.TradeRoute, principal *big.Int) (*SimulationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	gasLimit := s.gas.EstimateRoute(routes)
	result := &SimulationResult{
		GasLimit: gasLimit,
		GasCost:  s.gas.EstimateGasCost(gasLimit),
	}

	err := s.state.Call(ctx, func(ctx context.Context) error {
		event, err := s.engine.Execute(ctx, caller, routes, principal)
		if err != nil {
			return err
		}
		result.Event = event
		return nil
	})
	if err != nil {
		s.logger.Debug("Simulation failed",
			zap.Stringer("caller", caller),
			zap.Int("hops", len(routes)),
			zap.Error(err))
		result.Event = nil
		result.Error = err
		return result, nil
	}

	result.Success = true
	s.logger.Debug("Simulation succeeded",
		zap.Stringer("caller", caller),
		zap.Stringer("profit", result.Event.TotalProfit),
		zap.Uint64("gas", gasLimit))

	return result, nil
}
