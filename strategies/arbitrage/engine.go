package arbitrage

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbengine/chain"
	"github.com/michaelpento.lv/arbengine/dex"
	"github.com/michaelpento.lv/arbengine/flashloan"
	"github.com/michaelpento.lv/arbengine/rewards"
	"github.com/michaelpento.lv/arbengine/types"
	"github.com/michaelpento.lv/arbengine/utils/metrics"
)

// Config holds the engine's identity and initial settings
type Config struct {
	Address   common.Address // account the engine trades from
	Admin     common.Address // the only account allowed to change settings
	BaseToken common.Address // flash loaned token every route starts and ends in
	Rewards   rewards.Config
}

// Engine executes flash loan funded arbitrage routes.
//
// An execution borrows the principal in the base token, trades it through
// every hop of the route in order, repays the loan plus fee and splits what
// is left between the caller and the burn address. Any failure reverts the
// whole execution.
type Engine struct {
	address   common.Address
	admin     common.Address
	baseToken common.Address

	state      *chain.State
	dispatcher *dex.Dispatcher
	loans      *flashloan.FlashLoanManager
	metrics    *metrics.EngineMetrics
	logger     *zap.Logger

	mu      sync.RWMutex
	rewards rewards.Config

	// guards the fields below
	guardMu sync.Mutex
	locked  bool
	pending *pendingLoan
	nonce   uint64
}

// pendingLoan tracks the single flash loan an execution is waiting on
type pendingLoan struct {
	lender    common.Address
	digest    common.Hash
	callbacks int
	hops      []types.HopResult
}

var _ flashloan.Borrower = (*Engine)(nil)

// NewEngine creates an arbitrage engine
func NewEngine(cfg Config, state *chain.State, dispatcher *dex.Dispatcher, loans *flashloan.FlashLoanManager, m *metrics.EngineMetrics, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Rewards.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rewards config: %w", err)
	}
	return &Engine{
		address:    cfg.Address,
		admin:      cfg.Admin,
		baseToken:  cfg.BaseToken,
		state:      state,
		dispatcher: dispatcher,
		loans:      loans,
		metrics:    m,
		logger:     logger,
		rewards:    cfg.Rewards.Clone(),
	}, nil
}

// Address returns the engine's account
func (e *Engine) Address() common.Address {
	return e.address
}

// Rewards returns the active rewards configuration
func (e *Engine) Rewards() rewards.Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rewards.Clone()
}

// SetRewards replaces the rewards configuration. Only the admin may call it,
// and setting the active configuration again does nothing. The change is
// journaled with the ledger, so a reverted outer frame restores the previous
// configuration along with its event.
func (e *Engine) SetRewards(ctx context.Context, sender common.Address, cfg rewards.Config) error {
	if sender != e.admin {
		return fmt.Errorf("%w: %s is not the admin", ErrAccessDenied, sender.Hex())
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	return e.state.Transact(ctx, func(ctx context.Context) error {
		prev := e.Rewards()
		if prev.Equal(cfg) {
			return nil
		}

		e.state.Emit(RewardsConfigUpdated{
			PrevPercentagePPM: prev.PercentagePPM,
			NewPercentagePPM:  cfg.PercentagePPM,
			PrevMaxAmount:     new(big.Int).Set(prev.MaxAmount),
			NewMaxAmount:      new(big.Int).Set(cfg.MaxAmount),
		})
		e.swapRewards(cfg.Clone())
		e.state.OnRevert(func() { e.swapRewards(prev) })
		e.metrics.ConfigUpdates.Inc()

		e.logger.Info("Rewards config updated",
			zap.Uint32("percentagePPM", cfg.PercentagePPM),
			zap.Stringer("maxAmount", cfg.MaxAmount))
		return nil
	})
}

func (e *Engine) swapRewards(cfg rewards.Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rewards = cfg
}

// Execute runs an arbitrage over routes funded by a flash loan of principal.
// caller receives the reward share of the profit.
func (e *Engine) Execute(ctx context.Context, caller common.Address, routes []types.TradeRoute, principal *big.Int) (*ArbitrageExecuted, error) {
	start := time.Now()
	e.metrics.Attempts.Inc()
	defer e.metrics.UpdateSuccessRate()

	var event *ArbitrageExecuted
	err := e.state.Transact(ctx, func(ctx context.Context) error {
		if err := e.enter(); err != nil {
			return err
		}
		defer e.exit()

		ev, err := e.execute(ctx, caller, routes, principal)
		if err != nil {
			return err
		}
		event = ev
		return nil
	})
	if err != nil {
		e.metrics.Failures.WithLabelValues(failureReason(err)).Inc()
		e.logger.Warn("Arbitrage aborted",
			zap.Stringer("caller", caller),
			zap.Int("hops", len(routes)),
			zap.Error(err))
		return nil, err
	}

	e.metrics.Successes.Inc()
	e.metrics.ExecutionTime.Observe(time.Since(start).Seconds())
	e.metrics.RouteLength.Observe(float64(len(routes)))
	e.metrics.ProfitTotal.Add(toFloat(event.TotalProfit))
	e.metrics.RewardsTotal.Add(toFloat(event.CallerReward))
	e.metrics.BurnedTotal.Add(toFloat(event.BurnAmount))

	return event, nil
}

func (e *Engine) execute(ctx context.Context, caller common.Address, routes []types.TradeRoute, principal *big.Int) (*ArbitrageExecuted, error) {
	if _, err := ValidateRoutes(routes, e.baseToken, principal); err != nil {
		return nil, err
	}

	provider, err := e.loans.SelectProvider(ctx, e.baseToken, principal)
	if err != nil {
		return nil, fmt.Errorf("failed to select flash loan provider: %w", err)
	}

	e.guardMu.Lock()
	e.nonce++
	nonce := e.nonce
	e.guardMu.Unlock()

	data, err := encodeContext(flashLoanContext{
		Caller:    caller,
		Principal: principal,
		Nonce:     nonce,
		Routes:    routes,
	})
	if err != nil {
		return nil, err
	}

	loan := &pendingLoan{
		lender: provider.Address(),
		digest: crypto.Keccak256Hash(data),
	}
	e.setPending(loan)
	defer e.setPending(nil)

	balanceBefore := e.state.BalanceOf(e.baseToken, e.address)

	fee, err := e.loans.ExecuteFlashLoan(ctx, provider, flashloan.Params{
		Token:     e.baseToken,
		Amount:    principal,
		Initiator: e.address,
		Recipient: e,
		Data:      data,
	})
	if err != nil {
		return nil, err
	}
	if loan.callbacks != 1 {
		return nil, ErrCallbackNotInvoked
	}

	profit := new(big.Int).Sub(e.state.BalanceOf(e.baseToken, e.address), balanceBefore)
	reward, burn, err := rewards.Apply(profit, e.Rewards())
	if err != nil {
		return nil, fmt.Errorf("failed to split profit %s: %w", profit, err)
	}

	if err := e.state.Transfer(e.baseToken, e.address, caller, reward); err != nil {
		return nil, fmt.Errorf("failed to pay caller reward: %w", err)
	}
	if err := e.state.Transfer(e.baseToken, e.address, chain.BurnAddress, burn); err != nil {
		return nil, fmt.Errorf("failed to burn: %w", err)
	}

	event := &ArbitrageExecuted{
		Caller:       caller,
		SourceToken:  routes[0].SourceToken,
		TargetToken:  routes[len(routes)-1].TargetToken,
		Principal:    new(big.Int).Set(principal),
		FlashLoanFee: fee,
		TotalProfit:  profit,
		CallerReward: reward,
		BurnAmount:   burn,
		Hops:         loan.hops,
	}
	e.state.Emit(*event)

	e.logger.Info("Arbitrage executed",
		zap.Stringer("caller", caller),
		zap.Stringer("principal", principal),
		zap.Stringer("fee", fee),
		zap.Stringer("profit", profit),
		zap.Stringer("reward", reward),
		zap.Stringer("burn", burn))

	return event, nil
}

// OnFlashLoan runs the route carried in data with the borrowed funds and
// repays the lender. Only the lender of the loan the engine is currently
// waiting on may call it, and only once.
func (e *Engine) OnFlashLoan(ctx context.Context, sender, initiator, token common.Address, amount, fee *big.Int, data []byte) error {
	return e.state.Transact(ctx, func(ctx context.Context) error {
		loan, err := e.claim(sender, initiator, token, data)
		if err != nil {
			return err
		}

		lc, err := decodeContext(data)
		if err != nil {
			return err
		}
		if lc.Principal.Cmp(amount) != 0 {
			return fmt.Errorf("%w: loan amount %s does not match principal %s", ErrUnauthorizedCallback, amount, lc.Principal)
		}
		swaps, err := decodeSwaps(lc.Routes)
		if err != nil {
			return err
		}

		sourceAmount := new(big.Int).Set(amount)
		hops := make([]types.HopResult, 0, len(lc.Routes))
		for i, route := range lc.Routes {
			received, err := e.trade(ctx, route, swaps[i], sourceAmount)
			if err != nil {
				return fmt.Errorf("hop %d (%s): %w", i, route.PlatformID, err)
			}
			hops = append(hops, types.HopResult{
				PlatformID:   route.PlatformID,
				SourceToken:  route.SourceToken,
				TargetToken:  route.TargetToken,
				SourceAmount: sourceAmount,
				TargetAmount: received,
			})
			sourceAmount = received
		}

		repayment := new(big.Int).Add(amount, fee)
		if err := e.state.Transfer(token, e.address, sender, repayment); err != nil {
			return fmt.Errorf("failed to repay flash loan: %w", err)
		}

		loan.hops = hops
		return nil
	})
}

// trade executes a single hop and returns the amount of the target token the
// engine actually received
func (e *Engine) trade(ctx context.Context, route types.TradeRoute, swap dex.Swap, amount *big.Int) (*big.Int, error) {
	start := time.Now()
	defer func() {
		e.metrics.HopLatency.WithLabelValues(route.PlatformID.String()).Observe(time.Since(start).Seconds())
	}()

	sourceBefore := e.state.BalanceOf(route.SourceToken, e.address)
	targetBefore := e.state.BalanceOf(route.TargetToken, e.address)

	_, err := e.dispatcher.Swap(ctx, swap, dex.Order{
		Trader:    e.address,
		Source:    route.SourceToken,
		Target:    route.TargetToken,
		Amount:    amount,
		MinReturn: route.MinTargetAmount,
		Deadline:  route.Deadline,
	})
	if err != nil {
		return nil, err
	}

	received, err := e.received(route, amount, sourceBefore, targetBefore)
	if err != nil {
		return nil, err
	}
	if received.Sign() <= 0 {
		return nil, dex.ErrZeroOutput
	}
	if route.MinTargetAmount != nil && route.MinTargetAmount.Sign() > 0 && received.Cmp(route.MinTargetAmount) < 0 {
		return nil, fmt.Errorf("%w: received %s, want at least %s", ErrMinReturnNotReached, received, route.MinTargetAmount)
	}

	e.logger.Debug("Hop executed",
		zap.String("platform", route.PlatformID.String()),
		zap.Stringer("source", route.SourceToken),
		zap.Stringer("target", route.TargetToken),
		zap.Stringer("amountIn", amount),
		zap.Stringer("amountOut", received))

	return received, nil
}

// received returns the gross amount of the target token a hop paid out. When
// a hop starts and ends in the same token the balance delta is net of what
// was spent, so the spent input is added back.
func (e *Engine) received(route types.TradeRoute, amount, sourceBefore, targetBefore *big.Int) (*big.Int, error) {
	targetDelta := new(big.Int).Sub(e.state.BalanceOf(route.TargetToken, e.address), targetBefore)
	if route.SourceToken != route.TargetToken {
		spent := new(big.Int).Sub(sourceBefore, e.state.BalanceOf(route.SourceToken, e.address))
		if spent.Cmp(amount) > 0 {
			return nil, fmt.Errorf("%w: spent %s of %s", ErrOverspent, spent, amount)
		}
		return targetDelta, nil
	}
	return targetDelta.Add(targetDelta, amount), nil
}

// claim checks the callback against the loan in flight. The sender is
// checked before anything in the payload.
func (e *Engine) claim(sender, initiator, token common.Address, data []byte) (*pendingLoan, error) {
	e.guardMu.Lock()
	defer e.guardMu.Unlock()

	loan := e.pending
	if loan == nil || sender != loan.lender {
		return nil, fmt.Errorf("%w: sender %s", ErrUnauthorizedCallback, sender.Hex())
	}
	if initiator != e.address || token != e.baseToken || crypto.Keccak256Hash(data) != loan.digest {
		return nil, fmt.Errorf("%w: context mismatch", ErrUnauthorizedCallback)
	}
	if loan.callbacks > 0 {
		return nil, ErrReentrantCall
	}
	loan.callbacks++
	return loan, nil
}

func (e *Engine) enter() error {
	e.guardMu.Lock()
	defer e.guardMu.Unlock()
	if e.locked {
		return ErrReentrantCall
	}
	e.locked = true
	return nil
}

func (e *Engine) exit() {
	e.guardMu.Lock()
	defer e.guardMu.Unlock()
	e.locked = false
}

func (e *Engine) setPending(loan *pendingLoan) {
	e.guardMu.Lock()
	defer e.guardMu.Unlock()
	e.pending = loan
}

func toFloat(x *big.Int) float64 {
	f, _ := new(big.Float).SetInt(x).Float64()
	return f
}
