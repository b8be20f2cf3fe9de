package bancor

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbengine/chain"
	"github.com/michaelpento.lv/arbengine/dex"
	"github.com/michaelpento.lv/arbengine/flashloan"
	arbmath "github.com/michaelpento.lv/arbengine/utils/math"
)

// Pool is a BNT paired liquidity pool of the V3 network
type Pool struct {
	Token         common.Address
	Address       common.Address
	TradingFeePPM uint32
}

// Network is a Bancor V3 style network. Every pool pairs a token with BNT,
// trades between two non BNT tokens route through BNT, and the network's
// own account acts as the vault flash loans are paid from.
type Network struct {
	address common.Address
	bnt     common.Address
	state   *chain.State
	logger  *zap.Logger

	mu                     sync.RWMutex
	pools                  map[common.Address]*Pool
	flashLoanFees          map[common.Address]uint32
	defaultFlashLoanFeePPM uint32
}

var _ flashloan.Provider = (*Network)(nil)

// NewNetwork creates a network at address trading against bnt
func NewNetwork(state *chain.State, address, bnt common.Address, logger *zap.Logger) *Network {
	return &Network{
		address:       address,
		bnt:           bnt,
		state:         state,
		logger:        logger,
		pools:         make(map[common.Address]*Pool),
		flashLoanFees: make(map[common.Address]uint32),
	}
}

// GetName returns the exchange name
func (n *Network) GetName() string {
	return "BancorV3"
}

func (n *Network) String() string {
	return n.GetName()
}

// Address returns the network account, which also holds the vault
func (n *Network) Address() common.Address {
	return n.address
}

// BNT returns the network's base token
func (n *Network) BNT() common.Address {
	return n.bnt
}

// CreatePool registers a BNT pool for token
func (n *Network) CreatePool(token common.Address, tradingFeePPM uint32) (*Pool, error) {
	if token == n.bnt {
		return nil, fmt.Errorf("cannot create a pool for the base token")
	}
	if tradingFeePPM > arbmath.PPMResolution {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFee, tradingFeePPM)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.pools[token]; ok {
		return nil, fmt.Errorf("%w: %s", ErrPoolExists, token.Hex())
	}
	pool := &Pool{
		Token:         token,
		Address:       holderAddress("bancor.v3.pool", n.address, token),
		TradingFeePPM: tradingFeePPM,
	}
	n.pools[token] = pool
	return pool, nil
}

// GetPool returns the pool of token
func (n *Network) GetPool(token common.Address) (*Pool, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	pool, ok := n.pools[token]
	return pool, ok
}

// AddLiquidity moves token and BNT reserves from provider into the pool of token
func (n *Network) AddLiquidity(ctx context.Context, provider, token common.Address, tokenAmount, bntAmount *big.Int) error {
	pool, ok := n.GetPool(token)
	if !ok {
		return fmt.Errorf("%w: no pool for %s", dex.ErrNoPairForTokens, token.Hex())
	}
	return n.state.Transact(ctx, func(ctx context.Context) error {
		if err := n.state.Transfer(token, provider, pool.Address, tokenAmount); err != nil {
			return fmt.Errorf("failed to deposit %s: %w", token.Hex(), err)
		}
		if err := n.state.Transfer(n.bnt, provider, pool.Address, bntAmount); err != nil {
			return fmt.Errorf("failed to deposit BNT: %w", err)
		}
		return nil
	})
}

// DepositVault moves amount of token from provider into the vault, making it
// available for flash loans
func (n *Network) DepositVault(ctx context.Context, provider, token common.Address, amount *big.Int) error {
	return n.state.Transact(ctx, func(ctx context.Context) error {
		return n.state.Transfer(token, provider, n.address, amount)
	})
}

// SetFlashLoanFee sets the flash loan fee of token
func (n *Network) SetFlashLoanFee(token common.Address, feePPM uint32) error {
	if feePPM > arbmath.PPMResolution {
		return fmt.Errorf("%w: %d", ErrInvalidFee, feePPM)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.flashLoanFees[token] = feePPM
	return nil
}

// SetDefaultFlashLoanFee sets the fee of tokens without an explicit fee
func (n *Network) SetDefaultFlashLoanFee(feePPM uint32) error {
	if feePPM > arbmath.PPMResolution {
		return fmt.Errorf("%w: %d", ErrInvalidFee, feePPM)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.defaultFlashLoanFeePPM = feePPM
	return nil
}

func (n *Network) flashLoanFeePPM(token common.Address) uint32 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if fee, ok := n.flashLoanFees[token]; ok {
		return fee
	}
	return n.defaultFlashLoanFeePPM
}

// GetFlashLoanFee returns the fee charged for borrowing amount of token
func (n *Network) GetFlashLoanFee(ctx context.Context, token common.Address, amount *big.Int) (*big.Int, error) {
	return arbmath.ApplyPPM(amount, n.flashLoanFeePPM(token)), nil
}

// GetLiquidity returns the vault balance available for flash loans
func (n *Network) GetLiquidity(ctx context.Context, token common.Address) (*big.Int, error) {
	return n.state.BalanceOf(token, n.address), nil
}

// FlashLoan lends params.Amount to the recipient and calls it back. The
// whole loan reverts unless the vault ends up with at least its previous
// balance plus the fee.
func (n *Network) FlashLoan(ctx context.Context, params flashloan.Params) error {
	if !arbmath.IsPositive(params.Amount) {
		return flashloan.ErrZeroAmount
	}

	fee, err := n.GetFlashLoanFee(ctx, params.Token, params.Amount)
	if err != nil {
		return err
	}

	borrower := params.Recipient.Address()
	return n.state.Transact(ctx, func(ctx context.Context) error {
		prevBalance := n.state.BalanceOf(params.Token, n.address)
		if prevBalance.Cmp(params.Amount) < 0 {
			return fmt.Errorf("%w: vault holds %s, requested %s", flashloan.ErrInsufficientLiquidity, prevBalance, params.Amount)
		}

		if err := n.state.Transfer(params.Token, n.address, borrower, params.Amount); err != nil {
			return err
		}

		err := params.Recipient.OnFlashLoan(ctx, n.address, params.Initiator, params.Token,
			new(big.Int).Set(params.Amount), new(big.Int).Set(fee), params.Data)
		if err != nil {
			return err
		}

		expected := new(big.Int).Add(prevBalance, fee)
		if n.state.BalanceOf(params.Token, n.address).Cmp(expected) < 0 {
			return ErrInsufficientFlashLoanReturn
		}

		n.state.Emit(FlashLoanCompleted{
			Token:    params.Token,
			Borrower: borrower,
			Amount:   new(big.Int).Set(params.Amount),
			Fee:      fee,
		})
		return nil
	})
}

// TradeOutputBySourceAmount quotes a trade without executing it
func (n *Network) TradeOutputBySourceAmount(source, target common.Address, amount *big.Int) (*big.Int, error) {
	legs, err := n.legs(source, target)
	if err != nil {
		return nil, err
	}

	out := amount
	for _, leg := range legs {
		reserveIn, reserveOut := reserves(n.state, leg.pool.Address, leg.source, leg.target)
		out, _ = targetAmountAndFee(reserveIn, reserveOut, out, leg.pool.TradingFeePPM)
	}
	return out, nil
}

// TradeBySourceAmount sells order.Amount of the source token for the target
// token, routing through BNT when neither side is BNT
func (n *Network) TradeBySourceAmount(ctx context.Context, order dex.Order) (*big.Int, error) {
	if order.Deadline < n.state.BlockTime() {
		return nil, fmt.Errorf("%s: %w", n.GetName(), dex.ErrDeadlineExpired)
	}
	if !arbmath.IsPositive(order.Amount) {
		return nil, fmt.Errorf("%s: zero source amount", n.GetName())
	}

	legs, err := n.legs(order.Source, order.Target)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", n.GetName(), err)
	}

	var amountOut *big.Int
	err = n.state.Transact(ctx, func(ctx context.Context) error {
		amount := order.Amount
		for _, leg := range legs {
			reserveIn, reserveOut := reserves(n.state, leg.pool.Address, leg.source, leg.target)
			out, fee := targetAmountAndFee(reserveIn, reserveOut, amount, leg.pool.TradingFeePPM)
			if out.Sign() == 0 {
				return dex.ErrInsufficientOutput
			}

			if err := n.state.Transfer(leg.source, order.Trader, leg.pool.Address, amount); err != nil {
				return err
			}
			if err := n.state.Transfer(leg.target, leg.pool.Address, order.Trader, out); err != nil {
				return err
			}

			n.state.Emit(TokensTraded{
				Pool:         leg.pool.Address,
				SourceToken:  leg.source,
				TargetToken:  leg.target,
				SourceAmount: new(big.Int).Set(amount),
				TargetAmount: new(big.Int).Set(out),
				TradingFee:   fee,
				Trader:       order.Trader,
			})

			amount = out
		}

		if order.MinReturn != nil && amount.Cmp(order.MinReturn) < 0 {
			return fmt.Errorf("%w: got %s, want at least %s", dex.ErrInsufficientOutput, amount, order.MinReturn)
		}
		amountOut = amount
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", n.GetName(), err)
	}

	n.logger.Debug("Traded on network",
		zap.Stringer("source", order.Source),
		zap.Stringer("target", order.Target),
		zap.Stringer("amountIn", order.Amount),
		zap.Stringer("amountOut", amountOut))

	return amountOut, nil
}

type tradeLeg struct {
	pool   *Pool
	source common.Address
	target common.Address
}

func (n *Network) legs(source, target common.Address) ([]tradeLeg, error) {
	if source == target {
		return nil, fmt.Errorf("%w: %s/%s", dex.ErrNoPairForTokens, source.Hex(), target.Hex())
	}

	pool := func(token common.Address) (*Pool, error) {
		p, ok := n.GetPool(token)
		if !ok {
			return nil, fmt.Errorf("%w: no pool for %s", dex.ErrNoPairForTokens, token.Hex())
		}
		return p, nil
	}

	switch {
	case source == n.bnt:
		p, err := pool(target)
		if err != nil {
			return nil, err
		}
		return []tradeLeg{{pool: p, source: n.bnt, target: target}}, nil
	case target == n.bnt:
		p, err := pool(source)
		if err != nil {
			return nil, err
		}
		return []tradeLeg{{pool: p, source: source, target: n.bnt}}, nil
	default:
		sourcePool, err := pool(source)
		if err != nil {
			return nil, err
		}
		targetPool, err := pool(target)
		if err != nil {
			return nil, err
		}
		return []tradeLeg{
			{pool: sourcePool, source: source, target: n.bnt},
			{pool: targetPool, source: n.bnt, target: target},
		}, nil
	}
}
