package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbengine/chain"
	"github.com/michaelpento.lv/arbengine/types"
)

// Venues holds the venue implementations a Dispatcher routes to. A nil
// entry means the venue is not available.
type Venues struct {
	BancorV2  LegacyConverter
	BancorV3  NetworkTrader
	UniswapV2 ConstantProductRouter
	UniswapV3 ConcentratedLiquidityRouter
	SushiSwap ConstantProductRouter
}

// Dispatcher executes a single hop on the venue selected by its Swap variant
type Dispatcher struct {
	state  *chain.State
	weth   common.Address
	venues Venues
	logger *zap.Logger
}

// NewDispatcher creates a new venue dispatcher. weth is the wrapped native
// token used by venues that cannot hold the native asset.
func NewDispatcher(state *chain.State, weth common.Address, venues Venues, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		state:  state,
		weth:   weth,
		venues: venues,
		logger: logger,
	}
}

// Swap executes order on the venue chosen by swap and returns the amount the
// venue reports as received. The hop is atomic: if it fails nothing it did
// remains.
func (d *Dispatcher) Swap(ctx context.Context, swap Swap, order Order) (*big.Int, error) {
	var amountOut *big.Int
	err := d.state.Transact(ctx, func(ctx context.Context) error {
		out, err := d.dispatch(ctx, swap, order)
		if err != nil {
			return err
		}
		amountOut = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return amountOut, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, swap Swap, order Order) (*big.Int, error) {
	switch s := swap.(type) {
	case NativeNetworkSwap:
		if d.venues.BancorV3 == nil {
			return nil, d.unavailable(s)
		}
		return d.venues.BancorV3.TradeBySourceAmount(ctx, order)

	case LegacyMultiHopSwap:
		if d.venues.BancorV2 == nil {
			return nil, d.unavailable(s)
		}
		return d.venues.BancorV2.ConvertByPath(ctx, s.Path(order.Source, order.Target), order)

	case ConstantProductSwap:
		var router ConstantProductRouter
		switch s.Exchange {
		case types.PlatformUniswapV2:
			router = d.venues.UniswapV2
		case types.PlatformSushiSwap:
			router = d.venues.SushiSwap
		}
		if router == nil {
			return nil, d.unavailable(s)
		}
		return d.withWrapping(order, func(o Order) (*big.Int, error) {
			return router.SwapExactTokensForTokens(ctx, o)
		})

	case ConcentratedLiquiditySwap:
		if d.venues.UniswapV3 == nil {
			return nil, d.unavailable(s)
		}
		return d.withWrapping(order, func(o Order) (*big.Int, error) {
			return d.venues.UniswapV3.ExactInputSingle(ctx, o, s.Fee)
		})

	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidExchangeID, swap)
	}
}

// withWrapping runs swap with native legs replaced by the wrapped token,
// wrapping the input before and unwrapping the output after
func (d *Dispatcher) withWrapping(order Order, swap func(Order) (*big.Int, error)) (*big.Int, error) {
	o := order
	if types.IsNative(o.Source) {
		if err := d.state.Wrap(types.NativeToken, d.weth, o.Trader, o.Amount); err != nil {
			return nil, err
		}
		o.Source = d.weth
	}

	unwrap := types.IsNative(o.Target)
	if unwrap {
		o.Target = d.weth
	}

	amountOut, err := swap(o)
	if err != nil {
		return nil, err
	}

	if unwrap {
		if err := d.state.Unwrap(types.NativeToken, d.weth, o.Trader, amountOut); err != nil {
			return nil, err
		}
		d.logger.Debug("Unwrapped native output",
			zap.Stringer("trader", o.Trader),
			zap.Stringer("amount", amountOut))
	}

	return amountOut, nil
}

func (d *Dispatcher) unavailable(s Swap) error {
	return fmt.Errorf("%w: %s is not configured", ErrInvalidExchangeID, s.Platform())
}
