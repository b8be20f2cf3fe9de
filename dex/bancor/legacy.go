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
	arbmath "github.com/michaelpento.lv/arbengine/utils/math"
)

// Converter is a legacy two reserve converter with equal reserve weights
type Converter struct {
	Address          common.Address
	Token0           common.Address
	Token1           common.Address
	ConversionFeePPM uint32
}

// LegacyNetwork is a Bancor V2 style network of standalone converters.
// Conversions walk a token path one converter at a time and carry no
// deadline.
type LegacyNetwork struct {
	address common.Address
	state   *chain.State
	logger  *zap.Logger

	mu         sync.RWMutex
	converters map[uint64]*Converter
}

// NewLegacyNetwork creates an empty legacy network
func NewLegacyNetwork(state *chain.State, address common.Address, logger *zap.Logger) *LegacyNetwork {
	return &LegacyNetwork{
		address:    address,
		state:      state,
		logger:     logger,
		converters: make(map[uint64]*Converter),
	}
}

// GetName returns the exchange name
func (l *LegacyNetwork) GetName() string {
	return "BancorV2"
}

// AddConverter registers a converter between two tokens
func (l *LegacyNetwork) AddConverter(tokenA, tokenB common.Address, conversionFeePPM uint32) (*Converter, error) {
	if tokenA == tokenB {
		return nil, fmt.Errorf("converter reserves must differ")
	}
	if conversionFeePPM > arbmath.PPMResolution {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFee, conversionFeePPM)
	}

	key := dex.PairKey(tokenA, tokenB, 0)

	l.mu.Lock()
	defer l.mu.Unlock()

	if c, ok := l.converters[key]; ok {
		return nil, fmt.Errorf("%w: %s", ErrPoolExists, c.Address.Hex())
	}
	token0, token1 := dex.SortTokens(tokenA, tokenB)
	c := &Converter{
		Address:          holderAddress("bancor.v2.converter", l.address, token0, token1),
		Token0:           token0,
		Token1:           token1,
		ConversionFeePPM: conversionFeePPM,
	}
	l.converters[key] = c
	return c, nil
}

// GetConverter returns the converter between two tokens
func (l *LegacyNetwork) GetConverter(tokenA, tokenB common.Address) (*Converter, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.converters[dex.PairKey(tokenA, tokenB, 0)]
	return c, ok
}

// AddLiquidity moves reserves from provider into the converter of two tokens
func (l *LegacyNetwork) AddLiquidity(ctx context.Context, provider, tokenA, tokenB common.Address, amountA, amountB *big.Int) error {
	c, ok := l.GetConverter(tokenA, tokenB)
	if !ok {
		return fmt.Errorf("%w: %s/%s", dex.ErrNoPairForTokens, tokenA.Hex(), tokenB.Hex())
	}
	return l.state.Transact(ctx, func(ctx context.Context) error {
		if err := l.state.Transfer(tokenA, provider, c.Address, amountA); err != nil {
			return fmt.Errorf("failed to deposit %s: %w", tokenA.Hex(), err)
		}
		if err := l.state.Transfer(tokenB, provider, c.Address, amountB); err != nil {
			return fmt.Errorf("failed to deposit %s: %w", tokenB.Hex(), err)
		}
		return nil
	})
}

// RateByPath quotes a conversion along path without executing it
func (l *LegacyNetwork) RateByPath(path []common.Address, amount *big.Int) (*big.Int, error) {
	converters, err := l.resolve(path)
	if err != nil {
		return nil, err
	}
	out := amount
	for i, c := range converters {
		reserveIn, reserveOut := reserves(l.state, c.Address, path[i], path[i+1])
		out, _ = targetAmountAndFee(reserveIn, reserveOut, out, c.ConversionFeePPM)
	}
	return out, nil
}

// ConvertByPath converts order.Amount along path. The order's deadline is
// not checked; legacy converters have none.
func (l *LegacyNetwork) ConvertByPath(ctx context.Context, path []common.Address, order dex.Order) (*big.Int, error) {
	if !arbmath.IsPositive(order.Amount) {
		return nil, fmt.Errorf("%s: zero source amount", l.GetName())
	}

	converters, err := l.resolve(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.GetName(), err)
	}

	var amountOut *big.Int
	err = l.state.Transact(ctx, func(ctx context.Context) error {
		amount := order.Amount
		for i, c := range converters {
			source, target := path[i], path[i+1]
			reserveIn, reserveOut := reserves(l.state, c.Address, source, target)
			out, _ := targetAmountAndFee(reserveIn, reserveOut, amount, c.ConversionFeePPM)
			if out.Sign() == 0 {
				return dex.ErrInsufficientOutput
			}

			if err := l.state.Transfer(source, order.Trader, c.Address, amount); err != nil {
				return err
			}
			if err := l.state.Transfer(target, c.Address, order.Trader, out); err != nil {
				return err
			}

			l.state.Emit(Conversion{
				Converter:    c.Address,
				SourceToken:  source,
				TargetToken:  target,
				SourceAmount: new(big.Int).Set(amount),
				TargetAmount: new(big.Int).Set(out),
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
		return nil, fmt.Errorf("%s: %w", l.GetName(), err)
	}

	l.logger.Debug("Converted by path",
		zap.Int("steps", len(converters)),
		zap.Stringer("amountIn", order.Amount),
		zap.Stringer("amountOut", amountOut))

	return amountOut, nil
}

func (l *LegacyNetwork) resolve(path []common.Address) ([]*Converter, error) {
	if len(path) < 2 {
		return nil, fmt.Errorf("invalid path length %d", len(path))
	}
	converters := make([]*Converter, 0, len(path)-1)
	for i := 0; i < len(path)-1; i++ {
		c, ok := l.GetConverter(path[i], path[i+1])
		if !ok {
			return nil, fmt.Errorf("%w: %s/%s", dex.ErrNoPairForTokens, path[i].Hex(), path[i+1].Hex())
		}
		converters = append(converters, c)
	}
	return converters, nil
}
