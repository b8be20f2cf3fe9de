package uniswap

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbengine/chain"
	"github.com/michaelpento.lv/arbengine/dex"
)

var (
	V3Factory  = common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984")
	V3InitCode = common.FromHex("0xe34f199b19b2b4f47f68442619d555527d244f78a3297ea89325f843f87b8b54")
)

// Fee tiers enabled on the V3 factory
const (
	FeeLowest = 100
	FeeLow    = 500
	FeeMedium = 3000
	FeeHigh   = 10000
)

// V3Pool trades a single fee tier of a token pair. Liquidity is treated as
// one full range position, so quotes follow the constant product curve over
// the pool's balances with the tier's fee taken from the input.
type V3Pool = Pair

// UniswapV3 is a single pool exact input router
type UniswapV3 struct {
	state  *chain.State
	logger *zap.Logger

	mu    sync.RWMutex
	pools map[uint64]*V3Pool
}

// NewUniswapV3 creates an empty V3 router
func NewUniswapV3(state *chain.State, logger *zap.Logger) *UniswapV3 {
	return &UniswapV3{
		state:  state,
		logger: logger,
		pools:  make(map[uint64]*V3Pool),
	}
}

// GetName returns the exchange name
func (u *UniswapV3) GetName() string {
	return "UniswapV3"
}

// CreatePool registers a pool for a token pair and fee tier
func (u *UniswapV3) CreatePool(tokenA, tokenB common.Address, fee uint32) (*V3Pool, error) {
	if tokenA == tokenB {
		return nil, ErrIdenticalAddresses
	}
	if fee == 0 || fee >= 1_000_000 {
		return nil, fmt.Errorf("%w: %d", dex.ErrInvalidFeeTier, fee)
	}

	key := dex.PairKey(tokenA, tokenB, fee)

	u.mu.Lock()
	defer u.mu.Unlock()

	if pool, ok := u.pools[key]; ok {
		return nil, fmt.Errorf("%w: %s", ErrPairExists, pool.Address.Hex())
	}

	token0, token1 := dex.SortTokens(tokenA, tokenB)
	pool := &V3Pool{
		Address: poolFor(V3Factory, V3InitCode, token0, token1, fee),
		Token0:  token0,
		Token1:  token1,
		Fee:     fee,
	}
	u.pools[key] = pool
	return pool, nil
}

// GetPool returns the pool for a token pair and fee tier
func (u *UniswapV3) GetPool(tokenA, tokenB common.Address, fee uint32) (*V3Pool, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	pool, ok := u.pools[dex.PairKey(tokenA, tokenB, fee)]
	return pool, ok
}

// AddLiquidity moves reserves from provider into a pool, creating it when it
// does not exist yet
func (u *UniswapV3) AddLiquidity(ctx context.Context, provider, tokenA, tokenB common.Address, fee uint32, amountA, amountB *big.Int) (*V3Pool, error) {
	var pool *V3Pool
	err := u.state.Transact(ctx, func(ctx context.Context) error {
		p, ok := u.GetPool(tokenA, tokenB, fee)
		if !ok {
			var err error
			if p, err = u.CreatePool(tokenA, tokenB, fee); err != nil {
				return err
			}
		}
		if err := u.state.Transfer(tokenA, provider, p.Address, amountA); err != nil {
			return fmt.Errorf("failed to deposit %s: %w", tokenA.Hex(), err)
		}
		if err := u.state.Transfer(tokenB, provider, p.Address, amountB); err != nil {
			return fmt.Errorf("failed to deposit %s: %w", tokenB.Hex(), err)
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// ExactInputSingle sells order.Amount of the source token through the pool of
// the given fee tier
func (u *UniswapV3) ExactInputSingle(ctx context.Context, order dex.Order, fee uint32) (*big.Int, error) {
	if order.Deadline < u.state.BlockTime() {
		return nil, fmt.Errorf("%s: %w", u.GetName(), dex.ErrDeadlineExpired)
	}

	pool, ok := u.GetPool(order.Source, order.Target, fee)
	if !ok {
		return nil, fmt.Errorf("%s: %w: %s/%s fee %d", u.GetName(), dex.ErrNoPairForTokens, order.Source.Hex(), order.Target.Hex(), fee)
	}

	amountOut, err := swapThrough(ctx, u.state, pool, order)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", u.GetName(), err)
	}

	u.logger.Debug("Swapped on concentrated liquidity pool",
		zap.Stringer("pool", pool.Address),
		zap.Uint32("fee", fee),
		zap.Stringer("amountIn", order.Amount),
		zap.Stringer("amountOut", amountOut))

	return amountOut, nil
}
