package uniswap

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbengine/chain"
	"github.com/michaelpento.lv/arbengine/dex"
)

// Contract addresses
var (
	MainnetRouter  = common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D")
	MainnetFactory = common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")
	WETHAddress    = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")

	MainnetInitCode = common.FromHex("0x96e8ac4277198ff8b6f785478aa9a39f403cb768dd02cbee326c3e7da348845f")
)

// V2FeePPM is the 0.3% swap fee every V2 pair charges
const V2FeePPM = 3000

var (
	ErrIdenticalAddresses = errors.New("identical addresses")
	ErrPairExists         = errors.New("pair exists")
)

// Factory creates and indexes constant product pairs
type Factory struct {
	address  common.Address
	initCode []byte

	mu    sync.RWMutex
	pairs map[common.Address]*Pair

	// pair key -> CREATE2 address
	addresses *lru.Cache
}

// NewFactory creates a pair factory deploying at CREATE2 addresses derived
// from address and initCode
func NewFactory(address common.Address, initCode []byte) *Factory {
	cache, err := lru.New(1024)
	if err != nil {
		panic(fmt.Sprintf("failed to create pair address cache: %v", err))
	}
	return &Factory{
		address:   address,
		initCode:  initCode,
		pairs:     make(map[common.Address]*Pair),
		addresses: cache,
	}
}

// PairFor returns the deterministic pair address of two tokens, whether or
// not the pair exists
func (f *Factory) PairFor(tokenA, tokenB common.Address) common.Address {
	key := dex.PairKey(tokenA, tokenB, 0)
	if addr, ok := f.addresses.Get(key); ok {
		return addr.(common.Address)
	}
	addr := pairFor(f.address, f.initCode, tokenA, tokenB)
	f.addresses.Add(key, addr)
	return addr
}

// CreatePair registers a new pair for two tokens
func (f *Factory) CreatePair(tokenA, tokenB common.Address) (*Pair, error) {
	if tokenA == tokenB {
		return nil, ErrIdenticalAddresses
	}

	addr := f.PairFor(tokenA, tokenB)

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.pairs[addr]; ok {
		return nil, fmt.Errorf("%w: %s", ErrPairExists, addr.Hex())
	}

	token0, token1 := dex.SortTokens(tokenA, tokenB)
	pair := &Pair{
		Address: addr,
		Token0:  token0,
		Token1:  token1,
		Fee:     V2FeePPM,
	}
	f.pairs[addr] = pair
	return pair, nil
}

// GetPair returns the pair for two tokens if it has been created
func (f *Factory) GetPair(tokenA, tokenB common.Address) (*Pair, bool) {
	if tokenA == tokenB {
		return nil, false
	}
	addr := f.PairFor(tokenA, tokenB)

	f.mu.RLock()
	defer f.mu.RUnlock()
	pair, ok := f.pairs[addr]
	return pair, ok
}

// AllPairs returns every created pair
func (f *Factory) AllPairs() []*Pair {
	f.mu.RLock()
	defer f.mu.RUnlock()

	pairs := make([]*Pair, 0, len(f.pairs))
	for _, p := range f.pairs {
		pairs = append(pairs, p)
	}
	return pairs
}

// V2Router trades through the pairs of a Factory
type V2Router struct {
	name    string
	state   *chain.State
	factory *Factory
	logger  *zap.Logger
}

// NewV2Router creates a router over factory
func NewV2Router(name string, state *chain.State, factory *Factory, logger *zap.Logger) *V2Router {
	return &V2Router{
		name:    name,
		state:   state,
		factory: factory,
		logger:  logger,
	}
}

// NewUniswapV2 creates the mainnet Uniswap V2 router
func NewUniswapV2(state *chain.State, logger *zap.Logger) *V2Router {
	return NewV2Router("UniswapV2", state, NewFactory(MainnetFactory, MainnetInitCode), logger)
}

// GetName returns the exchange name
func (r *V2Router) GetName() string {
	return r.name
}

// Factory returns the pair factory the router trades through
func (r *V2Router) Factory() *Factory {
	return r.factory
}

// AddLiquidity moves reserves from provider into the pair, creating it when
// it does not exist yet
func (r *V2Router) AddLiquidity(ctx context.Context, provider, tokenA, tokenB common.Address, amountA, amountB *big.Int) (*Pair, error) {
	var pair *Pair
	err := r.state.Transact(ctx, func(ctx context.Context) error {
		p, ok := r.factory.GetPair(tokenA, tokenB)
		if !ok {
			var err error
			if p, err = r.factory.CreatePair(tokenA, tokenB); err != nil {
				return err
			}
		}
		if err := r.state.Transfer(tokenA, provider, p.Address, amountA); err != nil {
			return fmt.Errorf("failed to deposit %s: %w", tokenA.Hex(), err)
		}
		if err := r.state.Transfer(tokenB, provider, p.Address, amountB); err != nil {
			return fmt.Errorf("failed to deposit %s: %w", tokenB.Hex(), err)
		}
		pair = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// GetAmountsOut quotes an exact input trade along path
func (r *V2Router) GetAmountsOut(amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	if len(path) < 2 {
		return nil, fmt.Errorf("invalid path length")
	}

	amounts := make([]*big.Int, len(path))
	amounts[0] = amountIn
	for i := 0; i < len(path)-1; i++ {
		pair, ok := r.factory.GetPair(path[i], path[i+1])
		if !ok {
			return nil, fmt.Errorf("%w: %s/%s", dex.ErrNoPairForTokens, path[i].Hex(), path[i+1].Hex())
		}
		amounts[i+1] = pair.GetAmountOut(r.state, path[i], amounts[i])
	}
	return amounts, nil
}

// SwapExactTokensForTokens sells order.Amount of the source token through its
// pair with the target token
func (r *V2Router) SwapExactTokensForTokens(ctx context.Context, order dex.Order) (*big.Int, error) {
	if order.Deadline < r.state.BlockTime() {
		return nil, fmt.Errorf("%s: %w", r.name, dex.ErrDeadlineExpired)
	}

	pair, ok := r.factory.GetPair(order.Source, order.Target)
	if !ok {
		return nil, fmt.Errorf("%s: %w: %s/%s", r.name, dex.ErrNoPairForTokens, order.Source.Hex(), order.Target.Hex())
	}

	amountOut, err := swapThrough(ctx, r.state, pair, order)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.name, err)
	}

	r.logger.Debug("Swapped on constant product pair",
		zap.String("exchange", r.name),
		zap.Stringer("pair", pair.Address),
		zap.Stringer("amountIn", order.Amount),
		zap.Stringer("amountOut", amountOut))

	return amountOut, nil
}

// swapThrough settles an exact input trade against pair: the trader pays the
// source token in and receives the quoted target amount
func swapThrough(ctx context.Context, state *chain.State, pair *Pair, order dex.Order) (*big.Int, error) {
	amountOut := pair.GetAmountOut(state, order.Source, order.Amount)
	if amountOut.Sign() == 0 {
		return nil, dex.ErrInsufficientOutput
	}
	if order.MinReturn != nil && amountOut.Cmp(order.MinReturn) < 0 {
		return nil, fmt.Errorf("%w: got %s, want at least %s", dex.ErrInsufficientOutput, amountOut, order.MinReturn)
	}

	err := state.Transact(ctx, func(ctx context.Context) error {
		if err := state.Transfer(order.Source, order.Trader, pair.Address, order.Amount); err != nil {
			return err
		}
		return state.Transfer(order.Target, pair.Address, order.Trader, amountOut)
	})
	if err != nil {
		return nil, err
	}
	return amountOut, nil
}
