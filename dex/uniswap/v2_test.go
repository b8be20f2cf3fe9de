package uniswap

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/michaelpento.lv/arbengine/chain"
	"github.com/michaelpento.lv/arbengine/dex"
)

var (
	bnt    = common.HexToAddress("0x1F573D6Fb3F13d689FF844B4cE37794d79a7FF1C")
	usdc   = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	lp     = common.HexToAddress("0x1000000000000000000000000000000000000001")
	trader = common.HexToAddress("0x2000000000000000000000000000000000000002")
)

func newFundedRouter(t *testing.T) (*chain.State, *V2Router) {
	t.Helper()

	state := chain.NewState()
	require.NoError(t, state.Mint(bnt, lp, big.NewInt(1_000_000)))
	require.NoError(t, state.Mint(usdc, lp, big.NewInt(2_000_000)))
	require.NoError(t, state.Mint(bnt, trader, big.NewInt(10_000)))

	router := NewUniswapV2(state, zaptest.NewLogger(t))
	_, err := router.AddLiquidity(context.Background(), lp, bnt, usdc, big.NewInt(1_000_000), big.NewInt(2_000_000))
	require.NoError(t, err)
	return state, router
}

func TestGetAmountOut(t *testing.T) {
	// 1 ETH into 10 ETH / 5000 USDC
	amountIn := big.NewInt(1000000000000000000)
	reserveIn, _ := new(big.Int).SetString("10000000000000000000", 10)
	reserveOut := big.NewInt(5000000000)

	amountOut := dex.GetAmountOut(amountIn, reserveIn, reserveOut, V2FeePPM)

	// 997*5000e6 / (10*1000 + 997) computed in wei
	assert.Equal(t, big.NewInt(453305446), amountOut)
	assert.Zero(t, dex.GetAmountOut(big.NewInt(0), reserveIn, reserveOut, V2FeePPM).Sign())
}

func TestPairForIsOrderIndependent(t *testing.T) {
	f := NewFactory(MainnetFactory, MainnetInitCode)
	assert.Equal(t, f.PairFor(bnt, usdc), f.PairFor(usdc, bnt))
	assert.NotEqual(t, f.PairFor(bnt, usdc), f.PairFor(bnt, WETHAddress))

	// USDC/WETH mainnet pair
	assert.Equal(t,
		common.HexToAddress("0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc"),
		f.PairFor(usdc, WETHAddress))
}

func TestCreatePair(t *testing.T) {
	f := NewFactory(MainnetFactory, MainnetInitCode)

	pair, err := f.CreatePair(usdc, bnt)
	require.NoError(t, err)
	assert.Equal(t, bnt, pair.Token0)
	assert.Equal(t, usdc, pair.Token1)

	_, err = f.CreatePair(bnt, usdc)
	assert.ErrorIs(t, err, ErrPairExists)

	_, err = f.CreatePair(bnt, bnt)
	assert.ErrorIs(t, err, ErrIdenticalAddresses)

	got, ok := f.GetPair(bnt, usdc)
	require.True(t, ok)
	assert.Same(t, pair, got)
	assert.Len(t, f.AllPairs(), 1)
}

func TestSwapExactTokensForTokens(t *testing.T) {
	state, router := newFundedRouter(t)

	amounts, err := router.GetAmountsOut(big.NewInt(1000), []common.Address{bnt, usdc})
	require.NoError(t, err)

	out, err := router.SwapExactTokensForTokens(context.Background(), dex.Order{
		Trader:   trader,
		Source:   bnt,
		Target:   usdc,
		Amount:   big.NewInt(1000),
		Deadline: 1,
	})
	require.NoError(t, err)

	// 1000*997*2e6 / (1e6*1000 + 997000)
	assert.Equal(t, big.NewInt(1992), out)
	assert.Equal(t, amounts[1], out)
	assert.Equal(t, big.NewInt(9000), state.BalanceOf(bnt, trader))
	assert.Equal(t, big.NewInt(1992), state.BalanceOf(usdc, trader))
}

func TestSwapFailures(t *testing.T) {
	state, router := newFundedRouter(t)
	before := state.Balances()

	order := dex.Order{
		Trader:   trader,
		Source:   bnt,
		Target:   usdc,
		Amount:   big.NewInt(1000),
		Deadline: 10,
	}

	t.Run("min return", func(t *testing.T) {
		o := order
		o.MinReturn = big.NewInt(1993)
		_, err := router.SwapExactTokensForTokens(context.Background(), o)
		assert.ErrorIs(t, err, dex.ErrInsufficientOutput)
	})

	t.Run("deadline", func(t *testing.T) {
		state.SetBlockTime(11)
		defer state.SetBlockTime(0)
		_, err := router.SwapExactTokensForTokens(context.Background(), order)
		assert.ErrorIs(t, err, dex.ErrDeadlineExpired)
	})

	t.Run("no pair", func(t *testing.T) {
		o := order
		o.Target = WETHAddress
		_, err := router.SwapExactTokensForTokens(context.Background(), o)
		assert.ErrorIs(t, err, dex.ErrNoPairForTokens)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		o := order
		o.Amount = big.NewInt(10_001)
		_, err := router.SwapExactTokensForTokens(context.Background(), o)
		assert.ErrorIs(t, err, chain.ErrInsufficientBalance)
	})

	assert.Equal(t, before, state.Balances())
}

func TestExactInputSingle(t *testing.T) {
	state := chain.NewState()
	require.NoError(t, state.Mint(bnt, lp, big.NewInt(1_000_000)))
	require.NoError(t, state.Mint(usdc, lp, big.NewInt(1_000_000)))
	require.NoError(t, state.Mint(bnt, trader, big.NewInt(1_000)))

	v3 := NewUniswapV3(state, zaptest.NewLogger(t))
	pool, err := v3.AddLiquidity(context.Background(), lp, bnt, usdc, FeeLow, big.NewInt(1_000_000), big.NewInt(1_000_000))
	require.NoError(t, err)
	assert.Equal(t, uint32(FeeLow), pool.Fee)

	_, err = v3.CreatePool(bnt, usdc, 0)
	assert.ErrorIs(t, err, dex.ErrInvalidFeeTier)

	order := dex.Order{Trader: trader, Source: bnt, Target: usdc, Amount: big.NewInt(1000)}

	_, err = v3.ExactInputSingle(context.Background(), order, FeeMedium)
	assert.ErrorIs(t, err, dex.ErrNoPairForTokens)

	out, err := v3.ExactInputSingle(context.Background(), order, FeeLow)
	require.NoError(t, err)

	// 1000*999500*1e6 / (1e6*1e6 + 999500000)
	assert.Equal(t, big.NewInt(998), out)
	assert.Equal(t, big.NewInt(998), state.BalanceOf(usdc, trader))
	assert.Zero(t, state.BalanceOf(bnt, trader).Sign())
}
