package simulator

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbengine/chain"
	"github.com/michaelpento.lv/arbengine/dex"
	"github.com/michaelpento.lv/arbengine/dex/bancor"
	"github.com/michaelpento.lv/arbengine/dex/sushiswap"
	"github.com/michaelpento.lv/arbengine/dex/uniswap"
	"github.com/michaelpento.lv/arbengine/flashloan"
	"github.com/michaelpento.lv/arbengine/gas"
	"github.com/michaelpento.lv/arbengine/rewards"
	"github.com/michaelpento.lv/arbengine/strategies/arbitrage"
	"github.com/michaelpento.lv/arbengine/types"
	"github.com/michaelpento.lv/arbengine/utils/metrics"
)

var (
	DefaultEngineAddress = common.HexToAddress("0x00000000000000000000000000000000000A4b17")
	DefaultAdmin         = common.HexToAddress("0x000000000000000000000000000000000000AD11")
)

const gweiDecimals int32 = 9

// World is a ledger with every venue, the flash loan gateway and an engine
// wired together as a scenario describes
type World struct {
	State      *chain.State
	Network    *bancor.Network
	Legacy     *bancor.LegacyNetwork
	UniswapV2  *uniswap.V2Router
	UniswapV3  *uniswap.UniswapV3
	SushiSwap  *uniswap.V2Router
	Dispatcher *dex.Dispatcher
	Loans      *flashloan.FlashLoanManager
	Engine     *arbitrage.Engine
	Gas        *gas.Estimator
	Metrics    *metrics.EngineMetrics
	Registry   *prometheus.Registry

	tokens *tokenBook
	plan   PlanSpec
	logger *zap.Logger
}

// NewWorld builds the world a scenario describes
func NewWorld(ctx context.Context, sc *Scenario, logger *zap.Logger) (*World, error) {
	tokens, err := newTokenBook(sc.Tokens)
	if err != nil {
		return nil, err
	}

	state := chain.NewState()
	state.SetBlockTime(sc.BlockTime)

	registry := prometheus.NewRegistry()
	w := &World{
		State:     state,
		Network:   bancor.NewNetwork(state, bancor.MainnetNetwork, bancor.BNT, logger),
		Legacy:    bancor.NewLegacyNetwork(state, bancor.MainnetLegacyNetwork, logger),
		UniswapV2: uniswap.NewUniswapV2(state, logger),
		UniswapV3: uniswap.NewUniswapV3(state, logger),
		SushiSwap: sushiswap.NewSushiswapV2(state, logger),
		Registry:  registry,
		tokens:    tokens,
		plan:      sc.Plan,
		logger:    logger,
	}

	w.Dispatcher = dex.NewDispatcher(state, uniswap.WETHAddress, dex.Venues{
		BancorV2:  w.Legacy,
		BancorV3:  w.Network,
		UniswapV2: w.UniswapV2,
		UniswapV3: w.UniswapV3,
		SushiSwap: w.SushiSwap,
	}, logger)

	w.Loans = flashloan.NewFlashLoanManager(flashloan.ProviderConfig{
		RateLimit: sc.FlashLoan.RateLimit,
		Burst:     sc.FlashLoan.Burst,
	}, metrics.NewFlashLoanMetrics(registry, metrics.DefaultNamespace), logger)
	w.Loans.AddProvider(w.Network)

	if err := w.Network.SetDefaultFlashLoanFee(sc.FlashLoan.FeePPM); err != nil {
		return nil, err
	}

	if err := w.mintBalances(sc.Balances); err != nil {
		return nil, err
	}
	if err := w.addLiquidity(ctx, sc); err != nil {
		return nil, err
	}

	engineCfg, err := w.engineConfig(sc)
	if err != nil {
		return nil, err
	}
	w.Metrics = metrics.NewEngineMetrics(registry, metrics.DefaultNamespace)
	w.Engine, err = arbitrage.NewEngine(engineCfg, state, w.Dispatcher, w.Loans, w.Metrics, logger)
	if err != nil {
		return nil, err
	}

	baseFee, err := parseAmount(sc.Gas.BaseFeeGwei, gweiDecimals)
	if err != nil {
		return nil, fmt.Errorf("gas base fee: %w", err)
	}
	priorityFee, err := parseAmount(sc.Gas.PriorityFeeGwei, gweiDecimals)
	if err != nil {
		return nil, fmt.Errorf("gas priority fee: %w", err)
	}
	w.Gas = gas.NewEstimator(baseFee, priorityFee, logger)

	logger.Info("Scenario world ready",
		zap.Int("tokens", len(tokens.bySymbol)),
		zap.Int("routes", len(sc.Plan.Routes)),
		zap.Stringer("engine", engineCfg.Address))

	return w, nil
}

func (w *World) mintBalances(balances []BalanceSpec) error {
	for _, b := range balances {
		holder, err := parseAddress("balance holder", b.Holder)
		if err != nil {
			return err
		}
		tok, err := w.tokens.resolve(b.Token)
		if err != nil {
			return err
		}
		amount, err := parseAmount(b.Amount, tok.Decimals)
		if err != nil {
			return fmt.Errorf("balance of %s: %w", tok.Symbol, err)
		}
		if err := w.State.Mint(tok.Address, holder, amount); err != nil {
			return err
		}
	}
	return nil
}

func (w *World) addLiquidity(ctx context.Context, sc *Scenario) error {
	if sc.LiquidityProvider == "" {
		return nil
	}
	lp, err := parseAddress("liquidity provider", sc.LiquidityProvider)
	if err != nil {
		return err
	}

	bnt, err := w.tokens.resolve("BNT")
	if err != nil {
		return err
	}

	vault, err := parseAmount(sc.FlashLoan.Vault, bnt.Decimals)
	if err != nil {
		return fmt.Errorf("flash loan vault: %w", err)
	}
	if vault.Sign() > 0 {
		if err := w.Network.DepositVault(ctx, lp, bnt.Address, vault); err != nil {
			return fmt.Errorf("flash loan vault: %w", err)
		}
	}

	for _, p := range sc.Pools.BancorV3 {
		tok, err := w.tokens.resolve(p.Token)
		if err != nil {
			return err
		}
		tokenAmount, err := parseAmount(p.TokenLiquidity, tok.Decimals)
		if err != nil {
			return err
		}
		bntAmount, err := parseAmount(p.BNTLiquidity, bnt.Decimals)
		if err != nil {
			return err
		}
		if _, err := w.Network.CreatePool(tok.Address, p.TradingFeePPM); err != nil {
			return err
		}
		if err := w.Network.AddLiquidity(ctx, lp, tok.Address, tokenAmount, bntAmount); err != nil {
			return fmt.Errorf("bancor_v3 %s pool: %w", tok.Symbol, err)
		}
	}

	for _, p := range sc.Pools.BancorV2 {
		a, b, amountA, amountB, err := w.pair(p)
		if err != nil {
			return err
		}
		if _, err := w.Legacy.AddConverter(a, b, p.Fee); err != nil {
			return err
		}
		if err := w.Legacy.AddLiquidity(ctx, lp, a, b, amountA, amountB); err != nil {
			return fmt.Errorf("bancor_v2 converter: %w", err)
		}
	}

	for _, p := range sc.Pools.UniswapV3 {
		a, b, amountA, amountB, err := w.pair(p)
		if err != nil {
			return err
		}
		if _, err := w.UniswapV3.AddLiquidity(ctx, lp, a, b, p.Fee, amountA, amountB); err != nil {
			return fmt.Errorf("uniswap_v3 pool: %w", err)
		}
	}

	routers := []struct {
		router *uniswap.V2Router
		pairs  []PairSpec
	}{
		{w.UniswapV2, sc.Pools.UniswapV2},
		{w.SushiSwap, sc.Pools.SushiSwap},
	}
	for _, r := range routers {
		for _, p := range r.pairs {
			a, b, amountA, amountB, err := w.pair(p)
			if err != nil {
				return err
			}
			if _, err := r.router.AddLiquidity(ctx, lp, a, b, amountA, amountB); err != nil {
				return fmt.Errorf("%s pair: %w", r.router.GetName(), err)
			}
		}
	}
	return nil
}

func (w *World) pair(p PairSpec) (common.Address, common.Address, *big.Int, *big.Int, error) {
	a, err := w.tokens.resolve(p.TokenA)
	if err != nil {
		return common.Address{}, common.Address{}, nil, nil, err
	}
	b, err := w.tokens.resolve(p.TokenB)
	if err != nil {
		return common.Address{}, common.Address{}, nil, nil, err
	}
	amountA, err := parseAmount(p.AmountA, a.Decimals)
	if err != nil {
		return common.Address{}, common.Address{}, nil, nil, err
	}
	amountB, err := parseAmount(p.AmountB, b.Decimals)
	if err != nil {
		return common.Address{}, common.Address{}, nil, nil, err
	}
	return a.Address, b.Address, amountA, amountB, nil
}

func (w *World) engineConfig(sc *Scenario) (arbitrage.Config, error) {
	cfg := arbitrage.Config{
		Address:   DefaultEngineAddress,
		Admin:     DefaultAdmin,
		BaseToken: bancor.BNT,
	}
	var err error
	if sc.Engine.Address != "" {
		if cfg.Address, err = parseAddress("engine address", sc.Engine.Address); err != nil {
			return cfg, err
		}
	}
	if sc.Engine.Admin != "" {
		if cfg.Admin, err = parseAddress("engine admin", sc.Engine.Admin); err != nil {
			return cfg, err
		}
	}

	bnt, err := w.tokens.resolve("BNT")
	if err != nil {
		return cfg, err
	}
	maxAmount, err := parseAmount(sc.Rewards.MaxAmount, bnt.Decimals)
	if err != nil {
		return cfg, fmt.Errorf("rewards max amount: %w", err)
	}
	cfg.Rewards = rewards.Config{
		PercentagePPM: sc.Rewards.PercentagePPM,
		MaxAmount:     maxAmount,
	}
	return cfg, nil
}

// Plan resolves the scenario's route plan
func (w *World) Plan() (common.Address, []types.TradeRoute, *big.Int, error) {
	caller, err := parseAddress("plan caller", w.plan.Caller)
	if err != nil {
		return common.Address{}, nil, nil, err
	}

	routes := make([]types.TradeRoute, 0, len(w.plan.Routes))
	for i, r := range w.plan.Routes {
		route, err := w.route(r)
		if err != nil {
			return common.Address{}, nil, nil, fmt.Errorf("route %d: %w", i, err)
		}
		routes = append(routes, route)
	}

	var principal *big.Int
	if len(routes) > 0 {
		base := w.tokens.lookup(routes[0].SourceToken)
		if principal, err = parseAmount(w.plan.Principal, base.Decimals); err != nil {
			return common.Address{}, nil, nil, fmt.Errorf("principal: %w", err)
		}
	}
	return caller, routes, principal, nil
}

func (w *World) route(r RouteSpec) (types.TradeRoute, error) {
	platform, err := types.ParsePlatform(r.Platform)
	if err != nil {
		return types.TradeRoute{}, err
	}
	source, err := w.tokens.resolve(r.Source)
	if err != nil {
		return types.TradeRoute{}, err
	}
	target, err := w.tokens.resolve(r.Target)
	if err != nil {
		return types.TradeRoute{}, err
	}
	minReturn, err := parseAmount(r.MinReturn, target.Decimals)
	if err != nil {
		return types.TradeRoute{}, fmt.Errorf("min return: %w", err)
	}

	route := types.TradeRoute{
		PlatformID:      platform,
		SourceToken:     source.Address,
		TargetToken:     target.Address,
		MinTargetAmount: minReturn,
		Deadline:        r.Deadline,
		CustomInt:       new(big.Int).SetUint64(uint64(r.Fee)),
	}
	if route.Deadline == 0 {
		route.Deadline = w.State.BlockTime()
	}
	if r.Intermediate != "" {
		mid, err := w.tokens.resolve(r.Intermediate)
		if err != nil {
			return types.TradeRoute{}, err
		}
		route.CustomAddress = mid.Address
	}
	return route, nil
}

// Token returns the scenario token at addr
func (w *World) Token(addr common.Address) Token {
	return w.tokens.lookup(addr)
}

// Format renders amount of token in whole units with its symbol
func (w *World) Format(token common.Address, amount *big.Int) string {
	t := w.tokens.lookup(token)
	return FormatAmount(amount, t.Decimals) + " " + t.Symbol
}

// Simulator returns a dry-run simulator over the world
func (w *World) Simulator() *Simulator {
	return NewSimulator(w.State, w.Engine, w.Gas, w.logger)
}
