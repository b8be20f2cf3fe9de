package simulator

import (
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"

	"github.com/michaelpento.lv/arbengine/dex/bancor"
	"github.com/michaelpento.lv/arbengine/dex/uniswap"
	"github.com/michaelpento.lv/arbengine/types"
)

// Scenario describes a ledger, the venues on it and a route plan to run
// against them. Amounts are decimal strings in whole token units.
type Scenario struct {
	BlockTime uint64 `yaml:"block_time"`

	Engine struct {
		Address string `yaml:"address"`
		Admin   string `yaml:"admin"`
	} `yaml:"engine"`

	Tokens   []TokenSpec   `yaml:"tokens"`
	Balances []BalanceSpec `yaml:"balances"`

	// LiquidityProvider funds the flash loan vault and every pool
	LiquidityProvider string `yaml:"liquidity_provider"`

	FlashLoan FlashLoanSpec `yaml:"flash_loan"`
	Pools     PoolsSpec     `yaml:"pools"`
	Rewards   RewardsSpec   `yaml:"rewards"`
	Gas       GasSpec       `yaml:"gas"`
	Plan      PlanSpec      `yaml:"plan"`
}

type TokenSpec struct {
	Symbol   string `yaml:"symbol"`
	Address  string `yaml:"address"`
	Decimals int32  `yaml:"decimals"`
}

type BalanceSpec struct {
	Holder string `yaml:"holder"`
	Token  string `yaml:"token"`
	Amount string `yaml:"amount"`
}

type FlashLoanSpec struct {
	FeePPM    uint32  `yaml:"fee_ppm"`
	Vault     string  `yaml:"vault"`
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

type PoolsSpec struct {
	BancorV3  []NetworkPoolSpec `yaml:"bancor_v3"`
	BancorV2  []PairSpec        `yaml:"bancor_v2"`
	UniswapV2 []PairSpec        `yaml:"uniswap_v2"`
	UniswapV3 []PairSpec        `yaml:"uniswap_v3"`
	SushiSwap []PairSpec        `yaml:"sushiswap"`
}

// NetworkPoolSpec is a Bancor V3 pool of a token against BNT
type NetworkPoolSpec struct {
	Token          string `yaml:"token"`
	TradingFeePPM  uint32 `yaml:"trading_fee_ppm"`
	TokenLiquidity string `yaml:"token_liquidity"`
	BNTLiquidity   string `yaml:"bnt_liquidity"`
}

// PairSpec is a two token pool. Fee is the conversion fee on Bancor V2 and
// the fee tier on Uniswap V3; other venues ignore it.
type PairSpec struct {
	TokenA  string `yaml:"token_a"`
	TokenB  string `yaml:"token_b"`
	Fee     uint32 `yaml:"fee"`
	AmountA string `yaml:"amount_a"`
	AmountB string `yaml:"amount_b"`
}

type RewardsSpec struct {
	PercentagePPM uint32 `yaml:"percentage_ppm"`
	MaxAmount     string `yaml:"max_amount"`
}

// GasSpec holds fee levels in gwei
type GasSpec struct {
	BaseFeeGwei     string `yaml:"base_fee_gwei"`
	PriorityFeeGwei string `yaml:"priority_fee_gwei"`
}

type PlanSpec struct {
	Caller    string      `yaml:"caller"`
	Principal string      `yaml:"principal"`
	Routes    []RouteSpec `yaml:"routes"`
}

// RouteSpec is one hop of the plan. A zero deadline means the scenario's
// block time.
type RouteSpec struct {
	Platform     string `yaml:"platform"`
	Source       string `yaml:"source"`
	Target       string `yaml:"target"`
	MinReturn    string `yaml:"min_return"`
	Deadline     uint64 `yaml:"deadline"`
	Intermediate string `yaml:"intermediate"`
	Fee          uint32 `yaml:"fee"`
}

// LoadScenario reads a YAML scenario file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes a YAML scenario
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.UnmarshalStrict(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to decode scenario: %w", err)
	}
	if len(sc.Plan.Routes) == 0 {
		return nil, fmt.Errorf("scenario has no routes")
	}
	return &sc, nil
}

// Token is a resolved scenario token
type Token struct {
	Symbol   string
	Address  common.Address
	Decimals int32
}

// tokenBook resolves symbols and addresses to tokens
type tokenBook struct {
	bySymbol  map[string]Token
	byAddress map[common.Address]Token
}

func newTokenBook(specs []TokenSpec) (*tokenBook, error) {
	b := &tokenBook{
		bySymbol:  make(map[string]Token),
		byAddress: make(map[common.Address]Token),
	}
	b.add(Token{Symbol: "BNT", Address: bancor.BNT, Decimals: 18})
	b.add(Token{Symbol: "WETH", Address: uniswap.WETHAddress, Decimals: 18})
	b.add(Token{Symbol: "ETH", Address: types.NativeToken, Decimals: 18})

	for _, s := range specs {
		sym := strings.ToUpper(s.Symbol)
		if sym == "" {
			return nil, fmt.Errorf("token without symbol")
		}
		if s.Decimals < 0 {
			return nil, fmt.Errorf("token %s: negative decimals", sym)
		}

		tok := Token{Symbol: sym, Decimals: s.Decimals}
		switch {
		case s.Address != "":
			if !common.IsHexAddress(s.Address) {
				return nil, fmt.Errorf("token %s: invalid address %q", sym, s.Address)
			}
			tok.Address = common.HexToAddress(s.Address)
		default:
			builtin, ok := b.bySymbol[sym]
			if !ok {
				return nil, fmt.Errorf("token %s: address required", sym)
			}
			tok.Address = builtin.Address
		}
		b.add(tok)
	}
	return b, nil
}

func (b *tokenBook) add(t Token) {
	if old, ok := b.bySymbol[t.Symbol]; ok {
		delete(b.byAddress, old.Address)
	}
	b.bySymbol[t.Symbol] = t
	b.byAddress[t.Address] = t
}

// resolve accepts a symbol or a hex address
func (b *tokenBook) resolve(ref string) (Token, error) {
	if t, ok := b.bySymbol[strings.ToUpper(ref)]; ok {
		return t, nil
	}
	if common.IsHexAddress(ref) {
		addr := common.HexToAddress(ref)
		if t, ok := b.byAddress[addr]; ok {
			return t, nil
		}
		return Token{Symbol: addr.Hex(), Address: addr}, nil
	}
	return Token{}, fmt.Errorf("unknown token %q", ref)
}

func (b *tokenBook) lookup(addr common.Address) Token {
	if t, ok := b.byAddress[addr]; ok {
		return t
	}
	return Token{Symbol: addr.Hex(), Address: addr}
}

// parseAmount converts a decimal amount of whole units into base units. An
// empty string is zero.
func parseAmount(s string, decimals int32) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("negative amount %q", s)
	}
	scaled := d.Shift(decimals)
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("amount %q has more than %d decimals", s, decimals)
	}
	return scaled.BigInt(), nil
}

// FormatAmount renders base units as a decimal amount of whole units
func FormatAmount(amount *big.Int, decimals int32) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -decimals).String()
}

func parseAddress(field, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%s: invalid address %q", field, s)
	}
	return common.HexToAddress(s), nil
}
