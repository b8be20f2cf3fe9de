package sushiswap

import (
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbengine/chain"
	"github.com/michaelpento.lv/arbengine/dex/uniswap"
)

// Factory addresses
var (
	MainnetFactory = common.HexToAddress("0xC0AEe478e3658e2610c5F7A4A2E1777cE9e4f2Ac")
	MainnetRouter  = common.HexToAddress("0xd9e1cE17f2641f24aE83637ab66a2cca9C378B9F")

	MainnetInitCode = common.FromHex("0xe18a34eb0e04b04f7a0ac29a6e80748dca96319b42c54d679cb821dca90c6303")
)

// NewSushiswapV2 creates a Sushiswap router. Sushiswap is a Uniswap V2 fork,
// so only the factory and pair init code differ.
func NewSushiswapV2(state *chain.State, logger *zap.Logger) *uniswap.V2Router {
	return uniswap.NewV2Router("SushiSwap", state, uniswap.NewFactory(MainnetFactory, MainnetInitCode), logger)
}
