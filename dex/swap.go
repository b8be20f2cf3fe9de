package dex

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/michaelpento.lv/arbengine/types"
	arbmath "github.com/michaelpento.lv/arbengine/utils/math"
)

// Swap is the closed set of supported venue kinds. Only the variants in this
// package implement it.
type Swap interface {
	Platform() types.PlatformID
	isSwap()
}

// NativeNetworkSwap trades on the Bancor V3 network
type NativeNetworkSwap struct{}

// ConstantProductSwap trades through a Uniswap V2 style pair. Exchange is
// either PlatformUniswapV2 or PlatformSushiSwap.
type ConstantProductSwap struct {
	Exchange types.PlatformID
}

// ConcentratedLiquiditySwap trades through a Uniswap V3 pool of the given fee tier
type ConcentratedLiquiditySwap struct {
	Fee uint32
}

// LegacyMultiHopSwap converts on Bancor V2, optionally through an intermediate token
type LegacyMultiHopSwap struct {
	Intermediate common.Address
}

func (NativeNetworkSwap) Platform() types.PlatformID         { return types.PlatformBancorV3 }
func (s ConstantProductSwap) Platform() types.PlatformID     { return s.Exchange }
func (ConcentratedLiquiditySwap) Platform() types.PlatformID { return types.PlatformUniswapV3 }
func (LegacyMultiHopSwap) Platform() types.PlatformID        { return types.PlatformBancorV2 }

func (NativeNetworkSwap) isSwap()         {}
func (ConstantProductSwap) isSwap()       {}
func (ConcentratedLiquiditySwap) isSwap() {}
func (LegacyMultiHopSwap) isSwap()        {}

// Path returns the token path a legacy conversion walks
func (s LegacyMultiHopSwap) Path(source, target common.Address) []common.Address {
	if s.Intermediate == (common.Address{}) {
		return []common.Address{source, target}
	}
	return []common.Address{source, s.Intermediate, target}
}

// SwapFromRoute decodes the venue of a wire route into its variant
func SwapFromRoute(route types.TradeRoute) (Swap, error) {
	switch route.PlatformID {
	case types.PlatformBancorV3:
		return NativeNetworkSwap{}, nil
	case types.PlatformUniswapV2, types.PlatformSushiSwap:
		return ConstantProductSwap{Exchange: route.PlatformID}, nil
	case types.PlatformUniswapV3:
		fee := arbmath.Clone(route.CustomInt)
		if fee.Sign() <= 0 || fee.Cmp(big.NewInt(arbmath.PPMResolution)) >= 0 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidFeeTier, fee)
		}
		return ConcentratedLiquiditySwap{Fee: uint32(fee.Uint64())}, nil
	case types.PlatformBancorV2:
		return LegacyMultiHopSwap{Intermediate: route.CustomAddress}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidExchangeID, route.PlatformID)
	}
}
