package types

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// NativeToken is the sentinel address representing the chain's native asset
var NativeToken = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// ZeroAddress is the zero address
var ZeroAddress = common.Address{}

// IsNative reports whether the token is the native asset sentinel
func IsNative(token common.Address) bool {
	return token == NativeToken
}

// PlatformID identifies an exchange venue on the wire
type PlatformID uint16

const (
	PlatformBancorV2  PlatformID = 1
	PlatformBancorV3  PlatformID = 2
	PlatformUniswapV2 PlatformID = 3
	PlatformUniswapV3 PlatformID = 4
	PlatformSushiSwap PlatformID = 5
)

// String returns the venue name
func (p PlatformID) String() string {
	switch p {
	case PlatformBancorV2:
		return "bancor_v2"
	case PlatformBancorV3:
		return "bancor_v3"
	case PlatformUniswapV2:
		return "uniswap_v2"
	case PlatformUniswapV3:
		return "uniswap_v3"
	case PlatformSushiSwap:
		return "sushiswap"
	default:
		return "unknown"
	}
}

// ParsePlatform returns the venue with the given name
func ParsePlatform(name string) (PlatformID, error) {
	for p := PlatformBancorV2; p <= PlatformSushiSwap; p++ {
		if p.String() == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown platform %q", name)
}

// TradeRoute is one hop of an arbitrage route plan.
//
// CustomAddress and CustomInt carry venue specific data: the intermediate
// token for Bancor V2 and the fee tier for Uniswap V3.
type TradeRoute struct {
	PlatformID      PlatformID
	SourceToken     common.Address
	TargetToken     common.Address
	MinTargetAmount *big.Int
	Deadline        uint64
	CustomAddress   common.Address
	CustomInt       *big.Int
}

// HopResult records what a single executed hop produced
type HopResult struct {
	PlatformID   PlatformID
	SourceToken  common.Address
	TargetToken  common.Address
	SourceAmount *big.Int
	TargetAmount *big.Int
}
