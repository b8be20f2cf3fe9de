package arbitrage

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/michaelpento.lv/arbengine/types"
	arbmath "github.com/michaelpento.lv/arbengine/utils/math"
)

// flashLoanContext is handed to the lender with the loan request and comes
// back unchanged in the callback
type flashLoanContext struct {
	Caller    common.Address
	Principal *big.Int
	Nonce     uint64
	Routes    []types.TradeRoute
}

// wireRoute is the abi tuple layout of a TradeRoute. Field names must match
// the camel cased tuple component names.
type wireRoute struct {
	PlatformId      uint16
	SourceToken     common.Address
	TargetToken     common.Address
	MinTargetAmount *big.Int
	Deadline        *big.Int
	CustomAddress   common.Address
	CustomInt       *big.Int
}

var contextArguments abi.Arguments

func init() {
	addressType, err := abi.NewType("address", "", nil)
	if err != nil {
		panic(err)
	}
	uint256Type, err := abi.NewType("uint256", "", nil)
	if err != nil {
		panic(err)
	}
	uint64Type, err := abi.NewType("uint64", "", nil)
	if err != nil {
		panic(err)
	}
	routesType, err := abi.NewType("tuple[]", "", []abi.ArgumentMarshaling{
		{Name: "platformId", Type: "uint16"},
		{Name: "sourceToken", Type: "address"},
		{Name: "targetToken", Type: "address"},
		{Name: "minTargetAmount", Type: "uint256"},
		{Name: "deadline", Type: "uint256"},
		{Name: "customAddress", Type: "address"},
		{Name: "customInt", Type: "uint256"},
	})
	if err != nil {
		panic(err)
	}

	contextArguments = abi.Arguments{
		{Name: "caller", Type: addressType},
		{Name: "principal", Type: uint256Type},
		{Name: "nonce", Type: uint64Type},
		{Name: "routes", Type: routesType},
	}
}

func encodeContext(c flashLoanContext) ([]byte, error) {
	routes := make([]wireRoute, len(c.Routes))
	for i, r := range c.Routes {
		routes[i] = wireRoute{
			PlatformId:      uint16(r.PlatformID),
			SourceToken:     r.SourceToken,
			TargetToken:     r.TargetToken,
			MinTargetAmount: arbmath.Clone(r.MinTargetAmount),
			Deadline:        new(big.Int).SetUint64(r.Deadline),
			CustomAddress:   r.CustomAddress,
			CustomInt:       arbmath.Clone(r.CustomInt),
		}
	}

	data, err := contextArguments.Pack(c.Caller, arbmath.Clone(c.Principal), c.Nonce, routes)
	if err != nil {
		return nil, fmt.Errorf("failed to encode flash loan context: %w", err)
	}
	return data, nil
}

func decodeContext(data []byte) (flashLoanContext, error) {
	values, err := contextArguments.Unpack(data)
	if err != nil {
		return flashLoanContext{}, fmt.Errorf("failed to decode flash loan context: %w", err)
	}
	if len(values) != len(contextArguments) {
		return flashLoanContext{}, fmt.Errorf("failed to decode flash loan context: got %d values", len(values))
	}

	routes := *abi.ConvertType(values[3], new([]wireRoute)).(*[]wireRoute)

	c := flashLoanContext{
		Caller:    values[0].(common.Address),
		Principal: values[1].(*big.Int),
		Nonce:     values[2].(uint64),
		Routes:    make([]types.TradeRoute, len(routes)),
	}
	for i, r := range routes {
		if !r.Deadline.IsUint64() {
			return flashLoanContext{}, fmt.Errorf("failed to decode flash loan context: hop %d deadline overflows", i)
		}
		c.Routes[i] = types.TradeRoute{
			PlatformID:      types.PlatformID(r.PlatformId),
			SourceToken:     r.SourceToken,
			TargetToken:     r.TargetToken,
			MinTargetAmount: r.MinTargetAmount,
			Deadline:        r.Deadline.Uint64(),
			CustomAddress:   r.CustomAddress,
			CustomInt:       r.CustomInt,
		}
	}
	return c, nil
}
