package arbitrage

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/michaelpento.lv/arbengine/dex"
	"github.com/michaelpento.lv/arbengine/types"
	arbmath "github.com/michaelpento.lv/arbengine/utils/math"
)

// MaxRouteLength bounds the number of hops in a single execution
const MaxRouteLength = 10

// ValidateRoutes checks that routes form a cycle starting and ending in
// baseToken, that principal is positive and that every hop names a supported
// venue. It returns the decoded venue of each hop.
func ValidateRoutes(routes []types.TradeRoute, baseToken common.Address, principal *big.Int) ([]dex.Swap, error) {
	if len(routes) == 0 || len(routes) > MaxRouteLength {
		return nil, fmt.Errorf("%w: %d hops, want 1 to %d", ErrInvalidRouteLength, len(routes), MaxRouteLength)
	}
	if routes[0].SourceToken != baseToken {
		return nil, fmt.Errorf("%w: %s", ErrFirstHopSourceMismatch, routes[0].SourceToken.Hex())
	}
	if last := routes[len(routes)-1]; last.TargetToken != baseToken {
		return nil, fmt.Errorf("%w: %s", ErrLastHopTargetMismatch, last.TargetToken.Hex())
	}
	if !arbmath.IsPositive(principal) {
		return nil, fmt.Errorf("%w: principal", ErrZeroValue)
	}

	return decodeSwaps(routes)
}

func decodeSwaps(routes []types.TradeRoute) ([]dex.Swap, error) {
	swaps := make([]dex.Swap, len(routes))
	for i, route := range routes {
		swap, err := dex.SwapFromRoute(route)
		if err != nil {
			return nil, fmt.Errorf("hop %d: %w", i, err)
		}
		swaps[i] = swap
	}
	return swaps, nil
}
