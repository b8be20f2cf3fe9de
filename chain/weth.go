package chain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Wrap converts amount of the native asset held by holder into the wrapped
// token. The native funds are locked in the wrapped token's own account.
func (s *State) Wrap(native, wrapped, holder common.Address, amount *big.Int) error {
	if err := s.Transfer(native, holder, wrapped, amount); err != nil {
		return fmt.Errorf("failed to wrap: %w", err)
	}
	return s.Mint(wrapped, holder, amount)
}

// Unwrap burns amount of the wrapped token and releases the native asset to holder
func (s *State) Unwrap(native, wrapped, holder common.Address, amount *big.Int) error {
	if err := s.Burn(wrapped, holder, amount); err != nil {
		return fmt.Errorf("failed to unwrap: %w", err)
	}
	return s.Transfer(native, wrapped, holder, amount)
}
