package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// journalEntry is a single reversible state change. Entries are reverted
// with the state's write lock held.
type journalEntry interface {
	revert(s *State)
}

type balanceChange struct {
	token  common.Address
	holder common.Address
	prev   *big.Int
}

func (c balanceChange) revert(s *State) {
	holders := s.balances[c.token]
	if c.prev == nil {
		delete(holders, c.holder)
		return
	}
	holders[c.holder] = c.prev
}

type logAppend struct{}

func (logAppend) revert(s *State) {
	s.logs = s.logs[:len(s.logs)-1]
}

// revertHook undoes a change held outside the ledger
type revertHook func()

func (h revertHook) revert(*State) {
	h()
}
