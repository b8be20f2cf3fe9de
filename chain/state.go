package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNegativeAmount      = errors.New("negative amount")

	errCallReverted = errors.New("call reverted")
)

// BurnAddress is the unspendable sink burned tokens are sent to
var BurnAddress = common.HexToAddress("0x000000000000000000000000000000000000dEaD")

// Event is a log record emitted during a transaction
type Event interface {
	EventName() string
}

type txKey struct{}

// State is an in-memory ledger of token balances.
//
// All mutations are journaled so that a transaction, or any nested frame
// inside it, can be rolled back to a snapshot. Transactions are serialized:
// only one runs at a time and the rest wait their turn.
type State struct {
	txMu sync.Mutex

	mu        sync.RWMutex
	balances  map[common.Address]map[common.Address]*big.Int
	blockTime uint64
	journal   []journalEntry
	logs      []Event
}

// NewState creates an empty ledger
func NewState() *State {
	return &State{
		balances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

// InTransaction reports whether ctx belongs to a running transaction
func InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*State)
	return ok
}

// Transact runs fn as an atomic unit. Any error returned by fn reverts every
// change fn made. Nested calls with a transaction context open a new frame
// instead of waiting for the transaction lock.
func (s *State) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if owner, ok := ctx.Value(txKey{}).(*State); ok && owner == s {
		return s.frame(ctx, fn)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	ctx = context.WithValue(ctx, txKey{}, s)
	defer s.clearJournal()

	return s.frame(ctx, fn)
}

// Call runs fn like Transact but always reverts its changes
func (s *State) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	err := s.Transact(ctx, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return err
		}
		return errCallReverted
	})
	if errors.Is(err, errCallReverted) {
		return nil
	}
	return err
}

func (s *State) frame(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	id := s.Snapshot()
	defer func() {
		if r := recover(); r != nil {
			s.RevertToSnapshot(id)
			panic(r)
		}
		if err != nil {
			s.RevertToSnapshot(id)
		}
	}()
	return fn(ctx)
}

// Snapshot returns an identifier for the current journal position
func (s *State) Snapshot() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.journal)
}

// RevertToSnapshot undoes every change made after the snapshot was taken
func (s *State) RevertToSnapshot(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id < 0 || id > len(s.journal) {
		panic(fmt.Sprintf("chain: invalid snapshot %d (journal length %d)", id, len(s.journal)))
	}
	for i := len(s.journal) - 1; i >= id; i-- {
		s.journal[i].revert(s)
	}
	s.journal = s.journal[:id]
}

func (s *State) clearJournal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journal = s.journal[:0]
}

// BlockTime returns the timestamp of the current block
func (s *State) BlockTime() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.blockTime
}

// SetBlockTime moves the chain clock
func (s *State) SetBlockTime(ts uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blockTime = ts
}

// BalanceOf returns a copy of the holder's balance of token
func (s *State) BalanceOf(token, holder common.Address) *big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return new(big.Int).Set(s.balanceLocked(token, holder))
}

// Mint credits amount of token to holder out of thin air
func (s *State) Mint(token, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setBalanceLocked(token, to, new(big.Int).Add(s.balanceLocked(token, to), amount))
	return nil
}

// Burn destroys amount of token held by from
func (s *State) Burn(token, from common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bal := s.balanceLocked(token, from)
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s holds %s of %s, needs %s", ErrInsufficientBalance, from.Hex(), bal, token.Hex(), amount)
	}
	s.setBalanceLocked(token, from, new(big.Int).Sub(bal, amount))
	return nil
}

// Transfer moves amount of token from one holder to another
func (s *State) Transfer(token, from, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bal := s.balanceLocked(token, from)
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s holds %s of %s, needs %s", ErrInsufficientBalance, from.Hex(), bal, token.Hex(), amount)
	}
	if from == to {
		return nil
	}
	s.setBalanceLocked(token, from, new(big.Int).Sub(bal, amount))
	s.setBalanceLocked(token, to, new(big.Int).Add(s.balanceLocked(token, to), amount))
	return nil
}

// Emit appends an event to the log
func (s *State) Emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, ev)
	s.journal = append(s.journal, logAppend{})
}

// OnRevert registers fn to run if the current frame is reverted. It lets
// callers journal state kept outside the ledger. fn runs with the ledger
// locked and must not call back into it.
func (s *State) OnRevert(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journal = append(s.journal, revertHook(fn))
}

// Logs returns every event emitted so far
func (s *State) Logs() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, len(s.logs))
	copy(out, s.logs)
	return out
}

// Balances returns a deep copy of all non-zero balances keyed by token then holder
func (s *State) Balances() map[common.Address]map[common.Address]*big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[common.Address]map[common.Address]*big.Int, len(s.balances))
	for token, holders := range s.balances {
		for holder, bal := range holders {
			if bal.Sign() == 0 {
				continue
			}
			if out[token] == nil {
				out[token] = make(map[common.Address]*big.Int)
			}
			out[token][holder] = new(big.Int).Set(bal)
		}
	}
	return out
}

func (s *State) balanceLocked(token, holder common.Address) *big.Int {
	if holders, ok := s.balances[token]; ok {
		if bal, ok := holders[holder]; ok {
			return bal
		}
	}
	return new(big.Int)
}

func (s *State) setBalanceLocked(token, holder common.Address, amount *big.Int) {
	holders, ok := s.balances[token]
	if !ok {
		holders = make(map[common.Address]*big.Int)
		s.balances[token] = holders
	}
	var prev *big.Int
	if bal, ok := holders[holder]; ok {
		prev = bal
	}
	s.journal = append(s.journal, balanceChange{token: token, holder: holder, prev: prev})
	holders[holder] = amount
}
