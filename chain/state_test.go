package chain

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tkn   = common.HexToAddress("0x1000000000000000000000000000000000000001")
	alice = common.HexToAddress("0xa11ce00000000000000000000000000000000000")
	bob   = common.HexToAddress("0xb0b0000000000000000000000000000000000000")
)

type testEvent struct{ name string }

func (e testEvent) EventName() string { return e.name }

func TestTransfer(t *testing.T) {
	s := NewState()
	require.NoError(t, s.Mint(tkn, alice, big.NewInt(100)))

	require.NoError(t, s.Transfer(tkn, alice, bob, big.NewInt(40)))
	assert.Equal(t, big.NewInt(60), s.BalanceOf(tkn, alice))
	assert.Equal(t, big.NewInt(40), s.BalanceOf(tkn, bob))

	err := s.Transfer(tkn, bob, alice, big.NewInt(41))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, big.NewInt(40), s.BalanceOf(tkn, bob))

	assert.ErrorIs(t, s.Transfer(tkn, alice, bob, big.NewInt(-1)), ErrNegativeAmount)

	// returned balances are copies
	s.BalanceOf(tkn, alice).SetInt64(0)
	assert.Equal(t, big.NewInt(60), s.BalanceOf(tkn, alice))
}

func TestTransactRevertsOnError(t *testing.T) {
	s := NewState()
	require.NoError(t, s.Mint(tkn, alice, big.NewInt(100)))
	before := s.Balances()

	boom := errors.New("boom")
	err := s.Transact(context.Background(), func(ctx context.Context) error {
		require.True(t, InTransaction(ctx))
		require.NoError(t, s.Transfer(tkn, alice, bob, big.NewInt(30)))
		require.NoError(t, s.Mint(tkn, bob, big.NewInt(5)))
		s.Emit(testEvent{"Moved"})
		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.Equal(t, before, s.Balances())
	assert.Empty(t, s.Logs())
}

func TestTransactCommits(t *testing.T) {
	s := NewState()
	require.NoError(t, s.Mint(tkn, alice, big.NewInt(100)))

	err := s.Transact(context.Background(), func(ctx context.Context) error {
		s.Emit(testEvent{"Moved"})
		return s.Transfer(tkn, alice, bob, big.NewInt(30))
	})
	require.NoError(t, err)

	assert.Equal(t, big.NewInt(70), s.BalanceOf(tkn, alice))
	assert.Equal(t, big.NewInt(30), s.BalanceOf(tkn, bob))
	require.Len(t, s.Logs(), 1)
	assert.Equal(t, "Moved", s.Logs()[0].EventName())
}

func TestNestedFrameRevertsOnlyItself(t *testing.T) {
	s := NewState()
	require.NoError(t, s.Mint(tkn, alice, big.NewInt(100)))

	err := s.Transact(context.Background(), func(ctx context.Context) error {
		require.NoError(t, s.Transfer(tkn, alice, bob, big.NewInt(10)))

		inner := s.Transact(ctx, func(ctx context.Context) error {
			require.NoError(t, s.Transfer(tkn, alice, bob, big.NewInt(20)))
			return errors.New("inner failure")
		})
		assert.Error(t, inner)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, big.NewInt(90), s.BalanceOf(tkn, alice))
	assert.Equal(t, big.NewInt(10), s.BalanceOf(tkn, bob))
}

func TestCallAlwaysReverts(t *testing.T) {
	s := NewState()
	require.NoError(t, s.Mint(tkn, alice, big.NewInt(100)))

	var seen *big.Int
	err := s.Call(context.Background(), func(ctx context.Context) error {
		if err := s.Transfer(tkn, alice, bob, big.NewInt(50)); err != nil {
			return err
		}
		seen = s.BalanceOf(tkn, bob)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, big.NewInt(50), seen)
	assert.Zero(t, s.BalanceOf(tkn, bob).Sign())

	err = s.Call(context.Background(), func(ctx context.Context) error {
		return s.Transfer(tkn, bob, alice, big.NewInt(1))
	})
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestOnRevert(t *testing.T) {
	s := NewState()
	value := "initial"

	set := func(next string) {
		prev := value
		value = next
		s.OnRevert(func() { value = prev })
	}

	err := s.Transact(context.Background(), func(ctx context.Context) error {
		set("committed")
		return s.Transact(ctx, func(ctx context.Context) error {
			set("nested")
			return errors.New("nested failure")
		})
	})
	require.Error(t, err)
	assert.Equal(t, "initial", value)

	err = s.Transact(context.Background(), func(ctx context.Context) error {
		set("committed")
		_ = s.Transact(ctx, func(ctx context.Context) error {
			set("nested")
			return errors.New("nested failure")
		})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "committed", value)

	require.NoError(t, s.Call(context.Background(), func(ctx context.Context) error {
		set("called")
		return nil
	}))
	assert.Equal(t, "committed", value)
}

func TestTransactRevertsOnPanic(t *testing.T) {
	s := NewState()
	require.NoError(t, s.Mint(tkn, alice, big.NewInt(100)))

	assert.Panics(t, func() {
		_ = s.Transact(context.Background(), func(ctx context.Context) error {
			_ = s.Transfer(tkn, alice, bob, big.NewInt(100))
			panic("unexpected")
		})
	})
	assert.Equal(t, big.NewInt(100), s.BalanceOf(tkn, alice))
}

func TestTransactCanceledContext(t *testing.T) {
	s := NewState()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.Transact(ctx, func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestTransactionsAreSerialized(t *testing.T) {
	s := NewState()
	require.NoError(t, s.Mint(tkn, alice, big.NewInt(1000)))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Transact(context.Background(), func(ctx context.Context) error {
				bal := s.BalanceOf(tkn, alice)
				if bal.Sign() == 0 {
					return ErrInsufficientBalance
				}
				return s.Transfer(tkn, alice, bob, big.NewInt(10))
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, big.NewInt(500), s.BalanceOf(tkn, alice))
	assert.Equal(t, big.NewInt(500), s.BalanceOf(tkn, bob))
}

func TestWrapUnwrap(t *testing.T) {
	native := common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")
	weth := common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")

	s := NewState()
	require.NoError(t, s.Mint(native, alice, big.NewInt(10)))

	require.NoError(t, s.Wrap(native, weth, alice, big.NewInt(4)))
	assert.Equal(t, big.NewInt(6), s.BalanceOf(native, alice))
	assert.Equal(t, big.NewInt(4), s.BalanceOf(weth, alice))
	assert.Equal(t, big.NewInt(4), s.BalanceOf(native, weth))

	require.NoError(t, s.Unwrap(native, weth, alice, big.NewInt(3)))
	assert.Equal(t, big.NewInt(9), s.BalanceOf(native, alice))
	assert.Equal(t, big.NewInt(1), s.BalanceOf(weth, alice))

	assert.ErrorIs(t, s.Unwrap(native, weth, alice, big.NewInt(2)), ErrInsufficientBalance)
}
