package flashloan

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/michaelpento.lv/arbengine/utils/metrics"
)

var token = common.HexToAddress("0x1F573D6Fb3F13d689FF844B4cE37794d79a7FF1C")

// mockProvider implements the Provider interface for testing
type mockProvider struct {
	name        string
	address     common.Address
	liquidity   *big.Int
	loanFee     *big.Int
	shouldError bool
	executed    int
}

func (m *mockProvider) Address() common.Address { return m.address }

func (m *mockProvider) FlashLoan(ctx context.Context, params Params) error {
	m.executed++
	if m.shouldError {
		return errors.New("mock error")
	}
	return params.Recipient.OnFlashLoan(ctx, m.address, params.Initiator, params.Token, params.Amount, m.loanFee, params.Data)
}

func (m *mockProvider) GetFlashLoanFee(ctx context.Context, token common.Address, amount *big.Int) (*big.Int, error) {
	return m.loanFee, nil
}

func (m *mockProvider) GetLiquidity(ctx context.Context, token common.Address) (*big.Int, error) {
	return m.liquidity, nil
}

func (m *mockProvider) String() string { return m.name }

type mockBorrower struct {
	calls int
	data  []byte
}

func (b *mockBorrower) Address() common.Address { return common.HexToAddress("0xb0") }

func (b *mockBorrower) OnFlashLoan(ctx context.Context, sender, initiator, token common.Address, amount, fee *big.Int, data []byte) error {
	b.calls++
	b.data = data
	return nil
}

func newTestManager(t *testing.T, cfg ProviderConfig) (*FlashLoanManager, *metrics.FlashLoanMetrics) {
	m := metrics.NewFlashLoanMetrics(prometheus.NewRegistry(), "test")
	return NewFlashLoanManager(cfg, m, zaptest.NewLogger(t)), m
}

func TestSelectProvider(t *testing.T) {
	manager, m := newTestManager(t, ProviderConfig{})

	_, err := manager.SelectProvider(context.Background(), token, big.NewInt(1))
	assert.ErrorIs(t, err, ErrNoProvider)

	expensive := &mockProvider{name: "expensive", liquidity: big.NewInt(1_000_000), loanFee: big.NewInt(20)}
	cheap := &mockProvider{name: "cheap", liquidity: big.NewInt(1_000_000), loanFee: big.NewInt(10)}
	shallow := &mockProvider{name: "shallow", liquidity: big.NewInt(100), loanFee: big.NewInt(0)}
	manager.AddProvider(expensive)
	manager.AddProvider(cheap)
	manager.AddProvider(shallow)
	assert.Len(t, manager.Providers(), 3)

	best, err := manager.SelectProvider(context.Background(), token, big.NewInt(1000))
	require.NoError(t, err)
	assert.Same(t, cheap, best)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ProviderSelections.WithLabelValues("cheap")))

	// the zero fee provider wins when it can cover the loan
	best, err = manager.SelectProvider(context.Background(), token, big.NewInt(100))
	require.NoError(t, err)
	assert.Same(t, shallow, best)

	_, err = manager.SelectProvider(context.Background(), token, big.NewInt(1_000_001))
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)
}

func TestExecuteFlashLoan(t *testing.T) {
	manager, m := newTestManager(t, ProviderConfig{})
	provider := &mockProvider{name: "mock", liquidity: big.NewInt(1_000_000), loanFee: big.NewInt(2)}
	borrower := &mockBorrower{}

	fee, err := manager.ExecuteFlashLoan(context.Background(), provider, Params{
		Token:     token,
		Amount:    big.NewInt(1000),
		Recipient: borrower,
		Data:      []byte{1, 2, 3},
	})
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(2), fee)
	assert.Equal(t, 1, borrower.calls)
	assert.Equal(t, []byte{1, 2, 3}, borrower.data)
	assert.Equal(t, float64(1002), testutil.ToFloat64(m.TotalVolume))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.FeesPaid))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.ActiveLoans))

	provider.shouldError = true
	_, err = manager.ExecuteFlashLoan(context.Background(), provider, Params{
		Token: token, Amount: big.NewInt(1000), Recipient: borrower,
	})
	require.Error(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Errors.WithLabelValues("execution")))

	_, err = manager.ExecuteFlashLoan(context.Background(), provider, Params{
		Token: token, Amount: big.NewInt(0), Recipient: borrower,
	})
	assert.ErrorIs(t, err, ErrZeroAmount)
	assert.Equal(t, 2, provider.executed)
}

func TestExecuteFlashLoanRateLimited(t *testing.T) {
	manager, m := newTestManager(t, ProviderConfig{RateLimit: 0.001, Burst: 1})
	provider := &mockProvider{name: "mock", liquidity: big.NewInt(1_000_000), loanFee: big.NewInt(0)}
	params := Params{Token: token, Amount: big.NewInt(1), Recipient: &mockBorrower{}}

	_, err := manager.ExecuteFlashLoan(context.Background(), provider, params)
	require.NoError(t, err)

	_, err = manager.ExecuteFlashLoan(context.Background(), provider, params)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 1, provider.executed)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Errors.WithLabelValues("rate_limited")))
}

func BenchmarkSelectProvider(b *testing.B) {
	manager := NewFlashLoanManager(ProviderConfig{}, metrics.NewFlashLoanMetrics(prometheus.NewRegistry(), "bench"), zaptest.NewLogger(b))
	manager.AddProvider(&mockProvider{name: "mock", liquidity: big.NewInt(1_000_000), loanFee: big.NewInt(1)})

	amount := big.NewInt(1000)
	for i := 0; i < b.N; i++ {
		_, _ = manager.SelectProvider(context.Background(), token, amount)
	}
}
