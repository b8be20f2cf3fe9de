package flashloan

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/michaelpento.lv/arbengine/utils/metrics"
)

// FlashLoanManager coordinates flash loan operations across providers
type FlashLoanManager struct {
	mu        sync.RWMutex
	providers []Provider
	limiter   *rate.Limiter
	metrics   *metrics.FlashLoanMetrics
	logger    *zap.Logger
}

// NewFlashLoanManager creates a new flash loan manager. A zero RateLimit
// leaves loans unthrottled.
func NewFlashLoanManager(cfg ProviderConfig, m *metrics.FlashLoanMetrics, logger *zap.Logger) *FlashLoanManager {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &FlashLoanManager{
		limiter: rate.NewLimiter(limit, burst),
		metrics: m,
		logger:  logger,
	}
}

// AddProvider adds a new flash loan provider
func (m *FlashLoanManager) AddProvider(provider Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers = append(m.providers, provider)
}

// Providers returns the registered providers
func (m *FlashLoanManager) Providers() []Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Provider, len(m.providers))
	copy(out, m.providers)
	return out
}

// SelectProvider returns the cheapest provider able to lend amount of token
func (m *FlashLoanManager) SelectProvider(ctx context.Context, token common.Address, amount *big.Int) (Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.providers) == 0 {
		return nil, ErrNoProvider
	}

	var (
		bestProvider Provider
		bestFee      *big.Int
		shortfall    bool
	)

	for _, provider := range m.providers {
		liquidity, err := provider.GetLiquidity(ctx, token)
		if err != nil {
			m.logger.Warn("Failed to get provider liquidity", zap.String("provider", provider.String()), zap.Error(err))
			continue
		}
		if liquidity.Cmp(amount) < 0 {
			shortfall = true
			continue
		}

		fee, err := provider.GetFlashLoanFee(ctx, token, amount)
		if err != nil {
			m.logger.Warn("Failed to get provider fee", zap.String("provider", provider.String()), zap.Error(err))
			continue
		}

		if bestFee == nil || fee.Cmp(bestFee) < 0 {
			bestProvider = provider
			bestFee = fee
		}
	}

	if bestProvider == nil {
		if shortfall {
			return nil, ErrInsufficientLiquidity
		}
		return nil, ErrNoProvider
	}

	m.metrics.ProviderSelections.WithLabelValues(bestProvider.String()).Inc()
	return bestProvider, nil
}

// ExecuteFlashLoan borrows through provider and returns the fee that was paid
func (m *FlashLoanManager) ExecuteFlashLoan(ctx context.Context, provider Provider, params Params) (*big.Int, error) {
	if params.Amount == nil || params.Amount.Sign() <= 0 {
		m.metrics.Errors.WithLabelValues("invalid_amount").Inc()
		return nil, ErrZeroAmount
	}
	if !m.limiter.Allow() {
		m.metrics.Errors.WithLabelValues("rate_limited").Inc()
		return nil, ErrRateLimited
	}

	start := time.Now()
	defer func() {
		m.metrics.ExecutionLatency.Observe(time.Since(start).Seconds())
	}()

	m.metrics.ActiveLoans.Inc()
	defer m.metrics.ActiveLoans.Dec()

	fee, err := provider.GetFlashLoanFee(ctx, params.Token, params.Amount)
	if err != nil {
		m.metrics.Errors.WithLabelValues("fee_lookup").Inc()
		return nil, fmt.Errorf("failed to get flash loan fee: %w", err)
	}

	if err := provider.FlashLoan(ctx, params); err != nil {
		errType := "execution"
		if errors.Is(err, ErrInsufficientLiquidity) {
			errType = "liquidity"
		}
		m.metrics.Errors.WithLabelValues(errType).Inc()
		return nil, fmt.Errorf("failed to execute flash loan: %w", err)
	}

	totalRepayment := new(big.Int).Add(params.Amount, fee)
	volume, _ := new(big.Float).SetInt(totalRepayment).Float64()
	m.metrics.TotalVolume.Add(volume)
	feeVolume, _ := new(big.Float).SetInt(fee).Float64()
	m.metrics.FeesPaid.Add(feeVolume)

	m.logger.Debug("Flash loan repaid",
		zap.String("provider", provider.String()),
		zap.Stringer("token", params.Token),
		zap.Stringer("amount", params.Amount),
		zap.Stringer("fee", fee))

	return fee, nil
}
