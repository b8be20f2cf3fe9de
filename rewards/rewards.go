package rewards

import (
	"errors"
	"fmt"
	"math/big"

	arbmath "github.com/michaelpento.lv/arbengine/utils/math"
)

var (
	ErrInvalidFee = errors.New("invalid fee percentage")
	ErrZeroValue  = errors.New("zero value")
	ErrNoProfit   = errors.New("no profit")
)

// Config controls how arbitrage profit is split between the caller and the burn sink
type Config struct {
	PercentagePPM uint32   `json:"percentage_ppm" yaml:"percentage_ppm"`
	MaxAmount     *big.Int `json:"max_amount" yaml:"max_amount"`
}

// Validate checks the percentage fits in PPM resolution and the cap is positive
func (c Config) Validate() error {
	if c.PercentagePPM > arbmath.PPMResolution {
		return fmt.Errorf("%w: %d ppm", ErrInvalidFee, c.PercentagePPM)
	}
	if !arbmath.IsPositive(c.MaxAmount) {
		return fmt.Errorf("%w: max amount", ErrZeroValue)
	}
	return nil
}

// Equal reports whether both configs hold the same values
func (c Config) Equal(o Config) bool {
	if c.PercentagePPM != o.PercentagePPM {
		return false
	}
	if c.MaxAmount == nil || o.MaxAmount == nil {
		return c.MaxAmount == o.MaxAmount
	}
	return c.MaxAmount.Cmp(o.MaxAmount) == 0
}

// Clone returns a deep copy
func (c Config) Clone() Config {
	return Config{
		PercentagePPM: c.PercentagePPM,
		MaxAmount:     arbmath.Clone(c.MaxAmount),
	}
}

// Apply splits a positive profit into the caller reward and the burn amount.
// The reward is the configured share of the profit, floored and capped at
// MaxAmount; everything else is burned, so the two always sum to profit.
func Apply(profit *big.Int, cfg Config) (reward, burn *big.Int, err error) {
	if !arbmath.IsPositive(profit) {
		return nil, nil, ErrNoProfit
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	reward = arbmath.ApplyPPM(profit, cfg.PercentagePPM)
	if reward.Cmp(cfg.MaxAmount) > 0 {
		reward = new(big.Int).Set(cfg.MaxAmount)
	}
	burn = new(big.Int).Sub(profit, reward)
	return reward, burn, nil
}
