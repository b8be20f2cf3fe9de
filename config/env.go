package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

// Environment variables
const (
	EnvAdmin           = "ARB_ADMIN"
	EnvRewardsPPM      = "ARB_REWARDS_PPM"
	EnvRewardsMax      = "ARB_REWARDS_MAX" // base units
	EnvFlashLoanFeePPM = "ARB_FLASHLOAN_FEE_PPM"
	EnvLogFile         = "ARB_LOG_FILE"
)

// LoadEnv loads environment variables from .env files, the one in the working
// directory when none are given. Variables already set are kept.
func LoadEnv(files ...string) error {
	return godotenv.Load(files...)
}

// GetEnvWithDefault gets an environment variable with a default value
func GetEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// ApplyEnv overrides config values with the ones set in the environment
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvAdmin); v != "" {
		if !common.IsHexAddress(v) {
			return fmt.Errorf("%s: invalid address %q", EnvAdmin, v)
		}
		c.Engine.Admin = common.HexToAddress(v)
	}

	if v := os.Getenv(EnvRewardsPPM); v != "" {
		ppm, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRewardsPPM, err)
		}
		c.Rewards.PercentagePPM = uint32(ppm)
	}

	if v := os.Getenv(EnvRewardsMax); v != "" {
		maxAmount, ok := new(big.Int).SetString(v, 10)
		if !ok {
			return fmt.Errorf("%s: invalid amount %q", EnvRewardsMax, v)
		}
		c.Rewards.MaxAmount = maxAmount
	}

	if v := os.Getenv(EnvFlashLoanFeePPM); v != "" {
		ppm, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvFlashLoanFeePPM, err)
		}
		c.FlashLoan.FeePPM = uint32(ppm)
	}

	return nil
}
