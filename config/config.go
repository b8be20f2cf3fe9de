package config

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbengine/dex/bancor"
	"github.com/michaelpento.lv/arbengine/dex/uniswap"
	"github.com/michaelpento.lv/arbengine/flashloan"
	"github.com/michaelpento.lv/arbengine/rewards"
	arbmath "github.com/michaelpento.lv/arbengine/utils/math"
	"github.com/michaelpento.lv/arbengine/utils/metrics"
)

const defaultConfigFile = ".arbengine.json"

type Config struct {
	// Accounts and tokens
	Engine EngineConfig `json:"engine"`

	// Profit split between caller and burn
	Rewards rewards.Config `json:"rewards"`

	FlashLoan FlashLoanConfig `json:"flash_loan"`
	Gas       GasConfig       `json:"gas"`
	Metrics   MetricsConfig   `json:"metrics"`

	Debug bool `json:"debug"`

	// Internal components
	Logger *zap.Logger `json:"-"`
}

type EngineConfig struct {
	Address common.Address `json:"address"`
	Admin   common.Address `json:"admin"`
	BNT     common.Address `json:"bnt"`
	WETH    common.Address `json:"weth"`
}

type FlashLoanConfig struct {
	FeePPM    uint32  `json:"fee_ppm"`
	RateLimit float64 `json:"rate_limit"` // loans per second, 0 is unlimited
	Burst     int     `json:"burst"`
}

// GasConfig holds fee levels in wei
type GasConfig struct {
	BaseFee     *big.Int `json:"base_fee"`
	PriorityFee *big.Int `json:"priority_fee"`
}

type MetricsConfig struct {
	Enabled   bool   `json:"enabled"`
	Namespace string `json:"namespace"`
}

func (c *Config) ValidateConfig() error {
	var errors []string

	if err := c.Engine.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("engine config error: %v", err))
	}
	if err := c.Rewards.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("rewards config error: %v", err))
	}
	if err := c.FlashLoan.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("flash loan config error: %v", err))
	}
	if err := c.Gas.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("gas config error: %v", err))
	}
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		errors = append(errors, "metrics namespace must be specified when metrics are enabled")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (e *EngineConfig) Validate() error {
	if e.Address == (common.Address{}) {
		return fmt.Errorf("engine address must be specified")
	}
	if e.Admin == (common.Address{}) {
		return fmt.Errorf("admin address must be specified")
	}
	if e.BNT == (common.Address{}) {
		return fmt.Errorf("BNT address must be specified")
	}
	if e.WETH == (common.Address{}) {
		return fmt.Errorf("WETH address must be specified")
	}
	return nil
}

func (f *FlashLoanConfig) Validate() error {
	if f.FeePPM > arbmath.PPMResolution {
		return fmt.Errorf("fee must not exceed %d ppm", arbmath.PPMResolution)
	}
	if f.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	if f.RateLimit > 0 && f.Burst <= 0 {
		return fmt.Errorf("burst must be positive when rate limited")
	}
	return nil
}

// Provider returns the flash loan manager settings
func (f *FlashLoanConfig) Provider() flashloan.ProviderConfig {
	return flashloan.ProviderConfig{
		RateLimit: f.RateLimit,
		Burst:     f.Burst,
	}
}

func (g *GasConfig) Validate() error {
	if g.BaseFee != nil && g.BaseFee.Sign() < 0 {
		return fmt.Errorf("base fee must not be negative")
	}
	if g.PriorityFee != nil && g.PriorityFee.Sign() < 0 {
		return fmt.Errorf("priority fee must not be negative")
	}
	return nil
}

// DefaultPath returns the config file used when none is given
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, defaultConfigFile), nil
}

func LoadConfig(cfgFile string) (*Config, error) {
	if cfgFile == "" {
		path, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		cfgFile = path
	}

	file, err := os.Open(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	config := DefaultConfig()
	if err := json.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}

	// Validate configuration
	if err := config.ValidateConfig(); err != nil {
		return nil, err
	}

	return config, nil
}

func SaveConfig(cfg *Config, cfgFile string) error {
	if cfgFile == "" {
		path, err := DefaultPath()
		if err != nil {
			return err
		}
		cfgFile = path
	}

	file, err := os.Create(cfgFile)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "    ")
	return encoder.Encode(cfg)
}

func DefaultConfig() *Config {
	return &Config{
		Logger: zap.NewNop(),
		Engine: EngineConfig{
			Address: common.HexToAddress("0x00000000000000000000000000000000000A4b17"),
			Admin:   common.HexToAddress("0x000000000000000000000000000000000000AD11"),
			BNT:     bancor.BNT,
			WETH:    uniswap.WETHAddress,
		},
		Rewards: rewards.Config{
			PercentagePPM: 100_000,                                  // 10%
			MaxAmount:     new(big.Int).Mul(big.NewInt(100), ether), // 100 BNT
		},
		FlashLoan: FlashLoanConfig{
			FeePPM:    0,
			RateLimit: 0,
			Burst:     0,
		},
		Gas: GasConfig{
			BaseFee:     big.NewInt(30_000_000_000), // 30 Gwei
			PriorityFee: big.NewInt(2_000_000_000),  // 2 Gwei
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Namespace: metrics.DefaultNamespace,
		},
	}
}

var ether = big.NewInt(1_000_000_000_000_000_000)
