package cmd

import (
	"bytes"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelpento.lv/arbengine/config"
	"github.com/michaelpento.lv/arbengine/strategies/arbitrage"
)

const testScenario = `
tokens:
  - symbol: BNT
    decimals: 0
  - symbol: TKN
    address: "0x1000000000000000000000000000000000000001"
    decimals: 0
liquidity_provider: "0x3000000000000000000000000000000000000003"
balances:
  - holder: "0x3000000000000000000000000000000000000003"
    token: BNT
    amount: "3000000"
  - holder: "0x3000000000000000000000000000000000000003"
    token: TKN
    amount: "2000000"
flash_loan:
  fee_ppm: 2000
  vault: "100000"
pools:
  bancor_v3:
    - token: TKN
      trading_fee_ppm: 2000
      token_liquidity: "1000000"
      bnt_liquidity: "1000000"
  uniswap_v2:
    - token_a: TKN
      token_b: BNT
      amount_a: "1000000"
      amount_b: "1100000"
rewards:
  percentage_ppm: 30000
  max_amount: "100"
plan:
  caller: "0xCA00000000000000000000000000000000000001"
  principal: "1000"
  routes:
    - platform: bancor_v3
      source: BNT
      target: TKN
    - platform: uniswap_v2
      source: TKN
      target: BNT
`

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "arbengine-cmd")
	if err != nil {
		panic(err)
	}
	os.Setenv(config.EnvLogFile, filepath.Join(dir, "arbengine.log"))

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

func setup(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	cfgPath := filepath.Join(dir, "config.json")
	require.NoError(t, config.SaveConfig(config.DefaultConfig(), cfgPath))

	scenarioPath := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(scenarioPath, []byte(testScenario), 0o600))

	return cfgPath, scenarioPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSimulateCommand(t *testing.T) {
	cfgPath, scenarioPath := setup(t)

	out, err := run(t, "--config", cfgPath, "simulate", scenarioPath, "--metrics")
	require.NoError(t, err)

	assert.Contains(t, out, "result:        success")
	assert.Contains(t, out, "91 BNT")
	assert.Contains(t, out, "gas limit:     411000")
	assert.Contains(t, out, "arbengine_engine_attempts_total 1")
}

func TestRunCommand(t *testing.T) {
	cfgPath, scenarioPath := setup(t)

	out, err := run(t, "--config", cfgPath, "run", scenarioPath)
	require.NoError(t, err)
	assert.Contains(t, out, "caller reward: 2 BNT")
	assert.Contains(t, out, "burned:        89 BNT")

	_, err = os.Stat(os.Getenv(config.EnvLogFile))
	assert.NoError(t, err, "log file comes from the environment")

	_, err = run(t, "--config", cfgPath, "run", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRewardsCommands(t *testing.T) {
	cfgPath, _ := setup(t)

	out, err := run(t, "--config", cfgPath, "rewards", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "(100000 ppm)")
	assert.Contains(t, out, "100 BNT")

	out, err = run(t, "--config", cfgPath, "rewards", "set", "--ppm", "25000", "--max", "5000")
	require.NoError(t, err)
	assert.Contains(t, out, "rewards updated: 25000 ppm, max 5000 (was 100000 ppm, max 100000000000000000000)")

	cfg, err := config.LoadConfig(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, uint32(25_000), cfg.Rewards.PercentagePPM)
	assert.Equal(t, big.NewInt(5000), cfg.Rewards.MaxAmount)

	out, err = run(t, "--config", cfgPath, "rewards", "set", "--ppm", "25000")
	require.NoError(t, err)
	assert.Contains(t, out, "rewards unchanged")

	_, err = run(t, "--config", cfgPath, "rewards", "set", "--ppm", "2000000")
	assert.ErrorIs(t, err, arbitrage.ErrInvalidFee)

	// only the configured admin may change the settings
	_, err = run(t, "--config", cfgPath, "rewards", "set", "--ppm", "1000",
		"--sender", "0xCA00000000000000000000000000000000000001")
	assert.ErrorIs(t, err, arbitrage.ErrAccessDenied)

	_, err = run(t, "--config", cfgPath, "rewards", "set", "--ppm", "1000", "--sender", "nobody")
	assert.Error(t, err)

	cfg, err = config.LoadConfig(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, uint32(25_000), cfg.Rewards.PercentagePPM)
}
