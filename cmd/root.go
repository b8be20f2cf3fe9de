package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbengine/config"
	"github.com/michaelpento.lv/arbengine/utils"
)

var (
	cfgFile string
	debug   bool
	logFile string
)

var rootCmd = &cobra.Command{
	Use:   "arbengine",
	Short: "A flash loan funded multi-hop arbitrage engine",
	Long: `A CLI for an arbitrage engine that borrows BNT with a flash loan, trades it
through a route of Bancor, Uniswap and SushiSwap hops, repays the loan and splits
the profit between the caller and the burn address.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.arbengine.json)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", utils.DefaultLogFile, "log file, errors also go to its -error sibling (empty for console only)")
}

func initConfig() {
	envErr := config.LoadEnv()

	file := logFile
	if !rootCmd.PersistentFlags().Changed("log-file") {
		file = config.GetEnvWithDefault(config.EnvLogFile, logFile)
	}
	utils.InitLogger(utils.LogOptions{Debug: debug, File: file})

	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		utils.GetLogger().Warn("Failed to load .env", zap.Error(envErr))
	}
}

// loadConfig reads the config file. A missing default file falls back to the
// built-in defaults.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err == nil {
		if cfg.Debug {
			utils.SetDebug(true)
		}
		cfg.Logger = utils.GetLogger()
		return cfg, nil
	}
	if cfgFile != "" || !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	cfg = config.DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.ValidateConfig(); err != nil {
		return nil, err
	}
	cfg.Logger = utils.GetLogger()
	return cfg, nil
}

// configPath returns the file rewards set writes to
func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.DefaultPath()
}
