package cmd

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbengine/chain"
	"github.com/michaelpento.lv/arbengine/config"
	"github.com/michaelpento.lv/arbengine/rewards"
	"github.com/michaelpento.lv/arbengine/simulator"
	"github.com/michaelpento.lv/arbengine/strategies/arbitrage"
	"github.com/michaelpento.lv/arbengine/utils"
	"github.com/michaelpento.lv/arbengine/utils/metrics"
)

var (
	rewardsPPM    uint32
	rewardsMax    string
	rewardsSender string
)

var rewardsCmd = &cobra.Command{
	Use:   "rewards",
	Short: "Show or update the caller rewards settings",
}

var rewardsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the rewards settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "percentage: %s%% (%d ppm)\n", simulator.FormatAmount(big.NewInt(int64(cfg.Rewards.PercentagePPM)), 4), cfg.Rewards.PercentagePPM)
		fmt.Fprintf(out, "max amount: %s BNT\n", simulator.FormatAmount(cfg.Rewards.MaxAmount, 18))
		return nil
	},
}

var rewardsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update the rewards settings in the config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		next := cfg.Rewards.Clone()
		if cmd.Flags().Changed("ppm") {
			next.PercentagePPM = rewardsPPM
		}
		if cmd.Flags().Changed("max") {
			maxAmount, ok := new(big.Int).SetString(rewardsMax, 10)
			if !ok {
				return fmt.Errorf("invalid max amount %q", rewardsMax)
			}
			next.MaxAmount = maxAmount
		}
		sender := cfg.Engine.Admin
		if cmd.Flags().Changed("sender") {
			if !common.IsHexAddress(rewardsSender) {
				return fmt.Errorf("invalid sender address %q", rewardsSender)
			}
			sender = common.HexToAddress(rewardsSender)
		}

		updated, err := applyRewards(cmd.Context(), cfg, sender, next)
		if err != nil {
			return err
		}
		if updated == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "rewards unchanged")
			return nil
		}

		path, err := configPath()
		if err != nil {
			return err
		}
		cfg.Rewards = next
		if err := config.SaveConfig(cfg, path); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		utils.GetLogger().Info("Rewards config updated",
			zap.String("path", path),
			zap.Uint32("percentagePPM", next.PercentagePPM),
			zap.Stringer("maxAmount", next.MaxAmount))
		fmt.Fprintf(cmd.OutOrStdout(), "rewards updated: %d ppm, max %s (was %d ppm, max %s)\n",
			updated.NewPercentagePPM, updated.NewMaxAmount, updated.PrevPercentagePPM, updated.PrevMaxAmount)
		return nil
	},
}

// applyRewards runs the update through an engine loaded with the current
// settings so the admin check applies. It returns nil when nothing changed.
func applyRewards(ctx context.Context, cfg *config.Config, sender common.Address, next rewards.Config) (*arbitrage.RewardsConfigUpdated, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	state := chain.NewState()
	engine, err := arbitrage.NewEngine(arbitrage.Config{
		Address:   cfg.Engine.Address,
		Admin:     cfg.Engine.Admin,
		BaseToken: cfg.Engine.BNT,
		Rewards:   cfg.Rewards,
	}, state, nil, nil, metrics.NewEngineMetrics(prometheus.NewRegistry(), cfg.Metrics.Namespace), cfg.Logger)
	if err != nil {
		return nil, err
	}

	if err := engine.SetRewards(ctx, sender, next); err != nil {
		return nil, err
	}
	for _, ev := range state.Logs() {
		if updated, ok := ev.(arbitrage.RewardsConfigUpdated); ok {
			return &updated, nil
		}
	}
	return nil, nil
}

func init() {
	rewardsSetCmd.Flags().Uint32Var(&rewardsPPM, "ppm", 0, "caller share of the profit in ppm")
	rewardsSetCmd.Flags().StringVar(&rewardsMax, "max", "", "caller reward cap in base units")
	rewardsSetCmd.Flags().StringVar(&rewardsSender, "sender", "", "account making the change (default is the configured admin)")

	rewardsCmd.AddCommand(rewardsShowCmd, rewardsSetCmd)
	rootCmd.AddCommand(rewardsCmd)
}
