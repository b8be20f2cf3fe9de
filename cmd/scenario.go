package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbengine/simulator"
	"github.com/michaelpento.lv/arbengine/strategies/arbitrage"
	"github.com/michaelpento.lv/arbengine/utils"
	"github.com/michaelpento.lv/arbengine/utils/metrics"
)

var dumpMetrics bool

var runCmd = &cobra.Command{
	Use:   "run <scenario.yaml>",
	Short: "Execute the route plan of a scenario",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := utils.GetLogger()

		world, err := buildWorld(cmd, args[0])
		if err != nil {
			return err
		}

		caller, routes, principal, err := world.Plan()
		if err != nil {
			return err
		}

		event, err := world.Engine.Execute(cmd.Context(), caller, routes, principal)
		if err != nil {
			log.Error("Execution failed", zap.Error(err))
			return err
		}

		out := cmd.OutOrStdout()
		printEvent(out, world, event)
		if dumpMetrics {
			return printMetrics(out, world.Registry)
		}
		return nil
	},
}

var simulateCmd = &cobra.Command{
	Use:   "simulate <scenario.yaml>",
	Short: "Dry-run the route plan of a scenario without changing state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		world, err := buildWorld(cmd, args[0])
		if err != nil {
			return err
		}

		caller, routes, principal, err := world.Plan()
		if err != nil {
			return err
		}

		result, err := world.Simulator().Simulate(cmd.Context(), caller, routes, principal)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "gas limit:     %d\n", result.GasLimit)
		fmt.Fprintf(out, "gas cost:      %s ETH\n", simulator.FormatAmount(result.GasCost, 18))
		if !result.Success {
			fmt.Fprintf(out, "result:        reverted: %v\n", result.Error)
		} else {
			fmt.Fprintln(out, "result:        success")
			printEvent(out, world, result.Event)
		}

		if dumpMetrics {
			return printMetrics(out, world.Registry)
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{runCmd, simulateCmd} {
		c.Flags().BoolVar(&dumpMetrics, "metrics", false, "print collected metrics")
		rootCmd.AddCommand(c)
	}
}

func buildWorld(cmd *cobra.Command, path string) (*simulator.World, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	sc, err := simulator.LoadScenario(path)
	if err != nil {
		return nil, err
	}

	world, err := simulator.NewWorld(cmd.Context(), sc, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build scenario world: %w", err)
	}
	if sc.Gas.BaseFeeGwei == "" && sc.Gas.PriorityFeeGwei == "" {
		world.Gas.SetPrices(cfg.Gas.BaseFee, cfg.Gas.PriorityFee)
	}
	return world, nil
}

func printEvent(out io.Writer, world *simulator.World, ev *arbitrage.ArbitrageExecuted) {
	base := ev.SourceToken
	for i, hop := range ev.Hops {
		fmt.Fprintf(out, "hop %d %-11s %s -> %s\n", i, hop.PlatformID,
			world.Format(hop.SourceToken, hop.SourceAmount),
			world.Format(hop.TargetToken, hop.TargetAmount))
	}
	fmt.Fprintf(out, "principal:     %s\n", world.Format(base, ev.Principal))
	fmt.Fprintf(out, "flash loan fee: %s\n", world.Format(base, ev.FlashLoanFee))
	fmt.Fprintf(out, "profit:        %s\n", world.Format(base, ev.TotalProfit))
	fmt.Fprintf(out, "caller reward: %s\n", world.Format(base, ev.CallerReward))
	fmt.Fprintf(out, "burned:        %s\n", world.Format(base, ev.BurnAmount))
}

func printMetrics(out io.Writer, g prometheus.Gatherer) error {
	values, err := metrics.Snapshot(g)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(out, "%s %g\n", name, values[name])
	}
	return nil
}
