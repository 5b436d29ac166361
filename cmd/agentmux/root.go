package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentmux/agentmux/internal/config"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "agentmux",
	Short: "Task orchestration engine for AI worker agents",
	Long: `agentmux coordinates independent AI worker agents against one goal:
it analyzes the goal, selects workers by skill, plans a conflict-safe
execution strategy (parallel, sequential, or hybrid groups), executes
with timeouts and retry, lets workers exchange messages through a
shared collaboration store, and aggregates a final answer.

Worker definitions are YAML files in the workers directory; see
'agentmux workers' to inspect what is loaded.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Config file (default: "+config.GetUserConfigPath()+")")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(workersCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads the effective configuration for a command.
func loadConfig() (*config.Config, error) {
	if cfgPath != "" {
		cfg, err := config.LoadFromPath(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		return cfg, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func main() {
	Execute()
}
