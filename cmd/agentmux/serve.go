package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/agentmux/agentmux/internal/tool"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve orchestration as a tool over stdin/stdout",
	Long: `Read newline-delimited JSON tool requests on stdin and write one JSON
response per line to stdout. A request carries {"goal", "agents"?,
"strategy"?, "timeout"?}; a response carries {"status", "results",
"execution_time"} or a structured error.

Worker definitions are watched for changes while serving when
workers.watch is enabled.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reg, err := buildRegistry(cfg)
		if err != nil {
			return err
		}
		if cfg.Workers.Watch {
			watcher, err := watchWorkers(cfg, reg)
			if err != nil {
				return err
			}
			defer watcher.Close()
		}
		orch, err := buildOrchestrator(cfg, reg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return tool.NewHandler(orch).Serve(ctx, os.Stdin, os.Stdout)
	},
}
