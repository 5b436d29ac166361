package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/agentmux/agentmux/internal/state"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List persisted runs from the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path := cfg.Ledger.Path
		if path == "" {
			path = state.DefaultPath()
		}
		db, err := state.Open(path)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(); err != nil {
			return err
		}

		runs, err := db.ListRuns(historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("no runs recorded")
			return nil
		}
		for _, r := range runs {
			line := fmt.Sprintf("%s  %-9s %-10s %6s  %s",
				r.StartedAt.Local().Format("2006-01-02 15:04"),
				r.Status, r.Strategy, r.Duration.Round(time.Millisecond), r.Goal)
			switch r.Status {
			case "completed":
				color.Green(line)
			case "cancelled":
				color.Yellow(line)
			default:
				color.Red(line)
			}
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of runs to show")
}
