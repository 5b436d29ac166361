package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/agentmux/agentmux/internal/worker"
)

var workersCmd = &cobra.Command{
	Use:   "workers",
	Short: "List the configured worker definitions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		specs, err := worker.LoadSpecs(cfg.Workers.Dir)
		if err != nil {
			return err
		}
		if len(specs) == 0 {
			fmt.Printf("no workers defined in %s\n", cfg.Workers.Dir)
			return nil
		}

		for _, s := range specs {
			name := s.ID
			if s.ID == cfg.Defaults.Worker {
				name += " (default)"
			}
			if s.Critical {
				color.New(color.FgRed, color.Bold).Println(name)
			} else {
				color.New(color.Bold).Println(name)
			}
			fmt.Printf("  skills: %s\n", strings.Join(s.Skills, ", "))
			if len(s.Scopes) > 0 {
				fmt.Printf("  scopes: %s\n", strings.Join(s.Scopes, ", "))
			}
			if s.Description != "" {
				fmt.Printf("  %s\n", s.Description)
			}
		}
		return nil
	},
}
