package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/agentmux/agentmux/internal/orchestrator"
	"github.com/agentmux/agentmux/internal/state"
	"github.com/agentmux/agentmux/pkg/models"
)

var (
	runAgents   []string
	runStrategy string
	runTimeout  time.Duration
	runNoSave   bool
)

var runCmd = &cobra.Command{
	Use:   "run <goal>",
	Short: "Orchestrate a goal across the configured workers",
	Long: `Run a goal through the orchestration engine.

The goal is analyzed for skill keywords and resource scopes, matching
workers are selected, and a conflict-safe execution strategy is chosen:
workers with disjoint resource scopes run in parallel, conflicting ones
are serialized, and mixed sets run as hybrid groups.

Ctrl-C cancels cooperatively: running workers get a grace period to
finish, and whatever partial output they produced is preserved in the
final result.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGoal,
}

func init() {
	runCmd.Flags().StringSliceVar(&runAgents, "agents", nil, "Force specific worker ids instead of skill selection")
	runCmd.Flags().StringVar(&runStrategy, "strategy", "", "Force strategy: parallel, sequential, or hybrid")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Bound the whole run (0 = unbounded)")
	runCmd.Flags().BoolVar(&runNoSave, "no-save", false, "Skip persisting the run to the ledger")
}

func runGoal(cmd *cobra.Command, args []string) error {
	goal := strings.Join(args, " ")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runStrategy != "" && !models.Strategy(runStrategy).Valid() {
		return fmt.Errorf("unknown strategy %q (want parallel, sequential, or hybrid)", runStrategy)
	}

	reg, err := buildRegistry(cfg)
	if err != nil {
		return err
	}
	orch, err := buildOrchestrator(cfg, reg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runTimeout)
		defer cancel()
	}

	// Ctrl-C cancels cooperatively.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		color.Yellow("cancelling, waiting for running workers...")
		orch.Cancel()
	}()

	go printEvents(orch.Events())

	res, err := orch.RunWith(ctx, goal, orchestrator.RunOptions{
		Workers:  runAgents,
		Strategy: models.Strategy(runStrategy),
	})
	if err != nil {
		return err
	}

	printResult(res)

	if !runNoSave && !cfg.Ledger.Disabled {
		if err := saveRun(cfg.Ledger.Path, res); err != nil {
			color.Yellow("warning: could not persist run: %v", err)
		}
	}
	if res.Status != orchestrator.RunCompleted {
		os.Exit(1)
	}
	return nil
}

// printEvents streams run progress to the terminal.
func printEvents(events <-chan orchestrator.Event) {
	for ev := range events {
		switch ev.Type {
		case orchestrator.EventPhaseChanged:
			color.Cyan("phase: %s", ev.Phase)
		case orchestrator.EventWorkerStarted:
			fmt.Printf("  %s started\n", ev.WorkerID)
		case orchestrator.EventWorkerCompleted:
			color.Green("  %s completed", ev.WorkerID)
		case orchestrator.EventWorkerFailed:
			color.Red("  %s failed: %v", ev.WorkerID, ev.Error)
		case orchestrator.EventWorkerCancelled:
			color.Yellow("  %s cancelled %s", ev.WorkerID, ev.Message)
		}
	}
}

// printResult renders the final summary.
func printResult(res *orchestrator.RunResult) {
	fmt.Println()
	switch res.Status {
	case orchestrator.RunCompleted:
		color.Green("run %s completed (%s, %s)", res.RunID[:8], res.Strategy, res.Duration.Round(time.Millisecond))
	case orchestrator.RunPartial:
		color.Yellow("run %s finished with failures (%s, %s)", res.RunID[:8], res.Strategy, res.Duration.Round(time.Millisecond))
	case orchestrator.RunCancelled:
		color.Yellow("run %s cancelled (%s, %s)", res.RunID[:8], res.Strategy, res.Duration.Round(time.Millisecond))
	}
	fmt.Printf("workers: %s\n\n", strings.Join(res.WorkersUsed, ", "))
	if res.Summary != "" {
		fmt.Println(res.Summary)
	}
}

// saveRun appends the run to the SQLite ledger.
func saveRun(path string, res *orchestrator.RunResult) error {
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
	return db.SaveRun(res)
}
