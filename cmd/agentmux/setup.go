package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/agentmux/agentmux/internal/config"
	"github.com/agentmux/agentmux/internal/invoker"
	"github.com/agentmux/agentmux/internal/orchestrator"
	"github.com/agentmux/agentmux/internal/worker"
	"github.com/agentmux/agentmux/pkg/models"
)

// buildRegistry loads worker definitions and backs each with a
// Claude-based implementation.
func buildRegistry(cfg *config.Config) (*worker.Registry, error) {
	specs, err := worker.LoadSpecs(cfg.Workers.Dir)
	if err != nil {
		return nil, err
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("no worker definitions in %s", cfg.Workers.Dir)
	}

	reg := worker.NewRegistry()
	for _, spec := range specs {
		impl, err := claudeFor(cfg, spec)
		if err != nil {
			return nil, fmt.Errorf("worker %s: %w", spec.ID, err)
		}
		if err := reg.Register(spec, impl); err != nil {
			return nil, err
		}
	}
	if cfg.Defaults.Worker != "" {
		if err := reg.SetDefault(cfg.Defaults.Worker); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// claudeFor builds the Claude worker for one spec, with a system
// prompt derived from the spec's description and skills.
func claudeFor(cfg *config.Config, spec models.WorkerSpec) (worker.Worker, error) {
	system := spec.Description
	if system == "" {
		system = fmt.Sprintf("You are the %q worker, specialized in: %s. Complete the given subtask and report your result concisely.",
			spec.ID, strings.Join(spec.Skills, ", "))
	}
	return worker.NewClaudeWorker(worker.ClaudeConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        cfg.Anthropic.APIKey,
		UseAWSBedrock: cfg.Anthropic.UseAWSBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
		SystemPrompt:  system,
	})
}

// buildOrchestrator wires the registry and retry settings together.
func buildOrchestrator(cfg *config.Config, reg *worker.Registry) (*orchestrator.Orchestrator, error) {
	inv := invoker.New(invoker.Options{
		Timeout:     cfg.Retry.Timeout,
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
	})
	return orchestrator.New(orchestrator.Config{
		Registry:      reg,
		Invoker:       inv,
		MaxConcurrent: cfg.Defaults.MaxConcurrent,
		GracePeriod:   cfg.Defaults.GracePeriod,
	})
}

// watchWorkers starts a definitions watcher that re-registers changed
// specs, keeping the implementations Claude-backed.
func watchWorkers(cfg *config.Config, reg *worker.Registry) (*worker.Watcher, error) {
	return worker.WatchSpecs(cfg.Workers.Dir, func(specs []models.WorkerSpec) {
		for _, spec := range specs {
			impl, err := claudeFor(cfg, spec)
			if err != nil {
				log.Printf("[worker] skipping %s after reload: %v", spec.ID, err)
				continue
			}
			if err := reg.Register(spec, impl); err != nil {
				log.Printf("[worker] skipping %s after reload: %v", spec.ID, err)
			}
		}
	})
}
