package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/agentmux/agentmux/internal/config"
	"github.com/agentmux/agentmux/internal/search"
)

var searchMax int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Query the configured search backends",
	Long: `Run a query through the caching search provider: the primary backend
first, then each fallback in order. Successful results are cached for
the configured TTL.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		provider, err := buildSearchProvider(cfg)
		if err != nil {
			return err
		}

		query := strings.Join(args, " ")
		results, err := provider.Search(context.Background(), query, searchMax)
		if err != nil {
			return err
		}
		for i, r := range results {
			color.New(color.Bold).Printf("%d. %s\n", i+1, r.Title)
			fmt.Printf("   %s\n", r.URL)
			if r.Snippet != "" {
				fmt.Printf("   %s\n", r.Snippet)
			}
		}
		stats := provider.Stats()
		fmt.Printf("\n%d results (%d cached entries, %d expired)\n",
			len(results), stats.TotalEntries, stats.ExpiredEntries)
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchMax, "max", 10, "Maximum number of results")
}

// buildSearchProvider wires HTTP backends from config into the caching
// provider.
func buildSearchProvider(cfg *config.Config) (*search.Provider, error) {
	if cfg.Search.Primary == "" {
		return nil, fmt.Errorf("no primary search backend configured (search.primary)")
	}
	primary := &search.HTTPBackend{ID: "primary", Endpoint: cfg.Search.Primary}
	var fallbacks []search.Backend
	for i, endpoint := range cfg.Search.Fallbacks {
		fallbacks = append(fallbacks, &search.HTTPBackend{
			ID:       fmt.Sprintf("fallback-%d", i+1),
			Endpoint: endpoint,
		})
	}
	return search.NewProvider(primary, fallbacks, search.Options{
		TTL:       cfg.Search.TTL,
		CacheSize: cfg.Search.CacheSize,
	})
}
