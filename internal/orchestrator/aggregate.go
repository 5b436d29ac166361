package orchestrator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agentmux/agentmux/internal/collab"
	"github.com/agentmux/agentmux/pkg/models"
)

// Aggregator merges per-worker results into the final answer. The
// policy is pluggable; DefaultAggregator is used when none is set.
type Aggregator interface {
	// Aggregate builds the run summary from the current results, in
	// worker-selection order, with access to the shared context.
	Aggregate(goal string, results []models.WorkerResult, store *collab.Store) string
}

// DefaultAggregator surfaces summary-tagged shared context first, then
// successful outputs in selection order, then failed or cancelled
// workers with their errors.
type DefaultAggregator struct{}

// Aggregate implements the default policy.
func (DefaultAggregator) Aggregate(goal string, results []models.WorkerResult, store *collab.Store) string {
	var b strings.Builder

	snapshot := store.ContextSnapshot()
	var summaryKeys []string
	for k := range snapshot {
		if strings.HasPrefix(k, "summary") {
			summaryKeys = append(summaryKeys, k)
		}
	}
	sort.Strings(summaryKeys)
	for _, k := range summaryKeys {
		fmt.Fprintf(&b, "%v\n\n", snapshot[k])
	}

	for _, r := range results {
		if r.Status == models.StatusSuccess && r.Output != "" {
			fmt.Fprintf(&b, "## %s\n%s\n\n", r.WorkerID, r.Output)
		}
	}

	var problems []string
	for _, r := range results {
		switch r.Status {
		case models.StatusFailure:
			problems = append(problems, fmt.Sprintf("- %s failed: %s", r.WorkerID, r.Error))
		case models.StatusCancelled:
			problems = append(problems, fmt.Sprintf("- %s cancelled (%d partial artifacts preserved)", r.WorkerID, len(r.Artifacts)))
		}
	}
	if len(problems) > 0 {
		b.WriteString("## Incomplete\n")
		b.WriteString(strings.Join(problems, "\n"))
		b.WriteString("\n")
	}

	return strings.TrimSpace(b.String())
}
