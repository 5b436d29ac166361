// Package conflict plans how a set of selected workers may execute
// given the resource scopes each declares. Two workers conflict when
// their scopes intersect; conflicting workers are never scheduled in
// the same concurrent group.
package conflict

import (
	"log"

	"github.com/agentmux/agentmux/internal/analysis"
	"github.com/agentmux/agentmux/pkg/models"
)

// Plan builds the scope-conflict graph over the selected workers and
// chooses an execution strategy:
//
//   - no conflicting pairs: Parallel, everything in one group
//   - ordering language in the goal plus any conflict, or every pair
//     conflicting: Sequential, one worker per group in selection order
//   - otherwise: Hybrid, a greedy first-fit partition into the fewest
//     conflict-free groups
//
// Plan never fails. Hybrid groups partition the selected set exactly:
// every worker appears in exactly one group.
func Plan(selected []models.WorkerSpec, a analysis.Analysis) models.ExecutionPlan {
	ids := make([]string, len(selected))
	for i, s := range selected {
		ids[i] = s.ID
	}

	if len(selected) <= 1 {
		return models.ExecutionPlan{Strategy: models.StrategyParallel, Groups: [][]string{ids}}
	}

	adj := buildGraph(selected)
	edges := 0
	for _, ns := range adj {
		edges += len(ns)
	}
	edges /= 2

	if edges == 0 {
		log.Printf("[conflict] %d workers, no scope conflicts, running parallel", len(selected))
		return models.ExecutionPlan{Strategy: models.StrategyParallel, Groups: [][]string{ids}}
	}

	total := len(selected) * (len(selected) - 1) / 2
	if edges == total || a.Sequential {
		log.Printf("[conflict] %d workers, %d/%d conflicting pairs (sequential cue: %v), running sequential",
			len(selected), edges, total, a.Sequential)
		groups := make([][]string, len(ids))
		for i, id := range ids {
			groups[i] = []string{id}
		}
		return models.ExecutionPlan{Strategy: models.StrategySequential, Groups: groups}
	}

	groups := partition(selected, adj)
	log.Printf("[conflict] %d workers, %d conflicting pairs, running hybrid in %d groups",
		len(selected), edges, len(groups))
	return models.ExecutionPlan{Strategy: models.StrategyHybrid, Groups: groups}
}

// buildGraph returns the undirected conflict adjacency: for each
// worker index, the set of indexes it shares a scope with.
func buildGraph(specs []models.WorkerSpec) []map[int]struct{} {
	adj := make([]map[int]struct{}, len(specs))
	for i := range adj {
		adj[i] = make(map[int]struct{})
	}
	for i := 0; i < len(specs); i++ {
		for j := i + 1; j < len(specs); j++ {
			if specs[i].SharesScope(specs[j]) {
				adj[i][j] = struct{}{}
				adj[j][i] = struct{}{}
			}
		}
	}
	return adj
}

// partition greedily assigns each worker, in selection order, to the
// first existing group it does not conflict with, opening a new group
// when none fits. First-fit keeps the group count low without paying
// for an exact minimum coloring.
func partition(specs []models.WorkerSpec, adj []map[int]struct{}) [][]string {
	var groups [][]string
	var members [][]int
	for i := range specs {
		placed := false
		for g := range members {
			if fits(i, members[g], adj) {
				members[g] = append(members[g], i)
				groups[g] = append(groups[g], specs[i].ID)
				placed = true
				break
			}
		}
		if !placed {
			members = append(members, []int{i})
			groups = append(groups, []string{specs[i].ID})
		}
	}
	return groups
}

// fits reports whether worker i conflicts with no member of the group.
func fits(i int, group []int, adj []map[int]struct{}) bool {
	for _, m := range group {
		if _, conflict := adj[i][m]; conflict {
			return false
		}
	}
	return true
}
