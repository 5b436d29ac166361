package models

// Strategy is the concurrency plan chosen for a set of selected workers.
type Strategy string

const (
	// StrategyParallel runs all selected workers concurrently.
	StrategyParallel Strategy = "parallel"
	// StrategySequential runs workers one at a time, feeding each the
	// prior worker's output as context.
	StrategySequential Strategy = "sequential"
	// StrategyHybrid runs conflict-free groups concurrently, one group
	// after another.
	StrategyHybrid Strategy = "hybrid"
)

// Valid returns true if the strategy is a known value.
func (s Strategy) Valid() bool {
	return s == StrategyParallel || s == StrategySequential || s == StrategyHybrid
}

// ExecutionPlan pairs a strategy with its worker grouping. For
// Parallel the plan holds one group with every worker; for Sequential
// one group per worker, in order; for Hybrid the conflict-free groups
// in execution order. Groups always partition the selected worker set:
// no worker appears twice and none are omitted.
type ExecutionPlan struct {
	// Strategy is the chosen concurrency plan.
	Strategy Strategy `json:"strategy"`
	// Groups holds worker ids in execution order. Workers within a
	// group may run concurrently; groups run one after another.
	Groups [][]string `json:"groups"`
}

// WorkerIDs returns every worker in the plan, in group order.
func (p ExecutionPlan) WorkerIDs() []string {
	var ids []string
	for _, g := range p.Groups {
		ids = append(ids, g...)
	}
	return ids
}

// Contains returns true if the plan includes the given worker.
func (p ExecutionPlan) Contains(id string) bool {
	for _, g := range p.Groups {
		for _, w := range g {
			if w == id {
				return true
			}
		}
	}
	return false
}
