// Package supervisor implements the Supervisor stage (SPEC_FULL.md §4.3):
// it chooses between sequential-iterative and parallel-breadth research
// strategy, and sets the concurrency bounds the Research subgraph honors.
//
// Grounded on the teacher's internal/agents.SupervisorAgent (the notion of
// a dedicated coordination stage between planning and research execution)
// and internal/orchestrator.workersForComplexity (mapping a planning
// signal to a worker count), generalized into the spec's rule table.
package supervisor

import (
	"regexp"
	"strings"

	"deepresearch/internal/state"
)

// Caps are the hard ceilings the Supervisor may never exceed
// (SPEC_FULL.md §4.3 Hard caps / §6 configuration surface).
type Caps struct {
	MaxParallelismCap int
	MaxIterationsCap  int
}

// DefaultCaps returns the spec's default hard caps.
func DefaultCaps() Caps {
	return Caps{MaxParallelismCap: 4, MaxIterationsCap: 3}
}

// Choose selects a Strategy from the plan and query analysis, following
// the policy table in SPEC_FULL.md §4.3:
//
//   - depth==1 or a single query -> sequential, 1 iteration, no parallelism.
//   - depth==2 and <=3 queries -> parallel, one task per query, single pass.
//   - depth==3 or a comparative query (>=2 explicit subjects) -> sequential,
//     up to 3 iterations, depth achieved through the loop rather than fan-out.
//   - anything else falls back to the depth==2 parallel rule, since the
//     plan already bounds query count to 2-5.
func Choose(plan state.Plan, queryAnalysis string, caps Caps) state.Strategy {
	switch {
	case plan.Depth == 1 || len(plan.Queries) == 1:
		return clamp(state.Strategy{Mode: state.StrategySequential, MaxParallelism: 1, MaxIterations: 1}, caps)

	case plan.Depth == 3 || isComparative(plan.OriginalQuery, queryAnalysis):
		return clamp(state.Strategy{Mode: state.StrategySequential, MaxParallelism: 1, MaxIterations: 3}, caps)

	case plan.Depth == 2 && len(plan.Queries) <= 3:
		return clamp(state.Strategy{Mode: state.StrategyParallel, MaxParallelism: len(plan.Queries), MaxIterations: 1}, caps)

	default:
		return clamp(state.Strategy{Mode: state.StrategyParallel, MaxParallelism: min(len(plan.Queries), caps.MaxParallelismCap), MaxIterations: 1}, caps)
	}
}

func clamp(s state.Strategy, caps Caps) state.Strategy {
	if s.MaxParallelism < 1 {
		s.MaxParallelism = 1
	}
	if s.MaxParallelism > caps.MaxParallelismCap {
		s.MaxParallelism = caps.MaxParallelismCap
	}
	if s.MaxIterations < 1 {
		s.MaxIterations = 1
	}
	if s.MaxIterations > caps.MaxIterationsCap {
		s.MaxIterations = caps.MaxIterationsCap
	}
	return s
}

// compareWordRe matches explicit comparison language in the original
// query ("compare X and Y", "X vs Y", "X versus Y").
var compareWordRe = regexp.MustCompile(`(?i)\b(compare|comparison|versus|vs\.?)\b`)

// isComparative reports whether the query uses comparison language, or
// the query_analysis narrative mentions "comparative" or "comparison".
// The subjects being compared are not counted.
func isComparative(query, queryAnalysis string) bool {
	if compareWordRe.MatchString(query) {
		return true
	}
	return strings.Contains(strings.ToLower(queryAnalysis), "comparative") ||
		strings.Contains(strings.ToLower(queryAnalysis), "comparison")
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
