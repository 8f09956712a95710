// Package coordinator implements the Run coordinator (SPEC_FULL.md §4.8):
// it wires every stage into the graph's control flow, enforces the
// overall deadline, propagates cancellation, checkpoints the aggregate
// after each stage boundary, and streams causally-ordered events to
// external observers over the bus.
//
// Grounded on the teacher's internal/orchestrator.Orchestrator (the
// single coordinating entry point sequencing agents end to end) and its
// event-sourced variant, collapsed into the one executor this spec calls
// for instead of the teacher's three parallel orchestrator
// implementations (plain, event-sourced, STORM).
package coordinator

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"deepresearch/internal/aggregate"
	"deepresearch/internal/bus"
	"deepresearch/internal/clarify"
	"deepresearch/internal/compress"
	"deepresearch/internal/config"
	"deepresearch/internal/critique"
	"deepresearch/internal/errs"
	"deepresearch/internal/graph"
	"deepresearch/internal/llm"
	"deepresearch/internal/planning"
	"deepresearch/internal/research"
	"deepresearch/internal/state"
	"deepresearch/internal/storage"
	"deepresearch/internal/supervisor"
	"deepresearch/internal/tools"
	"deepresearch/internal/writer"
)

// Options is the run entry point's option set (SPEC_FULL.md §6):
// start(query, options) -> stream<Event>. Being a concrete struct rather
// than a free-form map means unknown options are rejected at compile
// time, satisfying the spec's "unknown options are rejected" clause.
type Options struct {
	ThreadID                string
	MaxIterationsOverride   int
	MaxParallelismOverride  int
	OverallDeadlineOverride time.Duration
	EnablePluginTools       bool
}

// Deps bundles every collaborator one run needs. Checkpoint may be nil,
// in which case runs are ephemeral (SPEC_FULL.md §6 Checkpoint sink).
type Deps struct {
	Clarifier  *clarify.Clarifier
	Planner    *planning.Planner
	Research   *research.Runner
	Compressor *compress.Compressor
	Writer     *writer.Writer
	Critic     *critique.Critic
	Client     llm.ChatClient
	Checkpoint storage.CheckpointSink
	Bus        *bus.Bus
	Caps       supervisor.Caps

	// ToolRegistry is the optional plug-in tool surface (SPEC_FULL.md §9
	// Open Question (a)); nil unless config.EnablePluginTools is set.
	ToolRegistry tools.ToolExecutor
}

// Coordinator drives one run at a time per call to Start; it holds no
// per-run state between calls.
type Coordinator struct {
	deps Deps
	cfg  *config.Config
}

// New creates a Coordinator bound to its collaborators and the process
// configuration surface (SPEC_FULL.md §6).
func New(deps Deps, cfg *config.Config) *Coordinator {
	if deps.Caps == (supervisor.Caps{}) {
		deps.Caps = supervisor.Caps{
			MaxParallelismCap: cfg.MaxParallelismCap,
			MaxIterationsCap:  cfg.MaxIterationsCap,
		}
	}
	return &Coordinator{deps: deps, cfg: cfg}
}

// stageTiming is the stage_end event payload.
type stageTiming struct {
	Stage      string `json:"stage"`
	DurationMs int64  `json:"duration_ms"`
}

// errorPayload is the error(kind, detail) event payload.
type errorPayload struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

func (c *Coordinator) publish(typ bus.EventType, data interface{}) {
	if c.deps.Bus == nil {
		return
	}
	c.deps.Bus.Publish(bus.Event{Type: typ, Data: data})
}

func (c *Coordinator) stageStart(name string) time.Time {
	c.publish(bus.StageStart, name)
	return time.Now()
}

func (c *Coordinator) stageEnd(name string, start time.Time) {
	c.publish(bus.StageEnd, stageTiming{Stage: name, DurationMs: time.Since(start).Milliseconds()})
}

// checkpoint persists an aggregate's uncommitted events to the
// checkpoint sink, a no-op when none was configured (ephemeral runs).
func (c *Coordinator) checkpoint(ctx context.Context, agg *aggregate.Aggregate) {
	if c.deps.Checkpoint == nil {
		return
	}
	pending := agg.GetUncommittedEvents()
	if len(pending) == 0 {
		return
	}
	expected := pending[0].GetVersion() - 1
	if err := c.deps.Checkpoint.Save(ctx, agg.State().ThreadID, pending, expected); err != nil {
		c.publish(bus.ErrorEvent, errorPayload{Kind: string(errs.KindModel), Detail: "checkpoint: " + err.Error()})
		return
	}
	agg.ClearUncommittedEvents()
}

// Start runs the full pipeline for one query (SPEC_FULL.md §2 control
// flow): Clarify -> (stop or) Planner -> Supervisor -> Research ->
// Compress -> Writer -> Critique -> end. It returns the final state
// (partial, if cancelled or deadline-exceeded) and emits events to the
// bus as each stage starts and finishes.
func (c *Coordinator) Start(ctx context.Context, query string, opts Options) (state.ResearchState, error) {
	if strings.TrimSpace(query) == "" {
		err := errs.InputError("query must not be empty")
		c.publish(bus.ErrorEvent, errorPayload{Kind: string(errs.KindInput), Detail: err.Error()})
		return state.ResearchState{}, err
	}

	threadID := opts.ThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}

	deadline := c.cfg.OverallDeadline
	if opts.OverallDeadlineOverride > 0 {
		deadline = opts.OverallDeadlineOverride
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	agg := aggregate.New(threadID, query)
	if _, err := agg.Execute(aggregate.StartResearch{Query: query}); err != nil {
		return agg.State(), errs.InputError(err.Error())
	}
	c.checkpoint(ctx, agg)

	if partial, done := c.checkCancelled(ctx, agg); done {
		return partial, ctx.Err()
	}

	// --- Stage 1: Clarify ---
	t := c.stageStart(string(graph.StageClarify))
	clarifyRes := c.deps.Clarifier.Clarify(ctx, query)
	c.stageEnd(string(graph.StageClarify), t)

	if _, err := agg.Execute(aggregate.CompleteClarify{
		NeedsClarification:    clarifyRes.NeedsClarification,
		ClarificationQuestion: clarifyRes.ClarificationQuestion,
		QueryAnalysis:         clarifyRes.QueryAnalysis,
		DetectedTopics:        clarifyRes.DetectedTopics,
	}); err == nil {
		c.checkpoint(ctx, agg)
	}

	label := graph.LabelClear
	if clarifyRes.NeedsClarification {
		label = graph.LabelNeedsClarify
	}
	if graph.MustNext(graph.StageClarify, label) == graph.StageEnd {
		// P6: needs_clarification=true means no Search/Read/Analyze call
		// is ever made; seal the run and hand the question back.
		return c.finish(ctx, agg, aggregate.CompleteResearch{})
	}

	if partial, done := c.checkCancelled(ctx, agg); done {
		return partial, ctx.Err()
	}

	// --- Stage 2: Planner ---
	t = c.stageStart(string(graph.StagePlanner))
	var plan state.Plan
	if opts.EnablePluginTools && c.deps.ToolRegistry != nil {
		plan, _ = c.deps.Planner.CreatePlanWithTools(ctx, query, c.deps.ToolRegistry)
	} else {
		plan, _ = c.deps.Planner.CreatePlan(ctx, query)
	}
	c.stageEnd(string(graph.StagePlanner), t)

	if _, err := agg.Execute(aggregate.CreatePlan{Plan: plan}); err != nil {
		return c.fail(ctx, agg, err)
	}
	c.checkpoint(ctx, agg)

	if partial, done := c.checkCancelled(ctx, agg); done {
		return partial, ctx.Err()
	}

	// --- Stage 3: Supervisor ---
	t = c.stageStart(string(graph.StageSupervisor))
	strategy := supervisor.Choose(plan, clarifyRes.QueryAnalysis, c.deps.Caps)
	strategy = applyOverrides(strategy, opts, c.deps.Caps)
	c.stageEnd(string(graph.StageSupervisor), t)

	if _, err := agg.Execute(aggregate.ChooseStrategy{Strategy: strategy}); err != nil {
		return c.fail(ctx, agg, err)
	}
	c.checkpoint(ctx, agg)

	if partial, done := c.checkCancelled(ctx, agg); done {
		return partial, ctx.Err()
	}

	// --- Stage 4: Research subgraph ---
	t = c.stageStart(string(graph.StageResearch))
	if strategy.Mode == state.StrategyParallel {
		c.publish(bus.Thought, describeDAG(c.deps.Planner.BuildDAG(query, plan)))
	}
	out := c.runResearch(ctx, plan, strategy)
	c.stageEnd(string(graph.StageResearch), t)
	c.applyResearchOutput(agg, strategy, out)
	c.checkpoint(ctx, agg)

	analysis := research.CrossValidate(ctx, c.deps.Client, query, agg.State().Findings, plan.FocusAreas)
	if _, err := agg.Execute(aggregate.CompleteAnalysis{Analysis: analysis}); err == nil {
		c.checkpoint(ctx, agg)
	}

	if partial, done := c.checkCancelled(ctx, agg); done {
		return partial, ctx.Err()
	}

	// --- Stage 5: Compress ---
	t = c.stageStart(string(graph.StageCompress))
	compressed := c.deps.Compressor.Compress(agg.State().Findings)
	c.stageEnd(string(graph.StageCompress), t)

	if _, err := agg.Execute(aggregate.CompleteCompression{Compressed: compressed}); err != nil {
		return c.fail(ctx, agg, err)
	}
	c.checkpoint(ctx, agg)

	// --- Stage 6: Writer ---
	t = c.stageStart(string(graph.StageWriter))
	wres := c.deps.Writer.Write(ctx, query, compressed, plan.FocusAreas, analysis.Contradictions)
	c.stageEnd(string(graph.StageWriter), t)

	if _, err := agg.Execute(aggregate.GenerateReport{Report: wres.Report, Citations: wres.Citations}); err != nil {
		return c.fail(ctx, agg, err)
	}
	c.checkpoint(ctx, agg)
	if wres.Err != nil {
		c.publish(bus.ErrorEvent, errorPayload{Kind: string(errs.KindCitation), Detail: wres.Err.Error()})
	}

	// --- Stage 7: Critique ---
	t = c.stageStart(string(graph.StageCritique))
	crit := c.deps.Critic.Critique(ctx, query, wres.Report)
	c.stageEnd(string(graph.StageCritique), t)

	if _, err := agg.Execute(aggregate.CompleteCritique{Critique: crit}); err != nil {
		return c.fail(ctx, agg, err)
	}
	c.checkpoint(ctx, agg)

	// --- Stage 8: Glue ---
	return c.finish(ctx, agg, aggregate.CompleteResearch{})
}

// applyOverrides clamps the caller's optional overrides to the
// configured hard caps (SPEC_FULL.md §4.3 Hard caps) before substituting
// them into the Supervisor's chosen strategy.
func applyOverrides(strategy state.Strategy, opts Options, caps supervisor.Caps) state.Strategy {
	if opts.MaxIterationsOverride > 0 {
		strategy.MaxIterations = opts.MaxIterationsOverride
		if strategy.MaxIterations > caps.MaxIterationsCap {
			strategy.MaxIterations = caps.MaxIterationsCap
		}
	}
	if opts.MaxParallelismOverride > 0 {
		strategy.MaxParallelism = opts.MaxParallelismOverride
		if strategy.MaxParallelism > caps.MaxParallelismCap {
			strategy.MaxParallelism = caps.MaxParallelismCap
		}
	}
	return strategy
}

// describeDAG renders a research task DAG's topological order as one
// thought line, the observable trace of the scheduling substrate parallel
// mode's fan-out runs on (SPEC_FULL.md §4.4.1).
func describeDAG(dag *planning.ResearchDAG) string {
	nodes := dag.TopologicalOrder()
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		parts = append(parts, n.ID+":"+n.TaskType.String())
	}
	return "Task graph (" + strconv.Itoa(dag.NodeCount()) + " nodes): " + strings.Join(parts, " -> ")
}

// runResearch dispatches to the Runner's sequential or parallel mode
// per the Supervisor's chosen strategy.
func (c *Coordinator) runResearch(ctx context.Context, plan state.Plan, strategy state.Strategy) research.Output {
	if strategy.Mode == state.StrategyParallel {
		return c.deps.Research.RunParallel(ctx, plan, strategy, nil)
	}
	return c.deps.Research.RunSequential(ctx, plan, strategy, nil)
}

// applyResearchOutput folds one Research subgraph Output into the
// aggregate via its commands, publishing finding_added and thought
// events as it goes (SPEC_FULL.md §4.8 event schemas).
func (c *Coordinator) applyResearchOutput(agg *aggregate.Aggregate, strategy state.Strategy, out research.Output) {
	for _, rec := range out.SearchHistory {
		_, _ = agg.Execute(aggregate.RecordSearch{Record: rec})
	}
	for _, page := range out.ReadContents {
		if agg.State().HasURL(page.URL) {
			continue // I4: a page already recorded (e.g. by a sibling parallel task)
		}
		_, _ = agg.Execute(aggregate.RecordPageFetch{Page: page})
	}
	if len(out.Findings) > 0 {
		_, _ = agg.Execute(aggregate.RecordFindings{Findings: out.Findings, Thought: strings.Join(out.Thoughts, "\n")})
		for _, f := range out.Findings {
			c.publish(bus.FindingAdded, f.SourceURL)
		}
	}
	for _, th := range out.Thoughts {
		c.publish(bus.Thought, th)
	}

	used := out.IterationsUsed
	if used < 1 {
		used = 1
	}
	if used > strategy.MaxIterations {
		used = strategy.MaxIterations
	}
	for i := 0; i < used; i++ {
		_, _ = agg.Execute(aggregate.DecideIteration{Continue: true})
	}
}

// fail seals the aggregate with a ResearchFailedEvent and returns the
// partial state alongside the triggering error.
func (c *Coordinator) fail(ctx context.Context, agg *aggregate.Aggregate, cause error) (state.ResearchState, error) {
	_, _ = agg.Execute(aggregate.FailResearch{Reason: cause.Error()})
	c.checkpoint(ctx, agg)
	c.publish(bus.ErrorEvent, errorPayload{Kind: string(errs.KindModel), Detail: cause.Error()})
	final := agg.State()
	c.publish(bus.Done, final)
	return final, cause
}

// finish seals the aggregate with the given terminal command (normally
// CompleteResearch) and emits the closing done event.
func (c *Coordinator) finish(ctx context.Context, agg *aggregate.Aggregate, cmd aggregate.Command) (state.ResearchState, error) {
	_, _ = agg.Execute(cmd)
	c.checkpoint(ctx, agg)
	final := agg.State()
	c.publish(bus.Done, final)
	return final, nil
}

// checkCancelled is called between stage boundaries (the run's only
// non-suspension-point cancellation check): on cancellation or deadline
// it seals the aggregate with ResearchCancelledEvent, preserving
// whatever findings/read_contents/search_history were already recorded,
// and emits error(cancelled|deadline_exceeded, ...) followed by
// done(partial_state) (SPEC_FULL.md §5 Cancellation & timeouts).
func (c *Coordinator) checkCancelled(ctx context.Context, agg *aggregate.Aggregate) (state.ResearchState, bool) {
	select {
	case <-ctx.Done():
		kind := errs.KindCancelled
		if ctx.Err() == context.DeadlineExceeded {
			kind = errs.KindDeadlineExceeded
		}
		c.publish(bus.ErrorEvent, errorPayload{Kind: string(kind), Detail: ctx.Err().Error()})
		_, _ = agg.Execute(aggregate.CancelResearch{Reason: ctx.Err().Error()})
		c.checkpoint(ctx, agg)
		final := agg.State()
		c.publish(bus.Done, final)
		return final, true
	default:
		return state.ResearchState{}, false
	}
}
