// Package graph models the research pipeline as a static directed graph
// of stages (SPEC_FULL.md §9 "Graph with loops"): a table of
// (from, label) -> to transitions, including the Research stage's
// self-loop. The table is the single source of truth for control flow;
// the coordinator asks it "where do I go next" instead of hard-coding
// an if/else chain, and the table can be dumped to a diagram for review.
//
// No teacher file implements a graph-execution runtime of its own (the
// teacher hard-codes stage order in orchestrator/deep*.go); this package
// follows the static-table style of the teacher's own
// planning.ResearchDAG node/edge representation instead of introducing
// a dynamic registration mechanism.
package graph

import "fmt"

// Stage names one node in the pipeline.
type Stage string

const (
	StageClarify    Stage = "clarify"
	StagePlanner    Stage = "planner"
	StageSupervisor Stage = "supervisor"
	StageResearch   Stage = "research"
	StageCompress   Stage = "compress"
	StageWriter     Stage = "writer"
	StageCritique   Stage = "critique"
	StageEnd        Stage = "end"
)

// Label names the outcome of a stage that decides which edge to follow.
type Label string

const (
	LabelDefault         Label = "default"
	LabelNeedsClarify    Label = "needs_clarification"
	LabelClear           Label = "clear"
	LabelContinueLoop    Label = "continue"
	LabelFinishResearch  Label = "finish"
)

type edgeKey struct {
	from  Stage
	label Label
}

// transitions is the static (from,label) -> to table driving the entire
// run (SPEC_FULL.md §2 control flow): Clarify -> (stop or) Planner ->
// Supervisor -> Research -> Compress -> Writer -> Critique -> end, plus
// the Research self-loop on "continue".
var transitions = map[edgeKey]Stage{
	{StageClarify, LabelNeedsClarify}: StageEnd,
	{StageClarify, LabelClear}:        StagePlanner,

	{StagePlanner, LabelDefault}: StageSupervisor,

	{StageSupervisor, LabelDefault}: StageResearch,

	{StageResearch, LabelContinueLoop}:   StageResearch,
	{StageResearch, LabelFinishResearch}: StageCompress,

	{StageCompress, LabelDefault}: StageWriter,
	{StageWriter, LabelDefault}:   StageCritique,
	{StageCritique, LabelDefault}: StageEnd,
}

// Next looks up the table entry for (from,label). The second return
// value is false if the transition is not defined, which the coordinator
// treats as a programming error (SPEC_FULL.md §9: "directly verifiable").
func Next(from Stage, label Label) (Stage, bool) {
	to, ok := transitions[edgeKey{from, label}]
	return to, ok
}

// MustNext is Next but panics on an undefined transition, for call sites
// where the label was just computed from a closed enum and an undefined
// edge means the table itself is wrong.
func MustNext(from Stage, label Label) Stage {
	to, ok := Next(from, label)
	if !ok {
		panic(fmt.Sprintf("graph: no transition from %q on label %q", from, label))
	}
	return to
}

// Dump renders the transition table as "from -label-> to" lines, one per
// edge, suitable for pasting into a diagramming tool.
func Dump() []string {
	lines := make([]string, 0, len(transitions))
	for k, to := range transitions {
		lines = append(lines, fmt.Sprintf("%s -%s-> %s", k.from, k.label, to))
	}
	return lines
}
