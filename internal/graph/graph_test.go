package graph

import "testing"

func TestNextKnownEdges(t *testing.T) {
	tests := []struct {
		from  Stage
		label Label
		want  Stage
	}{
		{StageClarify, LabelClear, StagePlanner},
		{StageClarify, LabelNeedsClarify, StageEnd},
		{StagePlanner, LabelDefault, StageSupervisor},
		{StageSupervisor, LabelDefault, StageResearch},
		{StageResearch, LabelContinueLoop, StageResearch},
		{StageResearch, LabelFinishResearch, StageCompress},
		{StageCompress, LabelDefault, StageWriter},
		{StageWriter, LabelDefault, StageCritique},
		{StageCritique, LabelDefault, StageEnd},
	}

	for _, tt := range tests {
		got, ok := Next(tt.from, tt.label)
		if !ok {
			t.Errorf("Next(%q, %q): no transition defined", tt.from, tt.label)
			continue
		}
		if got != tt.want {
			t.Errorf("Next(%q, %q) = %q, want %q", tt.from, tt.label, got, tt.want)
		}
	}
}

func TestNextUndefinedEdge(t *testing.T) {
	if _, ok := Next(StageClarify, LabelContinueLoop); ok {
		t.Error("expected no transition for (clarify, continue)")
	}
	if _, ok := Next(StageEnd, LabelDefault); ok {
		t.Error("expected no transition out of the end stage")
	}
}

func TestMustNextPanicsOnUndefinedEdge(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected MustNext to panic on an undefined transition")
		}
	}()
	MustNext(StageEnd, LabelDefault)
}

func TestMustNextReturnsDefinedEdge(t *testing.T) {
	if got := MustNext(StageClarify, LabelClear); got != StagePlanner {
		t.Errorf("MustNext(clarify, clear) = %q, want %q", got, StagePlanner)
	}
}

func TestDumpCoversEveryTransition(t *testing.T) {
	lines := Dump()
	if len(lines) != len(transitions) {
		t.Errorf("Dump() produced %d lines, want %d (one per transition)", len(lines), len(transitions))
	}
}

func TestResearchSelfLoopIsTheOnlyCycle(t *testing.T) {
	for k, to := range transitions {
		if k.from == to && k.from != StageResearch {
			t.Errorf("unexpected self-loop at %q on label %q", k.from, k.label)
		}
	}
}
