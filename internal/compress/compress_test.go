package compress

import (
	"strings"
	"testing"

	"deepresearch/internal/state"
)

func TestCompressMergesNearDuplicateClaims(t *testing.T) {
	c := New(0.75, 0)
	findings := []state.Finding{
		{Claim: "Go 1.18 introduced generics", SourceURL: "https://a.example", Confidence: 0.6, SupportingSnippet: "snippet a"},
		{Claim: "Go 1.18 introduced generics support", SourceURL: "https://b.example", Confidence: 0.9, SupportingSnippet: "snippet b"},
	}

	got := c.Compress(findings)
	if len(got.Citations) != 2 {
		t.Fatalf("expected both source URLs cited even though claims merged, got %d citations", len(got.Citations))
	}
	if strings.Count(got.Text, "\n") != 1 {
		t.Errorf("expected the two near-duplicate claims to collapse into one line, got %q", got.Text)
	}
	if !strings.Contains(got.Text, "Go 1.18 introduced generics support") {
		t.Errorf("expected the higher-confidence claim to be the cluster representative, got %q", got.Text)
	}
}

func TestCompressKeepsDistinctClaimsSeparate(t *testing.T) {
	c := New(0.75, 0)
	findings := []state.Finding{
		{Claim: "Go 1.18 introduced generics", SourceURL: "https://a.example", Confidence: 0.6, SupportingSnippet: "s1"},
		{Claim: "Rust ownership prevents data races", SourceURL: "https://b.example", Confidence: 0.6, SupportingSnippet: "s2"},
	}

	got := c.Compress(findings)
	if strings.Count(got.Text, "\n") != 2 {
		t.Errorf("expected two distinct output lines, got %q", got.Text)
	}
	if len(got.Citations) != 2 {
		t.Errorf("expected two citations, got %d", len(got.Citations))
	}
}

func TestCompressAssignsDenseCitationIDsInFirstAppearanceOrder(t *testing.T) {
	c := New(0.75, 0)
	findings := []state.Finding{
		{Claim: "claim one", SourceURL: "https://first.example", Confidence: 0.5, SupportingSnippet: "s1"},
		{Claim: "claim two", SourceURL: "https://second.example", Confidence: 0.5, SupportingSnippet: "s2"},
	}

	got := c.Compress(findings)
	if got.Citations[0].URL != "https://first.example" || got.Citations[0].ID != 1 {
		t.Errorf("expected citation 1 to be the first-seen URL, got %+v", got.Citations[0])
	}
	if got.Citations[1].URL != "https://second.example" || got.Citations[1].ID != 2 {
		t.Errorf("expected citation 2 to be the second-seen URL, got %+v", got.Citations[1])
	}
}

func TestCompressEmptyFindings(t *testing.T) {
	got := New(0.75, 0).Compress(nil)
	if got.Text != "" || len(got.Citations) != 0 {
		t.Errorf("expected an empty result for no findings, got %+v", got)
	}
}

func TestCompressLoosensThresholdToMeetTargetRatio(t *testing.T) {
	findings := []state.Finding{
		{Claim: "The 2023 Turing Award went to Avi Wigderson", SourceURL: "https://a.example", Confidence: 0.6, SupportingSnippet: "s1"},
		{Claim: "Avi Wigderson won the 2023 Turing Award", SourceURL: "https://b.example", Confidence: 0.9, SupportingSnippet: "s2"},
		{Claim: "Wigderson is known for complexity theory work", SourceURL: "https://c.example", Confidence: 0.5, SupportingSnippet: "s3"},
	}

	strict := New(0.95, 0).Compress(findings)
	if strings.Count(strict.Text, "\n") != 3 {
		t.Fatalf("expected the strict threshold to keep all three claims separate, got %q", strict.Text)
	}

	loose := New(0.95, 0.3).Compress(findings)
	if len(loose.Text) >= len(strict.Text) {
		t.Errorf("expected a tight compression_target_ratio to force more aggressive merging than the strict run, strict=%q loose=%q", strict.Text, loose.Text)
	}
}

func TestJaccardIdenticalSets(t *testing.T) {
	a := tokenize("go generics are great")
	if jaccard(a, a) != 1 {
		t.Error("expected identical token sets to have similarity 1")
	}
}

func TestJaccardDisjointSets(t *testing.T) {
	a := tokenize("go generics")
	b := tokenize("rust ownership")
	if jaccard(a, b) != 0 {
		t.Error("expected disjoint token sets to have similarity 0")
	}
}
