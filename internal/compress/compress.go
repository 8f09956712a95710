// Package compress implements the Compress stage (SPEC_FULL.md §4.5):
// groups findings by near-identical claim using a token-Jaccard
// threshold, retains the highest-confidence finding per cluster, and
// assigns dense citation ids in first-appearance order.
//
// No text-similarity library appears anywhere in the teacher or the
// rest of the retrieval pack, so the Jaccard set math is hand-rolled
// (see DESIGN.md).
package compress

import (
	"strconv"
	"strings"

	"deepresearch/internal/state"
)

// Compressor runs the Compress stage.
type Compressor struct {
	jaccardThreshold float64
	targetRatio      float64
}

// New creates a Compressor with the configured dedup threshold and
// compression target (SPEC_FULL.md §6 jaccard_dedup_threshold,
// compression_target_ratio, default 0.75 / 0.5).
func New(jaccardThreshold, targetRatio float64) *Compressor {
	return &Compressor{jaccardThreshold: jaccardThreshold, targetRatio: targetRatio}
}

// Compress clusters findings, keeps one representative per cluster, and
// assigns dense citation ids in the order claims first appear (O4). If
// the resulting text does not meet compression_target_ratio against the
// raw finding text, clustering is retried at a looser threshold (more
// aggressive merging) until the target is met or the threshold floor is
// reached (SPEC_FULL.md §4.5 "Target compression ratio").
func (c *Compressor) Compress(findings []state.Finding) state.Compressed {
	rawLen := rawTextLen(findings)
	threshold := c.jaccardThreshold

	var result state.Compressed
	for {
		result = c.compressAt(findings, threshold)
		if rawLen == 0 || c.targetRatio <= 0 || threshold <= 0.3 {
			break
		}
		if float64(len(result.Text))/float64(rawLen) <= c.targetRatio {
			break
		}
		threshold -= 0.1
		if threshold < 0.3 {
			threshold = 0.3
		}
	}
	return result
}

func (c *Compressor) compressAt(findings []state.Finding, threshold float64) state.Compressed {
	clusters := c.cluster(findings, threshold)

	var sb strings.Builder
	citations := make([]state.Citation, 0, len(clusters))
	seenURL := make(map[string]int) // url -> citation id

	for _, cl := range clusters {
		rep := cl.representative()

		for _, f := range cl.members {
			if _, ok := seenURL[f.SourceURL]; ok {
				continue
			}
			seenURL[f.SourceURL] = len(citations) + 1
			citations = append(citations, state.Citation{
				ID:      len(citations) + 1,
				URL:     f.SourceURL,
				Snippet: f.SupportingSnippet,
			})
		}

		id := seenURL[rep.SourceURL]
		sb.WriteString(rep.Claim)
		sb.WriteString(" [")
		sb.WriteString(strconv.Itoa(id))
		sb.WriteString("]\n")
	}

	return state.Compressed{Text: sb.String(), Citations: citations}
}

// rawTextLen sums the raw claim text length across every finding, the
// denominator compression_target_ratio is measured against.
func rawTextLen(findings []state.Finding) int {
	n := 0
	for _, f := range findings {
		n += len(f.Claim)
	}
	return n
}

type cluster struct {
	members []state.Finding
}

func (cl cluster) representative() state.Finding {
	best := cl.members[0]
	for _, f := range cl.members[1:] {
		if f.Confidence > best.Confidence {
			best = f
		}
	}
	return best
}

// cluster groups findings whose claims have token-Jaccard similarity at
// or above the configured threshold. Clustering is greedy and
// order-preserving: a finding joins the first cluster it is similar
// enough to, else starts a new one, so the result is deterministic given
// ordered findings (P4).
func (c *Compressor) cluster(findings []state.Finding, threshold float64) []cluster {
	var clusters []cluster
	tokenSets := make([]map[string]bool, len(findings))
	for i, f := range findings {
		tokenSets[i] = tokenize(f.Claim)
	}

	assigned := make([]int, len(findings)) // index into clusters, -1 = unassigned
	for i := range assigned {
		assigned[i] = -1
	}

	for i, f := range findings {
		placed := false
		for ci := range clusters {
			repIdx := clusterAnchor(clusters[ci], findings)
			if jaccard(tokenSets[i], tokenize(findings[repIdx].Claim)) >= threshold {
				clusters[ci].members = append(clusters[ci].members, f)
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, cluster{members: []state.Finding{f}})
		}
	}
	return clusters
}

// clusterAnchor finds the index in findings of a cluster's first member,
// used as the comparison point for subsequent membership tests.
func clusterAnchor(cl cluster, findings []state.Finding) int {
	anchor := cl.members[0]
	for i, f := range findings {
		if f.Claim == anchor.Claim && f.SourceURL == anchor.SourceURL {
			return i
		}
	}
	return 0
}

func tokenize(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range strings.Fields(strings.ToLower(s)) {
		t = strings.Trim(t, ".,!?;:\"'()")
		if t != "" {
			set[t] = true
		}
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	intersection := 0
	for t := range a {
		if b[t] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
