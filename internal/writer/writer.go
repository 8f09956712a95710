// Package writer implements the Writer stage (SPEC_FULL.md §4.6):
// synthesizes compressed findings into a cited report, retrying once
// with a correction directive if citation validation fails.
//
// Section ordering follows the teacher's
// internal/agents.SynthesisAgent.compileReport verbatim in shape
// (SPEC_FULL.md §4.6.1); only the content feeding each section changes.
package writer

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"deepresearch/internal/errs"
	"deepresearch/internal/llm"
	"deepresearch/internal/state"
)

// Writer runs the Writer stage.
type Writer struct {
	client llm.ChatClient
}

// New creates a Writer bound to a model client.
func New(client llm.ChatClient) *Writer {
	return &Writer{client: client}
}

// Result is the Writer's output: the report, its final citation set,
// and a CitationError when validation failed twice (the report is still
// returned best-effort).
type Result struct {
	Report    string
	Citations []state.Citation
	Err       *errs.Error
}

var markerRe = regexp.MustCompile(`\[(\d+)\]`)

// Write synthesizes query + compressed into a cited report, validating
// citation discipline and retrying once on failure (SPEC_FULL.md §4.6
// Failure).
func (w *Writer) Write(ctx context.Context, query string, compressed state.Compressed, focusAreas []string, contradictions []state.Contradiction) Result {
	body := w.draftBody(ctx, query, compressed, focusAreas, "")

	if problems := validate(body, compressed.Citations); len(problems) > 0 {
		directive := "Correction needed: " + strings.Join(problems, "; ") + ". Only cite ids that exist; cite every claim with a number, date, proper noun, or superlative."
		body = w.draftBody(ctx, query, compressed, focusAreas, directive)

		if problems := validate(body, compressed.Citations); len(problems) > 0 {
			return Result{
				Report:    w.compile(query, body, focusAreas, compressed.Citations, contradictions),
				Citations: compressed.Citations,
				Err:       errs.CitationErr(strings.Join(problems, "; ")),
			}
		}
	}

	return Result{Report: w.compile(query, body, focusAreas, compressed.Citations, contradictions), Citations: compressed.Citations}
}

// draftBody asks the model for the report's prose body; falls back to an
// insufficiency-explaining skeleton if the model call fails entirely.
// Citation validation runs against just this body (SPEC_FULL.md §4.6
// Failure) — the assembled report's own Sources list and headers are not
// model-authored prose and must never trigger the citation check.
func (w *Writer) draftBody(ctx context.Context, query string, compressed state.Compressed, focusAreas []string, correction string) string {
	prompt := draftPrompt(query, compressed, focusAreas, correction)

	resp, err := w.client.Chat(ctx, llm.RoleWriter, []llm.Message{{Role: "user", Content: prompt}})
	if err != nil || len(resp.Choices) == 0 {
		return "Insufficient source material was found to answer this question in depth."
	}

	return resp.Choices[0].Message.Content
}

func draftPrompt(query string, compressed state.Compressed, focusAreas []string, correction string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write the body of a research report answering: %q\n\n", query)
	sb.WriteString("Cover these focus areas as sections:\n")
	for _, fa := range focusAreas {
		sb.WriteString("- " + fa + "\n")
	}
	sb.WriteString("\nAvailable compressed findings (cite with [n] immediately after the sentence using the source's id):\n")
	sb.WriteString(compressed.Text)
	sb.WriteString("\n\nDo not introduce facts not present above. Cite every non-trivial claim.")
	if correction != "" {
		sb.WriteString("\n\n" + correction)
	}
	return sb.String()
}

// compile assembles the final report: Title, Executive Summary,
// per-focus-area sections (the model's draft body), a conditional Notes
// on Conflicting Information section, then a numbered Sources list.
func (w *Writer) compile(query, body string, focusAreas []string, citations []state.Citation, contradictions []state.Contradiction) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", query)

	sb.WriteString("## Executive Summary\n\n")
	summary := body
	if len(summary) > 500 {
		summary = summary[:500] + "..."
	}
	sb.WriteString(summary + "\n\n")

	sb.WriteString(body)
	sb.WriteString("\n\n")

	if len(contradictions) > 0 {
		sb.WriteString("## Notes on Conflicting Information\n\n")
		for _, c := range contradictions {
			fmt.Fprintf(&sb, "- %s: %q vs %q\n", c.Description, c.ClaimA, c.ClaimB)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Sources\n\n")
	for _, c := range citations {
		fmt.Fprintf(&sb, "%d. %s\n", c.ID, c.URL)
	}

	return sb.String()
}

// validate checks citation discipline (SPEC_FULL.md §4.6 Failure,
// I2): every [n] marker must reference an existing citation, and every
// sentence with a number, date, proper noun, or superlative must carry
// one.
func validate(report string, citations []state.Citation) []string {
	known := make(map[int]bool, len(citations))
	for _, c := range citations {
		known[c.ID] = true
	}

	var problems []string
	for _, m := range markerRe.FindAllStringSubmatch(report, -1) {
		n, _ := strconv.Atoi(m[1])
		if !known[n] {
			problems = append(problems, fmt.Sprintf("dangling marker [%d]", n))
		}
	}

	for _, sentence := range splitSentences(report) {
		if needsCitation(sentence) && !markerRe.MatchString(sentence) {
			problems = append(problems, "uncited claim: "+truncate(sentence, 60))
		}
	}

	return dedupe(problems)
}

var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]`)

func splitSentences(text string) []string {
	return sentenceRe.FindAllString(text, -1)
}

var (
	numberRe      = regexp.MustCompile(`\d`)
	properNounRe  = regexp.MustCompile(`\s[A-Z][a-z]+`)
	superlativeRe = regexp.MustCompile(`(?i)\b(best|worst|most|least|largest|smallest|first|only)\b`)
)

func needsCitation(sentence string) bool {
	return numberRe.MatchString(sentence) || properNounRe.MatchString(sentence) || superlativeRe.MatchString(sentence)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func dedupe(items []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, it := range items {
		if !seen[it] {
			seen[it] = true
			out = append(out, it)
		}
	}
	return out
}
