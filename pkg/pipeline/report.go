// Package pipeline implements the two fixed model-orchestration
// sequences: intake cleaning with a bounded critique loop, and trial
// matching with a single explanation pass. Both are plain sequential
// compositions; each step returns a new state value.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Generator is the slice of the model client the pipelines need.
type Generator interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// maxRecleans caps the critique loop: however often the critique flags
// the cleaned record, the clean step runs at most twice.
const maxRecleans = 1

// ReportState is the immutable per-step state of the cleaning pipeline.
// Steps return a new value rather than mutating shared state.
type ReportState struct {
	Raw       string
	Cleaned   string
	Report    string
	Critiques int
}

// ReportResult is what the cleaning pipeline hands back to the caller.
type ReportResult struct {
	Cleaned   string
	Report    string
	Critiques int
	Recleaned bool
}

type ReportPipeline struct {
	model   Generator
	prompts Prompts
}

func NewReportPipeline(model Generator, prompts Prompts) *ReportPipeline {
	return &ReportPipeline{model: model, prompts: prompts}
}

// Run executes clean -> critique -> (clean once more at most) -> report.
// A model failure at any step aborts the run; nothing is persisted by
// this layer so a failed run leaves no partial state behind.
func (p *ReportPipeline) Run(ctx context.Context, raw string) (ReportResult, error) {
	state := ReportState{Raw: raw}
	recleaned := false

	for pass := 0; ; pass++ {
		next, err := p.clean(ctx, state)
		if err != nil {
			return ReportResult{}, err
		}
		state = next

		verdict, err := p.critique(ctx, state)
		if err != nil {
			return ReportResult{}, err
		}
		state = ReportState{
			Raw:       state.Raw,
			Cleaned:   state.Cleaned,
			Critiques: state.Critiques + 1,
		}

		if critiqueFlagged(verdict) && pass < maxRecleans {
			recleaned = true
			continue
		}
		break
	}

	state, err := p.report(ctx, state)
	if err != nil {
		return ReportResult{}, err
	}

	return ReportResult{
		Cleaned:   state.Cleaned,
		Report:    state.Report,
		Critiques: state.Critiques,
		Recleaned: recleaned,
	}, nil
}

func (p *ReportPipeline) clean(ctx context.Context, state ReportState) (ReportState, error) {
	cleaned, err := p.model.Complete(ctx, p.prompts.CleanSystem, fmt.Sprintf(p.prompts.CleanUser, state.Raw))
	if err != nil {
		return ReportState{}, fmt.Errorf("clean step: %w", err)
	}
	return ReportState{
		Raw:       state.Raw,
		Cleaned:   cleaned,
		Critiques: state.Critiques,
	}, nil
}

func (p *ReportPipeline) critique(ctx context.Context, state ReportState) (string, error) {
	verdict, err := p.model.Complete(ctx, p.prompts.CritiqueSystem, fmt.Sprintf(p.prompts.CritiqueUser, state.Cleaned))
	if err != nil {
		return "", fmt.Errorf("critique step: %w", err)
	}
	return verdict, nil
}

func (p *ReportPipeline) report(ctx context.Context, state ReportState) (ReportState, error) {
	report, err := p.model.Complete(ctx, p.prompts.ReportSystem, fmt.Sprintf(p.prompts.ReportUser, state.Cleaned))
	if err != nil {
		return ReportState{}, fmt.Errorf("report step: %w", err)
	}
	return ReportState{
		Raw:       state.Raw,
		Cleaned:   state.Cleaned,
		Report:    report,
		Critiques: state.Critiques,
	}, nil
}

// critiqueVerdict is the structured form a well-behaved model may reply
// with. Keyword scanning remains the fallback for free-text critiques.
type critiqueVerdict struct {
	NeedsImprovement *bool  `json:"needs_improvement"`
	Verdict          string `json:"verdict"`
}

// critiqueFlagged decides whether the critique asked for a re-clean.
// A JSON body with a needs_improvement field is authoritative; anything
// else falls back to scanning for "needs improvement" or "incorrect",
// case-insensitive.
func critiqueFlagged(content string) bool {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "{") {
		var v critiqueVerdict
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			if v.NeedsImprovement != nil {
				return *v.NeedsImprovement
			}
			if v.Verdict != "" {
				return containsDeficiencyKeyword(v.Verdict)
			}
		}
	}
	return containsDeficiencyKeyword(content)
}

func containsDeficiencyKeyword(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "needs improvement") || strings.Contains(lower, "incorrect")
}
