package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/trialmatch/platform/pkg/common/models"
)

// matchCandidates is the fixed nearest-neighbor result count. Fewer come
// back only when the index holds fewer documents.
const matchCandidates = 5

// Searcher is the slice of the similarity index the matching pipeline
// needs.
type Searcher interface {
	Query(ctx context.Context, text string, k int) ([]models.TrialHit, error)
}

// MatchResult carries the retrieved candidates verbatim plus the
// model's justification for the pairing.
type MatchResult struct {
	Hits        []models.TrialHit
	Explanation string
}

type MatchPipeline struct {
	model   Generator
	index   Searcher
	prompts Prompts
}

func NewMatchPipeline(model Generator, index Searcher, prompts Prompts) *MatchPipeline {
	return &MatchPipeline{model: model, index: index, prompts: prompts}
}

// Run executes match -> explain. No retries, no re-ranking, no score
// thresholding: hits come back exactly as the index returned them.
func (p *MatchPipeline) Run(ctx context.Context, profile string) (MatchResult, error) {
	query := fmt.Sprintf(p.prompts.MatchQuery, profile)

	hits, err := p.index.Query(ctx, query, matchCandidates)
	if err != nil {
		return MatchResult{}, fmt.Errorf("match step: %w", err)
	}

	explanation, err := p.explain(ctx, profile, hits)
	if err != nil {
		return MatchResult{}, err
	}

	return MatchResult{Hits: hits, Explanation: explanation}, nil
}

func (p *MatchPipeline) explain(ctx context.Context, profile string, hits []models.TrialHit) (string, error) {
	docs := make([]string, len(hits))
	for i, hit := range hits {
		docs[i] = hit.Document
	}

	system := fmt.Sprintf(p.prompts.ExplainSystem, profile)
	user := fmt.Sprintf(p.prompts.ExplainUser, strings.Join(docs, "\n\n"))

	explanation, err := p.model.Complete(ctx, system, user)
	if err != nil {
		return "", fmt.Errorf("explain step: %w", err)
	}
	return explanation, nil
}
