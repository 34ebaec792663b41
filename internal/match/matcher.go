package match

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/cvmatch/internal/ai"
	"github.com/spigell/cvmatch/internal/store"
)

// searcher is the slice of the content store the pipeline needs.
type searcher interface {
	Search(ctx context.Context, queryVector []float32, opts store.SearchOptions) ([]store.RetrievedChunk, error)
}

// Service orchestrates the job matching pipeline: requirement extraction,
// domain-knowledge extraction, evidence retrieval and per-requirement
// evaluation. It is stateless across calls.
type Service struct {
	embedder  ai.Embedder
	generator ai.Generator
	store     searcher
	cfg       Config
	logger    *zap.Logger
}

// NewService builds the matching pipeline. Zero config fields fall back to
// defaults; a nil logger is replaced with a no-op one.
func NewService(embedder ai.Embedder, generator ai.Generator, store searcher, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		embedder:  embedder,
		generator: generator,
		store:     store,
		cfg:       cfg.withDefaults(),
		logger:    logger,
	}
}

// AnalyzeMatch runs the full pipeline for one job posting. Domain knowledge
// is extracted once and shared read-only across all requirement evaluations.
// Model and parse failures degrade to an empty, well-formed result; content
// store retrieval failures and context cancellation abort the run.
func (s *Service) AnalyzeMatch(ctx context.Context, jobText string) (*JobMatchResult, error) {
	s.logger.Info("job matching started",
		zap.Int("job_text_length", len(jobText)),
	)

	mapping, err := s.ExtractDomainKnowledge(ctx, jobText)
	if err != nil {
		return nil, err
	}

	requirements := s.ExtractRequirements(ctx, jobText)
	s.logger.Info("requirements extracted", zap.Int("count", len(requirements)))

	if len(requirements) == 0 {
		return Aggregate(jobText, nil, nil), nil
	}

	evaluations := make([]RequirementEvaluation, 0, len(requirements))
	for i, req := range requirements {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		s.logger.Debug("evaluating requirement",
			zap.String("requirement", req.Name),
			zap.Int("position", i+1),
			zap.Int("total", len(requirements)),
		)

		eval, err := s.EvaluateRequirement(ctx, req, mapping)
		if err != nil {
			return nil, err
		}

		evaluations = append(evaluations, eval)
	}

	result := Aggregate(jobText, requirements, evaluations)

	s.logger.Info("job matching completed",
		zap.Int("matches", result.MatchCount),
		zap.Int("total", len(result.Evaluations)),
		zap.Float64("match_rate", result.MatchRate),
	)

	return result, nil
}
