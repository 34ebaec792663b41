package match

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/cvmatch/internal/utils"
)

const defaultRequirementCategory = "Hard Skill"

// ExtractRequirements asks the extraction model for the requirements of a
// job posting. The pipeline is recall-driven and fail-soft: any model or
// parse failure yields an empty list, never an error.
func (s *Service) ExtractRequirements(ctx context.Context, jobText string) []JobRequirement {
	limited := truncateRunes(jobText, s.cfg.JobTextLimit)
	prompt := strings.ReplaceAll(extractPromptTemplate, "{{JOB_TEXT}}", limited)

	s.logger.Debug("requirement extraction request",
		zap.String("model", s.cfg.ExtractionModel),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, s.cfg.MaxLogLength)),
	)

	raw, err := s.generator.Generate(ctx, prompt, s.cfg.ExtractionModel, s.cfg.ExtractionMaxTokens)
	if err != nil {
		s.logger.Warn("requirement extraction failed", zap.Error(err))
		return nil
	}

	var payload struct {
		Requirements []JobRequirement `json:"requirements"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &payload); err != nil {
		s.logger.Warn("requirement extraction returned unparseable JSON",
			zap.Error(err),
			zap.String("response_preview", utils.TruncateForLog(raw, s.cfg.MaxLogLength)),
		)
		return nil
	}

	requirements := make([]JobRequirement, 0, len(payload.Requirements))
	for _, req := range payload.Requirements {
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			continue
		}
		req.Category = strings.TrimSpace(req.Category)
		if req.Category == "" {
			req.Category = defaultRequirementCategory
		}
		req.SearchQuery = strings.TrimSpace(req.SearchQuery)
		req.InferenceRule = strings.TrimSpace(req.InferenceRule)
		requirements = append(requirements, req)
	}

	return requirements
}

// stripCodeFence removes surrounding markdown code fences from a model
// response so the remainder can be parsed as JSON.
func stripCodeFence(raw string) string {
	cleaned := strings.TrimSpace(raw)

	if strings.HasPrefix(cleaned, "```") {
		if idx := strings.Index(cleaned, "\n"); idx != -1 {
			cleaned = cleaned[idx+1:]
		} else {
			cleaned = cleaned[3:]
		}
		if idx := strings.LastIndex(cleaned, "```"); idx != -1 {
			cleaned = cleaned[:idx]
		}
	}

	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.TrimPrefix(cleaned, "json")
	return strings.TrimSpace(cleaned)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
