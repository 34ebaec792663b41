package match

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/cvmatch/internal/store"
	"github.com/spigell/cvmatch/internal/utils"
)

const (
	missingReasoning   = "No evidence found (no chunks retrieved)"
	evidencePreviewLen = 200
)

// EvaluateRequirement retrieves candidate evidence for one requirement and
// asks the evaluator model for a verdict. Zero retrieved chunks short-circuit
// to MISSING without calling the model at all; a generation failure is
// reported as an ERROR verdict. Evidence retrieval failures indicate the
// content store is unreachable rather than a bad requirement, so they
// propagate instead of being folded into a verdict.
func (s *Service) EvaluateRequirement(ctx context.Context, req JobRequirement, mapping *DomainMapping) (RequirementEvaluation, error) {
	chunks, err := s.searchEvidence(ctx, req)
	if err != nil {
		s.logger.Error("evidence retrieval failed",
			zap.String("requirement", req.Name),
			zap.Error(err),
		)
		return RequirementEvaluation{}, fmt.Errorf("retrieving evidence for %q: %w", req.Name, err)
	}

	if len(chunks) == 0 {
		return RequirementEvaluation{
			Requirement: req,
			Verdict:     VerdictMissing,
			Reasoning:   missingReasoning,
		}, nil
	}

	evidence := renderEvidence(chunks, s.cfg.EvidenceSnippetLen)
	preview := truncateRunes(evidence, evidencePreviewLen)
	prompt := s.buildEvaluationPrompt(req, mapping, evidence)

	s.logger.Debug("requirement evaluation request",
		zap.String("requirement", req.Name),
		zap.Int("evidence_chunks", len(chunks)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, s.cfg.MaxLogLength)),
	)

	raw, err := s.generator.Generate(ctx, prompt, s.cfg.EvaluatorModel, s.cfg.EvaluationMaxTokens)
	if err != nil {
		s.logger.Error("requirement evaluation failed",
			zap.String("requirement", req.Name),
			zap.Error(err),
		)
		return RequirementEvaluation{
			Requirement:          req,
			Verdict:              VerdictError,
			Reasoning:            fmt.Sprintf("Evaluation failed: %v", err),
			RetrievedChunksCount: len(chunks),
			EvidencePreview:      preview,
		}, nil
	}

	verdict, reasoning := parseVerdictLine(raw)

	return RequirementEvaluation{
		Requirement:          req,
		Verdict:              verdict,
		Reasoning:            reasoning,
		RetrievedChunksCount: len(chunks),
		EvidencePreview:      preview,
		Citations:            buildCitations(chunks, s.cfg.CitationTopK),
	}, nil
}

func (s *Service) searchEvidence(ctx context.Context, req JobRequirement) ([]store.RetrievedChunk, error) {
	query := req.SearchQuery
	if strings.TrimSpace(query) == "" {
		query = req.Name
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	return s.store.Search(ctx, vector, store.SearchOptions{
		Limit:    s.cfg.SearchLimit,
		MinScore: s.cfg.MinScore,
		DocTypes: store.PersonalDocTypes,
	})
}

func (s *Service) buildEvaluationPrompt(req JobRequirement, mapping *DomainMapping, evidence string) string {
	rule := req.InferenceRule
	if rule == "" {
		rule = defaultInferenceRules[req.Category]
	}
	if rule == "" {
		rule = fallbackInferenceRule
	}

	var language, skills, credentials string
	if mapping == nil {
		language, skills, credentials = "none", "none", "none"
	} else {
		language = formatLanguageMappings(mapping.LanguageMappings)
		skills = formatSkillDemonstrations(mapping.SkillDemonstrations)
		credentials = formatCredentialMappings(mapping.CredentialMappings)
	}

	replacer := strings.NewReplacer(
		"{{DOMAIN_REFERENCE}}", strings.TrimSpace(domainReference),
		"{{LANGUAGE_MAPPINGS}}", language,
		"{{SKILL_DEMONSTRATIONS}}", skills,
		"{{CREDENTIAL_MAPPINGS}}", credentials,
		"{{REQUIREMENT_NAME}}", req.Name,
		"{{CATEGORY}}", req.Category,
		"{{INFERENCE_RULE}}", rule,
		"{{EVIDENCE}}", evidence,
	)

	return replacer.Replace(evaluatePromptTemplate)
}

// renderEvidence turns retrieved chunks into the bullet list fed to the
// evaluation prompt, each snippet capped at snippetLen runes.
func renderEvidence(chunks []store.RetrievedChunk, snippetLen int) string {
	lines := make([]string, 0, len(chunks))
	for _, rc := range chunks {
		lines = append(lines, "- "+utils.TruncateForLog(rc.Chunk.Content, snippetLen))
	}
	return strings.Join(lines, "\n")
}

// parseVerdictLine splits the model response on the first pipe: the left side
// is the verdict token, the right side the reasoning, truncated to its first
// line. A response without a pipe keeps its first line as reasoning.
func parseVerdictLine(raw string) (Verdict, string) {
	trimmed := strings.TrimSpace(raw)

	token := trimmed
	reasoning := trimmed
	if idx := strings.Index(trimmed, "|"); idx != -1 {
		token = trimmed[:idx]
		reasoning = strings.TrimSpace(trimmed[idx+1:])
	}

	if line, _, found := strings.Cut(reasoning, "\n"); found {
		reasoning = strings.TrimSpace(line)
	}

	return ParseVerdict(token), reasoning
}

// buildCitations labels the top-K evidence chunks, 1-based, in retrieval
// order. Job posting title and company carry over when present.
func buildCitations(chunks []store.RetrievedChunk, topK int) []Citation {
	if topK > len(chunks) {
		topK = len(chunks)
	}

	citations := make([]Citation, 0, topK)
	for i, rc := range chunks[:topK] {
		citation := Citation{
			Label:   i + 1,
			ChunkID: rc.Chunk.ID,
			DocID:   rc.Document.ID,
			DocType: rc.Document.DocType,
			Score:   rc.Score,
			Content: rc.Chunk.Content,
		}
		if rc.JobPosting != nil {
			if rc.JobPosting.Title != nil {
				citation.Title = *rc.JobPosting.Title
			}
			if rc.JobPosting.Company != nil {
				citation.Company = *rc.JobPosting.Company
			}
		}
		citations = append(citations, citation)
	}

	return citations
}
