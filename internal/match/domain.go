package match

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/cvmatch/internal/store"
	"github.com/spigell/cvmatch/internal/utils"
)

// candidateProbeQuery retrieves a broad cross-section of the candidate's
// indexed documents for domain-knowledge extraction.
const candidateProbeQuery = "candidate profile education experience skills"

// ExtractDomainKnowledge derives job-specific equivalences (language terms,
// skill demonstrations, credentials) from the job text and the candidate's
// own documents. It is computed once per analysis. Fail-soft on model and
// parse failures: both yield an empty mapping. A candidate-summary retrieval
// failure means the content store is unreachable and propagates instead.
func (s *Service) ExtractDomainKnowledge(ctx context.Context, jobText string) (*DomainMapping, error) {
	summary, err := s.candidateSummary(ctx)
	if err != nil {
		return nil, fmt.Errorf("retrieving candidate summary: %w", err)
	}

	prompt := strings.ReplaceAll(domainPromptTemplate, "{{JOB_TEXT}}", truncateRunes(jobText, s.cfg.JobTextLimit))
	prompt = strings.ReplaceAll(prompt, "{{CANDIDATE_SUMMARY}}", summary)

	s.logger.Debug("domain knowledge extraction request",
		zap.Int("job_text_length", len(jobText)),
		zap.Int("candidate_summary_length", len(summary)),
	)

	raw, err := s.generator.Generate(ctx, prompt, s.cfg.ExtractionModel, s.cfg.DomainMaxTokens)
	if err != nil {
		s.logger.Warn("domain knowledge extraction failed", zap.Error(err))
		return &DomainMapping{}, nil
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &data); err != nil {
		s.logger.Warn("domain knowledge extraction returned unparseable JSON",
			zap.Error(err),
			zap.String("response_preview", utils.TruncateForLog(raw, s.cfg.MaxLogLength)),
		)
		return &DomainMapping{}, nil
	}

	mapping := &DomainMapping{}
	if err := mapstructure.WeakDecode(data, mapping); err != nil {
		s.logger.Warn("domain knowledge decode failed", zap.Error(err))
		return &DomainMapping{}, nil
	}

	s.logger.Info("domain knowledge extracted",
		zap.Int("language_mappings", len(mapping.LanguageMappings)),
		zap.Int("skill_demonstrations", len(mapping.SkillDemonstrations)),
		zap.Int("credential_mappings", len(mapping.CredentialMappings)),
	)

	return mapping, nil
}

// candidateSummary embeds the fixed probe query and concatenates the
// retrieved personal-document chunks with blank lines.
func (s *Service) candidateSummary(ctx context.Context) (string, error) {
	vector, err := s.embedder.EmbedQuery(ctx, candidateProbeQuery)
	if err != nil {
		return "", err
	}

	chunks, err := s.store.Search(ctx, vector, store.SearchOptions{
		Limit:    s.cfg.CandidateLimit,
		MinScore: s.cfg.MinScore,
		DocTypes: store.PersonalDocTypes,
	})
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, len(chunks))
	for _, rc := range chunks {
		parts = append(parts, rc.Chunk.Content)
	}

	return strings.Join(parts, "\n\n"), nil
}

func formatLanguageMappings(items []LanguageMapping) string {
	if len(items) == 0 {
		return "none"
	}
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, "- "+item.SourceTerm+" -> "+strings.Join(item.EquivalentTerms, ", ")+" ("+item.Context+")")
	}
	return strings.Join(lines, "\n")
}

func formatSkillDemonstrations(items []SkillDemonstration) string {
	if len(items) == 0 {
		return "none"
	}
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, "- "+item.TaskDescription+" -> "+strings.Join(item.ImpliedSkills, ", ")+" ("+item.EvidenceLocation+")")
	}
	return strings.Join(lines, "\n")
}

func formatCredentialMappings(items []CredentialMapping) string {
	if len(items) == 0 {
		return "none"
	}
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, "- "+item.CandidateCredential+" -> "+strings.Join(item.EquivalentTo, ", ")+" ("+item.Reasoning+")")
	}
	return strings.Join(lines, "\n")
}
