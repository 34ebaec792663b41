package match

import (
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/spigell/cvmatch/internal/store"
)

// JobRequirement is one requirement extracted from a job posting, together
// with the retrieval query and evaluation hint the extractor produced for it.
type JobRequirement struct {
	Name          string `json:"name"`
	Category      string `json:"category"`
	SearchQuery   string `json:"search_query"`
	InferenceRule string `json:"inference_rule"`
}

// Verdict is the normalized outcome of evaluating one requirement.
type Verdict string

const (
	VerdictMatch    Verdict = "MATCH"
	VerdictPartial  Verdict = "PARTIAL"
	VerdictMissing  Verdict = "MISSING"
	VerdictError    Verdict = "ERROR"
	VerdictUnparsed Verdict = "UNPARSED"
)

// ParseVerdict normalizes a raw verdict token into the closed Verdict set.
// Surrounding non-letter marks (emoji, punctuation, whitespace) are tolerated;
// anything that is not exactly one of the known tokens maps to UNPARSED.
func ParseVerdict(raw string) Verdict {
	token := strings.TrimFunc(raw, func(r rune) bool { return !unicode.IsLetter(r) })
	switch strings.ToUpper(token) {
	case "MATCH":
		return VerdictMatch
	case "PARTIAL":
		return VerdictPartial
	case "MISSING":
		return VerdictMissing
	case "ERROR":
		return VerdictError
	default:
		return VerdictUnparsed
	}
}

// IsMatch reports whether the verdict counts as a confirmed match. Only an
// exact MATCH does; PARTIAL, MISSING, ERROR and UNPARSED all count as missing.
func (v Verdict) IsMatch() bool { return v == VerdictMatch }

// Citation points a verdict back at one piece of retrieved evidence.
// Labels are 1-based in retrieval order.
type Citation struct {
	Label   int
	ChunkID uuid.UUID
	DocID   uuid.UUID
	DocType store.DocType
	Score   float64
	Content string
	Title   string
	Company string
}

// RequirementEvaluation is the outcome of evaluating a single requirement
// against the retrieved candidate evidence.
type RequirementEvaluation struct {
	Requirement          JobRequirement
	Verdict              Verdict
	Reasoning            string
	RetrievedChunksCount int
	EvidencePreview      string
	Citations            []Citation
}

// LanguageMapping equates a source-language term with its English
// equivalents, as found in the indexed documents.
type LanguageMapping struct {
	SourceTerm      string   `mapstructure:"source_term"`
	EquivalentTerms []string `mapstructure:"equivalent_terms"`
	Context         string   `mapstructure:"context"`
	Confidence      float64  `mapstructure:"confidence"`
}

// SkillDemonstration records a task the candidate performed and the skills
// that task implies.
type SkillDemonstration struct {
	TaskDescription  string   `mapstructure:"task_description"`
	ImpliedSkills    []string `mapstructure:"implied_skills"`
	EvidenceLocation string   `mapstructure:"evidence_location"`
	Confidence       float64  `mapstructure:"confidence"`
}

// CredentialMapping equates a candidate credential with the qualifications
// it satisfies.
type CredentialMapping struct {
	CandidateCredential string   `mapstructure:"candidate_credential"`
	EquivalentTo        []string `mapstructure:"equivalent_to"`
	Reasoning           string   `mapstructure:"reasoning"`
	Confidence          float64  `mapstructure:"confidence"`
}

// DomainMapping is the job-specific equivalence knowledge extracted once per
// analysis and shared read-only across all requirement evaluations.
type DomainMapping struct {
	LanguageMappings    []LanguageMapping    `mapstructure:"language_mappings"`
	SkillDemonstrations []SkillDemonstration `mapstructure:"skill_demonstrations"`
	CredentialMappings  []CredentialMapping  `mapstructure:"credential_mappings"`
}

// Empty reports whether the mapping carries no knowledge at all.
func (m *DomainMapping) Empty() bool {
	return m == nil ||
		(len(m.LanguageMappings) == 0 &&
			len(m.SkillDemonstrations) == 0 &&
			len(m.CredentialMappings) == 0)
}

// JobMatchResult is the aggregate outcome of analyzing one job posting.
type JobMatchResult struct {
	JobText      string
	Requirements []JobRequirement
	Evaluations  []RequirementEvaluation
	MatchCount   int
	MissingCount int
	MatchRate    float64
}
