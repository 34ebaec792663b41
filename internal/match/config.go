package match

// Config tunes the matching pipeline. Zero values fall back to the defaults
// below when a Service is constructed.
type Config struct {
	// ExtractionModel runs requirement and domain-knowledge extraction.
	// Empty selects the generator's primary model.
	ExtractionModel string
	// EvaluatorModel runs per-requirement verdicts. Empty selects the
	// generator's primary model.
	EvaluatorModel string

	// SearchLimit bounds evidence chunks retrieved per requirement.
	SearchLimit int
	// MinScore pre-filters evidence on the explicit job match score.
	// Zero keeps everything (recall first).
	MinScore float64
	// CandidateLimit bounds chunks gathered for the candidate summary fed
	// to domain-knowledge extraction.
	CandidateLimit int
	// CitationTopK caps citations attached to each evaluation.
	CitationTopK int

	// JobTextLimit caps job posting characters sent to extraction prompts.
	JobTextLimit int
	// EvidenceSnippetLen caps each evidence chunk rendered into the
	// evaluation prompt.
	EvidenceSnippetLen int

	ExtractionMaxTokens int
	EvaluationMaxTokens int
	DomainMaxTokens     int

	// MaxLogLength caps prompt and response previews in debug logs.
	MaxLogLength int
}

// DefaultConfig returns the deployment defaults for the matching pipeline.
func DefaultConfig() Config {
	return Config{
		SearchLimit:         5,
		MinScore:            0,
		CandidateLimit:      10,
		CitationTopK:        3,
		JobTextLimit:        6000,
		EvidenceSnippetLen:  500,
		ExtractionMaxTokens: 2000,
		EvaluationMaxTokens: 256,
		DomainMaxTokens:     1500,
		MaxLogLength:        200,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.SearchLimit <= 0 {
		c.SearchLimit = defaults.SearchLimit
	}
	if c.CandidateLimit <= 0 {
		c.CandidateLimit = defaults.CandidateLimit
	}
	if c.CitationTopK <= 0 {
		c.CitationTopK = defaults.CitationTopK
	}
	if c.JobTextLimit <= 0 {
		c.JobTextLimit = defaults.JobTextLimit
	}
	if c.EvidenceSnippetLen <= 0 {
		c.EvidenceSnippetLen = defaults.EvidenceSnippetLen
	}
	if c.ExtractionMaxTokens <= 0 {
		c.ExtractionMaxTokens = defaults.ExtractionMaxTokens
	}
	if c.EvaluationMaxTokens <= 0 {
		c.EvaluationMaxTokens = defaults.EvaluationMaxTokens
	}
	if c.DomainMaxTokens <= 0 {
		c.DomainMaxTokens = defaults.DomainMaxTokens
	}
	if c.MaxLogLength <= 0 {
		c.MaxLogLength = defaults.MaxLogLength
	}
	return c
}

// defaultInferenceRules supplies an evaluation rule when the extractor did
// not produce one for a requirement.
var defaultInferenceRules = map[string]string{
	"Hard Skill":     "Check explicit evidence of the skill, tool or technology, or clear applied work with it.",
	"Soft Skill":     "Look for behaviors or outcomes that demonstrate the trait.",
	"Implicit Trait": "Infer from tasks and responsibilities; thesis work counts as research experience.",
}

const fallbackInferenceRule = "Apply strict keyword matching."
