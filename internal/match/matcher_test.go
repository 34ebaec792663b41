package match

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/cvmatch/internal/store"
)

type generatorCall struct {
	prompt    string
	model     string
	maxTokens int
}

// fakeGenerator replays queued responses in call order.
type fakeGenerator struct {
	responses []string
	errs      []error
	calls     []generatorCall
}

func (f *fakeGenerator) Generate(_ context.Context, prompt, model string, maxTokens int) (string, error) {
	idx := len(f.calls)
	f.calls = append(f.calls, generatorCall{prompt: prompt, model: model, maxTokens: maxTokens})

	if idx < len(f.errs) && f.errs[idx] != nil {
		return "", f.errs[idx]
	}
	if idx < len(f.responses) {
		return f.responses[idx], nil
	}
	return "", nil
}

type fakeEmbedder struct {
	vector  []float32
	err     error
	queries []string
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		f.queries = append(f.queries, texts[i])
		out[i] = f.vector
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.queries = append(f.queries, text)
	return f.vector, nil
}

// fakeSearcher returns the same results on every call; err fails every call,
// errs fails individual calls by order.
type fakeSearcher struct {
	results []store.RetrievedChunk
	err     error
	errs    []error
	calls   []store.SearchOptions
}

func (f *fakeSearcher) Search(_ context.Context, _ []float32, opts store.SearchOptions) ([]store.RetrievedChunk, error) {
	idx := len(f.calls)
	f.calls = append(f.calls, opts)
	if f.err != nil {
		return nil, f.err
	}
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	return f.results, nil
}

func newTestService(generator *fakeGenerator, embedder *fakeEmbedder, search *fakeSearcher) *Service {
	return NewService(embedder, generator, search, Config{}, zap.NewNop())
}

func evidenceChunk(content string) store.RetrievedChunk {
	docID := uuid.New()
	return store.RetrievedChunk{
		Chunk:    store.Chunk{ID: uuid.New(), DocumentID: docID, Content: content},
		Document: store.Document{ID: docID, DocType: store.DocTypeCV},
		Score:    0.8,
	}
}

const extractionResponse = `{"requirements": [{"name": "Go experience", "category": "Hard Skill", "search_query": "Go Golang backend", "inference_rule": "Check for Go work"}]}`

func TestAnalyzeMatchSingleRequirement(t *testing.T) {
	generator := &fakeGenerator{responses: []string{
		`{"language_mappings": [], "skill_demonstrations": [], "credential_mappings": []}`,
		extractionResponse,
		"MATCH | CV shows three years of Go services.",
	}}
	embedder := &fakeEmbedder{vector: []float32{0.1}}
	search := &fakeSearcher{results: []store.RetrievedChunk{evidenceChunk("Built Go services")}}

	result, err := newTestService(generator, embedder, search).AnalyzeMatch(context.Background(), "We need a Go engineer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.MatchCount != 1 || result.MissingCount != 0 {
		t.Fatalf("expected 1/0 counts, got %d/%d", result.MatchCount, result.MissingCount)
	}
	if result.MatchRate != 100 {
		t.Fatalf("expected 100%% match rate, got %f", result.MatchRate)
	}
	if len(result.Evaluations) != 1 || result.Evaluations[0].Verdict != VerdictMatch {
		t.Fatalf("unexpected evaluations: %+v", result.Evaluations)
	}
}

func TestAnalyzeMatchNoRequirements(t *testing.T) {
	generator := &fakeGenerator{responses: []string{`{}`, `{}`}}
	embedder := &fakeEmbedder{vector: []float32{0.1}}
	search := &fakeSearcher{}

	result, err := newTestService(generator, embedder, search).AnalyzeMatch(context.Background(), "job")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.MatchCount != 0 || result.MissingCount != 0 || result.MatchRate != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
	if len(result.Evaluations) != 0 {
		t.Fatalf("expected no evaluations, got %d", len(result.Evaluations))
	}
	// domain extraction and requirement extraction only, no evaluation calls
	if len(generator.calls) != 2 {
		t.Fatalf("expected 2 generator calls, got %d", len(generator.calls))
	}
}

func TestAnalyzeMatchExtractsDomainKnowledgeOnce(t *testing.T) {
	generator := &fakeGenerator{responses: []string{
		`{}`,
		`{"requirements": [{"name": "A"}, {"name": "B"}, {"name": "C"}]}`,
		"MISSING | no evidence",
		"MISSING | no evidence",
		"MISSING | no evidence",
	}}
	embedder := &fakeEmbedder{vector: []float32{0.1}}
	search := &fakeSearcher{results: []store.RetrievedChunk{evidenceChunk("chunk")}}

	result, err := newTestService(generator, embedder, search).AnalyzeMatch(context.Background(), "job")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Evaluations) != 3 {
		t.Fatalf("expected 3 evaluations, got %d", len(result.Evaluations))
	}
	// one domain call, one extraction call, one evaluation call per requirement
	if len(generator.calls) != 5 {
		t.Fatalf("expected 5 generator calls, got %d", len(generator.calls))
	}
}

func TestAnalyzeMatchPropagatesConnectivityFailure(t *testing.T) {
	opErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	generator := &fakeGenerator{responses: []string{`{}`, extractionResponse}}
	embedder := &fakeEmbedder{vector: []float32{0.1}}
	// candidate summary retrieval succeeds, evidence retrieval hits the outage
	search := &fakeSearcher{errs: []error{nil, opErr}}

	result, err := newTestService(generator, embedder, search).AnalyzeMatch(context.Background(), "We need a Go engineer")
	if err == nil {
		t.Fatal("expected the retrieval failure to surface")
	}
	var netErr *net.OpError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected the underlying network error, got %v", err)
	}
	if result != nil {
		t.Fatalf("expected no result on retrieval failure, got %+v", result)
	}
}

func TestAnalyzeMatchStopsOnCancelledContext(t *testing.T) {
	generator := &fakeGenerator{responses: []string{`{}`, extractionResponse}}
	embedder := &fakeEmbedder{vector: []float32{0.1}}
	search := &fakeSearcher{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestService(generator, embedder, search).AnalyzeMatch(ctx, "job")
	if err == nil {
		t.Fatal("expected context error")
	}
	if len(generator.calls) != 2 {
		t.Fatalf("expected no evaluation calls after cancellation, got %d total", len(generator.calls))
	}
}
