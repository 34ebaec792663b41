package gemini

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type contentCall struct {
	model  string
	prompt string
	config *genai.GenerateContentConfig
}

type fakeContentCaller struct {
	mu        sync.Mutex
	calls     []contentCall
	responses map[string][]fakeContentResponse
}

type fakeContentResponse struct {
	text string
	err  error
}

func newFakeContentCaller() *fakeContentCaller {
	return &fakeContentCaller{responses: make(map[string][]fakeContentResponse)}
}

func (f *fakeContentCaller) enqueue(model, text string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[model] = append(f.responses[model], fakeContentResponse{text: text, err: err})
}

func (f *fakeContentCaller) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prompt := ""
	for _, content := range contents {
		for _, part := range content.Parts {
			prompt += part.Text
		}
	}
	f.calls = append(f.calls, contentCall{model: model, prompt: prompt, config: config})

	queued := f.responses[model]
	if len(queued) == 0 {
		return nil, errors.New("unexpected call")
	}
	res := queued[0]
	f.responses[model] = queued[1:]
	if res.err != nil {
		return nil, res.err
	}

	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: res.text}}},
		}},
	}, nil
}

func newTestGenerator(models contentCaller, primary, fallback string) *Generator {
	return &Generator{
		models:   models,
		primary:  primary,
		fallback: fallback,
		logger:   zap.NewNop(),
	}
}

func TestGeneratorUsesPrimaryModel(t *testing.T) {
	models := newFakeContentCaller()
	models.enqueue("primary-model", "all good", nil)

	g := newTestGenerator(models, "primary-model", "fallback-model")

	output, err := g.Generate(context.Background(), "evaluate this", "", 64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output != "all good" {
		t.Fatalf("unexpected output: %q", output)
	}

	if len(models.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(models.calls))
	}
	call := models.calls[0]
	if call.model != "primary-model" {
		t.Fatalf("unexpected model: %s", call.model)
	}
	if call.config == nil || call.config.MaxOutputTokens != 64 {
		t.Fatalf("expected max output tokens to be forwarded, got %+v", call.config)
	}
	if !strings.Contains(call.prompt, "evaluate this") {
		t.Fatalf("prompt not forwarded: %q", call.prompt)
	}
}

func TestGeneratorSubstitutesFallbackOnPrimaryFailure(t *testing.T) {
	models := newFakeContentCaller()
	models.enqueue("primary-model", "", errors.New("overloaded"))
	models.enqueue("fallback-model", "fallback answer", nil)

	g := newTestGenerator(models, "primary-model", "fallback-model")

	output, err := g.Generate(context.Background(), "prompt", "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output != "fallback answer" {
		t.Fatalf("unexpected output: %q", output)
	}

	if len(models.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.calls))
	}
	if models.calls[1].model != "fallback-model" {
		t.Fatalf("expected second call on fallback, got %s", models.calls[1].model)
	}
}

func TestGeneratorErrsWhenPrimaryAndFallbackFail(t *testing.T) {
	models := newFakeContentCaller()
	models.enqueue("primary-model", "", errors.New("primary down"))
	models.enqueue("fallback-model", "", errors.New("fallback down"))

	g := newTestGenerator(models, "primary-model", "fallback-model")

	_, err := g.Generate(context.Background(), "prompt", "", 0)
	if err == nil {
		t.Fatal("expected error when both models fail")
	}
	if !strings.Contains(err.Error(), "fallback down") {
		t.Fatalf("expected last error to be surfaced, got: %v", err)
	}
}

func TestGeneratorDoesNotReissueWhenFallbackEqualsTarget(t *testing.T) {
	models := newFakeContentCaller()
	models.enqueue("same-model", "", errors.New("down"))

	g := newTestGenerator(models, "same-model", "same-model")

	if _, err := g.Generate(context.Background(), "prompt", "", 0); err == nil {
		t.Fatal("expected error")
	}
	if len(models.calls) != 1 {
		t.Fatalf("expected a single call, got %d", len(models.calls))
	}
}

func TestGeneratorHonorsExplicitModel(t *testing.T) {
	models := newFakeContentCaller()
	models.enqueue("explicit-model", "ok", nil)

	g := newTestGenerator(models, "primary-model", "")

	if _, err := g.Generate(context.Background(), "prompt", "explicit-model", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if models.calls[0].model != "explicit-model" {
		t.Fatalf("unexpected model: %s", models.calls[0].model)
	}
}

func TestGeneratorRejectsEmptyPrompt(t *testing.T) {
	g := newTestGenerator(newFakeContentCaller(), "primary-model", "")

	if _, err := g.Generate(context.Background(), "   ", "", 0); err == nil {
		t.Fatal("expected error for empty prompt")
	}
}

func TestGeneratorErrsOnEmptyResponse(t *testing.T) {
	models := newFakeContentCaller()
	models.enqueue("primary-model", "   ", nil)

	g := newTestGenerator(models, "primary-model", "")

	if _, err := g.Generate(context.Background(), "prompt", "", 0); err == nil {
		t.Fatal("expected error for empty response")
	}
}
