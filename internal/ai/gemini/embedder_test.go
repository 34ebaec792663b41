package gemini

import (
	"context"
	"errors"
	"math"
	"testing"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeEmbedCaller struct {
	lastModel string
	lastTexts []string
	vectors   [][]float32
	err       error
}

func (f *fakeEmbedCaller) EmbedContent(_ context.Context, model string, contents []*genai.Content, _ *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.lastModel = model
	f.lastTexts = nil
	for _, content := range contents {
		for _, part := range content.Parts {
			f.lastTexts = append(f.lastTexts, part.Text)
		}
	}
	if f.err != nil {
		return nil, f.err
	}

	resp := &genai.EmbedContentResponse{}
	for _, vec := range f.vectors {
		resp.Embeddings = append(resp.Embeddings, &genai.ContentEmbedding{Values: vec})
	}
	return resp, nil
}

func newTestEmbedder(models embedCaller) *Embedder {
	return &Embedder{models: models, model: "embed-model", logger: zap.NewNop()}
}

func TestEmbedderNormalizesVectors(t *testing.T) {
	models := &fakeEmbedCaller{vectors: [][]float32{{3, 4}, {0, 5}}}
	e := newTestEmbedder(models)

	vectors, err := e.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(vectors) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vectors))
	}

	for i, vec := range vectors {
		var sum float64
		for _, v := range vec {
			sum += float64(v) * float64(v)
		}
		if math.Abs(math.Sqrt(sum)-1) > 1e-6 {
			t.Fatalf("vector %d not unit-normalized: norm %f", i, math.Sqrt(sum))
		}
	}

	if vectors[0][0] != 0.6 || vectors[0][1] != 0.8 {
		t.Fatalf("unexpected normalized vector: %v", vectors[0])
	}

	if models.lastModel != "embed-model" {
		t.Fatalf("unexpected model: %s", models.lastModel)
	}
	if len(models.lastTexts) != 2 || models.lastTexts[0] != "first" {
		t.Fatalf("texts not forwarded: %v", models.lastTexts)
	}
}

func TestEmbedQueryReturnsSingleVector(t *testing.T) {
	models := &fakeEmbedCaller{vectors: [][]float32{{0, 2}}}
	e := newTestEmbedder(models)

	vec, err := e.EmbedQuery(context.Background(), "query")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 2 || vec[1] != 1 {
		t.Fatalf("unexpected vector: %v", vec)
	}
}

func TestEmbedderErrsOnCountMismatch(t *testing.T) {
	models := &fakeEmbedCaller{vectors: [][]float32{{1, 0}}}
	e := newTestEmbedder(models)

	if _, err := e.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected error on embedding count mismatch")
	}
}

func TestEmbedderPropagatesAPIErrors(t *testing.T) {
	models := &fakeEmbedCaller{err: errors.New("quota exceeded")}
	e := newTestEmbedder(models)

	if _, err := e.Embed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestEmbedderRequiresInput(t *testing.T) {
	e := newTestEmbedder(&fakeEmbedCaller{})

	if _, err := e.Embed(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty input")
	}
}
