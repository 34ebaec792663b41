package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultModel = "gemini-2.5-flash"

	// Provider is the name reported in logs and status output.
	Provider = "gemini"
)

// contentCaller is the narrow slice of the genai Models API the generator
// needs. It exists so tests can substitute a fake backend.
type contentCaller interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator wraps the Google GenAI client to provide prompt-based generation
// with a primary/fallback model substitution policy: when the primary model
// call fails and a distinct fallback is configured, the same request is
// reissued against the fallback before the error is surfaced.
type Generator struct {
	models   contentCaller
	primary  string
	fallback string
	logger   *zap.Logger
}

// NewGenerator creates a Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey, primary, fallback string, logger *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if primary = strings.TrimSpace(primary); primary == "" {
		primary = defaultModel
	}
	fallback = strings.TrimSpace(fallback)

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		models:   client.Models,
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}, nil
}

// Generate sends the prompt to the requested model (the configured primary
// when model is empty) and returns the concatenated textual response. On a
// primary failure the configured fallback model is tried once; the error is
// returned only when no model produced a response.
func (g *Generator) Generate(ctx context.Context, prompt, model string, maxTokens int) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	target := strings.TrimSpace(model)
	if target == "" {
		target = g.primary
	}

	var config *genai.GenerateContentConfig
	if maxTokens > 0 {
		config = &genai.GenerateContentConfig{MaxOutputTokens: int32(maxTokens)}
	}

	output, err := g.call(ctx, target, prompt, config)
	if err == nil {
		return output, nil
	}

	if g.fallback == "" || g.fallback == target {
		return "", fmt.Errorf("generate content (model %s): %w", target, err)
	}

	g.logger.Warn("primary model failed, substituting fallback",
		zap.String(FieldRequestedModel, target),
		zap.String(FieldFallbackModel, g.fallback),
		zap.Error(err),
	)

	output, ferr := g.call(ctx, g.fallback, prompt, config)
	if ferr != nil {
		return "", fmt.Errorf("generate content failed on primary (%s: %v) and fallback (%s): %w", target, err, g.fallback, ferr)
	}

	return output, nil
}

// Model returns the configured primary model identifier.
func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.primary
}

func (g *Generator) call(ctx context.Context, model, prompt string, config *genai.GenerateContentConfig) (string, error) {
	resp, err := g.models.GenerateContent(ctx, model, genai.Text(prompt), config)
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}

const (
	// FieldRequestedModel is the log field for the model a request targeted.
	FieldRequestedModel = "requested_model"
	// FieldFallbackModel is the log field for the substituted fallback model.
	FieldFallbackModel = "fallback_model"
)
