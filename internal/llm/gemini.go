package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	// DefaultGeminiModel is the Gemini model to use
	DefaultGeminiModel = "gemini-2.0-flash"
	// MaxInlineSize is the maximum size for inline blob data (20MB)
	MaxInlineSize = 20 * 1024 * 1024
)

// GeminiConfig holds the generation settings for a Gemini model.
type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int32
}

// GeminiCompleter wraps the Gemini client
type GeminiCompleter struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
}

// NewGeminiCompleter creates a Gemini-backed Completer that asks for JSON output.
func NewGeminiCompleter(ctx context.Context, cfg GeminiConfig) (*GeminiCompleter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	name := cfg.Model
	if name == "" {
		name = DefaultGeminiModel
	}
	model := client.GenerativeModel(name)
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(cfg.Temperature)
	model.SetTopK(40)
	model.SetTopP(0.95)
	if cfg.MaxTokens > 0 {
		model.SetMaxOutputTokens(cfg.MaxTokens)
	}

	return &GeminiCompleter{client: client, model: model, modelName: name}, nil
}

// Close closes the Gemini client
func (g *GeminiCompleter) Close() error {
	return g.client.Close()
}

// Complete sends a text prompt and returns the concatenated text parts.
func (g *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, g.model, genai.Text(prompt))
}

// ExtractImageText asks the model to transcribe the text in an image.
func (g *GeminiCompleter) ExtractImageText(ctx context.Context, mimeType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("image is empty")
	}
	if len(data) > MaxInlineSize {
		return "", fmt.Errorf("image exceeds %d bytes", MaxInlineSize)
	}

	// Plain-text transcription needs a model without the JSON response type.
	vision := g.client.GenerativeModel(g.modelName)
	vision.SetTemperature(0)
	return g.generate(ctx, vision,
		genai.Text("Transcribe all readable text in this image. Return only the text, preserving paragraph breaks."),
		genai.Blob{MIMEType: mimeType, Data: data},
	)
}

func (g *GeminiCompleter) generate(ctx context.Context, model *genai.GenerativeModel, parts ...genai.Part) (string, error) {
	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return text.String(), nil
}
