package summary

import (
	"context"
	"fmt"
	"os"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"scribe/config"
)

const ollamaURL = "http://localhost:11434/v1"

var defaultModels = map[string]string{
	"":       "gemma3:4b",
	"ollama": "gemma3:4b",
	"openai": openai.GPT4oMini,
	"gemini": "gemini-2.5-flash",
}

// Model returns cfg.Model, or the provider's default when it is unset.
func Model(cfg config.Summary) string {
	if cfg.Model != "" {
		return cfg.Model
	}
	return defaultModels[cfg.Provider]
}

// ChatGenerator talks to any OpenAI-compatible chat endpoint, Ollama included.
type ChatGenerator struct {
	client      *openai.Client
	model       string
	temperature float32
}

func NewChat(cfg openai.ClientConfig, model string, temperature float32) *ChatGenerator {
	return &ChatGenerator{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: temperature,
	}
}

func (g *ChatGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: g.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

type GeminiGenerator struct {
	client      *genai.Client
	model       string
	temperature float32
}

func NewGemini(ctx context.Context, cc *genai.ClientConfig, model string, temperature float32) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model, temperature: temperature}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	return resp.Text(), nil
}

// NewGenerator builds the generator named by cfg.Provider. API keys come from
// the environment.
func NewGenerator(ctx context.Context, cfg config.Summary) (Generator, error) {
	model := Model(cfg)
	switch cfg.Provider {
	case "", "ollama":
		oc := openai.DefaultConfig("ollama")
		oc.BaseURL = ollamaURL
		if cfg.BaseURL != "" {
			oc.BaseURL = cfg.BaseURL
		}
		return NewChat(oc, model, cfg.Temperature), nil
	case "openai":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("openai summaries: set OPENAI_API_KEY")
		}
		oc := openai.DefaultConfig(key)
		if cfg.BaseURL != "" {
			oc.BaseURL = cfg.BaseURL
		}
		return NewChat(oc, model, cfg.Temperature), nil
	case "gemini":
		key := os.Getenv("GEMINI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("gemini summaries: set GEMINI_API_KEY")
		}
		cc := &genai.ClientConfig{APIKey: key, Backend: genai.BackendGeminiAPI}
		if cfg.BaseURL != "" {
			cc.HTTPOptions.BaseURL = cfg.BaseURL
		}
		return NewGemini(ctx, cc, model, cfg.Temperature)
	}
	return nil, fmt.Errorf("unknown summary provider %q (use ollama, openai or gemini)", cfg.Provider)
}
