package models

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// NewLLM creates the chat model adapter named by provider.
// Supported providers: "xai" (default), "openai", "openrouter".
func NewLLM(ctx context.Context, provider, modelName string, cfg *genai.ClientConfig) (model.LLM, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", "xai", "grok":
		return NewGrokModel(ctx, modelName, cfg)
	case "openai":
		return NewOpenAIModel(ctx, modelName, cfg)
	case "openrouter":
		return NewOpenRouterModel(ctx, modelName, cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}
