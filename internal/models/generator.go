package models

import (
	"context"
	"fmt"

	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/easeaico/ensemble/internal/utils"
)

// ChatTurn is one prior exchange in a conversation handed to Chat.
// Role is "user" or "model".
type ChatTurn struct {
	Role string
	Text string
}

// TextGenerator is a plain text-in, text-out facade over a model.LLM
// for callers that do not need the agent machinery.
type TextGenerator struct {
	llm model.LLM
}

// NewTextGenerator wraps an LLM adapter.
func NewTextGenerator(llm model.LLM) *TextGenerator {
	return &TextGenerator{llm: llm}
}

// Generate runs a single-prompt completion and returns the response
// text.
func (g *TextGenerator) Generate(ctx context.Context, promptText string, temperature float64, maxTokens int) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(promptText, "user")}
	return g.complete(ctx, contents, temperature, maxTokens)
}

// Chat runs a completion with a system prompt and prior turns, for
// one-on-one conversations that carry their own history.
func (g *TextGenerator) Chat(ctx context.Context, systemPrompt string, turns []ChatTurn, userMessage string, temperature float64, maxTokens int) (string, error) {
	contents := make([]*genai.Content, 0, len(turns)+2)
	if systemPrompt != "" {
		contents = append(contents, genai.NewContentFromText(systemPrompt, "system"))
	}
	for _, turn := range turns {
		role := turn.Role
		if role != "user" && role != "model" {
			role = "user"
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, genai.Role(role)))
	}
	contents = append(contents, genai.NewContentFromText(userMessage, "user"))
	return g.complete(ctx, contents, temperature, maxTokens)
}

func (g *TextGenerator) complete(ctx context.Context, contents []*genai.Content, temperature float64, maxTokens int) (string, error) {
	temp := float32(temperature)
	req := &model.LLMRequest{
		Contents: contents,
		Config: &genai.GenerateContentConfig{
			Temperature:     &temp,
			MaxOutputTokens: int32(maxTokens),
		},
	}

	var text string
	for resp, err := range g.llm.GenerateContent(ctx, req, false) {
		if err != nil {
			return "", fmt.Errorf("generation failed: %w", err)
		}
		if resp != nil && resp.Content != nil {
			text = utils.ExtractContentText(resp.Content)
		}
	}
	if text == "" {
		return "", fmt.Errorf("empty generation response")
	}
	return text, nil
}
