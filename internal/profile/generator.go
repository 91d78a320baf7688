// Package profile generates character profiles from a name alone,
// asking an LLM to research or invent the character's background.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/easeaico/ensemble/internal/types"
	"github.com/easeaico/ensemble/internal/utils"
)

const (
	profileAppName = "ensemble_profile"
	profileUserID  = "profile_generator"
)

const profileInstruction = `You analyze fictional characters and produce detailed structured profiles.

Given a character name, describe their origin story, personality, speaking style, famous quotes, relationships, appearance, backstory, powers and character development. If the character is not well-known, create a plausible profile based on the name and common character archetypes.

Return a valid JSON object that matches the output schema. Do not include any text outside the JSON object.`

// ImageGenerator renders an avatar image for a prompt. Optional; the
// generator falls back to deterministic avatar URLs without one.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Generator builds character profiles with an LLM, degrading to
// deterministic defaults when the model is unavailable.
type Generator struct {
	agent          agent.Agent
	runner         profileRunner
	sessionService session.Service
	images         ImageGenerator
	counter        uint64
	now            func() time.Time
}

type profileRunner interface {
	Run(ctx context.Context, userID, sessionID string, msg *genai.Content, cfg agent.RunConfig) iter.Seq2[*session.Event, error]
}

// Option configures a Generator.
type Option func(*Generator)

// WithImageGenerator enables model-rendered avatars.
func WithImageGenerator(images ImageGenerator) Option {
	return func(g *Generator) { g.images = images }
}

// NewGenerator builds the profile generator on top of the given model.
func NewGenerator(llmModel model.LLM, opts ...Option) (*Generator, error) {
	llmAgent, err := llmagent.New(llmagent.Config{
		Name:            "profile_generator",
		Description:     "Fictional character profile researcher",
		Model:           llmModel,
		Instruction:     profileInstruction,
		OutputSchema:    profileOutputSchema(),
		IncludeContents: llmagent.IncludeContentsNone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create profile agent: %w", err)
	}

	sessionService := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        profileAppName,
		Agent:          llmAgent,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create profile runner: %w", err)
	}

	g := &Generator{
		agent:          llmAgent,
		runner:         r,
		sessionService: sessionService,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Generate produces a profile for the named character. It is total:
// model failures yield the default profile, unparsable output is
// salvaged into a partial one.
func (g *Generator) Generate(ctx context.Context, name string) *types.CharacterProfile {
	profile := g.research(ctx, name)
	profile.AvatarURL = g.avatar(ctx, profile)
	return profile
}

func (g *Generator) research(ctx context.Context, name string) *types.CharacterProfile {
	sessionID := fmt.Sprintf("profile-%d", atomic.AddUint64(&g.counter, 1))
	if _, err := g.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   profileAppName,
		UserID:    profileUserID,
		SessionID: sessionID,
	}); err != nil {
		slog.Warn("failed to create profile session", "error", err.Error())
		return g.defaultProfile(name)
	}

	msg := genai.NewContentFromText(fmt.Sprintf("Character name: %s", name), "user")
	events := g.runner.Run(ctx, profileUserID, sessionID, msg, agent.RunConfig{
		StreamingMode: agent.StreamingModeNone,
	})

	var last string
	for event, err := range events {
		if err != nil {
			slog.Warn("profile run failed", "character", name, "error", err.Error())
			return g.defaultProfile(name)
		}
		if event == nil || event.Content == nil || event.Author == "user" {
			continue
		}
		text := strings.TrimSpace(utils.ExtractContentText(event.Content))
		if text == "" {
			continue
		}
		last = text
		if event.IsFinalResponse() {
			break
		}
	}
	if last == "" {
		return g.defaultProfile(name)
	}

	profile, err := g.parseProfileJSON(name, last)
	if err != nil {
		slog.Warn("unparsable profile response, salvaging", "character", name, "error", err.Error())
		return g.salvageProfile(name, last)
	}
	return profile
}

func (g *Generator) avatar(ctx context.Context, profile *types.CharacterProfile) string {
	if g.images != nil {
		prompt := fmt.Sprintf("Portrait avatar of %s. %s", profile.Name, profile.Appearance)
		url, err := g.images.Generate(ctx, prompt)
		if err == nil && url != "" {
			return url
		}
		if err != nil {
			slog.Warn("avatar generation failed, using fallback", "character", profile.Name, "error", err.Error())
		}
	}
	return AvatarURL(profile.Name)
}

// profilePayload mirrors the JSON keys the model is asked for.
type profilePayload struct {
	Story         string   `json:"story"`
	Personality   string   `json:"personality"`
	FamousQuotes  []string `json:"famous_quotes"`
	Relationships []string `json:"relationships"`
	Appearance    string   `json:"appearance"`
	SpeakingStyle string   `json:"speaking_style"`
	Backstory     string   `json:"backstory"`
	Powers        string   `json:"powers_abilities"`
	Development   string   `json:"character_development"`
}

func (g *Generator) parseProfileJSON(name, raw string) (*types.CharacterProfile, error) {
	clean := utils.ExtractJSONObject(raw)

	var payload profilePayload
	if err := json.Unmarshal([]byte(clean), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse profile json: %w", err)
	}
	if payload.Story == "" && payload.Personality == "" && payload.Backstory == "" {
		return nil, fmt.Errorf("profile json carries no usable fields")
	}

	now := g.now()
	return &types.CharacterProfile{
		ID:            types.NormalizeID(name),
		Name:          name,
		Story:         payload.Story,
		Backstory:     payload.Backstory,
		Personality:   payload.Personality,
		SpeakingStyle: payload.SpeakingStyle,
		FamousQuotes:  payload.FamousQuotes,
		Relationships: payload.Relationships,
		Powers:        payload.Powers,
		Development:   payload.Development,
		Appearance:    payload.Appearance,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// salvageProfile keeps the raw model text as the story when the JSON
// could not be decoded.
func (g *Generator) salvageProfile(name, content string) *types.CharacterProfile {
	story := content
	if len(story) > 300 {
		story = story[:300] + "..."
	}
	now := g.now()
	return &types.CharacterProfile{
		ID:            types.NormalizeID(name),
		Name:          name,
		Story:         story,
		Personality:   "A unique character with distinctive traits and engaging personality.",
		SpeakingStyle: "Unique speech patterns with characteristic expressions",
		FamousQuotes:  []string{fmt.Sprintf("Hello, I'm %s!", name), "Every journey begins with a single step."},
		Relationships: []string{"Meaningful connections with allies", "Complex dynamics with rivals"},
		Appearance:    "Distinctive and memorable character design",
		Backstory:     fmt.Sprintf("%s has a rich history filled with adventures and challenges.", name),
		Powers:        "Special talents and unique capabilities",
		Development:   "Continuous growth through experiences and relationships",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// defaultProfile is the deterministic profile used when the model is
// unreachable.
func (g *Generator) defaultProfile(name string) *types.CharacterProfile {
	now := g.now()
	return &types.CharacterProfile{
		ID:            types.NormalizeID(name),
		Name:          name,
		Story:         fmt.Sprintf("%s is a fascinating fictional character with a rich background story.", name),
		Personality:   "Charismatic, intelligent, and engaging with unique character traits.",
		SpeakingStyle: "Clear, characteristic speech with memorable expressions",
		FamousQuotes:  []string{fmt.Sprintf("Greetings! I am %s.", name), "The adventure begins now!"},
		Relationships: []string{"Loyal friendships", "Meaningful connections"},
		Appearance:    "Distinctive appearance that reflects their personality",
		Backstory:     fmt.Sprintf("%s comes from a world of adventure and discovery.", name),
		Powers:        types.DefaultPowers,
		Development:   "Continuous evolution through experiences",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func profileOutputSchema() *genai.Schema {
	stringField := func() *genai.Schema { return &genai.Schema{Type: genai.TypeString} }
	arrayField := func() *genai.Schema {
		return &genai.Schema{Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}}
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"story":                 stringField(),
			"personality":           stringField(),
			"famous_quotes":         arrayField(),
			"relationships":         arrayField(),
			"appearance":            stringField(),
			"speaking_style":        stringField(),
			"backstory":             stringField(),
			"powers_abilities":      stringField(),
			"character_development": stringField(),
		},
		Required: []string{"story", "personality", "speaking_style"},
	}
}
