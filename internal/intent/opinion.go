package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/google/jsonschema-go/jsonschema"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/easeaico/ensemble/internal/types"
	"github.com/easeaico/ensemble/internal/utils"
)

// Opinion target types.
const (
	TargetSpecific = "specific"
	TargetGroup    = "group"
	TargetGeneral  = "general"
)

// Opinion is the model's advisory view of who should reply. It is never
// required for correctness; every failure path degrades to
// FallbackOpinion.
type Opinion struct {
	TargetType       string   `json:"target_type"`
	TargetCharacters []string `json:"target_characters"`
	Reasoning        string   `json:"reasoning"`
	ResponseCount    int      `json:"response_count"`
}

// FallbackOpinion is the deterministic opinion used whenever the model
// call fails or returns something unusable: a general message answered
// by the first two candidates.
func FallbackOpinion(candidates []string, roster *types.Roster) Opinion {
	names := roster.Names(candidates)
	if len(names) > 2 {
		names = names[:2]
	}
	return Opinion{
		TargetType:       TargetGeneral,
		TargetCharacters: names,
		Reasoning:        "Default response selection",
		ResponseCount:    1,
	}
}

const (
	opinionAppName = "ensemble_intent"
	opinionUserID  = "intent_opinion"
)

const opinionInstruction = `You analyze a user message in a group chat of fictional characters and decide who should respond.

Consider:
1. Is the message directed at specific characters?
2. Is it a general question for everyone?
3. Is it a greeting or casual remark?
4. Does it require expertise from specific characters?

Return a valid JSON object that matches the output schema. Do not include any extra keys or text outside the JSON object.`

// OpinionAgent asks an LLM for a structured selection opinion, running
// each request in an isolated in-memory session.
type OpinionAgent struct {
	agent          agent.Agent
	runner         opinionRunner
	sessionService session.Service
	counter        uint64
}

type opinionRunner interface {
	Run(ctx context.Context, userID, sessionID string, msg *genai.Content, cfg agent.RunConfig) iter.Seq2[*session.Event, error]
}

// NewOpinionAgent builds the opinion agent on top of the given model.
func NewOpinionAgent(llmModel model.LLM) (*OpinionAgent, error) {
	llmAgent, err := llmagent.New(llmagent.Config{
		Name:            "intent_opinion",
		Description:     "Advisory responder-selection analyst for group chats",
		Model:           llmModel,
		Instruction:     opinionInstruction,
		OutputSchema:    opinionOutputSchema(),
		IncludeContents: llmagent.IncludeContentsNone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create opinion agent: %w", err)
	}

	sessionService := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        opinionAppName,
		Agent:          llmAgent,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create opinion runner: %w", err)
	}

	return &OpinionAgent{
		agent:          llmAgent,
		runner:         r,
		sessionService: sessionService,
	}, nil
}

// Opinion returns the model's view of who should respond. It is total:
// any failure yields FallbackOpinion instead of an error.
func (o *OpinionAgent) Opinion(ctx context.Context, message string, candidates []string, roster *types.Roster) Opinion {
	names := roster.Names(candidates)

	sessionID := fmt.Sprintf("opinion-%d", atomic.AddUint64(&o.counter, 1))
	if _, err := o.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   opinionAppName,
		UserID:    opinionUserID,
		SessionID: sessionID,
	}); err != nil {
		slog.Warn("failed to create opinion session", "error", err.Error())
		return FallbackOpinion(candidates, roster)
	}

	query := fmt.Sprintf("Group members: %s\nUser message: %q", strings.Join(names, ", "), message)
	msg := genai.NewContentFromText(query, "user")
	events := o.runner.Run(ctx, opinionUserID, sessionID, msg, agent.RunConfig{
		StreamingMode: agent.StreamingModeNone,
	})

	var last string
	for event, err := range events {
		if err != nil {
			slog.Warn("opinion run failed", "error", err.Error())
			return FallbackOpinion(candidates, roster)
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
		return FallbackOpinion(candidates, roster)
	}

	opinion, err := parseOpinionJSON(last)
	if err != nil {
		slog.Warn("unusable opinion response", "error", err.Error())
		return FallbackOpinion(candidates, roster)
	}
	return opinion
}

func opinionOutputSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"target_type": {
				Type: genai.TypeString,
				Enum: []string{TargetSpecific, TargetGroup, TargetGeneral},
			},
			"target_characters": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
			"reasoning": {
				Type: genai.TypeString,
			},
			"response_count": {
				Type: genai.TypeInteger,
			},
		},
		Required: []string{"target_type"},
	}
}

// opinionSchema validates the decoded opinion before it is trusted.
var opinionSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"target_type": {
			Type: "string",
			Enum: []any{TargetSpecific, TargetGroup, TargetGeneral},
		},
		"target_characters": {
			Type:  "array",
			Items: &jsonschema.Schema{Type: "string"},
		},
		"reasoning":      {Type: "string"},
		"response_count": {Type: "integer", Minimum: floatPtr(1), Maximum: floatPtr(3)},
	},
	Required: []string{"target_type"},
}

// parseOpinionJSON extracts, schema-checks, and decodes an opinion.
func parseOpinionJSON(raw string) (Opinion, error) {
	clean := utils.ExtractJSONObject(raw)

	var decoded map[string]any
	if err := json.Unmarshal([]byte(clean), &decoded); err != nil {
		return Opinion{}, fmt.Errorf("failed to parse opinion json: %w", err)
	}

	resolved, err := opinionSchema.Resolve(nil)
	if err != nil {
		return Opinion{}, fmt.Errorf("failed to resolve opinion schema: %w", err)
	}
	if err := resolved.Validate(decoded); err != nil {
		return Opinion{}, fmt.Errorf("opinion violates schema: %w", err)
	}

	var opinion Opinion
	if err := json.Unmarshal([]byte(clean), &opinion); err != nil {
		return Opinion{}, fmt.Errorf("failed to decode opinion: %w", err)
	}
	if opinion.ResponseCount == 0 {
		opinion.ResponseCount = 1
	}
	return opinion, nil
}

func floatPtr(v float64) *float64 { return &v }
