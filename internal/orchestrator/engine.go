package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/easeaico/ensemble/internal/prompt"
	"github.com/easeaico/ensemble/internal/types"
	"github.com/easeaico/ensemble/internal/utils"
)

// SystemSpeakerID marks engine-emitted announcements such as the
// conclusion banner.
const SystemSpeakerID = "system"

// Each character turn advances the round counter by half, so one full
// round is one exchange between two speakers.
const roundStep = 0.5

// The conversation ends when fewer than this share of the last few
// turns are distinct.
const repetitionRatio = 0.7

const turnHistoryWindow = 4

const (
	turnTemperature = 0.8
	turnMaxTokens   = 150
)

// Generator produces character text for a prompt.
type Generator interface {
	Generate(ctx context.Context, promptText string, temperature float64, maxTokens int) (string, error)
}

// TurnRecord is one spoken turn inside an autonomous conversation.
type TurnRecord struct {
	Speaker string
	Text    string
	At      time.Time
}

// State is the mutable record of one running autonomous conversation.
type State struct {
	Kind         Kind
	Topic        string
	Participants []string
	MaxRounds    int
	Round        float64
	LastSpeaker  string
	History      []TurnRecord
	StartedAt    time.Time
}

// Status is a read-only snapshot of a running conversation.
type Status struct {
	Kind         Kind
	Topic        string
	Participants []string
	Round        float64
	MaxRounds    int
	LastSpeaker  string
	Turns        int
	StartedAt    time.Time
}

// TurnMessage is the outcome of one autonomous tick.
type TurnMessage struct {
	CharacterID   string
	CharacterName string
	Text          string
	Autonomous    bool
}

// Engine drives autonomous conversations for any number of groups. A
// group has at most one running conversation; per-group ticks must be
// serialized by the caller, the engine only guards its registry.
type Engine struct {
	mu     sync.Mutex
	active map[string]*State

	generator Generator
	prompts   *prompt.Builder
	intn      func(n int) int
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand replaces the random source used for discussion speaker
// selection. n is always positive.
func WithRand(intn func(n int) int) Option {
	return func(e *Engine) { e.intn = intn }
}

// WithClock replaces the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an autonomous conversation engine.
func NewEngine(generator Generator, prompts *prompt.Builder, opts ...Option) *Engine {
	e := &Engine{
		active:    make(map[string]*State),
		generator: generator,
		prompts:   prompts,
		intn:      rand.IntN,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start registers a new autonomous conversation for a group,
// replacing any conversation already running there.
func (e *Engine) Start(spec ConversationSpec, groupID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active[groupID] = &State{
		Kind:         spec.Kind,
		Topic:        spec.Topic,
		Participants: append([]string(nil), spec.Participants...),
		MaxRounds:    spec.MaxRounds,
		StartedAt:    e.now(),
	}
	e.logger.Info("autonomous conversation started",
		"group_id", groupID, "kind", spec.Kind, "topic", spec.Topic)
}

// IsActive reports whether a group has a running conversation.
func (e *Engine) IsActive(groupID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.active[groupID]
	return ok
}

// Status returns a snapshot of the group's running conversation.
func (e *Engine) Status(groupID string) (Status, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	state, ok := e.active[groupID]
	if !ok {
		return Status{}, false
	}
	return Status{
		Kind:         state.Kind,
		Topic:        state.Topic,
		Participants: append([]string(nil), state.Participants...),
		Round:        state.Round,
		MaxRounds:    state.MaxRounds,
		LastSpeaker:  state.LastSpeaker,
		Turns:        len(state.History),
		StartedAt:    state.StartedAt,
	}, true
}

// End removes the group's conversation if one is running.
func (e *Engine) End(groupID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.active, groupID)
}

// Interrupt ends the group's conversation when the user message
// contains a stop word. It reports whether an interruption happened.
func (e *Engine) Interrupt(userMessage, groupID string) bool {
	if !containsStopWord(userMessage) {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.active[groupID]; !ok {
		return false
	}
	delete(e.active, groupID)
	e.logger.Info("autonomous conversation interrupted", "group_id", groupID)
	return true
}

// GenerateTurn produces the next message of the group's autonomous
// conversation, or nil when there is nothing to say. Termination emits
// a final system announcement and clears the conversation. Generation
// failures degrade to a placeholder without touching conversation
// state, the next tick simply tries again.
func (e *Engine) GenerateTurn(ctx context.Context, groupID string, roster *types.Roster) *TurnMessage {
	e.mu.Lock()
	state, ok := e.active[groupID]
	if !ok {
		e.mu.Unlock()
		return nil
	}

	if shouldTerminate(state) {
		delete(e.active, groupID)
		kind, rounds := state.Kind, state.Round
		e.mu.Unlock()
		e.logger.Info("autonomous conversation concluded",
			"group_id", groupID, "kind", kind, "rounds", rounds)
		return &TurnMessage{
			CharacterID:   SystemSpeakerID,
			CharacterName: "System",
			Text:          fmt.Sprintf("🏁 %s concluded after %s rounds!", titleKind(kind), formatRounds(rounds)),
		}
	}

	speakerID := e.nextSpeaker(state)
	character, found := roster.Lookup(speakerID)
	if speakerID == "" || !found {
		e.mu.Unlock()
		e.logger.Warn("autonomous speaker not in roster", "group_id", groupID, "speaker", speakerID)
		return nil
	}
	turnCtx := e.buildTurnContext(state, character, roster)
	kind := state.Kind
	topic := state.Topic
	e.mu.Unlock()

	text, err := e.generate(ctx, kind, turnCtx)
	if err != nil {
		e.logger.Warn("autonomous turn generation failed",
			"group_id", groupID, "speaker", speakerID, "error", err)
		return &TurnMessage{
			CharacterID:   speakerID,
			CharacterName: character.Name,
			Text:          fmt.Sprintf("*%s is thinking about %s...*", character.Name, topic),
			Autonomous:    true,
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	// The conversation may have been interrupted while the model was
	// busy. Drop the result rather than resurrecting ended state.
	if current, still := e.active[groupID]; !still || current != state {
		return nil
	}
	state.History = append(state.History, TurnRecord{Speaker: speakerID, Text: text, At: e.now()})
	state.Round += roundStep
	state.LastSpeaker = speakerID
	return &TurnMessage{
		CharacterID:   speakerID,
		CharacterName: character.Name,
		Text:          text,
		Autonomous:    true,
	}
}

func (e *Engine) buildTurnContext(state *State, character *types.CharacterProfile, roster *types.Roster) prompt.TurnContext {
	var others []string
	for _, id := range state.Participants {
		if id == character.ID {
			continue
		}
		if other, ok := roster.Lookup(id); ok {
			others = append(others, other.Name)
		}
	}

	recent := state.History
	if len(recent) > turnHistoryWindow {
		recent = recent[len(recent)-turnHistoryWindow:]
	}
	history := make([]prompt.HistoryLine, 0, len(recent))
	for _, entry := range recent {
		speaker := "You"
		if entry.Speaker != character.ID {
			if profile, ok := roster.Lookup(entry.Speaker); ok {
				speaker = profile.Name
			} else {
				speaker = entry.Speaker
			}
		}
		history = append(history, prompt.HistoryLine{Speaker: speaker, Text: entry.Text})
	}

	return prompt.TurnContext{
		Character: character,
		Topic:     state.Topic,
		Others:    others,
		Round:     int(state.Round) + 1,
		History:   history,
	}
}

func (e *Engine) generate(ctx context.Context, kind Kind, turnCtx prompt.TurnContext) (string, error) {
	var promptText string
	var err error
	if kind == KindDebate {
		promptText, err = e.prompts.DebateTurn(turnCtx)
	} else {
		promptText, err = e.prompts.DiscussionTurn(turnCtx)
	}
	if err != nil {
		return "", err
	}

	raw, err := e.generator.Generate(ctx, promptText, turnTemperature, turnMaxTokens)
	if err != nil {
		return "", err
	}
	text := utils.StripWrappingQuotes(strings.TrimSpace(raw))
	if text == "" {
		return "", fmt.Errorf("empty generation result")
	}
	return text, nil
}

// nextSpeaker picks who talks next. Debates alternate strictly through
// the participant list; discussions pick randomly among everyone but
// the previous speaker. Callers hold e.mu.
func (e *Engine) nextSpeaker(state *State) string {
	if len(state.Participants) == 0 {
		return ""
	}
	if state.LastSpeaker == "" {
		return state.Participants[0]
	}

	if state.Kind == KindDebate {
		for i, id := range state.Participants {
			if id == state.LastSpeaker {
				return state.Participants[(i+1)%len(state.Participants)]
			}
		}
		return state.Participants[0]
	}

	var available []string
	for _, id := range state.Participants {
		if id != state.LastSpeaker {
			available = append(available, id)
		}
	}
	if len(available) == 0 {
		return state.Participants[0]
	}
	return available[e.intn(len(available))]
}

// shouldTerminate reports whether the conversation ran its course,
// either by round budget or because recent turns repeat themselves.
func shouldTerminate(state *State) bool {
	if state.Round >= float64(state.MaxRounds) {
		return true
	}

	recent := state.History
	if len(recent) > turnHistoryWindow {
		recent = recent[len(recent)-turnHistoryWindow:]
	}
	if len(recent) >= turnHistoryWindow {
		unique := make(map[string]struct{}, len(recent))
		for _, entry := range recent {
			unique[strings.ToLower(entry.Text)] = struct{}{}
		}
		if float64(len(unique)) < float64(len(recent))*repetitionRatio {
			return true
		}
	}
	return false
}

func titleKind(kind Kind) string {
	switch kind {
	case KindDebate:
		return "Debate"
	case KindDiscussion:
		return "Discussion"
	default:
		return string(kind)
	}
}

// formatRounds renders the half-step round counter without trailing
// zeros, "3" rather than "3.0" but "2.5" stays "2.5".
func formatRounds(rounds float64) string {
	return strconv.FormatFloat(rounds, 'f', -1, 64)
}
