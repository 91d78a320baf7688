// Package prompt assembles generation requests for characters. It only
// produces text; calling the model is the caller's job.
package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/easeaico/ensemble/internal/types"
)

// HistoryLine is one rendered history entry, speaker name already
// resolved ("You" for the speaking character itself).
type HistoryLine struct {
	Speaker string
	Text    string
}

// GroupReplyContext are the inputs for a live group-chat reply.
type GroupReplyContext struct {
	Character   *types.CharacterProfile
	Others      []string
	UserMessage string
	Recent      []types.ConversationMessage
	// LastSpeaker is the display name of the previous character
	// speaker, empty when the last message was not a character turn.
	LastSpeaker string
	Mentioned   bool
}

// TurnContext are the inputs for one autonomous debate or discussion
// turn.
type TurnContext struct {
	Character *types.CharacterProfile
	Topic     string
	Others    []string
	Round     int
	History   []HistoryLine
}

// Builder assembles prompts with a bounded history window.
type Builder struct {
	historyLimit int
}

// NewBuilder creates a prompt Builder.
func NewBuilder(historyLimit int) *Builder {
	if historyLimit <= 0 {
		historyLimit = 6
	}
	return &Builder{historyLimit: historyLimit}
}

// GroupReply builds the prompt for one character's reply in a live
// group chat.
func (b *Builder) GroupReply(ctx GroupReplyContext) (string, error) {
	if ctx.Character == nil {
		return "", fmt.Errorf("character is required")
	}

	recent := ctx.Recent
	if len(recent) > b.historyLimit {
		recent = recent[len(recent)-b.historyLimit:]
	}
	history := make([]HistoryLine, 0, len(recent))
	for _, msg := range recent {
		switch msg.Role {
		case types.RoleUser:
			history = append(history, HistoryLine{Speaker: "User", Text: msg.Content})
		case types.RoleCharacter:
			history = append(history, HistoryLine{Speaker: msg.CharacterName, Text: msg.Content})
		}
	}

	data := struct {
		Character           *types.CharacterProfile
		Others              []string
		Personality         string
		SpeakingStyle       string
		History             []HistoryLine
		UserMessage         string
		ResponseInstruction string
	}{
		Character:           ctx.Character,
		Others:              ctx.Others,
		Personality:         ctx.Character.PersonalityOrDefault(),
		SpeakingStyle:       ctx.Character.SpeakingStyleOrDefault(),
		History:             history,
		UserMessage:         ctx.UserMessage,
		ResponseInstruction: responseInstruction(ctx),
	}

	var buf bytes.Buffer
	if err := groupReplyTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to build group reply prompt: %w", err)
	}
	return buf.String(), nil
}

// responseInstruction tailors the reply instruction to how the user
// message relates to this character.
func responseInstruction(ctx GroupReplyContext) string {
	name := ctx.Character.Name
	switch {
	case ctx.Mentioned:
		return fmt.Sprintf("You were specifically mentioned. Respond naturally as %s.", name)
	case ctx.LastSpeaker != "" && ctx.LastSpeaker != name:
		return fmt.Sprintf("Respond to what %s said, adding your perspective as %s.", ctx.LastSpeaker, name)
	default:
		return fmt.Sprintf("Respond naturally as %s would in this group conversation.", name)
	}
}

// DebateTurn builds the prompt for one autonomous debate turn.
func (b *Builder) DebateTurn(ctx TurnContext) (string, error) {
	return b.turn(debateTurnTemplate, ctx)
}

// DiscussionTurn builds the prompt for one autonomous discussion turn.
func (b *Builder) DiscussionTurn(ctx TurnContext) (string, error) {
	return b.turn(discussionTurnTemplate, ctx)
}

func (b *Builder) turn(tmpl *template.Template, ctx TurnContext) (string, error) {
	if ctx.Character == nil {
		return "", fmt.Errorf("character is required")
	}

	history := ctx.History
	if len(history) > b.historyLimit {
		history = history[len(history)-b.historyLimit:]
	}

	data := struct {
		Character     *types.CharacterProfile
		Topic         string
		Others        []string
		Round         int
		Personality   string
		SpeakingStyle string
		History       []HistoryLine
	}{
		Character:     ctx.Character,
		Topic:         ctx.Topic,
		Others:        ctx.Others,
		Round:         ctx.Round,
		Personality:   ctx.Character.PersonalityOrDefault(),
		SpeakingStyle: ctx.Character.SpeakingStyleOrDefault(),
		History:       history,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to build %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// SoloSystem builds the persistent system prompt for a one-on-one chat
// with a character.
func (b *Builder) SoloSystem(character *types.CharacterProfile) (string, error) {
	if character == nil {
		return "", fmt.Errorf("character is required")
	}

	data := struct {
		Character     *types.CharacterProfile
		Story         string
		Backstory     string
		Personality   string
		SpeakingStyle string
		Powers        string
	}{
		Character:     character,
		Story:         orDefault(character.Story, "An enigmatic figure."),
		Backstory:     orDefault(character.Backstory, "Their past is a mystery."),
		Personality:   character.PersonalityOrDefault(),
		SpeakingStyle: character.SpeakingStyleOrDefault(),
		Powers:        orDefault(character.Powers, types.DefaultPowers),
	}

	var buf bytes.Buffer
	if err := soloSystemTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to build system prompt: %w", err)
	}
	return buf.String(), nil
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
