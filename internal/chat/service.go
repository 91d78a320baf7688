// Package chat coordinates characters, group sessions and the
// autonomous engine into user-facing conversation operations.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/easeaico/ensemble/internal/intent"
	"github.com/easeaico/ensemble/internal/models"
	"github.com/easeaico/ensemble/internal/orchestrator"
	"github.com/easeaico/ensemble/internal/prompt"
	"github.com/easeaico/ensemble/internal/selector"
	"github.com/easeaico/ensemble/internal/storage"
	"github.com/easeaico/ensemble/internal/types"
	"github.com/easeaico/ensemble/internal/utils"
)

const (
	replyTemperature = 0.8
	replyMaxTokens   = 200

	soloTemperature  = 0.85
	soloMaxTokens    = 300
	soloHistoryLimit = 20

	// Relevance assigned to placeholder replies when generation fails.
	fallbackRelevance = 0.3
)

const soloFallbackReply = "I'm having trouble responding right now. Could you try again?"

// CharacterRepo persists character profiles.
type CharacterRepo interface {
	Save(ctx context.Context, profile *types.CharacterProfile) error
	GetByID(ctx context.Context, id string) (*types.CharacterProfile, error)
	List(ctx context.Context) ([]*types.CharacterProfile, error)
	Delete(ctx context.Context, id string) error
}

// GroupRepo persists group sessions.
type GroupRepo interface {
	Create(ctx context.Context, group *types.GroupSession) error
	GetByID(ctx context.Context, id string) (*types.GroupSession, error)
	List(ctx context.Context) ([]*types.GroupSession, error)
	Delete(ctx context.Context, id string) error
}

// HistoryRepo persists conversation messages.
type HistoryRepo interface {
	AddMessage(ctx context.Context, sessionID string, msg types.ConversationMessage, embedding []float32) error
	GetRecent(ctx context.Context, sessionID string, limit int) ([]types.ConversationMessage, error)
	CountBySpeaker(ctx context.Context, sessionID string) ([]storage.SpeakerCount, error)
	CountMessages(ctx context.Context, sessionID string) (int64, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// ProfileGenerator creates a character profile from a name.
type ProfileGenerator interface {
	Generate(ctx context.Context, name string) *types.CharacterProfile
}

// Generator produces character text.
type Generator interface {
	Generate(ctx context.Context, promptText string, temperature float64, maxTokens int) (string, error)
	Chat(ctx context.Context, systemPrompt string, turns []models.ChatTurn, userMessage string, temperature float64, maxTokens int) (string, error)
}

// Engine drives autonomous conversations.
type Engine interface {
	Start(spec orchestrator.ConversationSpec, groupID string)
	IsActive(groupID string) bool
	Status(groupID string) (orchestrator.Status, bool)
	Interrupt(userMessage, groupID string) bool
	GenerateTurn(ctx context.Context, groupID string, roster *types.Roster) *orchestrator.TurnMessage
	End(groupID string)
}

// Embedder vectorizes messages for semantic recall. Optional.
type Embedder interface {
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
}

// Recaller retrieves semantically similar past messages. Optional.
type Recaller interface {
	Recall(ctx context.Context, sessionID, query string) ([]storage.RecalledMessage, error)
}

// Config wires the service dependencies.
type Config struct {
	Characters CharacterRepo
	Groups     GroupRepo
	History    HistoryRepo
	Profiles   ProfileGenerator
	Generator  Generator
	Engine     Engine
	Policy     selector.Policy
	Analyzer   *intent.Analyzer
	Prompts    *prompt.Builder
	Embedder   Embedder
	Recall     Recaller

	// HistoryLimit bounds the conversation window handed to prompts
	// and the selection policy.
	HistoryLimit int
}

// Service is the conversation application core.
type Service struct {
	characters   CharacterRepo
	groups       GroupRepo
	history      HistoryRepo
	profiles     ProfileGenerator
	generator    Generator
	engine       Engine
	policy       selector.Policy
	analyzer     *intent.Analyzer
	prompts      *prompt.Builder
	embedder     Embedder
	recall       Recaller
	historyLimit int
	logger       *slog.Logger
	now          func() time.Time
}

// NewService creates the chat service.
func NewService(cfg Config) *Service {
	limit := cfg.HistoryLimit
	if limit <= 0 {
		limit = 10
	}
	analyzer := cfg.Analyzer
	if analyzer == nil {
		analyzer = intent.NewAnalyzer()
	}
	return &Service{
		characters:   cfg.Characters,
		groups:       cfg.Groups,
		history:      cfg.History,
		profiles:     cfg.Profiles,
		generator:    cfg.Generator,
		engine:       cfg.Engine,
		policy:       cfg.Policy,
		analyzer:     analyzer,
		prompts:      cfg.Prompts,
		embedder:     cfg.Embedder,
		recall:       cfg.Recall,
		historyLimit: limit,
		logger:       slog.Default(),
		now:          time.Now,
	}
}

// CreateCharacter generates and stores a profile for the named
// character. An existing character with the same id is returned as-is.
func (s *Service) CreateCharacter(ctx context.Context, name string) (*types.CharacterProfile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("character name cannot be empty")
	}

	id := types.NormalizeID(name)
	existing, err := s.characters.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	profile := s.profiles.Generate(ctx, name)
	if err := s.characters.Save(ctx, profile); err != nil {
		return nil, err
	}
	s.logger.Info("character created", "character_id", profile.ID, "name", profile.Name)
	return profile, nil
}

// GetCharacter fetches one character profile.
func (s *Service) GetCharacter(ctx context.Context, id string) (*types.CharacterProfile, error) {
	profile, err := s.characters.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("character not found: %s", id)
	}
	return profile, nil
}

// ListCharacters fetches all character profiles.
func (s *Service) ListCharacters(ctx context.Context) ([]*types.CharacterProfile, error) {
	return s.characters.List(ctx)
}

// DeleteCharacter removes a character and its solo chat history.
func (s *Service) DeleteCharacter(ctx context.Context, id string) error {
	if err := s.characters.Delete(ctx, id); err != nil {
		return err
	}
	return s.history.DeleteSession(ctx, soloSessionID(id))
}

// CreateGroup creates a group chat of 2 to 4 existing characters.
func (s *Service) CreateGroup(ctx context.Context, name string, memberIDs []string) (*types.GroupSession, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("group name cannot be empty")
	}
	if len(memberIDs) < types.MinGroupMembers || len(memberIDs) > types.MaxGroupMembers {
		return nil, fmt.Errorf("group needs between %d and %d members, got %d",
			types.MinGroupMembers, types.MaxGroupMembers, len(memberIDs))
	}

	for _, id := range memberIDs {
		profile, err := s.characters.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if profile == nil {
			return nil, fmt.Errorf("character not found: %s", id)
		}
	}

	groupID := types.NormalizeID(name)
	existing, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("group already exists: %s", groupID)
	}

	group := &types.GroupSession{
		ID:        groupID,
		Name:      name,
		Members:   append([]string(nil), memberIDs...),
		CreatedAt: s.now(),
	}
	if err := s.groups.Create(ctx, group); err != nil {
		return nil, err
	}
	s.logger.Info("group created", "group_id", group.ID, "members", group.Members)
	return group, nil
}

// GetGroup fetches one group session.
func (s *Service) GetGroup(ctx context.Context, id string) (*types.GroupSession, error) {
	group, err := s.groups.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, fmt.Errorf("group not found: %s", id)
	}
	return group, nil
}

// ListGroups fetches all group sessions.
func (s *Service) ListGroups(ctx context.Context) ([]*types.GroupSession, error) {
	return s.groups.List(ctx)
}

// DeleteGroup removes a group, its history and any running autonomous
// conversation.
func (s *Service) DeleteGroup(ctx context.Context, id string) error {
	s.engine.End(id)
	if err := s.history.DeleteSession(ctx, id); err != nil {
		return err
	}
	return s.groups.Delete(ctx, id)
}

// SendMessage processes one user message in a group chat and returns
// the resulting character (or system) messages, already persisted.
func (s *Service) SendMessage(ctx context.Context, groupID, userMessage string) ([]types.ConversationMessage, error) {
	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	roster, err := s.loadRoster(ctx, group)
	if err != nil {
		return nil, err
	}

	if s.engine.Interrupt(userMessage, groupID) {
		s.store(ctx, groupID, types.ConversationMessage{Role: types.RoleUser, Content: userMessage})
		stopped := types.ConversationMessage{
			Role:    types.RoleSystem,
			Content: "🛑 Autonomous conversation stopped!",
		}
		s.store(ctx, groupID, stopped)
		return []types.ConversationMessage{stopped}, nil
	}

	s.store(ctx, groupID, types.ConversationMessage{Role: types.RoleUser, Content: userMessage})

	if spec := orchestrator.DetectTrigger(userMessage, roster.IDs()); spec != nil {
		s.engine.Start(*spec, groupID)
		names := strings.Join(roster.Names(spec.Participants), " and ")
		content := fmt.Sprintf("🎭 A group discussion begins between %s! Say \"stop\" to end it.", names)
		if spec.Kind == orchestrator.KindDebate {
			content = fmt.Sprintf("🎭 A debate about %q begins between %s! Say \"stop\" to end it.", spec.Topic, names)
		}
		started := types.ConversationMessage{Role: types.RoleSystem, Content: content}
		s.store(ctx, groupID, started)
		return []types.ConversationMessage{started}, nil
	}

	recent, err := s.history.GetRecent(ctx, groupID, s.historyLimit)
	if err != nil {
		return nil, err
	}
	// Exclude the message being answered from its own context window.
	if n := len(recent); n > 0 && recent[n-1].Role == types.RoleUser && recent[n-1].Content == userMessage {
		recent = recent[:n-1]
	}

	responders := s.policy.Select(ctx, userMessage, selector.Context{
		Candidates: roster.IDs(),
		Recent:     recent,
		Roster:     roster,
	})

	mentions := s.analyzer.DetectMentions(userMessage, roster.IDs(), roster)
	replies := make([]types.ConversationMessage, 0, len(responders))
	for _, id := range responders {
		character, ok := roster.Lookup(id)
		if !ok {
			continue
		}
		reply := s.groupReply(ctx, character, roster, userMessage, recent, mentions)
		s.store(ctx, groupID, reply)
		replies = append(replies, reply)
		// Later responders see earlier replies of the same exchange.
		recent = append(recent, reply)
	}
	return replies, nil
}

// groupReply generates one character's reply, degrading to an
// in-character placeholder when generation fails.
func (s *Service) groupReply(ctx context.Context, character *types.CharacterProfile, roster *types.Roster, userMessage string, recent []types.ConversationMessage, mentions []string) types.ConversationMessage {
	var others []string
	for _, id := range roster.IDs() {
		if id != character.ID {
			if other, ok := roster.Lookup(id); ok {
				others = append(others, other.Name)
			}
		}
	}

	lastSpeaker := ""
	if n := len(recent); n > 0 && recent[n-1].Role == types.RoleCharacter {
		lastSpeaker = recent[n-1].CharacterName
	}

	promptText, err := s.prompts.GroupReply(prompt.GroupReplyContext{
		Character:   character,
		Others:      others,
		UserMessage: userMessage,
		Recent:      recent,
		LastSpeaker: lastSpeaker,
		Mentioned:   containsID(mentions, character.ID),
	})
	if err == nil {
		var raw string
		raw, err = s.generator.Generate(ctx, promptText, replyTemperature, replyMaxTokens)
		if err == nil {
			text := utils.StripWrappingQuotes(raw)
			if text != "" {
				return types.ConversationMessage{
					Role:           types.RoleCharacter,
					CharacterID:    character.ID,
					CharacterName:  character.Name,
					Content:        text,
					RelevanceScore: selector.RelevanceScore(userMessage, character, recent),
				}
			}
			err = fmt.Errorf("empty reply")
		}
	}

	s.logger.Warn("group reply generation failed", "character", character.ID, "error", err.Error())
	return types.ConversationMessage{
		Role:           types.RoleCharacter,
		CharacterID:    character.ID,
		CharacterName:  character.Name,
		Content:        fmt.Sprintf("*%s is thinking...*", character.Name),
		RelevanceScore: fallbackRelevance,
	}
}

// Tick advances the group's autonomous conversation by one turn. It
// returns nil when there is no running conversation or nothing was
// said.
func (s *Service) Tick(ctx context.Context, groupID string) (*types.ConversationMessage, error) {
	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	roster, err := s.loadRoster(ctx, group)
	if err != nil {
		return nil, err
	}

	turn := s.engine.GenerateTurn(ctx, groupID, roster)
	if turn == nil {
		return nil, nil
	}

	msg := types.ConversationMessage{
		Role:          types.RoleCharacter,
		CharacterID:   turn.CharacterID,
		CharacterName: turn.CharacterName,
		Content:       turn.Text,
	}
	if turn.CharacterID == orchestrator.SystemSpeakerID {
		msg.Role = types.RoleSystem
		msg.CharacterID = ""
		msg.CharacterName = ""
	}
	s.store(ctx, groupID, msg)
	return &msg, nil
}

// AutonomousStatus reports the group's running autonomous
// conversation, if any.
func (s *Service) AutonomousStatus(groupID string) (orchestrator.Status, bool) {
	return s.engine.Status(groupID)
}

// StopAutonomous ends the group's autonomous conversation.
func (s *Service) StopAutonomous(groupID string) {
	s.engine.End(groupID)
}

// GroupStats summarizes a group's conversation activity.
type GroupStats struct {
	TotalMessages          int64          `json:"total_messages"`
	CharacterMessageCounts map[string]int `json:"character_message_counts"`
	GroupSize              int            `json:"group_size"`
	CreatedAt              time.Time      `json:"created_at"`
}

// GroupStats tallies message counts for a group.
func (s *Service) GroupStats(ctx context.Context, groupID string) (*GroupStats, error) {
	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	total, err := s.history.CountMessages(ctx, groupID)
	if err != nil {
		return nil, err
	}
	bySpeaker, err := s.history.CountBySpeaker(ctx, groupID)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(group.Members))
	for _, id := range group.Members {
		counts[id] = 0
	}
	for _, row := range bySpeaker {
		if _, ok := counts[row.CharacterID]; ok {
			counts[row.CharacterID] = row.Count
		}
	}

	return &GroupStats{
		TotalMessages:          total,
		CharacterMessageCounts: counts,
		GroupSize:              len(group.Members),
		CreatedAt:              group.CreatedAt,
	}, nil
}

// SoloChat runs one exchange of a one-on-one conversation with a
// character. Generation failures degrade to an apology, never an
// error.
func (s *Service) SoloChat(ctx context.Context, characterID, userMessage string) (string, error) {
	character, err := s.GetCharacter(ctx, characterID)
	if err != nil {
		return "", err
	}

	systemPrompt, err := s.prompts.SoloSystem(character)
	if err != nil {
		return "", err
	}

	sessionID := soloSessionID(characterID)
	recent, err := s.history.GetRecent(ctx, sessionID, soloHistoryLimit)
	if err != nil {
		return "", err
	}

	turns := make([]models.ChatTurn, 0, len(recent))
	for _, msg := range recent {
		role := "user"
		if msg.Role == types.RoleCharacter {
			role = "model"
		}
		turns = append(turns, models.ChatTurn{Role: role, Text: msg.Content})
	}

	s.store(ctx, sessionID, types.ConversationMessage{Role: types.RoleUser, Content: userMessage})

	reply, err := s.generator.Chat(ctx, systemPrompt, turns, userMessage, soloTemperature, soloMaxTokens)
	if err != nil {
		s.logger.Warn("solo chat generation failed", "character", characterID, "error", err.Error())
		return soloFallbackReply, nil
	}

	s.store(ctx, sessionID, types.ConversationMessage{
		Role:          types.RoleCharacter,
		CharacterID:   character.ID,
		CharacterName: character.Name,
		Content:       reply,
	})
	return reply, nil
}

// RecallMessages finds past group messages related to a query.
func (s *Service) RecallMessages(ctx context.Context, groupID, query string) ([]storage.RecalledMessage, error) {
	if s.recall == nil {
		return nil, fmt.Errorf("semantic recall is not configured")
	}
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return s.recall.Recall(ctx, groupID, query)
}

// loadRoster resolves a group's members into profiles. Missing
// characters are skipped; a group with none left is an error.
func (s *Service) loadRoster(ctx context.Context, group *types.GroupSession) (*types.Roster, error) {
	profiles := make([]*types.CharacterProfile, 0, len(group.Members))
	for _, id := range group.Members {
		profile, err := s.characters.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if profile == nil {
			s.logger.Warn("group member missing from store", "group_id", group.ID, "character_id", id)
			continue
		}
		profiles = append(profiles, profile)
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("group has no valid characters: %s", group.ID)
	}
	return types.NewRoster(profiles), nil
}

// store persists one message, embedding it when an embedder is
// configured. Persistence failures are logged, not fatal, so a storage
// hiccup never swallows a generated reply.
func (s *Service) store(ctx context.Context, sessionID string, msg types.ConversationMessage) {
	var embedding []float32
	if s.embedder != nil && msg.Content != "" {
		vec, err := s.embedder.EmbedDocument(ctx, msg.Content)
		if err != nil {
			s.logger.Warn("failed to embed message", "session_id", sessionID, "error", err.Error())
		} else {
			embedding = vec
		}
	}
	if err := s.history.AddMessage(ctx, sessionID, msg, embedding); err != nil {
		s.logger.Warn("failed to persist message", "session_id", sessionID, "error", err.Error())
	}
}

func soloSessionID(characterID string) string {
	return "solo_" + characterID
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
