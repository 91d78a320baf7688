package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/easeaico/ensemble/internal/types"
)

// messageModel maps to the chat_history table. The embedding column
// backs semantic recall and may be null for messages that were never
// embedded.
type messageModel struct {
	ID             int
	SessionID      string
	Role           string
	CharacterID    string
	CharacterName  string
	Content        string
	RelevanceScore float64
	Embedding      *pgvector.Vector `gorm:"type:vector"`
	CreatedAt      time.Time
}

func (messageModel) TableName() string {
	return "chat_history"
}

// RecalledMessage is a semantically similar past message.
type RecalledMessage struct {
	Role          string
	CharacterName string
	Content       string
	CreatedAt     time.Time
	Similarity    float64
}

// SpeakerCount is one row of the per-speaker message tally.
type SpeakerCount struct {
	CharacterID string
	Count       int
}

// HistoryRepo accesses conversation messages. Sessions are keyed by
// group id for group chats and by a per-character session id for solo
// chats.
type HistoryRepo struct {
	db *gorm.DB
}

// NewHistoryRepo returns a HistoryRepo.
func NewHistoryRepo(db *gorm.DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// AddMessage appends one message to a session.
func (r *HistoryRepo) AddMessage(ctx context.Context, sessionID string, msg types.ConversationMessage, embedding []float32) error {
	var vector *pgvector.Vector
	if len(embedding) > 0 {
		v := pgvector.NewVector(embedding)
		vector = &v
	}
	record := messageModel{
		SessionID:      sessionID,
		Role:           msg.Role,
		CharacterID:    msg.CharacterID,
		CharacterName:  msg.CharacterName,
		Content:        msg.Content,
		RelevanceScore: msg.RelevanceScore,
		Embedding:      vector,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert chat message: %w", err)
	}
	return nil
}

// GetRecent returns the most recent messages of a session, oldest
// first.
func (r *HistoryRepo) GetRecent(ctx context.Context, sessionID string, limit int) ([]types.ConversationMessage, error) {
	var records []messageModel
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query chat history: %w", err)
	}

	results := make([]types.ConversationMessage, 0, len(records))
	for _, record := range records {
		results = append(results, messageFromModel(record))
	}

	// Oldest -> newest
	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}
	return results, nil
}

// SearchSimilar finds past messages semantically close to the query
// embedding, most similar first.
func (r *HistoryRepo) SearchSimilar(ctx context.Context, sessionID string, embedding []float32, topK int, threshold float64) ([]RecalledMessage, error) {
	if len(embedding) == 0 {
		return nil, nil
	}

	query := `
		SELECT role, character_name, content, created_at, 1 - (embedding <=> $1) AS similarity
		FROM chat_history
		WHERE session_id = $2
		  AND embedding IS NOT NULL
		  AND 1 - (embedding <=> $1) > $3
		ORDER BY similarity DESC
		LIMIT $4`

	vector := pgvector.NewVector(embedding)
	var results []RecalledMessage
	if err := r.db.WithContext(ctx).
		Raw(query, vector, sessionID, threshold, topK).
		Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to search similar messages: %w", err)
	}
	return results, nil
}

// CountBySpeaker tallies character messages per speaker for one
// session.
func (r *HistoryRepo) CountBySpeaker(ctx context.Context, sessionID string) ([]SpeakerCount, error) {
	var results []SpeakerCount
	if err := r.db.WithContext(ctx).
		Model(&messageModel{}).
		Select("character_id, COUNT(*) AS count").
		Where("session_id = ? AND role = ?", sessionID, types.RoleCharacter).
		Group("character_id").
		Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count messages by speaker: %w", err)
	}
	return results, nil
}

// CountMessages returns the total message count of a session.
func (r *HistoryRepo) CountMessages(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&messageModel{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

// DeleteSession removes all messages of a session.
func (r *HistoryRepo) DeleteSession(ctx context.Context, sessionID string) error {
	if err := r.db.WithContext(ctx).
		Delete(&messageModel{}, "session_id = ?", sessionID).Error; err != nil {
		return fmt.Errorf("failed to delete session history: %w", err)
	}
	return nil
}

func messageFromModel(record messageModel) types.ConversationMessage {
	return types.ConversationMessage{
		Role:           record.Role,
		CharacterID:    record.CharacterID,
		CharacterName:  record.CharacterName,
		Content:        record.Content,
		RelevanceScore: record.RelevanceScore,
		CreatedAt:      record.CreatedAt,
	}
}
