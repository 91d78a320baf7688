package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/easeaico/ensemble/internal/types"
)

// characterModel maps to the characters table. List-valued profile
// fields are stored as JSON arrays.
type characterModel struct {
	ID            string `gorm:"primaryKey"`
	Name          string
	Story         string
	Backstory     string
	Personality   string
	SpeakingStyle string
	FamousQuotes  string `gorm:"type:jsonb"`
	Relationships string `gorm:"type:jsonb"`
	Powers        string
	Development   string
	Appearance    string
	AvatarURL     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (characterModel) TableName() string {
	return "characters"
}

// CharacterRepo provides access to the characters table.
type CharacterRepo struct {
	db *gorm.DB
}

// NewCharacterRepo creates a new CharacterRepo.
func NewCharacterRepo(db *gorm.DB) *CharacterRepo {
	return &CharacterRepo{db: db}
}

// Save inserts a character profile or replaces the existing row with
// the same id.
func (r *CharacterRepo) Save(ctx context.Context, profile *types.CharacterProfile) error {
	if profile == nil {
		return fmt.Errorf("profile cannot be nil")
	}
	record, err := characterToModel(profile)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(record).Error; err != nil {
		return fmt.Errorf("failed to save character: %w", err)
	}
	return nil
}

// GetByID fetches a character by id. Returns (nil, nil) when absent.
func (r *CharacterRepo) GetByID(ctx context.Context, id string) (*types.CharacterProfile, error) {
	var record characterModel
	err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get character by id: %w", err)
	}
	return characterFromModel(record)
}

// List fetches all characters ordered by creation time.
func (r *CharacterRepo) List(ctx context.Context) ([]*types.CharacterProfile, error) {
	var records []characterModel
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}

	profiles := make([]*types.CharacterProfile, 0, len(records))
	for _, record := range records {
		profile, err := characterFromModel(record)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, nil
}

// Delete removes a character row.
func (r *CharacterRepo) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Delete(&characterModel{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete character: %w", err)
	}
	return nil
}

func characterToModel(profile *types.CharacterProfile) (*characterModel, error) {
	quotes, err := json.Marshal(profile.FamousQuotes)
	if err != nil {
		return nil, fmt.Errorf("failed to encode famous quotes: %w", err)
	}
	relationships, err := json.Marshal(profile.Relationships)
	if err != nil {
		return nil, fmt.Errorf("failed to encode relationships: %w", err)
	}
	return &characterModel{
		ID:            profile.ID,
		Name:          profile.Name,
		Story:         profile.Story,
		Backstory:     profile.Backstory,
		Personality:   profile.Personality,
		SpeakingStyle: profile.SpeakingStyle,
		FamousQuotes:  string(quotes),
		Relationships: string(relationships),
		Powers:        profile.Powers,
		Development:   profile.Development,
		Appearance:    profile.Appearance,
		AvatarURL:     profile.AvatarURL,
		CreatedAt:     profile.CreatedAt,
		UpdatedAt:     profile.UpdatedAt,
	}, nil
}

func characterFromModel(record characterModel) (*types.CharacterProfile, error) {
	profile := &types.CharacterProfile{
		ID:            record.ID,
		Name:          record.Name,
		Story:         record.Story,
		Backstory:     record.Backstory,
		Personality:   record.Personality,
		SpeakingStyle: record.SpeakingStyle,
		Powers:        record.Powers,
		Development:   record.Development,
		Appearance:    record.Appearance,
		AvatarURL:     record.AvatarURL,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
	if record.FamousQuotes != "" {
		if err := json.Unmarshal([]byte(record.FamousQuotes), &profile.FamousQuotes); err != nil {
			return nil, fmt.Errorf("failed to decode famous quotes: %w", err)
		}
	}
	if record.Relationships != "" {
		if err := json.Unmarshal([]byte(record.Relationships), &profile.Relationships); err != nil {
			return nil, fmt.Errorf("failed to decode relationships: %w", err)
		}
	}
	return profile, nil
}
