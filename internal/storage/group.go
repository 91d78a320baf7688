package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/easeaico/ensemble/internal/types"
)

// groupModel maps to the group_sessions table.
type groupModel struct {
	ID        string `gorm:"primaryKey"`
	Name      string
	Members   string `gorm:"type:jsonb"`
	CreatedAt time.Time
}

func (groupModel) TableName() string {
	return "group_sessions"
}

// GroupRepo provides access to group chat sessions.
type GroupRepo struct {
	db *gorm.DB
}

// NewGroupRepo creates a new GroupRepo.
func NewGroupRepo(db *gorm.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

// Create inserts a new group session.
func (r *GroupRepo) Create(ctx context.Context, group *types.GroupSession) error {
	if group == nil {
		return fmt.Errorf("group cannot be nil")
	}
	members, err := json.Marshal(group.Members)
	if err != nil {
		return fmt.Errorf("failed to encode group members: %w", err)
	}
	record := groupModel{
		ID:        group.ID,
		Name:      group.Name,
		Members:   string(members),
		CreatedAt: group.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert group session: %w", err)
	}
	return nil
}

// GetByID fetches a group session by id. Returns (nil, nil) when
// absent.
func (r *GroupRepo) GetByID(ctx context.Context, id string) (*types.GroupSession, error) {
	var record groupModel
	err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group session: %w", err)
	}
	return groupFromModel(record)
}

// List fetches all group sessions ordered by creation time.
func (r *GroupRepo) List(ctx context.Context) ([]*types.GroupSession, error) {
	var records []groupModel
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list group sessions: %w", err)
	}

	groups := make([]*types.GroupSession, 0, len(records))
	for _, record := range records {
		group, err := groupFromModel(record)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// Delete removes a group session row.
func (r *GroupRepo) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Delete(&groupModel{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete group session: %w", err)
	}
	return nil
}

func groupFromModel(record groupModel) (*types.GroupSession, error) {
	group := &types.GroupSession{
		ID:        record.ID,
		Name:      record.Name,
		CreatedAt: record.CreatedAt,
	}
	if record.Members != "" {
		if err := json.Unmarshal([]byte(record.Members), &group.Members); err != nil {
			return nil, fmt.Errorf("failed to decode group members: %w", err)
		}
	}
	return group, nil
}
