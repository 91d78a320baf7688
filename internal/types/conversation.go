package types

import "time"

// Message roles.
const (
	RoleUser      = "user"
	RoleCharacter = "character"
	RoleSystem    = "system"
)

// ConversationMessage is one entry in a session's append-only history.
// CharacterID and CharacterName are set when Role is RoleCharacter.
type ConversationMessage struct {
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CharacterID    string    `json:"character_id,omitempty"`
	CharacterName  string    `json:"character_name,omitempty"`
	RelevanceScore float64   `json:"relevance_score,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// GroupSession is a chat session shared by two to four characters.
// Membership is fixed at creation time.
type GroupSession struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	Members   []string              `json:"members"`
	Messages  []ConversationMessage `json:"messages"`
	CreatedAt time.Time             `json:"created_at"`
}

// Group size bounds enforced at creation.
const (
	MinGroupMembers = 2
	MaxGroupMembers = 4
)
