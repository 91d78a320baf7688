package types

import (
	"strings"
	"time"
)

// CharacterProfile is the persisted profile of a fictional character.
// Optional descriptive fields fall back to the Default* placeholders
// when empty, so prompt assembly never renders blank sections.
type CharacterProfile struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Story         string    `json:"story"`
	Backstory     string    `json:"backstory"`
	Personality   string    `json:"personality"`
	SpeakingStyle string    `json:"speaking_style"`
	FamousQuotes  []string  `json:"famous_quotes"`
	Relationships []string  `json:"relationships"`
	Powers        string    `json:"powers_abilities"`
	Development   string    `json:"character_development"`
	Appearance    string    `json:"appearance"`
	AvatarURL     string    `json:"avatar_url"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Placeholder texts used when a profile field was never filled in.
const (
	DefaultPersonality   = "Friendly and engaging"
	DefaultSpeakingStyle = "Natural conversation"
	DefaultPowers        = "Unique skills and special talents"
)

// PersonalityOrDefault returns the personality description or its placeholder.
func (c *CharacterProfile) PersonalityOrDefault() string {
	if strings.TrimSpace(c.Personality) == "" {
		return DefaultPersonality
	}
	return c.Personality
}

// SpeakingStyleOrDefault returns the speaking style or its placeholder.
func (c *CharacterProfile) SpeakingStyleOrDefault() string {
	if strings.TrimSpace(c.SpeakingStyle) == "" {
		return DefaultSpeakingStyle
	}
	return c.SpeakingStyle
}

// NormalizeID derives a character or group identifier from a display
// name: lower-cased, spaces replaced with underscores.
func NormalizeID(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}
