package selector

import (
	"strings"

	"github.com/easeaico/ensemble/internal/types"
)

// RelevanceScore ranks how pertinent a character is to a message, in
// [0,1]. Display ordering only; it never includes or excludes anyone.
// Name match and recent participation add fixed boosts, keyword overlap
// with the profile adds up to 0.3.
func RelevanceScore(message string, character *types.CharacterProfile, recent []types.ConversationMessage) float64 {
	score := 0.6
	lower := strings.ToLower(message)

	if strings.Contains(lower, strings.ToLower(character.Name)) {
		score += 0.4
	}

	lastFew := recent
	if len(lastFew) > 3 {
		lastFew = lastFew[len(lastFew)-3:]
	}
	for _, msg := range lastFew {
		if msg.Role == types.RoleCharacter && msg.CharacterID == character.ID {
			score += 0.2
			break
		}
	}

	keywordBoost := 0.0
	for _, keyword := range profileKeywords(character) {
		if strings.Contains(lower, keyword) {
			keywordBoost += 0.1
		}
	}
	if keywordBoost > 0.3 {
		keywordBoost = 0.3
	}
	score += keywordBoost

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// profileKeywords takes the first five words of the powers description
// and the first three of the personality, keeping only words longer
// than three characters.
func profileKeywords(character *types.CharacterProfile) []string {
	var keywords []string
	appendWords := func(text string, limit int) {
		words := strings.Fields(strings.ToLower(text))
		if len(words) > limit {
			words = words[:limit]
		}
		for _, word := range words {
			word = strings.Trim(word, ".,!?")
			if len(word) > 3 {
				keywords = append(keywords, word)
			}
		}
	}
	appendWords(character.Powers, 5)
	appendWords(character.Personality, 3)
	return keywords
}
