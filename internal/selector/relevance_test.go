package selector

import (
	"math"
	"testing"

	"github.com/easeaico/ensemble/internal/types"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRelevanceScoreBase(t *testing.T) {
	char := &types.CharacterProfile{ID: "naruto", Name: "Naruto"}
	if got := RelevanceScore("completely unrelated", char, nil); !almostEqual(got, 0.6) {
		t.Fatalf("base score = %v, want 0.6", got)
	}
}

func TestRelevanceScoreNameMention(t *testing.T) {
	char := &types.CharacterProfile{ID: "naruto", Name: "Naruto"}
	if got := RelevanceScore("naruto, your turn", char, nil); !almostEqual(got, 1.0) {
		t.Fatalf("name mention score = %v, want 1.0", got)
	}
}

func TestRelevanceScoreRecentSpeaker(t *testing.T) {
	char := &types.CharacterProfile{ID: "naruto", Name: "Naruto"}
	recent := []types.ConversationMessage{
		{Role: types.RoleCharacter, CharacterID: "naruto", Content: "Believe it!"},
	}
	if got := RelevanceScore("interesting point", char, recent); !almostEqual(got, 0.8) {
		t.Fatalf("recent speaker score = %v, want 0.8", got)
	}
}

func TestRelevanceScoreIgnoresOldTurns(t *testing.T) {
	char := &types.CharacterProfile{ID: "naruto", Name: "Naruto"}
	recent := []types.ConversationMessage{
		{Role: types.RoleCharacter, CharacterID: "naruto", Content: "old"},
		{Role: types.RoleCharacter, CharacterID: "sasuke", Content: "a"},
		{Role: types.RoleCharacter, CharacterID: "sakura", Content: "b"},
		{Role: types.RoleUser, Content: "c"},
	}
	// Naruto's turn is outside the 3-message lookback window.
	if got := RelevanceScore("interesting point", char, recent); !almostEqual(got, 0.6) {
		t.Fatalf("score = %v, want 0.6", got)
	}
}

func TestRelevanceScoreKeywordOverlap(t *testing.T) {
	char := &types.CharacterProfile{
		ID:          "naruto",
		Name:        "Naruto",
		Powers:      "shadow clone jutsu and rasengan",
		Personality: "determined loyal optimist",
	}
	// One keyword hit: "rasengan" is within the first five powers words.
	if got := RelevanceScore("show me that rasengan move", char, nil); !almostEqual(got, 0.7) {
		t.Fatalf("single keyword score = %v, want 0.7", got)
	}

	// Keyword boost caps at 0.3 no matter how many hits.
	msg := "shadow clone jutsu rasengan determined loyal optimist"
	if got := RelevanceScore(msg, char, nil); !almostEqual(got, 0.9) {
		t.Fatalf("capped keyword score = %v, want 0.9", got)
	}
}

func TestRelevanceScoreCapsAtOne(t *testing.T) {
	char := &types.CharacterProfile{
		ID:     "naruto",
		Name:   "Naruto",
		Powers: "shadow clone jutsu and rasengan",
	}
	recent := []types.ConversationMessage{
		{Role: types.RoleCharacter, CharacterID: "naruto", Content: "previous"},
	}
	got := RelevanceScore("naruto use shadow clone jutsu rasengan", char, recent)
	if !almostEqual(got, 1.0) {
		t.Fatalf("score should cap at 1.0, got %v", got)
	}
}
