package prompt

import (
	"strings"
	"testing"

	"github.com/easeaico/ensemble/internal/types"
)

func testCharacter() *types.CharacterProfile {
	return &types.CharacterProfile{
		ID:            "naruto",
		Name:          "Naruto",
		Story:         "A young ninja from the Hidden Leaf Village.",
		Backstory:     "Orphaned as a baby and shunned by the village.",
		Personality:   "Energetic and never gives up",
		SpeakingStyle: "Loud, enthusiastic, ends sentences with believe it",
		Powers:        "Shadow clone jutsu and rasengan",
		FamousQuotes:  []string{"Believe it!"},
		Relationships: []string{"Rival of Sasuke"},
	}
}

func TestGroupReplyIncludesProfileAndMessage(t *testing.T) {
	b := NewBuilder(6)
	got, err := b.GroupReply(GroupReplyContext{
		Character:   testCharacter(),
		Others:      []string{"Sasuke", "Sakura"},
		UserMessage: "who wants ramen?",
	})
	if err != nil {
		t.Fatalf("GroupReply failed: %v", err)
	}

	for _, want := range []string{
		"You are Naruto in a group chat.",
		"Other group members: Sasuke, Sakura.",
		"Energetic and never gives up",
		"Loud, enthusiastic",
		`User just said: "who wants ramen?"`,
		"Don't use quotes around your response",
		"Respond as Naruto:",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("prompt missing %q:\n%s", want, got)
		}
	}
}

func TestGroupReplyHistoryFormatting(t *testing.T) {
	b := NewBuilder(6)
	got, err := b.GroupReply(GroupReplyContext{
		Character: testCharacter(),
		Recent: []types.ConversationMessage{
			{Role: types.RoleUser, Content: "hello all"},
			{Role: types.RoleCharacter, CharacterName: "Sasuke", Content: "Hn."},
			{Role: types.RoleSystem, Content: "ignored"},
		},
		UserMessage: "anyone there?",
	})
	if err != nil {
		t.Fatalf("GroupReply failed: %v", err)
	}

	if !strings.Contains(got, "User: hello all") {
		t.Fatalf("user history line missing:\n%s", got)
	}
	if !strings.Contains(got, "Sasuke: Hn.") {
		t.Fatalf("character history line missing:\n%s", got)
	}
	if strings.Contains(got, "ignored") {
		t.Fatalf("system messages must not leak into history:\n%s", got)
	}
}

func TestGroupReplyHistoryWindow(t *testing.T) {
	b := NewBuilder(2)
	recent := []types.ConversationMessage{
		{Role: types.RoleUser, Content: "first"},
		{Role: types.RoleUser, Content: "second"},
		{Role: types.RoleUser, Content: "third"},
	}
	got, err := b.GroupReply(GroupReplyContext{Character: testCharacter(), Recent: recent, UserMessage: "hi"})
	if err != nil {
		t.Fatalf("GroupReply failed: %v", err)
	}
	if strings.Contains(got, "first") {
		t.Fatalf("history window should drop oldest messages:\n%s", got)
	}
	if !strings.Contains(got, "second") || !strings.Contains(got, "third") {
		t.Fatalf("history window dropped recent messages:\n%s", got)
	}
}

func TestGroupReplyResponseInstruction(t *testing.T) {
	b := NewBuilder(6)

	got, err := b.GroupReply(GroupReplyContext{Character: testCharacter(), UserMessage: "naruto?", Mentioned: true})
	if err != nil {
		t.Fatalf("GroupReply failed: %v", err)
	}
	if !strings.Contains(got, "You were specifically mentioned") {
		t.Fatalf("mentioned instruction missing:\n%s", got)
	}

	got, err = b.GroupReply(GroupReplyContext{Character: testCharacter(), UserMessage: "hm", LastSpeaker: "Sasuke"})
	if err != nil {
		t.Fatalf("GroupReply failed: %v", err)
	}
	if !strings.Contains(got, "Respond to what Sasuke said") {
		t.Fatalf("reply instruction missing:\n%s", got)
	}

	got, err = b.GroupReply(GroupReplyContext{Character: testCharacter(), UserMessage: "hm"})
	if err != nil {
		t.Fatalf("GroupReply failed: %v", err)
	}
	if !strings.Contains(got, "Respond naturally as Naruto would in this group conversation.") {
		t.Fatalf("natural instruction missing:\n%s", got)
	}
}

func TestGroupReplyUsesDefaultsForEmptyProfile(t *testing.T) {
	b := NewBuilder(6)
	got, err := b.GroupReply(GroupReplyContext{
		Character:   &types.CharacterProfile{ID: "mystery", Name: "Mystery"},
		UserMessage: "hi",
	})
	if err != nil {
		t.Fatalf("GroupReply failed: %v", err)
	}
	if !strings.Contains(got, types.DefaultPersonality) {
		t.Fatalf("expected default personality:\n%s", got)
	}
	if !strings.Contains(got, types.DefaultSpeakingStyle) {
		t.Fatalf("expected default speaking style:\n%s", got)
	}
}

func TestDebateTurnPrompt(t *testing.T) {
	b := NewBuilder(6)
	got, err := b.DebateTurn(TurnContext{
		Character: testCharacter(),
		Topic:     "ramen vs sushi",
		Others:    []string{"Sasuke"},
		Round:     3,
		History: []HistoryLine{
			{Speaker: "Sasuke", Text: "Sushi requires discipline."},
			{Speaker: "You", Text: "Ramen warms the soul!"},
		},
	})
	if err != nil {
		t.Fatalf("DebateTurn failed: %v", err)
	}

	for _, want := range []string{
		`autonomous debate about "ramen vs sushi" with Sasuke`,
		"This is round 3 of the debate",
		"Sasuke: Sushi requires discipline.",
		"You: Ramen warms the soul!",
		"counter previous points",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("debate prompt missing %q:\n%s", want, got)
		}
	}
}

func TestDiscussionTurnPrompt(t *testing.T) {
	b := NewBuilder(6)
	got, err := b.DiscussionTurn(TurnContext{
		Character: testCharacter(),
		Topic:     "training routines",
		Others:    []string{"Sasuke", "Sakura"},
		Round:     1,
	})
	if err != nil {
		t.Fatalf("DiscussionTurn failed: %v", err)
	}

	if !strings.Contains(got, `autonomous discussion about "training routines" with Sasuke, Sakura`) {
		t.Fatalf("discussion header missing:\n%s", got)
	}
	if !strings.Contains(got, "Continue the discussion naturally") {
		t.Fatalf("discussion instruction missing:\n%s", got)
	}
	if strings.Contains(got, "round") {
		t.Fatalf("discussion prompt should not mention rounds:\n%s", got)
	}
}

func TestSoloSystemPrompt(t *testing.T) {
	b := NewBuilder(6)
	got, err := b.SoloSystem(testCharacter())
	if err != nil {
		t.Fatalf("SoloSystem failed: %v", err)
	}

	for _, want := range []string{
		"You are Naruto",
		"A young ninja from the Hidden Leaf Village.",
		"Orphaned as a baby",
		"Believe it!",
		"Rival of Sasuke",
		"Stay completely in character",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("system prompt missing %q:\n%s", want, got)
		}
	}
}

func TestBuilderRequiresCharacter(t *testing.T) {
	b := NewBuilder(6)
	if _, err := b.GroupReply(GroupReplyContext{UserMessage: "hi"}); err == nil {
		t.Fatal("expected error for nil character")
	}
	if _, err := b.DebateTurn(TurnContext{Topic: "x"}); err == nil {
		t.Fatal("expected error for nil character")
	}
	if _, err := b.SoloSystem(nil); err == nil {
		t.Fatal("expected error for nil character")
	}
}
