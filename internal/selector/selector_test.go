package selector

import (
	"context"
	"reflect"
	"testing"

	"github.com/easeaico/ensemble/internal/intent"
	"github.com/easeaico/ensemble/internal/types"
)

func testRoster() *types.Roster {
	return types.NewRoster([]*types.CharacterProfile{
		{ID: "naruto", Name: "Naruto"},
		{ID: "sasuke", Name: "Sasuke"},
		{ID: "sakura", Name: "Sakura"},
	})
}

func selContext(roster *types.Roster, recent ...types.ConversationMessage) Context {
	return Context{Candidates: roster.IDs(), Recent: recent, Roster: roster}
}

type fakeOpinions struct {
	opinion intent.Opinion
	calls   int
}

func (f *fakeOpinions) Opinion(context.Context, string, []string, *types.Roster) intent.Opinion {
	f.calls++
	return f.opinion
}

func TestPrioritySelectMentionWinsOverEverything(t *testing.T) {
	roster := testRoster()
	policy := NewPriorityPolicy(intent.NewAnalyzer(), nil)

	got := policy.Select(context.Background(), "hey everyone, naruto should answer this", selContext(roster))
	if !reflect.DeepEqual(got, []string{"naruto"}) {
		t.Fatalf("expected mention to win, got %v", got)
	}
}

func TestPrioritySelectGreetingReturnsAll(t *testing.T) {
	roster := testRoster()
	policy := NewPriorityPolicy(intent.NewAnalyzer(), nil)

	for _, msg := range []string{"hello everyone", "hi", "what's up"} {
		got := policy.Select(context.Background(), msg, selContext(roster))
		if !reflect.DeepEqual(got, roster.IDs()) {
			t.Fatalf("greeting %q should select all candidates, got %v", msg, got)
		}
	}
}

func TestPrioritySelectGroupDirectedReturnsAll(t *testing.T) {
	roster := testRoster()
	policy := NewPriorityPolicy(intent.NewAnalyzer(), nil)

	got := policy.Select(context.Background(), "i would like you both to weigh in", selContext(roster))
	if !reflect.DeepEqual(got, roster.IDs()) {
		t.Fatalf("expected all candidates, got %v", got)
	}
}

func TestPrioritySelectUsesOpinionTargets(t *testing.T) {
	roster := testRoster()
	opinions := &fakeOpinions{opinion: intent.Opinion{
		TargetType:       intent.TargetSpecific,
		TargetCharacters: []string{"Sakura", "Sasuke"},
		ResponseCount:    1,
	}}
	policy := NewPriorityPolicy(intent.NewAnalyzer(), opinions)

	got := policy.Select(context.Background(), "someone pick this up", selContext(roster))
	if !reflect.DeepEqual(got, []string{"sakura"}) {
		t.Fatalf("expected opinion truncated to count 1, got %v", got)
	}
	if opinions.calls != 1 {
		t.Fatalf("expected one opinion call, got %d", opinions.calls)
	}
}

func TestPrioritySelectClampsOpinionCount(t *testing.T) {
	roster := testRoster()
	opinions := &fakeOpinions{opinion: intent.Opinion{
		TargetType:       intent.TargetGroup,
		TargetCharacters: []string{"Naruto", "Sasuke", "Sakura"},
		ResponseCount:    9,
	}}
	policy := NewPriorityPolicy(intent.NewAnalyzer(), opinions)

	got := policy.Select(context.Background(), "someone pick this up", selContext(roster))
	if len(got) != 3 {
		t.Fatalf("expected clamp to 3 responders, got %v", got)
	}
}

func TestPrioritySelectSkipsOpinionWhenNoNameMatches(t *testing.T) {
	roster := testRoster()
	opinions := &fakeOpinions{opinion: intent.Opinion{
		TargetType:       intent.TargetSpecific,
		TargetCharacters: []string{"Goku"},
		ResponseCount:    2,
	}}
	policy := NewPriorityPolicy(intent.NewAnalyzer(), opinions)

	// Falls through to the statement default: first candidate.
	got := policy.Select(context.Background(), "ramen is the best food", selContext(roster))
	if !reflect.DeepEqual(got, []string{"naruto"}) {
		t.Fatalf("expected first candidate fallback, got %v", got)
	}
}

func TestPrioritySelectTypeDefaults(t *testing.T) {
	roster := testRoster()
	policy := NewPriorityPolicy(intent.NewAnalyzer(), nil)

	cases := []struct {
		message string
		want    []string
	}{
		// Question: two perspectives.
		{"which village is stronger?", []string{"naruto", "sasuke"}},
		// Request: one detailed answer.
		{"describe your jutsu", []string{"naruto"}},
		// Statement: first candidate.
		{"ramen is underrated", []string{"naruto"}},
	}
	for _, tc := range cases {
		got := policy.Select(context.Background(), tc.message, selContext(roster))
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("Select(%q) = %v, want %v", tc.message, got, tc.want)
		}
	}
}

func TestPrioritySelectIsTotal(t *testing.T) {
	roster := testRoster()
	policy := NewPriorityPolicy(intent.NewAnalyzer(), nil)

	messages := []string{"", "hi", "???", "zzz", "debate me", "naruto"}
	for _, msg := range messages {
		if got := policy.Select(context.Background(), msg, selContext(roster)); len(got) == 0 {
			t.Fatalf("Select(%q) returned empty for non-empty candidates", msg)
		}
	}

	if got := policy.Select(context.Background(), "hello", Context{Roster: roster}); got != nil {
		t.Fatalf("expected nil for empty candidates, got %v", got)
	}
}

func TestContextSelectMentions(t *testing.T) {
	roster := testRoster()
	policy := NewContextPolicy()

	got := policy.Select(context.Background(), "Sasuke, that was cold", selContext(roster))
	if !reflect.DeepEqual(got, []string{"sasuke"}) {
		t.Fatalf("expected mentioned character, got %v", got)
	}
}

func TestContextSelectPrefersOthersWhenReplying(t *testing.T) {
	roster := testRoster()
	policy := NewContextPolicy()
	recent := []types.ConversationMessage{
		{Role: types.RoleCharacter, CharacterID: "naruto", CharacterName: "Naruto", Content: "Believe it!"},
	}

	got := policy.Select(context.Background(), "really? explain that", selContext(roster, recent...))
	if !reflect.DeepEqual(got, []string{"sasuke", "sakura"}) {
		t.Fatalf("expected the two other members, got %v", got)
	}
}

func TestContextSelectFallsBackToLastSpeaker(t *testing.T) {
	roster := types.NewRoster([]*types.CharacterProfile{
		{ID: "naruto", Name: "Naruto"},
		{ID: "sasuke", Name: "Sasuke"},
	})
	policy := NewContextPolicy()
	recent := []types.ConversationMessage{
		{Role: types.RoleCharacter, CharacterID: "naruto", CharacterName: "Naruto", Content: "Believe it!"},
	}

	got := policy.Select(context.Background(), "do you really think so", selContext(roster, recent...))
	if !reflect.DeepEqual(got, []string{"sasuke", "naruto"}) {
		t.Fatalf("expected other then last speaker, got %v", got)
	}
}

func TestContextSelectSizing(t *testing.T) {
	roster := testRoster()
	policy := NewContextPolicy()

	// Group keywords select everyone.
	got := policy.Select(context.Background(), "share your opinions please", selContext(roster))
	if !reflect.DeepEqual(got, roster.IDs()) {
		t.Fatalf("expected all members, got %v", got)
	}

	// Short messages select two.
	got = policy.Select(context.Background(), "good food", selContext(roster))
	if len(got) != 2 {
		t.Fatalf("expected two responders for short message, got %v", got)
	}

	// Longer questions select up to three.
	got = policy.Select(context.Background(), "so where does chakra come from in the body?", selContext(roster))
	if len(got) != 3 {
		t.Fatalf("expected three responders for question, got %v", got)
	}

	// Plain statements select up to two.
	got = policy.Select(context.Background(), "i spent the morning training at the old ground", selContext(roster))
	if len(got) != 2 {
		t.Fatalf("expected two responders for statement, got %v", got)
	}
}
