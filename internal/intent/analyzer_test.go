package intent

import (
	"reflect"
	"testing"

	"github.com/easeaico/ensemble/internal/types"
)

func testRoster() *types.Roster {
	return types.NewRoster([]*types.CharacterProfile{
		{ID: "naruto", Name: "Naruto"},
		{ID: "sasuke", Name: "Sasuke"},
		{ID: "tony_stark", Name: "Tony Stark"},
	})
}

func TestDetectMentionsByName(t *testing.T) {
	a := NewAnalyzer()
	roster := testRoster()
	candidates := roster.IDs()

	cases := []struct {
		message string
		want    []string
	}{
		{"Naruto, what do you think?", []string{"naruto"}},
		{"hey sasuke", []string{"sasuke"}},
		{"@naruto are you there", []string{"naruto"}},
		{"Tony Stark can you build it", []string{"tony_stark"}},
		{"I prefer ramen over curry", nil},
		{"naruto and sasuke should both answer", []string{"naruto", "sasuke"}},
	}
	for _, tc := range cases {
		got := a.DetectMentions(tc.message, candidates, roster)
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("DetectMentions(%q) = %v, want %v", tc.message, got, tc.want)
		}
	}
}

func TestDetectMentionsKeepsCandidateOrder(t *testing.T) {
	a := NewAnalyzer()
	roster := testRoster()

	got := a.DetectMentions("sasuke and naruto", []string{"naruto", "sasuke"}, roster)
	if !reflect.DeepEqual(got, []string{"naruto", "sasuke"}) {
		t.Fatalf("expected candidate order to hold, got %v", got)
	}
}

func TestDetectMentionsSkipsUnknownIDs(t *testing.T) {
	a := NewAnalyzer()
	roster := testRoster()

	got := a.DetectMentions("hello goku", []string{"goku"}, roster)
	if len(got) != 0 {
		t.Fatalf("expected no mentions for unknown candidate, got %v", got)
	}
}

func TestIsGroupDirected(t *testing.T) {
	a := NewAnalyzer()

	positives := []string{
		"what do you all think about this",
		"introduce yourselves",
		"hey everyone, listen up",
		"how do you feel about it",
		"i want both of you to answer",
	}
	for _, msg := range positives {
		if !a.IsGroupDirected(msg) {
			t.Fatalf("expected %q to be group-directed", msg)
		}
	}

	if a.IsGroupDirected("tell me a story") {
		t.Fatalf("expected plain request not to be group-directed")
	}
}

func TestIsGreetingAnchorsWholeMessage(t *testing.T) {
	a := NewAnalyzer()

	positives := []string{
		"hi", "hello", "hey everyone", "greetings team",
		"good morning", "good evening all", "what's up", "whats up guys", "hello!",
	}
	for _, msg := range positives {
		if !a.IsGreeting(msg) {
			t.Fatalf("expected %q to be a greeting", msg)
		}
	}

	negatives := []string{
		"hello there, can you explain chakra",
		"say hi to sasuke for me",
		"good morning routines are important",
	}
	for _, msg := range negatives {
		if a.IsGreeting(msg) {
			t.Fatalf("expected %q not to be a greeting", msg)
		}
	}
}

func TestClassifyTypePriority(t *testing.T) {
	a := NewAnalyzer()

	cases := []struct {
		message string
		want    MessageType
	}{
		{"hello everyone", TypeGreeting},
		{"what is chakra?", TypeQuestion},
		{"tell me your story", TypeRequest},
		{"debate the merits of ramen", TypeDebateTrigger},
		{"i had lunch earlier", TypeStatement},
		// "tell" outranks "debate" when both appear.
		{"tell them to debate", TypeRequest},
	}
	for _, tc := range cases {
		if got := a.ClassifyType(tc.message); got != tc.want {
			t.Fatalf("ClassifyType(%q) = %s, want %s", tc.message, got, tc.want)
		}
	}
}

func TestConfidence(t *testing.T) {
	if got := Confidence(nil, false, false); got != 0.5 {
		t.Fatalf("base confidence = %v, want 0.5", got)
	}
	if got := Confidence([]string{"naruto"}, false, false); got != 0.9 {
		t.Fatalf("mention confidence = %v, want 0.9", got)
	}
	if got := Confidence(nil, true, true); got != 1.0 {
		t.Fatalf("group+greeting confidence = %v, want 1.0", got)
	}
	// All signals at once stay capped.
	if got := Confidence([]string{"naruto"}, true, true); got != 1.0 {
		t.Fatalf("confidence should cap at 1.0, got %v", got)
	}
}

func TestAnalyzeCombinesSignals(t *testing.T) {
	a := NewAnalyzer()
	roster := testRoster()

	got := a.Analyze("Hey Naruto, what's your favorite food?", roster.IDs(), roster)
	if !reflect.DeepEqual(got.Mentions, []string{"naruto"}) {
		t.Fatalf("unexpected mentions: %v", got.Mentions)
	}
	if got.Type != TypeQuestion {
		t.Fatalf("expected question type, got %s", got.Type)
	}
	if got.Confidence != 0.9 {
		t.Fatalf("expected confidence 0.9, got %v", got.Confidence)
	}
}
