package orchestrator

import (
	"reflect"
	"testing"
)

func TestDetectTriggerDebate(t *testing.T) {
	candidates := []string{"naruto", "sasuke", "sakura"}

	cases := []struct {
		message string
		topic   string
	}{
		{"debate about ramen vs curry", "ramen vs curry"},
		{"argue about the best hokage", "the best hokage"},
		{"cats vs dogs", "cats"},
		{"fight about training methods", "training methods"},
	}
	for _, tc := range cases {
		spec := DetectTrigger(tc.message, candidates)
		if spec == nil {
			t.Fatalf("DetectTrigger(%q) = nil, want debate", tc.message)
		}
		if spec.Kind != KindDebate {
			t.Fatalf("DetectTrigger(%q).Kind = %q, want debate", tc.message, spec.Kind)
		}
		if spec.Topic != tc.topic {
			t.Fatalf("DetectTrigger(%q).Topic = %q, want %q", tc.message, spec.Topic, tc.topic)
		}
		if !reflect.DeepEqual(spec.Participants, []string{"naruto", "sasuke"}) {
			t.Fatalf("debate participants = %v, want first two", spec.Participants)
		}
		if spec.MaxRounds != 8 {
			t.Fatalf("debate max rounds = %d, want 8", spec.MaxRounds)
		}
	}
}

func TestDetectTriggerDebateWithOneCandidate(t *testing.T) {
	spec := DetectTrigger("debate about ramen", []string{"naruto"})
	if spec == nil || !reflect.DeepEqual(spec.Participants, []string{"naruto"}) {
		t.Fatalf("expected lone candidate kept, got %+v", spec)
	}
}

func TestDetectTriggerDiscussion(t *testing.T) {
	candidates := []string{"naruto", "sasuke", "sakura"}

	spec := DetectTrigger("let's have a chat, shall we", candidates)
	if spec == nil {
		t.Fatal("expected discussion trigger")
	}
	if spec.Kind != KindDiscussion {
		t.Fatalf("Kind = %q, want discussion", spec.Kind)
	}
	if spec.Topic != "let's have a chat, shall we" {
		t.Fatalf("discussion topic should be the full message, got %q", spec.Topic)
	}
	if !reflect.DeepEqual(spec.Participants, candidates) {
		t.Fatalf("discussion participants = %v, want all candidates", spec.Participants)
	}
	if spec.MaxRounds != 6 {
		t.Fatalf("discussion max rounds = %d, want 6", spec.MaxRounds)
	}
}

func TestDetectTriggerDebatePhrasingBeatsDiscussionKeyword(t *testing.T) {
	// "discuss X" carries both a debate phrasing and a discussion
	// keyword; the phrasing wins.
	spec := DetectTrigger("discuss the chunin exams", []string{"naruto", "sasuke", "sakura"})
	if spec == nil || spec.Kind != KindDebate {
		t.Fatalf("expected debate, got %+v", spec)
	}
	if spec.Topic != "the chunin exams" {
		t.Fatalf("topic = %q, want captured group", spec.Topic)
	}
}

func TestDetectTriggerNone(t *testing.T) {
	candidates := []string{"naruto", "sasuke"}
	for _, msg := range []string{"hello everyone", "what time is it?", "ramen is great"} {
		if spec := DetectTrigger(msg, candidates); spec != nil {
			t.Fatalf("DetectTrigger(%q) = %+v, want nil", msg, spec)
		}
	}
	if spec := DetectTrigger("debate about ramen", nil); spec != nil {
		t.Fatalf("expected nil without candidates, got %+v", spec)
	}
}

func TestDetectTriggerEmptyTopic(t *testing.T) {
	// A phrasing match with a blank capture is not a trigger.
	if spec := DetectTrigger("debate about  ", []string{"naruto", "sasuke"}); spec != nil && spec.Kind == KindDebate && spec.Topic == "" {
		t.Fatalf("blank topic must not start a debate, got %+v", spec)
	}
}

func TestContainsStopWord(t *testing.T) {
	for _, msg := range []string{"please stop", "ENOUGH already", "let's end this", "quit it", "finish up", "pause for a second"} {
		if !containsStopWord(msg) {
			t.Fatalf("containsStopWord(%q) = false, want true", msg)
		}
	}
	for _, msg := range []string{"keep going", "more please", "continue"} {
		if containsStopWord(msg) {
			t.Fatalf("containsStopWord(%q) = true, want false", msg)
		}
	}
}
