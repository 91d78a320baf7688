package intent

import (
	"context"
	"iter"
	"reflect"
	"testing"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/session"
	"google.golang.org/genai"
)

type fakeRunner struct {
	sessionService session.Service
	response       string
	err            error
}

func (r *fakeRunner) Run(ctx context.Context, userID, sessionID string, msg *genai.Content, cfg agent.RunConfig) iter.Seq2[*session.Event, error] {
	return func(yield func(*session.Event, error) bool) {
		if r.err != nil {
			yield(nil, r.err)
			return
		}
		event := session.NewEvent("opinion-test")
		event.Author = "assistant"
		event.LLMResponse.Content = genai.NewContentFromText(r.response, "assistant")
		_ = yield(event, nil)
	}
}

func newTestOpinionAgent(response string, err error) *OpinionAgent {
	return &OpinionAgent{
		runner:         &fakeRunner{sessionService: session.InMemoryService(), response: response, err: err},
		sessionService: session.InMemoryService(),
	}
}

func TestOpinionParsesStructuredResponse(t *testing.T) {
	roster := testRoster()
	agent := newTestOpinionAgent(`{"target_type":"specific","target_characters":["Naruto"],"reasoning":"directly asked","response_count":2}`, nil)

	got := agent.Opinion(context.Background(), "naruto only", roster.IDs(), roster)
	if got.TargetType != TargetSpecific {
		t.Fatalf("expected specific target, got %s", got.TargetType)
	}
	if !reflect.DeepEqual(got.TargetCharacters, []string{"Naruto"}) {
		t.Fatalf("unexpected targets: %v", got.TargetCharacters)
	}
	if got.ResponseCount != 2 {
		t.Fatalf("expected response count 2, got %d", got.ResponseCount)
	}
}

func TestOpinionToleratesWrappedJSON(t *testing.T) {
	roster := testRoster()
	agent := newTestOpinionAgent("Sure, here is my analysis: {\"target_type\":\"group\"} hope that helps", nil)

	got := agent.Opinion(context.Background(), "hello", roster.IDs(), roster)
	if got.TargetType != TargetGroup {
		t.Fatalf("expected group target, got %s", got.TargetType)
	}
	if got.ResponseCount != 1 {
		t.Fatalf("expected default response count 1, got %d", got.ResponseCount)
	}
}

func TestOpinionFallsBackOnMalformedJSON(t *testing.T) {
	roster := testRoster()
	agent := newTestOpinionAgent("i think naruto should answer", nil)

	got := agent.Opinion(context.Background(), "hello", roster.IDs(), roster)
	want := FallbackOpinion(roster.IDs(), roster)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected fallback opinion, got %#v", got)
	}
}

func TestOpinionFallsBackOnSchemaViolation(t *testing.T) {
	roster := testRoster()
	agent := newTestOpinionAgent(`{"target_type":"everybody","response_count":9}`, nil)

	got := agent.Opinion(context.Background(), "hello", roster.IDs(), roster)
	if got.TargetType != TargetGeneral {
		t.Fatalf("expected fallback target type, got %s", got.TargetType)
	}
}

func TestOpinionFallsBackOnRunError(t *testing.T) {
	roster := testRoster()
	agent := newTestOpinionAgent("", context.DeadlineExceeded)

	got := agent.Opinion(context.Background(), "hello", roster.IDs(), roster)
	want := FallbackOpinion(roster.IDs(), roster)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected fallback opinion, got %#v", got)
	}
}

func TestFallbackOpinionUsesFirstTwoNames(t *testing.T) {
	roster := testRoster()

	got := FallbackOpinion(roster.IDs(), roster)
	if !reflect.DeepEqual(got.TargetCharacters, []string{"Naruto", "Sasuke"}) {
		t.Fatalf("unexpected fallback targets: %v", got.TargetCharacters)
	}
	if got.TargetType != TargetGeneral || got.ResponseCount != 1 {
		t.Fatalf("unexpected fallback shape: %#v", got)
	}
}

var _ opinionRunner = (*fakeRunner)(nil)
