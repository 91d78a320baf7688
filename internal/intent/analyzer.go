// Package intent classifies incoming user messages: who they address,
// whether they target the whole group, and what kind of reply they ask
// for. Everything here is deterministic pattern matching; the
// model-backed opinion lives in opinion.go and is advisory only.
package intent

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/easeaico/ensemble/internal/types"
)

// MessageType is the coarse classification of a user message.
type MessageType string

const (
	TypeGreeting      MessageType = "greeting"
	TypeQuestion      MessageType = "question"
	TypeRequest       MessageType = "request"
	TypeDebateTrigger MessageType = "debate_trigger"
	TypeStatement     MessageType = "statement"
)

// Intent is the full analysis of one user message.
type Intent struct {
	Mentions   []string
	IsGroup    bool
	IsGreeting bool
	Type       MessageType
	Confidence float64
}

// groupIndicators are substrings that mark a message as group-directed.
var groupIndicators = []string{
	"everyone", "all", "guys", "team", "group", "both", "all of you",
	"what do you all", "what does everyone", "tell me about yourselves",
	"introduce yourselves", "how are you all", "what are your thoughts",
}

var groupQuestionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`what do you (all )?think`),
	regexp.MustCompile(`what are your (thoughts|opinions)`),
	regexp.MustCompile(`how do you (all )?feel`),
	regexp.MustCompile(`tell me about yourselves`),
	regexp.MustCompile(`introduce yourselves`),
	regexp.MustCompile(`what can you (all )?do`),
}

// greetingPatterns match the entire message; greetings embedded in
// longer sentences do not count.
var greetingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(hi|hello|hey|greetings?)(\s+(everyone|all|guys|team))?[!.]?$`),
	regexp.MustCompile(`^good\s+(morning|afternoon|evening|day)(\s+(everyone|all))?[!.]?$`),
	regexp.MustCompile(`^what'?s\s+up(\s+(everyone|all|guys))?[!.]?$`),
}

var (
	questionWords = []string{"?", "what", "how", "why", "where", "when", "who"}
	requestWords  = []string{"tell", "explain", "describe", "show"}
	debateWords   = []string{"debate", "argue", "discuss", "fight"}
)

// Analyzer performs deterministic intent analysis.
type Analyzer struct{}

// NewAnalyzer returns an Analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze classifies a message against the candidate characters.
func (a *Analyzer) Analyze(message string, candidates []string, roster *types.Roster) Intent {
	lower := strings.ToLower(strings.TrimSpace(message))

	mentions := a.DetectMentions(message, candidates, roster)
	isGroup := a.IsGroupDirected(lower)
	isGreeting := a.IsGreeting(lower)

	return Intent{
		Mentions:   mentions,
		IsGroup:    isGroup,
		IsGreeting: isGreeting,
		Type:       a.ClassifyType(lower),
		Confidence: Confidence(mentions, isGroup, isGreeting),
	}
}

// DetectMentions returns the candidates addressed by name, in candidate
// order. A candidate counts as mentioned when its display name appears
// verbatim, as an @mention, after a greeting word, or directly before a
// question word.
func (a *Analyzer) DetectMentions(message string, candidates []string, roster *types.Roster) []string {
	lower := strings.ToLower(message)

	var mentioned []string
	for _, id := range candidates {
		profile, ok := roster.Lookup(id)
		if !ok {
			continue
		}
		name := strings.ToLower(profile.Name)
		if name == "" {
			continue
		}
		quoted := regexp.QuoteMeta(name)

		switch {
		case strings.Contains(lower, name):
			mentioned = append(mentioned, id)
		case strings.Contains(lower, "@"+name):
			mentioned = append(mentioned, id)
		case matchPattern(fmt.Sprintf(`\b(hey|hi|hello)\s+%s\b`, quoted), lower):
			mentioned = append(mentioned, id)
		case matchPattern(fmt.Sprintf(`\b%s,?\s+(what|how|why|where|when)`, quoted), lower):
			mentioned = append(mentioned, id)
		case matchPattern(fmt.Sprintf(`%s\s+(what|how|do\s+you|are\s+you|can\s+you)`, quoted), lower):
			mentioned = append(mentioned, id)
		}
	}
	return mentioned
}

// IsGroupDirected reports whether the lower-cased message addresses the
// whole group.
func (a *Analyzer) IsGroupDirected(lower string) bool {
	for _, indicator := range groupIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	for _, pattern := range groupQuestionPatterns {
		if pattern.MatchString(lower) {
			return true
		}
	}
	return false
}

// IsGreeting reports whether the whole lower-cased message is a short
// greeting.
func (a *Analyzer) IsGreeting(lower string) bool {
	for _, pattern := range greetingPatterns {
		if pattern.MatchString(lower) {
			return true
		}
	}
	return false
}

// ClassifyType buckets a lower-cased message, most specific first.
func (a *Analyzer) ClassifyType(lower string) MessageType {
	switch {
	case a.IsGreeting(lower):
		return TypeGreeting
	case containsAny(lower, questionWords):
		return TypeQuestion
	case containsAny(lower, requestWords):
		return TypeRequest
	case containsAny(lower, debateWords):
		return TypeDebateTrigger
	default:
		return TypeStatement
	}
}

// Confidence scores how certain the deterministic analysis is, in [0,1].
// Observability only, never a gate.
func Confidence(mentions []string, isGroup, isGreeting bool) float64 {
	confidence := 0.5
	if len(mentions) > 0 {
		confidence += 0.4
	}
	if isGroup {
		confidence += 0.3
	}
	if isGreeting {
		confidence += 0.2
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

func matchPattern(pattern, text string) bool {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(text)
}

func containsAny(text string, words []string) bool {
	for _, word := range words {
		if strings.Contains(text, word) {
			return true
		}
	}
	return false
}
