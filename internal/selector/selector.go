// Package selector decides which characters reply to a user message.
// Two independent policies coexist on purpose: PriorityPolicy is the
// strict rule cascade, ContextPolicy is the live-chat heuristic that
// also weighs the previous speaker and message length. Call sites pick
// one; they are not required to agree.
package selector

import (
	"context"
	"strings"

	"github.com/easeaico/ensemble/internal/intent"
	"github.com/easeaico/ensemble/internal/types"
)

// Context carries the inputs a policy may consult.
type Context struct {
	Candidates []string
	Recent     []types.ConversationMessage
	Roster     *types.Roster
}

// Policy orders the characters that should respond. Implementations
// are total: the result is non-empty whenever Candidates is non-empty.
type Policy interface {
	Select(ctx context.Context, message string, sel Context) []string
}

// OpinionProvider supplies the advisory model opinion.
type OpinionProvider interface {
	Opinion(ctx context.Context, message string, candidates []string, roster *types.Roster) intent.Opinion
}

// PriorityPolicy applies the rule cascade: direct mentions, then
// greetings, then group-directed messages, then the model opinion,
// then message-type defaults. First matching rule wins.
type PriorityPolicy struct {
	analyzer *intent.Analyzer
	opinions OpinionProvider
}

// NewPriorityPolicy returns the cascade policy. opinions may be nil,
// in which case the opinion rule is skipped.
func NewPriorityPolicy(analyzer *intent.Analyzer, opinions OpinionProvider) *PriorityPolicy {
	return &PriorityPolicy{analyzer: analyzer, opinions: opinions}
}

func (p *PriorityPolicy) Select(ctx context.Context, message string, sel Context) []string {
	if len(sel.Candidates) == 0 {
		return nil
	}

	lower := strings.ToLower(strings.TrimSpace(message))

	if mentioned := p.analyzer.DetectMentions(message, sel.Candidates, sel.Roster); len(mentioned) > 0 {
		return mentioned
	}

	if p.analyzer.IsGreeting(lower) {
		return copyIDs(sel.Candidates)
	}

	if p.analyzer.IsGroupDirected(lower) {
		return copyIDs(sel.Candidates)
	}

	if p.opinions != nil {
		opinion := p.opinions.Opinion(ctx, message, sel.Candidates, sel.Roster)
		if targets := matchOpinionTargets(opinion, sel.Candidates, sel.Roster); len(targets) > 0 {
			return targets
		}
	}

	switch p.analyzer.ClassifyType(lower) {
	case intent.TypeDebateTrigger, intent.TypeQuestion:
		return firstN(sel.Candidates, 2)
	case intent.TypeRequest:
		return firstN(sel.Candidates, 1)
	default:
		return firstN(sel.Candidates, 1)
	}
}

// matchOpinionTargets resolves opinion display names against the
// candidates, keeping candidate order, truncated to the clamped
// response count.
func matchOpinionTargets(opinion intent.Opinion, candidates []string, roster *types.Roster) []string {
	if len(opinion.TargetCharacters) == 0 {
		return nil
	}

	var targets []string
	for _, name := range opinion.TargetCharacters {
		for _, id := range candidates {
			profile, ok := roster.Lookup(id)
			if !ok {
				continue
			}
			if strings.EqualFold(profile.Name, name) && !containsID(targets, id) {
				targets = append(targets, id)
				break
			}
		}
	}
	if len(targets) == 0 {
		return nil
	}

	count := opinion.ResponseCount
	if count < 1 {
		count = 1
	}
	if count > 3 {
		count = 3
	}
	if len(targets) > count {
		targets = targets[:count]
	}
	return targets
}

// ContextPolicy is the live-chat variant: it favors characters other
// than the last speaker when the user seems to be replying, and sizes
// the responder set from message length and question marks.
type ContextPolicy struct{}

// NewContextPolicy returns the live-chat heuristic policy.
func NewContextPolicy() *ContextPolicy {
	return &ContextPolicy{}
}

// replyTriggers mark a user message as a reaction to the previous
// character turn.
var replyTriggers = []string{"why", "what", "how", "really", "disagree", "agree", "think", "?"}

// contextGroupKeywords is intentionally a different list from the
// analyzer's group indicators; the two policies diverged upstream and
// stay divergent.
var contextGroupKeywords = []string{
	"all", "everyone", "introduce", "tell me about", "what do you all",
	"how are you", "who are you", "your thoughts", "opinions", "discuss",
}

func (p *ContextPolicy) Select(_ context.Context, message string, sel Context) []string {
	if len(sel.Candidates) == 0 {
		return nil
	}

	lower := strings.ToLower(message)

	var mentioned []string
	for _, id := range sel.Candidates {
		profile, ok := sel.Roster.Lookup(id)
		if !ok {
			continue
		}
		if strings.Contains(lower, strings.ToLower(profile.Name)) {
			mentioned = append(mentioned, id)
		}
	}
	if len(mentioned) > 0 {
		return mentioned
	}

	if len(sel.Recent) > 0 {
		last := sel.Recent[len(sel.Recent)-1]
		if last.Role == types.RoleCharacter && containsAny(lower, replyTriggers) {
			var others []string
			for _, id := range sel.Candidates {
				if id != last.CharacterID {
					others = append(others, id)
				}
			}
			if len(others) >= 2 {
				return others[:2]
			}
			return append(others, last.CharacterID)
		}
	}

	if containsAny(lower, contextGroupKeywords) {
		return copyIDs(sel.Candidates)
	}
	if len(strings.Fields(message)) <= 3 {
		return firstN(sel.Candidates, 2)
	}
	if strings.Contains(message, "?") {
		return firstN(sel.Candidates, 3)
	}
	return firstN(sel.Candidates, 2)
}

func copyIDs(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

func firstN(ids []string, n int) []string {
	if len(ids) < n {
		n = len(ids)
	}
	return copyIDs(ids[:n])
}

func containsID(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

func containsAny(text string, words []string) bool {
	for _, word := range words {
		if strings.Contains(text, word) {
			return true
		}
	}
	return false
}

var (
	_ Policy = (*PriorityPolicy)(nil)
	_ Policy = (*ContextPolicy)(nil)
)
