// Package orchestrator runs autonomous character-to-character
// conversations: debates between two characters and free discussions
// among the whole group.
package orchestrator

import (
	"regexp"
	"strings"
)

// Kind distinguishes the two autonomous conversation styles.
type Kind string

const (
	KindDebate     Kind = "debate"
	KindDiscussion Kind = "discussion"
)

// ConversationSpec describes an autonomous conversation to start.
type ConversationSpec struct {
	Kind         Kind
	Topic        string
	Participants []string
	MaxRounds    int
}

const (
	debateMaxRounds     = 8
	discussionMaxRounds = 6
)

// Debate phrasings, checked in order. The first capture group is the
// topic.
var debateTriggers = []*regexp.Regexp{
	regexp.MustCompile(`debate about (.+)`),
	regexp.MustCompile(`argue about (.+)`),
	regexp.MustCompile(`discuss (.+)`),
	regexp.MustCompile(`what do you think about (.+)`),
	regexp.MustCompile(`(.+) vs (.+)`),
	regexp.MustCompile(`fight about (.+)`),
	regexp.MustCompile(`talk about (.+)`),
}

var discussionKeywords = []string{"discuss", "talk", "chat", "conversation"}

// DetectTrigger checks whether a user message asks the characters to
// converse among themselves. A debate phrasing picks the first two
// candidates for a head-to-head; otherwise any discussion keyword
// starts a free discussion with everyone, using the full message as
// the topic. The result is advisory, the caller decides whether to
// act on it.
func DetectTrigger(userMessage string, candidateIDs []string) *ConversationSpec {
	if len(candidateIDs) == 0 {
		return nil
	}
	lower := strings.ToLower(strings.TrimSpace(userMessage))

	for _, pattern := range debateTriggers {
		match := pattern.FindStringSubmatch(lower)
		if match == nil {
			continue
		}
		topic := strings.TrimSpace(match[1])
		if topic == "" {
			continue
		}
		participants := candidateIDs
		if len(participants) > 2 {
			participants = participants[:2]
		}
		return &ConversationSpec{
			Kind:         KindDebate,
			Topic:        topic,
			Participants: append([]string(nil), participants...),
			MaxRounds:    debateMaxRounds,
		}
	}

	for _, keyword := range discussionKeywords {
		if strings.Contains(lower, keyword) {
			return &ConversationSpec{
				Kind:         KindDiscussion,
				Topic:        userMessage,
				Participants: append([]string(nil), candidateIDs...),
				MaxRounds:    discussionMaxRounds,
			}
		}
	}
	return nil
}

var stopWords = []string{"stop", "enough", "pause", "end", "quit", "finish"}

// containsStopWord reports whether the message asks to halt an
// autonomous conversation.
func containsStopWord(userMessage string) bool {
	lower := strings.ToLower(userMessage)
	for _, word := range stopWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
