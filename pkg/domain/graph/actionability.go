package graph

import (
	"strings"
	"unicode"
)

// Actionability is the policy a task must pass to be schedulable work: a
// concrete action verb and a definable completion condition. It is a word
// list check, nothing smarter.
type Actionability struct {
	Verbs             []string `json:"verbs" yaml:"verbs"`
	CompletionMarkers []string `json:"completion_markers" yaml:"completion_markers"`
}

// DefaultActionability returns the built-in policy.
func DefaultActionability() Actionability {
	return Actionability{
		Verbs: []string{
			"add", "analyze", "build", "call", "choose", "clean", "collect", "configure",
			"create", "define", "deploy", "design", "document", "draft", "email", "finish",
			"fix", "implement", "install", "interview", "learn", "list", "measure", "migrate",
			"outline", "plan", "practice", "prepare", "publish", "read", "record", "refactor",
			"release", "remove", "research", "review", "run", "schedule", "send", "set",
			"setup", "ship", "sketch", "submit", "test", "train", "update", "upload",
			"validate", "verify", "write",
		},
		CompletionMarkers: []string{
			"done when", "until", "so that", "complete", "completed", "finished", "approved",
			"merged", "published", "deployed", "passing", "passes", "submitted", "sent",
			"ready", "signed", "delivered", "covering", "covers",
		},
	}
}

// Enabled reports whether the policy checks anything.
func (a Actionability) Enabled() bool {
	return len(a.Verbs) > 0 || len(a.CompletionMarkers) > 0
}

// Check returns a reason when the title and description fail the policy, or "".
func (a Actionability) Check(title, description string) string {
	if !a.Enabled() {
		return ""
	}
	text := strings.ToLower(title + " " + description)
	if len(a.Verbs) > 0 && !a.hasVerb(text) {
		return "no concrete action verb"
	}
	if len(a.CompletionMarkers) > 0 && !a.hasCompletion(strings.ToLower(description)) {
		return "description has no completion condition"
	}
	return ""
}

func (a Actionability) hasVerb(text string) bool {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '-'
	})
	verbs := make(map[string]bool, len(a.Verbs))
	for _, v := range a.Verbs {
		verbs[strings.ToLower(v)] = true
	}
	for _, w := range words {
		if verbs[w] {
			return true
		}
	}
	return false
}

// A number in the description ("3 chapters", "90%") counts as a condition.
func (a Actionability) hasCompletion(description string) bool {
	if strings.IndexFunc(description, unicode.IsDigit) >= 0 {
		return true
	}
	for _, m := range a.CompletionMarkers {
		if strings.Contains(description, strings.ToLower(m)) {
			return true
		}
	}
	return false
}
