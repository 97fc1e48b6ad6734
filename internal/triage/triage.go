// Package triage classifies reconstructed threads: which ones the operator
// still owes a response, and which can be skipped automatically.
package triage

import (
	"fmt"
	"strings"

	"github.com/presto/internal/threads"
)

// SkipType identifies which rule caused an automatic skip.
type SkipType string

const (
	SkipResolved      SkipType = "resolved"
	SkipLastCommenter SkipType = "last_commenter"
	SkipNone          SkipType = "none"
)

// Decision is the outcome of running the skip rules against one thread.
type Decision struct {
	Skip   bool
	Type   SkipType
	Reason string
}

// resolutionKeywords and resolutionPhrases must both match inside the same
// comment body for the resolved rule to fire. Requiring the conjunction
// keeps the heuristic conservative: a comment merely discussing resolution
// rarely contains an explicit phrase like "marking as resolved".
var resolutionKeywords = []string{
	"resolved", "fixed", "closed", "done", "completed",
	"merged", "addressed", "solved", "finished",
}

var resolutionPhrases = []string{
	"this is resolved", "marking as resolved", "resolved in",
	"fixed in", "closed by", "done in", "completed in",
}

// Engine runs the automatic skip rules. The operator identity is captured
// once at construction and never mutated; an empty identity disables the
// last-commenter rule entirely.
type Engine struct {
	operator string
}

func NewEngine(operator string) *Engine {
	return &Engine{operator: operator}
}

// Decide classifies a thread. Rule order matters: the resolved rule is
// checked before the last-commenter rule and the first match wins. Manual
// skips are not evaluated here; the session store applies them at post
// time, overriding whatever this returns.
func (e *Engine) Decide(t *threads.Thread) Decision {
	for _, c := range t.AllComments() {
		if phrase, ok := matchesResolution(c.Body); ok {
			return Decision{
				Skip:   true,
				Type:   SkipResolved,
				Reason: fmt.Sprintf("comment by %s contains resolution marker %q", c.Author, phrase),
			}
		}
	}

	if e.operator != "" {
		if last := t.LastComment(); last.Author == e.operator {
			return Decision{
				Skip:   true,
				Type:   SkipLastCommenter,
				Reason: fmt.Sprintf("%s was the last to comment", e.operator),
			}
		}
	}

	return Decision{Type: SkipNone}
}

// Apply runs Decide over every thread and records the outcome on the
// thread itself.
func (e *Engine) Apply(list []*threads.Thread) {
	for _, t := range list {
		d := e.Decide(t)
		if d.Skip {
			t.Status = threads.StatusAutoSkipped
			t.SkipReason = d.Reason
		} else {
			t.Status = threads.StatusNeedsResponse
			t.SkipReason = ""
		}
		t.Priority = AssessPriority(t.Root.Body)
		t.Complexity = AssessComplexity(t.Root.Body)
	}
}

func matchesResolution(body string) (string, bool) {
	lower := strings.ToLower(body)

	keyword := false
	for _, k := range resolutionKeywords {
		if strings.Contains(lower, k) {
			keyword = true
			break
		}
	}
	if !keyword {
		return "", false
	}

	for _, p := range resolutionPhrases {
		if strings.Contains(lower, p) {
			return p, true
		}
	}
	return "", false
}

var highPriorityWords = []string{"critical", "urgent", "security", "bug", "error", "broken", "failing"}
var mediumPriorityWords = []string{"question", "?", "concern", "issue", "problem", "unclear"}

// AssessPriority estimates how urgently a thread needs attention from its
// root comment body.
func AssessPriority(body string) string {
	lower := strings.ToLower(body)
	for _, w := range highPriorityWords {
		if strings.Contains(lower, w) {
			return "high"
		}
	}
	for _, w := range mediumPriorityWords {
		if strings.Contains(lower, w) {
			return "medium"
		}
	}
	return "low"
}

// AssessComplexity estimates how much work a response is likely to take,
// from the body length and the amount of embedded code.
func AssessComplexity(body string) string {
	fences := strings.Count(body, "```")
	if len(body) > 500 || fences > 2 {
		return "high"
	}
	if len(body) > 200 || fences > 0 {
		return "medium"
	}
	return "low"
}
