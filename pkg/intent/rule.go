// Package intent holds the ordered command catalog, the first-match matcher
// and the argument extractor used by search-style commands.
package intent

import (
	"strings"
	"time"

	"github.com/harunnryd/vaani/pkg/lang"
)

// ActionKind selects what a rule does after it speaks.
type ActionKind string

const (
	ActionSpeak      ActionKind = "speak"
	ActionOpenURL    ActionKind = "open_url"
	ActionOpenSearch ActionKind = "open_search"
	ActionCompute    ActionKind = "compute"
)

// ComputeKind names a value computed at dispatch time.
type ComputeKind string

const (
	ComputeTime      ComputeKind = "time"
	ComputeDate      ComputeKind = "date"
	ComputeWeekday   ComputeKind = "weekday"
	ComputeUserAgent ComputeKind = "user_agent"
	ComputeBattery   ComputeKind = "battery"
	ComputeJoke      ComputeKind = "joke"
)

// ValuePlaceholder is replaced in reply templates with the computed value or
// the extracted search argument.
const ValuePlaceholder = "{value}"

// Reply is a bilingual response template.
type Reply struct {
	Hindi   string
	English string
}

// For picks the template for a language, falling back to English.
func (r Reply) For(l lang.Language) string {
	if l == lang.Hindi && r.Hindi != "" {
		return r.Hindi
	}
	return r.English
}

// Render picks the template and substitutes value.
func (r Reply) Render(l lang.Language, value string) string {
	return strings.ReplaceAll(r.For(l), ValuePlaceholder, value)
}

// IsZero reports whether both templates are empty.
func (r Reply) IsZero() bool {
	return r.Hindi == "" && r.English == ""
}

// Search describes how a search rule turns its residual text into a URL.
type Search struct {
	Engine Engine
	// Fillers are stripped after the triggers, e.g. "for", "ke liye".
	Fillers []string
	// Default is used in the URL when nothing remains after stripping.
	Default string
	// SpokenDefault replaces Default in the reply when set.
	SpokenDefault string
}

// Action is the side effect of a rule.
type Action struct {
	Kind    ActionKind
	URL     string
	Search  Search
	Compute ComputeKind
	// Unavailable is spoken when a device capability cannot answer.
	Unavailable Reply
	// Choices feeds ComputeJoke.
	Choices []string
	// Delay defers the open. Zero opens immediately.
	Delay time.Duration
}

// Rule is one catalog entry: a trigger list plus what to say and do.
type Rule struct {
	Name     string
	Category string
	Triggers []string
	Reply    Reply
	Action   Action
}

// Matches reports whether any trigger is a substring of transcript.
func (r Rule) Matches(transcript string) bool {
	for _, t := range r.Triggers {
		if t != "" && strings.Contains(transcript, t) {
			return true
		}
	}
	return false
}

// Argument extracts the search argument from transcript. query is the text
// that goes into the URL, spoken the text that goes into the reply.
func (r Rule) Argument(transcript string) (query, spoken string) {
	phrases := make([]string, 0, len(r.Triggers)+len(r.Action.Search.Fillers))
	phrases = append(phrases, r.Triggers...)
	phrases = append(phrases, r.Action.Search.Fillers...)
	residual := ExtractArgument(transcript, phrases)
	if residual != "" {
		return residual, residual
	}
	spoken = r.Action.Search.SpokenDefault
	if spoken == "" {
		spoken = r.Action.Search.Default
	}
	return r.Action.Search.Default, spoken
}

func (r Rule) clone() Rule {
	out := r
	out.Triggers = append([]string(nil), r.Triggers...)
	out.Action.Search.Fillers = append([]string(nil), r.Action.Search.Fillers...)
	out.Action.Choices = append([]string(nil), r.Action.Choices...)
	return out
}
