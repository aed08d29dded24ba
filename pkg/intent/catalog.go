package intent

import (
	"strings"

	"github.com/harunnryd/vaani/pkg/errorsx"
)

// FallbackName is the name of the rule used when nothing matches.
const FallbackName = "fallback"

// Catalog is an immutable ordered rule list. Earlier rules win.
type Catalog struct {
	rules    []Rule
	fallback Rule
}

// NewCatalog validates rules and the fallback and freezes them. Triggers are
// lower-cased; transcripts are matched lower-cased as well.
func NewCatalog(rules []Rule, fallback Rule) (*Catalog, error) {
	c := &Catalog{rules: make([]Rule, 0, len(rules))}
	seen := make(map[string]struct{}, len(rules))
	for i, r := range rules {
		r = normalizeRule(r)
		if err := validateRule(r, true); err != nil {
			return nil, errorsx.Newf(errorsx.ReasonCatalogInvalid, "rule %d: %v", i, err)
		}
		if _, dup := seen[r.Name]; dup {
			return nil, errorsx.Newf(errorsx.ReasonCatalogInvalid, "rule %d: duplicate name %q", i, r.Name)
		}
		seen[r.Name] = struct{}{}
		c.rules = append(c.rules, r)
	}
	fallback = normalizeRule(fallback)
	if fallback.Name == "" {
		fallback.Name = FallbackName
	}
	if err := validateRule(fallback, false); err != nil {
		return nil, errorsx.Newf(errorsx.ReasonCatalogInvalid, "fallback: %v", err)
	}
	c.fallback = fallback
	return c, nil
}

// Match returns the first rule with a trigger contained in transcript.
func (c *Catalog) Match(transcript string) (Rule, bool) {
	transcript = strings.ToLower(transcript)
	for _, r := range c.rules {
		if r.Matches(transcript) {
			return r.clone(), true
		}
	}
	return Rule{}, false
}

// Resolve returns the matching rule or the fallback.
func (c *Catalog) Resolve(transcript string) (Rule, bool) {
	if r, ok := c.Match(transcript); ok {
		return r, true
	}
	return c.fallback.clone(), false
}

// Rules returns a copy of the ordered rules.
func (c *Catalog) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	for i, r := range c.rules {
		out[i] = r.clone()
	}
	return out
}

// Fallback returns the rule used when nothing matches.
func (c *Catalog) Fallback() Rule {
	return c.fallback.clone()
}

// Len is the number of ordered rules, fallback excluded.
func (c *Catalog) Len() int {
	return len(c.rules)
}

func normalizeRule(r Rule) Rule {
	r = r.clone()
	r.Name = strings.TrimSpace(r.Name)
	for i, t := range r.Triggers {
		r.Triggers[i] = strings.ToLower(strings.TrimSpace(t))
	}
	for i, f := range r.Action.Search.Fillers {
		r.Action.Search.Fillers[i] = strings.ToLower(strings.TrimSpace(f))
	}
	return r
}

func validateRule(r Rule, needTriggers bool) error {
	if r.Name == "" {
		return errorsx.Newf(errorsx.ReasonCatalogInvalid, "name is required")
	}
	if needTriggers {
		if len(r.Triggers) == 0 {
			return errorsx.Newf(errorsx.ReasonCatalogInvalid, "%s: triggers are required", r.Name)
		}
		for _, t := range r.Triggers {
			if t == "" {
				return errorsx.Newf(errorsx.ReasonCatalogInvalid, "%s: empty trigger", r.Name)
			}
		}
	}
	if r.Reply.IsZero() && !(r.Action.Kind == ActionCompute && r.Action.Compute == ComputeJoke) {
		return errorsx.Newf(errorsx.ReasonCatalogInvalid, "%s: reply is required", r.Name)
	}
	switch r.Action.Kind {
	case ActionSpeak:
	case ActionOpenURL:
		if strings.TrimSpace(r.Action.URL) == "" {
			return errorsx.Newf(errorsx.ReasonCatalogInvalid, "%s: url is required", r.Name)
		}
	case ActionOpenSearch:
		if !r.Action.Search.Engine.Valid() {
			return errorsx.Newf(errorsx.ReasonCatalogInvalid, "%s: unknown engine %q", r.Name, string(r.Action.Search.Engine))
		}
	case ActionCompute:
		switch r.Action.Compute {
		case ComputeTime, ComputeDate, ComputeWeekday, ComputeUserAgent:
		case ComputeBattery:
			if r.Action.Unavailable.IsZero() {
				return errorsx.Newf(errorsx.ReasonCatalogInvalid, "%s: unavailable reply is required", r.Name)
			}
		case ComputeJoke:
			if len(r.Action.Choices) == 0 {
				return errorsx.Newf(errorsx.ReasonCatalogInvalid, "%s: choices are required", r.Name)
			}
		default:
			return errorsx.Newf(errorsx.ReasonCatalogInvalid, "%s: unknown compute %q", r.Name, string(r.Action.Compute))
		}
	default:
		return errorsx.Newf(errorsx.ReasonCatalogInvalid, "%s: unknown action %q", r.Name, string(r.Action.Kind))
	}
	if r.Action.Delay < 0 {
		return errorsx.Newf(errorsx.ReasonCatalogInvalid, "%s: negative delay", r.Name)
	}
	return nil
}
