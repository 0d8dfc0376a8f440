// Package intent classifies utterances against the current session state.
//
// Classification is a pure function walking an ordered rule table; the first
// rule that matches wins and Search is the fallback.
package intent

import (
	"regexp"
	"strings"

	"github.com/aretw0/chefmate/pkg/domain"
)

// Rule is one entry of the precedence table.
type Rule struct {
	Name  string
	Match func(text string, state *domain.SessionState) (domain.Intent, bool)
}

// Classifier maps (utterance, state) to an Intent.
type Classifier struct {
	rules []Rule
}

// New creates a classifier over the given rules, or DefaultRules when none are given.
func New(rules ...Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Classifier{rules: rules}
}

// DefaultRules returns the precedence table: reset, ordinal selection, modification, follow-up.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "reset", Match: matchReset},
		{Name: "select", Match: matchOrdinal},
		{Name: "modify", Match: matchModification},
		{Name: "follow_up", Match: matchFollowUp},
	}
}

// Classify returns the first matching rule's intent, or Search(text).
// It never mutates state; a nil state behaves like an empty session.
func (c *Classifier) Classify(text string, state *domain.SessionState) domain.Intent {
	if state == nil {
		state = domain.NewSessionState()
	}
	for _, rule := range c.rules {
		if in, ok := rule.Match(text, state); ok {
			return in
		}
	}
	return domain.SearchIntent(text)
}

// Rules returns the rule names in precedence order.
func (c *Classifier) Rules() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Name
	}
	return names
}

var std = New()

// Classify uses the default rule table.
func Classify(text string, state *domain.SessionState) domain.Intent {
	return std.Classify(text, state)
}

// ResetKeywords trigger a Reset anywhere in the utterance.
var ResetKeywords = []string{"reset", "start over", "clear session", "new session", "begin again"}

// IsReset reports whether the utterance contains a reset keyword.
func IsReset(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range ResetKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func matchReset(text string, _ *domain.SessionState) (domain.Intent, bool) {
	return domain.ResetIntent(), IsReset(text)
}

var ordinalPattern = regexp.MustCompile(`(?i)\b(?:recipe|choose|select)\s*(?:(?:the|number|recipe|no\.|#)\s*)*(1|2|3|first|second|third|one|two|three)\b`)

var ordinals = map[string]int{
	"1": 1, "first": 1, "one": 1,
	"2": 2, "second": 2, "two": 2,
	"3": 3, "third": 3, "three": 3,
}

// Ordinal extracts the 1-based position named by the utterance, if any.
// It does not check the position against a recipe set.
func Ordinal(text string) (int, bool) {
	m := ordinalPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, ok := ordinals[strings.ToLower(m[1])]
	return n, ok
}

func matchOrdinal(text string, state *domain.SessionState) (domain.Intent, bool) {
	n, ok := Ordinal(text)
	if !ok {
		return domain.Intent{}, false
	}
	if _, exists := state.RecipeAt(n); !exists {
		return domain.Intent{}, false
	}
	return domain.SelectIntent(n), true
}

type modificationRule struct {
	regex *regexp.Regexp
	kind  domain.Modification
}

var modificationRules = []modificationRule{
	{regexp.MustCompile(`(?i)(?:make|add).*spicy|spicier`), domain.ModSpicy},
	{regexp.MustCompile(`(?i)(?:make|convert).*vegan`), domain.ModVegan},
	{regexp.MustCompile(`(?i)make.*quick(?:er)?`), domain.ModQuick},
}

// Modification extracts the modification phrase of the utterance, if any.
// Classification is textual only: the active recipe is checked by the controller.
func Modification(text string) (domain.Modification, bool) {
	for _, rule := range modificationRules {
		if rule.regex.MatchString(text) {
			return rule.kind, true
		}
	}
	return "", false
}

func matchModification(text string, _ *domain.SessionState) (domain.Intent, bool) {
	kind, ok := Modification(text)
	if !ok {
		return domain.Intent{}, false
	}
	return domain.ModifyIntent(kind), true
}

func matchFollowUp(text string, state *domain.SessionState) (domain.Intent, bool) {
	if !state.AwaitingFollowUp {
		return domain.Intent{}, false
	}
	return domain.FollowUpIntent(text), true
}
