package domain

import "fmt"

// IntentKind identifies the variant of an Intent.
type IntentKind string

const (
	IntentReset    IntentKind = "reset"
	IntentSelect   IntentKind = "select"
	IntentModify   IntentKind = "modify"
	IntentFollowUp IntentKind = "follow_up"
	IntentSearch   IntentKind = "search"
)

// Modification is one of the fixed axes a recipe can be transformed along.
type Modification string

const (
	ModSpicy Modification = "spicy"
	ModVegan Modification = "vegan"
	ModQuick Modification = "quick"
)

// Modifications lists the supported axes in classification order.
var Modifications = []Modification{ModSpicy, ModVegan, ModQuick}

// ParseModification validates a modification name.
func ParseModification(s string) (Modification, error) {
	for _, m := range Modifications {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownModification, s)
}

// Intent is the classification of one utterance. Only the fields of its Kind are set:
// Ordinal (1-based) for select, Modification for modify, Text for follow-up and search.
type Intent struct {
	Kind         IntentKind   `json:"kind"`
	Ordinal      int          `json:"ordinal,omitempty"`
	Modification Modification `json:"modification,omitempty"`
	Text         string       `json:"text,omitempty"`
}

func ResetIntent() Intent { return Intent{Kind: IntentReset} }
func SelectIntent(ordinal int) Intent { return Intent{Kind: IntentSelect, Ordinal: ordinal} }
func ModifyIntent(m Modification) Intent { return Intent{Kind: IntentModify, Modification: m} }
func FollowUpIntent(text string) Intent { return Intent{Kind: IntentFollowUp, Text: text} }
func SearchIntent(text string) Intent { return Intent{Kind: IntentSearch, Text: text} }

// NeedsSearch reports whether executing the intent calls the search service.
func (i Intent) NeedsSearch() bool {
	switch i.Kind {
	case IntentModify, IntentFollowUp, IntentSearch:
		return true
	}
	return false
}

func (i Intent) String() string {
	switch i.Kind {
	case IntentSelect:
		return fmt.Sprintf("select(%d)", i.Ordinal)
	case IntentModify:
		return fmt.Sprintf("modify(%s)", i.Modification)
	case IntentFollowUp, IntentSearch:
		return fmt.Sprintf("%s(%q)", i.Kind, i.Text)
	}
	return string(i.Kind)
}
