package dialogue

import (
	"context"
	"errors"

	"github.com/aretw0/chefmate/pkg/domain"
)

// Assistant copy.
const (
	WelcomeMessage       = "👋 Hi there! I'm ChefMate, your cooking assistant. What would you like to cook today?"
	ResultsMessage       = "Here are some recipes I found:"
	NoMatchesMessage     = "I couldn't find any matching recipes. Try different ingredients."
	NotARecipeMessage    = "I'm not sure how to help with that. Try asking about a recipe or some ingredients."
	NeedRecipeForModify  = "Please select a recipe first before requesting modifications."
	NeedRecipeForFollow  = "Please select a recipe first before follow-up questions."
	ModificationFailed   = "Sorry, I couldn't modify the recipe."
	FollowUpFailed       = "Sorry, I couldn't process your request."
	GenericErrorMessage  = "Sorry, I encountered an error. Please try again."
	TimeoutErrorMessage  = "Sorry, the recipe service took too long to respond. Please try again."
	detailMessagePattern = "Here's how to make %s:"
)

// Quick replies offered with each kind of response.
var (
	WelcomeReplies  = []string{"Vegetarian options", "Healthy dinner ideas", "Quick low-carb meals"}
	DetailReplies   = []string{"Make it spicier", "Make it vegan", "Make it quicker", "Show me other recipes"}
	NoMatchReplies  = []string{"Vegetarian options", "Quick meals", "Fewer ingredients"}
	resultsReplyTwo = []string{"More options", "Different ingredients"}
)

// ResultReplies suggests opening the first result or widening the search.
func ResultReplies(recipes []domain.Recipe) []string {
	replies := make([]string, 0, 3)
	if len(recipes) > 0 && recipes[0].Title != "" {
		replies = append(replies, "Tell me about "+recipes[0].Title)
	}
	return append(replies, resultsReplyTwo...)
}

// ModificationQuery is the query sent for a recipe modification.
func ModificationQuery(m domain.Modification) string {
	return "Modify recipe to be " + string(m)
}

// ProcessingMessage is shown while a turn waits on the search service.
func ProcessingMessage(in domain.Intent) string {
	if in.Kind != domain.IntentModify {
		return ""
	}
	switch in.Modification {
	case domain.ModSpicy:
		return "Making the recipe spicier..."
	case domain.ModVegan:
		return "Converting the recipe to vegan..."
	case domain.ModQuick:
		return "Making the recipe quicker to prepare..."
	}
	return ""
}

// failureEvent maps a failed network turn to its render event.
func failureEvent(in domain.Intent, err error) domain.Event {
	var ev domain.Event
	switch in.Kind {
	case domain.IntentModify:
		ev = domain.Event{Type: domain.EventModificationFailed, Message: ModificationFailed}
	case domain.IntentFollowUp:
		ev = domain.Event{Type: domain.EventFollowUpFailed, Message: FollowUpFailed}
	default:
		ev = domain.Event{Type: domain.EventGenericError, Message: GenericErrorMessage}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		ev.Message = TimeoutErrorMessage
	}
	return ev
}

func copyReplies(replies []string) []string {
	return append([]string(nil), replies...)
}
