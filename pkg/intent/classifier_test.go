package intent_test

import (
	"testing"

	"github.com/aretw0/chefmate/pkg/domain"
	"github.com/aretw0/chefmate/pkg/intent"
	"github.com/stretchr/testify/assert"
)

func stateWith(n int, awaiting bool) *domain.SessionState {
	s := domain.NewSessionState()
	titles := []string{"Soup", "Salad", "Stew"}
	set := make([]domain.Recipe, n)
	for i := range n {
		set[i] = domain.Recipe{Title: titles[i]}
	}
	s.SetRecipeSet(set)
	if awaiting {
		s.Activate(domain.Recipe{Title: "Soup"})
	}
	return s
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		state *domain.SessionState
		want  domain.Intent
	}{
		{"Reset keyword", "please reset", stateWith(3, true), domain.ResetIntent()},
		{"Reset phrase mixed case", "Let's Start Over", stateWith(0, false), domain.ResetIntent()},
		{"Reset beats selection", "select 1 and begin again", stateWith(3, false), domain.ResetIntent()},
		{"Select digit", "select 2", stateWith(3, false), domain.SelectIntent(2)},
		{"Select out of range falls through", "select 2", stateWith(1, false), domain.SearchIntent("select 2")},
		{"Select with filler words", "choose the second one", stateWith(3, false), domain.SelectIntent(2)},
		{"Select word ordinal", "Recipe THREE please", stateWith(3, false), domain.SelectIntent(3)},
		{"Select beats modification", "make it spicy and select recipe 1", stateWith(3, false), domain.SelectIntent(1)},
		{"Modification without selection", "make it spicy and select recipe 1", stateWith(0, false), domain.ModifyIntent(domain.ModSpicy)},
		{"Spicier", "Make it spicier", stateWith(0, false), domain.ModifyIntent(domain.ModSpicy)},
		{"Vegan", "can you convert this to vegan", stateWith(0, false), domain.ModifyIntent(domain.ModVegan)},
		{"Quicker", "make it quicker", stateWith(0, false), domain.ModifyIntent(domain.ModQuick)},
		{"Modification is textual only", "make it vegan", nil, domain.ModifyIntent(domain.ModVegan)},
		{"Modification beats follow-up", "make it quicker", stateWith(3, true), domain.ModifyIntent(domain.ModQuick)},
		{"Follow-up while awaiting", "how long does it keep?", stateWith(3, true), domain.FollowUpIntent("how long does it keep?")},
		{"Search by default", "vegan soup", stateWith(3, false), domain.SearchIntent("vegan soup")},
		{"Ordinal number too large", "select 22", stateWith(3, false), domain.SearchIntent("select 22")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, intent.Classify(tt.text, tt.state))
		})
	}
}

func TestClassify_DoesNotMutateState(t *testing.T) {
	s := stateWith(3, true)
	before := s.Snapshot()

	_ = intent.Classify("reset", s)
	_ = intent.Classify("select 1", s)
	_ = intent.Classify("what wine goes with it?", s)

	assert.Equal(t, before, s)
}

func TestClassify_ResetKeywordsAlwaysWin(t *testing.T) {
	for _, kw := range intent.ResetKeywords {
		for _, s := range []*domain.SessionState{stateWith(0, false), stateWith(3, false), stateWith(3, true)} {
			assert.Equal(t, domain.IntentReset, intent.Classify("ok "+kw+" now", s).Kind, kw)
		}
	}
}

func TestOrdinal(t *testing.T) {
	tests := map[string]int{
		"select 1":         1,
		"choose first":     1,
		"recipe two":       2,
		"select #3":        3,
		"choose the third": 3,
		"recipe1":          1,
	}
	for text, want := range tests {
		got, ok := intent.Ordinal(text)
		assert.True(t, ok, text)
		assert.Equal(t, want, got, text)
	}

	for _, text := range []string{"pick 2", "select 4", "the second one", "selection of one"} {
		_, ok := intent.Ordinal(text)
		assert.False(t, ok, text)
	}
}

func TestNew_CustomRulesKeepOrder(t *testing.T) {
	always := intent.Rule{
		Name: "always_help",
		Match: func(text string, _ *domain.SessionState) (domain.Intent, bool) {
			return domain.SearchIntent("help"), true
		},
	}
	c := intent.New(append([]intent.Rule{always}, intent.DefaultRules()...)...)

	assert.Equal(t, []string{"always_help", "reset", "select", "modify", "follow_up"}, c.Rules())
	assert.Equal(t, domain.SearchIntent("help"), c.Classify("reset", nil))
}
