package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aretw0/chefmate/pkg/domain"
	"github.com/muesli/termenv"
)

// EventRenderer prints render events to a terminal, or as JSON lines.
// It implements ports.EventSink.
type EventRenderer struct {
	mu       sync.Mutex
	w        io.Writer
	markdown MarkdownRenderer
	json     *json.Encoder
	profile  termenv.Profile
}

// RendererOption configures the EventRenderer.
type RendererOption func(*EventRenderer)

// WithMarkdown renders recipe cards through r.
func WithMarkdown(r MarkdownRenderer) RendererOption {
	return func(er *EventRenderer) { er.markdown = r }
}

// WithJSON emits every event, stale and processing ones included, as one JSON line.
func WithJSON() RendererOption {
	return func(er *EventRenderer) { er.json = json.NewEncoder(er.w) }
}

// WithProfile overrides the detected color profile.
func WithProfile(p termenv.Profile) RendererOption {
	return func(er *EventRenderer) { er.profile = p }
}

func NewEventRenderer(w io.Writer, opts ...RendererOption) *EventRenderer {
	er := &EventRenderer{w: w, profile: termenv.ColorProfile()}
	for _, opt := range opts {
		opt(er)
	}
	return er
}

// Emit renders one event.
func (er *EventRenderer) Emit(_ context.Context, ev domain.Event) {
	er.mu.Lock()
	defer er.mu.Unlock()

	if er.json != nil {
		_ = er.json.Encode(ev)
		return
	}
	if ev.Stale {
		return
	}

	switch ev.Type {
	case domain.EventProcessingChanged:
		if ev.Processing {
			msg := ev.Message
			if msg == "" {
				msg = "Looking for recipes..."
			}
			fmt.Fprintln(er.w, er.profile.String("⏳ "+msg).Faint())
		}
		return

	case domain.EventVoiceStatus:
		if ev.Voice != nil && ev.Voice.Message != "" {
			style := er.profile.String("🎤 " + ev.Voice.Message).Faint()
			if ev.Voice.IsError {
				style = style.Foreground(er.profile.Color("#f87171"))
			}
			fmt.Fprintln(er.w, style)
		}
		return

	case domain.EventShowResults:
		er.say(ev.Message)
		for i, r := range ev.Recipes {
			fmt.Fprintf(er.w, "  %s %s%s\n",
				er.profile.String(fmt.Sprintf("%d.", i+1)).Bold(),
				r.Title,
				er.profile.String(minutes(r.Minutes)).Faint())
		}

	case domain.EventShowDetail:
		er.say(ev.Message)
		if ev.Recipe != nil {
			er.card(RecipeMarkdown(*ev.Recipe))
		}

	case domain.EventNeedRecipeFirst, domain.EventModificationFailed,
		domain.EventFollowUpFailed, domain.EventGenericError:
		fmt.Fprintln(er.w, er.profile.String("⚠ "+ev.Message).Foreground(er.profile.Color("#fbbf24")))

	default:
		er.say(ev.Message)
	}

	if len(ev.QuickReplies) > 0 {
		fmt.Fprintln(er.w, er.profile.String("Try: "+strings.Join(ev.QuickReplies, " · ")).Faint())
	}
}

func (er *EventRenderer) say(msg string) {
	if msg != "" {
		fmt.Fprintln(er.w, er.profile.String("🧑‍🍳 "+msg).Foreground(er.profile.Color("#4ade80")))
	}
}

func (er *EventRenderer) card(md string) {
	out := md
	if er.markdown != nil {
		if rendered, err := er.markdown(md); err == nil {
			out = rendered
		}
	}
	fmt.Fprintln(er.w, strings.TrimRight(out, "\n"))
}

func minutes(m domain.Minutes) string {
	if m <= 0 {
		return ""
	}
	return fmt.Sprintf(" (%d min)", m)
}

// RecipeMarkdown formats a recipe as a markdown card.
func RecipeMarkdown(r domain.Recipe) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", r.Title)
	if r.Minutes > 0 {
		fmt.Fprintf(&b, "**Ready in:** %d minutes\n\n", r.Minutes)
	}
	if len(r.Tags) > 0 {
		fmt.Fprintf(&b, "_%s_\n\n", strings.Join(r.Tags, ", "))
	}
	if items := r.IngredientList(); len(items) > 0 {
		b.WriteString("## Ingredients\n\n")
		for _, item := range items {
			fmt.Fprintf(&b, "- %s\n", item)
		}
		b.WriteString("\n")
	}
	if steps := r.Steps(); len(steps) > 0 {
		b.WriteString("## Instructions\n\n")
		for i, step := range steps {
			fmt.Fprintf(&b, "%d. %s\n", i+1, step)
		}
		b.WriteString("\n")
	}
	if r.Notes != "" {
		fmt.Fprintf(&b, "> %s\n", r.Notes)
	}
	return b.String()
}
