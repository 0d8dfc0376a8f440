package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/chefmate/internal/config"
	"github.com/aretw0/chefmate/internal/presentation/tui"
	"github.com/aretw0/chefmate/pkg/dialogue"
	"github.com/aretw0/chefmate/pkg/domain"
	"github.com/aretw0/chefmate/pkg/ports"
)

// ChatOptions contains the configuration of the chat command.
type ChatOptions struct {
	// SessionID resumes (or creates) a persisted conversation. Empty starts a new one.
	SessionID string
	// Fresh discards the stored conversation before starting.
	Fresh bool
	// JSON reads one utterance per line (plain or a JSON string) and writes events as JSON lines.
	JSON bool
	// Markdown renders recipe cards. Nil prints plain markdown.
	Markdown tui.MarkdownRenderer
}

// RunChat runs an interactive conversation on in/out until EOF, "exit" or ctx is done.
func RunChat(ctx context.Context, stack *Stack, opts ChatOptions, in io.Reader, out io.Writer) error {
	rendererOpts := []tui.RendererOption{tui.WithMarkdown(opts.Markdown)}
	if opts.JSON {
		rendererOpts = append(rendererOpts, tui.WithJSON())
	}
	renderer := tui.NewEventRenderer(out, rendererOpts...)
	sessions := stack.Sessions(func(string) ports.EventSink { return renderer })

	say := func(format string, args ...any) {
		if !opts.JSON {
			printSystemMessage(out, format, args...)
		}
	}

	var (
		ctrl    *dialogue.Controller
		resumed bool
		err     error
	)
	if opts.SessionID == "" {
		ctrl, err = sessions.Create(ctx)
	} else {
		if opts.Fresh {
			if err := sessions.Delete(ctx, opts.SessionID); err != nil {
				return fmt.Errorf("reset session: %w", err)
			}
		}
		_, loadErr := stack.Store.Load(ctx, opts.SessionID)
		resumed = loadErr == nil
		ctrl, err = sessions.OpenOrCreate(ctx, opts.SessionID)
	}
	if err != nil {
		return fmt.Errorf("failed to init session: %w", err)
	}
	defer sessions.Close(ctrl.SessionID())

	stack.Logger.Info("Chat started", "session_id", ctrl.SessionID(), "resumed", resumed)
	if resumed {
		state := ctrl.Snapshot()
		say("Resuming session '%s'.", ctrl.SessionID())
		if state.ActiveRecipe != nil {
			say("Current recipe: %s", state.ActiveRecipe.Title)
		} else if len(state.RecipeSet) > 0 {
			say("%d recipes on the table. Pick one by number.", len(state.RecipeSet))
		}
	} else {
		ctrl.Greet(ctx)
	}

	lines := pump(in)
	for {
		if !opts.JSON {
			fmt.Fprint(out, "> ")
		}

		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res, ok := <-lines:
			if !ok {
				return nil
			}
			if res.err != nil {
				return res.err
			}
			line = res.text
		}

		text := strings.TrimSpace(line)
		if opts.JSON {
			var val string
			if err := json.Unmarshal([]byte(text), &val); err == nil {
				text = val
			}
		}
		switch strings.ToLower(text) {
		case "exit", "quit", "/exit", "/quit":
			if stack.Config.Store.Driver != config.DriverMemory {
				say("Session '%s' saved. Resume with --session %s", ctrl.SessionID(), ctrl.SessionID())
			}
			say("Bye!")
			return nil
		}

		if _, err := ctrl.HandleInput(ctx, text); err != nil {
			if errors.Is(err, domain.ErrEmptyInput) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			stack.Logger.Debug("Input rejected", "err", err, "size", len(text))
			if opts.JSON {
				_ = json.NewEncoder(out).Encode(map[string]string{"error": err.Error()})
			} else {
				fmt.Fprintf(out, "Error: %v. Please try again.\n", err)
			}
		}
	}
}

type inputResult struct {
	text string
	err  error
}

// pump reads lines in the background so a blocked read never delays cancellation.
func pump(in io.Reader) <-chan inputResult {
	ch := make(chan inputResult)
	go func() {
		defer close(ch)
		reader := bufio.NewReader(in)
		for {
			text, err := reader.ReadString('\n')
			if text != "" {
				ch <- inputResult{text: text}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					ch <- inputResult{err: err}
				}
				return
			}
		}
	}()
	return ch
}
