/*
Package chefmate is a conversational recipe assistant built around a turn-taking dialogue controller.

A conversation alternates between the user and a recipe search service. Each utterance is classified
(search, pick a recipe, adapt it, follow-up, reset), executed against the current session state and
answered with render events that the host (terminal, HTTP, MCP agent) displays. Only one network turn
runs at a time; a reset always wins and the outcome of any turn it interrupted is marked stale.

# Key Features

  - Deterministic classification: the same utterance in the same state always yields the same intent.
  - Hexagonal Architecture: the controller only knows ports (Searcher, EventSink, SessionStore).
  - Session Persistence: conversations survive restarts in file or Redis stores, optionally encrypted.
  - Voice Input: a speech session state machine turns final transcripts into ordinary turns.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/chefmate"
		"github.com/aretw0/chefmate/pkg/domain"
		"github.com/aretw0/chefmate/pkg/ports"
	)

	func main() {
		print := ports.EventSinkFunc(func(_ context.Context, ev domain.Event) {
			fmt.Println(ev.Type, ev.Message)
		})

		assistant, err := chefmate.New(chefmate.WithSink(func(string) ports.EventSink { return print }))
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		chat, err := assistant.Start(ctx)
		if err != nil {
			log.Fatal(err)
		}

		for _, text := range []string{"chicken and rice", "recipe 1", "make it spicy"} {
			if _, err := chat.HandleInput(ctx, text); err != nil {
				log.Fatal(err)
			}
		}
	}
*/
package chefmate
