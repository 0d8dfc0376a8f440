package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/chefmate/pkg/domain"
	"github.com/aretw0/chefmate/pkg/intent"
	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <utterance...>",
	Short: "Show how an utterance would be understood",
	Long: `Runs the intent classifier on an utterance without executing it.

With --session the stored conversation is taken into account, for example to
tell a follow-up about the open recipe from a new search.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		sessionID, _ := cmd.Flags().GetString("session")

		state := domain.NewSessionState()
		if sessionID != "" {
			stack, err := newStack()
			if err != nil {
				return err
			}
			defer stack.Close()

			session, err := stack.Store.Load(cmd.Context(), sessionID)
			if err != nil {
				return fmt.Errorf("loading session '%s': %w", sessionID, err)
			}
			state = &session.State
		}

		classifier := intent.New()
		logger.Debug("Classifying", "rules", classifier.Rules(), "session_id", sessionID)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(classifier.Classify(text, state))
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
	classifyCmd.Flags().String("session", "", "Classify against the state of this stored conversation")
}
