package main

import (
	"os"

	"github.com/aretw0/chefmate"
	"github.com/aretw0/chefmate/internal/cli"
	"github.com/aretw0/chefmate/internal/presentation/tui"
	"github.com/spf13/cobra"
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant in the terminal",
	Long: `Starts an interactive conversation. Type ingredients to find recipes, a number
to open one, "make it vegan" (or spicy, quick) to adapt it and "start over" to reset.

With --session the conversation is kept in the configured store and can be resumed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		fresh, _ := cmd.Flags().GetBool("fresh")
		jsonMode, _ := cmd.Flags().GetBool("json")

		stack, err := newStack()
		if err != nil {
			return err
		}
		defer stack.Close()

		opts := cli.ChatOptions{
			SessionID: sessionID,
			Fresh:     fresh,
			JSON:      jsonMode,
		}
		if !jsonMode {
			tui.PrintBanner(os.Stdout, chefmate.Version)
			opts.Markdown = tui.NewRenderer()
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		err = cli.RunChat(ctx, stack, opts, os.Stdin, os.Stdout)
		if sig := ctx.Signal(); sig != nil {
			logger.Debug("Chat interrupted", "signal", sig)
		}
		return cli.HandleExecutionError(err)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().String("session", "", "Resume or create the conversation with this ID")
	chatCmd.Flags().Bool("fresh", false, "Discard the stored conversation before starting (requires --session)")
	chatCmd.Flags().Bool("json", false, "Read utterances line by line and write events as JSON lines")

	// Chatting is what a bare `chefmate` does.
	rootCmd.Flags().AddFlagSet(chatCmd.Flags())
	rootCmd.RunE = chatCmd.RunE
}
