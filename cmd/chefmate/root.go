package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/chefmate/internal/cli"
	"github.com/aretw0/chefmate/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "chefmate",
	Short: "ChefMate is a conversational recipe assistant",
	Long: `ChefMate finds recipes from the ingredients you have, shows them step by step
and adapts them (spicier, vegan, quicker) in a turn-by-turn conversation.

Run without a subcommand to start chatting in the terminal.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		applyFlags(cmd, &loaded)
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded

		debug, _ := cmd.Flags().GetBool("debug")
		logger, err = cli.NewLogger(cfg.Log, debug)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (default ./"+config.DefaultFile+" if present)")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-format", "", "Log format: text or json")
	flags.Bool("debug", false, "Shortcut for --log-level debug")
	flags.String("store", "", "Session store: memory, file or redis")
	flags.String("store-path", "", "Directory of the file session store")
	flags.String("redis-addr", "", "Address of the redis session store")
	flags.String("search-url", "", "Base URL of a remote recipe search service (default: built-in catalog)")
	flags.String("catalog-dir", "", "Directory with extra recipe YAML files for the built-in catalog")
}

// applyFlags layers explicitly set flags over file and environment settings.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	set := func(name string, dst *string) {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			*dst = f.Value.String()
		}
	}
	set("log-level", &c.Log.Level)
	set("log-format", &c.Log.Format)
	set("store", &c.Store.Driver)
	set("store-path", &c.Store.Path)
	set("redis-addr", &c.Store.Redis.Addr)
	set("search-url", &c.Search.URL)
	set("catalog-dir", &c.Catalog.Dir)
}

// newStack builds the backends for a command. Callers must Close it.
func newStack() (*cli.Stack, error) {
	stack, err := cli.NewStack(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return stack, nil
}
