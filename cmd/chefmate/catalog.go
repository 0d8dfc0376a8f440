package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/chefmate/internal/cli"
	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the built-in recipe catalog",
}

var catalogLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List the recipes of the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cli.LoadCatalog(cfg.Catalog)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, r := range c.Recipes() {
			fmt.Fprintf(out, "%-28s %-32s %3d min  %s\n", r.ID, r.Title, r.Minutes, strings.Join(r.Tags, ","))
		}
		return nil
	},
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Check recipe files against the catalog schema",
	Long:  `Loads every recipe file of the directory (default: catalog.dir), validates it and prints the catalog fingerprint.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		catalogCfg := cfg.Catalog
		if len(args) > 0 {
			catalogCfg.Dir = args[0]
		}

		c, err := cli.LoadCatalog(catalogCfg)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Catalog is valid! ✅ %d recipes in %d files\n", c.Len(), len(c.Files()))
		fmt.Fprintf(out, "digest: %s\n", c.Digest())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogLsCmd)
	catalogCmd.AddCommand(catalogValidateCmd)
}
