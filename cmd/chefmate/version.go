package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/chefmate"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of chefmate",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "chefmate version %s\n", strings.TrimSpace(chefmate.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
