// ABOUTME: CLI command printing the build version.
// ABOUTME: Needs no config or storage.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "littlelemon %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
