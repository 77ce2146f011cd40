package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/framesync"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of framesync",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "framesync version %s\n", strings.TrimSpace(framesync.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
