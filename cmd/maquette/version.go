package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/maquette"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("maquette version %s\n", strings.TrimSpace(maquette.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
