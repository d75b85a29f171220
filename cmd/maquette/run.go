package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/maquette/internal/cli"
)

var runCmd = &cobra.Command{
	Use:   "run [instruction]",
	Short: "Run one instruction against the host",
	Long: `Opens a session for the instruction and drives it to completion: the planner
generates scripts, the host executes them, and failed turns feed the next
attempt. The terminal session is printed when the loop ends.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		debug, _ := cmd.Flags().GetBool("debug")
		quiet, _ := cmd.Flags().GetBool("quiet")

		err := cli.RunInstruction(cli.RunOptions{
			ConfigPath:  configPath,
			Instruction: strings.Join(args, " "),
			Quiet:       quiet,
			Debug:       debug,
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolP("quiet", "q", false, "Print only the session ID")
}
