package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/maquette/internal/cli"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Browse the session archive",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived session IDs",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := sessionOptions(cmd, "")
		if err != nil {
			return err
		}
		return cli.ListSessions(opts)
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show [session-id]",
	Short: "Show one session's turn history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := sessionOptions(cmd, args[0])
		if err != nil {
			return err
		}
		return cli.ShowSession(opts)
	},
}

var sessionsRmCmd = &cobra.Command{
	Use:   "rm [session-id]",
	Short: "Remove one session from the archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := sessionOptions(cmd, args[0])
		if err != nil {
			return err
		}
		return cli.RemoveSession(opts)
	},
}

func sessionOptions(cmd *cobra.Command, id string) (cli.SessionOptions, error) {
	configPath, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")
	jsonOut, _ := cmd.Flags().GetBool("json")
	mermaid, _ := cmd.Flags().GetBool("timeline")

	return cli.SessionOptions{
		ConfigPath: configPath,
		ID:         id,
		JSON:       jsonOut,
		Timeline:   mermaid,
		Debug:      debug,
	}, nil
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsRmCmd)

	sessionsCmd.PersistentFlags().Bool("json", false, "Emit JSON")
	sessionsShowCmd.Flags().Bool("timeline", false, "Emit a Mermaid timeline of the turns")
}
