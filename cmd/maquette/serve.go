package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/maquette/internal/cli"
)

var serveCmd = &cobra.Command{
	Use:   "serve [host-command] [host-args...]",
	Short: "Start the host bridge",
	Long: `Starts the HTTP bridge that agents execute scripts through. With --sim the
bridge wraps the built-in scene simulator; otherwise the given host command is
spawned per script.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		debug, _ := cmd.Flags().GetBool("debug")
		port, _ := cmd.Flags().GetInt("port")
		sim, _ := cmd.Flags().GetBool("sim")
		metrics, _ := cmd.Flags().GetBool("metrics")

		opts := cli.ServeOptions{
			ConfigPath: configPath,
			Port:       port,
			Sim:        sim,
			Metrics:    metrics,
			Debug:      debug,
		}
		if len(args) > 0 {
			opts.HostCmd = args[0]
			opts.HostArgs = args[1:]
		}

		if err := cli.RunServe(opts); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8081, "Port to listen on")
	serveCmd.Flags().Bool("sim", false, "Serve the built-in scene simulator")
	serveCmd.Flags().Bool("metrics", false, "Expose Prometheus metrics on /metrics")
}
