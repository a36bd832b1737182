package cli

import (
	"github.com/spf13/cobra"
)

// NewRunCommand creates the run command.
func NewRunCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <network-path>",
		Short: "Build and run a network until every actor has terminated",
		Long: `Load the network description (a file, or a directory of .hcl, .yaml and
.yml files), build it, run it and print a per-actor report.

Exit code 1 means an actor failed while running; exit code 2 means the
description could not be loaded or wired.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts, args)
			if err != nil {
				return err
			}
			_, err = a.Run(cmd.Context())
			return classify(err)
		},
	}

	cmd.Flags().IntVar(&opts.HealthcheckPort, "healthcheck-port", 0, "port of the /health and /status server, 0 disables it")
	cmd.Flags().StringVar(&opts.Telemetry, "telemetry", "", "default SQLite database of telemetry sinks")
	return cmd
}
