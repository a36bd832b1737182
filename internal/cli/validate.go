package cli

import (
	"github.com/spf13/cobra"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <network-path>",
		Short: "Build a network without running it and describe it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts, args)
			if err != nil {
				return err
			}
			return classify(a.Validate(cmd.Context()))
		},
	}
}
