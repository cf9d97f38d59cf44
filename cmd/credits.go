package cmd

import (
	"github.com/spf13/cobra"
)

func newCreditsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credits",
		Short: "Show your remaining processing credits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			info, err := client.Credits(cmd.Context())
			if err != nil {
				return authHint(err)
			}
			return printYAML(info)
		},
	}

	return cmd
}
