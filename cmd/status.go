package cmd

import (
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "status <slug>",
		Short:   "Check the status of a submitted capture",
		Example: "  luma status thoughtful-otter-1234",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			info, err := client.Status(cmd.Context(), args[0])
			if err != nil {
				return authHint(err)
			}
			return printYAML(info)
		},
	}

	return cmd
}
