package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth [api-key]",
		Short: "Cache and verify an API key",
		Long: `Caches the given API key after verifying it against the service.
Without an argument, prompts for a key unless one is already cached.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := ""
			if len(args) > 0 {
				key = args[0]
			}

			client, err := newClient()
			if err != nil {
				return err
			}
			if _, err := client.Auth(cmd.Context(), key); err != nil {
				return authHint(err)
			}
			fmt.Println("Authenticated.")
			return nil
		},
	}

	return cmd
}

func newClearAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear-auth",
		Short: "Remove the cached API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			return client.ClearAuth()
		},
	}

	return cmd
}
