package cmd

import (
	"github.com/spf13/cobra"
)

func newGetCmd() *cobra.Command {
	var skip int
	var take int
	var asc bool

	cmd := &cobra.Command{
		Use:   "get [query]",
		Short: "List your captures, optionally filtered by title",
		Example: `  # Most recent captures
  luma get

  # Search by title, oldest first
  luma get "backyard" --asc

  # Second page of 25
  luma get --skip 25 --take 25`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) > 0 {
				query = args[0]
			}

			client, err := newClient()
			if err != nil {
				return err
			}
			captures, err := client.List(cmd.Context(), query, skip, take, !asc)
			if err != nil {
				return authHint(err)
			}
			return printYAML(captures)
		},
	}

	cmd.Flags().IntVar(&skip, "skip", 0, "Starting capture index")
	cmd.Flags().IntVar(&take, "take", 50, "Number of captures to return")
	cmd.Flags().BoolVar(&asc, "asc", false, "Sort oldest first instead of newest first")

	return cmd
}
