package cmd

import (
	"fmt"

	"github.com/lumalabs/luma-go/internal/luma"
	"github.com/spf13/cobra"
)

func newSubmitCmd() *cobra.Command {
	var camModel string

	cmd := &cobra.Command{
		Use:   "submit <path> <title>",
		Short: "Submit media for 3D reconstruction",
		Long: `Submits a video, a zip of images, or a directory of images for
processing. Directories are zipped before upload. Prints the capture
slug; use "luma status <slug>" to follow processing.`,
		Example: `  # Submit a video
  luma submit backyard.mp4 "Backyard"

  # Submit a directory of fisheye stills
  luma submit ./frames "Garage scan" --cam-model fisheye`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cam, ok := luma.ParseCameraType(camModel)
			if !ok {
				return fmt.Errorf("unknown camera model %q (want normal, fisheye, or equirectangular)", camModel)
			}

			client, err := newClient()
			if err != nil {
				return err
			}
			slug, err := client.Submit(cmd.Context(), args[0], args[1], cam)
			if err != nil {
				return authHint(err)
			}
			fmt.Println(slug)
			return nil
		},
	}

	cmd.Flags().StringVar(&camModel, "cam-model", "normal", "Camera model: normal, fisheye, or equirectangular")

	return cmd
}
