package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"revoice/internal/client"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var noProcess bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "add <source-url>",
		Short: "Add a video by source URL and start localizing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(api *client.Client) error {
				video, err := api.Add(cmd.Context(), args[0], !noProcess)
				if err != nil {
					if errors.Is(err, client.ErrConflict) {
						return fmt.Errorf("already added: %s", args[0])
					}
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, video)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Added %s\n", videoTitle(video))
				fmt.Fprintf(out, "  id: %s\n", video.ID)
				if noProcess {
					fmt.Fprintf(out, "Run `revoice process %s` to start localization\n", video.ID)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&noProcess, "no-process", false, "Add without starting the pipeline")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the created video as JSON")
	return cmd
}
