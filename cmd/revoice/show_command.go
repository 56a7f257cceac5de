package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"revoice/internal/api"
	"revoice/internal/client"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <video-id>",
		Short: "Show one video with per-stage detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(apiClient *client.Client) error {
				video, err := apiClient.Get(cmd.Context(), args[0])
				if err != nil {
					if errors.Is(err, client.ErrNotFound) {
						return fmt.Errorf("no video with id %s", args[0])
					}
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, video)
				}
				renderVideoDetail(cmd, video)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the video as JSON")
	return cmd
}

func renderVideoDetail(cmd *cobra.Command, video api.Video) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader(videoTitle(video), colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintf(out, "%sid:        %s\n", statusIndent, video.ID)
	fmt.Fprintf(out, "%ssource:    %s\n", statusIndent, video.SourceURL)
	if video.DurationSeconds > 0 {
		fmt.Fprintf(out, "%slength:    %s\n", statusIndent, formatDuration(video.DurationSeconds))
	}
	fmt.Fprintf(out, "%slocalized: %s\n", statusIndent, yesNo(video.Localized))
	if desc := strings.TrimSpace(video.Description); desc != "" {
		fmt.Fprintf(out, "%sabout:     %s\n", statusIndent, desc)
	}
	fmt.Fprintln(out)

	rows := make([][]string, 0, len(video.Stages))
	for _, st := range video.Stages {
		detail := ""
		if st.ErrorMessage != "" {
			detail = st.ErrorMessage
			if st.ErrorKind != "" {
				detail = fmt.Sprintf("[%s] %s", st.ErrorKind, st.ErrorMessage)
			}
		}
		rows = append(rows, []string{
			st.Name,
			st.Status,
			formatWhen(st.UpdatedAt),
			detail,
		})
	}
	fmt.Fprintln(out, renderTable([]string{"STAGE", "STATUS", "UPDATED", "DETAIL"}, rows))
}
