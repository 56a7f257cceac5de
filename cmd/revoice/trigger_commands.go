package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"revoice/internal/api"
	"revoice/internal/client"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "process <video-id>",
		Short: "Start or continue localizing a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(apiClient *client.Client) error {
				trigger, err := apiClient.Process(cmd.Context(), args[0])
				if err != nil {
					return describeTriggerError(err, args[0])
				}
				printTrigger(cmd, trigger, "Nothing to do; all reachable stages are finished or already running.")
				return nil
			})
		},
	}
}

func newReprocessCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reprocess <video-id>",
		Short: "Discard all stage results and localize from scratch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("reprocess clears every completed stage; re-run with --yes to confirm")
			}
			return ctx.withClient(func(apiClient *client.Client) error {
				trigger, err := apiClient.Reprocess(cmd.Context(), args[0])
				if err != nil {
					return describeTriggerError(err, args[0])
				}
				printTrigger(cmd, trigger, "Pipeline reset; no stage could be dispatched.")
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm discarding existing results")
	return cmd
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <video-id> <stage>",
		Short: "Retry a failed stage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(apiClient *client.Client) error {
				trigger, err := apiClient.Retry(cmd.Context(), args[0], args[1])
				if err != nil {
					if errors.Is(err, client.ErrConflict) {
						return fmt.Errorf("stage %s is not in a retryable state (only failed stages can be retried)", args[1])
					}
					return describeTriggerError(err, args[0])
				}
				printTrigger(cmd, trigger, "Stage reset; waiting on its dependencies.")
				return nil
			})
		},
	}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <video-id>",
		Aliases: []string{"remove", "rm"},
		Short:   "Delete a video and its stage results",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(apiClient *client.Client) error {
				if err := apiClient.Delete(cmd.Context(), args[0]); err != nil {
					return describeTriggerError(err, args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func printTrigger(cmd *cobra.Command, trigger api.TriggerResponse, idleMessage string) {
	out := cmd.OutOrStdout()
	if len(trigger.Dispatched) == 0 {
		fmt.Fprintln(out, idleMessage)
		return
	}
	fmt.Fprintf(out, "Dispatched: %s\n", strings.Join(trigger.Dispatched, ", "))
}

func describeTriggerError(err error, id string) error {
	switch {
	case errors.Is(err, client.ErrNotFound):
		return fmt.Errorf("no video with id %s", id)
	case errors.Is(err, client.ErrConflict):
		return fmt.Errorf("video %s is busy: %w", id, err)
	default:
		return err
	}
}
