package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"revoice/internal/api"
	"revoice/internal/client"
	"revoice/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon health, library counts, and stage readiness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := ctx.dialClient()
			if err != nil {
				return err
			}

			status, err := apiClient.Status(cmd.Context())
			if errors.Is(err, client.ErrDaemonUnavailable) {
				if jsonOutput {
					return writeJSON(cmd, api.DaemonStatus{Running: false})
				}
				return renderOfflineStatus(cmd, ctx)
			}
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, status)
			}
			renderDaemonStatus(cmd, status)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit status as JSON")
	return cmd
}

func renderDaemonStatus(cmd *cobra.Command, status api.DaemonStatus) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Running", statusOK, fmt.Sprintf("pid %d", status.PID), colorize))
	fmt.Fprintln(out, renderStatusLine("In flight", statusInfo, fmt.Sprintf("%d stage(s)", status.InFlight), colorize))
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Library", colorize) {
		fmt.Fprintln(out, line)
	}
	stats := status.Stats
	fmt.Fprintln(out, renderTable(
		[]string{"TOTAL", "QUEUED", "RUNNING", "FAILED", "LOCALIZED"},
		[][]string{{
			fmt.Sprint(stats.Total),
			fmt.Sprint(stats.Idle),
			fmt.Sprint(stats.Running),
			fmt.Sprint(stats.Failed),
			fmt.Sprint(stats.Localized),
		}},
		1, 2, 3, 4, 5,
	))

	if len(status.StageHealth) == 0 {
		return
	}
	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Stage readiness", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, health := range status.StageHealth {
		kind := statusOK
		message := ""
		if !health.Ready {
			kind = statusError
			message = health.Detail
		}
		fmt.Fprintln(out, renderStatusLine(health.Name, kind, message, colorize))
	}
}

// renderOfflineStatus runs local preflight checks so `revoice status` stays
// useful when the daemon is down.
func renderOfflineStatus(cmd *cobra.Command, ctx *commandContext) error {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Running", statusError, "daemon unreachable; start it with `revoiced`", colorize))
	fmt.Fprintln(out)

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	for _, line := range renderSectionHeader("Local checks", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, result := range preflight.RunAll(cmd.Context(), cfg) {
		kind := statusOK
		message := ""
		if !result.Passed {
			kind = statusError
			message = result.Detail
		}
		fmt.Fprintln(out, renderStatusLine(result.Name, kind, message, colorize))
	}
	return nil
}
