package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

type pauseResponse struct {
	Paused bool `json:"paused"`
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Stop detecting claps until resumed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return setPaused(cmd, "/api/pause")
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume detection with a fresh sequence",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return setPaused(cmd, "/api/resume")
	},
}

func setPaused(cmd *cobra.Command, path string) error {
	var resp pauseResponse
	if err := newClient().Post(cmd.Context(), path, nil, &resp); err != nil {
		return err
	}
	if outputJSON {
		return printJSON(cmd.OutOrStdout(), resp)
	}
	if resp.Paused {
		fmt.Fprintln(cmd.OutOrStdout(), warnStyle.Render("paused"))
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("listening"))
	}
	return nil
}
