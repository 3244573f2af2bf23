package commands

import (
	"net/http"

	"github.com/spf13/cobra"
)

type peaksResponse struct {
	Peaks []float64 `json:"peaks"`
}

var peaksCmd = &cobra.Command{
	Use:   "peaks",
	Short: "Show the loudest block amplitudes seen",
	Long: `Show the loudest block amplitudes the listener has measured.

Clap a few times, then pick a threshold a little below the quietest
peak that was a real clap.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPeaks(cmd, http.MethodGet)
	},
}

var peaksResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the peak amplitudes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPeaks(cmd, http.MethodDelete)
	},
}

func init() {
	peaksCmd.AddCommand(peaksResetCmd)
}

func runPeaks(cmd *cobra.Command, method string) error {
	var resp peaksResponse
	if err := newClient().Do(cmd.Context(), method, "/api/peaks", nil, &resp); err != nil {
		return err
	}
	if outputJSON {
		return printJSON(cmd.OutOrStdout(), resp)
	}
	printFields(cmd.OutOrStdout(), "peaks", []field{
		{"amplitudes", formatAmplitudes(resp.Peaks)},
	})
	return nil
}
