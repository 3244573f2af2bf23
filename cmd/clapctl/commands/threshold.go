package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-clap/pkg/clap"
	"github.com/teslashibe/go-clap/pkg/protocol"
)

var thresholdCmd = &cobra.Command{
	Use:   "threshold",
	Short: "Read or change the detection threshold",
}

var thresholdGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the current threshold",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var th protocol.ThresholdData
		if err := newClient().Get(cmd.Context(), "/api/threshold", &th); err != nil {
			return err
		}
		return printThreshold(cmd, th)
	},
}

var thresholdSetCmd = &cobra.Command{
	Use:   "set <value>",
	Short: "Change the threshold on the running listener",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := parseThreshold(args[0])
		if err != nil {
			return err
		}
		var th protocol.ThresholdData
		if err := newClient().Put(cmd.Context(), "/api/threshold", protocol.ThresholdData{Value: v}, &th); err != nil {
			return err
		}
		return printThreshold(cmd, th)
	},
}

func init() {
	thresholdCmd.AddCommand(thresholdGetCmd)
	thresholdCmd.AddCommand(thresholdSetCmd)
}

// parseThreshold checks the value locally so obvious mistakes never reach
// the server.
func parseThreshold(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("threshold %q is not a number", s)
	}
	if err := clap.ValidateThreshold(v); err != nil {
		return 0, err
	}
	return v, nil
}

func printThreshold(cmd *cobra.Command, th protocol.ThresholdData) error {
	if outputJSON {
		return printJSON(cmd.OutOrStdout(), th)
	}
	printFields(cmd.OutOrStdout(), "threshold", []field{
		{"value", fmt.Sprintf("%.0f", th.Value)},
	})
	return nil
}
