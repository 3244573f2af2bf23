package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-clap/pkg/protocol"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show listener status and counters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var st protocol.StatusData
		if err := newClient().Get(cmd.Context(), "/api/status", &st); err != nil {
			return err
		}
		if outputJSON {
			return printJSON(cmd.OutOrStdout(), st)
		}
		printStatus(cmd.OutOrStdout(), st)
		return nil
	},
}

func printStatus(w io.Writer, st protocol.StatusData) {
	state := okStyle.Render("listening")
	if st.Paused {
		state = warnStyle.Render("paused")
	}
	printFields(w, "clapd "+state, []field{
		{"backend", st.Backend},
		{"threshold", fmt.Sprintf("%.0f", st.Threshold)},
		{"sequence", fmt.Sprintf("%d of %d claps", st.Sequence.ClapCount, st.RequiredClaps)},
		{"interval", fmt.Sprintf("%v to %v",
			time.Duration(st.MinIntervalMs)*time.Millisecond,
			time.Duration(st.MaxIntervalMs)*time.Millisecond)},
		{"peaks", formatAmplitudes(st.Peaks)},
		{"last level", fmt.Sprintf("%.0f", st.Stats.LastAmplitude)},
		{"blocks", fmt.Sprintf("%d (%d empty, %d paused)", st.Stats.Blocks, st.Stats.EmptyBlocks, st.Stats.PausedBlocks)},
		{"claps", fmt.Sprint(st.Stats.Claps)},
		{"sequences", fmt.Sprint(st.Stats.Sequences)},
		{"resets", fmt.Sprint(st.Stats.Resets)},
		{"clients", fmt.Sprint(st.Clients)},
	})
}
