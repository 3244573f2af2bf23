package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-clap/internal/config"
	"github.com/teslashibe/go-clap/internal/httpc"
)

var (
	serverURL  string
	outputJSON bool
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "clapctl",
	Short: "Control a running clapd",
	Long: `clapctl talks to the clapd control API.

It reads and changes the detection threshold, pauses and resumes the
listener, and streams clap events as they happen.

Examples:
  clapctl status
  clapctl threshold set 1500
  clapctl watch --json | jq .`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", config.Server(), "clapd base URL (env CLAP_SERVER)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output as JSON (for piping)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", httpc.DefaultTimeout, "request timeout")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(thresholdCmd)
	rootCmd.AddCommand(peaksCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(watchCmd)
}

func newClient() *httpc.Client {
	return httpc.New(serverURL, timeout)
}

// printJSON writes v indented, one document per call.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// wsURL maps an http(s) base URL to the event stream endpoint.
func wsURL(base string) (string, error) {
	base = strings.TrimRight(base, "/")
	switch {
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://") + "/ws/events", nil
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://") + "/ws/events", nil
	case strings.HasPrefix(base, "ws://"), strings.HasPrefix(base, "wss://"):
		return base + "/ws/events", nil
	case base == "":
		return "", fmt.Errorf("server URL is empty")
	default:
		return "ws://" + base + "/ws/events", nil
	}
}
