// Package main provides clapctl, the command line client for clapd.
//
// Usage:
//
//	clapctl [flags] <command> [args]
//
// Commands:
//
//	status           - Listener status and counters
//	threshold get    - Show the detection threshold
//	threshold set N  - Change the detection threshold
//	peaks            - Loudest block amplitudes seen
//	peaks reset      - Clear the peak amplitudes
//	pause / resume   - Suspend or resume detection
//	watch            - Stream live clap events
//
// The server defaults to $CLAP_SERVER or http://localhost:8080.
package main

import (
	"fmt"
	"os"

	"github.com/teslashibe/go-clap/cmd/clapctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
