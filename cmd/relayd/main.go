package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "relayd",
		Short: "Controller input relay daemon",
		Long: `Relayd forwards real-time controller input to a remote client
over TCP with a fixed binary protocol.

The pipeline normalizes raw input samples (deadzones, 120Hz rate
ceiling, change detection), serializes them into sequenced frames,
and transmits them to a single active client with drop-oldest
backpressure. A slow or absent client never stalls input capture.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}
