// Yeelight-ctl is a control utility for Yeelight smart bulbs.
//
// It discovers bulbs on the local network via multicast search and issues
// typed control commands (power, brightness, color temperature, RGB, HSV,
// toggle) over each bulb's LAN control connection. Bulbs must have
// "LAN Control" enabled in the Yeelight app.
//
// Usage:
//
//	yeelight-ctl [command] [flags]
//
// See 'yeelight-ctl --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/yeelight/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "yeelight-ctl",
	Short: "Yeelight LAN Control Utility",
	Long: `A standalone utility for controlling Yeelight smart bulbs over the LAN.

Provides multicast bulb discovery and direct control commands for power,
brightness, color temperature, RGB, and HSV, with optional smooth
transitions.

Bulbs must have "LAN Control" enabled in the Yeelight app.`,
	Version: version.Version,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("yeelight-ctl %s (commit: %s)\n", version.Version, version.Commit)
	},
}
