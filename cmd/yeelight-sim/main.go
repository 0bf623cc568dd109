// Yeelight-sim is a software Yeelight bulb for protocol development and testing.
//
// It binds a TCP control endpoint speaking the bulb's line-oriented JSON
// command protocol and, unless disabled, answers multicast discovery searches
// so that 'yeelight-ctl scan' finds it like real hardware.
//
// Usage:
//
//	yeelight-sim run [flags]
//
// See 'yeelight-sim run --help' for available options.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muurk/yeelight/internal/emulator"
	"github.com/muurk/yeelight/internal/logging"
	"github.com/muurk/yeelight/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "yeelight-sim",
	Short: "Yeelight Bulb Emulator",
	Long: `A software Yeelight bulb for protocol development and testing.

The emulator speaks the same line-oriented JSON command protocol as real
bulbs, tracks power, brightness, and color state, pushes "props"
notifications to connected clients, and answers multicast discovery
searches.

Note: For controlling bulbs (real or emulated), use the separate
'yeelight-ctl' utility.`,
	Version: version.Version,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

// Run command and flags
var (
	host        string
	port        int
	deviceID    string
	model       string
	bulbName    string
	noMulticast bool
	logLevel    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the emulated bulb",
	Long: `Start an emulated bulb and keep it running until interrupted.

By default the bulb binds 127.0.0.1 on an ephemeral port and answers
discovery searches on the well-known multicast group. The bound address is
logged on startup.`,
	Example: `  # Start on an ephemeral port with discovery enabled
  yeelight-sim run

  # Fixed port, visible on the LAN
  yeelight-sim run --host 0.0.0.0 --port 55443

  # Control endpoint only, no discovery responder
  yeelight-sim run --no-multicast --log-level debug`,
	RunE: runEmulator,
}

func init() {
	runCmd.Flags().StringVar(&host, "host", "127.0.0.1", "Listen address for the control endpoint")
	runCmd.Flags().IntVar(&port, "port", 0, "Control port (0 = ephemeral)")
	runCmd.Flags().StringVar(&deviceID, "id", "", "Device identifier advertised in discovery replies")
	runCmd.Flags().StringVar(&model, "model", "color", "Device model advertised in discovery replies")
	runCmd.Flags().StringVar(&bulbName, "name", "", "Bulb name property")
	runCmd.Flags().BoolVar(&noMulticast, "no-multicast", false, "Disable the discovery responder")
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func runEmulator(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Sync()

	bulb := emulator.New(emulator.Config{
		Host:      host,
		Port:      port,
		ID:        deviceID,
		Model:     model,
		Name:      bulbName,
		Multicast: !noMulticast,
	})

	if err := bulb.Start(); err != nil {
		return fmt.Errorf("failed to start emulator: %w", err)
	}

	fmt.Printf("Emulated bulb listening on %s\n", bulb.Addr())
	if !noMulticast {
		fmt.Println("Answering discovery searches on 239.255.255.250:1982")
	}
	fmt.Println("Press Ctrl-C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nShutting down...")
	bulb.Stop()
	return nil
}

// Version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("yeelight-sim %s (commit: %s)\n", version.Version, version.Commit)
	},
}
