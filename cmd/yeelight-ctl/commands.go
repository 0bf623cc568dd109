package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/yeelight/internal/config"
	"github.com/muurk/yeelight/internal/control"
	"github.com/muurk/yeelight/internal/discovery"
	"github.com/muurk/yeelight/internal/logging"
	"github.com/muurk/yeelight/internal/protocol"
	"github.com/muurk/yeelight/internal/ui"
)

// Command flags
var (
	deviceAddr  string
	bulbName    string
	scanTimeout int
	cmdTimeout  int
	effectMode  string
	durationMS  int
)

func init() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Flags are parsed by now; remaining failures are runtime errors,
		// not usage errors
		cmd.SilenceUsage = true
		return logging.InitializeFromEnv()
	}

	// Common flags for bulb commands (persistent on root)
	rootCmd.PersistentFlags().StringVar(&deviceAddr, "device", "", "Bulb address as host:port (skips discovery)")
	rootCmd.PersistentFlags().StringVar(&bulbName, "name", "", "Bulb nickname from the local registry")
	rootCmd.PersistentFlags().IntVar(&scanTimeout, "scan-timeout", 0, "Discovery timeout in seconds (0 = config default)")
	rootCmd.PersistentFlags().IntVar(&cmdTimeout, "timeout", 0, "Command reply timeout in seconds (0 = config default)")
	rootCmd.PersistentFlags().StringVar(&effectMode, "effect", "smooth", "Transition effect (sudden, smooth)")
	rootCmd.PersistentFlags().IntVar(&durationMS, "duration", 400, "Smooth transition duration in milliseconds")

	// Add subcommands directly to root
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(onCmd)
	rootCmd.AddCommand(offCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(brightCmd)
	rootCmd.AddCommand(ctCmd)
	rootCmd.AddCommand(rgbCmd)
	rootCmd.AddCommand(hsvCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(nicknameCmd)
}

// scanCmd discovers bulbs on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for Yeelight bulbs on the network",
	Long: `Scan for Yeelight bulbs using multicast search-and-reply discovery.

This command sends a search request to the well-known multicast group and
displays every bulb that answers within the timeout window.`,
	Example: `  # Scan with the default timeout
  yeelight-ctl scan

  # Longer scan for slow networks
  yeelight-ctl scan --scan-timeout 10`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	timeout := discoverTimeout()

	fmt.Printf("Scanning for Yeelight bulbs (timeout: %v)...\n\n", timeout)

	devices, err := discovery.Discover(timeout)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(devices) == 0 {
		fmt.Println("No bulbs found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Enable \"LAN Control\" for each bulb in the Yeelight app")
		fmt.Println("  - Verify your computer is on the same network as the bulbs")
		fmt.Println("  - Check that your network allows multicast (some APs filter it)")
		fmt.Println("  - Try increasing --scan-timeout for slower networks")
		fmt.Println("  - Use --device host:port to skip discovery entirely")
		return nil
	}

	fmt.Print(ui.RenderDeviceTable(devices))
	fmt.Println()

	rememberDevices(devices)

	fmt.Println("Use 'yeelight-ctl toggle --device <host:port>' to control a bulb")
	return nil
}

// onCmd switches a bulb on
var onCmd = &cobra.Command{
	Use:   "on",
	Short: "Switch the bulb on",
	Example: `  yeelight-ctl on --device 192.168.1.239:55443
  yeelight-ctl on --name desk --effect sudden`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLight(func(ctx context.Context, light *control.Light) error {
			effect, err := transitionEffect()
			if err != nil {
				return err
			}
			return light.SetPower(ctx, true, effect)
		}, "Bulb switched on")
	},
}

// offCmd switches a bulb off
var offCmd = &cobra.Command{
	Use:     "off",
	Short:   "Switch the bulb off",
	Example: `  yeelight-ctl off --device 192.168.1.239:55443`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLight(func(ctx context.Context, light *control.Light) error {
			effect, err := transitionEffect()
			if err != nil {
				return err
			}
			return light.SetPower(ctx, false, effect)
		}, "Bulb switched off")
	},
}

// toggleCmd flips a bulb's power state
var toggleCmd = &cobra.Command{
	Use:     "toggle",
	Short:   "Toggle the bulb's power state",
	Example: `  yeelight-ctl toggle --device 192.168.1.239:55443`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLight(func(ctx context.Context, light *control.Light) error {
			return light.Toggle(ctx)
		}, "Bulb toggled")
	},
}

// brightCmd sets brightness
var brightCmd = &cobra.Command{
	Use:   "bright <level>",
	Short: "Set brightness (1-100)",
	Example: `  yeelight-ctl bright 75 --device 192.168.1.239:55443
  yeelight-ctl bright 10 --name desk --duration 2000`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid brightness value: %w", err)
		}
		return withLight(func(ctx context.Context, light *control.Light) error {
			effect, err := transitionEffect()
			if err != nil {
				return err
			}
			return light.SetBright(ctx, level, effect)
		}, fmt.Sprintf("Brightness set to %d%%", level))
	},
}

// ctCmd sets white color temperature
var ctCmd = &cobra.Command{
	Use:     "ct <kelvin>",
	Short:   "Set white color temperature (1700-6500K)",
	Example: `  yeelight-ctl ct 3500 --device 192.168.1.239:55443`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kelvin, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid color temperature value: %w", err)
		}
		return withLight(func(ctx context.Context, light *control.Light) error {
			effect, err := transitionEffect()
			if err != nil {
				return err
			}
			return light.SetColorTemp(ctx, kelvin, effect)
		}, fmt.Sprintf("Color temperature set to %dK", kelvin))
	},
}

// rgbCmd sets color from a hex value or three components
var rgbCmd = &cobra.Command{
	Use:   "rgb <rrggbb | r g b>",
	Short: "Set color from RGB",
	Long: `Set the bulb color from an RGB value.

Accepts either a single hex value (with or without a leading #) or three
decimal components in 0-255.`,
	Example: `  yeelight-ctl rgb ff0000 --device 192.168.1.239:55443
  yeelight-ctl rgb 255 128 0 --name desk`,
	Args: cobra.RangeArgs(1, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := parseRGBArgs(args)
		if err != nil {
			return err
		}
		return withLight(func(ctx context.Context, light *control.Light) error {
			effect, err := transitionEffect()
			if err != nil {
				return err
			}
			return light.SetRGB(ctx, value, effect)
		}, fmt.Sprintf("Color set to #%06X", value))
	},
}

// hsvCmd sets color from hue and saturation
var hsvCmd = &cobra.Command{
	Use:     "hsv <hue> <sat>",
	Short:   "Set color from hue (0-359) and saturation (0-100)",
	Example: `  yeelight-ctl hsv 180 60 --device 192.168.1.239:55443`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		hue, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid hue value: %w", err)
		}
		sat, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid saturation value: %w", err)
		}
		return withLight(func(ctx context.Context, light *control.Light) error {
			effect, err := transitionEffect()
			if err != nil {
				return err
			}
			return light.SetHSV(ctx, hue, sat, effect)
		}, fmt.Sprintf("Color set to hue %d, saturation %d", hue, sat))
	},
}

// watchCmd streams device notifications
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a bulb's state change notifications",
	Long: `Connect to a bulb and print every unsolicited notification it pushes.

Bulbs push "props" notifications whenever their state changes, including
changes made by other controllers. Press Ctrl-C to stop.`,
	Example: `  yeelight-ctl watch --device 192.168.1.239:55443`,
	RunE:    runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	light, cleanup, err := connectTarget(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Println("Watching for notifications (Ctrl-C to stop)...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case n, ok := <-light.Notifications():
			if !ok {
				return fmt.Errorf("connection lost: %w", light.Err())
			}
			fmt.Printf("%s  %s %v\n", time.Now().Format("15:04:05"), n.Method, n.Params)
		case <-sigChan:
			fmt.Println()
			return nil
		}
	}
}

// nicknameCmd assigns a registry nickname to a bulb
var nicknameCmd = &cobra.Command{
	Use:   "nickname <device-id> <name>",
	Short: "Assign a nickname to a bulb",
	Long: `Assign a nickname to a bulb in the local registry.

Nicknamed bulbs can be targeted with --name instead of --device, using the
address remembered from the last scan.`,
	Example: `  yeelight-ctl nickname 0x000000000015243f desk
  yeelight-ctl toggle --name desk`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := config.LoadRegistry()
		if err != nil {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		registry.SetBulbNickname(args[0], args[1])
		if err := registry.Save(); err != nil {
			return fmt.Errorf("failed to save registry: %w", err)
		}
		fmt.Println(ui.RenderSuccess(fmt.Sprintf("Bulb %s nicknamed %q", args[0], args[1])))
		return nil
	},
}

// withLight connects to the target bulb, runs one operation, and prints a
// styled result line.
func withLight(op func(context.Context, *control.Light) error, successMsg string) error {
	ctx := context.Background()

	light, cleanup, err := connectTarget(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := op(ctx, light); err != nil {
		fmt.Println(ui.RenderError("Command failed", err))
		return err
	}

	fmt.Println(ui.RenderSuccess(successMsg))
	return nil
}

// connectTarget resolves the target bulb (flag, nickname, or scan) and opens
// a handle to it.
func connectTarget(ctx context.Context) (*control.Light, func(), error) {
	addr := deviceAddr

	if addr == "" && bulbName != "" {
		registry, err := config.LoadRegistry()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load registry: %w", err)
		}
		_, bulb := registry.ResolveNickname(bulbName)
		if bulb == nil || bulb.LastAddress == "" {
			return nil, nil, fmt.Errorf("no known address for bulb %q (run 'yeelight-ctl scan' first)", bulbName)
		}
		addr = bulb.LastAddress
	}

	if addr == "" {
		timeout := discoverTimeout()
		fmt.Printf("No --device given, scanning (timeout: %v)...\n", timeout)

		devices, err := discovery.Discover(timeout)
		if err != nil {
			return nil, nil, fmt.Errorf("scan failed: %w", err)
		}
		if len(devices) == 0 {
			return nil, nil, fmt.Errorf("no bulbs found (use --device host:port or enable LAN Control)")
		}
		rememberDevices(devices)

		if len(devices) > 1 {
			fmt.Printf("Found %d bulbs, using %s\n", len(devices), devices[0].Address())
		}
		addr = devices[0].Address()
	}

	light, err := control.ConnectAddr(ctx, addr)
	if err != nil {
		return nil, nil, err
	}

	if t := commandTimeout(); t > 0 {
		light.SetTimeout(t)
	}

	return light, func() { _ = light.Close() }, nil
}

// transitionEffect builds the transition from the --effect/--duration flags
func transitionEffect() (protocol.Effect, error) {
	switch effectMode {
	case "sudden":
		return protocol.Sudden(), nil
	case "smooth":
		return protocol.Smooth(time.Duration(durationMS) * time.Millisecond)
	default:
		return protocol.Effect{}, fmt.Errorf("unknown effect %q (use sudden or smooth)", effectMode)
	}
}

// discoverTimeout resolves the scan window from flags, then config, then
// the built-in default
func discoverTimeout() time.Duration {
	if scanTimeout > 0 {
		return time.Duration(scanTimeout) * time.Second
	}
	if registry, err := config.LoadRegistry(); err == nil && registry.Preferences != nil && registry.Preferences.DiscoverTimeout > 0 {
		return time.Duration(registry.Preferences.DiscoverTimeout) * time.Second
	}
	return discovery.DefaultScanTimeout
}

// commandTimeout resolves the reply deadline from flags then config;
// 0 keeps the channel default
func commandTimeout() time.Duration {
	if cmdTimeout > 0 {
		return time.Duration(cmdTimeout) * time.Second
	}
	if registry, err := config.LoadRegistry(); err == nil && registry.Preferences != nil && registry.Preferences.CommandTimeout > 0 {
		return time.Duration(registry.Preferences.CommandTimeout) * time.Second
	}
	return 0
}

// rememberDevices records scan results in the registry (best effort)
func rememberDevices(devices []*discovery.Device) {
	registry, err := config.LoadRegistry()
	if err != nil {
		return
	}
	for _, device := range devices {
		registry.UpdateBulbLastSeen(device.ID, device.Address(), device.Model())
	}
	_ = registry.Save()
}

// parseRGBArgs accepts "rrggbb" hex or three decimal components
func parseRGBArgs(args []string) (int, error) {
	if len(args) == 1 {
		hex := strings.TrimPrefix(strings.TrimPrefix(args[0], "#"), "0x")
		value, err := strconv.ParseInt(hex, 16, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid RGB hex value %q: %w", args[0], err)
		}
		return int(value), nil
	}
	if len(args) != 3 {
		return 0, fmt.Errorf("rgb takes one hex value or three components")
	}

	var components [3]uint8
	for i, arg := range args {
		v, err := strconv.Atoi(arg)
		if err != nil || v < 0 || v > 255 {
			return 0, fmt.Errorf("invalid RGB component %q (0-255)", arg)
		}
		components[i] = uint8(v)
	}
	return protocol.RGB(components[0], components[1], components[2]), nil
}
