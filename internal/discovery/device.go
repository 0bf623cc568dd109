package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Well-known property names advertised in discovery replies and carried in
// "props" notifications.
const (
	PropPower     = "power"
	PropBright    = "bright"
	PropColorMode = "color_mode"
	PropCT        = "ct"
	PropRGB       = "rgb"
	PropHue       = "hue"
	PropSat       = "sat"
	PropName      = "name"
	PropModel     = "model"
	PropFWVer     = "fw_ver"
)

// Device describes one discovered Yeelight bulb, built from a single
// discovery reply. It is a snapshot: the property values reflect the bulb's
// state at discovery time and are not refreshed. A Device is never mutated
// once built; re-discovery produces a fresh descriptor.
type Device struct {
	// ID is the bulb's unique identifier token (e.g., "0x000000000015243f")
	ID string

	// Host is the bulb's IP address, taken from the Location header
	Host string

	// Port is the TCP control port, taken from the Location header
	Port int

	// Support lists the control methods the bulb's firmware implements
	Support []string

	// Properties maps advertised property names to their values at
	// discovery time (e.g., "power" -> "on", "bright" -> "100")
	Properties map[string]string

	// DiscoveredAt is when the reply was received
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the device
func (d *Device) String() string {
	return fmt.Sprintf("Yeelight %s (%s) at %s", d.ID, d.Model(), d.Address())
}

// Address returns the host:port of the bulb's control connection
func (d *Device) Address() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

// Supports reports whether the bulb advertised support for the given method
func (d *Device) Supports(method string) bool {
	for _, m := range d.Support {
		if m == method {
			return true
		}
	}
	return false
}

// Property retrieves an advertised property value by name, or returns
// empty string if the bulb did not advertise it
func (d *Device) Property(name string) string {
	if d.Properties == nil {
		return ""
	}
	return d.Properties[name]
}

// Model returns the bulb's model identifier (e.g., "color", "mono")
func (d *Device) Model() string {
	return d.Property(PropModel)
}

// Name returns the user-assigned bulb name, if any
func (d *Device) Name() string {
	return d.Property(PropName)
}

// FirmwareVersion returns the bulb's firmware version string
func (d *Device) FirmwareVersion() string {
	return d.Property(PropFWVer)
}
