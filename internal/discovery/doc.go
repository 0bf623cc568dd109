// Package discovery locates Yeelight bulbs on the local network.
//
// Yeelight bulbs implement an SSDP-style search-and-reply handshake: a
// client sends a fixed M-SEARCH request to the multicast group
// 239.255.255.250:1982 with the search target "wifi_bulb", and each bulb
// answers with a unicast header block describing itself.
//
// # Discovery Process
//
// One Discover call:
//  1. Binds a transient UDP socket and joins the multicast group
//  2. Sends a single search request
//  3. Collects replies until the timeout elapses
//  4. Parses each well-formed reply into a Device descriptor
//  5. Returns the descriptors in arrival order
//
// Malformed replies are dropped without aborting the scan. If several
// replies report the same device identifier, the last-received reply wins
// while keeping the device's first-arrival position. Zero replies is an
// empty result, not an error; the only failure mode is SetupError, raised
// when the socket cannot be bound or joined.
//
// # Usage Example
//
//	devices, err := discovery.Discover(3 * time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, device := range devices {
//	    fmt.Printf("Found: %s at %s\n", device.ID, device.Address())
//	}
//
// # Reply Format
//
// Replies are newline-delimited "Key: Value" pairs after a status line,
// parsed case-insensitively. Required keys are "id" (unique device token)
// and "Location" (yeelight://host:port for the control connection).
// "support" lists the firmware's control methods; the remaining keys are
// advertised property values, captured as a discovery-time snapshot.
//
// # Network Requirements
//
// Discovery requires an interface with multicast support and bulbs on the
// same network segment with "LAN Control" enabled.
package discovery
