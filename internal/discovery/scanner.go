package discovery

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/ipv4"

	"github.com/muurk/yeelight/internal/logging"
)

const (
	// MulticastGroup is the well-known SSDP group Yeelight bulbs listen on
	MulticastGroup = "239.255.255.250:1982"

	// DefaultListenPort is the conventional client-side port for discovery.
	// A Scanner binds an ephemeral port by default; set ListenPort to this
	// (or any fixed port) when a firewall rule requires a known source port.
	DefaultListenPort = 7821

	// DefaultScanTimeout is the default reply collection window
	DefaultScanTimeout = 3 * time.Second

	// maxReplySize bounds a single discovery reply datagram
	maxReplySize = 2048
)

// searchTarget identifies Yeelight bulbs in the SSDP search; bulbs answer
// only this ST value.
const searchTarget = "wifi_bulb"

// SetupError indicates that the discovery socket could not be set up
// (bound, joined to the multicast group, or written to). It is the only
// error Discover returns: zero replies is an empty result, not an error.
type SetupError struct {
	Op  string // what failed (e.g., "bind discovery socket")
	Err error  // underlying cause
}

// Error implements the error interface
func (e *SetupError) Error() string {
	return fmt.Sprintf("discovery setup failed: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *SetupError) Unwrap() error {
	return e.Err
}

// Scanner performs multicast search-and-reply discovery of Yeelight bulbs
type Scanner struct {
	// GroupAddress is the multicast group:port to search on
	GroupAddress string

	// ListenPort is the local UDP port to bind; 0 picks an ephemeral port,
	// which keeps concurrent Discover calls from contending for one socket
	ListenPort int

	// Timeout is how long to collect replies after sending the search
	Timeout time.Duration
}

// NewScanner creates a new scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		GroupAddress: MulticastGroup,
		Timeout:      DefaultScanTimeout,
	}
}

// Discover sends one multicast search request and collects replies until the
// timeout elapses (or ctx is cancelled, whichever comes first).
//
// Each well-formed reply becomes a Device; malformed replies are dropped and
// collection continues. Replies reporting an already-seen device identifier
// replace the earlier descriptor in place, so the result keeps first-arrival
// order but last-received content. An empty result is not an error.
//
// The multicast socket is transient: opened on entry, closed on return,
// never shared with another call.
func (s *Scanner) Discover(ctx context.Context) ([]*Device, error) {
	if s.Timeout <= 0 {
		return nil, &SetupError{Op: "establish collection window", Err: fmt.Errorf("timeout must be positive, got %v", s.Timeout)}
	}

	group, err := net.ResolveUDPAddr("udp4", s.GroupAddress)
	if err != nil {
		return nil, &SetupError{Op: "resolve multicast group", Err: err}
	}
	if !group.IP.IsMulticast() {
		return nil, &SetupError{Op: "resolve multicast group", Err: fmt.Errorf("%s is not a multicast address", group.IP)}
	}

	conn, err := net.ListenPacket("udp4", fmt.Sprintf(":%d", s.ListenPort))
	if err != nil {
		return nil, &SetupError{Op: "bind discovery socket", Err: err}
	}
	defer func() { _ = conn.Close() }()

	pc := ipv4.NewPacketConn(conn)
	if err := joinGroup(pc, group); err != nil {
		return nil, &SetupError{Op: "join multicast group", Err: err}
	}
	// Loopback lets a same-host emulator answer the search
	_ = pc.SetMulticastLoopback(true)

	search := searchMessage(s.GroupAddress)
	if _, err := conn.WriteTo(search, group); err != nil {
		return nil, &SetupError{Op: "send search request", Err: err}
	}

	logging.Debug("Discovery search sent",
		zap.String("group", s.GroupAddress),
		zap.Duration("timeout", s.Timeout),
	)

	deadline := time.Now().Add(s.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)

	// Cancelling the context unblocks the read by closing the socket early
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	var (
		devices []*Device
		seen    = make(map[string]int) // device id -> index in devices
	)

	buf := make([]byte, maxReplySize)
	for {
		n, origin, err := conn.ReadFrom(buf)
		if err != nil {
			// Deadline, cancellation, or socket teardown ends the window
			break
		}

		device, err := parseReply(buf[:n], origin)
		if err != nil {
			logging.Debug("Dropping malformed discovery reply",
				zap.String("origin", origin.String()),
				zap.Error(err),
			)
			continue
		}

		logging.LogDiscoveryReply(device.ID, device.Address(), origin.String())

		// Keep first-arrival position, last-received content
		if i, ok := seen[device.ID]; ok {
			devices[i] = device
		} else {
			seen[device.ID] = len(devices)
			devices = append(devices, device)
		}
	}

	return devices, nil
}

// joinGroup joins the multicast group on every eligible interface.
// Succeeds if at least one join works.
func joinGroup(pc *ipv4.PacketConn, group *net.UDPAddr) error {
	ifaces, err := net.Interfaces()
	if err != nil {
		return fmt.Errorf("failed to list network interfaces: %w", err)
	}

	joined := 0
	for i := range ifaces {
		iface := &ifaces[i]
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagMulticast == 0 {
			continue
		}
		if err := pc.JoinGroup(iface, &net.UDPAddr{IP: group.IP}); err != nil {
			logging.Debug("Multicast join failed on interface",
				zap.String("interface", iface.Name),
				zap.Error(err),
			)
			continue
		}
		joined++
	}

	if joined == 0 {
		// Last resort: let the kernel pick an interface
		if err := pc.JoinGroup(nil, &net.UDPAddr{IP: group.IP}); err != nil {
			return fmt.Errorf("no usable multicast interface: %w", err)
		}
	}

	return nil
}

// searchMessage builds the SSDP search request for the given group address.
// The HOST header tracks the group actually searched, not the default.
func searchMessage(group string) []byte {
	return []byte("M-SEARCH * HTTP/1.1\r\n" +
		"HOST: " + group + "\r\n" +
		"MAN: \"ssdp:discover\"\r\n" +
		"ST: " + searchTarget + "\r\n")
}

// Keys in a discovery reply that are transport plumbing rather than device
// properties. Compared lowercase.
var plumbingHeaders = map[string]bool{
	"id":            true,
	"location":      true,
	"support":       true,
	"cache-control": true,
	"date":          true,
	"ext":           true,
	"server":        true,
	"host":          true,
	"man":           true,
	"st":            true,
	"nts":           true,
	"nl":            true,
}

// parseReply parses one discovery reply datagram into a Device.
//
// Replies are a status line followed by a newline-delimited Key: Value
// header block. Both search responses ("HTTP/1.1 200 OK") and unsolicited
// advertisements ("NOTIFY * HTTP/1.1") carry the same headers, so the
// status line is read and ignored.
func parseReply(data []byte, origin net.Addr) (*Device, error) {
	tp := textproto.NewReader(bufio.NewReader(bytes.NewReader(data)))

	if _, err := tp.ReadLine(); err != nil {
		return nil, fmt.Errorf("failed to read status line: %w", err)
	}

	// ReadMIMEHeader parses case-insensitively; a reply without a trailing
	// blank line still yields the headers read so far
	header, err := tp.ReadMIMEHeader()
	if err != nil && len(header) == 0 {
		return nil, fmt.Errorf("failed to parse reply headers: %w", err)
	}

	id := header.Get("Id")
	if id == "" {
		return nil, fmt.Errorf("reply missing required id header")
	}

	location := header.Get("Location")
	if location == "" {
		return nil, fmt.Errorf("reply missing required Location header")
	}
	host, port, err := parseLocation(location)
	if err != nil {
		return nil, err
	}

	support := strings.Fields(header.Get("Support"))

	properties := make(map[string]string)
	for key, values := range header {
		lower := strings.ToLower(key)
		if plumbingHeaders[lower] || len(values) == 0 {
			continue
		}
		properties[lower] = values[0]
	}

	return &Device{
		ID:           id,
		Host:         host,
		Port:         port,
		Support:      support,
		Properties:   properties,
		DiscoveredAt: time.Now(),
	}, nil
}

// parseLocation splits a "yeelight://host:port" Location value
func parseLocation(location string) (string, int, error) {
	addr, ok := strings.CutPrefix(location, "yeelight://")
	if !ok {
		return "", 0, fmt.Errorf("unexpected Location scheme: %q", location)
	}

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("unparseable Location %q: %w", location, err)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port in Location %q", location)
	}

	return host, port, nil
}

// Discover is a convenience function that scans the well-known group with a
// custom timeout
func Discover(timeout time.Duration) ([]*Device, error) {
	scanner := NewScanner()
	scanner.Timeout = timeout
	return scanner.Discover(context.Background())
}

// QuickScan performs a fast scan with a 1-second window
func QuickScan() ([]*Device, error) {
	scanner := NewScanner()
	scanner.Timeout = 1 * time.Second
	return scanner.Discover(context.Background())
}
