package emulator

import (
	"bytes"
	"fmt"
	"net"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/ipv4"

	"github.com/muurk/yeelight/internal/logging"
)

// startResponder joins the discovery multicast group and answers searches
// for wifi_bulb with a unicast header block advertising the control address
// and current state.
func (b *Bulb) startResponder() error {
	group, err := net.ResolveUDPAddr("udp4", b.cfg.GroupAddress)
	if err != nil {
		return fmt.Errorf("failed to resolve multicast group: %w", err)
	}

	conn, err := net.ListenPacket("udp4", fmt.Sprintf(":%d", group.Port))
	if err != nil {
		return fmt.Errorf("failed to bind discovery responder: %w", err)
	}

	pc := ipv4.NewPacketConn(conn)
	joined := false
	if ifaces, err := net.Interfaces(); err == nil {
		for i := range ifaces {
			iface := &ifaces[i]
			if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagMulticast == 0 {
				continue
			}
			if err := pc.JoinGroup(iface, &net.UDPAddr{IP: group.IP}); err == nil {
				joined = true
			}
		}
	}
	if !joined {
		if err := pc.JoinGroup(nil, &net.UDPAddr{IP: group.IP}); err != nil {
			_ = conn.Close()
			return fmt.Errorf("failed to join multicast group: %w", err)
		}
	}
	_ = pc.SetMulticastLoopback(true)

	b.ssdpConn = conn

	logging.Info("Emulated bulb answering discovery searches",
		zap.String("group", b.cfg.GroupAddress),
	)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.respondLoop(conn)
	}()

	return nil
}

func (b *Bulb) respondLoop(conn net.PacketConn) {
	buf := make([]byte, 2048)
	for {
		n, origin, err := conn.ReadFrom(buf)
		if err != nil {
			return
		}

		data := buf[:n]
		if !bytes.Contains(data, []byte("M-SEARCH")) || !bytes.Contains(data, []byte("wifi_bulb")) {
			continue
		}

		reply := b.discoveryReply()
		if _, err := conn.WriteTo(reply, origin); err != nil {
			logging.Debug("Discovery reply send failed",
				zap.String("origin", origin.String()),
				zap.Error(err),
			)
			continue
		}

		logging.Debug("Answered discovery search",
			zap.String("origin", origin.String()),
		)
	}
}

// discoveryReply renders the header block a real bulb sends in answer to a
// search.
func (b *Bulb) discoveryReply() []byte {
	state := b.State()

	var sb strings.Builder
	sb.WriteString("HTTP/1.1 200 OK\r\n")
	sb.WriteString("Cache-Control: max-age=3600\r\n")
	fmt.Fprintf(&sb, "Location: yeelight://%s\r\n", b.Addr())
	sb.WriteString("Server: POSIX UPnP/1.0 YGLC/1\r\n")
	fmt.Fprintf(&sb, "id: %s\r\n", b.cfg.ID)
	fmt.Fprintf(&sb, "model: %s\r\n", b.cfg.Model)
	fmt.Fprintf(&sb, "fw_ver: %s\r\n", b.cfg.FirmwareVersion)
	sb.WriteString("support: get_prop set_ct_abx set_rgb set_hsv set_bright set_power toggle\r\n")
	fmt.Fprintf(&sb, "power: %s\r\n", state.Power)
	fmt.Fprintf(&sb, "bright: %d\r\n", state.Bright)
	fmt.Fprintf(&sb, "color_mode: %d\r\n", state.ColorMode)
	fmt.Fprintf(&sb, "ct: %d\r\n", state.CT)
	fmt.Fprintf(&sb, "rgb: %d\r\n", state.RGB)
	fmt.Fprintf(&sb, "hue: %d\r\n", state.Hue)
	fmt.Fprintf(&sb, "sat: %d\r\n", state.Sat)
	fmt.Fprintf(&sb, "name: %s\r\n", state.Name)
	sb.WriteString("\r\n")

	return []byte(sb.String())
}
