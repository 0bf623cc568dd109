package emulator

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/muurk/yeelight/internal/logging"
	"github.com/muurk/yeelight/internal/protocol"
)

// Config holds the emulated bulb's identity and listen settings
type Config struct {
	Host            string // listen address; default 127.0.0.1
	Port            int    // control port; 0 picks an ephemeral port
	ID              string // device identifier advertised in discovery replies
	Model           string
	FirmwareVersion string
	Name            string
	Multicast       bool   // answer discovery searches
	GroupAddress    string // multicast group to answer on; default 239.255.255.250:1982
}

// Bulb is a software Yeelight bulb: a TCP command endpoint plus an optional
// multicast discovery responder. It exists for protocol work and tests;
// point the real client at it and it behaves like bulb firmware, including
// "props" notifications pushed to every connected client after a state
// change.
type Bulb struct {
	cfg Config

	mu    sync.Mutex
	state State
	conns map[net.Conn]struct{}

	listener net.Listener
	ssdpConn net.PacketConn
	wg       sync.WaitGroup
	stopOnce sync.Once

	// dropReplies silently swallows commands (for reply-timeout testing)
	dropReplies atomic.Bool
}

// New creates a bulb with the given configuration, filling in defaults
func New(cfg Config) *Bulb {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.ID == "" {
		cfg.ID = "0x0000000000abcdef"
	}
	if cfg.Model == "" {
		cfg.Model = "color"
	}
	if cfg.FirmwareVersion == "" {
		cfg.FirmwareVersion = "18"
	}
	if cfg.GroupAddress == "" {
		cfg.GroupAddress = "239.255.255.250:1982"
	}

	state := defaultState()
	state.Name = cfg.Name

	return &Bulb{
		cfg:   cfg,
		state: state,
		conns: make(map[net.Conn]struct{}),
	}
}

// Start begins accepting control connections (and discovery searches when
// configured). It returns once the listeners are bound.
func (b *Bulb) Start() error {
	addr := fmt.Sprintf("%s:%d", b.cfg.Host, b.cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind control listener: %w", err)
	}
	b.listener = listener

	logging.Info("Emulated bulb listening",
		zap.String("addr", listener.Addr().String()),
		zap.String("id", b.cfg.ID),
		zap.String("model", b.cfg.Model),
	)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.acceptLoop()
	}()

	if b.cfg.Multicast {
		if err := b.startResponder(); err != nil {
			_ = listener.Close()
			return err
		}
	}

	return nil
}

// Addr returns the bound control address (host:port)
func (b *Bulb) Addr() string {
	return b.listener.Addr().String()
}

// Stop closes the listeners and all client connections
func (b *Bulb) Stop() {
	b.stopOnce.Do(func() {
		if b.listener != nil {
			_ = b.listener.Close()
		}
		if b.ssdpConn != nil {
			_ = b.ssdpConn.Close()
		}
		b.mu.Lock()
		for conn := range b.conns {
			_ = conn.Close()
		}
		b.mu.Unlock()
		b.wg.Wait()
	})
}

// State returns a copy of the current bulb state
func (b *Bulb) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// SetDropReplies makes the bulb silently swallow commands (no reply line),
// simulating a device that drops replies
func (b *Bulb) SetDropReplies(drop bool) {
	b.dropReplies.Store(drop)
}

// DropConnections hard-closes every client connection without any protocol
// goodbye, simulating a connection reset
func (b *Bulb) DropConnections() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for conn := range b.conns {
		_ = conn.Close()
	}
}

func (b *Bulb) acceptLoop() {
	for {
		conn, err := b.listener.Accept()
		if err != nil {
			return
		}

		b.mu.Lock()
		b.conns[conn] = struct{}{}
		b.mu.Unlock()

		logging.LogConnection(conn.RemoteAddr().String(), "client_connected")

		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.handleConn(conn)
		}()
	}
}

// wireRequest is an incoming command line as decoded JSON
type wireRequest struct {
	ID     uint32 `json:"id"`
	Method string `json:"method"`
	Params []any  `json:"params"`
}

func (b *Bulb) handleConn(conn net.Conn) {
	remoteAddr := conn.RemoteAddr().String()

	defer func() {
		_ = conn.Close()
		b.mu.Lock()
		delete(b.conns, conn)
		b.mu.Unlock()
		logging.LogConnection(remoteAddr, "client_disconnected")
	}()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		logging.LogFrame(remoteAddr, "received", line)

		var req wireRequest
		if err := json.Unmarshal(line, &req); err != nil {
			logging.Warn("Dropping unparseable command line",
				zap.String("remote_addr", remoteAddr),
				zap.Error(err),
			)
			continue
		}

		b.mu.Lock()
		changed, devErr := b.state.apply(req.Method, req.Params)
		b.mu.Unlock()

		if b.dropReplies.Load() {
			continue
		}

		if devErr != nil {
			b.writeError(conn, req.ID, devErr)
			continue
		}

		b.writeResult(conn, req.ID)
		if len(changed) > 0 {
			b.broadcastProps(changed)
		}
	}
}

func (b *Bulb) writeResult(conn net.Conn, id uint32) {
	line, _ := json.Marshal(map[string]any{"id": id, "result": []any{"ok"}})
	b.writeLine(conn, line)
}

func (b *Bulb) writeError(conn net.Conn, id uint32, devErr *protocol.Error) {
	line, _ := json.Marshal(map[string]any{"id": id, "error": devErr})
	b.writeLine(conn, line)
}

// broadcastProps pushes a props notification with the changed keys to every
// connected client, matching real firmware behavior
func (b *Bulb) broadcastProps(changed map[string]any) {
	line, _ := json.Marshal(map[string]any{"method": "props", "params": changed})

	b.mu.Lock()
	conns := make([]net.Conn, 0, len(b.conns))
	for conn := range b.conns {
		conns = append(conns, conn)
	}
	b.mu.Unlock()

	for _, conn := range conns {
		b.writeLine(conn, line)
	}
}

func (b *Bulb) writeLine(conn net.Conn, line []byte) {
	if _, err := conn.Write(append(line, '\r', '\n')); err != nil {
		logging.Debug("Write to client failed",
			zap.String("remote_addr", conn.RemoteAddr().String()),
			zap.Error(err),
		)
		return
	}
	logging.LogFrame(conn.RemoteAddr().String(), "sent", line)
}
