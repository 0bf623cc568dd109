package control

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/yeelight/internal/logging"
	"github.com/muurk/yeelight/internal/protocol"
)

const (
	// DefaultCommandTimeout is the default deadline for a command reply
	DefaultCommandTimeout = 5 * time.Second

	// notificationBuffer bounds the unsolicited notification stream; a
	// consumer that falls further behind loses the newest notifications
	notificationBuffer = 16

	// maxLineSize bounds one reply line from the bulb
	maxLineSize = 64 * 1024
)

// outcome is the terminal state of a pending command.
type outcome struct {
	result []any
	err    error
}

// Pending is a handle to a sent command awaiting its correlated reply.
type Pending struct {
	id      uint32
	channel *Channel
	ch      chan outcome // buffered, written exactly once
	timer   *time.Timer
}

// ID returns the command's correlation id.
func (p *Pending) ID() uint32 {
	return p.id
}

// Wait blocks until the command resolves: matching reply, timeout, channel
// closure, or ctx cancellation. On success it returns the reply's result
// payload. A device-reported failure is returned as *protocol.Error.
//
// Cancelling ctx abandons the entry; a reply arriving afterwards is dropped.
func (p *Pending) Wait(ctx context.Context) ([]any, error) {
	select {
	case o := <-p.ch:
		return o.result, o.err
	case <-ctx.Done():
		p.channel.abandon(p.id)
		return nil, ctx.Err()
	}
}

// Channel is a single control connection to one bulb. It multiplexes
// concurrent logical commands onto the connection by correlation id: sends
// register a pending entry, and one background receive goroutine routes each
// incoming reply to the entry sharing its id. Unsolicited notifications are
// delivered on a separate stream and never resolve a pending entry.
//
// A Channel is exclusively owned by the handle that dialed it. Once closed
// (explicitly or by a connection failure) it stays closed.
type Channel struct {
	conn       net.Conn
	remoteAddr string

	nextID uint32 // atomic; correlation ids, 0 skipped

	// writeMu serializes connection writes, separately from mu so a
	// stalled peer cannot block close or reply resolution behind a Send
	writeMu sync.Mutex

	mu       sync.Mutex
	pending  map[uint32]*Pending
	closed   bool
	closeErr error
	timeout  time.Duration

	notifications chan *protocol.Notification
	done          chan struct{}
}

// Dial opens a control connection to addr (host:port from the device's
// discovery descriptor) and starts the receive goroutine.
func Dial(ctx context.Context, addr string) (*Channel, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	c := &Channel{
		conn:          conn,
		remoteAddr:    addr,
		pending:       make(map[uint32]*Pending),
		timeout:       DefaultCommandTimeout,
		notifications: make(chan *protocol.Notification, notificationBuffer),
		done:          make(chan struct{}),
	}

	go c.readLoop()

	logging.LogConnection(addr, "channel_opened")
	return c, nil
}

// SetTimeout sets the reply deadline applied to subsequent sends.
func (c *Channel) SetTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = d
}

// Send allocates the next correlation id, registers the pending entry,
// writes the encoded command, and returns without waiting for the reply.
// It fails immediately with ErrChannelClosed on a closed channel, before
// any network I/O.
func (c *Channel) Send(req *protocol.Request) (*Pending, error) {
	id := c.nextCorrelationID()

	line, err := req.Encode(id)
	if err != nil {
		return nil, err
	}

	p := &Pending{id: id, channel: c, ch: make(chan outcome, 1)}

	// Registration and the deadline timer are armed under the pending-map
	// lock; every later access to the entry, timer included, goes through
	// that lock first. A close racing the registration resolves the entry
	// with ErrChannelClosed like any other in-flight command.
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrChannelClosed
	}
	c.pending[id] = p
	p.timer = time.AfterFunc(c.timeout, func() { c.expire(id) })
	c.mu.Unlock()

	// The write happens outside the pending-map lock so a peer that stops
	// draining its socket cannot stall close or reply resolution behind it
	c.writeMu.Lock()
	_, werr := c.conn.Write(line)
	c.writeMu.Unlock()

	if werr != nil {
		c.fail(fmt.Errorf("%w: write failed: %v", ErrChannelClosed, werr))
		return nil, fmt.Errorf("failed to send %s command: %w", req.Method, werr)
	}

	logging.LogFrame(c.remoteAddr, "sent", line)
	return p, nil
}

// Notifications returns the stream of unsolicited device notifications.
// The stream is closed when the channel closes.
func (c *Channel) Notifications() <-chan *protocol.Notification {
	return c.notifications
}

// Done is closed when the channel transitions to closed.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Err returns the reason the channel closed, or nil while it is open.
func (c *Channel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeErr
}

// Close closes the channel, failing all pending commands with
// ErrChannelClosed. Safe to call more than once.
func (c *Channel) Close() error {
	c.fail(ErrChannelClosed)
	return nil
}

// nextCorrelationID returns the next id, wrapping on overflow but skipping
// 0: frames without an id are notifications, so id 0 is never issued.
func (c *Channel) nextCorrelationID() uint32 {
	for {
		if id := atomic.AddUint32(&c.nextID, 1); id != 0 {
			return id
		}
	}
}

// readLoop continuously drains incoming frames until the connection fails.
// It is the only reader of the connection and the only writer to the
// notification stream.
func (c *Channel) readLoop() {
	defer close(c.notifications)

	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		logging.LogFrame(c.remoteAddr, "received", line)

		env, err := protocol.Decode(line)
		if err != nil {
			logging.Warn("Dropping malformed frame",
				zap.String("remote_addr", c.remoteAddr),
				zap.Error(err),
			)
			continue
		}

		if env.IsNotification() {
			select {
			case c.notifications <- env.Notification():
			default:
				logging.Warn("Notification dropped: consumer not keeping up",
					zap.String("remote_addr", c.remoteAddr),
					zap.String("method", env.Method),
				)
			}
			continue
		}

		if env.Err != nil {
			c.resolve(*env.ID, nil, env.Err)
		} else {
			c.resolve(*env.ID, env.Result, nil)
		}
	}

	cause := scanner.Err()
	if cause == nil {
		cause = io.EOF
	}
	c.fail(fmt.Errorf("%w: %v", ErrChannelClosed, cause))
}

// resolve routes a reply to the pending entry sharing its correlation id
// and removes the entry. A reply for an unknown id (already timed out,
// abandoned, or never sent) is dropped.
func (c *Channel) resolve(id uint32, result []any, err error) {
	c.mu.Lock()
	p, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()

	if !ok {
		logging.Debug("Dropping reply with no pending command",
			zap.String("remote_addr", c.remoteAddr),
			zap.Uint32("id", id),
		)
		return
	}

	if p.timer != nil {
		p.timer.Stop()
	}
	p.ch <- outcome{result: result, err: err}
}

// expire resolves a pending entry with ErrCommandTimeout. A reply that
// already resolved the entry makes this a no-op.
func (c *Channel) expire(id uint32) {
	c.mu.Lock()
	p, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()

	if !ok {
		return
	}

	logging.Warn("Command timed out",
		zap.String("remote_addr", c.remoteAddr),
		zap.Uint32("id", id),
	)
	p.ch <- outcome{err: ErrCommandTimeout}
}

// abandon removes a pending entry nobody is waiting on anymore.
func (c *Channel) abandon(id uint32) {
	c.mu.Lock()
	p, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()

	if ok && p.timer != nil {
		p.timer.Stop()
	}
}

// fail transitions the channel to closed exactly once: snapshots and clears
// the pending map, closes the connection, and resolves every still-pending
// entry with the closure cause.
func (c *Channel) fail(cause error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.closeErr = cause
	stranded := c.pending
	c.pending = make(map[uint32]*Pending)
	c.mu.Unlock()

	_ = c.conn.Close()

	for _, p := range stranded {
		if p.timer != nil {
			p.timer.Stop()
		}
		p.ch <- outcome{err: cause}
	}

	close(c.done)

	logging.LogConnection(c.remoteAddr, "channel_closed")
}
