package control

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/muurk/yeelight/internal/protocol"
)

// wireFrame mirrors an encoded command for test-side decoding.
type wireFrame struct {
	ID     uint32 `json:"id"`
	Method string `json:"method"`
	Params []any  `json:"params"`
}

// startBulb runs a scripted device endpoint and returns its address. The
// handler receives each accepted connection on its own goroutine.
func startBulb(t *testing.T, handler func(net.Conn)) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to bind test listener: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go handler(conn)
		}
	}()

	return listener.Addr().String()
}

func dialTest(t *testing.T, addr string) *Channel {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := Dial(ctx, addr)
	if err != nil {
		t.Fatalf("Dial(%s) failed: %v", addr, err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func readFrame(t *testing.T, scanner *bufio.Scanner) wireFrame {
	t.Helper()

	if !scanner.Scan() {
		t.Errorf("device read failed: %v", scanner.Err())
		return wireFrame{}
	}
	var frame wireFrame
	if err := json.Unmarshal(scanner.Bytes(), &frame); err != nil {
		t.Errorf("device received malformed frame %q: %v", scanner.Text(), err)
	}
	return frame
}

func writeOK(conn net.Conn, id uint32) {
	fmt.Fprintf(conn, "{\"id\":%d,\"result\":[\"r%d\"]}\r\n", id, id)
}

func TestSendCorrelatesOutOfOrderReplies(t *testing.T) {
	addr := startBulb(t, func(conn net.Conn) {
		defer conn.Close()
		scanner := bufio.NewScanner(conn)
		first := readFrame(t, scanner)
		second := readFrame(t, scanner)
		// Answer in reverse arrival order
		writeOK(conn, second.ID)
		writeOK(conn, first.ID)
	})

	c := dialTest(t, addr)

	p1, err := c.Send(protocol.NewToggle())
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	p2, err := c.Send(protocol.NewToggle())
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if p1.ID() == p2.ID() {
		t.Fatalf("correlation ids collide: %d", p1.ID())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for _, p := range []*Pending{p1, p2} {
		result, err := p.Wait(ctx)
		if err != nil {
			t.Fatalf("Wait(id=%d) failed: %v", p.ID(), err)
		}
		want := fmt.Sprintf("r%d", p.ID())
		if len(result) != 1 || result[0] != want {
			t.Errorf("Wait(id=%d) result = %v, want [%s]", p.ID(), result, want)
		}
	}
}

// echoBulb answers every command immediately, so replies race the tail of
// the send path. Run with -race: these tests exist to catch pending-entry
// state escaping the channel's locking discipline.
func echoBulb(t *testing.T) string {
	return startBulb(t, func(conn net.Conn) {
		defer conn.Close()
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			var frame wireFrame
			if err := json.Unmarshal(scanner.Bytes(), &frame); err != nil {
				continue
			}
			writeOK(conn, frame.ID)
		}
	})
}

func TestRapidSendReplyCycles(t *testing.T) {
	c := dialTest(t, echoBulb(t))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for i := 0; i < 300; i++ {
		p, err := c.Send(protocol.NewToggle())
		if err != nil {
			t.Fatalf("Send %d failed: %v", i, err)
		}
		if _, err := p.Wait(ctx); err != nil {
			t.Fatalf("Wait %d failed: %v", i, err)
		}
	}
}

func TestConcurrentSenders(t *testing.T) {
	c := dialTest(t, echoBulb(t))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				p, err := c.Send(protocol.NewToggle())
				if err != nil {
					t.Errorf("Send failed: %v", err)
					return
				}
				if _, err := p.Wait(ctx); err != nil {
					t.Errorf("Wait failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestDeviceErrorSurfacesAsProtocolError(t *testing.T) {
	addr := startBulb(t, func(conn net.Conn) {
		defer conn.Close()
		scanner := bufio.NewScanner(conn)
		frame := readFrame(t, scanner)
		fmt.Fprintf(conn, "{\"id\":%d,\"error\":{\"code\":-5000,\"message\":\"general error\"}}\r\n", frame.ID)
	})

	c := dialTest(t, addr)

	p, err := c.Send(protocol.NewToggle())
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err = p.Wait(ctx)
	var devErr *protocol.Error
	if !errors.As(err, &devErr) {
		t.Fatalf("Wait error = %v, want *protocol.Error", err)
	}
	if devErr.Code != -5000 || devErr.Message != "general error" {
		t.Errorf("device error = %+v, want code -5000 / general error", devErr)
	}
}

func TestNotificationNeverResolvesPending(t *testing.T) {
	addr := startBulb(t, func(conn net.Conn) {
		defer conn.Close()
		scanner := bufio.NewScanner(conn)
		frame := readFrame(t, scanner)
		// Push a notification before the reply
		fmt.Fprintf(conn, "{\"method\":\"props\",\"params\":{\"power\":\"on\"}}\r\n")
		writeOK(conn, frame.ID)
	})

	c := dialTest(t, addr)

	p, err := c.Send(protocol.NewToggle())
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := p.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	want := fmt.Sprintf("r%d", p.ID())
	if len(result) != 1 || result[0] != want {
		t.Errorf("Wait result = %v, want [%s]", result, want)
	}

	select {
	case n := <-c.Notifications():
		if n.Method != "props" {
			t.Errorf("notification method = %q, want props", n.Method)
		}
		if n.Params["power"] != "on" {
			t.Errorf("notification params = %v, want power=on", n.Params)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("notification never delivered")
	}
}

func TestCommandTimeoutReleasesEntry(t *testing.T) {
	addr := startBulb(t, func(conn net.Conn) {
		// Swallow the command and keep the connection open
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
		}
	})

	c := dialTest(t, addr)
	c.SetTimeout(50 * time.Millisecond)

	p, err := c.Send(protocol.NewToggle())
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := p.Wait(ctx); !errors.Is(err, ErrCommandTimeout) {
		t.Fatalf("Wait error = %v, want ErrCommandTimeout", err)
	}

	c.mu.Lock()
	remaining := len(c.pending)
	c.mu.Unlock()
	if remaining != 0 {
		t.Errorf("pending map holds %d entries after timeout, want 0", remaining)
	}

	// The channel survives a timeout
	select {
	case <-c.Done():
		t.Error("channel closed by a command timeout")
	default:
	}
}

func TestConnectionDropFailsAllPending(t *testing.T) {
	addr := startBulb(t, func(conn net.Conn) {
		scanner := bufio.NewScanner(conn)
		readFrame(t, scanner)
		readFrame(t, scanner)
		conn.Close()
	})

	c := dialTest(t, addr)

	p1, err := c.Send(protocol.NewToggle())
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	p2, err := c.Send(protocol.NewToggle())
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for _, p := range []*Pending{p1, p2} {
		if _, err := p.Wait(ctx); !errors.Is(err, ErrChannelClosed) {
			t.Errorf("Wait(id=%d) error = %v, want ErrChannelClosed", p.ID(), err)
		}
	}

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done never closed after connection drop")
	}
	if err := c.Err(); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("Err() = %v, want ErrChannelClosed", err)
	}
}

func TestSendAfterCloseFailsFast(t *testing.T) {
	addr := startBulb(t, func(conn net.Conn) {
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
		}
	})

	c := dialTest(t, addr)
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := c.Send(protocol.NewToggle()); !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("Send after close = %v, want ErrChannelClosed", err)
	}

	// Close is idempotent
	if err := c.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestWaitContextCancelAbandonsEntry(t *testing.T) {
	addr := startBulb(t, func(conn net.Conn) {
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
		}
	})

	c := dialTest(t, addr)

	p, err := c.Send(protocol.NewToggle())
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Wait error = %v, want context.Canceled", err)
	}

	c.mu.Lock()
	_, stillPending := c.pending[p.ID()]
	c.mu.Unlock()
	if stillPending {
		t.Error("entry still pending after abandoned Wait")
	}
}

func TestCorrelationIDSkipsZero(t *testing.T) {
	c := &Channel{}
	c.nextID = ^uint32(0) // next increment wraps to 0

	if id := c.nextCorrelationID(); id == 0 {
		t.Error("correlation id 0 was issued")
	}
}
