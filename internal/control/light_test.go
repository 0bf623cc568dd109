package control

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/muurk/yeelight/internal/emulator"
	"github.com/muurk/yeelight/internal/protocol"
)

func startEmulatedBulb(t *testing.T) *emulator.Bulb {
	t.Helper()

	bulb := emulator.New(emulator.Config{})
	if err := bulb.Start(); err != nil {
		t.Fatalf("failed to start emulated bulb: %v", err)
	}
	t.Cleanup(bulb.Stop)
	return bulb
}

func connectToBulb(t *testing.T, bulb *emulator.Bulb) *Light {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	light, err := ConnectAddr(ctx, bulb.Addr())
	if err != nil {
		t.Fatalf("ConnectAddr(%s) failed: %v", bulb.Addr(), err)
	}
	t.Cleanup(func() { light.Close() })
	return light
}

func TestLightOperationsChangeBulbState(t *testing.T) {
	bulb := startEmulatedBulb(t)
	light := connectToBulb(t, bulb)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := light.SetPower(ctx, false, protocol.Sudden()); err != nil {
		t.Fatalf("SetPower(off) failed: %v", err)
	}
	if got := bulb.State().Power; got != "off" {
		t.Errorf("power = %q after SetPower(off), want off", got)
	}

	if err := light.Toggle(ctx); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if got := bulb.State().Power; got != "on" {
		t.Errorf("power = %q after Toggle, want on", got)
	}

	if err := light.SetBright(ctx, 40, protocol.Sudden()); err != nil {
		t.Fatalf("SetBright failed: %v", err)
	}
	if got := bulb.State().Bright; got != 40 {
		t.Errorf("bright = %d, want 40", got)
	}

	smooth, err := protocol.Smooth(200 * time.Millisecond)
	if err != nil {
		t.Fatalf("Smooth failed: %v", err)
	}
	if err := light.SetColorTemp(ctx, 3500, smooth); err != nil {
		t.Fatalf("SetColorTemp failed: %v", err)
	}
	state := bulb.State()
	if state.CT != 3500 || state.ColorMode != emulator.ColorModeCT {
		t.Errorf("ct = %d mode = %d, want 3500 / %d", state.CT, state.ColorMode, emulator.ColorModeCT)
	}

	if err := light.SetRGB(ctx, protocol.RGB(255, 0, 0), protocol.Sudden()); err != nil {
		t.Fatalf("SetRGB failed: %v", err)
	}
	state = bulb.State()
	if state.RGB != 0xFF0000 || state.ColorMode != emulator.ColorModeRGB {
		t.Errorf("rgb = %#x mode = %d, want 0xff0000 / %d", state.RGB, state.ColorMode, emulator.ColorModeRGB)
	}

	if err := light.SetHSV(ctx, 180, 60, protocol.Sudden()); err != nil {
		t.Fatalf("SetHSV failed: %v", err)
	}
	state = bulb.State()
	if state.Hue != 180 || state.Sat != 60 || state.ColorMode != emulator.ColorModeHSV {
		t.Errorf("hsv = %d/%d mode = %d, want 180/60 / %d", state.Hue, state.Sat, state.ColorMode, emulator.ColorModeHSV)
	}
}

func TestLightValidatesBeforeSending(t *testing.T) {
	bulb := startEmulatedBulb(t)
	light := connectToBulb(t, bulb)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	tests := []struct {
		name string
		op   func() error
	}{
		{"bright too low", func() error { return light.SetBright(ctx, 0, protocol.Sudden()) }},
		{"bright too high", func() error { return light.SetBright(ctx, 101, protocol.Sudden()) }},
		{"ct below range", func() error { return light.SetColorTemp(ctx, 1699, protocol.Sudden()) }},
		{"ct above range", func() error { return light.SetColorTemp(ctx, 6501, protocol.Sudden()) }},
		{"rgb negative", func() error { return light.SetRGB(ctx, -1, protocol.Sudden()) }},
		{"rgb too large", func() error { return light.SetRGB(ctx, 0x1000000, protocol.Sudden()) }},
		{"hue too large", func() error { return light.SetHSV(ctx, 360, 50, protocol.Sudden()) }},
		{"sat too large", func() error { return light.SetHSV(ctx, 180, 101, protocol.Sudden()) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.op(); !errors.Is(err, protocol.ErrInvalidParameter) {
				t.Errorf("error = %v, want ErrInvalidParameter", err)
			}
		})
	}
}

func TestLightSurfacesDeviceError(t *testing.T) {
	bulb := startEmulatedBulb(t)
	light := connectToBulb(t, bulb)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// An unsupported method passes local validation but is rejected by the
	// device; drive it through the raw channel.
	p, err := light.channel.Send(&protocol.Request{Method: "get_cron", Params: []any{}})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	_, err = p.Wait(ctx)
	var devErr *protocol.Error
	if !errors.As(err, &devErr) {
		t.Fatalf("error = %v, want *protocol.Error", err)
	}
	if devErr.Code != -1 {
		t.Errorf("device error code = %d, want -1", devErr.Code)
	}
}

func TestLightReceivesPropsNotifications(t *testing.T) {
	bulb := startEmulatedBulb(t)
	watcher := connectToBulb(t, bulb)
	actor := connectToBulb(t, bulb)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := actor.SetBright(ctx, 25, protocol.Sudden()); err != nil {
		t.Fatalf("SetBright failed: %v", err)
	}

	select {
	case n := <-watcher.Notifications():
		if n.Method != "props" {
			t.Fatalf("notification method = %q, want props", n.Method)
		}
		if got, ok := n.Params["bright"].(float64); !ok || got != 25 {
			t.Errorf("notification bright = %v, want 25", n.Params["bright"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("props notification never arrived")
	}
}

func TestLightCommandTimesOutWhenRepliesDrop(t *testing.T) {
	bulb := startEmulatedBulb(t)
	light := connectToBulb(t, bulb)
	light.SetTimeout(100 * time.Millisecond)

	bulb.SetDropReplies(true)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := light.Toggle(ctx); !errors.Is(err, ErrCommandTimeout) {
		t.Fatalf("Toggle error = %v, want ErrCommandTimeout", err)
	}

	// The channel stays usable once the bulb recovers
	bulb.SetDropReplies(false)
	if err := light.Toggle(ctx); err != nil {
		t.Fatalf("Toggle after recovery failed: %v", err)
	}
}

func TestLightFailsPendingOnConnectionDrop(t *testing.T) {
	bulb := startEmulatedBulb(t)
	light := connectToBulb(t, bulb)

	// Queue a command that never gets a reply, then cut the connection
	bulb.SetDropReplies(true)

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		done <- light.Toggle(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	bulb.DropConnections()

	select {
	case err := <-done:
		if !errors.Is(err, ErrChannelClosed) {
			t.Fatalf("Toggle error = %v, want ErrChannelClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pending command never failed after connection drop")
	}

	select {
	case <-light.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done never closed after connection drop")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := light.Toggle(ctx); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("Toggle on dead handle = %v, want ErrChannelClosed", err)
	}
}
