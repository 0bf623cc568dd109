package control

import (
	"context"
	"time"

	"github.com/muurk/yeelight/internal/discovery"
	"github.com/muurk/yeelight/internal/protocol"
)

// Light is a handle to one bulb. It owns its control channel exclusively
// for the handle's lifetime and exposes the typed control operations.
//
// Every operation builds a validated command, sends it, and blocks until
// the correlated reply resolves. A success envelope yields nil; an error
// envelope yields the bulb's *protocol.Error verbatim. Operations are never
// retried here: a blind retry of a stateful command like Toggle is unsafe,
// so retry policy belongs to the caller.
//
// Once the channel closes the handle is dead; construct a new one to resume
// communication with the bulb.
type Light struct {
	// Device is the discovery descriptor the handle was built from, or nil
	// when connecting by bare address
	Device *discovery.Device

	channel *Channel
}

// Connect opens a control channel to a discovered bulb.
func Connect(ctx context.Context, device *discovery.Device) (*Light, error) {
	channel, err := Dial(ctx, device.Address())
	if err != nil {
		return nil, err
	}
	return &Light{Device: device, channel: channel}, nil
}

// ConnectAddr opens a control channel to a bulb by host:port, skipping
// discovery.
func ConnectAddr(ctx context.Context, addr string) (*Light, error) {
	channel, err := Dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	return &Light{channel: channel}, nil
}

// SetTimeout sets the per-command reply deadline.
func (l *Light) SetTimeout(d time.Duration) {
	l.channel.SetTimeout(d)
}

// SetPower switches the bulb on or off.
func (l *Light) SetPower(ctx context.Context, on bool, e protocol.Effect) error {
	return l.exec(ctx, protocol.NewSetPower(on, e))
}

// SetBright sets the brightness percentage (1-100).
func (l *Light) SetBright(ctx context.Context, level int, e protocol.Effect) error {
	req, err := protocol.NewSetBright(level, e)
	if err != nil {
		return err
	}
	return l.exec(ctx, req)
}

// SetColorTemp sets the white color temperature in Kelvin (1700-6500).
func (l *Light) SetColorTemp(ctx context.Context, kelvin int, e protocol.Effect) error {
	req, err := protocol.NewSetColorTemp(kelvin, e)
	if err != nil {
		return err
	}
	return l.exec(ctx, req)
}

// SetRGB sets the color from a packed 0xRRGGBB integer.
func (l *Light) SetRGB(ctx context.Context, value int, e protocol.Effect) error {
	req, err := protocol.NewSetRGB(value, e)
	if err != nil {
		return err
	}
	return l.exec(ctx, req)
}

// SetHSV sets the color from hue (0-359) and saturation (0-100).
func (l *Light) SetHSV(ctx context.Context, hue, sat int, e protocol.Effect) error {
	req, err := protocol.NewSetHSV(hue, sat, e)
	if err != nil {
		return err
	}
	return l.exec(ctx, req)
}

// Toggle flips the bulb's power state.
func (l *Light) Toggle(ctx context.Context) error {
	return l.exec(ctx, protocol.NewToggle())
}

// Notifications returns the bulb's unsolicited notification stream.
func (l *Light) Notifications() <-chan *protocol.Notification {
	return l.channel.Notifications()
}

// Done is closed when the underlying channel closes.
func (l *Light) Done() <-chan struct{} {
	return l.channel.Done()
}

// Err reports why the underlying channel closed, nil while it is open.
func (l *Light) Err() error {
	return l.channel.Err()
}

// Close closes the underlying channel.
func (l *Light) Close() error {
	return l.channel.Close()
}

// exec sends a built command and waits for its correlated reply.
func (l *Light) exec(ctx context.Context, req *protocol.Request) error {
	pending, err := l.channel.Send(req)
	if err != nil {
		return err
	}
	_, err = pending.Wait(ctx)
	return err
}
