package protocol

import (
	"errors"
	"testing"
	"time"
)

func TestNewSetBright(t *testing.T) {
	tests := []struct {
		name    string
		level   int
		wantErr bool
	}{
		{name: "minimum brightness", level: 1},
		{name: "maximum brightness", level: 100},
		{name: "mid-range", level: 50},
		{name: "zero is invalid", level: 0, wantErr: true},
		{name: "above maximum", level: 101, wantErr: true},
		{name: "negative", level: -5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := NewSetBright(tt.level, Sudden())

			if tt.wantErr {
				if !errors.Is(err, ErrInvalidParameter) {
					t.Errorf("NewSetBright(%d) error = %v, want ErrInvalidParameter", tt.level, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("NewSetBright(%d) error = %v", tt.level, err)
			}
			if req.Method != MethodSetBright {
				t.Errorf("method = %q, want %q", req.Method, MethodSetBright)
			}
			if req.Params[0] != tt.level {
				t.Errorf("params[0] = %v, want %d", req.Params[0], tt.level)
			}
		})
	}
}

func TestNewSetColorTemp(t *testing.T) {
	tests := []struct {
		name    string
		kelvin  int
		wantErr bool
	}{
		{name: "warm white minimum", kelvin: 1700},
		{name: "cool white maximum", kelvin: 6500},
		{name: "neutral", kelvin: 3500},
		{name: "too warm", kelvin: 1699, wantErr: true},
		{name: "too cool", kelvin: 6501, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSetColorTemp(tt.kelvin, Sudden())
			if tt.wantErr != (err != nil) {
				t.Errorf("NewSetColorTemp(%d) error = %v, wantErr %v", tt.kelvin, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("NewSetColorTemp(%d) error = %v, want ErrInvalidParameter", tt.kelvin, err)
			}
		})
	}
}

func TestNewSetRGB(t *testing.T) {
	tests := []struct {
		name    string
		value   int
		wantErr bool
	}{
		{name: "black", value: 0x000000},
		{name: "white", value: 0xFFFFFF},
		{name: "red", value: 0xFF0000},
		{name: "negative", value: -1, wantErr: true},
		{name: "overflow", value: 0x1000000, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSetRGB(tt.value, Sudden())
			if tt.wantErr != (err != nil) {
				t.Errorf("NewSetRGB(%#x) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestRGB(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b uint8
		want    int
	}{
		{name: "red", r: 255, want: 0xFF0000},
		{name: "green", g: 255, want: 0x00FF00},
		{name: "blue", b: 255, want: 0x0000FF},
		{name: "white", r: 255, g: 255, b: 255, want: 0xFFFFFF},
		{name: "mixed", r: 0x12, g: 0x34, b: 0x56, want: 0x123456},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RGB(tt.r, tt.g, tt.b); got != tt.want {
				t.Errorf("RGB(%d, %d, %d) = %#x, want %#x", tt.r, tt.g, tt.b, got, tt.want)
			}
		})
	}
}

func TestNewSetHSV(t *testing.T) {
	tests := []struct {
		name     string
		hue, sat int
		wantErr  bool
	}{
		{name: "red fully saturated", hue: 0, sat: 100},
		{name: "maximum hue", hue: 359, sat: 50},
		{name: "hue wraps past range", hue: 360, sat: 50, wantErr: true},
		{name: "negative hue", hue: -1, sat: 50, wantErr: true},
		{name: "saturation above range", hue: 180, sat: 101, wantErr: true},
		{name: "negative saturation", hue: 180, sat: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSetHSV(tt.hue, tt.sat, Sudden())
			if tt.wantErr != (err != nil) {
				t.Errorf("NewSetHSV(%d, %d) error = %v, wantErr %v", tt.hue, tt.sat, err, tt.wantErr)
			}
		})
	}
}

func TestNewSetPower(t *testing.T) {
	on := NewSetPower(true, Sudden())
	if on.Params[0] != "on" {
		t.Errorf("params[0] = %v, want \"on\"", on.Params[0])
	}

	off := NewSetPower(false, Sudden())
	if off.Params[0] != "off" {
		t.Errorf("params[0] = %v, want \"off\"", off.Params[0])
	}
}

func TestRequest_Encode(t *testing.T) {
	smooth, err := Smooth(400 * time.Millisecond)
	if err != nil {
		t.Fatalf("Smooth(400ms) error = %v", err)
	}

	tests := []struct {
		name string
		req  func() (*Request, error)
		id   uint32
		want string
	}{
		{
			name: "set_ct_abx with smooth transition",
			req: func() (*Request, error) {
				return NewSetColorTemp(3500, smooth)
			},
			id:   1,
			want: `{"id":1,"method":"set_ct_abx","params":[3500,"smooth",400]}` + "\r\n",
		},
		{
			name: "toggle carries empty params",
			req: func() (*Request, error) {
				return NewToggle(), nil
			},
			id:   2,
			want: `{"id":2,"method":"toggle","params":[]}` + "\r\n",
		},
		{
			name: "set_power on sudden",
			req: func() (*Request, error) {
				return NewSetPower(true, Sudden()), nil
			},
			id:   7,
			want: `{"id":7,"method":"set_power","params":["on","sudden",0]}` + "\r\n",
		},
		{
			name: "set_hsv ordered params",
			req: func() (*Request, error) {
				return NewSetHSV(180, 60, smooth)
			},
			id:   9,
			want: `{"id":9,"method":"set_hsv","params":[180,60,"smooth",400]}` + "\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := tt.req()
			if err != nil {
				t.Fatalf("building request: %v", err)
			}

			line, err := req.Encode(tt.id)
			if err != nil {
				t.Fatalf("Encode(%d) error = %v", tt.id, err)
			}
			if string(line) != tt.want {
				t.Errorf("Encode(%d) = %q, want %q", tt.id, line, tt.want)
			}
		})
	}
}
