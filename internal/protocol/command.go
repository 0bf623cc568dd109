package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Method identifies a bulb control method.
type Method string

// Supported control methods. The set is closed: the bulb advertises its
// supported methods in the discovery reply, and only these six have builders.
// Adding a new one means a new constant and a new builder.
const (
	MethodSetColorTemp Method = "set_ct_abx"
	MethodSetRGB       Method = "set_rgb"
	MethodSetHSV       Method = "set_hsv"
	MethodSetBright    Method = "set_bright"
	MethodSetPower     Method = "set_power"
	MethodToggle       Method = "toggle"
)

// Parameter ranges accepted by bulb firmware.
const (
	MinBright    = 1
	MaxBright    = 100
	MinColorTemp = 1700
	MaxColorTemp = 6500
	MinRGB       = 0
	MaxRGB       = 0xFFFFFF
	MinHue       = 0
	MaxHue       = 359
	MinSat       = 0
	MaxSat       = 100
)

// ErrInvalidParameter indicates a command parameter outside the range the
// firmware accepts. Validation happens locally, before anything is sent:
// a doomed request never consumes a correlation id.
var ErrInvalidParameter = errors.New("invalid command parameter")

// Request is a validated command that has not yet been assigned a
// correlation id. Build one with the New* constructors; constructing a
// Request directly bypasses parameter validation.
type Request struct {
	Method Method
	Params []any
}

// NewSetPower builds a set_power request.
func NewSetPower(on bool, e Effect) *Request {
	state := "off"
	if on {
		state = "on"
	}
	mode, ms := e.Params()
	return &Request{Method: MethodSetPower, Params: []any{state, mode, ms}}
}

// NewSetBright builds a set_bright request. Level is a percentage in 1-100.
func NewSetBright(level int, e Effect) (*Request, error) {
	if level < MinBright || level > MaxBright {
		return nil, fmt.Errorf("%w: brightness %d outside %d-%d", ErrInvalidParameter, level, MinBright, MaxBright)
	}
	mode, ms := e.Params()
	return &Request{Method: MethodSetBright, Params: []any{level, mode, ms}}, nil
}

// NewSetColorTemp builds a set_ct_abx request. Kelvin must be in 1700-6500.
func NewSetColorTemp(kelvin int, e Effect) (*Request, error) {
	if kelvin < MinColorTemp || kelvin > MaxColorTemp {
		return nil, fmt.Errorf("%w: color temperature %dK outside %d-%d", ErrInvalidParameter, kelvin, MinColorTemp, MaxColorTemp)
	}
	mode, ms := e.Params()
	return &Request{Method: MethodSetColorTemp, Params: []any{kelvin, mode, ms}}, nil
}

// NewSetRGB builds a set_rgb request. Value is a packed 0xRRGGBB integer.
func NewSetRGB(value int, e Effect) (*Request, error) {
	if value < MinRGB || value > MaxRGB {
		return nil, fmt.Errorf("%w: rgb value 0x%X outside 0x%06X-0x%06X", ErrInvalidParameter, value, MinRGB, MaxRGB)
	}
	mode, ms := e.Params()
	return &Request{Method: MethodSetRGB, Params: []any{value, mode, ms}}, nil
}

// RGB packs three 8-bit color components into the integer form set_rgb takes.
func RGB(r, g, b uint8) int {
	return int(r)<<16 | int(g)<<8 | int(b)
}

// NewSetHSV builds a set_hsv request. Hue is in 0-359, saturation in 0-100.
func NewSetHSV(hue, sat int, e Effect) (*Request, error) {
	if hue < MinHue || hue > MaxHue {
		return nil, fmt.Errorf("%w: hue %d outside %d-%d", ErrInvalidParameter, hue, MinHue, MaxHue)
	}
	if sat < MinSat || sat > MaxSat {
		return nil, fmt.Errorf("%w: saturation %d outside %d-%d", ErrInvalidParameter, sat, MinSat, MaxSat)
	}
	mode, ms := e.Params()
	return &Request{Method: MethodSetHSV, Params: []any{hue, sat, mode, ms}}, nil
}

// NewToggle builds a toggle request. Toggle carries no parameters.
func NewToggle() *Request {
	return &Request{Method: MethodToggle, Params: []any{}}
}

// wireCommand fixes the field order of the encoded line: id, method, params.
type wireCommand struct {
	ID     uint32 `json:"id"`
	Method Method `json:"method"`
	Params []any  `json:"params"`
}

// Encode serializes the request with the given correlation id as a single
// CRLF-terminated JSON line. Encoding is pure; it performs no I/O.
func (r *Request) Encode(id uint32) ([]byte, error) {
	params := r.Params
	if params == nil {
		params = []any{}
	}
	data, err := json.Marshal(wireCommand{ID: id, Method: r.Method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s command: %w", r.Method, err)
	}
	return append(data, '\r', '\n'), nil
}
