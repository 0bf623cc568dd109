package emulator

import (
	"fmt"

	"github.com/muurk/yeelight/internal/protocol"
)

// Color modes reported by bulb firmware.
const (
	ColorModeRGB = 1
	ColorModeCT  = 2
	ColorModeHSV = 3
)

// State is the emulated bulb's mutable lighting state.
type State struct {
	Power     string // "on" or "off"
	Bright    int
	CT        int
	RGB       int
	Hue       int
	Sat       int
	ColorMode int
	Name      string
}

// defaultState mirrors a factory-fresh color bulb.
func defaultState() State {
	return State{
		Power:     "on",
		Bright:    100,
		CT:        4000,
		RGB:       0xFFFFFF,
		Hue:       0,
		Sat:       0,
		ColorMode: ColorModeCT,
	}
}

// errInvalidParams mirrors the firmware's reply to out-of-range or
// missing parameters.
func errInvalidParams() *protocol.Error {
	return &protocol.Error{Code: -1, Message: "invalid params"}
}

// apply mutates the state per one command and returns the changed
// property key/value pairs, or the error envelope the firmware would send.
// Parameters arrive as decoded JSON values, so numbers are float64.
func (s *State) apply(method string, params []any) (map[string]any, *protocol.Error) {
	switch method {
	case string(protocol.MethodSetPower):
		state, ok := stringParam(params, 0)
		if !ok || (state != "on" && state != "off") {
			return nil, errInvalidParams()
		}
		s.Power = state
		return map[string]any{"power": s.Power}, nil

	case string(protocol.MethodToggle):
		if s.Power == "on" {
			s.Power = "off"
		} else {
			s.Power = "on"
		}
		return map[string]any{"power": s.Power}, nil

	case string(protocol.MethodSetBright):
		level, ok := intParam(params, 0)
		if !ok || level < protocol.MinBright || level > protocol.MaxBright {
			return nil, errInvalidParams()
		}
		s.Bright = level
		return map[string]any{"bright": s.Bright}, nil

	case string(protocol.MethodSetColorTemp):
		kelvin, ok := intParam(params, 0)
		if !ok || kelvin < protocol.MinColorTemp || kelvin > protocol.MaxColorTemp {
			return nil, errInvalidParams()
		}
		s.CT = kelvin
		s.ColorMode = ColorModeCT
		return map[string]any{"ct": s.CT, "color_mode": s.ColorMode}, nil

	case string(protocol.MethodSetRGB):
		value, ok := intParam(params, 0)
		if !ok || value < protocol.MinRGB || value > protocol.MaxRGB {
			return nil, errInvalidParams()
		}
		s.RGB = value
		s.ColorMode = ColorModeRGB
		return map[string]any{"rgb": s.RGB, "color_mode": s.ColorMode}, nil

	case string(protocol.MethodSetHSV):
		hue, hok := intParam(params, 0)
		sat, sok := intParam(params, 1)
		if !hok || !sok ||
			hue < protocol.MinHue || hue > protocol.MaxHue ||
			sat < protocol.MinSat || sat > protocol.MaxSat {
			return nil, errInvalidParams()
		}
		s.Hue = hue
		s.Sat = sat
		s.ColorMode = ColorModeHSV
		return map[string]any{"hue": s.Hue, "sat": s.Sat, "color_mode": s.ColorMode}, nil

	default:
		return nil, &protocol.Error{Code: -1, Message: fmt.Sprintf("method %s not supported", method)}
	}
}

func stringParam(params []any, i int) (string, bool) {
	if i >= len(params) {
		return "", false
	}
	s, ok := params[i].(string)
	return s, ok
}

func intParam(params []any, i int) (int, bool) {
	if i >= len(params) {
		return 0, false
	}
	f, ok := params[i].(float64)
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}
