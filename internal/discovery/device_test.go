package discovery

import (
	"testing"
)

func TestDevice_String(t *testing.T) {
	device := &Device{
		ID:   "0x000000000015243f",
		Host: "192.168.1.239",
		Port: 55443,
		Properties: map[string]string{
			PropModel: "color",
		},
	}

	expected := "Yeelight 0x000000000015243f (color) at 192.168.1.239:55443"
	if device.String() != expected {
		t.Errorf("Device.String() = %v, want %v", device.String(), expected)
	}
}

func TestDevice_Address(t *testing.T) {
	tests := []struct {
		name     string
		device   *Device
		expected string
	}{
		{
			name: "standard control port",
			device: &Device{
				Host: "192.168.1.239",
				Port: 55443,
			},
			expected: "192.168.1.239:55443",
		},
		{
			name: "custom port",
			device: &Device{
				Host: "10.0.0.5",
				Port: 8080,
			},
			expected: "10.0.0.5:8080",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.device.Address(); got != tt.expected {
				t.Errorf("Device.Address() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDevice_Supports(t *testing.T) {
	device := &Device{
		Support: []string{"get_prop", "set_power", "toggle", "set_bright"},
	}

	if !device.Supports("toggle") {
		t.Error("Supports(toggle) = false, want true")
	}
	if device.Supports("set_music") {
		t.Error("Supports(set_music) = true, want false")
	}
}

func TestDevice_Property(t *testing.T) {
	device := &Device{
		Properties: map[string]string{
			PropPower:  "on",
			PropBright: "100",
			PropModel:  "color",
			PropFWVer:  "18",
		},
	}

	if got := device.Property(PropPower); got != "on" {
		t.Errorf("Property(power) = %v, want on", got)
	}
	if got := device.Property("nonexistent"); got != "" {
		t.Errorf("Property(nonexistent) = %v, want empty string", got)
	}
	if got := device.Model(); got != "color" {
		t.Errorf("Model() = %v, want color", got)
	}
	if got := device.FirmwareVersion(); got != "18" {
		t.Errorf("FirmwareVersion() = %v, want 18", got)
	}

	// Nil map should not panic
	empty := &Device{}
	if got := empty.Property(PropPower); got != "" {
		t.Errorf("Property on empty device = %v, want empty string", got)
	}
}
