package ui

import (
	"fmt"
	"strings"

	"github.com/muurk/yeelight/internal/discovery"
)

// RenderDeviceTable renders discovered bulbs as an aligned table
func RenderDeviceTable(devices []*discovery.Device) string {
	if len(devices) == 0 {
		return MutedStyle.Render("No bulbs found.")
	}

	var sb strings.Builder
	sb.WriteString(HeaderRowStyle.Render(fmt.Sprintf("%-4s %-22s %-10s %-8s %-8s %s",
		"#", "ADDRESS", "MODEL", "POWER", "BRIGHT", "ID")))
	sb.WriteString("\n")

	for i, device := range devices {
		row := fmt.Sprintf("%-4d %-22s %-10s %-8s %-8s %s",
			i+1,
			device.Address(),
			orDash(device.Model()),
			orDash(device.Property(discovery.PropPower)),
			orDash(device.Property(discovery.PropBright)),
			device.ID,
		)
		sb.WriteString(ValueStyle.Render(row))
		sb.WriteString("\n")

		if name := device.Name(); name != "" {
			sb.WriteString(MutedStyle.Render(fmt.Sprintf("     name: %s", name)))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// RenderSuccess renders a one-line success result
func RenderSuccess(message string) string {
	return SuccessStyle.Render(SuccessMarker+" ") + ValueStyle.Render(message)
}

// RenderError renders a one-line failure result
func RenderError(message string, err error) string {
	line := ErrorStyle.Render(FailureMarker+" ") + ValueStyle.Render(message)
	if err != nil {
		line += "\n" + MutedStyle.Render("  "+err.Error())
	}
	return line
}

// RenderDetail renders an aligned key/value detail line
func RenderDetail(key, value string) string {
	return KeyStyle.Render(key+":") + " " + ValueStyle.Render(value)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
