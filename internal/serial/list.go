package serial

import (
	"fmt"

	"go.bug.st/serial/enumerator"
)

// allow tests to override external dependencies
var detailedPortsList = enumerator.GetDetailedPortsList

// PortInfo describes one available serial device for presentation.
type PortInfo struct {
	Name   string // device path, e.g. /dev/ttyUSB0
	Kind   string // "USB" or "Unknown"
	Detail string // VID/PID and product for USB ports, "N/A" otherwise
}

// ListPorts enumerates the serial devices present on the system.
// An empty result is not an error.
func ListPorts() ([]PortInfo, error) {
	ports, err := detailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("listing ports: %w", err)
	}

	infos := make([]PortInfo, 0, len(ports))
	for _, p := range ports {
		// The enumerator only discriminates USB ports; Bluetooth and
		// PCI devices fall into the Unknown bucket.
		info := PortInfo{Name: p.Name, Kind: "Unknown", Detail: "N/A"}
		if p.IsUSB {
			info.Kind = "USB"
			info.Detail = fmt.Sprintf("VID:%s PID:%s", p.VID, p.PID)
			if p.Product != "" {
				info.Detail += " " + p.Product
			}
		}
		infos = append(infos, info)
	}
	return infos, nil
}
