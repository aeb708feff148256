package session

import (
	"context"
)

// DeviceSource polls the shared port and emits one device-origin event
// per received byte, in order. Empty polls produce nothing. A
// non-timeout error is handed to onError and ends the loop; the rest of
// the session keeps running.
type DeviceSource struct {
	port    Port
	events  chan<- Event
	bufSize int
	onError func(error)
}

// NewDeviceSource wires the port's read side to the event funnel.
// onError may be nil.
func NewDeviceSource(port Port, events chan<- Event, bufSize int, onError func(error)) *DeviceSource {
	if bufSize <= 0 {
		bufSize = 1024
	}
	return &DeviceSource{port: port, events: events, bufSize: bufSize, onError: onError}
}

// Run polls until ctx is cancelled or the port fails. Shutdown latency
// is bounded by the port's poll timeout.
func (d *DeviceSource) Run(ctx context.Context) {
	buf := make([]byte, d.bufSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := d.port.Poll(buf)
		if err != nil {
			if ctx.Err() == nil && d.onError != nil {
				d.onError(err)
			}
			return
		}
		for _, b := range buf[:n] {
			select {
			case d.events <- Event{Origin: OriginDevice, Byte: b}:
			case <-ctx.Done():
				return
			}
		}
	}
}
