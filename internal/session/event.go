// Package session implements the interactive bridge between the
// operator's terminal and a serial device: two source goroutines feed a
// single event funnel consumed by a dispatcher that forwards, echoes,
// and interprets local commands.
package session

// Control keystrokes recognized by the dispatcher. Only keyboard-origin
// events are matched against these; a device byte with the same value is
// displayed verbatim.
const (
	keyTerminate = 0x18 // Ctrl+X
	keyCommand   = 0x14 // Ctrl+T
)

// Origin identifies which source produced an event.
type Origin int

const (
	// OriginKeyboard marks a raw operator keystroke.
	OriginKeyboard Origin = iota
	// OriginDevice marks a byte received from the serial device.
	OriginDevice
)

// Event is one byte from either source, tagged with its origin.
// Events are immutable once created.
type Event struct {
	Origin Origin
	Byte   byte
}

// Port is the device connection surface the session needs. Poll returns
// (0, nil) on an empty poll; WriteAll blocks until the full buffer is
// written; Reconfigure changes the speed, leaving the connection
// untouched on failure.
type Port interface {
	Poll(p []byte) (int, error)
	WriteAll(p []byte) error
	Reconfigure(baud int) error
}
