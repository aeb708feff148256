package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// ErrTerminated reports a normal, operator-initiated session end.
var ErrTerminated = errors.New("session terminated")

// Mode is the dispatcher's command-mode state.
type Mode int

const (
	// ModeNormal forwards keystrokes to the device.
	ModeNormal Mode = iota
	// ModeCommand interprets the next keystroke as a local directive.
	ModeCommand
)

// LineReader supplies prompted line input without competing with the
// keyboard source for the input stream.
type LineReader interface {
	ReadLine() (string, error)
}

// Dispatcher is the single consumer of the event funnel. It owns the
// command-mode state and the write side of the port, and performs all
// display writes.
type Dispatcher struct {
	port   Port
	keys   LineReader
	events <-chan Event
	log    zerolog.Logger

	mu   sync.Mutex // guards out; Report may run on another goroutine
	out  *bufio.Writer
	mode Mode
}

// NewDispatcher builds a dispatcher writing to display. keys serves the
// baud prompt of the 'b' command.
func NewDispatcher(port Port, display io.Writer, keys LineReader, events <-chan Event, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		port:   port,
		keys:   keys,
		events: events,
		log:    log,
		out:    bufio.NewWriter(display),
	}
}

// Report writes a one-line message into the session's display stream,
// prefixed by a line break. Safe to call from source goroutines.
func (d *Dispatcher) Report(format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.out, "\r\n"+format+"\r\n", args...)
	d.out.Flush()
}

// Run consumes events until the terminate keystroke (ErrTerminated),
// funnel close (nil), or context cancellation.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-d.events:
			if !ok {
				return nil
			}
			if err := d.handle(ev); err != nil {
				return err
			}
		}
	}
}

func (d *Dispatcher) handle(ev Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Device output is never subject to command interpretation.
	if ev.Origin == OriginDevice {
		d.out.WriteByte(ev.Byte)
		d.out.Flush()
		return nil
	}

	switch ev.Byte {
	case keyTerminate:
		fmt.Fprintf(d.out, "\r\nExiting...\r\n")
		d.out.Flush()
		return ErrTerminated
	case keyCommand:
		d.mode = ModeCommand
		fmt.Fprintf(d.out, "\r\n[Command Mode] ")
		d.out.Flush()
		return nil
	}

	if d.mode == ModeCommand {
		d.runCommand(ev.Byte)
		d.mode = ModeNormal
		fmt.Fprintf(d.out, "[Terminal Mode]\r\n")
		d.out.Flush()
		return nil
	}

	if err := d.port.WriteAll([]byte{ev.Byte}); err != nil {
		fmt.Fprintf(d.out, "\r\nError writing to port: %v\r\n", err)
	} else {
		d.out.WriteByte(ev.Byte)
	}
	d.out.Flush()
	return nil
}

// runCommand executes one command-mode keystroke. The caller returns
// the machine to Normal unconditionally afterwards.
func (d *Dispatcher) runCommand(b byte) {
	switch b {
	case 'b':
		d.changeBaud()
	case 'c':
		// Clear screen and move cursor to top
		d.out.WriteString("\x1b[2J\x1b[1;1H")
	default:
		fmt.Fprintf(d.out, "\r\nUnknown command\r\n")
	}
}

func (d *Dispatcher) changeBaud() {
	fmt.Fprintf(d.out, "\r\nEnter new baud rate: ")
	d.out.Flush()

	line, err := d.keys.ReadLine()
	if err != nil {
		fmt.Fprintf(d.out, "\r\nInput unavailable\r\n")
		return
	}
	baud, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || baud <= 0 {
		fmt.Fprintf(d.out, "\r\nInvalid baud rate\r\n")
		return
	}

	fmt.Fprintf(d.out, "\r\nChanging baud rate to %d\r\n", baud)
	if err := d.port.Reconfigure(baud); err != nil {
		// The previous connection stays in place untouched.
		fmt.Fprintf(d.out, "\r\nFailed to change baud rate: %v\r\n", err)
		d.log.Warn().Err(err).Int("baud", baud).Msg("baud change failed")
		return
	}
	d.log.Info().Int("baud", baud).Msg("baud changed")
}
