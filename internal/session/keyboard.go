package session

import (
	"errors"
	"io"
)

// ErrInputClosed is returned by ReadLine when the keyboard source has
// stopped, either after the terminate keystroke or on a read error.
var ErrInputClosed = errors.New("session: keyboard input closed")

// KeyboardSource reads raw operator keystrokes and emits one
// keyboard-origin event per byte. It is the only reader of its input
// stream: prompted line entry (ReadLine) is served by the same loop so
// the dispatcher never touches stdin directly.
type KeyboardSource struct {
	in      io.Reader
	events  chan<- Event
	lineReq chan chan string
	done    chan struct{}
}

// NewKeyboardSource wires a raw input stream to the event funnel.
func NewKeyboardSource(in io.Reader, events chan<- Event) *KeyboardSource {
	return &KeyboardSource{
		in:      in,
		events:  events,
		lineReq: make(chan chan string, 1),
		done:    make(chan struct{}),
	}
}

// Done is closed when the read loop has exited.
func (k *KeyboardSource) Done() <-chan struct{} { return k.done }

// ReadLine asks the running loop to collect one CR/LF-terminated line
// instead of emitting events, and blocks until the line is complete.
// Backspace edits the pending line; nothing is echoed.
func (k *KeyboardSource) ReadLine() (string, error) {
	reply := make(chan string, 1)
	select {
	case k.lineReq <- reply:
	case <-k.done:
		return "", ErrInputClosed
	}
	select {
	case line, ok := <-reply:
		if !ok {
			return "", ErrInputClosed
		}
		return line, nil
	case <-k.done:
		// The loop may have answered just before exiting.
		select {
		case line, ok := <-reply:
			if !ok {
				return "", ErrInputClosed
			}
			return line, nil
		default:
			return "", ErrInputClosed
		}
	}
}

// Run reads keystrokes until the terminate byte has been observed and
// forwarded, or until the input stream fails. Read errors end the loop
// silently.
func (k *KeyboardSource) Run() {
	var collecting chan string
	var line []byte
	defer func() {
		if collecting != nil {
			close(collecting)
		}
		close(k.done)
	}()

	buf := make([]byte, 256)
	for {
		n, err := k.in.Read(buf)
		if err != nil {
			return
		}
		for _, b := range buf[:n] {
			if collecting == nil {
				select {
				case collecting = <-k.lineReq:
					line = line[:0]
				default:
				}
			}
			if collecting != nil {
				collecting, line = collectByte(collecting, line, b)
				continue
			}
			// The funnel send must also accept a line request: the
			// dispatcher blocks in ReadLine without draining events,
			// so parking here on a full funnel would freeze the
			// session. A keystroke caught mid-send is treated as
			// type-ahead for the prompt.
			select {
			case k.events <- Event{Origin: OriginKeyboard, Byte: b}:
				if b == keyTerminate {
					return
				}
			case collecting = <-k.lineReq:
				line = line[:0]
				collecting, line = collectByte(collecting, line, b)
			}
		}
	}
}

// collectByte applies one keystroke to the pending line, replying and
// ending collection on CR/LF.
func collectByte(collecting chan string, line []byte, b byte) (chan string, []byte) {
	switch {
	case b == '\r' || b == '\n':
		collecting <- string(line)
		return nil, line
	case b == 0x7f || b == 0x08: // backspace
		if len(line) > 0 {
			line = line[:len(line)-1]
		}
	default:
		line = append(line, b)
	}
	return collecting, line
}
