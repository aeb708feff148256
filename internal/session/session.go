package session

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// funnelDepth is the event queue capacity. Both sources share the one
// sender side; the dispatcher is the sole receiver.
const funnelDepth = 1024

// Config carries the collaborators a Session bridges.
type Config struct {
	Port       Port
	Input      io.Reader // raw keyboard stream
	Display    io.Writer
	ReadBuffer int // per-poll device read size
	Logger     zerolog.Logger
}

// Session owns the event funnel, both source goroutines, and the
// dispatcher for one interactive bridge.
type Session struct {
	cfg Config
}

// New builds a session from its collaborators.
func New(cfg Config) *Session {
	return &Session{cfg: cfg}
}

// Run bridges the terminal and the device until the operator terminates
// the session (ErrTerminated), the input stream ends, or ctx is
// cancelled. The device reader is joined before returning; the keyboard
// reader stops itself on the terminate keystroke or input failure.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan Event, funnelDepth)
	keyboard := NewKeyboardSource(s.cfg.Input, events)
	dispatcher := NewDispatcher(s.cfg.Port, s.cfg.Display, keyboard, events, s.cfg.Logger)

	device := NewDeviceSource(s.cfg.Port, events, s.cfg.ReadBuffer, func(err error) {
		s.cfg.Logger.Error().Err(err).Msg("device read failed")
		dispatcher.Report("Error reading from port: %v", err)
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		device.Run(ctx)
	}()
	go keyboard.Run()

	err := dispatcher.Run(ctx)

	cancel()
	wg.Wait()
	s.cfg.Logger.Debug().Err(err).Msg("session ended")
	return err
}
