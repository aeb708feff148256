package session

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func startKeyboard(t *testing.T) (*io.PipeWriter, *KeyboardSource, chan Event) {
	t.Helper()
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close(); pr.Close() })

	events := make(chan Event, funnelDepth)
	kb := NewKeyboardSource(pr, events)
	go kb.Run()
	return pw, kb, events
}

func nextEvent(t *testing.T, events chan Event) Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
		return Event{}
	}
}

func TestKeyboardEmitsBytesInOrder(t *testing.T) {
	pw, _, events := startKeyboard(t)

	_, err := pw.Write([]byte("AB"))
	require.NoError(t, err)

	require.Equal(t, Event{Origin: OriginKeyboard, Byte: 'A'}, nextEvent(t, events))
	require.Equal(t, Event{Origin: OriginKeyboard, Byte: 'B'}, nextEvent(t, events))
}

func TestKeyboardStopsAfterTerminate(t *testing.T) {
	pw, kb, events := startKeyboard(t)

	_, err := pw.Write([]byte{keyTerminate})
	require.NoError(t, err)

	// The terminate keystroke is still forwarded before the loop ends.
	require.Equal(t, Event{Origin: OriginKeyboard, Byte: keyTerminate}, nextEvent(t, events))

	select {
	case <-kb.Done():
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for keyboard source to stop")
	}
}

func TestKeyboardStopsSilentlyOnReadError(t *testing.T) {
	pw, kb, events := startKeyboard(t)

	require.NoError(t, pw.Close())

	select {
	case <-kb.Done():
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for keyboard source to stop")
	}
	require.Empty(t, events)
}

func TestReadLineCollectsUntilReturn(t *testing.T) {
	pw, kb, events := startKeyboard(t)

	type result struct {
		line string
		err  error
	}
	lines := make(chan result, 1)
	go func() {
		line, err := kb.ReadLine()
		lines <- result{line, err}
	}()

	// Give the request a moment to land, then type the line with a typo
	// fixed by backspace.
	time.Sleep(20 * time.Millisecond)
	_, err := pw.Write([]byte("9601\x7f0\r"))
	require.NoError(t, err)

	select {
	case res := <-lines:
		require.NoError(t, res.err)
		require.Equal(t, "9600", res.line)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for line")
	}

	// Line entry bytes were consumed, not emitted as events.
	require.Empty(t, events)

	// Normal keystrokes flow again afterwards.
	_, err = pw.Write([]byte{'x'})
	require.NoError(t, err)
	require.Equal(t, Event{Origin: OriginKeyboard, Byte: 'x'}, nextEvent(t, events))
}

func TestReadLineServedWhileFunnelFull(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close(); pr.Close() })

	// A backed-up funnel with nobody draining it: the dispatcher is
	// about to park in ReadLine.
	events := make(chan Event, 1)
	events <- Event{Origin: OriginDevice, Byte: 'x'}
	kb := NewKeyboardSource(pr, events)
	go kb.Run()

	// This keystroke blocks the loop in the funnel send.
	_, err := pw.Write([]byte{'a'})
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	type result struct {
		line string
		err  error
	}
	lines := make(chan result, 1)
	go func() {
		line, err := kb.ReadLine()
		lines <- result{line, err}
	}()

	time.Sleep(20 * time.Millisecond)
	_, err = pw.Write([]byte("9600\r"))
	require.NoError(t, err)

	select {
	case res := <-lines:
		require.NoError(t, res.err)
		// The keystroke caught mid-send becomes type-ahead for the
		// prompt instead of wedging the loop.
		require.Equal(t, "a9600", res.line)
	case <-time.After(time.Second):
		t.Fatal("line request starved by a full funnel")
	}
}

func TestReadLineFailsWhenInputClosed(t *testing.T) {
	pw, kb, _ := startKeyboard(t)

	require.NoError(t, pw.Close())
	<-kb.Done()

	_, err := kb.ReadLine()
	require.ErrorIs(t, err, ErrInputClosed)
}
