// Package serial provides a minimal, Linux-only serial port connection
// for byte-oriented interactive sessions.
//
// A Port is a single shared handle used by both the reading and the
// writing side of a session. Reads go through Poll, which waits at most
// the configured poll timeout and returns zero bytes on an empty poll,
// keeping the reading goroutine responsive to shutdown without
// busy-waiting. Writes are plain blocking writes of the full buffer.
//
// Reconfigure changes the transmission speed by opening a fresh
// descriptor at the new baud rate and swapping it in atomically, so the
// reading and writing side can never observe different speeds. A failed
// Reconfigure leaves the existing descriptor untouched and usable.
//
// Features:
//   - Raw termios-based serial I/O on Linux, no buffering delays
//   - Bounded poll-timeout reads; an empty poll is not an error
//   - Atomic baud reconfiguration shared by readers and writers
//   - Self-pipe mechanism so Close and Reconfigure unblock pollers
//   - PTY-based tests for reliability
//
// This package does **not** support Windows.
//
// Example usage:
//
//	port, err := serial.Open("/dev/ttyUSB0", 115200, 10*time.Millisecond)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
//	buf := make([]byte, 1024)
//	for {
//	    n, err := port.Poll(buf)
//	    if err != nil {
//	        break
//	    }
//	    if n == 0 {
//	        continue // empty poll
//	    }
//	    os.Stdout.Write(buf[:n])
//	}
package serial
