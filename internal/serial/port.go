package serial

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// ErrClosed is returned by Poll and WriteAll after Close.
var ErrClosed = errors.New("serial: port closed")

// Port is a live connection to a serial device at a given speed.
// It is safe for concurrent use: one goroutine may sit in Poll while
// another calls WriteAll or Reconfigure.
type Port struct {
	mu   sync.RWMutex
	fd   int
	file *os.File
	gen  uint64 // bumped on every descriptor swap
	baud int

	name    string
	timeout time.Duration

	done      chan struct{}
	closeOnce sync.Once
	pipeR     int // self-pipe read fd
	pipeW     int // self-pipe write fd
}

// Open opens the named device at the given baud rate. The port is
// configured for raw, low-latency, non-buffered operation. timeout
// bounds each Poll call; it must be positive.
func Open(name string, baud int, timeout time.Duration) (*Port, error) {
	fd, err := openFd(name, baud)
	if err != nil {
		return nil, err
	}

	// Create self-pipe so Close and Reconfigure can wake pollers
	pipeFds := make([]int, 2)
	if err := unix.Pipe(pipeFds); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("pipe: %w", err)
	}

	return &Port{
		fd:      fd,
		file:    os.NewFile(uintptr(fd), name),
		baud:    baud,
		name:    name,
		timeout: timeout,
		done:    make(chan struct{}),
		pipeR:   pipeFds[0],
		pipeW:   pipeFds[1],
	}, nil
}

// openFd opens and configures a raw descriptor for the device.
func openFd(name string, baud int) (int, error) {
	rate, err := baudToUnix(baud)
	if err != nil {
		return -1, err
	}

	fd, err := syscall.Open(name, syscall.O_RDWR|syscall.O_NOCTTY|syscall.O_NONBLOCK, 0666)
	if err != nil {
		return -1, fmt.Errorf("open %s: %w", name, err)
	}

	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		syscall.Close(fd)
		return -1, fmt.Errorf("get termios: %w", err)
	}

	// Raw mode
	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	termios.Oflag &^= unix.OPOST
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	termios.Cflag &^= unix.CSIZE | unix.PARENB
	termios.Cflag |= unix.CS8

	termios.Cflag &^= unix.CBAUD
	termios.Cflag |= rate

	// VMIN=1, VTIME=0: Poll decides the wait, reads return immediately
	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		syscall.Close(fd)
		return -1, fmt.Errorf("set termios: %w", err)
	}

	// Turn back into blocking mode now that config is done
	syscall.SetNonblock(fd, false)

	return fd, nil
}

// Name returns the device path the port was opened with.
func (p *Port) Name() string { return p.name }

// Baud returns the current transmission speed.
func (p *Port) Baud() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.baud
}

// Poll waits up to the configured timeout for readable data and fills
// buf with whatever arrived. An empty poll returns (0, nil); it is a
// normal outcome, not an error. Poll returns early with (0, nil) when
// Reconfigure swaps the descriptor, and with ErrClosed after Close.
func (p *Port) Poll(buf []byte) (int, error) {
	p.mu.RLock()
	fd, gen := p.fd, p.gen
	p.mu.RUnlock()

	pfd := []unix.PollFd{
		{Fd: int32(fd), Events: unix.POLLIN},
		{Fd: int32(p.pipeR), Events: unix.POLLIN},
	}
	// Sub-millisecond timeouts would truncate to 0 and busy-spin.
	timeoutMs := int(p.timeout.Milliseconds())
	if timeoutMs < 1 {
		timeoutMs = 1
	}
	n, err := unix.Poll(pfd, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}

	select {
	case <-p.done:
		return 0, ErrClosed
	default:
	}

	if pfd[1].Revents&unix.POLLIN != 0 {
		// Drain pipe; the descriptor was swapped under us.
		var b [1]byte
		unix.Read(p.pipeR, b[:])
		return 0, nil
	}

	if n == 0 || pfd[0].Revents == 0 {
		return 0, nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.gen != gen || p.file == nil {
		return 0, nil
	}
	// Covers POLLIN as well as POLLERR/POLLHUP, where the read
	// surfaces the real errno.
	rn, rerr := p.file.Read(buf)
	if rerr != nil {
		return rn, fmt.Errorf("read %s: %w", p.name, rerr)
	}
	return rn, nil
}

// WriteAll writes the full byte sequence, blocking until done.
func (p *Port) WriteAll(b []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.file == nil {
		return ErrClosed
	}
	for len(b) > 0 {
		n, err := p.file.Write(b)
		if err != nil {
			return fmt.Errorf("write %s: %w", p.name, err)
		}
		b = b[n:]
	}
	return nil
}

// Reconfigure reopens the device at a new baud rate and swaps the
// descriptor atomically, waking any goroutine blocked in Poll so it
// never sleeps on the replaced descriptor. On failure the current
// descriptor is untouched and the port remains usable at the old speed.
func (p *Port) Reconfigure(baud int) error {
	fd, err := openFd(p.name, baud)
	if err != nil {
		return err
	}
	file := os.NewFile(uintptr(fd), p.name)

	p.mu.Lock()
	old := p.file
	p.fd = fd
	p.file = file
	p.baud = baud
	p.gen++
	p.mu.Unlock()

	// Wake a poller sleeping on the old descriptor
	unix.Write(p.pipeW, []byte{1})

	if old != nil {
		old.Close()
	}
	return nil
}

// Close closes the port and unblocks any Poll in flight.
// Safe to call multiple times; subsequent calls are no-ops.
func (p *Port) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		// Wake up poll using self-pipe
		if p.pipeW > 0 {
			unix.Write(p.pipeW, []byte{1})
		}
		p.mu.Lock()
		if p.file != nil {
			err = p.file.Close()
			p.file = nil
		}
		p.mu.Unlock()
		if p.pipeR > 0 {
			unix.Close(p.pipeR)
		}
		if p.pipeW > 0 {
			unix.Close(p.pipeW)
		}
	})
	return err
}
