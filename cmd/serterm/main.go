// Package main is the entry point for the serterm serial terminal.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/luhtfiimanal/serterm/internal/config"
	"github.com/luhtfiimanal/serterm/internal/serial"
	"github.com/luhtfiimanal/serterm/internal/session"
)

// Version information (set via ldflags during build).
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.FromEnv()

	var flagBaud int
	var showVersion bool
	flag.StringVar(&cfg.Device, "device", cfg.Device, "Serial device path (skips the selection menu)")
	flag.IntVar(&flagBaud, "baud", 0, "Baud rate (skips the rate prompt)")
	flag.StringVar(&cfg.DebugLog, "debug-log", cfg.DebugLog, "Write debug logs to this file")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if showVersion {
		fmt.Printf("serterm %s\n", version)
		return 0
	}

	logger, closeLog := newLogger(cfg.DebugLog)
	defer closeLog()

	stdin := bufio.NewReader(os.Stdin)

	device := cfg.Device
	if device == "" {
		ports, err := serial.ListPorts()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing serial ports: %v\n", err)
			return 1
		}
		if len(ports) == 0 {
			fmt.Println("No serial ports found.")
			return 0
		}
		printPortTable(ports)
		device = selectPort(stdin, ports)
	}

	baud := flagBaud
	if baud == 0 {
		baud = selectBaud(stdin, cfg.Baud)
	}

	fmt.Printf("Opening %s at %d baud\n", device, baud)
	logger.Debug().Str("device", device).Int("baud", baud).Msg("opening port")

	port, err := serial.Open(device, baud, cfg.PollTimeout)
	if err != nil {
		logger.Error().Err(err).Msg("open failed")
		fmt.Fprintf(os.Stderr, "Failed to open port: %v\n", err)
		return 1
	}
	defer port.Close()

	fmt.Println("Serial port opened successfully.")
	fmt.Println("Press Ctrl+X to exit, Ctrl+T for command mode.")
	fmt.Println("Command mode: 'b' to change baud rate, 'c' to clear screen")
	time.Sleep(time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set raw mode: %v\n", err)
		return 1
	}
	defer term.Restore(fd, oldState)

	logger.Info().Str("device", device).Int("baud", baud).Msg("session started")
	err = session.New(session.Config{
		Port:       port,
		Input:      os.Stdin,
		Display:    os.Stdout,
		ReadBuffer: cfg.ReadBuffer,
		Logger:     logger,
	}).Run(ctx)

	term.Restore(fd, oldState)
	logger.Info().Err(err).Msg("session ended")

	switch {
	case err == nil,
		errors.Is(err, session.ErrTerminated),
		errors.Is(err, context.Canceled):
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
}

// newLogger writes debug records to a file so they never corrupt the
// raw-mode display. Without a path it is a no-op logger.
func newLogger(path string) (zerolog.Logger, func()) {
	if path == "" {
		return zerolog.Nop(), func() {}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: cannot open debug log: %v\n", err)
		return zerolog.Nop(), func() {}
	}
	logger := zerolog.New(f).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	return logger, func() { f.Close() }
}

// printPortTable renders the available ports in a table sized for an
// 80x24 terminal.
func printPortTable(ports []serial.PortInfo) {
	fmt.Println("\nAvailable serial ports:")
	fmt.Println("┌─────┬──────────────────┬──────────┬──────────────────────────┐")
	fmt.Println("│ Idx │ Port Name        │ Type     │ Details                  │")
	fmt.Println("├─────┼──────────────────┼──────────┼──────────────────────────┤")
	for i, p := range ports {
		fmt.Printf("│ %3d │ %s │ %-8s │ %s │\n",
			i, clip(p.Name, 16), p.Kind, clip(p.Detail, 24))
	}
	fmt.Println("└─────┴──────────────────┴──────────┴──────────────────────────┘")
}

// clip truncates s with an ellipsis or pads it to exactly width.
func clip(s string, width int) string {
	if len(s) > width {
		return s[:width-3] + "..."
	}
	return fmt.Sprintf("%-*s", width, s)
}

// selectPort prompts for a port index, defaulting to 0 on malformed or
// out-of-range input.
func selectPort(stdin *bufio.Reader, ports []serial.PortInfo) string {
	fmt.Printf("Select port [0-%d]: ", len(ports)-1)
	idx := readUint(stdin, 0)
	if idx >= len(ports) {
		fmt.Println("Invalid selection, using port 0.")
		idx = 0
	}
	return ports[idx].Name
}

// selectBaud prompts for a baud rate with the configured default.
func selectBaud(stdin *bufio.Reader, def int) int {
	rates := make([]string, 0, len(serial.SupportedBauds()))
	for _, b := range serial.SupportedBauds() {
		rates = append(rates, strconv.Itoa(b))
	}
	fmt.Printf("\nAvailable baud rates: %s\n", strings.Join(rates, ", "))
	fmt.Printf("Select baud rate [%d]: ", def)
	return readUint(stdin, def)
}

// readUint reads one line and parses it as an unsigned integer, falling
// back to def on malformed input.
func readUint(stdin *bufio.Reader, def int) int {
	line, err := stdin.ReadString('\n')
	if err != nil {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || n < 0 {
		return def
	}
	return n
}
