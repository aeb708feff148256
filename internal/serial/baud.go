package serial

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// ErrUnsupportedBaud is returned when a requested speed has no termios
// constant. Opening or reconfiguring at such a speed fails instead of
// silently connecting at a different rate.
var ErrUnsupportedBaud = errors.New("unsupported baud rate")

// SupportedBauds lists the speeds accepted by Open and Reconfigure,
// in ascending order.
func SupportedBauds() []int {
	return []int{9600, 19200, 38400, 57600, 115200, 230400}
}

func baudToUnix(baud int) (uint32, error) {
	switch baud {
	case 9600:
		return unix.B9600, nil
	case 19200:
		return unix.B19200, nil
	case 38400:
		return unix.B38400, nil
	case 57600:
		return unix.B57600, nil
	case 115200:
		return unix.B115200, nil
	case 230400:
		return unix.B230400, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedBaud, baud)
	}
}
