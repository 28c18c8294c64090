//go:build linux

package transport

import (
	"context"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/mkrueger/icy-term-go/internal/coreerr"
	"github.com/mkrueger/icy-term-go/internal/logx"
)

// baudToUnix maps the common BBS-era bauds onto their termios constants;
// anything absent here falls back to 9600.
var baudToUnix = map[int]uint32{
	300: unix.B300, 1200: unix.B1200, 2400: unix.B2400, 4800: unix.B4800,
	9600: unix.B9600, 19200: unix.B19200, 38400: unix.B38400,
	57600: unix.B57600, 115200: unix.B115200,
}

// Serial is a Transport over a local serial device (e.g. /dev/ttyUSB0),
// configured 8-N-1 with no flow control, the RS-232 convention every BBS
// null-modem/modem link assumes.
type Serial struct {
	device string
	baud   int
	log    *logx.Logger

	mu     sync.Mutex
	f      *os.File
	status Status
}

// NewSerial builds an unconnected Serial transport for device at baud.
func NewSerial(device string, baud int) *Serial {
	return &Serial{device: device, baud: baud}
}

func (s *Serial) Connect(ctx context.Context) error {
	s.mu.Lock()
	s.status = StatusConnecting
	s.mu.Unlock()

	f, err := os.OpenFile(s.device, os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		s.fail()
		return coreerr.Wrap(coreerr.IOError, "serial: open "+s.device, err)
	}
	rate, ok := baudToUnix[s.baud]
	if !ok {
		rate = unix.B9600
	}
	t := unix.Termios{
		Iflag: unix.IGNPAR,
		Cflag: unix.CS8 | unix.CREAD | unix.CLOCAL | rate,
	}
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(int(f.Fd()), unix.TCSETS, &t); err != nil {
		f.Close()
		s.fail()
		return coreerr.Wrap(coreerr.IOError, "serial: set termios", err)
	}

	s.mu.Lock()
	s.f = f
	s.status = StatusConnected
	s.mu.Unlock()
	return nil
}

func (s *Serial) fail() {
	s.mu.Lock()
	s.status = StatusDisconnected
	s.mu.Unlock()
}

func (s *Serial) Read(p []byte) (int, error) {
	s.mu.Lock()
	f := s.f
	s.mu.Unlock()
	if f == nil {
		return 0, coreerr.New(coreerr.ConnectionLost, "serial: not connected")
	}
	return f.Read(p)
}

func (s *Serial) Write(p []byte) (int, error) {
	s.mu.Lock()
	f := s.f
	s.mu.Unlock()
	if f == nil {
		return 0, coreerr.New(coreerr.ConnectionLost, "serial: not connected")
	}
	return f.Write(p)
}

func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusClosing
	if s.f == nil {
		s.status = StatusDisconnected
		return nil
	}
	err := s.f.Close()
	s.status = StatusDisconnected
	return err
}

func (s *Serial) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}
