//go:build !linux

package transport

import (
	"context"
	"sync"

	"github.com/mkrueger/icy-term-go/internal/coreerr"
)

// Serial is a stub on platforms where this module doesn't yet implement
// termios configuration (only linux's IoctlSetTermios path is wired);
// Connect always fails rather than silently running unconfigured.
type Serial struct {
	device string
	baud   int
	mu     sync.Mutex
	status Status
}

func NewSerial(device string, baud int) *Serial {
	return &Serial{device: device, baud: baud}
}

func (s *Serial) Connect(ctx context.Context) error {
	return coreerr.New(coreerr.IOError, "serial: unsupported on this platform")
}

func (s *Serial) Read(p []byte) (int, error) {
	return 0, coreerr.New(coreerr.ConnectionLost, "serial: not connected")
}

func (s *Serial) Write(p []byte) (int, error) {
	return 0, coreerr.New(coreerr.ConnectionLost, "serial: not connected")
}

func (s *Serial) Close() error { return nil }

func (s *Serial) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}
