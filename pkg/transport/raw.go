package transport

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/mkrueger/icy-term-go/internal/coreerr"
	"github.com/mkrueger/icy-term-go/internal/logx"
)

// dialTimeout bounds how long Connect waits for the TCP handshake before
// giving up, independent of any deadline on ctx.
const dialTimeout = 15 * time.Second

// Raw is a plain TCP Transport: bytes pass through unmodified, no option
// negotiation, the BBS-scene "direct connect" dialect.
type Raw struct {
	addr string
	log  *logx.Logger

	mu     sync.Mutex
	conn   net.Conn
	status Status
}

// NewRaw builds an unconnected Raw transport for addr ("host:port").
func NewRaw(addr string, log *logx.Logger) (Transport, error) {
	return &Raw{addr: addr, log: log}, nil
}

func (r *Raw) Connect(ctx context.Context) error {
	r.mu.Lock()
	r.status = StatusConnecting
	r.mu.Unlock()

	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", r.addr)
	if err != nil {
		r.mu.Lock()
		r.status = StatusDisconnected
		r.mu.Unlock()
		return coreerr.Wrap(coreerr.ConnectionLost, "raw: dial "+r.addr, err)
	}
	r.log.Debugf("raw: connected to %s", r.addr)

	r.mu.Lock()
	r.conn = conn
	r.status = StatusConnected
	r.mu.Unlock()
	return nil
}

func (r *Raw) Read(p []byte) (int, error) {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil {
		return 0, coreerr.New(coreerr.ConnectionLost, "raw: not connected")
	}
	return conn.Read(p)
}

func (r *Raw) Write(p []byte) (int, error) {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil {
		return 0, coreerr.New(coreerr.ConnectionLost, "raw: not connected")
	}
	return conn.Write(p)
}

func (r *Raw) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = StatusClosing
	if r.conn == nil {
		r.status = StatusDisconnected
		return nil
	}
	err := r.conn.Close()
	r.status = StatusDisconnected
	return err
}

func (r *Raw) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}
