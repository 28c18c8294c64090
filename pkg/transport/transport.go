// Package transport implements the connection layer (C5): a single
// Transport interface over every wire a BBS session can run on — raw TCP,
// Telnet with RFC 854 option negotiation, SSH, WebSocket, serial, and
// modem dial-up — so the session reactor above it never branches on
// connection kind.
package transport

import (
	"context"
	"io"

	"github.com/mkrueger/icy-term-go/internal/logx"
)

// Status is the connection's current lifecycle state.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusClosing
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusClosing:
		return "closing"
	default:
		return "disconnected"
	}
}

// Transport is the uniform connection contract every dialer in this
// package satisfies. Read/Write behave like io.Reader/io.Writer (blocking,
// safe to call from one reader goroutine and one writer goroutine
// concurrently); Close unblocks any in-flight Read/Write with an error.
type Transport interface {
	io.ReadWriteCloser
	Connect(ctx context.Context) error
	Status() Status
}

// Dialer builds a Transport from an address string without connecting it,
// so callers (the address book, the session reactor) can construct one
// and defer Connect until the reactor's event loop is ready to own it.
type Dialer func(addr string, log *logx.Logger) (Transport, error)
