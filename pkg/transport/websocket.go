package transport

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/mkrueger/icy-term-go/internal/coreerr"
	"github.com/mkrueger/icy-term-go/internal/logx"
)

// WebSocket is a Transport over a gorilla/websocket connection carrying
// binary messages, the dialect used by browser-hosted BBS front ends.
type WebSocket struct {
	url string
	log *logx.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	status  Status
	pending []byte // leftover bytes from a message larger than the caller's Read buffer
}

// NewWebSocket builds an unconnected WebSocket transport for url (e.g.
// "wss://bbs.example.com/connect").
func NewWebSocket(url string, log *logx.Logger) (Transport, error) {
	return &WebSocket{url: url, log: log}, nil
}

func (w *WebSocket) Connect(ctx context.Context) error {
	w.mu.Lock()
	w.status = StatusConnecting
	w.mu.Unlock()

	dialer := websocket.Dialer{}
	conn, _, err := dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		w.mu.Lock()
		w.status = StatusDisconnected
		w.mu.Unlock()
		return coreerr.Wrap(coreerr.ConnectionLost, "websocket: dial "+w.url, err)
	}
	w.log.Debugf("websocket: connected to %s", w.url)

	w.mu.Lock()
	w.conn = conn
	w.status = StatusConnected
	w.mu.Unlock()
	return nil
}

// Read delivers one binary message's worth of bytes per call (after any
// leftover from a prior oversized message has drained), matching the
// message-oriented framing a WebSocket connection actually has.
func (w *WebSocket) Read(p []byte) (int, error) {
	w.mu.Lock()
	if len(w.pending) > 0 {
		n := copy(p, w.pending)
		w.pending = w.pending[n:]
		w.mu.Unlock()
		return n, nil
	}
	conn := w.conn
	w.mu.Unlock()
	if conn == nil {
		return 0, coreerr.New(coreerr.ConnectionLost, "websocket: not connected")
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		return 0, coreerr.Wrap(coreerr.ConnectionLost, "websocket: read", err)
	}
	n := copy(p, data)
	if n < len(data) {
		w.mu.Lock()
		w.pending = append(w.pending, data[n:]...)
		w.mu.Unlock()
	}
	return n, nil
}

func (w *WebSocket) Write(p []byte) (int, error) {
	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()
	if conn == nil {
		return 0, coreerr.New(coreerr.ConnectionLost, "websocket: not connected")
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, coreerr.Wrap(coreerr.ConnectionLost, "websocket: write", err)
	}
	return len(p), nil
}

func (w *WebSocket) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = StatusClosing
	if w.conn == nil {
		w.status = StatusDisconnected
		return nil
	}
	_ = w.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := w.conn.Close()
	w.status = StatusDisconnected
	return err
}

func (w *WebSocket) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}
