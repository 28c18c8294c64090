package collab

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mkrueger/icy-term-go/internal/logx"
)

// WebSocket connection parameters, carried over from the teacher's
// pkg/api/websocket.go verbatim: a generous pong wait with ping period at
// 9/10 of it, and a message-size ceiling sized for single-cell ops rather
// than the teacher's buffer snapshots.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ServeWS upgrades r to a WebSocket, runs the join handshake, and then
// pumps ops/cursor/chat frames between the connection and room until the
// client disconnects. One goroutine per connection, the same shape as
// BufferWebSocketHandler.ServeHTTP.
func ServeWS(room *Room, log *logx.Logger, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if log != nil {
			log.Warnf("collab: upgrade failed: %v", err)
		}
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	p, err := handshake(room, conn)
	if err != nil {
		sendError(conn, err.Error())
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	go writePump(conn, p, ticker)

	readLoop(room, p, conn, log)
	room.Leave(p)
}

// handshake reads the first frame, which must be a join message, and
// admits the connection to room.
func handshake(room *Room, conn *websocket.Conn) (*Participant, error) {
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	t, data, err := decode(raw)
	if err != nil {
		return nil, err
	}
	if t != MsgJoin {
		return nil, errExpectedJoin
	}
	var join JoinMessage
	if err := json.Unmarshal(data, &join); err != nil {
		return nil, err
	}
	p, err := room.Join(join.Nickname, join.Password)
	if err != nil {
		return nil, err
	}
	if welcome, err := encode(MsgWelcome, room.Welcome(p)); err == nil {
		p.send <- welcome
	}
	return p, nil
}

// readLoop decodes inbound frames and routes them to the room until the
// connection errors out or the participant is asked to leave.
func readLoop(room *Room, p *Participant, conn *websocket.Conn, log *logx.Logger) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		t, data, err := decode(raw)
		if err != nil {
			if log != nil {
				log.Debugf("collab: malformed frame from %s: %v", p.ID, err)
			}
			continue
		}
		switch t {
		case MsgOp:
			var op OpMessage
			if json.Unmarshal(data, &op) == nil {
				room.ApplyOp(p, op)
			}
		case MsgCursor:
			var cur CursorMessage
			if json.Unmarshal(data, &cur) == nil {
				room.ApplyCursor(p, cur.X, cur.Y)
			}
		case MsgChat:
			var chat ChatMessage
			if json.Unmarshal(data, &chat) == nil {
				room.ApplyChat(p, chat.Text)
			}
		case MsgLeave:
			return
		}
	}
}

// writePump drains p's send channel to conn and keeps the connection
// alive with periodic pings, mirroring BufferWebSocketHandler.writer.
func writePump(conn *websocket.Conn, p *Participant, ticker *time.Ticker) {
	for {
		select {
		case msg, ok := <-p.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-p.done:
			return
		}
	}
}

func sendError(conn *websocket.Conn, message string) {
	if msg, err := encode(MsgError, ErrorMessage{Message: message}); err == nil {
		conn.WriteMessage(websocket.TextMessage, msg)
	}
}
