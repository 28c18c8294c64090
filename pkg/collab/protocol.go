// Package collab implements the optional real-time collaboration server
// (§6): a Moebius-compatible WebSocket protocol layered over a shared
// Buffer, with last-writer-wins cell ops and broadcast cursor positions.
// It is adapted from the teacher's pkg/api (HTTP routing, TLS, ngrok) and
// pkg/termsocket (per-connection buffer fan-out), generalized from a
// single PTY session's output stream to a multi-participant edit surface.
package collab

import "encoding/json"

// MessageType tags every collaboration WebSocket frame, per §6's wire
// contract: join, welcome, op, cursor, chat, leave.
type MessageType string

const (
	MsgJoin    MessageType = "join"
	MsgWelcome MessageType = "welcome"
	MsgOp      MessageType = "op"
	MsgCursor  MessageType = "cursor"
	MsgChat    MessageType = "chat"
	MsgLeave   MessageType = "leave"
	MsgError   MessageType = "error"
)

// envelope is the on-wire shape every message shares: a type tag plus a
// type-specific payload, decoded in two passes like the teacher's
// map[string]interface{} dispatch in pkg/api/websocket.go, but into typed
// structs rather than loose maps.
type envelope struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// JoinMessage is sent by a newly connecting participant.
type JoinMessage struct {
	Nickname string `json:"nickname"`
	Group    string `json:"group,omitempty"`
	Password string `json:"password,omitempty"`
}

// WelcomeMessage is the server's reply to a successful join: the
// participant's assigned id and the canvas dimensions and ice-mode flag it
// should render against.
type WelcomeMessage struct {
	ID      string `json:"id"`
	Cols    int    `json:"cols"`
	Rows    int    `json:"rows"`
	IceMode bool   `json:"iceMode"`
}

// OpMessage edits one cell: coordinates, code point, and its two palette
// indices plus raw attribute flag bits. fg/bg are palette indices rather
// than full color.Color sum types, matching Moebius's own wire shape —
// the server stores them as palette colors in the room's buffer, which
// resolve against its buffer.Palette when drawn.
type OpMessage struct {
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Ch   rune   `json:"ch"`
	FG   uint8  `json:"fg"`
	BG   uint8  `json:"bg"`
	Attr uint16 `json:"attr"`
}

// CursorMessage broadcasts one participant's live cursor position.
type CursorMessage struct {
	ID string `json:"id"`
	X  int    `json:"x"`
	Y  int    `json:"y"`
}

// ChatMessage is a relayed chat line, not interpreted by the server.
type ChatMessage struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// LeaveMessage announces a participant's departure.
type LeaveMessage struct {
	ID string `json:"id"`
}

// ErrorMessage carries a server-side rejection (bad password, room full).
type ErrorMessage struct {
	Message string `json:"message"`
}

func encode(t MessageType, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: t, Data: data})
}

func decode(raw []byte) (MessageType, json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", nil, err
	}
	return env.Type, env.Data, nil
}
