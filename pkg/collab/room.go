package collab

import (
	"sync"

	"github.com/google/uuid"
	"github.com/mkrueger/icy-term-go/internal/logx"
	"github.com/mkrueger/icy-term-go/pkg/buffer"
	"github.com/mkrueger/icy-term-go/pkg/color"
)

// maxParticipants bounds one Room the way the teacher's session.Manager
// bounds concurrent PTYs, preventing a single shared canvas from fanning
// ops out to an unbounded broadcast set.
const maxParticipants = 64

// Room is one shared canvas plus its connected participants, per §6's
// collaboration protocol. All Buffer mutation funnels through ApplyOp so
// every participant's view stays last-writer-wins consistent, mirroring
// how pkg/termsocket.Manager serializes writes to one SessionBuffer
// before fanning a snapshot out to subscribers.
type Room struct {
	Name     string
	Password string

	buf      *buffer.Buffer
	log      *logx.Logger
	capacity int

	mu           sync.RWMutex
	participants map[string]*Participant
}

// Participant is one connected collaborator: identity plus the channel
// its write pump drains, the same send-channel-plus-done shape as the
// teacher's BufferWebSocketHandler.
type Participant struct {
	ID       string
	Nickname string
	send     chan []byte
	done     chan struct{}
	cursorX  int
	cursorY  int
}

// NewRoom creates a Room backed by buf (already loaded or newly created
// per pkg/fileformat), capped at the package default of maxParticipants
// participants.
func NewRoom(name, password string, buf *buffer.Buffer, log *logx.Logger) *Room {
	return NewRoomWithCapacity(name, password, buf, log, 0)
}

// NewRoomWithCapacity is NewRoom with an explicit participant cap,
// letting `editor host --max-users` override the default.
func NewRoomWithCapacity(name, password string, buf *buffer.Buffer, log *logx.Logger, maxUsers int) *Room {
	if maxUsers <= 0 {
		maxUsers = maxParticipants
	}
	return &Room{
		Name:         name,
		Password:     password,
		buf:          buf,
		log:          log,
		capacity:     maxUsers,
		participants: make(map[string]*Participant),
	}
}

// Buffer returns the room's shared canvas, for the backup/autosave loop.
func (r *Room) Buffer() *buffer.Buffer { return r.buf }

// Join admits nickname as a new Participant, rejecting on a password
// mismatch or a full room. The returned Participant's send channel must
// be drained by the caller's write pump.
func (r *Room) Join(nickname, password string) (*Participant, error) {
	if r.Password != "" && password != r.Password {
		return nil, errWrongPassword
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.participants) >= r.capacity {
		return nil, errRoomFull
	}
	p := &Participant{
		ID:       uuid.New().String(),
		Nickname: nickname,
		send:     make(chan []byte, 256),
		done:     make(chan struct{}),
	}
	r.participants[p.ID] = p
	return p, nil
}

// Leave removes p from the room and broadcasts its departure.
func (r *Room) Leave(p *Participant) {
	r.mu.Lock()
	_, ok := r.participants[p.ID]
	delete(r.participants, p.ID)
	r.mu.Unlock()
	if !ok {
		return
	}
	close(p.done)
	if msg, err := encode(MsgLeave, LeaveMessage{ID: p.ID}); err == nil {
		r.broadcastExcept(p.ID, msg)
	}
}

// ApplyOp writes op into the room's base layer (last-writer-wins: later
// calls simply overwrite earlier ones at the same cell, per §6) and
// broadcasts it to every other participant.
func (r *Room) ApplyOp(from *Participant, op OpMessage) {
	l := r.buf.Base()
	cell := buffer.AttributedChar{
		Ch: op.Ch,
		Attr: color.Attribute{
			Foreground: color.FromPalette(op.FG),
			Background: color.FromPalette(op.BG),
			Flags:      color.AttrFlag(op.Attr),
		},
	}
	r.buf.Set(l, op.X, op.Y, cell)

	if msg, err := encode(MsgOp, op); err == nil {
		r.broadcastExcept(from.ID, msg)
	}
}

// ApplyCursor rebroadcasts a participant's cursor position to the rest
// of the room, updating its last-known position for late joiners.
func (r *Room) ApplyCursor(from *Participant, x, y int) {
	from.cursorX, from.cursorY = x, y
	if msg, err := encode(MsgCursor, CursorMessage{ID: from.ID, X: x, Y: y}); err == nil {
		r.broadcastExcept(from.ID, msg)
	}
}

// ApplyChat relays a chat line to every other participant, unmodified.
func (r *Room) ApplyChat(from *Participant, text string) {
	if msg, err := encode(MsgChat, ChatMessage{ID: from.ID, Text: text}); err == nil {
		r.broadcastExcept(from.ID, msg)
	}
}

// Welcome builds this room's welcome payload for a newly joined
// participant, describing the canvas it should render.
func (r *Room) Welcome(p *Participant) WelcomeMessage {
	return WelcomeMessage{
		ID:      p.ID,
		Cols:    r.buf.Cols,
		Rows:    r.buf.Rows,
		IceMode: r.buf.IceMode,
	}
}

func (r *Room) broadcastExcept(exceptID string, msg []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, p := range r.participants {
		if id == exceptID {
			continue
		}
		select {
		case p.send <- msg:
		default:
			if r.log != nil {
				r.log.Warnf("collab: dropping message to slow participant %s", id)
			}
		}
	}
}

// ParticipantCount reports how many collaborators currently hold the
// room open, used by the autosave loop to skip idle rooms.
func (r *Room) ParticipantCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.participants)
}
