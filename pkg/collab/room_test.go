package collab

import (
	"testing"

	"github.com/mkrueger/icy-term-go/pkg/buffer"
)

func newTestRoom(t *testing.T) *Room {
	t.Helper()
	buf := buffer.New(10, 5, buffer.TypeAnsi)
	return NewRoom("test", "", buf, nil)
}

func TestRoomJoinAssignsUniqueIDs(t *testing.T) {
	r := newTestRoom(t)
	a, err := r.Join("alice", "")
	if err != nil {
		t.Fatalf("join alice: %v", err)
	}
	b, err := r.Join("bob", "")
	if err != nil {
		t.Fatalf("join bob: %v", err)
	}
	if a.ID == b.ID {
		t.Fatalf("expected distinct participant ids, got %s twice", a.ID)
	}
	if r.ParticipantCount() != 2 {
		t.Fatalf("ParticipantCount = %d, want 2", r.ParticipantCount())
	}
}

func TestRoomJoinRejectsWrongPassword(t *testing.T) {
	buf := buffer.New(10, 5, buffer.TypeAnsi)
	r := NewRoom("secure", "hunter2", buf, nil)
	if _, err := r.Join("eve", "wrong"); err == nil {
		t.Fatal("expected join with wrong password to fail")
	}
	if _, err := r.Join("alice", "hunter2"); err != nil {
		t.Fatalf("join with correct password: %v", err)
	}
}

func TestRoomApplyOpWritesCellAndBroadcasts(t *testing.T) {
	r := newTestRoom(t)
	a, _ := r.Join("alice", "")
	b, _ := r.Join("bob", "")

	r.ApplyOp(a, OpMessage{X: 1, Y: 2, Ch: 'X', FG: 4, BG: 0})

	cell := r.Buffer().Get(1, 2)
	if cell.Ch != 'X' {
		t.Fatalf("buffer cell = %q, want X", cell.Ch)
	}

	select {
	case msg := <-b.send:
		typ, _, err := decode(msg)
		if err != nil || typ != MsgOp {
			t.Fatalf("broadcast to bob: type=%v err=%v", typ, err)
		}
	default:
		t.Fatal("expected op broadcast to bob")
	}

	select {
	case <-a.send:
		t.Fatal("op should not be echoed back to its sender")
	default:
	}
}

func TestRoomLeaveRemovesParticipantAndBroadcasts(t *testing.T) {
	r := newTestRoom(t)
	a, _ := r.Join("alice", "")
	b, _ := r.Join("bob", "")

	r.Leave(a)

	if r.ParticipantCount() != 1 {
		t.Fatalf("ParticipantCount after leave = %d, want 1", r.ParticipantCount())
	}
	select {
	case msg := <-b.send:
		typ, _, err := decode(msg)
		if err != nil || typ != MsgLeave {
			t.Fatalf("leave broadcast: type=%v err=%v", typ, err)
		}
	default:
		t.Fatal("expected leave broadcast to bob")
	}
}
