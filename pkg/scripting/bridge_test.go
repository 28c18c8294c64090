package scripting

import (
	"testing"

	"github.com/mkrueger/icy-term-go/pkg/buffer"
	"github.com/mkrueger/icy-term-go/pkg/session"
)

func TestScreenTextJoinsRowsTrimmingTrailingSpace(t *testing.T) {
	buf := buffer.New(10, 2, buffer.TypeAnsi)
	l := buf.Base()
	for i, r := range "hi" {
		buf.Set(l, i, 0, buffer.AttributedChar{Ch: r})
	}
	got := ScreenText(buf)
	want := "hi\n"
	if got != want {
		t.Fatalf("ScreenText = %q, want %q", got, want)
	}
}

func TestScreenTextRejoinsSoftWrappedRowWithoutNewline(t *testing.T) {
	buf := buffer.New(10, 2, buffer.TypeAnsi)
	l := buf.Base()
	for i, r := range "hi" {
		buf.Set(l, i, 0, buffer.AttributedChar{Ch: r})
	}
	for i, r := range "there" {
		buf.Set(l, i, 1, buffer.AttributedChar{Ch: r})
	}
	l.MarkSoftWrap(1)
	got := ScreenText(buf)
	want := "hithere"
	if got != want {
		t.Fatalf("ScreenText = %q, want %q", got, want)
	}
}

func TestBridgeSendBytesInvokesSendFunc(t *testing.T) {
	buf := buffer.New(10, 2, buffer.TypeAnsi)
	entry := session.AddressBookEntry{Username: "sysop", Password: "hunter2"}
	sess := session.NewSession(entry, newNoopParser(), nil)

	var captured []byte
	b := NewBridge(sess, buf, func(data []byte) error {
		captured = append(captured, data...)
		return nil
	})
	defer b.Close()

	if err := b.Run(`send_bytes("hello")`); err != nil {
		t.Fatalf("script failed: %v", err)
	}
	if string(captured) != "hello" {
		t.Fatalf("captured = %q, want hello", captured)
	}
}

func TestBridgeSendKeyLooksUpTable(t *testing.T) {
	buf := buffer.New(10, 2, buffer.TypeAnsi)
	sess := session.NewSession(session.AddressBookEntry{}, newNoopParser(), nil)

	var captured []byte
	b := NewBridge(sess, buf, func(data []byte) error {
		captured = data
		return nil
	})
	defer b.Close()

	if err := b.Run(`send_key("enter")`); err != nil {
		t.Fatalf("script failed: %v", err)
	}
	if string(captured) != "\r" {
		t.Fatalf("captured = %q, want CR", captured)
	}
}

func TestBridgeWaitForReturnsEmptyOnTimeout(t *testing.T) {
	buf := buffer.New(10, 2, buffer.TypeAnsi)
	sess := session.NewSession(session.AddressBookEntry{}, newNoopParser(), nil)
	b := NewBridge(sess, buf, func([]byte) error { return nil })
	defer b.Close()

	if err := b.Run(`
		local m = wait_for("NEVER_APPEARS", 10)
		assert(m == "", "expected empty match on timeout")
	`); err != nil {
		t.Fatalf("script failed: %v", err)
	}
}

type noopParser struct{}

func newNoopParser() *noopParser  { return &noopParser{} }
func (p *noopParser) Feed([]byte) {}
func (p *noopParser) Reset()      {}
