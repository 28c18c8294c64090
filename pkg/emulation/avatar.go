package emulation

import (
	"github.com/mkrueger/icy-term-go/pkg/buffer"
	"github.com/mkrueger/icy-term-go/pkg/color"
)

// Avatar control-code byte values. ^V (0x16) introduces an opcode byte;
// ^L (0x0C) clears the screen outright. Embedded ESC sequences fall
// through to an inner Ansi parser, per §4.3 Avatar.
const (
	avatarPrefix    = 0x16
	avatarClear     = 0x0c
	opSetAttribute  = 1
	opMoveCursor    = 2
	opClearEOL      = 3
	opScrollUp      = 4
	opRepeatChar    = 5
)

// Avatar implements the ^V-prefixed PCBoard/RemoteAccess Avatar protocol
// layered over plain ANSI: attribute set, cursor move, clear-to-EOL,
// scroll, and run-length repeat opcodes, with raw ESC sequences handed to
// an embedded Ansi parser so Avatar/ANSI streams can interleave freely.
type Avatar struct {
	ansi *Ansi
	buf  *buffer.Buffer

	pending   []byte // bytes of a not-yet-complete ^V opcode
	wantBytes int
}

// NewAvatar creates an Avatar emulator writing into buf.
func NewAvatar(buf *buffer.Buffer) *Avatar {
	return &Avatar{ansi: NewAnsi(buf), buf: buf}
}

func (v *Avatar) Reset() {
	v.ansi.Reset()
	v.pending = v.pending[:0]
	v.wantBytes = 0
}

// Feed scans for the avatarPrefix/avatarClear control bytes byte by byte,
// routing any other byte (including full ESC sequences) to the embedded
// Ansi parser unchanged.
func (v *Avatar) Feed(data []byte) {
	for i := 0; i < len(data); i++ {
		b := data[i]
		if v.wantBytes > 0 {
			v.pending = append(v.pending, b)
			v.wantBytes--
			if v.wantBytes == 0 {
				v.runOpcode()
			}
			continue
		}
		switch b {
		case avatarPrefix:
			v.pending = v.pending[:0]
			v.wantBytes = -1 // signal: next byte selects the opcode
		case avatarClear:
			t := &v.buf.Terminal
			l := v.ansi.activeLayer()
			v.buf.Erase(l, buffer.Rect{X: 0, Y: 0, W: l.Width, H: l.Height}, false)
			t.CursorX, t.CursorY = 0, 0
		default:
			if v.wantBytes == -1 {
				v.beginOpcode(b)
			} else {
				v.ansi.Feed(data[i : i+1])
			}
		}
	}
}

func (v *Avatar) beginOpcode(op byte) {
	v.pending = []byte{op}
	switch op {
	case opSetAttribute:
		v.wantBytes = 1
	case opMoveCursor:
		v.wantBytes = 2
	case opClearEOL:
		v.wantBytes = 0
		v.runOpcode()
	case opScrollUp:
		v.wantBytes = 1
	case opRepeatChar:
		v.wantBytes = 2
	default:
		v.wantBytes = 0
	}
}

func (v *Avatar) runOpcode() {
	if len(v.pending) == 0 {
		return
	}
	op := v.pending[0]
	args := v.pending[1:]
	l := v.ansi.activeLayer()
	t := &v.buf.Terminal
	switch op {
	case opSetAttribute:
		if len(args) >= 1 {
			v.ansi.attr = color.UnpackSauceAttr(args[0], v.buf.IceMode)
		}
	case opMoveCursor:
		if len(args) >= 2 {
			t.CursorX = int(args[0])
			t.CursorY = int(args[1])
		}
	case opClearEOL:
		v.buf.Erase(l, buffer.Rect{X: t.CursorX, Y: t.CursorY, W: l.Width - t.CursorX, H: 1}, false)
	case opScrollUp:
		n := 1
		if len(args) >= 1 {
			n = int(args[0])
		}
		for i := 0; i < n; i++ {
			v.buf.Scroll(l, buffer.Rect{X: 0, Y: 0, W: l.Width, H: l.Height}, buffer.ScrollUp)
		}
	case opRepeatChar:
		if len(args) >= 2 {
			n := int(args[0])
			ch := rune(args[1])
			for i := 0; i < n; i++ {
				v.ansi.onPrint(ch)
			}
		}
	}
	v.pending = v.pending[:0]
}
