package emulation

import (
	"github.com/mkrueger/icy-term-go/pkg/buffer"
	"github.com/mkrueger/icy-term-go/pkg/color"
)

// Atari 8-bit ATASCII control codes. Unlike PETSCII, inverse video is
// carried in the high bit of every character byte rather than a separate
// toggle control code.
const (
	atasciiClear      = 0x7d
	atasciiEOL        = 0x9b
	atasciiCursorUp   = 0x1c
	atasciiCursorDown = 0x1d
	atasciiCursorLeft = 0x1e
	atasciiCursorRight = 0x1f
)

// Atascii implements the fixed Atari 8-bit codepage dialect (§4.3).
type Atascii struct {
	buf *buffer.Buffer
}

func NewAtascii(buf *buffer.Buffer) *Atascii {
	return &Atascii{buf: buf}
}

func (a *Atascii) Reset() {
	a.buf.Terminal.CursorX, a.buf.Terminal.CursorY = 0, 0
}

func (a *Atascii) Feed(data []byte) {
	l := a.buf.Base()
	t := &a.buf.Terminal
	for _, b := range data {
		switch b {
		case atasciiClear:
			a.buf.Erase(l, buffer.Rect{X: 0, Y: 0, W: l.Width, H: l.Height}, false)
			t.CursorX, t.CursorY = 0, 0
		case atasciiEOL:
			t.CursorX = 0
			a.advanceLine()
		case atasciiCursorUp:
			if t.CursorY > 0 {
				t.CursorY--
			}
		case atasciiCursorDown:
			t.CursorY++
		case atasciiCursorLeft:
			if t.CursorX > 0 {
				t.CursorX--
			}
		case atasciiCursorRight:
			t.CursorX++
		default:
			a.printByte(b)
		}
	}
}

func (a *Atascii) advanceLine() {
	l := a.buf.Base()
	t := &a.buf.Terminal
	if t.CursorY+1 >= l.Height {
		a.buf.Scroll(l, buffer.Rect{X: 0, Y: 0, W: l.Width, H: l.Height}, buffer.ScrollUp)
	} else {
		t.CursorY++
	}
}

func (a *Atascii) printByte(b byte) {
	l := a.buf.Base()
	t := &a.buf.Terminal
	if t.CursorX >= l.Width {
		t.CursorX = 0
		a.advanceLine()
	}
	attr := color.DefaultAttribute
	ch := b
	if ch&0x80 != 0 {
		attr.Flags |= color.Inverse
		ch &^= 0x80
	}
	a.buf.Set(l, t.CursorX, t.CursorY, buffer.AttributedChar{Ch: rune(ch), Attr: attr})
	t.CursorX++
}
