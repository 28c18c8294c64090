package emulation

import (
	"github.com/mkrueger/icy-term-go/pkg/buffer"
	"github.com/mkrueger/icy-term-go/pkg/color"
)

// Commodore 64 PETSCII control codes (§4.3 PETSCII/ATASCII/Viewdata/Mode7):
// a fixed codepage plus a small set of control codes for clear, home,
// reverse video, and color select.
const (
	petsciiClearHome = 0x93
	petsciiHome      = 0x13
	petsciiReverseOn = 0x12
	petsciiReverseOff = 0x92
	petsciiCR        = 0x0d
	petsciiCursorDown = 0x11
	petsciiCursorUp   = 0x91
	petsciiCursorRight = 0x1d
	petsciiCursorLeft  = 0x9d
)

// petsciiColors maps the C64 color-select control bytes to a DOS16-style
// palette index, in PETSCII code order.
var petsciiColors = map[byte]uint8{
	0x90: 0, 0x05: 7, 0x1c: 4, 0x9f: 11, 0x9c: 5, 0x1e: 2, 0x1f: 1, 0x9e: 14,
	0x81: 6, 0x95: 6, 0x96: 12, 0x97: 8, 0x98: 8, 0x99: 10, 0x9a: 9, 0x9b: 7,
}

// Petscii implements the fixed C64 codepage dialect: each byte maps either
// to a glyph (ASCII range passed through as the closest approximation,
// since full PETSCII glyph remapping is a font-table concern) or to a
// control code that mutates cursor/attribute state rather than printing.
type Petscii struct {
	buf     *buffer.Buffer
	attr    color.Attribute
	reverse bool
}

func NewPetscii(buf *buffer.Buffer) *Petscii {
	return &Petscii{buf: buf, attr: color.DefaultAttribute}
}

func (p *Petscii) Reset() {
	p.attr = color.DefaultAttribute
	p.reverse = false
	p.buf.Terminal.CursorX, p.buf.Terminal.CursorY = 0, 0
}

func (p *Petscii) Feed(data []byte) {
	l := p.buf.Base()
	t := &p.buf.Terminal
	for _, b := range data {
		if col, ok := petsciiColors[b]; ok {
			p.attr.Foreground = color.FromPalette(col)
			continue
		}
		switch b {
		case petsciiClearHome:
			p.buf.Erase(l, buffer.Rect{X: 0, Y: 0, W: l.Width, H: l.Height}, false)
			t.CursorX, t.CursorY = 0, 0
		case petsciiHome:
			t.CursorX, t.CursorY = 0, 0
		case petsciiReverseOn:
			p.reverse = true
		case petsciiReverseOff:
			p.reverse = false
		case petsciiCR:
			t.CursorX = 0
			p.advanceLine()
		case petsciiCursorDown:
			t.CursorY++
		case petsciiCursorUp:
			if t.CursorY > 0 {
				t.CursorY--
			}
		case petsciiCursorRight:
			t.CursorX++
		case petsciiCursorLeft:
			if t.CursorX > 0 {
				t.CursorX--
			}
		default:
			p.printByte(b)
		}
	}
}

func (p *Petscii) advanceLine() {
	l := p.buf.Base()
	t := &p.buf.Terminal
	if t.CursorY+1 >= l.Height {
		p.buf.Scroll(l, buffer.Rect{X: 0, Y: 0, W: l.Width, H: l.Height}, buffer.ScrollUp)
	} else {
		t.CursorY++
	}
}

func (p *Petscii) printByte(b byte) {
	l := p.buf.Base()
	t := &p.buf.Terminal
	if t.CursorX >= l.Width {
		t.CursorX = 0
		p.advanceLine()
	}
	attr := p.attr
	if p.reverse {
		attr.Flags |= color.Inverse
	}
	p.buf.Set(l, t.CursorX, t.CursorY, buffer.AttributedChar{Ch: rune(b), Attr: attr})
	t.CursorX++
}
