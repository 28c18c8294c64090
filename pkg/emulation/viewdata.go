package emulation

import (
	"github.com/mkrueger/icy-term-go/pkg/buffer"
	"github.com/mkrueger/icy-term-go/pkg/color"
)

// Teletext/Viewdata Mode7 control codes 0x00-0x1f. Unlike the other fixed
// codepage dialects, these are "spacing attributes": the control code
// occupies its own cell (rendered blank) and the attribute it sets applies
// to every cell to its right until changed, per §4.3.
const (
	vdAlphaBlack = iota
	vdAlphaRed
	vdAlphaGreen
	vdAlphaYellow
	vdAlphaBlue
	vdAlphaMagenta
	vdAlphaCyan
	vdAlphaWhite
)

const (
	vdFlashOn      = 0x08
	vdSteady       = 0x09
	vdNormalHeight = 0x0c
	vdDoubleHeight = 0x0d
	vdGraphicsBlack = 0x10
	// 0x11-0x17 select graphics colors in the same order as alpha colors.
	vdConcealDisplay = 0x18
	vdContiguousGfx  = 0x19
	vdSeparatedGfx   = 0x1a
	vdBlackBg        = 0x1c
	vdNewBg          = 0x1d
	vdHoldGfx        = 0x1e
	vdReleaseGfx     = 0x1f
)

// Viewdata implements the teletext/Mode7 dialect (§4.3).
type Viewdata struct {
	buf  *buffer.Buffer
	attr color.Attribute
}

func NewViewdata(buf *buffer.Buffer) *Viewdata {
	return &Viewdata{buf: buf, attr: color.DefaultAttribute}
}

func (v *Viewdata) Reset() {
	v.attr = color.DefaultAttribute
	v.buf.Terminal.CursorX, v.buf.Terminal.CursorY = 0, 0
}

func (v *Viewdata) Feed(data []byte) {
	l := v.buf.Base()
	t := &v.buf.Terminal
	for _, b := range data {
		switch {
		case b == '\r':
			t.CursorX = 0
		case b == '\n':
			v.advanceLine()
		case b <= 0x1f:
			v.applyControl(b)
			v.buf.Set(l, t.CursorX, t.CursorY, buffer.AttributedChar{Ch: ' ', Attr: v.attr})
			t.CursorX++
		default:
			v.buf.Set(l, t.CursorX, t.CursorY, buffer.AttributedChar{Ch: rune(b), Attr: v.attr})
			t.CursorX++
		}
		if t.CursorX >= l.Width {
			t.CursorX = 0
			v.advanceLine()
		}
	}
}

func (v *Viewdata) applyControl(b byte) {
	switch {
	case b <= vdAlphaWhite:
		v.attr.Foreground = color.FromPalette(viewdataPaletteIndex(b))
		v.attr.Flags &^= color.StrikeThrough // graphics flag reused as "is graphics glyph" marker, cleared on alpha color
	case b >= vdGraphicsBlack && b <= vdGraphicsBlack+7:
		v.attr.Foreground = color.FromPalette(viewdataPaletteIndex(b - vdGraphicsBlack))
		v.attr.Flags |= color.StrikeThrough
	case b == vdFlashOn:
		v.attr.Flags |= color.Blinking
	case b == vdSteady:
		v.attr.Flags &^= color.Blinking
	case b == vdNormalHeight:
		v.attr.Flags &^= (color.DoubleHeightTop | color.DoubleHeightBottom)
	case b == vdDoubleHeight:
		v.attr.Flags |= color.DoubleHeightTop
	case b == vdConcealDisplay:
		v.attr.Flags |= color.Conceal
	case b == vdBlackBg:
		v.attr.Background = color.FromPalette(vdAlphaBlack)
	case b == vdNewBg:
		v.attr.Background = v.attr.Foreground
	}
}

// viewdataPaletteIndex maps the teletext 3-bit color order (black, red,
// green, yellow, blue, magenta, cyan, white) onto DOS16 indices.
func viewdataPaletteIndex(b byte) uint8 {
	order := []uint8{0, 4, 2, 6, 1, 5, 3, 15}
	if int(b) < len(order) {
		return order[b]
	}
	return 0
}

func (v *Viewdata) advanceLine() {
	l := v.buf.Base()
	t := &v.buf.Terminal
	if t.CursorY+1 >= l.Height {
		v.buf.Scroll(l, buffer.Rect{X: 0, Y: 0, W: l.Width, H: l.Height}, buffer.ScrollUp)
	} else {
		t.CursorY++
	}
}
