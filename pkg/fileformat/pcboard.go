package fileformat

import (
	"bytes"
	"fmt"

	"github.com/mkrueger/icy-term-go/pkg/buffer"
	"github.com/mkrueger/icy-term-go/pkg/color"
	"golang.org/x/text/encoding/charmap"
)

// pcboardColorCodes maps a PCBoard two-digit @X code's nibble pair onto
// the DOS16 fg/bg indices it selects (identical numbering to the SAUCE
// attribute byte's nibbles).
func pcboardColorCodes(hi, lo byte) (fg, bg uint8, ok bool) {
	f, ferr := hexNibble(lo)
	b, berr := hexNibble(hi)
	if !ferr || !berr {
		return 0, 0, false
	}
	return f, b, true
}

func hexNibble(b byte) (uint8, bool) {
	switch {
	case b >= '0' && b <= '9':
		return uint8(b - '0'), true
	case b >= 'A' && b <= 'F':
		return uint8(b-'A') + 10, true
	case b >= 'a' && b <= 'f':
		return uint8(b-'a') + 10, true
	default:
		return 0, false
	}
}

// loadPCBoard decodes PCBoard's `@X` two-hex-digit color code and `@CLS@`
// screen-clear pragma over otherwise-plain CP437 text: no cursor motion,
// no SGR, just sequential color changes and line wraps (§ PCBoard dialect).
func loadPCBoard(data []byte) (*buffer.Buffer, error) {
	sauce, contentLen, hasSauce := ParseSauce(data)
	content := data[:contentLen]
	cols := 80
	if hasSauce && sauce.Width > 0 {
		cols = sauce.Width
	}
	buf := buffer.New(cols, 1, buffer.TypeAnsi)
	l := buf.Base()
	x, y := 0, 0
	attr := color.DefaultAttribute
	growRow := func() {
		y++
		if y >= l.Height {
			buf.Resize(l.Width, y+1, true)
			l = buf.Base()
		}
		x = 0
	}
	eraseAll := func() {
		buf.Erase(l, buffer.Rect{X: 0, Y: 0, W: l.Width, H: l.Height}, false)
	}
	i := 0
	for i < len(content) {
		b := content[i]
		switch {
		case b == '@' && i+5 <= len(content) && string(content[i:i+5]) == "@CLS@":
			eraseAll()
			x, y = 0, 0
			i += 5
		case b == '@' && i+4 <= len(content) && content[i+1] == 'X':
			if fg, bg, ok := pcboardColorCodes(content[i+2], content[i+3]); ok {
				attr = color.Attribute{Foreground: color.FromPalette(fg), Background: color.FromPalette(bg)}
				i += 4
				continue
			}
			l.Set(x, y, buffer.AttributedChar{Ch: charmap.CodePage437.DecodeByte(b), Attr: attr})
			x++
			i++
		case b == '\n':
			growRow()
			i++
		case b == '\r':
			i++
		default:
			if x >= l.Width {
				growRow()
			}
			l.Set(x, y, buffer.AttributedChar{Ch: charmap.CodePage437.DecodeByte(b), Attr: attr})
			x++
			i++
		}
	}
	if hasSauce {
		sauce.ApplyToBuffer(buf)
	}
	return buf, nil
}

// savePCBoard re-emits the buffer using @X codes, minimizing emissions the
// same way saveAnsi minimizes SGR runs.
func savePCBoard(buf *buffer.Buffer) ([]byte, error) {
	var out bytes.Buffer
	l := buf.Base()
	cur := color.DefaultAttribute
	for y := 0; y < l.Height; y++ {
		for x := 0; x < l.Width; x++ {
			cell := l.Get(x, y)
			if cell.Attr != cur {
				fg := paletteIndex(cell.Attr.Foreground)
				bg := paletteIndex(cell.Attr.Background)
				fmt.Fprintf(&out, "@X%X%X", bg, fg)
				cur = cell.Attr
			}
			if b, ok := charmap.CodePage437.EncodeRune(cell.Ch); ok {
				out.WriteByte(b)
			} else {
				out.WriteRune(cell.Ch)
			}
		}
		out.WriteString("\r\n")
	}
	return out.Bytes(), nil
}

func paletteIndex(c color.Color) uint8 {
	if c.Kind == color.KindPalette {
		return c.Index
	}
	return 0
}
