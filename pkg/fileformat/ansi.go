package fileformat

import (
	"bytes"
	"fmt"

	"github.com/mkrueger/icy-term-go/pkg/buffer"
	"github.com/mkrueger/icy-term-go/pkg/color"
	"github.com/mkrueger/icy-term-go/pkg/emulation"
)

// loadAnsi feeds data through the C3 ANSI emulator on an 80-column buffer
// (widened if the stream itself resizes via DECCOLM-style hints is out of
// scope; width comes from SAUCE TInfo1 when present).
func loadAnsi(data []byte) (*buffer.Buffer, error) {
	sauce, contentLen, hasSauce := ParseSauce(data)
	content := data[:contentLen]
	cols := 80
	if hasSauce && sauce.Width > 0 {
		cols = sauce.Width
	}
	buf := buffer.New(cols, 25, buffer.TypeAnsi)
	a := emulation.NewAnsi(buf)
	a.Feed(content)
	if hasSauce {
		sauce.ApplyToBuffer(buf)
	}
	return buf, nil
}

// saveAnsi re-emits the base layer as an SGR-minimized ANSI stream: a new
// SGR sequence is only written when the attribute actually changes from
// the previous cell, per §4.4's round-trip stability property.
func saveAnsi(buf *buffer.Buffer) ([]byte, error) {
	var out bytes.Buffer
	l := buf.Base()
	cur := color.DefaultAttribute
	for y := 0; y < l.Height; y++ {
		for x := 0; x < l.Width; x++ {
			cell := l.Get(x, y)
			if cell.Attr != cur {
				writeSGR(&out, cur, cell.Attr)
				cur = cell.Attr
			}
			out.WriteRune(cell.Ch)
		}
		out.WriteString("\r\n")
	}
	result := out.Bytes()
	if buf.Sauce.Title != "" || buf.Sauce.Author != "" || buf.Sauce.Group != "" || len(buf.Sauce.Comments) > 0 {
		result = EncodeSauce(result, FromBufferSauce(buf), 1, 1)
	}
	return result, nil
}

// writeSGR emits one CSI...m that sets next from scratch: a reset followed
// by next's bold, faint, italic, underline and blink flags and its two
// colors, or a bare reset when next is exactly the default attribute.
// prev is not consulted, and other attribute flags are not written.
func writeSGR(out *bytes.Buffer, prev, next color.Attribute) {
	if next == color.DefaultAttribute {
		out.WriteString("\x1b[0m")
		return
	}
	// ansiOrder maps a VGA palette index 0-7 to its SGR color offset; it is
	// the same permutation the ANSI parser applies when reading 30-37/40-47.
	ansiOrder := [8]int{0, 4, 2, 6, 1, 5, 3, 7}
	codes := []string{"0"}
	if next.Has(color.Bold) {
		codes = append(codes, "1")
	}
	if next.Has(color.Faded) {
		codes = append(codes, "2")
	}
	if next.Has(color.Italic) {
		codes = append(codes, "3")
	}
	if next.Has(color.Underline) {
		codes = append(codes, "4")
	}
	if next.Has(color.Blinking) {
		codes = append(codes, "5")
	}
	if next.Foreground.Kind == color.KindPalette {
		idx := int(next.Foreground.Index)
		if idx < 8 {
			codes = append(codes, fmt.Sprintf("%d", 30+ansiOrder[idx]))
		} else if idx < 16 {
			codes = append(codes, fmt.Sprintf("%d", 90+ansiOrder[idx-8]))
		} else {
			codes = append(codes, "38", "5", fmt.Sprintf("%d", idx))
		}
	} else if next.Foreground.Kind == color.KindTrueColor {
		codes = append(codes, "38", "2", fmt.Sprintf("%d", next.Foreground.R), fmt.Sprintf("%d", next.Foreground.G), fmt.Sprintf("%d", next.Foreground.B))
	}
	if next.Background.Kind == color.KindPalette {
		idx := int(next.Background.Index)
		if idx < 8 {
			codes = append(codes, fmt.Sprintf("%d", 40+ansiOrder[idx]))
		} else {
			codes = append(codes, "48", "5", fmt.Sprintf("%d", idx))
		}
	} else if next.Background.Kind == color.KindTrueColor {
		codes = append(codes, "48", "2", fmt.Sprintf("%d", next.Background.R), fmt.Sprintf("%d", next.Background.G), fmt.Sprintf("%d", next.Background.B))
	}
	out.WriteString("\x1b[")
	for i, c := range codes {
		if i > 0 {
			out.WriteByte(';')
		}
		out.WriteString(c)
	}
	out.WriteByte('m')
}
