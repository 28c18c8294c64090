package fileformat

import (
	"bytes"

	"github.com/mkrueger/icy-term-go/pkg/buffer"
	"github.com/mkrueger/icy-term-go/pkg/color"
	"golang.org/x/text/encoding/charmap"
)

// loadAscii treats data as plain CP437 text on an 80-column buffer: no
// attributes, no escape sequences, one row per line, each byte decoded as
// one CP437 character. Bytes past the buffer width are dropped, not wrapped.
func loadAscii(data []byte) (*buffer.Buffer, error) {
	sauce, contentLen, hasSauce := ParseSauce(data)
	content := data[:contentLen]
	cols := 80
	if hasSauce && sauce.Width > 0 {
		cols = sauce.Width
	}
	lines := bytes.Split(content, []byte("\n"))
	rows := len(lines)
	if rows < 1 {
		rows = 1
	}
	buf := buffer.New(cols, rows, buffer.TypeAscii)
	l := buf.Base()
	for y, line := range lines {
		line = bytes.TrimRight(line, "\r")
		for x, b := range line {
			if x >= l.Width {
				break
			}
			buf.Set(l, x, y, buffer.AttributedChar{Ch: charmap.CodePage437.DecodeByte(b), Attr: color.DefaultAttribute})
		}
	}
	if hasSauce {
		sauce.ApplyToBuffer(buf)
	}
	return buf, nil
}

func saveAscii(buf *buffer.Buffer) ([]byte, error) {
	var out bytes.Buffer
	l := buf.Base()
	for y := 0; y < l.Height; y++ {
		for x := 0; x < l.Width; x++ {
			ch := l.Get(x, y).Ch
			if b, ok := charmap.CodePage437.EncodeRune(ch); ok {
				out.WriteByte(b)
			} else {
				out.WriteRune(ch)
			}
		}
		out.WriteString("\r\n")
	}
	return out.Bytes(), nil
}
