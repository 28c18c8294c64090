package fileformat

import (
	"bytes"
	"encoding/binary"

	"github.com/mkrueger/icy-term-go/pkg/buffer"
	"github.com/mkrueger/icy-term-go/pkg/color"
)

// iceDrawSignature opens every .idf file: a 4-byte version marker
// (0x04 followed by "1.4") ahead of the dimensions and the 48-byte palette.
const iceDrawSignature = "\x04\x31\x2e\x34"

// loadIceDraw decodes IceDraw's container, whose width is read from the
// header rather than assumed: 4-byte version
// signature, 2-byte width, 2-byte height, 48-byte palette, 4096-byte font
// (8x16, 256 glyphs), then a flat char stream followed by a flat attribute
// stream (IceDraw stores chars and attrs in two separate planes, unlike
// XBin's interleaved pairs).
func loadIceDraw(data []byte) (*buffer.Buffer, error) {
	if err := requireLen(data, 8+48, "icedraw header"); err != nil {
		return nil, err
	}
	if string(data[0:4]) != iceDrawSignature {
		return nil, invalidFormat("icedraw", "missing signature")
	}
	cols := int(binary.LittleEndian.Uint16(data[4:6]))
	rows := int(binary.LittleEndian.Uint16(data[6:8])) + 1
	pos := 8

	pal := &color.Palette{Label: "IceDraw", Mode: color.Dos16, Entries: make([]color.RGB, 16)}
	for i := 0; i < 16; i++ {
		r, g, b := data[pos+i*3], data[pos+i*3+1], data[pos+i*3+2]
		pal.Entries[i] = color.RGB{R: r * 4, G: g * 4, B: b * 4}
	}
	pos += 48

	const fontBytes = 16 * 256
	var font buffer.Font
	hasFont := len(data) >= pos+fontBytes
	if hasFont {
		font = decodeXBinFont(data[pos:pos+fontBytes], 16, 256)
		pos += fontBytes
	}

	buf := buffer.New(cols, rows, buffer.TypeAnsi)
	buf.Palette = pal
	buf.IceMode = true
	if hasFont {
		buf.Fonts = append(buf.Fonts, font)
	}

	n := cols * rows
	chars := data[pos:]
	if len(chars) < n {
		n = len(chars)
	}
	attrs := data[pos+cols*rows:]
	l := buf.Base()
	for i := 0; i < n; i++ {
		x, y := i%cols, i/cols
		var attrByte byte
		if i < len(attrs) {
			attrByte = attrs[i]
		}
		l.Set(x, y, buffer.AttributedChar{Ch: rune(chars[i]), Attr: color.UnpackSauceAttr(attrByte, true)})
	}
	return buf, nil
}

// saveIceDraw re-encodes buf into IceDraw's two-plane layout, always with
// ice-mode colors (IceDraw has no non-ice representation).
func saveIceDraw(buf *buffer.Buffer) ([]byte, error) {
	var out bytes.Buffer
	out.WriteString(iceDrawSignature)
	var dims [4]byte
	binary.LittleEndian.PutUint16(dims[0:2], uint16(buf.Cols))
	binary.LittleEndian.PutUint16(dims[2:4], uint16(buf.Rows-1))
	out.Write(dims[:])

	entries := color.DOS16
	if buf.Palette != nil && len(buf.Palette.Entries) > 0 {
		entries = buf.Palette.Entries
	}
	for i := 0; i < 16; i++ {
		e := color.RGB{}
		if i < len(entries) {
			e = entries[i]
		}
		out.WriteByte(e.R / 4)
		out.WriteByte(e.G / 4)
		out.WriteByte(e.B / 4)
	}

	var font buffer.Font
	if len(buf.Fonts) > 0 {
		font = buf.Fonts[0]
	}
	for c := 0; c < 256; c++ {
		glyph := font.Glyphs[rune(c)]
		row := make([]byte, 16)
		copy(row, glyph)
		out.Write(row)
	}

	l := buf.Base()
	var attrPlane bytes.Buffer
	for y := 0; y < l.Height; y++ {
		for x := 0; x < l.Width; x++ {
			cell := l.Get(x, y)
			out.WriteByte(byte(cell.Ch))
			attrPlane.WriteByte(color.PackSauceAttr(cell.Attr, true))
		}
	}
	out.Write(attrPlane.Bytes())
	return out.Bytes(), nil
}
