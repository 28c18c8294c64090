package fileformat

import (
	"bytes"
	"encoding/binary"

	"github.com/mkrueger/icy-term-go/pkg/buffer"
	"github.com/mkrueger/icy-term-go/pkg/color"
)

const xbinSignature = "XBIN\x1a"

// xbinFlags bits, per the XBin header's Flags byte.
const (
	xbinFlagPalette    = 1 << 0
	xbinFlagFont       = 1 << 1
	xbinFlagCompress   = 1 << 2
	xbinFlagNonBlink   = 1 << 3
	xbinFlag512Chars   = 1 << 4
)

// loadXBin decodes the XBIN container: 11-byte header, optional 48-byte
// (16-color) palette, optional font data, then the RLE-compressed or raw
// char+attribute cell stream.
func loadXBin(data []byte) (*buffer.Buffer, error) {
	if err := requireLen(data, 11, "xbin header"); err != nil {
		return nil, err
	}
	if string(data[0:5]) != xbinSignature {
		return nil, invalidFormat("xbin", "missing signature")
	}
	cols := int(binary.LittleEndian.Uint16(data[5:7]))
	rows := int(binary.LittleEndian.Uint16(data[7:9]))
	fontHeight := int(data[9])
	flags := data[10]
	pos := 11

	iceMode := flags&xbinFlagNonBlink != 0
	hasPalette := flags&xbinFlagPalette != 0
	hasFont := flags&xbinFlagFont != 0
	compressed := flags&xbinFlagCompress != 0
	charCount := 256
	if flags&xbinFlag512Chars != 0 {
		charCount = 512
	}
	if fontHeight == 0 {
		fontHeight = 16
	}

	buf := buffer.New(cols, rows, buffer.TypeXBin)
	buf.IceMode = iceMode

	if hasPalette {
		if err := requireLen(data[pos:], 48, "xbin palette"); err != nil {
			return nil, err
		}
		pal := &color.Palette{Label: "XBin", Mode: color.Dos16, Entries: make([]color.RGB, 16)}
		for i := 0; i < 16; i++ {
			r, g, b := data[pos+i*3], data[pos+i*3+1], data[pos+i*3+2]
			pal.Entries[i] = color.RGB{R: r * 4, G: g * 4, B: b * 4} // XBin stores 0-63 VGA DAC values
		}
		buf.Palette = pal
		pos += 48
	}

	if hasFont {
		fontBytes := fontHeight * charCount
		if err := requireLen(data[pos:], fontBytes, "xbin font"); err != nil {
			return nil, err
		}
		font := decodeXBinFont(data[pos:pos+fontBytes], fontHeight, charCount)
		buf.Fonts = append(buf.Fonts, font)
		pos += fontBytes
	}

	cellData := data[pos:]
	if compressed {
		cellData = decompressXBin(cellData, cols*rows)
	}
	l := buf.Base()
	n := cols * rows
	if len(cellData) < n*2 {
		n = len(cellData) / 2
	}
	for i := 0; i < n; i++ {
		ch := cellData[i*2]
		attrByte := cellData[i*2+1]
		attr := color.UnpackSauceAttr(attrByte, iceMode)
		x, y := i%cols, i/cols
		l.Set(x, y, buffer.AttributedChar{Ch: rune(ch), Attr: attr})
	}

	if sauce, _, ok := ParseSauce(data); ok {
		sauce.ApplyToBuffer(buf)
	}
	return buf, nil
}

func decodeXBinFont(data []byte, height, count int) buffer.Font {
	f := buffer.Font{Name: "XBin Font", Width: 8, Height: height, Glyphs: make(map[rune][]byte, count)}
	for c := 0; c < count; c++ {
		start := c * height
		if start+height > len(data) {
			break
		}
		f.Glyphs[rune(c)] = append([]byte(nil), data[start:start+height]...)
	}
	return f
}

// decompressXBin implements the XBin RLE scheme: each run byte's top two
// bits select {no compression, char-compression, attr-compression,
// char+attr-compression}; the bottom six bits plus one give the run count.
func decompressXBin(data []byte, cellCount int) []byte {
	out := make([]byte, 0, cellCount*2)
	i := 0
	for len(out) < cellCount*2 && i < len(data) {
		runByte := data[i]
		i++
		count := int(runByte&0x3f) + 1
		mode := runByte >> 6
		switch mode {
		case 0: // uncompressed run: count*(char,attr) pairs follow literally
			for k := 0; k < count && i+1 < len(data); k++ {
				out = append(out, data[i], data[i+1])
				i += 2
			}
		case 1: // same char, varying attr
			if i >= len(data) {
				return out
			}
			ch := data[i]
			i++
			for k := 0; k < count && i < len(data); k++ {
				out = append(out, ch, data[i])
				i++
			}
		case 2: // same attr, varying char
			if i >= len(data) {
				return out
			}
			attr := data[i]
			i++
			for k := 0; k < count && i < len(data); k++ {
				out = append(out, data[i], attr)
				i++
			}
		case 3: // same char and attr repeated
			if i+1 >= len(data) {
				return out
			}
			ch, attr := data[i], data[i+1]
			i += 2
			for k := 0; k < count; k++ {
				out = append(out, ch, attr)
			}
		}
	}
	return out
}

// saveXBin encodes buf as an uncompressed XBin container (always emits a
// palette and, when buf carries one, the first font slot) so load(save(b))
// round-trips cell-for-cell including ice-mode, per §8.
func saveXBin(buf *buffer.Buffer) ([]byte, error) {
	var out bytes.Buffer
	out.WriteString(xbinSignature)
	var header [6]byte
	binary.LittleEndian.PutUint16(header[0:2], uint16(buf.Cols))
	binary.LittleEndian.PutUint16(header[2:4], uint16(buf.Rows))
	fontHeight := 16
	hasFont := len(buf.Fonts) > 0
	if hasFont {
		fontHeight = buf.Fonts[0].Height
	}
	header[4] = byte(fontHeight)
	flags := byte(xbinFlagPalette)
	if buf.IceMode {
		flags |= xbinFlagNonBlink
	}
	if hasFont {
		flags |= xbinFlagFont
	}
	header[5] = flags
	out.Write(header[:])

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

	if hasFont {
		f := buf.Fonts[0]
		for c := 0; c < 256; c++ {
			glyph := f.Glyphs[rune(c)]
			row := make([]byte, fontHeight)
			copy(row, glyph)
			out.Write(row)
		}
	}

	l := buf.Base()
	for y := 0; y < l.Height; y++ {
		for x := 0; x < l.Width; x++ {
			cell := l.Get(x, y)
			out.WriteByte(byte(cell.Ch))
			out.WriteByte(color.PackSauceAttr(cell.Attr, buf.IceMode))
		}
	}

	result := out.Bytes()
	if buf.Sauce.Title != "" || buf.Sauce.Author != "" {
		result = EncodeSauce(result, FromBufferSauce(buf), 1, 2)
	}
	return result, nil
}
