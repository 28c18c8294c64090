package fileformat

import (
	"bytes"

	"github.com/mkrueger/icy-term-go/pkg/buffer"
	"github.com/mkrueger/icy-term-go/pkg/color"
)

// loadBin decodes a headerless .bin: raw char+attribute pairs at a fixed
// width (160 columns is the BBS-scene convention; SAUCE TInfo1 overrides
// it when present). Ice-mode colors follow from SAUCE's flag byte, since
// a bare .bin carries no header of its own.
func loadBin(data []byte, defaultCols int) (*buffer.Buffer, error) {
	sauce, contentLen, hasSauce := ParseSauce(data)
	content := data[:contentLen]
	cols := defaultCols
	iceMode := false
	if hasSauce {
		if sauce.Width > 0 {
			cols = sauce.Width
		}
		iceMode = sauce.Flags.IceMode
	}
	if cols <= 0 {
		cols = defaultCols
	}
	cellCount := len(content) / 2
	rows := (cellCount + cols - 1) / cols
	if rows < 1 {
		rows = 1
	}
	buf := buffer.New(cols, rows, buffer.TypeBin)
	buf.IceMode = iceMode
	l := buf.Base()
	for i := 0; i < cellCount; i++ {
		ch := content[i*2]
		attrByte := content[i*2+1]
		x, y := i%cols, i/cols
		l.Set(x, y, buffer.AttributedChar{Ch: rune(ch), Attr: color.UnpackSauceAttr(attrByte, iceMode)})
	}
	if hasSauce {
		sauce.ApplyToBuffer(buf)
	}
	return buf, nil
}

// saveBin emits raw char+attribute pairs row by row, followed by a SAUCE
// trailer carrying the buffer's actual width (TInfo1) so a reader without
// the 160-column convention can still recover it.
func saveBin(buf *buffer.Buffer) ([]byte, error) {
	var out bytes.Buffer
	l := buf.Base()
	for y := 0; y < l.Height; y++ {
		for x := 0; x < l.Width; x++ {
			cell := l.Get(x, y)
			out.WriteByte(byte(cell.Ch))
			out.WriteByte(color.PackSauceAttr(cell.Attr, buf.IceMode))
		}
	}
	return EncodeSauce(out.Bytes(), FromBufferSauce(buf), 1, 0), nil
}
