package fileformat

import (
	"github.com/mkrueger/icy-term-go/pkg/buffer"
	"github.com/mkrueger/icy-term-go/pkg/color"
)

// adfPaletteLen is the fixed 16-entry, 3-byte-per-entry VGA DAC palette
// that opens every Artworx .adf file.
const adfPaletteLen = 16 * 3

// loadAdf decodes an Artworx ADF: a 1-byte font-selector (0 = built-in 8x16,
// ignored here), a 48-byte VGA palette, then a fixed 80-column char+attr
// stream running to EOF (no row count is stored; it's derived from length).
func loadAdf(data []byte) (*buffer.Buffer, error) {
	if err := requireLen(data, 1+adfPaletteLen, "adf header"); err != nil {
		return nil, err
	}
	pos := 1 // font selector byte, skipped
	pal := &color.Palette{Label: "ADF", Mode: color.Dos16, Entries: make([]color.RGB, 16)}
	for i := 0; i < 16; i++ {
		r, g, b := data[pos+i*3], data[pos+i*3+1], data[pos+i*3+2]
		pal.Entries[i] = color.RGB{R: r * 4, G: g * 4, B: b * 4}
	}
	pos += adfPaletteLen

	const cols = 80
	content := data[pos:]
	cellCount := len(content) / 2
	rows := (cellCount + cols - 1) / cols
	if rows < 1 {
		rows = 1
	}
	buf := buffer.New(cols, rows, buffer.TypeAnsi)
	buf.Palette = pal
	l := buf.Base()
	for i := 0; i < cellCount; i++ {
		ch := content[i*2]
		attrByte := content[i*2+1]
		x, y := i%cols, i/cols
		l.Set(x, y, buffer.AttributedChar{Ch: rune(ch), Attr: color.UnpackSauceAttr(attrByte, false)})
	}
	return buf, nil
}
