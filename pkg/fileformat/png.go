package fileformat

import (
	"bytes"
	"image"
	"image/draw"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/mkrueger/icy-term-go/pkg/buffer"
	"github.com/mkrueger/icy-term-go/pkg/color"
)

// savePNG rasterizes buf's composite (top-down layer merge, same as
// buffer.Buffer.Get) using the current palette and basicfont.Face7x13 as
// the glyph source, since embedded bitmap fonts are rendered by C8's
// ebiten path rather than this export-only codec. Export is one-shot and
// never round-trips back through Load.
func savePNG(buf *buffer.Buffer) ([]byte, error) {
	cellW, cellH := 7, 13
	img := image.NewRGBA(image.Rect(0, 0, buf.Cols*cellW, buf.Rows*cellH))

	face := basicfont.Face7x13
	for y := 0; y < buf.Rows; y++ {
		for x := 0; x < buf.Cols; x++ {
			cell := buf.Get(x, y)
			fr, fg, fb := color.Resolve(cell.Attr.Foreground, buf.Palette)
			br, bg, bb := color.Resolve(cell.Attr.Background, buf.Palette)
			if cell.Attr.Has(color.Inverse) {
				fr, fg, fb, br, bg, bb = br, bg, bb, fr, fg, fb
			}
			cellRect := image.Rect(x*cellW, y*cellH, (x+1)*cellW, (y+1)*cellH)
			draw.Draw(img, cellRect, &image.Uniform{C: rgbaOf(br, bg, bb)}, image.Point{}, draw.Src)
			if cell.Ch != ' ' && cell.Ch != 0 {
				drawGlyph(img, face, cell.Ch, x*cellW, y*cellH+face.Ascent, rgbaOf(fr, fg, fb))
			}
		}
	}

	var out bytes.Buffer
	if err := png.Encode(&out, img); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func rgbaOf(r, g, b uint8) colorRGBA {
	return colorRGBA{r, g, b, 255}
}

type colorRGBA struct{ R, G, B, A uint8 }

func (c colorRGBA) RGBA() (r, g, b, a uint32) {
	return uint32(c.R) * 0x101, uint32(c.G) * 0x101, uint32(c.B) * 0x101, uint32(c.A) * 0x101
}

func drawGlyph(img *image.RGBA, face font.Face, r rune, x, baselineY int, col colorRGBA) {
	d := font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{C: col},
		Face: face,
		Dot:  fixed.P(x, baselineY),
	}
	d.DrawString(string(r))
}
