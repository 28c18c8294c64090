// Package render implements the GPU rendering pipeline (C8): a
// sliced-texture glyph atlas built from a buffer.Font, and an
// ebiten.Game-driven compositor that draws the Buffer's layers, caret,
// selection mask, and guide/overlay graphics each frame. Adapted from
// IntuitionAmiga-IntuitionEngine's ebiten video backend, generalized from
// a single raw framebuffer blit to a per-cell glyph atlas compositor.
package render

import (
	"image"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	gobuffer "github.com/mkrueger/icy-term-go/pkg/buffer"
)

// Atlas is a sliced texture: every glyph of one buffer.Font rendered once
// into a single ebiten.Image, with per-glyph sub-image rectangles cached
// so drawing a cell is one DrawImage call with a source-rect offset
// rather than a per-glyph upload.
type Atlas struct {
	texture *ebiten.Image
	cellW   int
	cellH   int
	rects   map[rune]image.Rectangle
}

// BuildAtlas rasterizes every glyph in f into one texture, 32 glyphs per
// row; a font with more glyphs grows the atlas height, not its width.
func BuildAtlas(f gobuffer.Font) *Atlas {
	const glyphsPerRow = 32
	rows := (len(f.Glyphs) + glyphsPerRow - 1) / glyphsPerRow
	if rows == 0 {
		rows = 1
	}
	texW := glyphsPerRow * f.Width
	texH := rows * f.Height
	img := image.NewRGBA(image.Rect(0, 0, texW, texH))

	rects := make(map[rune]image.Rectangle, len(f.Glyphs))
	i := 0
	for r, bitmap := range f.Glyphs {
		col := i % glyphsPerRow
		row := i / glyphsPerRow
		ox, oy := col*f.Width, row*f.Height
		drawGlyphBitmap(img, bitmap, f.Width, f.Height, ox, oy)
		rects[r] = image.Rect(ox, oy, ox+f.Width, oy+f.Height)
		i++
	}

	return &Atlas{
		texture: ebiten.NewImageFromImage(img),
		cellW:   f.Width,
		cellH:   f.Height,
		rects:   rects,
	}
}

// drawGlyphBitmap unpacks a row-major 1-bpp glyph bitmap (one byte per
// row, MSB is the leftmost pixel, matching the embedded-font layout used
// throughout pkg/fileformat) into dst at (ox, oy), painting set bits
// opaque white — the compositor recolors via ColorM per draw.
func drawGlyphBitmap(dst *image.RGBA, bitmap []byte, w, h, ox, oy int) {
	for y := 0; y < h && y < len(bitmap); y++ {
		rowByte := bitmap[y]
		for x := 0; x < w; x++ {
			bit := rowByte&(0x80>>uint(x)) != 0
			if bit {
				dst.Set(ox+x, oy+y, color.White)
			}
		}
	}
}

// CellSize returns the atlas's glyph cell dimensions in pixels.
func (a *Atlas) CellSize() (w, h int) { return a.cellW, a.cellH }

// SubImage returns the glyph sub-image for r, and whether it was found
// (missing glyphs draw as blank cells rather than a placeholder box, since
// a dropped glyph on an 80x25 wall of text is less distracting than a
// tofu box flashing across the whole screen).
func (a *Atlas) SubImage(r rune) (*ebiten.Image, bool) {
	rect, ok := a.rects[r]
	if !ok {
		return nil, false
	}
	return a.texture.SubImage(rect).(*ebiten.Image), true
}
