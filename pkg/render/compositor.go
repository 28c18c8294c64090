package render

import (
	gocolor "image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/mkrueger/icy-term-go/pkg/buffer"
	"github.com/mkrueger/icy-term-go/pkg/color"
)

// RasterGrid is the editor's alignment-grid overlay: lines every SpacingX/
// SpacingY document pixels, scaled by Zoom and clamped to at least one
// device pixel thick (§8 scenario 6).
type RasterGrid struct {
	Enabled        bool
	SpacingX       int
	SpacingY       int
	Color          gocolor.RGBA
}

// Compositor draws the frames Engine (the ebiten.Game) presents: each Draw
// paints every visible layer of a Buffer bottom to top, then the raster
// grid, selection overlay, caret and guide dots, onto one ebiten.Image
// sized to the canvas in pixels. Beyond the atlas cache it holds only
// display toggles and the selection animation counter — the Buffer it's
// given each Draw is the single source of truth, matching the renderer's
// read-only-snapshot contract (§3 Ownership).
type Compositor struct {
	atlases map[int]*Atlas // keyed by font page index into Buffer.Fonts
	cellW   int
	cellH   int

	CaretVisible bool
	ShowGuides   bool
	GuideColor   gocolor.RGBA

	RasterGrid     RasterGrid
	Zoom           float64 // 1.0 = no zoom; used by RasterGrid pitch, defaults to 1 when 0
	SelectionColor gocolor.RGBA // alternate color for the marching-ants border; default white

	frame int // advanced once per drawSelection call, drives the marching-ants phase
}

// NewCompositor builds glyph atlases for every font page in buf up front;
// Draw never allocates a new atlas mid-frame.
func NewCompositor(buf *buffer.Buffer) *Compositor {
	c := &Compositor{atlases: make(map[int]*Atlas, len(buf.Fonts))}
	for i, f := range buf.Fonts {
		a := BuildAtlas(f)
		c.atlases[i] = a
		w, h := a.CellSize()
		if w > c.cellW {
			c.cellW = w
		}
		if h > c.cellH {
			c.cellH = h
		}
	}
	if c.cellW == 0 {
		c.cellW, c.cellH = 8, 16
	}
	return c
}

// Layout sizes the output image to the buffer's cell grid in pixels —
// ebiten.Game's Layout contract (IntuitionEngine's EbitenOutput.Layout).
func (c *Compositor) Layout(buf *buffer.Buffer) (outW, outH int) {
	return buf.Cols * c.cellW, buf.Rows * c.cellH
}

// Draw composites buf onto screen: every visible layer bottom to top,
// then caret and selection overlay.
func (c *Compositor) Draw(screen *ebiten.Image, buf *buffer.Buffer) {
	screen.Fill(gocolor.Black)
	for _, l := range buf.Layers {
		if !l.Visible {
			continue
		}
		c.drawLayer(screen, buf, l)
	}
	if c.RasterGrid.Enabled {
		c.drawRasterGrid(screen, buf)
	}
	if buf.Selection != nil {
		c.drawSelection(screen, buf)
	}
	if c.CaretVisible && buf.Terminal.CaretVisible {
		c.drawCaret(screen, buf)
	}
	if c.ShowGuides {
		c.drawGuides(screen, buf)
	}
}

func (c *Compositor) drawLayer(screen *ebiten.Image, buf *buffer.Buffer, l *buffer.Layer) {
	for y := 0; y < l.Height; y++ {
		for x := 0; x < l.Width; x++ {
			cell := l.Get(x, y)
			if cell.Ch == ' ' && cell.Attr.Background == (color.Color{}) {
				continue
			}
			c.drawCell(screen, buf, cell, x+l.OffsetX, y+l.OffsetY)
		}
	}
}

func (c *Compositor) drawCell(screen *ebiten.Image, buf *buffer.Buffer, cell buffer.AttributedChar, cx, cy int) {
	atlas, ok := c.atlases[int(cell.Attr.FontPage)]
	if !ok {
		atlas, ok = c.atlases[0]
		if !ok {
			return
		}
	}
	fg, bg := cell.Attr.Foreground, cell.Attr.Background
	if cell.Attr.Has(color.Inverse) {
		fg, bg = bg, fg
	}
	fr, fg2, fb := color.Resolve(fg, buf.Palette)
	br, bg2, bb := color.Resolve(bg, buf.Palette)

	px, py := float64(cx*c.cellW), float64(cy*c.cellH)

	bgImg := ebiten.NewImage(c.cellW, c.cellH)
	bgImg.Fill(gocolor.RGBA{R: br, G: bg2, B: bb, A: 255})
	var bgOp ebiten.DrawImageOptions
	bgOp.GeoM.Translate(px, py)
	screen.DrawImage(bgImg, &bgOp)

	glyph, ok := atlas.SubImage(cell.Ch)
	if !ok || cell.Attr.Has(color.Conceal) {
		return
	}
	var op ebiten.DrawImageOptions
	op.GeoM.Translate(px, py)
	op.ColorScale.ScaleWithColor(gocolor.RGBA{R: fr, G: fg2, B: fb, A: 255})
	screen.DrawImage(glyph, &op)
}

// drawSelection draws the marching-ants border of the selection mask
// (§4.8): 1-device-pixel segments along every edge where a selected cell
// borders an unselected one, using SelectionMask.Sample at cell granularity
// rather than the mask's bounding Rect, since a lasso/ellipse selection is
// not rectangular. The border color alternates black/SelectionColor on an
// 8 Hz phase, advanced once per Draw call.
func (c *Compositor) drawSelection(screen *ebiten.Image, buf *buffer.Buffer) {
	c.frame++
	sel := c.SelectionColor
	if sel == (gocolor.RGBA{}) {
		sel = gocolor.RGBA{R: 255, G: 255, B: 255, A: 255}
	}
	// ~8 Hz alternation at ebiten's default 60 TPS: a full on/off cycle is
	// 60/8 = 7.5 ticks, so toggle every 4 ticks.
	col := gocolor.RGBA{A: 255}
	if (c.frame/4)%2 == 0 {
		col = sel
	}
	rowLine := ebiten.NewImage(c.cellW, 1)
	rowLine.Fill(col)
	colLine := ebiten.NewImage(1, c.cellH)
	colLine.Fill(col)

	for y := 0; y < buf.Rows; y++ {
		for x := 0; x < buf.Cols; x++ {
			if !buf.Selection.Sample(x, y) {
				continue
			}
			px, py := float64(x*c.cellW), float64(y*c.cellH)
			if !buf.Selection.Sample(x, y-1) {
				c.drawAt(screen, rowLine, px, py)
			}
			if !buf.Selection.Sample(x, y+1) {
				c.drawAt(screen, rowLine, px, py+float64(c.cellH-1))
			}
			if !buf.Selection.Sample(x-1, y) {
				c.drawAt(screen, colLine, px, py)
			}
			if !buf.Selection.Sample(x+1, y) {
				c.drawAt(screen, colLine, px+float64(c.cellW-1), py)
			}
		}
	}
}

func (c *Compositor) drawAt(screen, img *ebiten.Image, x, y float64) {
	var op ebiten.DrawImageOptions
	op.GeoM.Translate(x, y)
	screen.DrawImage(img, &op)
}

// drawRasterGrid renders the alignment grid at RasterGrid.SpacingX/Y
// document pixels scaled by Zoom, clamped to at least one device pixel
// pitch and thickness (§8 scenario 6: spacing (8,16) at 0.5x zoom yields a
// device-pixel pitch of (4,8)).
func (c *Compositor) drawRasterGrid(screen *ebiten.Image, buf *buffer.Buffer) {
	if c.RasterGrid.SpacingX <= 0 || c.RasterGrid.SpacingY <= 0 {
		return
	}
	zoom := c.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	pitchX := int(float64(c.RasterGrid.SpacingX) * zoom)
	pitchY := int(float64(c.RasterGrid.SpacingY) * zoom)
	if pitchX < 1 {
		pitchX = 1
	}
	if pitchY < 1 {
		pitchY = 1
	}
	w, h := buf.Cols*c.cellW, buf.Rows*c.cellH
	colLine := ebiten.NewImage(1, h)
	colLine.Fill(c.RasterGrid.Color)
	for x := 0; x < w; x += pitchX {
		c.drawAt(screen, colLine, float64(x), 0)
	}
	rowLine := ebiten.NewImage(w, 1)
	rowLine.Fill(c.RasterGrid.Color)
	for y := 0; y < h; y += pitchY {
		c.drawAt(screen, rowLine, 0, float64(y))
	}
}

func (c *Compositor) drawCaret(screen *ebiten.Image, buf *buffer.Buffer) {
	x, y := buf.Terminal.CursorX, buf.Terminal.CursorY
	if x < 0 || x >= buf.Cols || y < 0 || y >= buf.Rows {
		return
	}
	h := c.cellH
	switch buf.Terminal.CaretShape {
	case buffer.CaretUnderline:
		h = c.cellH / 8
		if h < 1 {
			h = 1
		}
	}
	caret := ebiten.NewImage(c.cellW, h)
	caret.Fill(gocolor.White)
	var op ebiten.DrawImageOptions
	top := y*c.cellH + (c.cellH - h)
	op.GeoM.Translate(float64(x*c.cellW), float64(top))
	op.Blend = ebiten.BlendXor
	screen.DrawImage(caret, &op)
}

// drawGuides renders a faint dot at the top-left corner of every cell —
// the editor's alignment-guide overlay, drawn only when ShowGuides is set
// (never during normal terminal-client use).
func (c *Compositor) drawGuides(screen *ebiten.Image, buf *buffer.Buffer) {
	dot := ebiten.NewImage(1, 1)
	dot.Fill(c.GuideColor)
	for y := 0; y < buf.Rows; y++ {
		for x := 0; x < buf.Cols; x++ {
			var op ebiten.DrawImageOptions
			op.GeoM.Translate(float64(x*c.cellW), float64(y*c.cellH))
			screen.DrawImage(dot, &op)
		}
	}
}
