package render

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/mkrueger/icy-term-go/pkg/buffer"
)

// Engine wires a Compositor to ebiten's run loop for one open document's
// window, matching IntuitionAmiga-IntuitionEngine's EbitenOutput.Start
// pattern (SetWindowSize/SetWindowTitle/RunGame) but scoped to a single
// Buffer instead of a whole emulated machine's framebuffer.
type Engine struct {
	comp  *Compositor
	buf   *buffer.Buffer
	title string

	crt    *CRTFilter
	canvas *ebiten.Image // offscreen target drawn when crt is enabled
}

// NewEngine builds an Engine for buf, constructing its glyph atlases and
// compiling the CRT post-process shader. The shader is compiled but left
// disabled (CRT().Enabled == false) until a caller opts in via CRT().
func NewEngine(buf *buffer.Buffer, title string) *Engine {
	e := &Engine{comp: NewCompositor(buf), buf: buf, title: title}
	if f, err := NewCRTFilter(); err == nil {
		e.crt = f
	}
	return e
}

// CRT returns the engine's CRT post-process filter (monitor tint,
// scanlines, bloom, noise, curvature), or nil if the shader failed to
// compile. Callers toggle Enabled and the effect parameters on it
// directly.
func (e *Engine) CRT() *CRTFilter { return e.crt }

// Update satisfies ebiten.Game. The renderer owns no mutable state beyond
// display toggles — Buffer mutation happens on the session reactor's
// goroutine (pkg/session), not here, so Update has nothing to advance.
func (e *Engine) Update() error {
	return nil
}

// Draw satisfies ebiten.Game. When the CRT filter is enabled, the
// Compositor renders into an offscreen canvas first and the filter
// composites that onto screen; otherwise the Compositor draws straight to
// screen, paying no extra offscreen-pass cost.
func (e *Engine) Draw(screen *ebiten.Image) {
	if e.crt == nil || !e.crt.Enabled {
		e.comp.Draw(screen, e.buf)
		return
	}
	w, h := e.comp.Layout(e.buf)
	if e.canvas == nil || e.canvas.Bounds().Dx() != w || e.canvas.Bounds().Dy() != h {
		e.canvas = ebiten.NewImage(w, h)
	}
	e.comp.Draw(e.canvas, e.buf)
	e.crt.Apply(screen, e.canvas)
}

// Layout satisfies ebiten.Game.
func (e *Engine) Layout(outsideWidth, outsideHeight int) (int, int) {
	return e.comp.Layout(e.buf)
}

// Run opens the window and blocks until it is closed, exactly like
// IntuitionEngine's EbitenOutput.Start/ebiten.RunGame call.
func (e *Engine) Run() error {
	w, h := e.comp.Layout(e.buf)
	ebiten.SetWindowSize(w, h)
	ebiten.SetWindowTitle(e.title)
	ebiten.SetWindowResizable(true)
	ebiten.SetVsyncEnabled(true)
	if err := ebiten.RunGame(e); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}

// SetShowGuides toggles the editor's alignment-guide overlay.
func (e *Engine) SetShowGuides(show bool) { e.comp.ShowGuides = show }

// SetCaretVisible toggles whether the caret is drawn at all (distinct
// from Buffer.Terminal.CaretVisible, which is the emulation's own
// show/hide-cursor escape-sequence state — both must be true to draw).
func (e *Engine) SetCaretVisible(v bool) { e.comp.CaretVisible = v }
