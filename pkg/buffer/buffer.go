package buffer

import (
	"sync"

	"github.com/mkrueger/icy-term-go/pkg/color"
)

// Type tags which on-disk format this Buffer was loaded from or is
// intended for, per §3 Buffer.
type Type uint8

const (
	TypeAnsi Type = iota
	TypeAscii
	TypePCBoard
	TypeXBin
	TypeBin
	TypeAvatarAnsi
	TypeIcyDraw
)

// CaretShape selects how the renderer draws the caret (§4.8).
type CaretShape uint8

const (
	CaretBar CaretShape = iota
	CaretBlock
	CaretUnderline
)

// MouseTrackingMode mirrors the xterm mouse-report modes negotiated by the
// ANSI parser (§4.3).
type MouseTrackingMode uint8

const (
	MouseOff MouseTrackingMode = iota
	MouseX10
	MouseVT200
	MouseHighlight
	MouseButton
	MouseAnyEvent
)

// ScrollDir is the direction argument to Buffer.Scroll.
type ScrollDir uint8

const (
	ScrollUp ScrollDir = iota
	ScrollDown
	ScrollLeft
	ScrollRight
)

// JustifyMode is the argument to Buffer.Justify.
type JustifyMode uint8

const (
	JustifyLeft JustifyMode = iota
	JustifyCenter
	JustifyRight
)

// FlipAxis selects the mirror axis for Buffer.Flip.
type FlipAxis uint8

const (
	FlipHorizontal FlipAxis = iota
	FlipVertical
)

// Font is one indexed bit-font slot (TDF or embedded bitmap font).
type Font struct {
	Name   string
	Width  int
	Height int
	Glyphs map[rune][]byte // row-major 1-bpp glyph bitmap
}

// Sauce is the subset of the 128-byte SAUCE trailer (§4.4) the in-memory
// Buffer retains.
type Sauce struct {
	Title, Author, Group string
	Comments              []string
	IceMode               bool
	LetterSpacing9px      bool
	AspectRatioLegacy     bool
	FontName              string
}

// TerminalState is the mutable cursor/mode state the emulation parser (C3)
// drives and the scripting bridge (C9) observes.
type TerminalState struct {
	CursorX, CursorY int
	InsertMode       bool
	WrapMode         bool
	MarginTop, MarginBottom int
	MouseTracking    MouseTrackingMode
	CaretShape       CaretShape
	CaretBlink       bool
	CaretVisible     bool
	BracketedPaste   bool
}

// Buffer is the collection of layers stacked bottom to top, plus the
// canvas-wide state described in §3.
type Buffer struct {
	mu sync.RWMutex

	Cols, Rows        int
	ScrollbackCapacity int

	Layers []*Layer // bottom-most (index 0) is the base layer

	Terminal TerminalState
	Selection *SelectionMask

	Palette *color.Palette
	Fonts   []Font

	Sauce Sauce

	IceMode       bool
	AspectRatioLegacy bool
	Use9pxFont    bool
	Type          Type

	Undo UndoJournal
}

// New creates a buffer of the given canvas size with a single base layer,
// matching the "new 80x25 ANSI" style template from §3 Lifecycle.
func New(cols, rows int, t Type) *Buffer {
	b := &Buffer{
		Cols: cols, Rows: rows,
		ScrollbackCapacity: 1000,
		Palette:            color.NewDos16(),
		Type:               t,
	}
	base := NewLayer("base", "Background", cols, rows)
	b.Layers = append(b.Layers, base)
	b.Selection = NewSelectionMask(cols, rows)
	b.Terminal.WrapMode = true
	b.Terminal.CaretVisible = true
	return b
}

// Base returns the bottom-most layer.
func (b *Buffer) Base() *Layer {
	if len(b.Layers) == 0 {
		return nil
	}
	return b.Layers[0]
}

// AddLayer appends l as the new top-most layer, used for structural
// insertions like an embedded Sixel/PNG raster image rather than a cell
// edit, so it is not itself wrapped in an undo entry.
func (b *Buffer) AddLayer(l *Layer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Layers = append(b.Layers, l)
}

// RemoveLayer drops l from the stack. A no-op if l is not present (already
// removed, or the base layer index guard below refuses to drop index 0).
func (b *Buffer) RemoveLayer(l *Layer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := b.layerIndex(l)
	if idx <= 0 {
		return
	}
	b.Layers = append(b.Layers[:idx], b.Layers[idx+1:]...)
}

// AnchorFloatingLayer merges floating's cells onto target at floating's
// offset, then removes floating from the layer stack — the "anchor"
// operation an ANSI-art editor runs when a pasted or moved selection is
// committed into its destination layer. When floating.AlphaEnabled, Space
// cells in floating are treated as transparent and skipped, so anchoring an
// irregular selection doesn't stamp blank cells over existing art on
// target. The merge leaves target's own AlphaEnabled/AlphaLocked flags
// untouched; anchor only ever touches cell content.
func (b *Buffer) AnchorFloatingLayer(target, floating *Layer) {
	b.mu.Lock()
	commit := b.snapshotOp(target, "Anchor Layer")
	for y := 0; y < floating.Height; y++ {
		for x := 0; x < floating.Width; x++ {
			ch := floating.Get(x, y)
			if floating.AlphaEnabled && ch.VisuallyEqual(Space) {
				continue
			}
			tx := x + floating.OffsetX - target.OffsetX
			ty := y + floating.OffsetY - target.OffsetY
			target.setNoUndo(tx, ty, ch)
		}
	}
	commit()
	b.mu.Unlock()
	b.RemoveLayer(floating)
}

// Get composites visible layers top-down until a non-transparent cell or
// the base layer, per §4.2.
func (b *Buffer) Get(x, y int) AttributedChar {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for i := len(b.Layers) - 1; i >= 0; i-- {
		l := b.Layers[i]
		if !l.Visible {
			continue
		}
		lx, ly := x-l.OffsetX, y-l.OffsetY
		if !l.inBounds(lx, ly) {
			continue
		}
		cell := l.Get(lx, ly)
		if i == 0 {
			return cell
		}
		if l.AlphaEnabled && cell.VisuallyEqual(Space) {
			continue
		}
		return cell
	}
	return Space
}

// layerIndex returns l's index in b.Layers, or -1.
func (b *Buffer) layerIndex(l *Layer) int {
	for i, candidate := range b.Layers {
		if candidate == l {
			return i
		}
	}
	return -1
}

// Set writes ch into l at local coordinates (x,y), recording an undo op
// unless l is locked or the coordinate is out of that layer's bounds
// (§4.2: "out-of-bounds writes are ignored... does NOT record an undo
// entry" for locked layers).
func (b *Buffer) Set(l *Layer, x, y int, ch AttributedChar) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if l.EditLocked || !l.inBounds(x, y) {
		return
	}
	prev := l.Get(x, y)
	if prev.VisuallyEqual(ch) {
		return
	}
	idx := b.layerIndex(l)
	l.Set(x, y, ch)
	b.Undo.Push(UndoEntry{Label: "Draw", Ops: []UndoOp{cellOp{layerIdx: idx, x: x, y: y, prev: prev}}})
}

// setNoUndo writes without recording history, for use inside structural
// ops that record a single layerSnapshotOp for the whole operation.
func (l *Layer) setNoUndo(x, y int, ch AttributedChar) {
	if !l.inBounds(x, y) {
		return
	}
	l.cells[y*l.Width+x] = ch
}

// snapshotOp clones l's current state and returns a commit func that, when
// called after the caller has mutated l in place, pushes a single
// layerSnapshotOp undo entry capturing the pre-mutation snapshot.
func (b *Buffer) snapshotOp(l *Layer, label string) func() {
	idx := b.layerIndex(l)
	before := l.Clone()
	return func() {
		b.Undo.Push(UndoEntry{Label: label, Ops: []UndoOp{layerSnapshotOp{layerIdx: idx, snapshot: before}}})
	}
}

// InsertRow shifts rows at and below y down by one within l, dropping the
// last row and inserting a blank row at y.
func (b *Buffer) InsertRow(l *Layer, y int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if l.EditLocked || y < 0 || y >= l.Height {
		return
	}
	commit := b.snapshotOp(l, "Insert Row")
	for row := l.Height - 1; row > y; row-- {
		copy(l.cells[row*l.Width:(row+1)*l.Width], l.cells[(row-1)*l.Width:row*l.Width])
	}
	for x := 0; x < l.Width; x++ {
		l.setNoUndo(x, y, Space)
	}
	commit()
}

// DeleteRow removes row y from l, shifting rows below it up and filling
// the vacated bottom row with Space.
func (b *Buffer) DeleteRow(l *Layer, y int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if l.EditLocked || y < 0 || y >= l.Height {
		return
	}
	commit := b.snapshotOp(l, "Delete Row")
	for row := y; row < l.Height-1; row++ {
		copy(l.cells[row*l.Width:(row+1)*l.Width], l.cells[(row+1)*l.Width:(row+2)*l.Width])
	}
	for x := 0; x < l.Width; x++ {
		l.setNoUndo(x, l.Height-1, Space)
	}
	commit()
}

// InsertCol shifts columns at and right of x within l right by one,
// dropping the last column.
func (b *Buffer) InsertCol(l *Layer, x int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if l.EditLocked || x < 0 || x >= l.Width {
		return
	}
	commit := b.snapshotOp(l, "Insert Column")
	for y := 0; y < l.Height; y++ {
		for col := l.Width - 1; col > x; col-- {
			l.cells[y*l.Width+col] = l.cells[y*l.Width+col-1]
		}
		l.setNoUndo(x, y, Space)
	}
	commit()
}

// DeleteCol removes column x from l, shifting columns right of it left.
func (b *Buffer) DeleteCol(l *Layer, x int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if l.EditLocked || x < 0 || x >= l.Width {
		return
	}
	commit := b.snapshotOp(l, "Delete Column")
	for y := 0; y < l.Height; y++ {
		for col := x; col < l.Width-1; col++ {
			l.cells[y*l.Width+col] = l.cells[y*l.Width+col+1]
		}
		l.setNoUndo(l.Width-1, y, Space)
	}
	commit()
}

// Scroll shifts the cells within area one cell in dir, wrapping nothing —
// vacated cells become Space.
func (b *Buffer) Scroll(l *Layer, area Rect, dir ScrollDir) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if l.EditLocked {
		return
	}
	commit := b.snapshotOp(l, "Scroll")
	x0, y0 := area.X, area.Y
	x1, y1 := area.X+area.W, area.Y+area.H
	switch dir {
	case ScrollUp:
		for y := y0; y < y1-1; y++ {
			for x := x0; x < x1; x++ {
				l.setNoUndo(x, y, l.Get(x, y+1))
			}
		}
		for x := x0; x < x1; x++ {
			l.setNoUndo(x, y1-1, Space)
		}
	case ScrollDown:
		for y := y1 - 1; y > y0; y-- {
			for x := x0; x < x1; x++ {
				l.setNoUndo(x, y, l.Get(x, y-1))
			}
		}
		for x := x0; x < x1; x++ {
			l.setNoUndo(x, y0, Space)
		}
	case ScrollLeft:
		for x := x0; x < x1-1; x++ {
			for y := y0; y < y1; y++ {
				l.setNoUndo(x, y, l.Get(x+1, y))
			}
		}
		for y := y0; y < y1; y++ {
			l.setNoUndo(x1-1, y, Space)
		}
	case ScrollRight:
		for x := x1 - 1; x > x0; x-- {
			for y := y0; y < y1; y++ {
				l.setNoUndo(x, y, l.Get(x-1, y))
			}
		}
		for y := y0; y < y1; y++ {
			l.setNoUndo(x0, y, Space)
		}
	}
	commit()
}

// Erase clears area within l. partial, when true, only blanks the
// character (keeping each cell's own attribute); when false it resets to
// pure Space.
func (b *Buffer) Erase(l *Layer, area Rect, partial bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if l.EditLocked {
		return
	}
	commit := b.snapshotOp(l, "Erase")
	x0, y0 := area.X, area.Y
	x1, y1 := area.X+area.W, area.Y+area.H
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			fill := Space
			if partial {
				fill = l.Get(x, y)
				fill.Ch = ' '
			}
			l.setNoUndo(x, y, fill)
		}
	}
	commit()
}

// Flip mirrors the cells within l's full bounds along axis.
func (b *Buffer) Flip(l *Layer, axis FlipAxis) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if l.EditLocked {
		return
	}
	commit := b.snapshotOp(l, "Flip")
	w, h := l.Width, l.Height
	switch axis {
	case FlipHorizontal:
		for y := 0; y < h; y++ {
			for x := 0; x < w/2; x++ {
				a, bb := l.Get(x, y), l.Get(w-1-x, y)
				l.setNoUndo(x, y, bb)
				l.setNoUndo(w-1-x, y, a)
			}
		}
	case FlipVertical:
		for y := 0; y < h/2; y++ {
			for x := 0; x < w; x++ {
				a, bb := l.Get(x, y), l.Get(x, h-1-y)
				l.setNoUndo(x, y, bb)
				l.setNoUndo(x, h-1-y, a)
			}
		}
	}
	commit()
}

// Justify shifts the non-space content of each row within l's bounds to
// the left, center, or right.
func (b *Buffer) Justify(l *Layer, mode JustifyMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if l.EditLocked {
		return
	}
	commit := b.snapshotOp(l, "Justify")
	for y := 0; y < l.Height; y++ {
		first, last := -1, -1
		for x := 0; x < l.Width; x++ {
			if !l.Get(x, y).VisuallyEqual(Space) {
				if first < 0 {
					first = x
				}
				last = x
			}
		}
		if first < 0 {
			continue
		}
		span := last - first + 1
		row := make([]AttributedChar, span)
		for i := 0; i < span; i++ {
			row[i] = l.Get(first+i, y)
		}
		for x := 0; x < l.Width; x++ {
			l.setNoUndo(x, y, Space)
		}
		var dst int
		switch mode {
		case JustifyLeft:
			dst = 0
		case JustifyCenter:
			dst = (l.Width - span) / 2
		case JustifyRight:
			dst = l.Width - span
		}
		for i, ch := range row {
			l.setNoUndo(dst+i, y, ch)
		}
	}
	commit()
}

// Resize changes the canvas size. When resizeLayers is true every layer is
// resized to cols x rows (dropping cells only on an axis where the new
// size is strictly smaller than the layer's); otherwise layers keep their
// own size and only the canvas and cursor clamp change.
func (b *Buffer) Resize(cols, rows int, resizeLayers bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if resizeLayers {
		for _, l := range b.Layers {
			l.Resize(cols, rows)
		}
	}
	b.Cols, b.Rows = cols, rows
	if b.Terminal.CursorX >= cols {
		b.Terminal.CursorX = cols - 1
	}
	if b.Terminal.CursorY >= rows {
		b.Terminal.CursorY = rows - 1
	}
	newSel := NewSelectionMask(cols, rows)
	newSel.Rect = b.Selection.Rect
	b.Selection = newSel
}

// ApplyUndo pops and applies the most recent undo entry.
func (b *Buffer) ApplyUndo() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Undo.Undo(b)
}

// ApplyRedo re-applies the most recently undone entry.
func (b *Buffer) ApplyRedo() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Undo.Redo(b)
}
