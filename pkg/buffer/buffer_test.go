package buffer

import "testing"

func TestNewBufferHasBaseLayer(t *testing.T) {
	b := New(80, 25, TypeAnsi)
	if len(b.Layers) != 1 {
		t.Fatalf("expected a single base layer, got %d", len(b.Layers))
	}
	if b.Base().Width != 80 || b.Base().Height != 25 {
		t.Fatalf("base layer size mismatch: %dx%d", b.Base().Width, b.Base().Height)
	}
}

func TestSetRecordsUndoAndUndoRestores(t *testing.T) {
	b := New(10, 5, TypeAnsi)
	base := b.Base()
	before := base.Get(2, 2)
	b.Set(base, 2, 2, AttributedChar{Ch: 'X', Attr: before.Attr})
	if !b.Undo.CanUndo() {
		t.Fatal("expected undo entry after Set")
	}
	b.ApplyUndo()
	if got := base.Get(2, 2); !got.VisuallyEqual(before) {
		t.Fatalf("undo did not restore prior cell: got %+v want %+v", got, before)
	}
	if !b.Undo.CanRedo() {
		t.Fatal("expected redo entry after undo")
	}
}

func TestSetOnLockedLayerIsNoOpAndRecordsNoUndo(t *testing.T) {
	b := New(10, 5, TypeAnsi)
	base := b.Base()
	base.EditLocked = true
	b.Set(base, 0, 0, AttributedChar{Ch: 'Z', Attr: base.Get(0, 0).Attr})
	if base.Get(0, 0).Ch != ' ' {
		t.Fatal("locked layer should not have been mutated")
	}
	if b.Undo.CanUndo() {
		t.Fatal("locked-layer write must not record undo")
	}
}

func TestScrollUpShiftsRowsAndBlanksBottom(t *testing.T) {
	b := New(5, 3, TypeAnsi)
	base := b.Base()
	base.Set(0, 1, AttributedChar{Ch: 'A', Attr: base.Get(0, 1).Attr})
	b.Scroll(base, Rect{X: 0, Y: 0, W: 5, H: 3}, ScrollUp)
	if base.Get(0, 0).Ch != 'A' {
		t.Fatalf("expected row 1 content shifted into row 0, got %q", base.Get(0, 0).Ch)
	}
	if base.Get(0, 2).Ch != ' ' {
		t.Fatal("expected bottom row blanked after scroll up")
	}
}

func TestFlipHorizontalMirrorsRow(t *testing.T) {
	b := New(4, 1, TypeAnsi)
	base := b.Base()
	base.Set(0, 0, AttributedChar{Ch: 'L', Attr: base.Get(0, 0).Attr})
	base.Set(3, 0, AttributedChar{Ch: 'R', Attr: base.Get(3, 0).Attr})
	b.Flip(base, FlipHorizontal)
	if base.Get(0, 0).Ch != 'R' || base.Get(3, 0).Ch != 'L' {
		t.Fatalf("flip horizontal did not mirror row: %q %q", base.Get(0, 0).Ch, base.Get(3, 0).Ch)
	}
}

func TestResizeClampsCursorAndSelection(t *testing.T) {
	b := New(80, 25, TypeAnsi)
	b.Terminal.CursorX, b.Terminal.CursorY = 79, 24
	b.Resize(40, 10, false)
	if b.Terminal.CursorX >= 40 || b.Terminal.CursorY >= 10 {
		t.Fatalf("cursor not clamped after resize: %d,%d", b.Terminal.CursorX, b.Terminal.CursorY)
	}
	if b.Selection.Width != 40 || b.Selection.Height != 10 {
		t.Fatal("selection mask not resized with canvas")
	}
}

// TestSelectionUnionAcrossBrushStrokes exercises §8 scenario 2: a rectangle
// select followed by an Add-mode single-cell brush outside the rectangle
// must union, not replace.
func TestSelectionUnionAcrossBrushStrokes(t *testing.T) {
	b := New(10, 10, TypeAnsi)
	b.Selection.ApplyRect(Rect{X: 0, Y: 0, W: 3, H: 3}, SelectReplace)
	b.Selection.AddCell(8, 8)
	if !b.Selection.Contains(1, 1) {
		t.Fatal("expected original rectangle still selected")
	}
	if !b.Selection.Contains(8, 8) {
		t.Fatal("expected brushed cell selected")
	}
	if b.Selection.Contains(5, 5) {
		t.Fatal("expected untouched cell not selected")
	}
}

func TestApplyRedoReplaysForwardMutation(t *testing.T) {
	b := New(10, 5, TypeAnsi)
	base := b.Base()
	before := base.Get(1, 1)
	b.Set(base, 1, 1, AttributedChar{Ch: 'Q', Attr: before.Attr})
	b.ApplyUndo()
	b.ApplyRedo()
	if got := base.Get(1, 1); got.Ch != 'Q' {
		t.Fatalf("redo did not reapply forward mutation, got %q", got.Ch)
	}
}
