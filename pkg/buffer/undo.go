package buffer

// UndoOp is the inverse mutation recorded for one undo entry. Apply
// restores the buffer to the state it had before the forward operation
// that produced this entry. Capture reads the buffer's current state (just
// before Apply runs) and returns the op that would restore *that* state,
// which is how Undo builds the matching Redo entry and vice versa.
type UndoOp interface {
	Apply(b *Buffer)
	Capture(b *Buffer) UndoOp
}

// UndoEntry groups one or more UndoOps under a single user-visible label,
// so multi-cell operations (paste, fill) undo atomically.
type UndoEntry struct {
	Label string
	Ops   []UndoOp
}

// UndoJournal is the ordered log of undo entries plus a redo stack that is
// cleared on any non-undo mutation.
type UndoJournal struct {
	undo []UndoEntry
	redo []UndoEntry
}

// Push records entry and clears the redo stack, matching "Redo is a
// separate stack cleared on any non-undo mutation" (§3).
func (j *UndoJournal) Push(entry UndoEntry) {
	if len(entry.Ops) == 0 {
		return
	}
	j.undo = append(j.undo, entry)
	j.redo = nil
}

// CanUndo reports whether there is an entry to undo.
func (j *UndoJournal) CanUndo() bool { return len(j.undo) > 0 }

// CanRedo reports whether there is an entry to redo.
func (j *UndoJournal) CanRedo() bool { return len(j.redo) > 0 }

// Undo pops the most recent undo entry, applies its inverse ops to b, and
// pushes the matching redo entry (captured from b's state immediately
// before each op ran) onto the redo stack. No-op if the undo stack is
// empty.
func (j *UndoJournal) Undo(b *Buffer) {
	if len(j.undo) == 0 {
		return
	}
	entry := j.undo[len(j.undo)-1]
	j.undo = j.undo[:len(j.undo)-1]
	redoOps := make([]UndoOp, len(entry.Ops))
	for i := len(entry.Ops) - 1; i >= 0; i-- {
		redoOps[i] = entry.Ops[i].Capture(b)
		entry.Ops[i].Apply(b)
	}
	j.redo = append(j.redo, UndoEntry{Label: entry.Label, Ops: redoOps})
}

// Redo pops the most recently undone entry, re-applies it, and pushes the
// matching undo entry back onto the undo stack. No-op if the redo stack is
// empty.
func (j *UndoJournal) Redo(b *Buffer) {
	if len(j.redo) == 0 {
		return
	}
	entry := j.redo[len(j.redo)-1]
	j.redo = j.redo[:len(j.redo)-1]
	undoOps := make([]UndoOp, len(entry.Ops))
	for i := 0; i < len(entry.Ops); i++ {
		undoOps[i] = entry.Ops[i].Capture(b)
		entry.Ops[i].Apply(b)
	}
	j.undo = append(j.undo, UndoEntry{Label: entry.Label, Ops: undoOps})
}

// cellOp is the common inverse-mutation primitive: restore one cell of one
// layer to its prior value.
type cellOp struct {
	layerIdx int
	x, y     int
	prev     AttributedChar
}

func (op cellOp) Apply(b *Buffer) {
	if op.layerIdx < 0 || op.layerIdx >= len(b.Layers) {
		return
	}
	b.Layers[op.layerIdx].Set(op.x, op.y, op.prev)
}

func (op cellOp) Capture(b *Buffer) UndoOp {
	if op.layerIdx < 0 || op.layerIdx >= len(b.Layers) {
		return cellOp(op)
	}
	return cellOp{layerIdx: op.layerIdx, x: op.x, y: op.y, prev: b.Layers[op.layerIdx].Get(op.x, op.y)}
}

// layerSnapshotOp restores an entire layer from a cloned snapshot, used by
// structural ops (insert/delete row or column, scroll, erase, flip,
// justify, anchor) where per-cell diffing
// isn't worth it.
type layerSnapshotOp struct {
	layerIdx int
	snapshot *Layer
}

func (op layerSnapshotOp) Apply(b *Buffer) {
	if op.layerIdx < 0 || op.layerIdx >= len(b.Layers) {
		return
	}
	b.Layers[op.layerIdx] = op.snapshot
}

func (op layerSnapshotOp) Capture(b *Buffer) UndoOp {
	if op.layerIdx < 0 || op.layerIdx >= len(b.Layers) {
		return layerSnapshotOp(op)
	}
	return layerSnapshotOp{layerIdx: op.layerIdx, snapshot: b.Layers[op.layerIdx].Clone()}
}
