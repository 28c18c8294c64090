package buffer

// SelectOp is the set-arithmetic mode applied by a selection brush.
type SelectOp int

const (
	SelectReplace SelectOp = iota
	SelectAdd
	SelectSubtract
)

// Rect is an axis-aligned rectangle in base-layer cell coordinates. It may
// extend beyond the canvas (§3 Selection Mask).
type Rect struct {
	X, Y, W, H int
}

// Contains reports whether (x,y)'s cell center falls inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// SelectionMask is a dense cell-aligned bitmap plus an accompanying
// rectangle. A cell is selected iff the rectangle covers it OR the mask
// bit is set (union semantics, §3).
type SelectionMask struct {
	Width, Height int
	Rect          Rect
	bits          []bool
}

// NewSelectionMask allocates a mask sized to the base layer.
func NewSelectionMask(width, height int) *SelectionMask {
	return &SelectionMask{Width: width, Height: height, bits: make([]bool, width*height)}
}

func (m *SelectionMask) inBounds(x, y int) bool {
	return x >= 0 && x < m.Width && y >= 0 && y < m.Height
}

// Contains reports whether (x,y) is selected under the union rule. It is
// O(1), unaffected by zoom or scroll (§8 Testable Properties).
func (m *SelectionMask) Contains(x, y int) bool {
	if m.Rect.Contains(x, y) {
		return true
	}
	if !m.inBounds(x, y) {
		return false
	}
	return m.bits[y*m.Width+x]
}

// ApplyRect combines rect into the mask's tracked rectangle/bits per op.
// Replace resets the mask and sets Rect to rect; Add/Subtract bake rect's
// cells into the dense bitmap (clearing Rect afterward) so later
// operations compose correctly.
func (m *SelectionMask) ApplyRect(rect Rect, op SelectOp) {
	switch op {
	case SelectReplace:
		for i := range m.bits {
			m.bits[i] = false
		}
		m.Rect = rect
	case SelectAdd:
		m.bakeRect()
		m.setRectBits(rect, true)
	case SelectSubtract:
		m.bakeRect()
		m.setRectBits(rect, false)
	}
}

// bakeRect folds the tracked Rect into the dense bitmap and clears Rect,
// so subsequent Add/Subtract brushes operate on a single representation.
func (m *SelectionMask) bakeRect() {
	if m.Rect.W == 0 || m.Rect.H == 0 {
		return
	}
	m.setRectBits(m.Rect, true)
	m.Rect = Rect{}
}

func (m *SelectionMask) setRectBits(r Rect, val bool) {
	x0, y0 := r.X, r.Y
	x1, y1 := r.X+r.W, r.Y+r.H
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > m.Width {
		x1 = m.Width
	}
	if y1 > m.Height {
		y1 = m.Height
	}
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			m.bits[y*m.Width+x] = val
		}
	}
}

// AddCell sets a single cell's bit, used by the single-cell "Add" brush
// (§8 scenario 2).
func (m *SelectionMask) AddCell(x, y int) {
	if m.inBounds(x, y) {
		m.bits[y*m.Width+x] = true
	}
}

// SubtractCell clears a single cell's bit.
func (m *SelectionMask) SubtractCell(x, y int) {
	if m.inBounds(x, y) {
		m.bits[y*m.Width+x] = false
	}
}

// SelectAll selects every cell.
func (m *SelectionMask) SelectAll() {
	m.Rect = Rect{X: 0, Y: 0, W: m.Width, H: m.Height}
	for i := range m.bits {
		m.bits[i] = false
	}
}

// Clear deselects everything.
func (m *SelectionMask) Clear() {
	m.Rect = Rect{}
	for i := range m.bits {
		m.bits[i] = false
	}
}

// Invert flips every cell's selection state.
func (m *SelectionMask) Invert() {
	m.bakeRect()
	for i := range m.bits {
		m.bits[i] = !m.bits[i]
	}
}

// SelectByAttribute selects every cell of layer l for which predicate
// returns true, combined into the mask per op.
func SelectByAttribute(m *SelectionMask, l *Layer, predicate func(AttributedChar) bool, op SelectOp) {
	if op == SelectReplace {
		m.Clear()
	} else {
		m.bakeRect()
	}
	for y := 0; y < l.Height && y < m.Height; y++ {
		for x := 0; x < l.Width && x < m.Width; x++ {
			if predicate(l.Get(x, y)) {
				if op == SelectSubtract {
					m.SubtractCell(x, y)
				} else {
					m.AddCell(x, y)
				}
			}
		}
	}
}

// Sample performs the exact integer texel fetch the renderer's shader must
// use for the selection-mask texture (§4.8, §8 scenario 5): no
// interpolation, just Contains at the given integer cell.
func (m *SelectionMask) Sample(x, y int) bool {
	return m.Contains(x, y)
}
