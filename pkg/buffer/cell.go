// Package buffer implements the layered character-cell buffer (C2): cells,
// layers, the undo journal, and the selection mask. It follows the
// teacher's (vibetunnel) TerminalBuffer shape — a mutex-guarded grid with a
// snapshot accessor for readers — generalized from a single flat grid to
// stacked layers with per-layer offsets and visibility.
package buffer

import "github.com/mkrueger/icy-term-go/pkg/color"

// AttributedChar is one cell: a Unicode scalar (or codepage byte routed
// through font_page) plus its Attribute. Link is 0 for no hyperlink, or
// one plus the cell's Layer.Hyperlinks index — an index rather than a
// pointer, so cells never hold a back-reference into the layer (§3 Design
// notes, cyclic references).
type AttributedChar struct {
	Ch   rune
	Attr color.Attribute
	Link int
}

// Space is the default empty cell.
var Space = AttributedChar{Ch: ' ', Attr: color.DefaultAttribute}

// VisuallyEqual reports whether a and b are visually equal: same code
// point and same attribute, including blink state and font page.
func (a AttributedChar) VisuallyEqual(b AttributedChar) bool {
	return a.Ch == b.Ch && a.Attr == b.Attr
}
