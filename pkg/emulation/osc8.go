package emulation

import "github.com/mkrueger/icy-term-go/pkg/buffer"

// ResolveHyperlink maps a cell's AttributedChar.Link id (1-based, 0 means
// no link) back to the URI recorded in l's hyperlink table. The emulator
// itself only ever writes ids onto cells and entries onto the table
// (Ansi.onOsc); everything downstream — renderer hover, scripting cell
// access — reads the link back out through this.
func ResolveHyperlink(l *buffer.Layer, link int) (uri string, ok bool) {
	if link <= 0 || link-1 >= len(l.Hyperlinks) {
		return "", false
	}
	return l.Hyperlinks[link-1].URI, true
}
