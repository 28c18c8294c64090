// Package color implements the palette and attribute model (C1): color
// resolution against a palette, palette-mode constraints, and the SAUCE/VGA
// attribute-byte packing used by file codecs and the ANSI emulation parser.
package color

import "fmt"

// Kind tags which variant of Color is active.
type Kind uint8

const (
	KindDefault Kind = iota
	KindPalette
	KindTrueColor
)

// Color is the sum type {Default, Palette(index), TrueColor(r,g,b)}.
type Color struct {
	Kind  Kind
	Index uint8
	R, G, B uint8
}

// Default is the "use the terminal's default" color.
var Default = Color{Kind: KindDefault}

// FromPalette builds a Palette(index) color.
func FromPalette(index uint8) Color {
	return Color{Kind: KindPalette, Index: index}
}

// FromRGB builds a TrueColor(r,g,b) color.
func FromRGB(r, g, b uint8) Color {
	return Color{Kind: KindTrueColor, R: r, G: g, B: b}
}

// Mode constrains what colors parsers may assign.
type Mode uint8

const (
	Unrestricted Mode = iota
	Dos16
	Free16
	Free8
	ExtC64
	EGA64
	XTerm256
	Viewdata
	ExtractedFromBuffer
)

// Palette is an ordered list of RGB triples with an identifying label and a
// mode tag. Palette indices resolve against Entries.
type Palette struct {
	Label   string
	Mode    Mode
	Entries []RGB
}

// RGB is a single palette entry.
type RGB struct {
	R, G, B uint8
}

// DOS16 is the classic 16-color CGA/EGA/VGA palette used by most SAUCE art.
var DOS16 = []RGB{
	{0x00, 0x00, 0x00}, {0x00, 0x00, 0xAA}, {0x00, 0xAA, 0x00}, {0x00, 0xAA, 0xAA},
	{0xAA, 0x00, 0x00}, {0xAA, 0x00, 0xAA}, {0xAA, 0x55, 0x00}, {0xAA, 0xAA, 0xAA},
	{0x55, 0x55, 0x55}, {0x55, 0x55, 0xFF}, {0x55, 0xFF, 0x55}, {0x55, 0xFF, 0xFF},
	{0xFF, 0x55, 0x55}, {0xFF, 0x55, 0xFF}, {0xFF, 0xFF, 0x55}, {0xFF, 0xFF, 0xFF},
}

// NewDos16 returns the standard 16-color VGA palette.
func NewDos16() *Palette {
	return &Palette{Label: "VGA 16", Mode: Dos16, Entries: append([]RGB(nil), DOS16...)}
}

// Resolve maps a Color to concrete RGB against p. A nil or empty palette
// falls back to DOS16 for Palette colors and black for Default.
func Resolve(c Color, p *Palette) (r, g, b uint8) {
	switch c.Kind {
	case KindTrueColor:
		return c.R, c.G, c.B
	case KindPalette:
		entries := DOS16
		if p != nil && len(p.Entries) > 0 {
			entries = p.Entries
		}
		idx := int(c.Index)
		if idx < 0 || idx >= len(entries) {
			idx = 0
		}
		e := entries[idx]
		return e.R, e.G, e.B
	default:
		return 0, 0, 0
	}
}

// Constrain enforces the palette mode's limits on c, returning the nearest
// legal color. Constrain is idempotent: Constrain(Constrain(c, m), m) ==
// Constrain(c, m).
func Constrain(c Color, mode Mode) Color {
	switch mode {
	case Dos16:
		if c.Kind == KindTrueColor {
			return FromPalette(nearestDos16(c.R, c.G, c.B))
		}
		if c.Kind == KindPalette && c.Index >= 16 {
			return FromPalette(c.Index % 16)
		}
		return c
	case Free8:
		if c.Kind == KindTrueColor {
			return FromPalette(nearestDos16(c.R, c.G, c.B) % 8)
		}
		if c.Kind == KindPalette && c.Index >= 8 {
			return FromPalette(c.Index % 8)
		}
		return c
	case XTerm256:
		if c.Kind == KindPalette && int(c.Index) > 255 {
			return FromPalette(255)
		}
		return c
	default:
		return c
	}
}

func nearestDos16(r, g, b uint8) uint8 {
	best := uint8(0)
	bestDist := int64(-1)
	for i, e := range DOS16 {
		dr := int64(r) - int64(e.R)
		dg := int64(g) - int64(e.G)
		db := int64(b) - int64(e.B)
		dist := dr*dr + dg*dg + db*db
		if bestDist < 0 || dist < bestDist {
			bestDist = dist
			best = uint8(i)
		}
	}
	return best
}

func (c Color) String() string {
	switch c.Kind {
	case KindTrueColor:
		return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
	case KindPalette:
		return fmt.Sprintf("pal(%d)", c.Index)
	default:
		return "default"
	}
}
