package color

// AttrFlag is one bit of a cell's attribute set.
type AttrFlag uint16

const (
	Blinking AttrFlag = 1 << iota
	Bold
	Faded
	Italic
	Underline
	DoubleUnderline
	StrikeThrough
	DoubleHeightTop
	DoubleHeightBottom
	Conceal
	CrossedOut
	Protected
	Inverse
)

// Attribute is the foreground/background color pair plus flags and the
// active font page (0 = default SAUCE font) that a cell carries.
type Attribute struct {
	Foreground Color
	Background Color
	Flags      AttrFlag
	FontPage   uint16
}

// Has reports whether f is set.
func (a Attribute) Has(f AttrFlag) bool { return a.Flags&f != 0 }

// With returns a copy of a with f set.
func (a Attribute) With(f AttrFlag) Attribute {
	a.Flags |= f
	return a
}

// Without returns a copy of a with f cleared.
func (a Attribute) Without(f AttrFlag) Attribute {
	a.Flags &^= f
	return a
}

// DefaultAttribute is a plain attribute: default colors, no flags, default font.
var DefaultAttribute = Attribute{Foreground: Default, Background: Default}

// PackSauceAttr encodes fg/bg/blink into the CP437 VGA attribute byte: low
// nibble foreground 0-15, high nibble background 0-7 plus the blink bit
// (0x80). iceMode reinterprets that same blink bit as a background
// intensity bit instead, per §4.1.
func PackSauceAttr(a Attribute, iceMode bool) byte {
	fg := paletteIndexOrZero(a.Foreground) & 0x0F
	bg := paletteIndexOrZero(a.Background) & 0x07
	hi := bg
	if iceMode {
		if paletteIndexOrZero(a.Background) >= 8 {
			hi |= 0x08
		}
	} else if a.Has(Blinking) {
		hi |= 0x08
	}
	return fg | (hi << 4)
}

// UnpackSauceAttr decodes b into an Attribute against DOS16, honoring
// iceMode's reinterpretation of the blink/intensity bit.
func UnpackSauceAttr(b byte, iceMode bool) Attribute {
	fg := b & 0x0F
	hi := (b >> 4) & 0x0F
	bg := hi & 0x07
	a := Attribute{
		Foreground: FromPalette(fg),
		Background: FromPalette(bg),
	}
	if hi&0x08 != 0 {
		if iceMode {
			a.Background = FromPalette(bg | 0x08)
		} else {
			a.Flags |= Blinking
		}
	}
	return a
}

func paletteIndexOrZero(c Color) byte {
	if c.Kind == KindPalette {
		return c.Index
	}
	return 0
}
