package emulation

import (
	"fmt"

	"github.com/mkrueger/icy-term-go/pkg/buffer"
	"github.com/mkrueger/icy-term-go/pkg/color"
)

// SixelImage is the decoded pixel grid produced by DecodeSixel, before it
// is wrapped into a buffer.Layer.
type SixelImage struct {
	Width, Height int
	Pixels        []color.RGB // row-major
	Palette       []color.RGB
}

// DecodeSixel parses a DECSIXEL payload (the bytes between "DCS q" and
// "ST", params already stripped by the caller down to the body starting
// at 'q' or past it — both forms are accepted). It implements the
// raster-attribute ('), color-register (#), repeat (!), carriage-return
// ($), and newline (-) introducers plus the sixel data bytes 0x3f-0x7e,
// per §4.3 Sixel.
func DecodeSixel(raw []byte) (*SixelImage, error) {
	data := raw
	for len(data) > 0 && (data[0] == 'q' || (data[0] >= '0' && data[0] <= '9') || data[0] == ';') {
		data = data[1:]
	}

	img := &SixelImage{Palette: defaultSixelPalette()}
	x, y := 0, 0
	curColor := 0
	var repeat int

	ensure := func(w, h int) {
		if w <= img.Width && h <= img.Height {
			return
		}
		oldW, oldH := img.Width, img.Height
		if w > img.Width {
			img.Width = w
		}
		if h > img.Height {
			img.Height = h
		}
		grown := make([]color.RGB, img.Width*img.Height)
		for row := 0; row < oldH; row++ {
			copy(grown[row*img.Width:], img.Pixels[row*oldW:(row+1)*oldW])
		}
		img.Pixels = grown
	}

	plot := func(px, py, reg int) {
		ensure(px+1, py+1)
		if reg < 0 || reg >= len(img.Palette) {
			reg = 0
		}
		img.Pixels[py*img.Width+px] = img.Palette[reg]
	}

	i := 0
	for i < len(data) {
		b := data[i]
		switch {
		case b == '#':
			i++
			n, consumed := scanInt(data[i:])
			i += consumed
			if i < len(data) && data[i] == ';' {
				// Color definition: #Pc;Pu;Px;Py;Pz
				parts := []int{n}
				for len(parts) < 5 && i < len(data) && data[i] == ';' {
					i++
					v, c2 := scanInt(data[i:])
					i += c2
					parts = append(parts, v)
				}
				if len(parts) == 5 && parts[1] == 2 {
					idx := parts[0]
					for idx >= len(img.Palette) {
						img.Palette = append(img.Palette, color.RGB{})
					}
					img.Palette[idx] = color.RGB{
						R: uint8(parts[2] * 255 / 100),
						G: uint8(parts[3] * 255 / 100),
						B: uint8(parts[4] * 255 / 100),
					}
				}
			} else {
				curColor = n
			}
		case b == '!':
			i++
			n, consumed := scanInt(data[i:])
			i += consumed
			repeat = n
		case b == '$':
			x = 0
			i++
		case b == '-':
			x = 0
			y += 6
			i++
		case b == '\'':
			i++
			// Raster attributes Pan;Pad;Ph;Pv — aspect/size hint, consumed
			// and discarded; the embedded layer is sized from plotted pixels.
			for i < len(data) && (data[i] == ';' || (data[i] >= '0' && data[i] <= '9')) {
				i++
			}
		case b >= '?' && b <= '~':
			n := 1
			if repeat > 0 {
				n = repeat
			}
			bits := b - '?'
			for k := 0; k < n; k++ {
				for row := 0; row < 6; row++ {
					if bits&(1<<uint(row)) != 0 {
						plot(x, y+row, curColor)
					}
				}
				x++
			}
			repeat = 0
			i++
		default:
			i++
		}
	}
	if img.Width == 0 || img.Height == 0 {
		return nil, fmt.Errorf("emulation: empty sixel image")
	}
	return img, nil
}

func scanInt(data []byte) (int, int) {
	n := 0
	i := 0
	for i < len(data) && data[i] >= '0' && data[i] <= '9' {
		n = n*10 + int(data[i]-'0')
		i++
	}
	return n, i
}

func defaultSixelPalette() []color.RGB {
	p := make([]color.RGB, 16)
	copy(p, color.DOS16)
	return p
}

// NewSixelLayer wraps img into an image-role Layer positioned at the given
// cell, each sixel pixel mapped 1:1 onto a cell tagged RoleImage so the
// renderer's exact-integer sampling contract (§4.8) still applies.
func NewSixelLayer(img *SixelImage, cellX, cellY int) *buffer.Layer {
	l := buffer.NewLayer("sixel", "Sixel Image", img.Width, img.Height)
	l.OffsetX, l.OffsetY = cellX, cellY
	l.Role = buffer.RoleImage
	l.AlphaEnabled = true
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			p := img.Pixels[y*img.Width+x]
			attr := color.DefaultAttribute
			attr.Background = color.FromRGB(p.R, p.G, p.B)
			l.Set(x, y, buffer.AttributedChar{Ch: ' ', Attr: attr})
		}
	}
	return l
}
