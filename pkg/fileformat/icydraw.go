package fileformat

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mkrueger/icy-term-go/internal/coreerr"
	"github.com/mkrueger/icy-term-go/pkg/buffer"
	"github.com/mkrueger/icy-term-go/pkg/color"
)

// icyDrawMagic opens every native .icd container, ahead of the versioned
// JSON document that follows it.
const icyDrawMagic = "ICYDRAW1"

// icyDrawCurrentVersion is the document schema version this build writes.
// Save never downgrades: loading an older document upgrades it in memory,
// but a buffer loaded from a newer version than this build understands is
// rejected rather than silently truncated.
const icyDrawCurrentVersion = 1

type icyDrawDoc struct {
	Version int `json:"version"`

	Cols       int  `json:"cols"`
	Rows       int  `json:"rows"`
	IceMode    bool `json:"ice_mode"`
	Use9px     bool `json:"use9px"`
	AspectLeg  bool `json:"aspect_legacy"`

	Palette *icyDrawPalette `json:"palette,omitempty"`
	Fonts   []icyDrawFont   `json:"fonts,omitempty"`
	Layers  []icyDrawLayer  `json:"layers"`

	Sauce icyDrawSauce `json:"sauce"`
}

type icyDrawPalette struct {
	Label   string        `json:"label"`
	Mode    color.Mode    `json:"mode"`
	Entries []color.RGB   `json:"entries"`
}

type icyDrawFont struct {
	Name   string          `json:"name"`
	Width  int             `json:"width"`
	Height int             `json:"height"`
	Glyphs map[string][]byte `json:"glyphs"` // key is the rune formatted as a decimal code point
}

type icyDrawLayer struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	Width          int               `json:"width"`
	Height         int               `json:"height"`
	OffsetX        int               `json:"offset_x"`
	OffsetY        int               `json:"offset_y"`
	Visible        bool              `json:"visible"`
	EditLocked     bool              `json:"edit_locked"`
	PositionLocked bool              `json:"position_locked"`
	AlphaEnabled   bool              `json:"alpha_enabled"`
	AlphaLocked    bool              `json:"alpha_locked"`
	Role           buffer.Role       `json:"role"`
	Cells          []icyDrawCell     `json:"cells"`
	Hyperlinks     []buffer.Hyperlink `json:"hyperlinks,omitempty"`
	Tags           map[string]string `json:"tags,omitempty"` // key "x,y"
}

type icyDrawCell struct {
	Ch   rune          `json:"ch"`
	Attr icyDrawAttr   `json:"attr"`
	Link int           `json:"link,omitempty"`
}

type icyDrawAttr struct {
	Fg       color.Color   `json:"fg"`
	Bg       color.Color   `json:"bg"`
	Flags    color.AttrFlag `json:"flags"`
	FontPage uint16        `json:"font_page"`
}

type icyDrawSauce struct {
	Title, Author, Group string
	Comments              []string
	FontName               string
}

// loadIcyDraw decodes the native versioned container. A document written by
// an older build (Version < icyDrawCurrentVersion) is accepted and upgraded
// in place; a document from a newer build is rejected since this code
// cannot know what it means.
func loadIcyDraw(data []byte) (*buffer.Buffer, error) {
	if len(data) < len(icyDrawMagic) || string(data[:len(icyDrawMagic)]) != icyDrawMagic {
		return nil, invalidFormat("icydraw", "missing magic")
	}
	body := data[len(icyDrawMagic):]
	var doc icyDrawDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, coreerr.Wrap(coreerr.InvalidFormat, "icydraw: decoding document", err)
	}
	if doc.Version > icyDrawCurrentVersion {
		return nil, invalidFormat("icydraw", "document version is newer than this build supports")
	}

	buf := buffer.New(doc.Cols, doc.Rows, buffer.TypeIcyDraw)
	buf.IceMode = doc.IceMode
	buf.Use9pxFont = doc.Use9px
	buf.AspectRatioLegacy = doc.AspectLeg
	buf.Sauce.Title, buf.Sauce.Author, buf.Sauce.Group = doc.Sauce.Title, doc.Sauce.Author, doc.Sauce.Group
	buf.Sauce.Comments = doc.Sauce.Comments
	buf.Sauce.FontName = doc.Sauce.FontName

	if doc.Palette != nil {
		buf.Palette = &color.Palette{Label: doc.Palette.Label, Mode: doc.Palette.Mode, Entries: doc.Palette.Entries}
	}
	for _, f := range doc.Fonts {
		glyphs := make(map[rune][]byte, len(f.Glyphs))
		for k, v := range f.Glyphs {
			glyphs[runeFromKey(k)] = v
		}
		buf.Fonts = append(buf.Fonts, buffer.Font{Name: f.Name, Width: f.Width, Height: f.Height, Glyphs: glyphs})
	}

	buf.Layers = buf.Layers[:0]
	for _, dl := range doc.Layers {
		l := buffer.NewLayer(dl.ID, dl.Title, dl.Width, dl.Height)
		l.OffsetX, l.OffsetY = dl.OffsetX, dl.OffsetY
		l.Visible, l.EditLocked, l.PositionLocked = dl.Visible, dl.EditLocked, dl.PositionLocked
		l.AlphaEnabled, l.AlphaLocked = dl.AlphaEnabled, dl.AlphaLocked
		l.Role = dl.Role
		l.Hyperlinks = dl.Hyperlinks
		for key, tag := range dl.Tags {
			var x, y int
			if _, err := fmtSscanTag(key, &x, &y); err == nil {
				l.Tags[[2]int{x, y}] = tag
			}
		}
		for i, c := range dl.Cells {
			if i >= dl.Width*dl.Height {
				break
			}
			x, y := i%dl.Width, i/dl.Width
			l.Set(x, y, buffer.AttributedChar{
				Ch: c.Ch,
				Attr: color.Attribute{
					Foreground: c.Attr.Fg, Background: c.Attr.Bg,
					Flags: c.Attr.Flags, FontPage: c.Attr.FontPage,
				},
				Link: c.Link,
			})
		}
		buf.Layers = append(buf.Layers, l)
	}
	if len(buf.Layers) == 0 {
		buf.Layers = append(buf.Layers, buffer.NewLayer("base", "Background", doc.Cols, doc.Rows))
	}
	return buf, nil
}

// saveIcyDraw serializes buf's complete state — every layer, the active
// fonts, palette, per-cell hyperlink/tag tables, and SAUCE — so a round
// trip through the native format never loses editor-only state the other
// export formats must discard.
func saveIcyDraw(buf *buffer.Buffer) ([]byte, error) {
	doc := icyDrawDoc{
		Version:   icyDrawCurrentVersion,
		Cols:      buf.Cols,
		Rows:      buf.Rows,
		IceMode:   buf.IceMode,
		Use9px:    buf.Use9pxFont,
		AspectLeg: buf.AspectRatioLegacy,
		Sauce: icyDrawSauce{
			Title: buf.Sauce.Title, Author: buf.Sauce.Author, Group: buf.Sauce.Group,
			Comments: buf.Sauce.Comments, FontName: buf.Sauce.FontName,
		},
	}
	if buf.Palette != nil {
		doc.Palette = &icyDrawPalette{Label: buf.Palette.Label, Mode: buf.Palette.Mode, Entries: buf.Palette.Entries}
	}
	for _, f := range buf.Fonts {
		glyphs := make(map[string][]byte, len(f.Glyphs))
		for r, g := range f.Glyphs {
			glyphs[keyFromRune(r)] = g
		}
		doc.Fonts = append(doc.Fonts, icyDrawFont{Name: f.Name, Width: f.Width, Height: f.Height, Glyphs: glyphs})
	}
	for _, l := range buf.Layers {
		dl := icyDrawLayer{
			ID: l.ID, Title: l.Title, Width: l.Width, Height: l.Height,
			OffsetX: l.OffsetX, OffsetY: l.OffsetY,
			Visible: l.Visible, EditLocked: l.EditLocked, PositionLocked: l.PositionLocked,
			AlphaEnabled: l.AlphaEnabled, AlphaLocked: l.AlphaLocked,
			Role: l.Role, Hyperlinks: l.Hyperlinks,
		}
		if len(l.Tags) > 0 {
			dl.Tags = make(map[string]string, len(l.Tags))
			for k, v := range l.Tags {
				dl.Tags[tagKey(k[0], k[1])] = v
			}
		}
		dl.Cells = make([]icyDrawCell, 0, l.Width*l.Height)
		for y := 0; y < l.Height; y++ {
			for x := 0; x < l.Width; x++ {
				c := l.Get(x, y)
				dl.Cells = append(dl.Cells, icyDrawCell{
					Ch: c.Ch,
					Attr: icyDrawAttr{
						Fg: c.Attr.Foreground, Bg: c.Attr.Background,
						Flags: c.Attr.Flags, FontPage: c.Attr.FontPage,
					},
					Link: c.Link,
				})
			}
		}
		doc.Layers = append(doc.Layers, dl)
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.InvalidFormat, "icydraw: encoding document", err)
	}
	return append([]byte(icyDrawMagic), body...), nil
}

func keyFromRune(r rune) string { return strconv.Itoa(int(r)) }

func runeFromKey(k string) rune {
	n, _ := strconv.Atoi(k)
	return rune(n)
}

func tagKey(x, y int) string { return fmt.Sprintf("%d,%d", x, y) }

func fmtSscanTag(key string, x, y *int) (int, error) {
	return fmt.Sscanf(key, "%d,%d", x, y)
}
