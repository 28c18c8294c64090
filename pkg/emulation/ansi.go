package emulation

import (
	"github.com/mkrueger/icy-term-go/pkg/buffer"
	"github.com/mkrueger/icy-term-go/pkg/color"
)

// Ansi is the primary dialect (C3): full ANSI/VT SGR, cursor motion,
// scroll regions, alt-screen, mouse tracking, bracketed paste, and the
// OSC title and hyperlink sequences (OSC 4 palette redefinition is
// consumed without changing the palette). It drives a
// buffer.Buffer's base layer directly; higher layers are a buffer-package
// concern, not the emulator's.
type Ansi struct {
	scan *Scanner
	buf  *buffer.Buffer
	attr color.Attribute

	savedX, savedY int
	altScreen      *buffer.Layer
	mainScreen     *buffer.Layer
	linkStack      []int // OSC8 hyperlink ids, 0 means "no link"

	OnTitle     func(string)
	OnHyperlink func(id int, uri string)
	OnRIP       func(Command)
	OnBell      func()

	rip         *Rip
	inRip       bool
	pendingBang bool // a '!' held back while we check for the "!|" RIP trigger
}

// NewAnsi creates an Ansi emulator writing into buf's base layer.
func NewAnsi(buf *buffer.Buffer) *Ansi {
	a := &Ansi{
		scan: NewScanner(),
		buf:  buf,
		attr: color.DefaultAttribute,
	}
	a.mainScreen = buf.Base()
	a.scan.OnPrint = a.onPrint
	a.scan.OnExecute = a.onExecute
	a.scan.OnCsi = a.onCsi
	a.scan.OnOsc = a.onOsc
	a.scan.OnEscape = a.onEscape
	a.scan.OnDcs = a.onDcs
	return a
}

// onDcs routes a completed Device Control String to the Sixel decoder when
// it is a sixel image (DCS q ... ST); other DCS payloads are ignored.
func (a *Ansi) onDcs(data []byte) {
	if len(data) == 0 {
		return
	}
	if data[0] != 'q' && !hasSixelIntroducer(data) {
		return
	}
	img, err := DecodeSixel(data)
	if err != nil {
		return
	}
	layer := NewSixelLayer(img, a.buf.Terminal.CursorX, a.buf.Terminal.CursorY)
	a.buf.AddLayer(layer)
}

// hasSixelIntroducer reports whether data opens with DCS parameter bytes
// (digits/';') followed by the 'q' that marks a sixel payload, e.g. "0;1q".
func hasSixelIntroducer(data []byte) bool {
	for _, b := range data {
		switch {
		case b == 'q':
			return true
		case b >= '0' && b <= '9', b == ';':
			continue
		default:
			return false
		}
	}
	return false
}

func (a *Ansi) Feed(data []byte) { a.scan.Feed(data) }
func (a *Ansi) Reset() {
	a.scan.Reset()
	a.attr = color.DefaultAttribute
	a.buf.Terminal.CursorX, a.buf.Terminal.CursorY = 0, 0
}

// currentLink returns the active OSC8 hyperlink id (0 = none), the top of
// the push/pop stack maintained by onOsc's "8" handler.
func (a *Ansi) currentLink() int {
	if len(a.linkStack) == 0 {
		return 0
	}
	return a.linkStack[len(a.linkStack)-1]
}

func (a *Ansi) activeLayer() *buffer.Layer {
	if a.altScreen != nil {
		return a.altScreen
	}
	return a.mainScreen
}

func (a *Ansi) onPrint(r rune) {
	if a.inRip {
		a.feedRip(r)
		return
	}
	if a.pendingBang {
		a.pendingBang = false
		if r == '|' {
			a.enterRip()
			return
		}
		a.printCell('!')
	}
	if r == '!' {
		a.pendingBang = true
		return
	}
	a.printCell(r)
}

func (a *Ansi) enterRip() {
	a.inRip = true
	if a.rip == nil {
		a.rip = NewRip()
		a.rip.OnCommand = func(c Command) {
			if a.OnRIP != nil {
				a.OnRIP(c)
			}
		}
	}
	a.rip.Feed([]byte("!|"))
}

// feedRip routes bytes to the RIP subparser until its line-buffered
// decoder sees a newline, at which point control returns to ordinary
// ANSI printing.
func (a *Ansi) feedRip(r rune) {
	a.rip.Feed([]byte{byte(r)})
	if r == '\n' {
		a.inRip = false
	}
}

func (a *Ansi) printCell(r rune) {
	l := a.activeLayer()
	t := &a.buf.Terminal
	if t.CursorX >= l.Width {
		if t.WrapMode {
			t.CursorX = 0
			a.lineFeed()
			l.MarkSoftWrap(t.CursorY)
		} else {
			t.CursorX = l.Width - 1
		}
	}
	if t.InsertMode {
		a.buf.InsertCol(l, t.CursorX)
	}
	a.buf.Set(l, t.CursorX, t.CursorY, buffer.AttributedChar{Ch: r, Attr: a.attr, Link: a.currentLink()})
	t.CursorX++
}

func (a *Ansi) lineFeed() {
	l := a.activeLayer()
	t := &a.buf.Terminal
	bottom := t.MarginBottom
	if bottom == 0 {
		bottom = l.Height - 1
	}
	if t.CursorY >= bottom {
		a.buf.Scroll(l, buffer.Rect{X: 0, Y: t.MarginTop, W: l.Width, H: bottom - t.MarginTop + 1}, buffer.ScrollUp)
	} else {
		t.CursorY++
	}
}

func (a *Ansi) onExecute(b byte) {
	if a.inRip {
		a.feedRip(rune(b))
		return
	}
	t := &a.buf.Terminal
	switch b {
	case '\n':
		a.lineFeed()
		a.activeLayer().ClearSoftWrap(t.CursorY)
	case '\r':
		t.CursorX = 0
	case '\b':
		if t.CursorX > 0 {
			t.CursorX--
		}
	case '\t':
		t.CursorX = (t.CursorX/8 + 1) * 8
	case 0x07:
		if a.OnBell != nil {
			a.OnBell()
		}
	}
}

func (a *Ansi) onEscape(intermediate []byte, final byte) {
	t := &a.buf.Terminal
	switch final {
	case '7': // DECSC
		a.savedX, a.savedY = t.CursorX, t.CursorY
	case '8': // DECRC
		t.CursorX, t.CursorY = a.savedX, a.savedY
	case 'c': // RIS
		a.Reset()
	case 'D': // IND
		a.lineFeed()
		a.activeLayer().ClearSoftWrap(t.CursorY)
	case 'M': // RI
		if t.CursorY > t.MarginTop {
			t.CursorY--
		} else {
			a.buf.Scroll(a.activeLayer(), buffer.Rect{X: 0, Y: t.MarginTop, W: a.activeLayer().Width, H: a.activeLayer().Height - t.MarginTop}, buffer.ScrollDown)
		}
	}
}

func param(params []Param, i, def int) int {
	if i >= len(params) || params[i].Value == 0 {
		return def
	}
	return params[i].Value
}

func (a *Ansi) onCsi(params []Param, intermediate []byte, marker byte, final byte) {
	if marker == '?' {
		a.onPrivateMode(params, final)
		return
	}
	l := a.activeLayer()
	t := &a.buf.Terminal
	switch final {
	case 'A':
		t.CursorY -= param(params, 0, 1)
	case 'B':
		t.CursorY += param(params, 0, 1)
	case 'C':
		t.CursorX += param(params, 0, 1)
	case 'D':
		t.CursorX -= param(params, 0, 1)
	case 'H', 'f':
		t.CursorY = param(params, 0, 1) - 1
		t.CursorX = param(params, 1, 1) - 1
	case 'd':
		t.CursorY = param(params, 0, 1) - 1
	case 'G':
		t.CursorX = param(params, 0, 1) - 1
	case 'J':
		a.eraseDisplay(param(params, 0, 0))
	case 'K':
		a.eraseLine(param(params, 0, 0))
	case 'm':
		a.applySGR(params)
	case 'r':
		t.MarginTop = param(params, 0, 1) - 1
		t.MarginBottom = param(params, 1, l.Height) - 1
	case 's':
		a.savedX, a.savedY = t.CursorX, t.CursorY
	case 'u':
		t.CursorX, t.CursorY = a.savedX, a.savedY
	}
	if t.CursorX < 0 {
		t.CursorX = 0
	}
	if t.CursorY < 0 {
		t.CursorY = 0
	}
	if t.CursorY >= l.Height {
		t.CursorY = l.Height - 1
	}
}

func (a *Ansi) onPrivateMode(params []Param, final byte) {
	t := &a.buf.Terminal
	set := final == 'h'
	for _, p := range params {
		switch p.Value {
		case 7:
			t.WrapMode = set
		case 25:
			t.CaretVisible = set
		case 12:
			t.CaretBlink = set
		case 1000:
			if set {
				t.MouseTracking = buffer.MouseVT200
			} else {
				t.MouseTracking = buffer.MouseOff
			}
		case 1002:
			if set {
				t.MouseTracking = buffer.MouseButton
			}
		case 1003:
			if set {
				t.MouseTracking = buffer.MouseAnyEvent
			}
		case 1006:
			// SGR mouse encoding: tracked by transport/session, not the buffer.
		case 2004:
			t.BracketedPaste = set
		case 1049, 47, 1047:
			a.toggleAltScreen(set)
		}
	}
}

func (a *Ansi) toggleAltScreen(enable bool) {
	if enable && a.altScreen == nil {
		a.altScreen = buffer.NewLayer("alt-screen", "Alt Screen", a.mainScreen.Width, a.mainScreen.Height)
	} else if !enable {
		a.altScreen = nil
	}
}

func (a *Ansi) eraseDisplay(mode int) {
	l := a.activeLayer()
	t := &a.buf.Terminal
	switch mode {
	case 0:
		a.buf.Erase(l, buffer.Rect{X: t.CursorX, Y: t.CursorY, W: l.Width - t.CursorX, H: 1}, false)
		if t.CursorY+1 < l.Height {
			a.buf.Erase(l, buffer.Rect{X: 0, Y: t.CursorY + 1, W: l.Width, H: l.Height - t.CursorY - 1}, false)
		}
	case 1:
		a.buf.Erase(l, buffer.Rect{X: 0, Y: 0, W: l.Width, H: t.CursorY}, false)
		a.buf.Erase(l, buffer.Rect{X: 0, Y: t.CursorY, W: t.CursorX + 1, H: 1}, false)
	case 2, 3:
		a.buf.Erase(l, buffer.Rect{X: 0, Y: 0, W: l.Width, H: l.Height}, false)
	}
}

func (a *Ansi) eraseLine(mode int) {
	l := a.activeLayer()
	t := &a.buf.Terminal
	switch mode {
	case 0:
		a.buf.Erase(l, buffer.Rect{X: t.CursorX, Y: t.CursorY, W: l.Width - t.CursorX, H: 1}, false)
	case 1:
		a.buf.Erase(l, buffer.Rect{X: 0, Y: t.CursorY, W: t.CursorX + 1, H: 1}, false)
	case 2:
		a.buf.Erase(l, buffer.Rect{X: 0, Y: t.CursorY, W: l.Width, H: 1}, false)
	}
}

// ansiToVGA remaps the ANSI SGR 8-color order (black, red, green, yellow,
// blue, magenta, cyan, white) onto DOS16's VGA nibble order, where index 1
// is blue and index 4 is red — the same black/red/green/yellow/blue/
// magenta/cyan/white -> VGA remap Viewdata's teletext palette uses in
// viewdataPaletteIndex. Bright variants (90-97/100-107) add 8 to the
// remapped index rather than to the raw SGR offset.
var ansiToVGA = [8]uint8{0, 4, 2, 6, 1, 5, 3, 7}

// applySGR interprets the full Select Graphic Rendition parameter list,
// including 256-color (38/48;5;n) and truecolor (38/48;2;r;g;b, or the
// colon sub-parameter form 38:2::r:g:b).
func (a *Ansi) applySGR(params []Param) {
	if len(params) == 0 {
		a.attr = color.DefaultAttribute
		return
	}
	for i := 0; i < len(params); i++ {
		v := params[i].Value
		switch {
		case v == 0:
			a.attr = color.DefaultAttribute
		case v == 1:
			a.attr.Flags |= color.Bold
		case v == 2:
			a.attr.Flags |= color.Faded
		case v == 3:
			a.attr.Flags |= color.Italic
		case v == 4:
			a.attr.Flags |= color.Underline
		case v == 5 || v == 6:
			a.attr.Flags |= color.Blinking
		case v == 7:
			a.attr.Flags |= color.Inverse
		case v == 8:
			a.attr.Flags |= color.Conceal
		case v == 9:
			a.attr.Flags |= color.CrossedOut
		case v == 21:
			a.attr.Flags |= color.DoubleUnderline
		case v == 22:
			a.attr.Flags &^= (color.Bold | color.Faded)
		case v == 23:
			a.attr.Flags &^= color.Italic
		case v == 24:
			a.attr.Flags &^= (color.Underline | color.DoubleUnderline)
		case v == 25:
			a.attr.Flags &^= color.Blinking
		case v == 27:
			a.attr.Flags &^= color.Inverse
		case v == 28:
			a.attr.Flags &^= color.Conceal
		case v == 29:
			a.attr.Flags &^= color.CrossedOut
		case v >= 30 && v <= 37:
			a.attr.Foreground = color.FromPalette(ansiToVGA[v-30])
		case v == 38:
			i = a.extendedColor(params, i, true)
		case v == 39:
			a.attr.Foreground = color.Default
		case v >= 40 && v <= 47:
			a.attr.Background = color.FromPalette(ansiToVGA[v-40])
		case v == 48:
			i = a.extendedColor(params, i, false)
		case v == 49:
			a.attr.Background = color.Default
		case v >= 90 && v <= 97:
			a.attr.Foreground = color.FromPalette(ansiToVGA[v-90] + 8)
		case v >= 100 && v <= 107:
			a.attr.Background = color.FromPalette(ansiToVGA[v-100] + 8)
		}
	}
}

// extendedColor consumes the 38/48;5;n or 38/48;2;r;g;b sequence starting
// at params[i] (which holds the 38 or 48 itself), or the colon
// sub-parameter form where r/g/b ride in params[i].Subs. It returns the
// index of the last parameter consumed.
func (a *Ansi) extendedColor(params []Param, i int, fg bool) int {
	if subs := params[i].Subs; len(subs) >= 4 {
		// subs[0] is always the "2" (truecolor) selector; an optional
		// color-space-id field may sit between it and r/g/b (the
		// "38:2:<space-id>:r:g:b" form vs plain "38:2:r:g:b"), so take the
		// last three fields rather than a fixed offset.
		n := len(subs)
		r, g, b := subs[n-3], subs[n-2], subs[n-1]
		a.setColor(color.FromRGB(uint8(r), uint8(g), uint8(b)), fg)
		return i
	}
	if i+1 >= len(params) {
		return i
	}
	switch params[i+1].Value {
	case 5:
		if i+2 < len(params) {
			a.setColor(color.FromPalette(uint8(params[i+2].Value)), fg)
			return i + 2
		}
	case 2:
		if i+4 < len(params) {
			r, g, b := params[i+2].Value, params[i+3].Value, params[i+4].Value
			a.setColor(color.FromRGB(uint8(r), uint8(g), uint8(b)), fg)
			return i + 4
		}
	}
	return i + 1
}

func (a *Ansi) setColor(c color.Color, fg bool) {
	if fg {
		a.attr.Foreground = c
	} else {
		a.attr.Background = c
	}
}

// onOsc interprets OSC params: 0/2 window title, 8 hyperlink, 4 palette
// entry redefinition.
func (a *Ansi) onOsc(params [][]byte) {
	if len(params) == 0 {
		return
	}
	switch string(params[0]) {
	case "0", "2":
		if len(params) > 1 && a.OnTitle != nil {
			a.OnTitle(string(params[1]))
		}
	case "8":
		if len(params) > 2 {
			uri := string(params[2])
			if uri == "" {
				if len(a.linkStack) > 0 {
					a.linkStack = a.linkStack[:len(a.linkStack)-1]
				}
				return
			}
			l := a.activeLayer()
			id := l.AddHyperlink(uri)
			a.linkStack = append(a.linkStack, id+1)
			if a.OnHyperlink != nil {
				a.OnHyperlink(id, uri)
			}
		}
	case "4":
		// OSC 4 is consumed and ignored: no palette entry changes and no
		// callback fires.
	}
}
