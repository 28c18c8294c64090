package emulation

import (
	"testing"

	"github.com/mkrueger/icy-term-go/pkg/buffer"
	"github.com/mkrueger/icy-term-go/pkg/color"
)

// TestBoldRedThenReset exercises the scenario from the spec's testable
// properties: "\x1b[1;31mA\x1b[0mB" on an 80x25 buffer produces a bold red
// 'A' in column 0 followed by a default-attribute 'B' in column 1.
func TestBoldRedThenReset(t *testing.T) {
	buf := buffer.New(80, 25, buffer.TypeAnsi)
	a := NewAnsi(buf)
	a.Feed([]byte("\x1b[1;31mA\x1b[0mB"))

	got := buf.Get(0, 0)
	if got.Ch != 'A' {
		t.Fatalf("expected 'A' at (0,0), got %q", got.Ch)
	}
	if !got.Attr.Has(color.Bold) {
		t.Fatal("expected bold flag set on 'A'")
	}
	if got.Attr.Foreground != color.FromPalette(4) {
		t.Fatalf("expected palette color 4 (VGA red) foreground, got %+v", got.Attr.Foreground)
	}

	got = buf.Get(1, 0)
	if got.Ch != 'B' {
		t.Fatalf("expected 'B' at (1,0), got %q", got.Ch)
	}
	if got.Attr != color.DefaultAttribute {
		t.Fatalf("expected default attribute after SGR reset, got %+v", got.Attr)
	}
}

func TestCursorPositioningCUP(t *testing.T) {
	buf := buffer.New(80, 25, buffer.TypeAnsi)
	a := NewAnsi(buf)
	a.Feed([]byte("\x1b[10;5HX"))
	if got := buf.Get(4, 9); got.Ch != 'X' {
		t.Fatalf("expected CUP to place cursor at row 10 col 5 (0-indexed 9,4), got %q at (4,9)", got.Ch)
	}
}

func TestLineWrapOnFullRow(t *testing.T) {
	buf := buffer.New(3, 2, buffer.TypeAnsi)
	a := NewAnsi(buf)
	a.Feed([]byte("ABCD"))
	if got := buf.Get(0, 1).Ch; got != 'D' {
		t.Fatalf("expected wrap to place 'D' on row 1, got %q", got)
	}
}

func TestLineWrapMarksSoftWrapNotHardNewline(t *testing.T) {
	buf := buffer.New(3, 2, buffer.TypeAnsi)
	a := NewAnsi(buf)
	a.Feed([]byte("ABCD"))
	if !buf.Base().IsSoftWrapped(1) {
		t.Fatal("expected row 1 to carry a soft-wrap marker after autowrap")
	}

	buf2 := buffer.New(3, 2, buffer.TypeAnsi)
	a2 := NewAnsi(buf2)
	a2.Feed([]byte("AB\r\nCD"))
	if buf2.Base().IsSoftWrapped(1) {
		t.Fatal("expected row 1 to carry no soft-wrap marker after an explicit newline")
	}
}

func TestEraseDisplayMode2ClearsEverything(t *testing.T) {
	buf := buffer.New(4, 2, buffer.TypeAnsi)
	a := NewAnsi(buf)
	a.Feed([]byte("ABCD\x1b[2J"))
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			if got := buf.Get(x, y); got.Ch != ' ' {
				t.Fatalf("expected erased cell at (%d,%d), got %q", x, y, got.Ch)
			}
		}
	}
}

func TestTrueColorSGR(t *testing.T) {
	buf := buffer.New(10, 1, buffer.TypeAnsi)
	a := NewAnsi(buf)
	a.Feed([]byte("\x1b[38;2;10;20;30mX"))
	got := buf.Get(0, 0)
	want := color.FromRGB(10, 20, 30)
	if got.Attr.Foreground != want {
		t.Fatalf("expected truecolor foreground %+v, got %+v", want, got.Attr.Foreground)
	}
}

func TestTrueColorSGRColonForm(t *testing.T) {
	buf := buffer.New(10, 1, buffer.TypeAnsi)
	a := NewAnsi(buf)
	a.Feed([]byte("\x1b[38:2:0:255:0:0mX"))
	got := buf.Get(0, 0)
	want := color.FromRGB(255, 0, 0)
	if got.Attr.Foreground != want {
		t.Fatalf("expected colon-form truecolor foreground %+v, got %+v", want, got.Attr.Foreground)
	}
}

func TestAnsiRedMapsToVGAIndex(t *testing.T) {
	buf := buffer.New(10, 1, buffer.TypeAnsi)
	a := NewAnsi(buf)
	a.Feed([]byte("\x1b[31mX"))
	got := buf.Get(0, 0)
	if got.Attr.Foreground != color.FromPalette(4) {
		t.Fatalf("expected ANSI red (31) to map to VGA palette index 4, got %+v", got.Attr.Foreground)
	}
}
