package fileformat

import (
	"testing"

	"github.com/mkrueger/icy-term-go/pkg/buffer"
	"github.com/mkrueger/icy-term-go/pkg/color"
)

func makeSampleBuffer() *buffer.Buffer {
	buf := buffer.New(10, 3, buffer.TypeAnsi)
	buf.IceMode = true
	l := buf.Base()
	for y := 0; y < 3; y++ {
		for x := 0; x < 10; x++ {
			attr := color.Attribute{
				Foreground: color.FromPalette(uint8((x + y) % 16)),
				Background: color.FromPalette(uint8(y % 16)),
			}
			l.Set(x, y, buffer.AttributedChar{Ch: rune('A' + (x+y)%26), Attr: attr})
		}
	}
	return buf
}

// TestXBinRoundTrip covers §8 scenario 4: for a Buffer expressible in XBin,
// load(save(b)) must match in dimensions, ice-mode and cell-for-cell.
func TestXBinRoundTrip(t *testing.T) {
	buf := makeSampleBuffer()
	data, err := saveXBin(buf)
	if err != nil {
		t.Fatalf("saveXBin: %v", err)
	}
	got, err := loadXBin(data)
	if err != nil {
		t.Fatalf("loadXBin: %v", err)
	}
	if got.Cols != buf.Cols || got.Rows != buf.Rows {
		t.Fatalf("dims mismatch: got %dx%d want %dx%d", got.Cols, got.Rows, buf.Cols, buf.Rows)
	}
	if got.IceMode != buf.IceMode {
		t.Fatalf("ice mode not preserved: got %v want %v", got.IceMode, buf.IceMode)
	}
	wantL, gotL := buf.Base(), got.Base()
	for y := 0; y < buf.Rows; y++ {
		for x := 0; x < buf.Cols; x++ {
			w, g := wantL.Get(x, y), gotL.Get(x, y)
			if !w.VisuallyEqual(g) {
				t.Fatalf("cell (%d,%d): got %+v want %+v", x, y, g, w)
			}
		}
	}
}

func TestXBinSniffBySignature(t *testing.T) {
	buf := makeSampleBuffer()
	data, _ := saveXBin(buf)
	if f := sniff(data, ""); f != FormatXBin {
		t.Fatalf("sniff: got %v want FormatXBin", f)
	}
}

func TestAsciiRoundTripPreservesText(t *testing.T) {
	buf := buffer.New(5, 2, buffer.TypeAscii)
	l := buf.Base()
	l.Set(0, 0, buffer.AttributedChar{Ch: 'H', Attr: color.DefaultAttribute})
	l.Set(1, 0, buffer.AttributedChar{Ch: 'i', Attr: color.DefaultAttribute})
	data, err := saveAscii(buf)
	if err != nil {
		t.Fatalf("saveAscii: %v", err)
	}
	got, err := loadAscii(data)
	if err != nil {
		t.Fatalf("loadAscii: %v", err)
	}
	if got.Base().Get(0, 0).Ch != 'H' || got.Base().Get(1, 0).Ch != 'i' {
		t.Fatalf("text not preserved: %q %q", got.Base().Get(0, 0).Ch, got.Base().Get(1, 0).Ch)
	}
}

func TestSauceParseEncodeRoundTrip(t *testing.T) {
	s := Sauce{Title: "Test Art", Author: "Someone", Group: "A Group", Width: 80, Height: 25}
	data := EncodeSauce([]byte("content"), s, 1, 1)
	got, contentLen, ok := ParseSauce(data)
	if !ok {
		t.Fatal("expected SAUCE to be found")
	}
	if got.Title != s.Title || got.Author != s.Author || got.Group != s.Group {
		t.Fatalf("sauce fields mismatch: got %+v want %+v", got, s)
	}
	if string(data[:contentLen]) != "content" {
		t.Fatalf("content mismatch: %q", data[:contentLen])
	}
}

func TestIceDrawRoundTripPreservesIceColors(t *testing.T) {
	buf := makeSampleBuffer()
	data, err := saveIceDraw(buf)
	if err != nil {
		t.Fatalf("saveIceDraw: %v", err)
	}
	got, err := loadIceDraw(data)
	if err != nil {
		t.Fatalf("loadIceDraw: %v", err)
	}
	wantL, gotL := buf.Base(), got.Base()
	for y := 0; y < buf.Rows; y++ {
		for x := 0; x < buf.Cols; x++ {
			w, g := wantL.Get(x, y), gotL.Get(x, y)
			if !w.VisuallyEqual(g) {
				t.Fatalf("cell (%d,%d): got %+v want %+v", x, y, g, w)
			}
		}
	}
}

func TestIcyDrawRoundTripPreservesLayersAndSauce(t *testing.T) {
	buf := makeSampleBuffer()
	buf.Sauce.Title = "My Art"
	buf.Sauce.Author = "Author Name"
	extra := buffer.NewLayer("overlay", "Overlay", buf.Cols, buf.Rows)
	extra.Set(0, 0, buffer.AttributedChar{Ch: 'X', Attr: color.DefaultAttribute})
	buf.Layers = append(buf.Layers, extra)

	data, err := saveIcyDraw(buf)
	if err != nil {
		t.Fatalf("saveIcyDraw: %v", err)
	}
	got, err := loadIcyDraw(data)
	if err != nil {
		t.Fatalf("loadIcyDraw: %v", err)
	}
	if len(got.Layers) != len(buf.Layers) {
		t.Fatalf("layer count: got %d want %d", len(got.Layers), len(buf.Layers))
	}
	if got.Sauce.Title != "My Art" || got.Sauce.Author != "Author Name" {
		t.Fatalf("sauce not preserved: %+v", got.Sauce)
	}
	if got.Layers[1].Get(0, 0).Ch != 'X' {
		t.Fatalf("overlay layer cell not preserved")
	}
}

func TestBinRoundTrip(t *testing.T) {
	buf := makeSampleBuffer()
	data, err := saveBin(buf)
	if err != nil {
		t.Fatalf("saveBin: %v", err)
	}
	got, err := loadBin(data, 10)
	if err != nil {
		t.Fatalf("loadBin: %v", err)
	}
	wantL, gotL := buf.Base(), got.Base()
	for y := 0; y < buf.Rows; y++ {
		for x := 0; x < buf.Cols; x++ {
			w, g := wantL.Get(x, y), gotL.Get(x, y)
			if !w.VisuallyEqual(g) {
				t.Fatalf("cell (%d,%d): got %+v want %+v", x, y, g, w)
			}
		}
	}
}

func TestPCBoardColorPragmaRoundTrip(t *testing.T) {
	buf := makeSampleBuffer()
	data, err := savePCBoard(buf)
	if err != nil {
		t.Fatalf("savePCBoard: %v", err)
	}
	got, err := loadPCBoard(data)
	if err != nil {
		t.Fatalf("loadPCBoard: %v", err)
	}
	if got.Base().Get(0, 0).Ch != buf.Base().Get(0, 0).Ch {
		t.Fatalf("first cell char mismatch: got %q want %q", got.Base().Get(0, 0).Ch, buf.Base().Get(0, 0).Ch)
	}
}
