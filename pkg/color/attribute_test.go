package color

import "testing"

func TestPackUnpackSauceAttrRoundTrip(t *testing.T) {
	cases := []Attribute{
		{Foreground: FromPalette(4), Background: FromPalette(1)},
		{Foreground: FromPalette(15), Background: FromPalette(7), Flags: Blinking},
		{Foreground: FromPalette(0), Background: FromPalette(0)},
	}

	for _, a := range cases {
		packed := PackSauceAttr(a, false)
		got := UnpackSauceAttr(packed, false)
		if got.Foreground != a.Foreground || got.Background != a.Background {
			t.Errorf("round-trip mismatch: in=%+v packed=%08b out=%+v", a, packed, got)
		}
		if a.Has(Blinking) != got.Has(Blinking) {
			t.Errorf("blink bit lost: in=%+v out=%+v", a, got)
		}
	}
}

func TestIceModeReinterpretsBlinkBit(t *testing.T) {
	a := Attribute{Foreground: FromPalette(1), Background: FromPalette(9)}
	packed := PackSauceAttr(a, true)
	got := UnpackSauceAttr(packed, true)
	if got.Background.Index != 9 {
		t.Errorf("ice-mode background intensity lost: got %+v", got.Background)
	}
	if got.Has(Blinking) {
		t.Errorf("ice mode must not set blink flag")
	}
}

func TestConstrainIsIdempotent(t *testing.T) {
	modes := []Mode{Dos16, Free8, XTerm256, Unrestricted}
	colors := []Color{FromRGB(200, 10, 10), FromPalette(200), Default}

	for _, m := range modes {
		for _, c := range colors {
			once := Constrain(c, m)
			twice := Constrain(once, m)
			if once != twice {
				t.Errorf("mode %v: constrain not idempotent: %v -> %v -> %v", m, c, once, twice)
			}
		}
	}
}
