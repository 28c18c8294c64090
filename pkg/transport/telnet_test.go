package transport

import (
	"bytes"
	"testing"
)

func TestStripIACRemovesPlainNegotiation(t *testing.T) {
	tn := &Telnet{raw: &Raw{}}
	// IAC DO ECHO, then "hi"
	input := []byte{telIAC, telDO, telOptEcho, 'h', 'i'}
	out := tn.stripIAC(input)
	if !bytes.Equal(out, []byte("hi")) {
		t.Fatalf("got %q want %q", out, "hi")
	}
}

func TestStripIACHandlesEscapedFF(t *testing.T) {
	tn := &Telnet{raw: &Raw{}}
	input := []byte{'a', telIAC, telIAC, 'b'}
	out := tn.stripIAC(input)
	want := []byte{'a', 0xff, 'b'}
	if !bytes.Equal(out, want) {
		t.Fatalf("got %v want %v", out, want)
	}
}

func TestStripIACSkipsSubnegotiationBlock(t *testing.T) {
	tn := &Telnet{raw: &Raw{}}
	input := []byte{'x', telIAC, telSB, telOptTermType, 1, telIAC, telSE, 'y'}
	out := tn.stripIAC(input)
	if !bytes.Equal(out, []byte("xy")) {
		t.Fatalf("got %q want %q", out, "xy")
	}
}

func TestStripIACCarriesPartialSequenceAcrossCalls(t *testing.T) {
	tn := &Telnet{raw: &Raw{}}
	first := tn.stripIAC([]byte{'a', telIAC})
	if !bytes.Equal(first, []byte("a")) {
		t.Fatalf("first call: got %q want %q", first, "a")
	}
	second := tn.stripIAC([]byte{telDO, telOptSGA, 'b'})
	if !bytes.Equal(second, []byte("b")) {
		t.Fatalf("second call: got %q want %q", second, "b")
	}
}
