// Package emulation implements the character-cell terminal emulators (C3):
// a shared escape-sequence state machine plus one Parser implementation
// per supported dialect (ANSI/VT, Avatar, PETSCII, ATASCII, Viewdata,
// Sixel, RIPscrip trigger, and OSC8 hyperlinks layered on top of ANSI).
//
// The state machine below follows the teacher's pkg/terminal/AnsiParser
// byte-at-a-time design (ground/escape/CSI-entry/param/intermediate/ignore/
// OSC-string states, callback-driven), generalized to also split CSI
// parameters on ':' sub-separators (needed for SGR 38:2::r:g:b truecolor)
// and to track the CSI private-mode marker byte ('?', '>', '=') that
// DECSET/DECRST and other private sequences rely on.
package emulation

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

type parserState int

const (
	stateGround parserState = iota
	stateEscape
	stateEscapeIntermediate
	stateCsiEntry
	stateCsiParam
	stateCsiIntermediate
	stateCsiIgnore
	stateOscString
	stateDcsString
)

// Param is one CSI parameter, optionally followed by ':'-separated
// sub-parameters (e.g. 38:2:0:255:0:0 for truecolor foreground).
type Param struct {
	Value int
	Subs  []int
}

// Scanner is the shared escape-sequence tokenizer every emulation.Parser
// embeds. It is not itself a Parser: dialect-specific code wires its
// callbacks to interpret tokens against a buffer.Buffer.
type Scanner struct {
	state        parserState
	intermediate []byte
	marker       byte
	params       []Param
	oscData      []byte
	dcsData      []byte

	OnPrint  func(rune)
	OnExecute func(byte)
	OnCsi    func(params []Param, intermediate []byte, marker byte, final byte)
	OnOsc    func(params [][]byte)
	OnEscape func(intermediate []byte, final byte)
	// OnDcs fires once a Device Control String (ESC P ... ST) is complete;
	// data is the raw payload between the introducer and the terminator,
	// used by the Sixel dialect (DCS q ... ST).
	OnDcs func(data []byte)

	// HighBitUTF8 makes bytes >= 0x80 decode as UTF-8 sequences instead of
	// single-byte CP437, for hosts that actually speak UTF-8 over the
	// wire. Most classic BBS ANSI art is CP437, so that's the default.
	HighBitUTF8 bool
}

// NewScanner allocates a Scanner at ground state, decoding high-bit bytes
// as CP437 (the prevailing BBS-era code page — box-drawing, line-art, and
// the IBM extended character set) unless HighBitUTF8 is set afterward.
func NewScanner() *Scanner {
	return &Scanner{
		state:        stateGround,
		intermediate: make([]byte, 0, 4),
		params:       make([]Param, 0, 16),
	}
}

// Feed runs data through the state machine, invoking callbacks as tokens
// complete.
func (s *Scanner) Feed(data []byte) {
	for i := 0; i < len(data); {
		b := data[i]
		switch s.state {
		case stateGround:
			switch {
			case b == 0x1b:
				s.state = stateEscape
				i++
			case b < 0x20:
				if s.OnExecute != nil {
					s.OnExecute(b)
				}
				i++
			case b < 0x80:
				if s.OnPrint != nil {
					s.OnPrint(rune(b))
				}
				i++
			default:
				if s.HighBitUTF8 {
					r, size := utf8.DecodeRune(data[i:])
					if r != utf8.RuneError && s.OnPrint != nil {
						s.OnPrint(r)
					}
					i += size
					break
				}
				if s.OnPrint != nil {
					s.OnPrint(decodeCP437(b))
				}
				i++
			}

		case stateEscape:
			s.intermediate = s.intermediate[:0]
			switch {
			case b >= 0x20 && b <= 0x2f:
				s.intermediate = append(s.intermediate, b)
				s.state = stateEscapeIntermediate
			case b == '[':
				s.params = s.params[:0]
				s.marker = 0
				s.state = stateCsiEntry
			case b == ']':
				s.oscData = s.oscData[:0]
				s.state = stateOscString
			case b == 'P':
				s.dcsData = s.dcsData[:0]
				s.state = stateDcsString
			case b >= 0x30 && b <= 0x7e:
				if s.OnEscape != nil {
					s.OnEscape(s.intermediate, b)
				}
				s.state = stateGround
			default:
				s.state = stateGround
			}
			i++

		case stateEscapeIntermediate:
			switch {
			case b >= 0x20 && b <= 0x2f:
				s.intermediate = append(s.intermediate, b)
			case b >= 0x30 && b <= 0x7e:
				if s.OnEscape != nil {
					s.OnEscape(s.intermediate, b)
				}
				s.state = stateGround
			default:
				s.state = stateGround
			}
			i++

		case stateCsiEntry:
			switch {
			case b == '?' || b == '>' || b == '=' || b == '<':
				s.marker = b
				s.state = stateCsiParam
			case b >= '0' && b <= '9':
				s.params = append(s.params, Param{Value: int(b - '0')})
				s.state = stateCsiParam
			case b == ';':
				s.params = append(s.params, Param{})
				s.params = append(s.params, Param{})
				s.state = stateCsiParam
			case b >= 0x20 && b <= 0x2f:
				s.intermediate = append(s.intermediate, b)
				s.state = stateCsiIntermediate
			case b >= 0x40 && b <= 0x7e:
				s.emitCsi(b)
				s.state = stateGround
			default:
				s.state = stateCsiIgnore
			}
			i++

		case stateCsiParam:
			switch {
			case b >= '0' && b <= '9':
				s.bumpLastParam(int(b - '0'))
			case b == ';':
				s.params = append(s.params, Param{})
			case b == ':':
				s.pushSub()
			case b >= 0x20 && b <= 0x2f:
				s.intermediate = append(s.intermediate, b)
				s.state = stateCsiIntermediate
			case b >= 0x40 && b <= 0x7e:
				s.emitCsi(b)
				s.state = stateGround
			default:
				s.state = stateCsiIgnore
			}
			i++

		case stateCsiIntermediate:
			switch {
			case b >= 0x20 && b <= 0x2f:
				s.intermediate = append(s.intermediate, b)
			case b >= 0x40 && b <= 0x7e:
				s.emitCsi(b)
				s.state = stateGround
			default:
				s.state = stateCsiIgnore
			}
			i++

		case stateCsiIgnore:
			if b >= 0x40 && b <= 0x7e {
				s.state = stateGround
			}
			i++

		case stateOscString:
			switch {
			case b == 0x07:
				s.emitOsc()
				s.state = stateGround
			case b == 0x1b && i+1 < len(data) && data[i+1] == '\\':
				s.emitOsc()
				s.state = stateGround
				i++
			default:
				s.oscData = append(s.oscData, b)
			}
			i++

		case stateDcsString:
			switch {
			case b == 0x1b && i+1 < len(data) && data[i+1] == '\\':
				if s.OnDcs != nil {
					s.OnDcs(s.dcsData)
				}
				s.state = stateGround
				i++
			default:
				s.dcsData = append(s.dcsData, b)
			}
			i++

		default:
			s.state = stateGround
			i++
		}
	}
}

// bumpLastParam folds digit into the last parameter's accumulator: its
// Value, unless a colon has opened a sub-parameter, in which case digits
// accumulate into the last Subs entry instead — so "38:2:0:255:0:0" ends
// up with Value=38 and Subs=[2,0,255,0,0] rather than corrupting Value
// with every digit seen after the first colon.
func (s *Scanner) bumpLastParam(digit int) {
	if len(s.params) == 0 {
		s.params = append(s.params, Param{})
	}
	last := &s.params[len(s.params)-1]
	if n := len(last.Subs); n > 0 {
		last.Subs[n-1] = last.Subs[n-1]*10 + digit
		return
	}
	last.Value = last.Value*10 + digit
}

func (s *Scanner) pushSub() {
	if len(s.params) == 0 {
		s.params = append(s.params, Param{})
	}
	s.params[len(s.params)-1].Subs = append(s.params[len(s.params)-1].Subs, 0)
}

func (s *Scanner) emitCsi(final byte) {
	if s.OnCsi != nil {
		s.OnCsi(s.params, s.intermediate, s.marker, final)
	}
}

func (s *Scanner) emitOsc() {
	if s.OnOsc == nil {
		return
	}
	params := make([][]byte, 0, 2)
	start := 0
	for i, b := range s.oscData {
		if b == ';' {
			params = append(params, s.oscData[start:i])
			start = i + 1
		}
	}
	if start <= len(s.oscData) {
		params = append(params, s.oscData[start:])
	}
	s.OnOsc(params)
}

// Reset returns the scanner to ground state, discarding any partially
// parsed sequence.
func (s *Scanner) Reset() {
	s.state = stateGround
	s.intermediate = s.intermediate[:0]
	s.params = s.params[:0]
	s.marker = 0
	s.oscData = s.oscData[:0]
	s.dcsData = s.dcsData[:0]
}

// Parser is the interface every dialect emulator (ansi.go, avatar.go, ...)
// implements, matching the spec's "Feed(byte)/Reset()" shape.
type Parser interface {
	Feed(data []byte)
	Reset()
}

// decodeCP437 maps a single CP437 byte to its Unicode codepoint via the
// canonical IBM PC code page table, covering the box-drawing and line-art
// glyphs ANSI art relies on that plain Latin-1 doesn't have.
func decodeCP437(b byte) rune {
	return charmap.CodePage437.DecodeByte(b)
}
