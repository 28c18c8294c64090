package fileformat

import (
	"github.com/mkrueger/icy-term-go/pkg/buffer"
	"github.com/mkrueger/icy-term-go/pkg/emulation"
)

// loadAvatar feeds data through the C3 Avatar emulator (PCBoard/RA's
// CTRL-V opcode stream over a plain-ANSI fallback) onto a fresh buffer.
func loadAvatar(data []byte) (*buffer.Buffer, error) {
	sauce, contentLen, hasSauce := ParseSauce(data)
	content := data[:contentLen]
	cols := 80
	if hasSauce && sauce.Width > 0 {
		cols = sauce.Width
	}
	buf := buffer.New(cols, 25, buffer.TypeAvatarAnsi)
	av := emulation.NewAvatar(buf)
	av.Feed(content)
	if hasSauce {
		sauce.ApplyToBuffer(buf)
	}
	return buf, nil
}

// saveAvatar has no dedicated opcode-minimizing exporter in this codec set:
// Avatar is load-only in practice (art tools save ANSI, not Avatar), so
// Save falls through to the plain ANSI exporter whenever FormatAvatar is
// requested, matching what most BBS-scene tools actually do on export.
func saveAvatar(buf *buffer.Buffer) ([]byte, error) {
	return saveAnsi(buf)
}
