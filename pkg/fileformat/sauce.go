// Package fileformat implements the author-intent-preserving file codecs
// (C4): Load/Save for every on-disk BBS-art format the spec names, plus
// the shared SAUCE metadata trailer every text-mode format can carry.
package fileformat

import (
	"bytes"
	"fmt"

	"github.com/mkrueger/icy-term-go/internal/coreerr"
	"github.com/mkrueger/icy-term-go/pkg/buffer"
)

const (
	sauceID      = "SAUCE"
	sauceVersion = "00"
	sauceRecordLen = 128
	commentID    = "COMNT"
	commentLineLen = 64
)

// SauceFlags are the bits packed into the SAUCE TInfoFlags byte for
// character-based art (DataType 1).
type SauceFlags struct {
	IceMode           bool
	LetterSpacing9px  bool
	AspectRatioLegacy bool
}

// Sauce is the decoded 128-byte trailer plus its optional comment block.
type Sauce struct {
	Title, Author, Group string
	Comments              []string
	Flags                 SauceFlags
	Width, Height          int // TInfo1/TInfo2 for character data: columns, rows
	FontName               string
}

// ParseSauce looks for a SAUCE record at the end of data and, if present,
// decodes it along with any preceding COMNT block. ok is false when no
// SAUCE signature is found (not an error — most raw ANSI/ASCII files lack
// one).
func ParseSauce(data []byte) (s Sauce, contentLen int, ok bool) {
	if len(data) < sauceRecordLen {
		return Sauce{}, len(data), false
	}
	rec := data[len(data)-sauceRecordLen:]
	if string(rec[0:5]) != sauceID {
		return Sauce{}, len(data), false
	}
	s.Title = trimSauceField(rec[7:42])
	s.Author = trimSauceField(rec[42:62])
	s.Group = trimSauceField(rec[62:82])
	s.Width = int(rec[96]) | int(rec[97])<<8
	s.Height = int(rec[98]) | int(rec[99])<<8
	flags := rec[105]
	s.Flags.IceMode = flags&0x01 != 0
	switch (flags >> 1) & 0x03 {
	case 1:
		s.Flags.LetterSpacing9px = false
	case 2:
		s.Flags.LetterSpacing9px = true
	}
	s.Flags.AspectRatioLegacy = (flags>>3)&0x03 == 1
	s.FontName = trimSauceField(rec[106:126])

	numComments := int(rec[104])
	contentEnd := len(data) - sauceRecordLen
	if numComments > 0 {
		commentBlockLen := 5 + numComments*commentLineLen
		if contentEnd-commentBlockLen >= 0 {
			block := data[contentEnd-commentBlockLen : contentEnd]
			if string(block[0:5]) == commentID {
				for i := 0; i < numComments; i++ {
					start := 5 + i*commentLineLen
					s.Comments = append(s.Comments, trimSauceField(block[start:start+commentLineLen]))
				}
				contentEnd -= commentBlockLen
			}
		}
	}
	// A lone EOF marker (0x1A) conventionally precedes the SAUCE record.
	if contentEnd > 0 && data[contentEnd-1] == 0x1a {
		contentEnd--
	}
	return s, contentEnd, true
}

func trimSauceField(b []byte) string {
	return string(bytes.TrimRight(b, " \x00"))
}

// EncodeSauce appends content's SAUCE trailer (and comment block, if any)
// to content, returning the combined bytes. dataType/fileType select the
// SAUCE DataType/FileType pair for the format doing the saving (e.g. 1/1
// for ANSI character data).
func EncodeSauce(content []byte, s Sauce, dataType, fileType byte) []byte {
	out := append([]byte(nil), content...)
	out = append(out, 0x1a)

	if len(s.Comments) > 0 {
		out = append(out, []byte(commentID)...)
		for _, c := range s.Comments {
			out = append(out, padSauceField(c, commentLineLen)...)
		}
	}

	rec := make([]byte, sauceRecordLen)
	copy(rec[0:5], sauceID)
	copy(rec[5:7], sauceVersion)
	copy(rec[7:42], padSauceField(s.Title, 35))
	copy(rec[42:62], padSauceField(s.Author, 20))
	copy(rec[62:82], padSauceField(s.Group, 20))
	copy(rec[82:90], padSauceField("19700101", 8)) // date stamped by caller if meaningful
	rec[90], rec[91], rec[92], rec[93] = 0, 0, 0, 0
	rec[94] = dataType
	rec[95] = fileType
	rec[96] = byte(s.Width)
	rec[97] = byte(s.Width >> 8)
	rec[98] = byte(s.Height)
	rec[99] = byte(s.Height >> 8)
	rec[104] = byte(len(s.Comments))
	var flags byte
	if s.Flags.IceMode {
		flags |= 0x01
	}
	if s.Flags.LetterSpacing9px {
		flags |= 0x02 << 1
	} else {
		flags |= 0x01 << 1
	}
	if s.Flags.AspectRatioLegacy {
		flags |= 0x01 << 3
	}
	rec[105] = flags
	copy(rec[106:126], padSauceField(s.FontName, 22))
	rec[126] = 0
	rec[127] = 0
	out = append(out, rec...)
	return out
}

func padSauceField(s string, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	copy(b, s)
	if len(s) > n {
		copy(b, s[:n])
	}
	return b
}

// FromBufferSauce builds a Sauce record from a buffer.Buffer's own Sauce
// field and its Buffer-level ice-mode/9px/aspect flags (the ones
// ApplyToBuffer sets and the savers encode with), for use by Save
// implementations.
func FromBufferSauce(b *buffer.Buffer) Sauce {
	return Sauce{
		Title: b.Sauce.Title, Author: b.Sauce.Author, Group: b.Sauce.Group,
		Comments: b.Sauce.Comments,
		Flags: SauceFlags{
			IceMode:          b.IceMode,
			LetterSpacing9px: b.Use9pxFont,
			AspectRatioLegacy: b.AspectRatioLegacy,
		},
		Width: b.Cols, Height: b.Rows,
		FontName: b.Sauce.FontName,
	}
}

// ApplyToBuffer copies s onto b.Sauce (and the ice-mode/aspect/9px flags
// that live at the Buffer level per §3).
func (s Sauce) ApplyToBuffer(b *buffer.Buffer) {
	b.Sauce.Title, b.Sauce.Author, b.Sauce.Group = s.Title, s.Author, s.Group
	b.Sauce.Comments = s.Comments
	b.Sauce.FontName = s.FontName
	b.Sauce.IceMode = s.Flags.IceMode
	b.Sauce.LetterSpacing9px = s.Flags.LetterSpacing9px
	b.Sauce.AspectRatioLegacy = s.Flags.AspectRatioLegacy
	b.IceMode = s.Flags.IceMode
	b.Use9pxFont = s.Flags.LetterSpacing9px
	b.AspectRatioLegacy = s.Flags.AspectRatioLegacy
}

// requireLen returns a Truncated error naming what was being read if data
// is shorter than n.
func requireLen(data []byte, n int, what string) error {
	if len(data) < n {
		return coreerr.New(coreerr.Truncated, fmt.Sprintf("%s: need %d bytes, have %d", what, n, len(data)))
	}
	return nil
}
