package fileformat

import (
	"strings"

	"github.com/mkrueger/icy-term-go/internal/coreerr"
	"github.com/mkrueger/icy-term-go/pkg/buffer"
)

// Format identifies one of the on-disk dialects Load/Save understand.
type Format string

const (
	FormatAnsi     Format = "ans"
	FormatAscii    Format = "asc"
	FormatXBin     Format = "xb"
	FormatBin      Format = "bin"
	FormatAdf      Format = "adf"
	FormatIceDraw  Format = "idf"
	FormatTundra   Format = "tnd"
	FormatPCBoard  Format = "pcb"
	FormatAvatar   Format = "avt"
	FormatIcyDraw  Format = "icy"
	FormatPNG      Format = "png" // export only
)

// SaveOptions controls how Save renders a Buffer back to bytes.
type SaveOptions struct {
	Format      Format
	IceMode     bool
	LetterSpacing9px bool
}

// Load decodes data into a Buffer. hint is the filename extension without
// the leading dot (may be empty, in which case known signatures are
// sniffed: XBin's "XBIN\x1A", IceDraw's "\x04\x31\x2e\x34" header, and the
// native container's icyDrawMagic; anything else loads as ANSI).
func Load(data []byte, hint string) (*buffer.Buffer, error) {
	format := sniff(data, hint)
	switch format {
	case FormatXBin:
		return loadXBin(data)
	case FormatBin:
		return loadBin(data, 160)
	case FormatIceDraw:
		return loadIceDraw(data)
	case FormatTundra:
		return loadTundra(data)
	case FormatPCBoard:
		return loadPCBoard(data)
	case FormatAvatar:
		return loadAvatar(data)
	case FormatIcyDraw:
		return loadIcyDraw(data)
	case FormatAscii:
		return loadAscii(data)
	case FormatAdf:
		return loadAdf(data)
	default:
		return loadAnsi(data)
	}
}

// Save encodes buf per opts.Format.
func Save(buf *buffer.Buffer, opts SaveOptions) ([]byte, error) {
	switch opts.Format {
	case FormatXBin:
		return saveXBin(buf)
	case FormatBin:
		return saveBin(buf)
	case FormatIceDraw:
		return saveIceDraw(buf)
	case FormatTundra:
		return saveTundra(buf)
	case FormatPCBoard:
		return savePCBoard(buf)
	case FormatAvatar:
		return saveAvatar(buf)
	case FormatIcyDraw:
		return saveIcyDraw(buf)
	case FormatPNG:
		return savePNG(buf)
	case FormatAscii:
		return saveAscii(buf)
	default:
		return saveAnsi(buf)
	}
}

func sniff(data []byte, hint string) Format {
	switch strings.ToLower(strings.TrimPrefix(hint, ".")) {
	case "ans":
		return FormatAnsi
	case "asc", "txt":
		return FormatAscii
	case "xb", "xbin":
		return FormatXBin
	case "bin":
		return FormatBin
	case "adf":
		return FormatAdf
	case "idf":
		return FormatIceDraw
	case "tnd":
		return FormatTundra
	case "pcb":
		return FormatPCBoard
	case "avt":
		return FormatAvatar
	case "icy", "icd":
		return FormatIcyDraw
	}
	if len(data) >= 5 && string(data[0:5]) == xbinSignature {
		return FormatXBin
	}
	if len(data) >= 4 && string(data[0:4]) == iceDrawSignature {
		return FormatIceDraw
	}
	if len(data) >= len(icyDrawMagic) && string(data[:len(icyDrawMagic)]) == icyDrawMagic {
		return FormatIcyDraw
	}
	return FormatAnsi
}

func invalidFormat(what, detail string) error {
	return coreerr.InvalidFormatf(what + ": " + detail)
}
