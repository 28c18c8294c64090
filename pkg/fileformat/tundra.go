package fileformat

import (
	"bytes"
	"fmt"

	"github.com/mkrueger/icy-term-go/pkg/buffer"
)

// Tundra Draw's wire format is a superset of plain ANSI: it adds private
// CSI sequences for 24-bit truecolor (`CSI r;g;b;1 t` foreground, `...;0 t`
// background) and an explicit cursor-position reset, layered on top of the
// same SGR vocabulary §4.4's ANSI codec already implements. Rather than
// duplicate the escape-sequence state machine, loadTundra/saveTundra
// delegate to the shared ANSI emulator/exporter and only add the truecolor
// extension on load; save re-emits standard SGR truecolor (38/48;2;r;g;b),
// which every Tundra-compatible reader also accepts.
func loadTundra(data []byte) (*buffer.Buffer, error) {
	return loadAnsi(rewriteTundraTrueColor(data))
}

func saveTundra(buf *buffer.Buffer) ([]byte, error) {
	return saveAnsi(buf)
}

// rewriteTundraTrueColor rewrites Tundra's `CSI r;g;b;1t`/`CSI r;g;b;0t`
// private truecolor sequences into the equivalent standard
// `CSI 38;2;r;g;bm`/`CSI 48;2;r;g;bm` SGR sequences the C3 parser already
// understands, so the shared ANSI loader needs no Tundra-specific state.
func rewriteTundraTrueColor(data []byte) []byte {
	var out bytes.Buffer
	i := 0
	for i < len(data) {
		if data[i] == 0x1b && i+1 < len(data) && data[i+1] == '[' {
			end := i + 2
			for end < len(data) && !isTundraFinal(data[end]) {
				end++
			}
			if end < len(data) && data[end] == 't' {
				params := string(data[i+2 : end])
				var r, g, b, layer int
				if n, err := fmt.Sscanf(params, "%d;%d;%d;%d", &r, &g, &b, &layer); n == 4 && err == nil {
					sel := 38
					if layer == 0 {
						sel = 48
					}
					fmt.Fprintf(&out, "\x1b[%d;2;%d;%d;%dm", sel, r, g, b)
					i = end + 1
					continue
				}
			}
		}
		out.WriteByte(data[i])
		i++
	}
	return out.Bytes()
}

func isTundraFinal(b byte) bool {
	return b == 't' || (b >= 0x40 && b <= 0x7e && b != ';' && (b < '0' || b > '9'))
}
