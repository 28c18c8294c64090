package session

import (
	"bytes"

	"github.com/mkrueger/icy-term-go/pkg/transfer"
)

// autoDownloadSniffer watches the inbound byte stream for a protocol's
// well-known start sequence so a BBS download can begin without the user
// manually invoking a transfer menu command — the "auto-download
// sniffing" spec §4.6 names. It is fed every inbound chunk before that
// chunk reaches the emulation parser; once it recognizes a sequence it
// reports which protocol. The reactor only logs that report: the chunk
// still goes on to the parser, and no transfer starts until the caller
// invokes Session.StartDownload.
type autoDownloadSniffer struct {
	tail []byte // last few bytes, to catch a marker split across two reads
}

const autoDownloadTailLen = 16

// zmodemStartMarker is the lead-in of the ZRQINIT hex header a sender
// transmits unprompted when auto-starting a batch: "**", ZDLE, 'B' (hex
// header) and the frame type "00".
var zmodemStartMarker = []byte{'*', '*', 0x18, 'B', '0', '0'}

// Feed scans the tail of the previous chunk plus chunk for the Zmodem start
// marker and reports ProtocolZmodem when it is found. Xmodem/Ymodem are not
// sniffed: the receiver originates the NAK/'C' poll itself, so a sender
// emits no start sequence of its own, and those transfers start only when
// the user asks for them.
func (s *autoDownloadSniffer) Feed(chunk []byte) (detected transfer.Protocol, ok bool) {
	window := append(append([]byte{}, s.tail...), chunk...)
	if bytes.Contains(window, zmodemStartMarker) {
		s.reset()
		return transfer.ProtocolZmodem, true
	}
	if len(window) > autoDownloadTailLen {
		s.tail = append([]byte{}, window[len(window)-autoDownloadTailLen:]...)
	} else {
		s.tail = window
	}
	return "", false
}

func (s *autoDownloadSniffer) reset() {
	s.tail = nil
}
