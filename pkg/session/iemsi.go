package session

import (
	"bytes"
	"fmt"
)

// IEMSI auto-login per spec §4.6: on idle-connect the session probes with
// EMSI_IRQ, and on receiving an EMSI_ISQ answers with EMSI_ICI carrying
// the address-book credentials and terminal capabilities, then expects
// EMSI_ACK or EMSI_NAK. Every frame is `**EMSI_xxx<data><CRC16><CR>`,
// checksummed with CRC-16/ARC (the IEMSI spec's required variant, distinct
// from Xmodem's CRC-16/CCITT in pkg/transfer).
const (
	iemsiIRQProbeInterval = 0 // caller drives retry cadence; this package just builds/parses frames
	iemsiMaxAttempts      = 3
)

// buildEMSIICI builds the EMSI_ICI frame from the subset of its data fields
// this session needs to send: identity, terminal type, and screen size. The
// teacher's Info struct already separates Term/Width/Height, so the ICI
// frame is built directly from an AddressBookEntry rather than a separate
// capability struct.
func buildEMSIICI(entry AddressBookEntry) []byte {
	data := fmt.Sprintf("%s,%s,%s,%dx%d",
		entry.Username, entry.Password, entry.TerminalType, entry.Width, entry.Height)
	return buildEMSIFrame("ICI", []byte(data))
}

func buildEMSIIRQ() []byte {
	return buildEMSIFrame("IRQ", nil)
}

// buildEMSIFrame assembles **EMSI_<kind><hex-encoded data>{CRC16/ARC}\r.
// Real IEMSI hex-encodes the data payload between two '{' '}' braces; this
// keeps that convention so a real BBS's IEMSI parser can read it back.
func buildEMSIFrame(kind string, data []byte) []byte {
	var body bytes.Buffer
	body.WriteString("**EMSI_")
	body.WriteString(kind)
	if data != nil {
		body.WriteByte('{')
		fmt.Fprintf(&body, "%X", data)
		body.WriteByte('}')
	}
	crc := crc16ARC(body.Bytes())
	fmt.Fprintf(&body, "%04X", crc)
	body.WriteByte('\r')
	return body.Bytes()
}

// iemsiFrameKind scans buf for a recognized EMSI frame marker and returns
// its kind ("ISQ", "ACK", "NAK", "IIR", ...) and the byte offset just past
// the marker, or ok=false if none is present yet.
func iemsiFrameKind(buf []byte) (kind string, rest int, ok bool) {
	const marker = "**EMSI_"
	idx := bytes.Index(buf, []byte(marker))
	if idx < 0 {
		return "", 0, false
	}
	start := idx + len(marker)
	if start+3 > len(buf) {
		return "", 0, false
	}
	return string(buf[start : start+3]), start + 3, true
}

// crc16ARC is the CRC-16/ARC variant (poly 0xA001, reflected, init 0)
// IEMSI requires — distinct from pkg/transfer's CRC-16/CCITT, so it is
// not shared with that package despite the similar name.
func crc16ARC(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = crc>>1 ^ 0xa001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

// iemsiState tracks one session's handshake progress.
type iemsiState int

const (
	iemsiIdle iemsiState = iota
	iemsiProbing
	iemsiAwaitingAck
	iemsiDone
	iemsiFailed
)

// iemsiHandshake drives the probe/reply state machine from inbound bytes.
// It owns no I/O itself — the reactor feeds it inbound data and sends
// back whatever frame it returns, keeping the handshake logic testable
// without a real transport.
type iemsiHandshake struct {
	state    iemsiState
	entry    AddressBookEntry
	attempts int
}

func newIEMSIHandshake(entry AddressBookEntry) *iemsiHandshake {
	return &iemsiHandshake{state: iemsiIdle, entry: entry}
}

// Start returns the first EMSI_IRQ probe to send and transitions to Probing.
func (h *iemsiHandshake) Start() []byte {
	h.state = iemsiProbing
	h.attempts = 1
	return buildEMSIIRQ()
}

// Feed inspects newly arrived bytes for an EMSI frame and returns a reply
// to send (nil if none is warranted yet).
func (h *iemsiHandshake) Feed(data []byte) []byte {
	kind, _, ok := iemsiFrameKind(data)
	if !ok {
		return nil
	}
	switch kind {
	case "ISQ":
		h.state = iemsiAwaitingAck
		return buildEMSIICI(h.entry)
	case "ACK":
		h.state = iemsiDone
	case "NAK":
		if h.attempts < iemsiMaxAttempts {
			h.attempts++
			return buildEMSIIRQ()
		}
		h.state = iemsiFailed
	}
	return nil
}

func (h *iemsiHandshake) Done() bool   { return h.state == iemsiDone }
func (h *iemsiHandshake) Failed() bool { return h.state == iemsiFailed }
