package transport

import (
	"context"
	"sync"

	"github.com/mkrueger/icy-term-go/internal/logx"
)

// RFC 854 command bytes.
const (
	telIAC  = 255
	telDONT = 254
	telDO   = 253
	telWONT = 252
	telWILL = 251
	telSB   = 250
	telSE   = 240
)

// Options this client agrees to when the server asks (it sends no requests
// of its own), per the BBS-scene convention of binary 8-bit transparency,
// server-side echo and suppressed go-ahead so the server drives the screen,
// plus terminal type and window size.
const (
	telOptBinary   = 0
	telOptEcho     = 1
	telOptSGA      = 3
	telOptTermType = 24
	telOptNAWS     = 31
)

// TTYPE subnegotiation request-type bytes (RFC 1091).
const (
	ttypeIS   = 0
	ttypeSend = 1
)

// Telnet wraps a Raw TCP connection and transparently strips/answers IAC
// option-negotiation sequences in the read path, handing the caller only
// the cooked data stream — mirroring the job the teacher's PTY layer does
// for control-sequence framing, but at the wire-protocol level instead of
// the terminal-emulation level.
type Telnet struct {
	raw *Raw
	log *logx.Logger

	mu      sync.Mutex
	iacBuf  []byte // partial IAC sequence carried across Read calls
	pending []byte // stripped data not yet delivered to the caller

	// termType and cols/rows are the values sent in the TTYPE IS and NAWS
	// subnegotiation replies; SetTerminalType/SetWindowSize override the
	// defaults before Connect.
	termType   string
	cols, rows int
}

// NewTelnet builds an unconnected Telnet transport for addr, defaulting to
// terminal type "ANSI" and an 80x25 window until SetTerminalType/
// SetWindowSize are called.
func NewTelnet(addr string, log *logx.Logger) (Transport, error) {
	r, _ := NewRaw(addr, log)
	return &Telnet{raw: r.(*Raw), log: log, termType: "ANSI", cols: 80, rows: 25}, nil
}

// SetTerminalType overrides the name this client reports on a TTYPE SEND
// subnegotiation request. A blank name is ignored, keeping the default.
func (t *Telnet) SetTerminalType(name string) {
	if name == "" {
		return
	}
	t.mu.Lock()
	t.termType = name
	t.mu.Unlock()
}

// SetWindowSize overrides the dimensions this client reports over NAWS.
// Zero values are ignored, keeping the default.
func (t *Telnet) SetWindowSize(cols, rows int) {
	if cols <= 0 || rows <= 0 {
		return
	}
	t.mu.Lock()
	t.cols, t.rows = cols, rows
	t.mu.Unlock()
}

func (t *Telnet) Connect(ctx context.Context) error {
	return t.raw.Connect(ctx)
}

func (t *Telnet) Close() error { return t.raw.Close() }

func (t *Telnet) Status() Status { return t.raw.Status() }

// Write doubles every literal 0xFF in p (RFC 854's IAC escape) so the peer
// reads it as data, and reports len(p) bytes written on success.
func (t *Telnet) Write(p []byte) (int, error) {
	out := make([]byte, 0, len(p))
	for _, b := range p {
		out = append(out, b)
		if b == telIAC {
			out = append(out, telIAC)
		}
	}
	if _, err := t.raw.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Read fills p with negotiation-stripped application data, answering any
// IAC DO/WILL requests inline before returning control to the caller. Any
// stripped output that doesn't fit in p is queued in t.pending and drained
// first on the next call, so a caller-sized buffer never loses bytes.
func (t *Telnet) Read(p []byte) (int, error) {
	t.mu.Lock()
	if len(t.pending) > 0 {
		n := copy(p, t.pending)
		t.pending = t.pending[n:]
		t.mu.Unlock()
		return n, nil
	}
	t.mu.Unlock()

	raw := make([]byte, len(p))
	n, err := t.raw.Read(raw)
	if n == 0 {
		return 0, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.stripIAC(raw[:n])
	delivered := copy(p, out)
	if delivered < len(out) {
		t.pending = append(t.pending, out[delivered:]...)
	}
	return delivered, err
}

func (t *Telnet) stripIAC(data []byte) []byte {
	out := make([]byte, 0, len(data))
	buf := append(t.iacBuf, data...)
	t.iacBuf = nil
	i := 0
	for i < len(buf) {
		if buf[i] != telIAC {
			out = append(out, buf[i])
			i++
			continue
		}
		// buf[i] == IAC: need at least 2 more bytes to know the command,
		// possibly more for a subnegotiation block.
		if i+1 >= len(buf) {
			t.iacBuf = buf[i:]
			break
		}
		cmd := buf[i+1]
		switch cmd {
		case telIAC: // escaped literal 0xFF
			out = append(out, telIAC)
			i += 2
		case telWILL, telWONT, telDO, telDONT:
			if i+2 >= len(buf) {
				t.iacBuf = buf[i:]
				i = len(buf)
				break
			}
			t.answerNegotiation(cmd, buf[i+2])
			i += 3
		case telSB:
			end := indexIACSE(buf[i:])
			if end < 0 {
				t.iacBuf = buf[i:]
				i = len(buf)
				break
			}
			t.answerSubnegotiation(buf[i+2 : i+end])
			i += end + 2 // skip through the terminating IAC SE
		default:
			i += 2
		}
	}
	return out
}

// indexIACSE returns the offset (relative to buf[0], which must be IAC SB)
// of the IAC byte that opens the terminating "IAC SE", or -1 if buf does
// not yet contain one.
func indexIACSE(buf []byte) int {
	for i := 2; i+1 < len(buf); i++ {
		if buf[i] == telIAC && buf[i+1] == telSE {
			return i
		}
	}
	return -1
}

// answerNegotiation replies to a 3-byte IAC WILL/WONT/DO/DONT request. The
// client agrees to binary/SGA/echo-suppression and refuses everything else,
// which is the same stance every telnet-based BBS client takes. Agreeing to
// DO NAWS also sends the window-size subnegotiation right away, since NAWS
// has no SEND request of its own — the client volunteers it once the option
// is negotiated.
func (t *Telnet) answerNegotiation(cmd, opt byte) {
	var reply [3]byte
	reply[0] = telIAC
	switch cmd {
	case telDO:
		if opt == telOptBinary || opt == telOptSGA || opt == telOptTermType || opt == telOptNAWS {
			reply[1] = telWILL
		} else {
			reply[1] = telWONT
		}
	case telWILL:
		if opt == telOptBinary || opt == telOptEcho || opt == telOptSGA {
			reply[1] = telDO
		} else {
			reply[1] = telDONT
		}
	case telDONT:
		reply[1] = telWONT
	case telWONT:
		reply[1] = telDONT
	default:
		return
	}
	reply[2] = opt
	if _, err := t.raw.Write(reply[:]); err != nil {
		t.log.Warnf("telnet: negotiation reply failed: %v", err)
	}
	if cmd == telDO && opt == telOptNAWS && reply[1] == telWILL {
		t.sendNAWS()
	}
}

// answerSubnegotiation inspects an IAC SB ... IAC SE payload (opt plus its
// body) and fulfills a TTYPE SEND request with the negotiated terminal
// name. Any other subnegotiation is observed but not answered — this
// client only volunteers data for TTYPE (on request) and NAWS (proactively,
// in answerNegotiation).
func (t *Telnet) answerSubnegotiation(payload []byte) {
	if len(payload) < 2 || payload[0] != telOptTermType || payload[1] != ttypeSend {
		return
	}
	t.mu.Lock()
	name := t.termType
	t.mu.Unlock()
	body := append([]byte{telOptTermType, ttypeIS}, []byte(name)...)
	t.sendSubnegotiation(body)
}

// sendNAWS sends the current window size as an IAC SB NAWS <w><h> IAC SE
// subnegotiation (RFC 1073: each dimension is a 16-bit big-endian value).
func (t *Telnet) sendNAWS() {
	t.mu.Lock()
	cols, rows := t.cols, t.rows
	t.mu.Unlock()
	body := []byte{
		telOptNAWS,
		byte(cols >> 8), byte(cols),
		byte(rows >> 8), byte(rows),
	}
	t.sendSubnegotiation(body)
}

// sendSubnegotiation writes IAC SB <body> IAC SE, doubling any literal
// 0xFF within body per RFC 854's byte-stuffing rule.
func (t *Telnet) sendSubnegotiation(body []byte) {
	out := make([]byte, 0, len(body)+4)
	out = append(out, telIAC, telSB)
	for _, b := range body {
		out = append(out, b)
		if b == telIAC {
			out = append(out, telIAC)
		}
	}
	out = append(out, telIAC, telSE)
	if _, err := t.raw.Write(out); err != nil {
		t.log.Warnf("telnet: subnegotiation reply failed: %v", err)
	}
}
