package transfer

import (
	"bytes"
	"hash/crc32"
	"io"
	"time"

	"github.com/mkrueger/icy-term-go/internal/coreerr"
	"github.com/mkrueger/icy-term-go/pkg/transport"
)

// Zmodem frame types, per the public Zmodem protocol (no pack/teacher
// reference implements this one — these constants and the framing below
// follow the well-known wire format directly, documented in DESIGN.md).
const (
	zrqinit = 0
	zrinit  = 1
	zfile   = 4
	zskip   = 5
	znak    = 6
	zabort  = 7
	zfin    = 8
	zrpos   = 9
	zdata   = 10
	zeof    = 11
	zfererr = 12
)

const (
	zpad    = '*'
	zdle    = 0x18
	zdleEsc = 0x58
	zbin32  = 'C' // ZBIN32: binary header, CRC-32
)

// zdleEncode escapes ZDLE, CR, XON/XOFF, and high-bit-set control-like
// bytes so the data stream never collides with Zmodem's own framing.
func zdleEncode(data []byte) []byte {
	out := make([]byte, 0, len(data)+len(data)/8+2)
	for _, b := range data {
		switch b {
		case zdle:
			out = append(out, zdle, b^0x40)
		case 0x0d, 0x11, 0x13, 0x8d, 0x91, 0x93:
			out = append(out, zdle, b^0x40)
		default:
			out = append(out, b)
		}
	}
	return out
}

// zdleDecode reverses zdleEncode, honoring an escaped ZDLE,ZDLE as a
// literal CAN-CAN cancel sequence is left to the caller to detect first.
func zdleDecode(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		b := data[i]
		if b == zdle && i+1 < len(data) {
			i++
			out = append(out, data[i]^0x40)
			continue
		}
		out = append(out, b)
	}
	return out
}

// sendZmodemHeader writes a ZBIN32 header: ZPAD ZPAD ZDLE ZBIN32, the
// frame type and 4 little-endian position/flag bytes, ZDLE-escaped, then
// a ZDLE-escaped CRC-32 of type+data.
func sendZmodemHeader(tr transport.Transport, frameType byte, pos uint32) error {
	data := []byte{
		frameType,
		byte(pos), byte(pos >> 8), byte(pos >> 16), byte(pos >> 24),
	}
	crc := crc32.ChecksumIEEE(data)
	body := append(append([]byte{}, data...), byte(crc), byte(crc>>8), byte(crc>>16), byte(crc>>24))

	packet := []byte{zpad, zpad, zdle, zbin32}
	packet = append(packet, zdleEncode(body)...)
	_, err := tr.Write(packet)
	if err != nil {
		return coreerr.Wrap(coreerr.TransferConnLost, "zmodem: write header", err)
	}
	return nil
}

// readZmodemHeader scans for ZPAD ZPAD ZDLE ZBIN32 and decodes the
// following escaped type+position+CRC, validating the CRC-32.
func readZmodemHeader(tr transport.Transport, timeout time.Duration) (frameType byte, pos uint32, err error) {
	deadline := timeNow().Add(timeout)
	var b [1]byte
	state := 0
	for {
		if timeout > 0 && timeNow().After(deadline) {
			return 0, 0, coreerr.New(coreerr.Timeout, "zmodem: header scan timed out")
		}
		if _, rerr := io.ReadFull(tr, b[:]); rerr != nil {
			return 0, 0, coreerr.Wrap(coreerr.TransferConnLost, "zmodem: header scan", rerr)
		}
		switch state {
		case 0:
			if b[0] == zpad {
				state = 1
			}
		case 1:
			if b[0] == zpad {
				state = 2
			} else {
				state = 0
			}
		case 2:
			if b[0] == zdle {
				state = 3
			} else {
				state = 0
			}
		case 3:
			if b[0] == zbin32 {
				state = 4
			} else {
				state = 0
			}
			if state == 4 {
				goto haveMarker
			}
		}
	}
haveMarker:
	raw, err := readZdleEscaped(tr, 9) // 1 type byte + 4 position bytes + 4 CRC-32 bytes
	if err != nil {
		return 0, 0, err
	}
	if len(raw) < 9 {
		return 0, 0, coreerr.New(coreerr.Truncated, "zmodem: short header")
	}
	data := raw[:5]
	gotCRC := uint32(raw[5]) | uint32(raw[6])<<8 | uint32(raw[7])<<16 | uint32(raw[8])<<24
	if crc32.ChecksumIEEE(data) != gotCRC {
		return 0, 0, coreerr.New(coreerr.CRCMismatch, "zmodem: header CRC mismatch")
	}
	frameType = data[0]
	pos = uint32(data[1]) | uint32(data[2])<<8 | uint32(data[3])<<16 | uint32(data[4])<<24
	return frameType, pos, nil
}

// readZdleEscaped reads raw bytes off tr, unescaping ZDLE sequences as it
// goes, until it has decoded exactly want bytes.
func readZdleEscaped(tr transport.Transport, want int) ([]byte, error) {
	out := make([]byte, 0, want)
	var b [1]byte
	for len(out) < want {
		if _, err := io.ReadFull(tr, b[:]); err != nil {
			return nil, coreerr.Wrap(coreerr.TransferConnLost, "zmodem: escaped read", err)
		}
		if b[0] == zdle {
			if _, err := io.ReadFull(tr, b[:]); err != nil {
				return nil, coreerr.Wrap(coreerr.TransferConnLost, "zmodem: escaped read", err)
			}
			out = append(out, b[0]^0x40)
			continue
		}
		out = append(out, b[0])
	}
	return out, nil
}

// zmodemDataSubpacket frame-end markers following a ZDLE escape.
const (
	zcrce = 0x68 // end of frame, no more data follows
	zcrcg = 0x69 // frame continues
	zcrcq = 0x6a // frame continues, ack requested
	zcrcw = 0x6b // end of frame, ack requested
)

// sendZmodemData writes one data subpacket: the ZDLE-escaped payload
// followed by ZDLE,end-marker and a ZDLE-escaped CRC-32 over payload+marker.
func sendZmodemData(tr transport.Transport, payload []byte, end byte) error {
	crcInput := append(append([]byte{}, payload...), end)
	crc := crc32.ChecksumIEEE(crcInput)
	out := zdleEncode(payload)
	out = append(out, zdle, end)
	crcBytes := []byte{byte(crc), byte(crc >> 8), byte(crc >> 16), byte(crc >> 24)}
	out = append(out, zdleEncode(crcBytes)...)
	if _, err := tr.Write(out); err != nil {
		return coreerr.Wrap(coreerr.TransferConnLost, "zmodem: write data subpacket", err)
	}
	return nil
}

// readZmodemData reads one ZDLE-framed data subpacket: escaped payload
// bytes up to (but not including) the next literal ZDLE,marker pair, then
// the marker and its CRC-32, validating it.
func readZmodemData(tr transport.Transport) (payload []byte, end byte, err error) {
	var raw []byte
	var b [1]byte
	for {
		if _, rerr := io.ReadFull(tr, b[:]); rerr != nil {
			return nil, 0, coreerr.Wrap(coreerr.TransferConnLost, "zmodem: data subpacket", rerr)
		}
		if b[0] != zdle {
			raw = append(raw, b[0])
			continue
		}
		if _, rerr := io.ReadFull(tr, b[:]); rerr != nil {
			return nil, 0, coreerr.Wrap(coreerr.TransferConnLost, "zmodem: data subpacket marker", rerr)
		}
		switch b[0] {
		case zcrce, zcrcg, zcrcq, zcrcw:
			end = b[0]
			crcBytes, cerr := readZdleEscaped(tr, 4)
			if cerr != nil {
				return nil, 0, cerr
			}
			gotCRC := uint32(crcBytes[0]) | uint32(crcBytes[1])<<8 | uint32(crcBytes[2])<<16 | uint32(crcBytes[3])<<24
			want := crc32.ChecksumIEEE(append(append([]byte{}, raw...), end))
			if gotCRC != want {
				return nil, 0, coreerr.New(coreerr.CRCMismatch, "zmodem: data subpacket CRC mismatch")
			}
			return raw, end, nil
		default:
			raw = append(raw, b[0]^0x40)
		}
	}
}

// SendZmodem streams r to tr as one Zmodem file transfer: ZRQINIT/ZRINIT
// handshake, a ZFILE header carrying name+size, then ZDATA subpackets
// until EOF, then ZEOF and ZFIN.
func SendZmodem(tr transport.Transport, filename string, size int64, r io.Reader, job *Job) error {
	if err := sendZmodemHeader(tr, zrqinit, 0); err != nil {
		return err
	}
	ft, _, err := readZmodemHeader(tr, 30*time.Second)
	if err != nil {
		return err
	}
	if ft != zrinit {
		return coreerr.New(coreerr.Protocol, "zmodem: expected ZRINIT")
	}

	nameField := []byte(filename)
	nameField = append(nameField, 0)
	if size > 0 {
		nameField = append(nameField, []byte(itoaZmodem(size))...)
	}
	nameField = append(nameField, 0)

	if err := sendZmodemHeader(tr, zfile, 0); err != nil {
		return err
	}
	if err := sendZmodemData(tr, nameField, zcrcw); err != nil {
		return err
	}
	ft, pos, err := readZmodemHeader(tr, 30*time.Second)
	for err == nil && ft == zrinit {
		// a repeated ZRINIT: the receiver answering our ZRQINIT again
		ft, pos, err = readZmodemHeader(tr, 30*time.Second)
	}
	if err != nil {
		return err
	}
	if ft == zskip {
		return coreerr.New(coreerr.AbortedByPeer, "zmodem: receiver skipped file")
	}
	if ft != zrpos {
		return coreerr.New(coreerr.Protocol, "zmodem: expected ZRPOS")
	}

	if err := sendZmodemHeader(tr, zdata, pos); err != nil {
		return err
	}

	buf := make([]byte, 8192)
	var sent int64 = int64(pos)
	for {
		n, rerr := r.Read(buf)
		// at EOF the subpacket may be empty; it still carries ZCRCE
		if n > 0 || rerr == io.EOF {
			marker := byte(zcrcg)
			if rerr == io.EOF {
				marker = zcrce
			}
			if err := sendZmodemData(tr, buf[:n], marker); err != nil {
				return err
			}
			sent += int64(n)
			job.Advance(int64(n))
		}
		if rerr != nil {
			if rerr != io.EOF {
				return coreerr.Wrap(coreerr.IOError, "zmodem: read source", rerr)
			}
			break
		}
	}

	if err := sendZmodemHeader(tr, zeof, uint32(sent)); err != nil {
		return err
	}
	ft, _, err = readZmodemHeader(tr, 30*time.Second)
	if err != nil {
		return err
	}
	if ft != zrinit {
		return coreerr.New(coreerr.Protocol, "zmodem: expected ZRINIT after ZEOF")
	}
	return sendZmodemHeader(tr, zfin, 0)
}

// ReceiveZmodem drives the receiving half of one Zmodem file transfer,
// writing the incoming data subpackets to w and returning the filename
// the sender announced in its ZFILE header and the number of data bytes
// received.
func ReceiveZmodem(tr transport.Transport, w io.Writer, job *Job) (name string, size int64, err error) {
	if err := sendZmodemHeader(tr, zrinit, 0); err != nil {
		return "", 0, err
	}
	var ft byte
	for {
		ft, _, err = readZmodemHeader(tr, 60*time.Second)
		if err != nil {
			return "", 0, err
		}
		if ft == zfile {
			break
		}
		if ft == zrqinit {
			// sender's own opening probe, crossed in flight with ours: answer
			// again and keep waiting for the real ZFILE.
			if err := sendZmodemHeader(tr, zrinit, 0); err != nil {
				return "", 0, err
			}
			continue
		}
		return "", 0, coreerr.New(coreerr.Protocol, "zmodem: expected ZFILE")
	}
	payload, _, err := readZmodemData(tr)
	if err != nil {
		return "", 0, err
	}
	fields := bytes.Split(bytes.TrimRight(payload, "\x00"), []byte{0})
	if len(fields) > 0 {
		name = string(fields[0])
	}
	if len(fields) > 1 {
		size = parseIntZmodem(string(bytes.Fields(fields[1])[0]))
	}

	if err := sendZmodemHeader(tr, zrpos, 0); err != nil {
		return "", 0, err
	}
	ft, _, err = readZmodemHeader(tr, 30*time.Second)
	if err != nil {
		return "", 0, err
	}
	if ft != zdata {
		return "", 0, coreerr.New(coreerr.Protocol, "zmodem: expected ZDATA")
	}

	var received int64
	for {
		data, end, derr := readZmodemData(tr)
		if derr != nil {
			return "", 0, derr
		}
		if len(data) > 0 {
			if _, werr := w.Write(data); werr != nil {
				return "", 0, coreerr.Wrap(coreerr.IOError, "zmodem: write to destination", werr)
			}
			received += int64(len(data))
			job.Advance(int64(len(data)))
		}
		if end == zcrce {
			break
		}
	}

	ft, _, err = readZmodemHeader(tr, 30*time.Second)
	if err != nil {
		return "", 0, err
	}
	if ft != zeof {
		return "", 0, coreerr.New(coreerr.Protocol, "zmodem: expected ZEOF")
	}
	if err := sendZmodemHeader(tr, zrinit, 0); err != nil {
		return "", 0, err
	}
	ft, _, err = readZmodemHeader(tr, 30*time.Second)
	if err != nil {
		return "", 0, err
	}
	if ft != zfin {
		return "", 0, coreerr.New(coreerr.Protocol, "zmodem: expected ZFIN")
	}
	return name, received, nil
}

func itoaZmodem(n int64) string {
	if n == 0 {
		return "0"
	}
	var digits [20]byte
	i := len(digits)
	neg := n < 0
	if neg {
		n = -n
	}
	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		digits[i] = '-'
	}
	return string(digits[i:])
}

func parseIntZmodem(s string) int64 {
	var n int64
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int64(c-'0')
	}
	return n
}
