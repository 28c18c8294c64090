package transfer

import (
	"io"

	"github.com/mkrueger/icy-term-go/internal/coreerr"
	"github.com/mkrueger/icy-term-go/pkg/transport"
	"go.uber.org/multierr"
)

const (
	xSOH  = 0x01
	xEOT  = 0x04
	xACK  = 0x06
	xNAK  = 0x15
	xCAN  = 0x18
	xC    = 'C' // requests CRC mode instead of checksum mode
	xBlockSize = 128
	xMaxRetries = 10
)

// SendXmodem sends r's contents over tr using the classic 128-byte-block
// Xmodem protocol with CRC-16 (falling back to an 8-bit checksum if the
// receiver signals NAK instead of 'C'), advancing job as bytes are ACKed.
func SendXmodem(tr transport.Transport, r io.Reader, job *Job) error {
	first, err := readByte(tr)
	if err != nil {
		return coreerr.Wrap(coreerr.TransferConnLost, "xmodem: waiting for receiver", err)
	}
	useCRC := first == xC
	if !useCRC && first != xNAK {
		return coreerr.New(coreerr.Protocol, "xmodem: unexpected start byte")
	}

	block := byte(1)
	buf := make([]byte, xBlockSize)
	for {
		n, rerr := io.ReadFull(r, buf)
		if n == 0 && rerr != nil {
			break
		}
		for i := n; i < xBlockSize; i++ {
			buf[i] = 0x1a // CP/M EOF padding
		}
		if err := sendXmodemBlock(tr, block, buf, useCRC); err != nil {
			return err
		}
		job.Advance(int64(n))
		block++
		if rerr != nil {
			break
		}
	}
	return finishXmodemSend(tr)
}

// sendXmodemBlock retries a single block up to xMaxRetries times. Each
// rejected attempt's cause is accumulated with multierr so the final
// "retries exhausted" error carries the full NAK/garbage-reply history
// instead of just the last one, useful when diagnosing a flaky line.
func sendXmodemBlock(tr transport.Transport, block byte, data []byte, useCRC bool) error {
	var attempts error
	for attempt := 0; attempt < xMaxRetries; attempt++ {
		packet := make([]byte, 0, 133)
		packet = append(packet, xSOH, block, 0xff-block)
		packet = append(packet, data...)
		if useCRC {
			crc := crc16CCITT(data)
			packet = append(packet, byte(crc>>8), byte(crc))
		} else {
			packet = append(packet, checksum8(data))
		}
		if _, err := tr.Write(packet); err != nil {
			return coreerr.Wrap(coreerr.TransferConnLost, "xmodem: write block", err)
		}
		reply, err := readByte(tr)
		if err != nil {
			return coreerr.Wrap(coreerr.TransferConnLost, "xmodem: awaiting ack", err)
		}
		switch reply {
		case xACK:
			return nil
		case xCAN:
			return coreerr.New(coreerr.AbortedByPeer, "xmodem: receiver cancelled")
		default:
			attempts = multierr.Append(attempts, coreerr.Newf(coreerr.Protocol, "xmodem: block rejected", replyName(reply)))
			continue
		}
	}
	return multierr.Append(attempts, coreerr.New(coreerr.TooManyRetries, "xmodem: block retries exhausted"))
}

func replyName(b byte) string {
	switch b {
	case xNAK:
		return "NAK"
	case xCAN:
		return "CAN"
	default:
		return "garbage"
	}
}

func finishXmodemSend(tr transport.Transport) error {
	for attempt := 0; attempt < xMaxRetries; attempt++ {
		if _, err := tr.Write([]byte{xEOT}); err != nil {
			return coreerr.Wrap(coreerr.TransferConnLost, "xmodem: write EOT", err)
		}
		reply, err := readByte(tr)
		if err != nil {
			return coreerr.Wrap(coreerr.TransferConnLost, "xmodem: awaiting final ack", err)
		}
		if reply == xACK {
			return nil
		}
	}
	return coreerr.New(coreerr.TooManyRetries, "xmodem: EOT not acknowledged")
}

// ReceiveXmodem receives into w, polling with 'C' for CRC-16 mode. Each
// byte that arrives instead of a block start triggers another poll; after
// xMaxRetries such polls it polls with NAK for checksum mode, and it gives
// up after twice that many. Reads have no timeout, so a sender that sends
// nothing at all leaves it waiting.
func ReceiveXmodem(tr transport.Transport, w io.Writer, job *Job) error {
	useCRC := true
	expected := byte(1)
	for pollAttempt := 0; ; pollAttempt++ {
		pollByte := byte(xC)
		if pollAttempt >= xMaxRetries {
			useCRC = false
			pollByte = xNAK
		}
		if _, err := tr.Write([]byte{pollByte}); err != nil {
			return coreerr.Wrap(coreerr.TransferConnLost, "xmodem: poll write", err)
		}

		header, err := readByte(tr)
		if err != nil {
			return coreerr.Wrap(coreerr.TransferConnLost, "xmodem: awaiting first block", err)
		}
		if header == xEOT {
			tr.Write([]byte{xACK})
			return nil
		}
		if header != xSOH {
			if pollAttempt >= xMaxRetries*2 {
				return coreerr.New(coreerr.TooManyRetries, "xmodem: sender never started")
			}
			continue
		}

		data, ok, err := readXmodemBody(tr, expected, useCRC)
		if err != nil {
			return err
		}
		if !ok {
			tr.Write([]byte{xNAK})
			continue
		}
		if _, err := w.Write(data); err != nil {
			return coreerr.Wrap(coreerr.IOError, "xmodem: write to destination", err)
		}
		job.Advance(int64(len(data)))
		tr.Write([]byte{xACK})
		expected++
		break
	}

	for {
		header, err := readByte(tr)
		if err != nil {
			return coreerr.Wrap(coreerr.TransferConnLost, "xmodem: awaiting block", err)
		}
		if header == xEOT {
			tr.Write([]byte{xACK})
			return nil
		}
		if header == xCAN {
			return coreerr.New(coreerr.AbortedByPeer, "xmodem: sender cancelled")
		}
		if header != xSOH {
			tr.Write([]byte{xNAK})
			continue
		}
		data, ok, err := readXmodemBody(tr, expected, useCRC)
		if err != nil {
			return err
		}
		if !ok {
			tr.Write([]byte{xNAK})
			continue
		}
		if _, err := w.Write(data); err != nil {
			return coreerr.Wrap(coreerr.IOError, "xmodem: write to destination", err)
		}
		job.Advance(int64(len(data)))
		tr.Write([]byte{xACK})
		expected++
	}
}

// readXmodemBody reads the block number, its complement, the payload, and
// the trailing checksum/CRC, returning ok=false on any mismatch so the
// caller NAKs without tearing down the connection.
func readXmodemBody(tr transport.Transport, expected byte, useCRC bool) (data []byte, ok bool, err error) {
	blockNum, err := readByte(tr)
	if err != nil {
		return nil, false, coreerr.Wrap(coreerr.TransferConnLost, "xmodem: block number", err)
	}
	blockComp, err := readByte(tr)
	if err != nil {
		return nil, false, coreerr.Wrap(coreerr.TransferConnLost, "xmodem: block complement", err)
	}
	payload := make([]byte, xBlockSize)
	if _, err := io.ReadFull(tr, payload); err != nil {
		return nil, false, coreerr.Wrap(coreerr.TransferConnLost, "xmodem: payload", err)
	}
	numOK := blockNum == 0xff-blockComp && blockNum == expected
	if useCRC {
		hi, err := readByte(tr)
		if err != nil {
			return nil, false, err
		}
		lo, err := readByte(tr)
		if err != nil {
			return nil, false, err
		}
		got := uint16(hi)<<8 | uint16(lo)
		if got != crc16CCITT(payload) {
			return nil, false, nil
		}
	} else {
		sum, err := readByte(tr)
		if err != nil {
			return nil, false, err
		}
		if sum != checksum8(payload) {
			return nil, false, nil
		}
	}
	if !numOK {
		return nil, false, nil
	}
	return payload, true, nil
}

func checksum8(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

func crc16CCITT(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

func readByte(tr transport.Transport) (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(tr, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

