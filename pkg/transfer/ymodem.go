package transfer

import (
	"io"
	"strconv"
	"strings"

	"github.com/mkrueger/icy-term-go/internal/coreerr"
	"github.com/mkrueger/icy-term-go/pkg/transport"
)

// SendYmodem sends one file over tr: a block-0 header block carrying
// "name\0size", then the file's data blocks via the same 128-byte Xmodem
// block format, then a zero-filled terminating block-0. Ymodem batch mode
// (multiple files per session) is not implemented — one Job, one file,
// matching how every BBS download menu actually invokes it.
func SendYmodem(tr transport.Transport, filename string, size int64, r io.Reader, job *Job) error {
	first, err := readByte(tr)
	if err != nil {
		return coreerr.Wrap(coreerr.TransferConnLost, "ymodem: waiting for receiver", err)
	}
	if first != xC {
		return coreerr.New(coreerr.Protocol, "ymodem: receiver did not request CRC mode")
	}

	header := make([]byte, xBlockSize)
	copy(header, []byte(filename+"\x00"+strconv.FormatInt(size, 10)+"\x00"))
	if err := sendXmodemBlock(tr, 0, header, true); err != nil {
		return err
	}

	// The receiver re-polls with 'C' before the data blocks; SendXmodem
	// reads that poll as its start byte.
	if err := SendXmodem(tr, r, job); err != nil {
		return err
	}

	if _, err := readByte(tr); err != nil { // batch-end poll
		return coreerr.Wrap(coreerr.TransferConnLost, "ymodem: waiting for batch poll", err)
	}
	zero := make([]byte, xBlockSize)
	return sendXmodemBlock(tr, 0, zero, true)
}

// ReceiveYmodem receives the block-0 header (filename/size), then the file
// body into w, then the empty block 0 that closes the batch, returning the header values so the caller can open the
// correctly-named destination before streaming begins — callers that
// already know the destination can ignore the returned name.
func ReceiveYmodem(tr transport.Transport, w io.Writer, job *Job) (name string, size int64, err error) {
	if _, werr := tr.Write([]byte{xC}); werr != nil {
		return "", 0, coreerr.Wrap(coreerr.TransferConnLost, "ymodem: poll write", werr)
	}
	header, err := readByte(tr)
	if err != nil {
		return "", 0, coreerr.Wrap(coreerr.TransferConnLost, "ymodem: awaiting header block", err)
	}
	if header != xSOH {
		return "", 0, coreerr.New(coreerr.Protocol, "ymodem: expected header block")
	}
	data, ok, err := readXmodemBody(tr, 0, true)
	if err != nil {
		return "", 0, err
	}
	if !ok {
		tr.Write([]byte{xNAK})
		return "", 0, coreerr.New(coreerr.Protocol, "ymodem: header block failed CRC")
	}
	tr.Write([]byte{xACK})

	parts := strings.SplitN(string(data), "\x00", 3)
	name = parts[0]
	if name == "" {
		return "", 0, coreerr.New(coreerr.AbortedByPeer, "ymodem: sender closed batch")
	}
	if len(parts) > 1 {
		size, _ = strconv.ParseInt(parts[1], 10, 64)
	}

	if _, err := tr.Write([]byte{xC}); err != nil {
		return "", 0, coreerr.Wrap(coreerr.TransferConnLost, "ymodem: data poll write", err)
	}
	if err := receiveYmodemBody(tr, w, job); err != nil {
		return "", 0, err
	}

	// batch end: poll once more and accept the sender's empty block 0
	if _, err := tr.Write([]byte{xC}); err != nil {
		return "", 0, coreerr.Wrap(coreerr.TransferConnLost, "ymodem: batch poll write", err)
	}
	if h, err := readByte(tr); err != nil || h != xSOH {
		return "", 0, coreerr.New(coreerr.Protocol, "ymodem: expected batch-end block")
	}
	if _, ok, err := readXmodemBody(tr, 0, true); err != nil || !ok {
		return "", 0, coreerr.New(coreerr.Protocol, "ymodem: bad batch-end block")
	}
	tr.Write([]byte{xACK})
	return name, size, nil
}

// receiveYmodemBody is ReceiveXmodem's block loop without the initial CRC
// poll (Ymodem already negotiated CRC mode for the header block).
func receiveYmodemBody(tr transport.Transport, w io.Writer, job *Job) error {
	expected := byte(1)
	for {
		header, err := readByte(tr)
		if err != nil {
			return coreerr.Wrap(coreerr.TransferConnLost, "ymodem: awaiting block", err)
		}
		if header == xEOT {
			tr.Write([]byte{xACK})
			return nil
		}
		if header == xCAN {
			return coreerr.New(coreerr.AbortedByPeer, "ymodem: sender cancelled")
		}
		if header != xSOH {
			tr.Write([]byte{xNAK})
			continue
		}
		data, ok, err := readXmodemBody(tr, expected, true)
		if err != nil {
			return err
		}
		if !ok {
			tr.Write([]byte{xNAK})
			continue
		}
		if _, err := w.Write(data); err != nil {
			return coreerr.Wrap(coreerr.IOError, "ymodem: write to destination", err)
		}
		job.Advance(int64(len(data)))
		tr.Write([]byte{xACK})
		expected++
	}
}
