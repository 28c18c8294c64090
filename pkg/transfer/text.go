package transfer

import (
	"bufio"
	"io"

	"github.com/mkrueger/icy-term-go/internal/coreerr"
	"github.com/mkrueger/icy-term-go/pkg/transport"
)

// textChunkSize bounds how much is read per Job.Advance call so progress
// reporting stays responsive even on a large ASCII capture.
const textChunkSize = 4096

// SendText streams r to tr verbatim with no framing at all — the
// "protocol" BBS users mean when they say "just paste the file", used for
// ANSI art and plain-text door output where neither end expects checksums.
func SendText(tr transport.Transport, r io.Reader, job *Job) error {
	buf := make([]byte, textChunkSize)
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			if _, werr := tr.Write(buf[:n]); werr != nil {
				return coreerr.Wrap(coreerr.TransferConnLost, "text: write", werr)
			}
			job.Advance(int64(n))
		}
		if rerr != nil {
			if rerr == io.EOF {
				return nil
			}
			return coreerr.Wrap(coreerr.IOError, "text: read source", rerr)
		}
	}
}

// ReceiveText copies whatever arrives on tr to w until tr is closed,
// reporting progress but performing no integrity checking — callers that
// need guaranteed delivery should use Xmodem/Ymodem/Zmodem instead.
func ReceiveText(tr transport.Transport, w io.Writer, job *Job) error {
	r := bufio.NewReaderSize(tr, textChunkSize)
	buf := make([]byte, textChunkSize)
	for {
		select {
		case <-job.Done():
			return coreerr.New(coreerr.Cancelled, "text: transfer cancelled")
		default:
		}
		n, rerr := r.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return coreerr.Wrap(coreerr.IOError, "text: write to destination", werr)
			}
			job.Advance(int64(n))
		}
		if rerr != nil {
			if rerr == io.EOF {
				return nil
			}
			return coreerr.Wrap(coreerr.TransferConnLost, "text: read source", rerr)
		}
	}
}
