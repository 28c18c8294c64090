package transfer

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/mkrueger/icy-term-go/pkg/transport"
)

// bufferedQueue is an unbounded byte queue with blocking reads and
// non-blocking writes, standing in for a real transport's kernel send
// buffer — a bare io.Pipe's synchronous Write would deadlock these
// protocols, since both ends write their opening header before either
// has started reading.
type bufferedQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    bytes.Buffer
	closed bool
}

func newBufferedQueue() *bufferedQueue {
	q := &bufferedQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *bufferedQueue) Write(b []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return 0, io.ErrClosedPipe
	}
	n, _ := q.buf.Write(b)
	q.cond.Broadcast()
	return n, nil
}

func (q *bufferedQueue) Read(b []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.buf.Len() == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.buf.Len() == 0 {
		return 0, io.EOF
	}
	return q.buf.Read(b)
}

func (q *bufferedQueue) Close() error {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
	return nil
}

// pipeEnd is a minimal transport.Transport backed by two bufferedQueues,
// used to run a protocol's sender and receiver halves against each other
// in one test process without any real network or serial device.
type pipeEnd struct {
	r *bufferedQueue
	w *bufferedQueue
}

func (p *pipeEnd) Read(b []byte) (int, error)        { return p.r.Read(b) }
func (p *pipeEnd) Write(b []byte) (int, error)       { return p.w.Write(b) }
func (p *pipeEnd) Close() error                      { p.r.Close(); return p.w.Close() }
func (p *pipeEnd) Connect(ctx context.Context) error { return nil }
func (p *pipeEnd) Status() transport.Status          { return transport.StatusConnected }

// newLoopback returns two connected ends: writes to a arrive as reads on
// b, and writes to b arrive as reads on a.
func newLoopback() (a, b *pipeEnd) {
	q1, q2 := newBufferedQueue(), newBufferedQueue()
	return &pipeEnd{r: q1, w: q2}, &pipeEnd{r: q2, w: q1}
}

func TestXmodemSendReceiveRoundTrip(t *testing.T) {
	content := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog\n"), 20)
	sideA, sideB := newLoopback()

	sendJob := NewJob("test.bin", ProtocolXmodem, DirectionSend, int64(len(content)))
	recvJob := NewJob("test.bin", ProtocolXmodem, DirectionReceive, 0)

	sendErr := make(chan error, 1)
	go func() { sendErr <- SendXmodem(sideA, bytes.NewReader(content), sendJob) }()

	var out bytes.Buffer
	recvErr := make(chan error, 1)
	go func() { recvErr <- ReceiveXmodem(sideB, &out, recvJob) }()

	if err := waitErr(t, sendErr); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := waitErr(t, recvErr); err != nil {
		t.Fatalf("receive: %v", err)
	}

	got := bytes.TrimRight(out.Bytes(), "\x1a")
	if !bytes.Equal(got, content) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(content))
	}
}

func TestYmodemSendReceiveRoundTrip(t *testing.T) {
	content := bytes.Repeat([]byte("ymodem batch payload "), 30)
	sideA, sideB := newLoopback()

	sendJob := NewJob("report.txt", ProtocolYmodem, DirectionSend, int64(len(content)))
	recvJob := NewJob("report.txt", ProtocolYmodem, DirectionReceive, 0)

	sendErr := make(chan error, 1)
	go func() {
		sendErr <- SendYmodem(sideA, "report.txt", int64(len(content)), bytes.NewReader(content), sendJob)
	}()

	var out bytes.Buffer
	var name string
	var size int64
	recvErr := make(chan error, 1)
	go func() {
		var rerr error
		name, size, rerr = ReceiveYmodem(sideB, &out, recvJob)
		recvErr <- rerr
	}()

	if err := waitErr(t, sendErr); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := waitErr(t, recvErr); err != nil {
		t.Fatalf("receive: %v", err)
	}

	if name != "report.txt" {
		t.Fatalf("filename = %q, want report.txt", name)
	}
	if size != int64(len(content)) {
		t.Fatalf("size = %d, want %d", size, len(content))
	}
	got := bytes.TrimRight(out.Bytes(), "\x1a")
	if !bytes.Equal(got, content) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(content))
	}
}

func TestZmodemSendReceiveRoundTrip(t *testing.T) {
	content := bytes.Repeat([]byte("zmodem streaming subpacket data\n"), 300)
	sideA, sideB := newLoopback()

	sendJob := NewJob("archive.zip", ProtocolZmodem, DirectionSend, int64(len(content)))
	recvJob := NewJob("archive.zip", ProtocolZmodem, DirectionReceive, 0)

	sendErr := make(chan error, 1)
	go func() {
		sendErr <- SendZmodem(sideA, "archive.zip", int64(len(content)), bytes.NewReader(content), sendJob)
	}()

	var out bytes.Buffer
	var name string
	recvErr := make(chan error, 1)
	go func() {
		var rerr error
		name, _, rerr = ReceiveZmodem(sideB, &out, recvJob)
		recvErr <- rerr
	}()

	if err := waitErr(t, sendErr); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := waitErr(t, recvErr); err != nil {
		t.Fatalf("receive: %v", err)
	}
	if name != "archive.zip" {
		t.Fatalf("filename = %q, want archive.zip", name)
	}
	if !bytes.Equal(out.Bytes(), content) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d", out.Len(), len(content))
	}
}

func TestTextSendReceiveRoundTrip(t *testing.T) {
	content := []byte("\x1b[2J\x1b[1;1Hthis is raw ansi art, no framing at all\n")
	sideA, sideB := newLoopback()

	sendJob := NewJob("art.ans", ProtocolText, DirectionSend, int64(len(content)))
	recvJob := NewJob("art.ans", ProtocolText, DirectionReceive, 0)

	sendErr := make(chan error, 1)
	go func() {
		err := SendText(sideA, bytes.NewReader(content), sendJob)
		sideA.w.Close()
		sendErr <- err
	}()

	var out bytes.Buffer
	recvErr := make(chan error, 1)
	go func() { recvErr <- ReceiveText(sideB, &out, recvJob) }()

	if err := waitErr(t, sendErr); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := waitErr(t, recvErr); err != nil {
		t.Fatalf("receive: %v", err)
	}
	if !bytes.Equal(out.Bytes(), content) {
		t.Fatalf("round trip mismatch: got %q, want %q", out.Bytes(), content)
	}
}

func TestJobProgressTracksBytes(t *testing.T) {
	job := NewJob("x.bin", ProtocolXmodem, DirectionSend, 1000)
	job.Advance(500)
	p := job.Progress()
	if p.BytesDone != 500 || p.BytesTotal != 1000 {
		t.Fatalf("progress = %+v", p)
	}
}

func TestJobCancelClosesDone(t *testing.T) {
	job := NewJob("x.bin", ProtocolXmodem, DirectionSend, 0)
	job.Cancel()
	job.Cancel() // must not panic on double-cancel
	select {
	case <-job.Done():
	default:
		t.Fatal("Done channel not closed after Cancel")
	}
}

func waitErr(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for protocol goroutine")
		return nil
	}
}
