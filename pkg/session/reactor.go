package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mkrueger/icy-term-go/internal/coreerr"
	"github.com/mkrueger/icy-term-go/internal/logx"
	"github.com/mkrueger/icy-term-go/pkg/emulation"
	"github.com/mkrueger/icy-term-go/pkg/transfer"
	"github.com/mkrueger/icy-term-go/pkg/transport"
	"go.uber.org/multierr"
)

// State is a Session's transport lifecycle state, per spec §4.3's
// Session type: {Connecting, Connected, Authenticating, Transferring,
// Disconnected}.
type State int

const (
	StateConnecting State = iota
	StateConnected
	StateAuthenticating
	StateTransferring
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateAuthenticating:
		return "authenticating"
	case StateTransferring:
		return "transferring"
	default:
		return "disconnected"
	}
}

// Session is one document's live connection: a transport, the address
// book entry it was dialed from, and the single-threaded reactor loop
// that paces inbound bytes to the emulation parser, logs when
// auto-download sniffs a protocol start sequence (a transfer job runs only
// through StartDownload), and drives
// the IEMSI handshake on connect. All Buffer mutation happens on this
// loop's goroutine — nothing here touches the parser's target Buffer
// from any other goroutine, satisfying the "mutations serialized from
// the loop thread" invariant spec §4.6 requires.
type Session struct {
	ID     string
	Entry  AddressBookEntry
	parser emulation.Parser
	log    *logx.Logger

	mu    sync.Mutex
	state State

	tr      transport.Transport
	pacer   *baudPacer
	sniffer autoDownloadSniffer
	iemsi   *iemsiHandshake

	activeJob   *transfer.Job
	activeJobMu sync.Mutex

	cancel     chan struct{}
	cancelOnce sync.Once
	done       chan struct{}

	// dialOverride substitutes dial's normal protocol-table lookup, used
	// only by the pty-backed integration test harness to drive the
	// reactor loop against a real local shell instead of a network dial.
	dialOverride func(ctx context.Context) (transport.Transport, error)
}

// NewSession constructs a Session for entry, feeding decoded screen
// updates into parser (the active emulation.Parser for entry's terminal
// type — chosen by the caller, which already knows the emulation set).
func NewSession(entry AddressBookEntry, parser emulation.Parser, log *logx.Logger) *Session {
	s := &Session{
		ID:     uuid.New().String(),
		Entry:  entry,
		parser: parser,
		log:    log,
		state:  StateDisconnected,
		pacer:  newBaudPacer(entry.BaudRate),
		cancel: make(chan struct{}),
		done:   make(chan struct{}),
	}
	if entry.UseIEMSI {
		s.iemsi = newIEMSIHandshake(entry)
	}
	return s
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// dial opens the underlying transport for Entry. Serial and modem need
// constructor arguments the uniform Dialer table doesn't carry, so they
// are built directly here; everything else goes through dialerFor.
func (s *Session) dial(ctx context.Context) (transport.Transport, error) {
	if s.dialOverride != nil {
		return s.dialOverride(ctx)
	}
	addr := fmt.Sprintf("%s:%d", s.Entry.Host, s.Entry.Port)
	switch s.Entry.Protocol {
	case ProtocolSerial:
		dev := transport.NewSerial(s.Entry.Host, s.Entry.BaudRate)
		return dev, nil
	case ProtocolModem:
		under, err := transport.NewRaw(addr, nil)
		if err != nil {
			return nil, err
		}
		return transport.NewModem(under, s.Entry.Host, nil), nil
	case ProtocolTelnet:
		tr, err := transport.NewTelnet(addr, nil)
		if err != nil {
			return nil, err
		}
		if t, ok := tr.(*transport.Telnet); ok {
			t.SetTerminalType(s.Entry.TerminalType)
			t.SetWindowSize(s.Entry.Width, s.Entry.Height)
		}
		return tr, nil
	default:
		dial, ok := dialerFor(s.Entry.Protocol)
		if !ok {
			return nil, coreerr.New(coreerr.InvalidFormat, "session: unknown protocol in address book entry")
		}
		return dial(addr)
	}
}

// Run connects and drives the reactor loop until the session disconnects
// or ctx is cancelled. It blocks, so callers run it in its own goroutine
// per open document (spec §5: "the process may host many reactors
// concurrently; they do not share mutable buffer state").
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)
	s.setState(StateConnecting)

	tr, err := s.dial(ctx)
	if err != nil {
		s.setState(StateDisconnected)
		return err
	}
	s.tr = tr

	connectCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	err = tr.Connect(connectCtx)
	cancel()
	if err != nil {
		s.setState(StateDisconnected)
		s.announce("NO CARRIER")
		return coreerr.Wrap(coreerr.ConnectionLost, "session: connect failed", err)
	}
	s.setState(StateConnected)

	if s.iemsi != nil {
		s.setState(StateAuthenticating)
		if probe := s.iemsi.Start(); probe != nil {
			tr.Write(probe)
		}
	}

	inbound := make(chan []byte, 64)
	readErr := make(chan error, 1)
	go s.readPump(tr, inbound, readErr)

	for {
		select {
		case <-ctx.Done():
			return multierr.Append(ctx.Err(), s.teardown())
		case <-s.cancel:
			return multierr.Append(coreerr.New(coreerr.Cancelled, "session: cancelled"), s.teardown())
		case err := <-readErr:
			s.announce("NO CARRIER")
			return multierr.Append(coreerr.Wrap(coreerr.ConnectionLost, "session: read failed", err), s.teardown())
		case chunk := <-inbound:
			s.handleInbound(chunk)
		}
	}
}

func (s *Session) readPump(tr transport.Transport, inbound chan<- []byte, errc chan<- error) {
	buf := make([]byte, 4096)
	for {
		n, err := tr.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case inbound <- chunk:
			case <-s.cancel:
				return
			}
		}
		if err != nil {
			errc <- err
			return
		}
	}
}

// handleInbound is the one place that decides, per chunk, whether bytes
// go to IEMSI, to an auto-started transfer job, or to the emulation
// parser — the three destinations spec §4.6 names for the session loop.
func (s *Session) handleInbound(chunk []byte) {
	if s.iemsi != nil && !s.iemsi.Done() && !s.iemsi.Failed() {
		if reply := s.iemsi.Feed(chunk); reply != nil {
			s.tr.Write(reply)
		}
		if s.iemsi.Done() || s.iemsi.Failed() {
			s.setState(StateConnected)
		}
		return
	}

	if s.activeJobActive() {
		// A transfer protocol owns the wire; its own goroutine reads
		// directly from tr, so inbound chunks here would race it. In
		// practice the reader pump is paused for the transfer's
		// duration by StartDownload below.
		return
	}

	if proto, ok := s.sniffer.Feed(chunk); ok {
		s.log.Debugf("session: auto-download sniffed %s", proto)
		// Caller-visible via State()/ActiveJob(); the actual transfer is
		// started by StartDownload, which the caller invokes on seeing
		// the sniffed protocol (it owns the destination file).
	}

	s.pacer.Wait(len(chunk))
	s.parser.Feed(chunk)
}

// StartDownload pauses the reactor's own read pump and baud pacing, then
// drives proto's receiver directly against the session's transport until
// done. Only one transfer may be active at a time.
func (s *Session) StartDownload(proto transfer.Protocol, job *transfer.Job, run func(transport.Transport, *transfer.Job) error) error {
	s.activeJobMu.Lock()
	if s.activeJob != nil {
		s.activeJobMu.Unlock()
		return coreerr.New(coreerr.Protocol, "session: transfer already in progress")
	}
	s.activeJob = job
	s.activeJobMu.Unlock()

	s.pacer.Pause()
	s.setState(StateTransferring)
	defer func() {
		s.pacer.Resume()
		s.setState(StateConnected)
		s.activeJobMu.Lock()
		s.activeJob = nil
		s.activeJobMu.Unlock()
	}()

	return run(s.tr, job)
}

func (s *Session) activeJobActive() bool {
	s.activeJobMu.Lock()
	defer s.activeJobMu.Unlock()
	return s.activeJob != nil
}

// Write sends data to the peer over the session's transport without
// pacing; baud pacing applies to inbound bytes only. It is
// the keyboard/automation write path: send_bytes and the interactive
// keyboard-input loop both funnel through here rather than touching the
// transport directly.
func (s *Session) Write(data []byte) error {
	if s.tr == nil {
		return coreerr.New(coreerr.ConnectionLost, "session: not connected")
	}
	_, err := s.tr.Write(data)
	return err
}

// ActiveJob returns the in-flight transfer job, or nil.
func (s *Session) ActiveJob() *transfer.Job {
	s.activeJobMu.Lock()
	defer s.activeJobMu.Unlock()
	return s.activeJob
}

// announce feeds a user-visible status line through the active parser,
// the same channel ordinary screen output arrives on, per spec §7's
// "recording a user-visible line in the buffer" transport-error contract.
func (s *Session) announce(line string) {
	s.parser.Feed([]byte("\r\n" + line + "\r\n"))
}

// Cancel requests the reactor loop stop, draining queues and returning
// the session to Disconnected (spec §4.6 cancellation contract). Safe to
// call more than once and from any goroutine.
func (s *Session) Cancel() {
	s.cancelOnce.Do(func() { close(s.cancel) })
}

// Done returns a channel closed when Run has returned.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// teardown cancels any in-flight transfer and closes the transport,
// aggregating their failures with multierr rather than dropping all but
// the last one — the two cleanup steps are independent and either can
// fail without the caller needing to guess which.
func (s *Session) teardown() error {
	var errs error
	if job := s.ActiveJob(); job != nil {
		job.Cancel()
	}
	if s.tr != nil {
		if err := s.tr.Close(); err != nil {
			errs = multierr.Append(errs, coreerr.Wrap(coreerr.IOError, "session: close transport", err))
		}
	}
	s.setState(StateDisconnected)
	return errs
}

// timeNow is this package's only wall-clock read, overridable in tests.
var timeNow = time.Now
