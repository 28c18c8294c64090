//go:build !windows

package session

import (
	"context"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/mkrueger/icy-term-go/internal/logx"
	"github.com/mkrueger/icy-term-go/pkg/buffer"
	"github.com/mkrueger/icy-term-go/pkg/emulation"
	"github.com/mkrueger/icy-term-go/pkg/transport"
)

// ptyTransport wraps a local pty master as a transport.Transport, letting
// the reactor loop run against a real local shell instead of a network
// dial — the integration-test harness creack/pty exists for in this
// module, since there's no real BBS to dial in CI.
type ptyTransport struct {
	cmd    *exec.Cmd
	master *os.File
	status transport.Status
}

func newPTYSessionTransport(t *testing.T) *ptyTransport {
	t.Helper()
	cmd := exec.Command("cat")
	master, err := pty.Start(cmd)
	if err != nil {
		t.Skipf("pty unavailable in this sandbox: %v", err)
	}
	return &ptyTransport{cmd: cmd, master: master}
}

func (p *ptyTransport) Connect(ctx context.Context) error {
	p.status = transport.StatusConnected
	return nil
}
func (p *ptyTransport) Read(b []byte) (int, error)  { return p.master.Read(b) }
func (p *ptyTransport) Write(b []byte) (int, error) { return p.master.Write(b) }
func (p *ptyTransport) Close() error {
	p.status = transport.StatusClosing
	p.master.Close()
	return p.cmd.Process.Kill()
}
func (p *ptyTransport) Status() transport.Status { return p.status }

// TestSessionDrivesEmulationAgainstLocalPTY exercises the full reactor
// loop — dial, connect, read pump, parser feed — against a real pty
// rather than a network socket, standing in for a BBS connection per
// "spawns a local shell for integration tests of the emulation engine
// without a real BBS".
func TestSessionDrivesEmulationAgainstLocalPTY(t *testing.T) {
	buf := buffer.New(80, 25, buffer.TypeAnsi)
	parser := emulation.NewAnsi(buf)

	entry := AddressBookEntry{Name: "local-pty", TerminalType: "ansi", Width: 80, Height: 25}
	s := NewSession(entry, parser, logx.Nop())

	tr := newPTYSessionTransport(t)
	s.dialOverride = func(ctx context.Context) (transport.Transport, error) { return tr, nil }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// Give the reactor a moment to connect and start its read pump
	// before writing — a pty's line discipline echoes input back through
	// the master, which is what the parser should end up seeing.
	time.Sleep(100 * time.Millisecond)
	if err := s.Write([]byte("hello\r\n")); err != nil {
		t.Fatalf("session write: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	s.Cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not shut down after Cancel")
	}

	l := buf.Base()
	var got string
	for x := 0; x < 5; x++ {
		got += string(l.Get(x, 0).Ch)
	}
	if got != "hello" {
		t.Fatalf("buffer base layer row 0 = %q, want echoed %q", got, "hello")
	}
}
