package transport

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/mkrueger/icy-term-go/internal/coreerr"
	"github.com/mkrueger/icy-term-go/internal/logx"
)

// SSHOptions configures the client-side connection SSH.Connect opens.
type SSHOptions struct {
	User            string
	Password        string // sent for password auth and as the answer to every keyboard-interactive question
	HostKeyCallback ssh.HostKeyCallback
	Timeout         time.Duration
}

// SSH is an interactive-shell Transport over golang.org/x/crypto/ssh: it
// dials, authenticates, requests a pty and a shell, and exposes the
// session's combined stdin/stdout as Read/Write.
type SSH struct {
	addr string
	opts SSHOptions
	log  *logx.Logger

	mu      sync.Mutex
	client  *ssh.Client
	session *ssh.Session
	stdin   io.WriteCloser
	stdout  io.Reader
	status  Status
}

// NewSSH builds an unconnected SSH transport for addr ("host:port").
func NewSSH(addr string, opts SSHOptions, log *logx.Logger) *SSH {
	if opts.Timeout == 0 {
		opts.Timeout = dialTimeout
	}
	if opts.HostKeyCallback == nil {
		opts.HostKeyCallback = ssh.InsecureIgnoreHostKey()
	}
	return &SSH{addr: addr, opts: opts, log: log}
}

func (s *SSH) Connect(ctx context.Context) error {
	s.mu.Lock()
	s.status = StatusConnecting
	s.mu.Unlock()

	config := &ssh.ClientConfig{
		User: s.opts.User,
		Auth: []ssh.AuthMethod{
			ssh.Password(s.opts.Password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = s.opts.Password
				}
				return answers, nil
			}),
		},
		HostKeyCallback: s.opts.HostKeyCallback,
		Timeout:         s.opts.Timeout,
	}

	dialer := net.Dialer{Timeout: s.opts.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		s.fail()
		return coreerr.Wrap(coreerr.ConnectionLost, "ssh: dial "+s.addr, err)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, s.addr, config)
	if err != nil {
		conn.Close()
		s.fail()
		return coreerr.Wrap(coreerr.AuthFailed, "ssh: handshake "+s.addr, err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)

	session, err := client.NewSession()
	if err != nil {
		client.Close()
		s.fail()
		return coreerr.Wrap(coreerr.ConnectionLost, "ssh: open session", err)
	}
	if err := session.RequestPty("ansi", 25, 80, ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 38400,
		ssh.TTY_OP_OSPEED: 38400,
	}); err != nil {
		session.Close()
		client.Close()
		s.fail()
		return coreerr.Wrap(coreerr.Protocol, "ssh: request pty", err)
	}
	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		client.Close()
		s.fail()
		return coreerr.Wrap(coreerr.Protocol, "ssh: stdin pipe", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		client.Close()
		s.fail()
		return coreerr.Wrap(coreerr.Protocol, "ssh: stdout pipe", err)
	}
	if err := session.Shell(); err != nil {
		session.Close()
		client.Close()
		s.fail()
		return coreerr.Wrap(coreerr.Protocol, "ssh: start shell", err)
	}

	s.log.Debugf("ssh: connected to %s as %s", s.addr, s.opts.User)
	s.mu.Lock()
	s.client, s.session, s.stdin, s.stdout = client, session, stdin, stdout
	s.status = StatusConnected
	s.mu.Unlock()
	return nil
}

func (s *SSH) fail() {
	s.mu.Lock()
	s.status = StatusDisconnected
	s.mu.Unlock()
}

func (s *SSH) Read(p []byte) (int, error) {
	s.mu.Lock()
	stdout := s.stdout
	s.mu.Unlock()
	if stdout == nil {
		return 0, coreerr.New(coreerr.ConnectionLost, "ssh: not connected")
	}
	return stdout.Read(p)
}

func (s *SSH) Write(p []byte) (int, error) {
	s.mu.Lock()
	stdin := s.stdin
	s.mu.Unlock()
	if stdin == nil {
		return 0, coreerr.New(coreerr.ConnectionLost, "ssh: not connected")
	}
	return stdin.Write(p)
}

func (s *SSH) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusClosing
	var err error
	if s.session != nil {
		err = s.session.Close()
	}
	if s.client != nil {
		if cerr := s.client.Close(); err == nil {
			err = cerr
		}
	}
	s.status = StatusDisconnected
	return err
}

func (s *SSH) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}
