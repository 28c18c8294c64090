package transport

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mkrueger/icy-term-go/internal/coreerr"
	"github.com/mkrueger/icy-term-go/internal/logx"
)

// ModemResult is one of the Hayes AT command set's standard result codes.
type ModemResult string

const (
	ResultOK       ModemResult = "OK"
	ResultConnect  ModemResult = "CONNECT"
	ResultRing     ModemResult = "RING"
	ResultNoCarrier ModemResult = "NO CARRIER"
	ResultError    ModemResult = "ERROR"
	ResultNoDialtone ModemResult = "NO DIALTONE"
	ResultBusy     ModemResult = "BUSY"
	ResultNoAnswer ModemResult = "NO ANSWER"
)

// dialResultTimeout bounds how long Modem.Connect waits for a CONNECT/
// NO CARRIER/BUSY line after issuing ATDT, matching a real modem's S7
// (wait-for-carrier) register default of a few tens of seconds.
const dialResultTimeout = 60 * time.Second

// Modem drives a Hayes AT command conversation over an underlying
// character-oriented Transport (typically Serial, but Raw works against a
// modem-emulating TCP bridge too) to dial out, then exposes the
// post-CONNECT byte stream as its own Read/Write, same as every other
// Transport in this package.
type Modem struct {
	under  Transport
	number string
	log    *logx.Logger

	reader *bufio.Reader
}

// NewModem wraps under (already built, not yet connected) as a dial-up
// Transport that calls number once under.Connect succeeds.
func NewModem(under Transport, number string, log *logx.Logger) *Modem {
	return &Modem{under: under, number: number, log: log}
}

func (m *Modem) Connect(ctx context.Context) error {
	if err := m.under.Connect(ctx); err != nil {
		return err
	}
	m.reader = bufio.NewReader(m.under)

	if err := m.sendCommand("ATZ"); err != nil {
		return err
	}
	if err := m.sendCommand("ATE0"); err != nil {
		m.log.Warnf("modem: ATE0 not acknowledged, continuing")
	}

	if _, err := m.under.Write([]byte("ATDT" + m.number + "\r")); err != nil {
		return coreerr.Wrap(coreerr.IOError, "modem: dial write", err)
	}
	result, err := m.waitForResult(dialResultTimeout)
	if err != nil {
		return err
	}
	switch result {
	case ResultConnect:
		m.log.Debugf("modem: connected (%s)", m.number)
		return nil
	case ResultBusy:
		return coreerr.New(coreerr.ConnectionLost, "modem: busy")
	case ResultNoAnswer:
		return coreerr.New(coreerr.Timeout, "modem: no answer")
	case ResultNoDialtone:
		return coreerr.New(coreerr.DeviceLost, "modem: no dial tone")
	default:
		return coreerr.New(coreerr.ConnectionLost, "modem: dial failed: "+string(result))
	}
}

// sendCommand issues cmd and waits for a bare OK/ERROR, used for the
// pre-dial init string.
func (m *Modem) sendCommand(cmd string) error {
	if _, err := m.under.Write([]byte(cmd + "\r")); err != nil {
		return coreerr.Wrap(coreerr.IOError, "modem: write "+cmd, err)
	}
	result, err := m.waitForResult(5 * time.Second)
	if err != nil {
		return err
	}
	if result != ResultOK {
		return coreerr.New(coreerr.Protocol, fmt.Sprintf("modem: %s -> %s", cmd, result))
	}
	return nil
}

// waitForResult reads lines until one starts with a known result code and
// returns that code; RING is returned like any other code (auto-answer is
// out of scope), and blank or unrecognized lines are skipped.
// The deadline is advisory between reads only: Transport has no
// SetReadDeadline, so a single ReadString call that never sees a newline
// can still block past timeout.
func (m *Modem) waitForResult(timeout time.Duration) (ModemResult, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		line, err := m.reader.ReadString('\n')
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			for _, code := range []ModemResult{
				ResultConnect, ResultOK, ResultRing, ResultNoCarrier,
				ResultError, ResultNoDialtone, ResultBusy, ResultNoAnswer,
			} {
				if strings.HasPrefix(trimmed, string(code)) {
					return code, nil
				}
			}
		}
		if err != nil {
			return "", coreerr.Wrap(coreerr.Timeout, "modem: waiting for result", err)
		}
	}
	return "", coreerr.New(coreerr.Timeout, "modem: no result within timeout")
}

func (m *Modem) Read(p []byte) (int, error) {
	if m.reader == nil {
		return 0, coreerr.New(coreerr.ConnectionLost, "modem: not connected")
	}
	return m.reader.Read(p)
}

func (m *Modem) Write(p []byte) (int, error) {
	return m.under.Write(p)
}

func (m *Modem) Close() error {
	return m.under.Close()
}

func (m *Modem) Status() Status {
	return m.under.Status()
}
