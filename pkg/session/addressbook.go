package session

import (
	"encoding/json"
	"os"
	"time"

	"github.com/mkrueger/icy-term-go/internal/coreerr"
	"github.com/mkrueger/icy-term-go/pkg/transport"
)

// AddressBookEntry is one saved dial target: everything the reactor needs
// to establish and announce a session without the caller re-specifying it
// each connect. Mirrors the teacher's Info struct (a small JSON-tagged
// record saved next to the session) but scoped to a dial-out BBS entry
// instead of a local process.
type AddressBookEntry struct {
	Name         string            `json:"name"`
	Host         string            `json:"host"`
	Port         int               `json:"port"`
	Protocol     ProtocolKind      `json:"protocol"`
	Username     string            `json:"username,omitempty"`
	Password     string            `json:"password,omitempty"`
	TerminalType string            `json:"terminal_type"`
	Width        int               `json:"width"`
	Height       int               `json:"height"`
	BaudRate     int               `json:"baud_rate"` // 0 = unthrottled
	Music        bool              `json:"music"`
	UseIEMSI     bool              `json:"use_iemsi"`
	Notes        string            `json:"notes,omitempty"`
	Autologin    []string          `json:"autologin,omitempty"` // scripted send steps, in order
	Extra        map[string]string `json:"extra,omitempty"`
}

// ProtocolKind names which transport dialer an AddressBookEntry wants.
type ProtocolKind string

const (
	ProtocolRaw       ProtocolKind = "raw"
	ProtocolTelnet    ProtocolKind = "telnet"
	ProtocolSSH       ProtocolKind = "ssh"
	ProtocolWebSocket ProtocolKind = "websocket"
	ProtocolSerial    ProtocolKind = "serial"
	ProtocolModem     ProtocolKind = "modem"
)

// SaveAddressBook writes entries to path as indented JSON, following the
// teacher Info.Save convention (MarshalIndent, 0644).
func SaveAddressBook(path string, entries []AddressBookEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return coreerr.Wrap(coreerr.IOError, "addressbook: marshal", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return coreerr.Wrap(coreerr.IOError, "addressbook: write", err)
	}
	return nil
}

// LoadAddressBook reads entries previously written by SaveAddressBook.
func LoadAddressBook(path string) ([]AddressBookEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.IOError, "addressbook: read", err)
	}
	var entries []AddressBookEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, coreerr.Wrap(coreerr.InvalidFormat, "addressbook: parse", err)
	}
	return entries, nil
}

// defaultConnectTimeout matches spec's 15s connect / 5s DNS timeout budget,
// collapsed to one dial deadline since Go's net.Dialer already resolves
// and dials under a single context.
const defaultConnectTimeout = 15 * time.Second

// dialerFor resolves the transport.Dialer an entry's Protocol selects.
// Serial, modem, and telnet need extra fields the uniform Dialer signature
// doesn't carry (baud device, phone number, terminal type/window size), so
// they're constructed directly by the reactor instead of going through this
// table.
func dialerFor(kind ProtocolKind) (func(addr string) (transport.Transport, error), bool) {
	switch kind {
	case ProtocolRaw:
		return func(addr string) (transport.Transport, error) { return transport.NewRaw(addr, nil) }, true
	case ProtocolWebSocket:
		return func(addr string) (transport.Transport, error) { return transport.NewWebSocket(addr, nil) }, true
	case ProtocolSSH:
		return func(addr string) (transport.Transport, error) {
			return transport.NewSSH(addr, transport.SSHOptions{}, nil), nil
		}, true
	default:
		return nil, false
	}
}
