package main

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/mkrueger/icy-term-go/internal/coreerr"
	"github.com/mkrueger/icy-term-go/pkg/config"
	"github.com/mkrueger/icy-term-go/pkg/session"
)

// defaultPorts gives each scheme its conventional BBS port, per §6's CLI
// contract ("default port per scheme: telnet 23, ssh 22, raw 23").
var defaultPorts = map[session.ProtocolKind]int{
	session.ProtocolTelnet: 23,
	session.ProtocolSSH:    22,
	session.ProtocolRaw:    23,
}

// parseDialURL parses the `[(telnet|ssh|raw)://][user[:pass]@]host[:port]`
// form §6 names into an AddressBookEntry, defaulting protocol to telnet
// and filling the terminal geometry/emulation/baud/IEMSI fields from the
// user's saved Terminal defaults when the URL itself carries no opinion
// on them.
func parseDialURL(raw string, defaults config.Terminal) (session.AddressBookEntry, error) {
	entry := session.AddressBookEntry{
		Protocol:     session.ProtocolTelnet,
		TerminalType: defaults.Emulation,
		Width:        defaults.Width,
		Height:       defaults.Height,
		BaudRate:     defaults.BaudRate,
		UseIEMSI:     defaults.UseIEMSI,
	}

	if !strings.Contains(raw, "://") {
		raw = "telnet://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return entry, coreerr.Wrap(coreerr.InvalidFormat, "terminal: invalid dial URL", err)
	}

	switch u.Scheme {
	case "telnet", "ssh", "raw":
		entry.Protocol = session.ProtocolKind(u.Scheme)
	default:
		return entry, coreerr.Newf(coreerr.InvalidFormat, "terminal: unsupported scheme", u.Scheme)
	}

	entry.Host = u.Hostname()
	if u.User != nil {
		entry.Username = u.User.Username()
		entry.Password, _ = u.User.Password()
	}

	if portStr := u.Port(); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return entry, coreerr.Wrap(coreerr.InvalidFormat, "terminal: invalid port", err)
		}
		entry.Port = p
	} else {
		entry.Port = defaultPorts[entry.Protocol]
	}

	entry.Name = entry.Host
	return entry, nil
}
