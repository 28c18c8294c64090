// Package scripting implements the deterministic automation bridge (C9):
// an imperative API — connect/disconnect, send bytes/keys/credentials,
// wait-for-pattern, buffer cell access — exposed to a gopher-lua host so
// autologin and door-automation scripts can drive a Session the same way
// a human operator would. No pack repo embeds gopher-lua in working code
// (it appears only as an unused go.mod entry in IntuitionEngine), so this
// bridge is built directly against gopher-lua's published embedding API
// (lua.NewState, L.SetGlobal, lua.LGFunction) rather than an adapted
// in-pack sample.
package scripting

import (
	"regexp"
	"strings"
	"time"

	"github.com/mkrueger/icy-term-go/internal/coreerr"
	"github.com/mkrueger/icy-term-go/pkg/buffer"
	"github.com/mkrueger/icy-term-go/pkg/session"
	lua "github.com/yuin/gopher-lua"
)

// CredentialStepDelay is the minimum inter-step delay spec §4.7 requires
// between sending a stored username and password, so a slow BBS prompt
// has time to redraw between the two.
const CredentialStepDelay = 500 * time.Millisecond

// Bridge is the script-visible surface over one Session/Buffer pair. All
// of its methods are called from the session reactor's own goroutine —
// scripts and inbound bytes are serialized through that loop (spec §4.6),
// so a Bridge never needs its own locking around buf/sess.
type Bridge struct {
	L    *lua.LState
	sess *session.Session
	buf  *buffer.Buffer
	send func([]byte) error
}

// NewBridge constructs a Bridge over sess/buf and registers every host
// function as a Lua global. send is how the bridge writes outbound bytes
// (normally sess's underlying transport, indirected so tests can capture
// writes without a real connection).
func NewBridge(sess *session.Session, buf *buffer.Buffer, send func([]byte) error) *Bridge {
	b := &Bridge{L: lua.NewState(), sess: sess, buf: buf, send: send}
	b.register()
	return b
}

// Close releases the underlying Lua state.
func (b *Bridge) Close() { b.L.Close() }

// Run compiles and executes source to completion.
func (b *Bridge) Run(source string) error {
	if err := b.L.DoString(source); err != nil {
		return coreerr.Wrap(coreerr.ScriptRuntime, "scripting: script failed", err)
	}
	return nil
}

func (b *Bridge) register() {
	fns := map[string]lua.LGFunction{
		"send_bytes":       b.luaSendBytes,
		"send_key":         b.luaSendKey,
		"send_credentials": b.luaSendCredentials,
		"wait_for":         b.luaWaitFor,
		"screen_text":      b.luaScreenText,
		"sleep":            b.luaSleep,
		"get_char":         b.luaGetChar,
		"set_char":         b.luaSetChar,
		"clear":            b.luaClear,
		"disconnect":       b.luaDisconnect,
	}
	for name, fn := range fns {
		b.L.SetGlobal(name, b.L.NewFunction(fn))
	}
}

func (b *Bridge) luaSendBytes(L *lua.LState) int {
	data := L.CheckString(1)
	if err := b.send([]byte(data)); err != nil {
		L.RaiseError("send_bytes: %v", err)
	}
	return 0
}

// luaSendKey maps a named key (per spec §4.7 "mapped per active
// emulation") to the byte sequence the active emulation's terminal type
// expects and sends it. ANSI/VT100-style CSI sequences are used here;
// callers targeting PETSCII/ATASCII keyboards remap via their own table
// before calling send_bytes directly, since this bridge has no notion of
// which parser is active beyond the Buffer it was built with.
func (b *Bridge) luaSendKey(L *lua.LState) int {
	name := L.CheckString(1)
	seq, ok := namedKeySequences[strings.ToUpper(name)]
	if !ok {
		L.RaiseError("send_key: unknown key %q", name)
		return 0
	}
	if err := b.send(seq); err != nil {
		L.RaiseError("send_key: %v", err)
	}
	return 0
}

// luaSendCredentials sends username, password, or both with
// CredentialStepDelay between steps, per spec §4.7.
func (b *Bridge) luaSendCredentials(L *lua.LState) int {
	kind := L.CheckString(1)
	entry := b.sess.Entry
	switch kind {
	case "username":
		b.send([]byte(entry.Username + "\r"))
	case "password":
		b.send([]byte(entry.Password + "\r"))
	case "both":
		b.send([]byte(entry.Username + "\r"))
		time.Sleep(CredentialStepDelay)
		b.send([]byte(entry.Password + "\r"))
	default:
		L.RaiseError("send_credentials: kind must be username, password, or both")
	}
	return 0
}

// luaWaitFor polls the visible screen text against a Perl-compatible
// pattern (Go's RE2-based regexp is the closest stdlib equivalent; no
// pack or ecosystem library offers backtracking PCRE without cgo, so
// regexp is used directly rather than swapped for a third-party engine)
// until it matches or timeoutMs elapses, returning the matched substring
// or the empty string as spec §4.7's timeout sentinel.
func (b *Bridge) luaWaitFor(L *lua.LState) int {
	pattern := L.CheckString(1)
	timeoutMs := L.OptInt(2, 5000)
	re, err := regexp.Compile(pattern)
	if err != nil {
		L.RaiseError("wait_for: invalid pattern: %v", err)
		return 0
	}
	deadline := timeNow().Add(time.Duration(timeoutMs) * time.Millisecond)
	for {
		text := ScreenText(b.buf)
		if m := re.FindString(text); m != "" {
			L.Push(lua.LString(m))
			return 1
		}
		if timeNow().After(deadline) {
			L.Push(lua.LString(""))
			return 1
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func (b *Bridge) luaScreenText(L *lua.LState) int {
	L.Push(lua.LString(ScreenText(b.buf)))
	return 1
}

func (b *Bridge) luaSleep(L *lua.LState) int {
	ms := L.CheckInt(1)
	time.Sleep(time.Duration(ms) * time.Millisecond)
	return 0
}

func (b *Bridge) luaGetChar(L *lua.LState) int {
	x, y := L.CheckInt(1), L.CheckInt(2)
	cell := b.buf.Base().Get(x, y)
	L.Push(lua.LString(string(cell.Ch)))
	return 1
}

func (b *Bridge) luaSetChar(L *lua.LState) int {
	x, y := L.CheckInt(1), L.CheckInt(2)
	ch := L.CheckString(3)
	r := ' '
	for _, c := range ch {
		r = c
		break
	}
	l := b.buf.Base()
	cell := l.Get(x, y)
	cell.Ch = r
	b.buf.Set(l, x, y, cell)
	return 0
}

func (b *Bridge) luaClear(L *lua.LState) int {
	l := b.buf.Base()
	b.buf.Erase(l, buffer.Rect{X: 0, Y: 0, W: l.Width, H: l.Height}, false)
	return 0
}

func (b *Bridge) luaDisconnect(L *lua.LState) int {
	b.sess.Cancel()
	return 0
}

// ScreenText joins the base layer's visible rows into one newline-
// separated string, trimming trailing spaces per row — the text surface
// wait_for and screen_text both operate on. A row autowrap broke (rather
// than an explicit newline) is rejoined with its predecessor instead of
// gaining an inserted line break, so the exported text round-trips the
// way the original unwrapped line read.
func ScreenText(buf *buffer.Buffer) string {
	l := buf.Base()
	var sb strings.Builder
	for y := 0; y < l.Height; y++ {
		var row strings.Builder
		for x := 0; x < l.Width; x++ {
			row.WriteRune(l.Get(x, y).Ch)
		}
		sb.WriteString(strings.TrimRight(row.String(), " "))
		if y < l.Height-1 && !l.IsSoftWrapped(y+1) {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

var timeNow = time.Now
