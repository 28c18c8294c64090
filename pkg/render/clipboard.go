package render

import (
	"github.com/mkrueger/icy-term-go/internal/coreerr"
	"golang.design/x/clipboard"
)

// ClipboardHook is the copy/paste seam a host application (an editor
// keybinding, a scripting.Bridge host function) can wire up. Engine never
// calls it itself — spec.md excludes clipboard integration from the core
// module as an external collaborator, so this stays a hook nobody in
// pkg/render or pkg/scripting invokes on its own.
type ClipboardHook struct {
	Copy  func(data []byte) error
	Paste func() ([]byte, error)
}

var clipboardInitErr error
var clipboardInitOnce bool

// SystemClipboard returns a ClipboardHook backed by the OS clipboard,
// lazily initializing golang.design/x/clipboard on first use. Returns an
// error if no clipboard is available (e.g. headless Linux with no X11/
// Wayland display) — the caller decides whether that's fatal.
func SystemClipboard() (ClipboardHook, error) {
	if !clipboardInitOnce {
		clipboardInitErr = clipboard.Init()
		clipboardInitOnce = true
	}
	if clipboardInitErr != nil {
		return ClipboardHook{}, coreerr.Wrap(coreerr.IOError, "render: clipboard unavailable", clipboardInitErr)
	}
	return ClipboardHook{
		Copy: func(data []byte) error {
			clipboard.Write(clipboard.FmtText, data)
			return nil
		},
		Paste: func() ([]byte, error) {
			return clipboard.Read(clipboard.FmtText), nil
		},
	}, nil
}
