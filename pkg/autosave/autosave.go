// Package autosave implements the editor's crash-recovery write-behind:
// periodically persisting an open document's Buffer to a hash-named
// sidecar file, write-to-temp-then-rename so a crash mid-write can never
// leave a half-written autosave behind, and backing off a save when
// fsnotify reports the source file changed underneath the editor (an
// external editor or a second `editor host` participant writing directly
// to disk) rather than silently clobbering it. Grounded on
// pkg/termsocket.Manager's fsnotify-watcher-with-polling-fallback shape,
// redirected from tailing a PTY's stream file to guarding a document's
// save target.
package autosave

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mkrueger/icy-term-go/internal/coreerr"
	"github.com/mkrueger/icy-term-go/internal/logx"
	"github.com/mkrueger/icy-term-go/pkg/buffer"
	"github.com/mkrueger/icy-term-go/pkg/fileformat"
)

// Watcher periodically saves a Buffer's contents to an autosave sidecar
// next to sourcePath, skipping a cycle (and logging) whenever the source
// file was modified externally since the watcher started, or whenever the
// save itself fails — failures retry on the next interval rather than
// aborting, per "Autosave write failures log and retry".
type Watcher struct {
	buf        *buffer.Buffer
	sourcePath string
	format     fileformat.Format
	interval   time.Duration
	log        *logx.Logger

	fw          *fsnotify.Watcher
	externallyModified bool
}

// New builds a Watcher for buf, saving alongside sourcePath every interval
// in format. A zero interval defaults to 30s.
func New(buf *buffer.Buffer, sourcePath string, format fileformat.Format, interval time.Duration, log *logx.Logger) *Watcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	w := &Watcher{buf: buf, sourcePath: sourcePath, format: format, interval: interval, log: log}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		if log != nil {
			log.Warnf("autosave: file watcher unavailable, saves proceed without external-edit detection: %v", err)
		}
		return w
	}
	if err := fw.Add(filepath.Dir(sourcePath)); err != nil {
		fw.Close()
		if log != nil {
			log.Warnf("autosave: watch %s: %v", filepath.Dir(sourcePath), err)
		}
		return w
	}
	w.fw = fw
	go w.watchExternalEdits()
	return w
}

func (w *Watcher) watchExternalEdits() {
	base := filepath.Base(w.sourcePath)
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) == base && (ev.Op&(fsnotify.Write|fsnotify.Rename) != 0) {
				w.externallyModified = true
				if w.log != nil {
					w.log.Warnf("autosave: %s changed on disk, pausing autosave for the rest of this session", w.sourcePath)
				}
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			if w.log != nil {
				w.log.Warnf("autosave: watcher error: %v", err)
			}
		}
	}
}

// Run saves buf every interval until stop is closed, blocking the
// caller's goroutine.
func (w *Watcher) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			w.saveOnce()
		}
	}
}

func (w *Watcher) saveOnce() {
	if w.externallyModified {
		return
	}
	data, err := fileformat.Save(w.buf, fileformat.SaveOptions{Format: w.format, IceMode: w.buf.IceMode})
	if err != nil {
		if w.log != nil {
			w.log.Warnf("autosave: encode failed, retrying next interval: %v", err)
		}
		return
	}
	path := AutosavePath(w.sourcePath)
	if err := writeAtomic(path, data); err != nil {
		if w.log != nil {
			w.log.Warnf("autosave: write failed, retrying next interval: %v", err)
		}
	}
}

// Close stops the background watcher goroutine, if one was started.
func (w *Watcher) Close() {
	if w.fw != nil {
		w.fw.Close()
	}
}

// AutosavePath derives the sidecar path for sourcePath: the source's
// directory, a sha256 hash of its absolute path (so two open documents
// named the same in different directories never collide), and a `.autosave`
// suffix.
func AutosavePath(sourcePath string) string {
	abs, err := filepath.Abs(sourcePath)
	if err != nil {
		abs = sourcePath
	}
	sum := sha256.Sum256([]byte(abs))
	return filepath.Join(filepath.Dir(sourcePath), hex.EncodeToString(sum[:])+".autosave")
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return coreerr.Wrap(coreerr.IOError, "autosave: write temp file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return coreerr.Wrap(coreerr.IOError, "autosave: rename temp file", err)
	}
	return nil
}
