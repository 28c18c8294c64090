// Command editor is the ANSI-art editor CLI (§6): opening a file locally
// renders it with pkg/render for interactive editing, while `editor host`
// starts a Moebius-compatible collaboration server over it.
package main

import (
	"fmt"
	"os"

	"github.com/mkrueger/icy-term-go/internal/coreerr"
	"github.com/mkrueger/icy-term-go/internal/logx"
	"github.com/mkrueger/icy-term-go/pkg/autosave"
	"github.com/mkrueger/icy-term-go/pkg/fileformat"
	"github.com/mkrueger/icy-term-go/pkg/render"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "editor <file>",
	Short: "icy-term-go ANSI-art editor",
	Args:  cobra.ArbitraryArgs,
	RunE:  runEditLocal,
}

func main() {
	rootCmd.AddCommand(hostCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "editor:", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a command failure to §6's CLI exit-code contract: 2
// usage error, 3 load error.
func exitCodeFor(err error) int {
	if coreerr.Is(err, coreerr.InvalidFormat) {
		return 2
	}
	return 3
}

func runEditLocal(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return coreerr.New(coreerr.InvalidFormat, "usage: editor <file>")
	}
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return coreerr.Wrap(coreerr.IOError, "editor: read file", err)
	}
	buf, err := fileformat.Load(data, extOf(path))
	if err != nil {
		return err
	}
	zlog, _ := zap.NewProduction()
	log := logx.New(zlog)
	aw := autosave.New(buf, path, autosaveFormat(path), 0, log)
	defer aw.Close()
	stop := make(chan struct{})
	go aw.Run(stop)
	defer close(stop)

	engine := render.NewEngine(buf, "editor — "+path)
	return engine.Run()
}

// autosaveFormat picks the sidecar's on-disk dialect: the source's own
// format when its extension names one of the formats listed below, and
// icy draw's layer/sauce-carrying format for anything else (plain ASCII
// included). A source in a single-layer format such as ANSI therefore
// autosaves in that format and keeps only what that format can carry.
func autosaveFormat(path string) fileformat.Format {
	switch fileformat.Format(extOf(path)) {
	case fileformat.FormatAnsi, fileformat.FormatXBin, fileformat.FormatBin,
		fileformat.FormatAdf, fileformat.FormatIceDraw, fileformat.FormatTundra,
		fileformat.FormatPCBoard, fileformat.FormatAvatar, fileformat.FormatIcyDraw:
		return fileformat.Format(extOf(path))
	default:
		return fileformat.FormatIcyDraw
	}
}

func extOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i+1:]
		}
		if path[i] == '/' {
			break
		}
	}
	return ""
}
