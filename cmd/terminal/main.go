// Command terminal is the interactive BBS terminal client (§6): it dials
// a remote host, renders the resulting character-cell buffer with
// pkg/render, and optionally drives the session with a Lua automation
// script instead of (or before) a human at the keyboard.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mkrueger/icy-term-go/internal/coreerr"
	"github.com/mkrueger/icy-term-go/internal/logx"
	"github.com/mkrueger/icy-term-go/pkg/buffer"
	"github.com/mkrueger/icy-term-go/pkg/config"
	"github.com/mkrueger/icy-term-go/pkg/emulation"
	"github.com/mkrueger/icy-term-go/pkg/render"
	"github.com/mkrueger/icy-term-go/pkg/scripting"
	"github.com/mkrueger/icy-term-go/pkg/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var (
	runScript  string
	mcpPort    int
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "terminal [url] [host ...]",
	Short: "icy-term-go interactive BBS terminal client",
	Long: `terminal dials a BBS over telnet, SSH, or a raw socket and renders the
session with a GPU-backed ANSI/Avatar/PETSCII/ATASCII/Viewdata emulator.`,
	Args: cobra.ArbitraryArgs,
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVar(&runScript, "run", "", "run a Lua automation script instead of attaching a keyboard")
	rootCmd.Flags().StringVar(&configPath, "config", defaultConfigPath(), "settings file holding terminal/address-book defaults")
	// --mcp-port is accepted for CLI-contract compatibility; the MCP/
	// JSON-RPC automation surface itself is an external collaborator per
	// spec.md's Non-goals and is not implemented by this module.
	rootCmd.Flags().IntVar(&mcpPort, "mcp-port", 0, "reserved: external MCP automation surface port (not implemented here)")
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.icy-term/config.yaml"
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "terminal:", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a run() failure to §6's CLI exit-code contract: 2
// usage error, 3 load error (dial/connect failed), 4 script error.
func exitCodeFor(err error) int {
	switch {
	case coreerr.Is(err, coreerr.InvalidFormat):
		return 2
	case coreerr.Is(err, coreerr.ScriptCompile), coreerr.Is(err, coreerr.ScriptRuntime):
		return 4
	default:
		return 3
	}
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return coreerr.New(coreerr.InvalidFormat, "usage: terminal <url> [host ...]")
	}

	settings := config.LoadConfig(configPath)
	entry, err := parseDialURL(args[0], settings.Terminal)
	if err != nil {
		return err
	}

	zlog, _ := zap.NewProduction()
	log := logx.New(zlog)

	if runScript == "" && !term.IsTerminal(int(os.Stdin.Fd())) {
		log.Warnf("terminal: stdin is not a tty and --run was not given; the render window still opens but no keyboard will reach it")
	}

	buf := buffer.New(entry.Width, entry.Height, buffer.TypeAnsi)
	parser := parserFor(entry.TerminalType, buf)

	sess := session.NewSession(entry, parser, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := sess.Run(ctx); err != nil {
			log.Errorf("terminal: session ended: %v", err)
		}
	}()

	if runScript != "" {
		source, err := os.ReadFile(runScript)
		if err != nil {
			return fmt.Errorf("read script: %w", err)
		}
		bridge := scripting.NewBridge(sess, buf, sess.Write)
		defer bridge.Close()
		if err := bridge.Run(string(source)); err != nil {
			return err
		}
		sess.Cancel()
		<-sess.Done()
		return nil
	}

	engine := render.NewEngine(buf, "terminal — "+entry.Host)
	return engine.Run()
}

// parserFor selects the emulation.Parser for terminalType, defaulting to
// ANSI/VT100 when the address book entry names an unrecognized or empty
// type.
func parserFor(terminalType string, buf *buffer.Buffer) emulation.Parser {
	switch terminalType {
	case "avatar":
		return emulation.NewAvatar(buf)
	case "petscii":
		return emulation.NewPetscii(buf)
	case "atascii":
		return emulation.NewAtascii(buf)
	case "viewdata":
		return emulation.NewViewdata(buf)
	default:
		return emulation.NewAnsi(buf)
	}
}
