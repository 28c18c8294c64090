package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mkrueger/icy-term-go/internal/coreerr"
	"github.com/mkrueger/icy-term-go/internal/logx"
	"github.com/mkrueger/icy-term-go/pkg/collab"
	"github.com/mkrueger/icy-term-go/pkg/config"
	"github.com/mkrueger/icy-term-go/pkg/fileformat"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	hostConfigPath   string
	hostBind         string
	hostPort         int
	hostPassword     string
	hostBackupFolder string
	hostIntervalMin  int
	hostMaxUsers     int
)

var hostCmd = &cobra.Command{
	Use:   "host <file>",
	Short: "start a collaborative editing server over a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runHost,
}

func init() {
	hostCmd.Flags().StringVar(&hostConfigPath, "config", defaultConfigPath(), "settings file to read defaults from")
	hostCmd.Flags().StringVar(&hostBind, "bind", "0.0.0.0", "address to bind the collaboration server to")
	hostCmd.Flags().IntVar(&hostPort, "port", 8000, "collaboration server port")
	hostCmd.Flags().StringVar(&hostPassword, "password", "", "room password (empty disables the check)")
	hostCmd.Flags().StringVar(&hostBackupFolder, "backup-folder", "", "directory to periodically save the canvas into (disabled if empty)")
	hostCmd.Flags().IntVar(&hostIntervalMin, "interval", 5, "backup interval in minutes")
	hostCmd.Flags().IntVar(&hostMaxUsers, "max-users", 0, "per-room participant cap (0 = package default)")
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".icy-term", "config.yaml")
}

func runHost(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return coreerr.Wrap(coreerr.IOError, "editor host: read file", err)
	}
	buf, err := fileformat.Load(data, extOf(path))
	if err != nil {
		return err
	}

	zlog, _ := zap.NewProduction()
	log := logx.New(zlog)

	settings := config.LoadConfig(hostConfigPath)
	settings.MergeHostFlags(cmd.Flags())

	cfg := collab.Config{
		Bind:           settings.Host.Bind,
		Port:           settings.Host.Port,
		Password:       hostPassword,
		BackupFolder:   settings.Host.BackupFolder,
		BackupInterval: time.Duration(settings.Host.BackupInterval) * time.Minute,
		MaxUsers:       settings.Host.MaxUsers,
		NgrokEnabled:   settings.Host.NgrokEnabled,
		NgrokAuthToken: settings.Host.NgrokAuthToken,
	}
	srv := collab.NewServer(cfg, log)
	roomName := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	srv.AddRoom(roomName, buf, hostPassword)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infof("editor host: serving room %q on %s:%d", roomName, settings.Host.Bind, settings.Host.Port)
	return srv.Start(ctx)
}
