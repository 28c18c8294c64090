package collab

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/caddyserver/certmagic"
	"github.com/gorilla/mux"
	"github.com/mkrueger/icy-term-go/internal/coreerr"
	"github.com/mkrueger/icy-term-go/internal/logx"
	"github.com/mkrueger/icy-term-go/pkg/buffer"
	"github.com/mkrueger/icy-term-go/pkg/fileformat"
	"github.com/mkrueger/icy-term-go/pkg/ngrok"
)

// Config holds the settings `editor host` (§6) exposes on the command
// line, the collaboration-server analogue of the teacher's TLSConfig plus
// its own backup/capacity knobs.
type Config struct {
	Bind          string
	Port          int
	Password      string
	BackupFolder  string
	BackupInterval time.Duration
	MaxUsers      int

	TLSEnabled    bool
	TLSDomain     string
	TLSSelfSigned bool
	TLSCertPath   string
	TLSKeyPath    string

	NgrokEnabled   bool
	NgrokAuthToken string
}

// Server hosts one or more Rooms over HTTP/WebSocket, mirroring the
// teacher's pkg/api.Server shape (router + TLS wrapper + ngrok service)
// generalized from PTY sessions to collaboration rooms.
type Server struct {
	cfg Config
	log *logx.Logger

	mu    sync.RWMutex
	rooms map[string]*Room

	tunnel *ngrok.Service

	shutdown chan struct{}
}

// NewServer constructs a Server. The caller opens (or creates) the
// initial canvas Buffer and registers it as a room before calling Start.
func NewServer(cfg Config, log *logx.Logger) *Server {
	return &Server{
		cfg:      cfg,
		log:      log,
		rooms:    make(map[string]*Room),
		tunnel:   ngrok.NewService(),
		shutdown: make(chan struct{}),
	}
}

// AddRoom creates a Room over buf and registers it under name, replacing
// any room already registered under that name.
func (s *Server) AddRoom(name string, buf *buffer.Buffer, password string) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := NewRoomWithCapacity(name, password, buf, s.log, s.cfg.MaxUsers)
	s.rooms[name] = r
	return r
}

func (s *Server) room(name string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[name]
	return r, ok
}

func (s *Server) handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/ws/{room}", s.handleWS).Methods("GET")
	r.HandleFunc("/rooms", s.handleListRooms).Methods("GET")
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	return r
}

func (s *Server) handleWS(w http.ResponseWriter, req *http.Request) {
	name := mux.Vars(req)["room"]
	room, ok := s.room(name)
	if !ok {
		http.NotFound(w, req)
		return
	}
	ServeWS(room, s.log, w, req)
}

func (s *Server) handleListRooms(w http.ResponseWriter, req *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.rooms))
	for name := range s.rooms {
		names = append(names, name)
	}
	json.NewEncoder(w).Encode(names)
}

func (s *Server) handleHealth(w http.ResponseWriter, req *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// Start runs the HTTP(S) server and, if configured, the ngrok tunnel and
// backup loop, blocking until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := s.cfg.Bind
	if addr == "" {
		addr = "0.0.0.0"
	}

	if s.cfg.BackupFolder != "" {
		go s.backupLoop(ctx)
	}

	httpSrv := &http.Server{
		Addr:         addrWithPort(addr, s.cfg.Port),
		Handler:      s.handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		if s.cfg.TLSEnabled {
			tlsConf, err := s.setupTLS()
			if err != nil {
				errc <- err
				return
			}
			httpSrv.TLSConfig = tlsConf
			errc <- httpSrv.ListenAndServeTLS("", "")
			return
		}
		errc <- httpSrv.ListenAndServe()
	}()

	if s.cfg.NgrokEnabled {
		if err := s.tunnel.Start(s.cfg.NgrokAuthToken, s.cfg.Port); err != nil && s.log != nil {
			s.log.Errorf("collab: ngrok tunnel failed to start: %v", err)
		}
	}

	select {
	case <-ctx.Done():
		if s.tunnel.IsRunning() {
			s.tunnel.Cleanup()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errc:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// setupTLS mirrors the teacher's TLSServer.setupTLS: self-signed when
// explicitly asked for, a loaded keypair when given paths, and CertMagic
// automatic ACME when a public domain is configured — the one case
// pkg/transport never needs, since every Transport there dials out
// rather than listens.
func (s *Server) setupTLS() (*tls.Config, error) {
	switch {
	case s.cfg.TLSCertPath != "" && s.cfg.TLSKeyPath != "":
		cert, err := tls.LoadX509KeyPair(s.cfg.TLSCertPath, s.cfg.TLSKeyPath)
		if err != nil {
			return nil, coreerr.Wrap(coreerr.IOError, "collab: load TLS keypair", err)
		}
		return &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}, nil
	case s.cfg.TLSDomain != "":
		certmagic.DefaultACME.Agreed = true
		certmagic.DefaultACME.Email = "admin@" + s.cfg.TLSDomain
		certmagic.Default.Storage = &certmagic.FileStorage{
			Path: filepath.Join(s.cfg.BackupFolder, "certs"),
		}
		if err := certmagic.ManageSync(context.Background(), []string{s.cfg.TLSDomain}); err != nil {
			return nil, coreerr.Wrap(coreerr.IOError, "collab: obtain certificate", err)
		}
		return certmagic.TLS([]string{s.cfg.TLSDomain})
	default:
		return selfSignedTLSConfig()
	}
}

// backupLoop periodically saves every active room's buffer to
// cfg.BackupFolder as an .icy file, skipping rooms with no connected
// participants — the collaboration-server analogue of the teacher's
// fsnotify-driven stream monitoring in pkg/termsocket.Manager, inverted
// from "watch for writes" to "periodically persist accumulated writes".
func (s *Server) backupLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.backupInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.backupAll()
		}
	}
}

func (s *Server) backupAll() {
	s.mu.RLock()
	rooms := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, r)
	}
	s.mu.RUnlock()

	for _, r := range rooms {
		if r.ParticipantCount() == 0 {
			continue
		}
		data, err := fileformat.Save(r.Buffer(), fileformat.SaveOptions{Format: fileformat.FormatIcyDraw})
		if err != nil {
			if s.log != nil {
				s.log.Errorf("collab: backup save failed for room %s: %v", r.Name, err)
			}
			continue
		}
		path := filepath.Join(s.cfg.BackupFolder, r.Name+".icy")
		if err := writeFileAtomic(path, data); err != nil && s.log != nil {
			s.log.Errorf("collab: backup write failed for room %s: %v", r.Name, err)
		}
	}
}

func (c Config) backupInterval() time.Duration {
	if c.BackupInterval > 0 {
		return c.BackupInterval
	}
	return 5 * time.Minute
}
