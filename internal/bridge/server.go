package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/starline/internal/history"
	"github.com/muurk/starline/internal/keystore"
	"github.com/muurk/starline/internal/logging"
)

// DefaultPath is the websocket endpoint
const DefaultPath = "/edges"

// Config holds the bridge configuration
type Config struct {
	Host      string
	Port      int
	Path      string // Websocket endpoint, DefaultPath if empty
	Advertise bool   // Register the bridge over mDNS
	Instance  string // mDNS instance name, the hostname if empty
}

// Server is the websocket bridge
type Server struct {
	config      *Config
	dict        []keystore.Entry
	store       *history.DB
	upgrader    websocket.Upgrader
	httpServer  *http.Server
	listener    net.Listener
	mdns        *zeroconf.Server
	wg          sync.WaitGroup
	mu          sync.Mutex
	activeConns map[string]*websocket.Conn
}

// New creates a bridge. store may be nil to disable history.
func New(config *Config, dict []keystore.Entry, store *history.DB) *Server {
	if config.Path == "" {
		config.Path = DefaultPath
	}
	return &Server{
		config: config,
		dict:   dict,
		store:  store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Front-ends are not browsers
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		activeConns: make(map[string]*websocket.Conn),
	}
}

// Handler returns the HTTP handler serving the websocket endpoint
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.config.Path, s.handleUpgrade)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %d\n", s.ActiveConnections())
	})
	return mux
}

// Listen binds the listening socket. Start calls it when needed.
func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener
	return nil
}

// Addr returns the bound address, nil before Listen
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start serves until ctx is cancelled, a shutdown signal arrives or the
// listener fails
func (s *Server) Start(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	logging.Info("Starting StarLine bridge",
		zap.String("addr", s.listener.Addr().String()),
		zap.String("path", s.config.Path),
		zap.Int("manufacturers", len(s.dict)),
		zap.Bool("history", s.store != nil),
	)

	if s.config.Advertise {
		port := s.listener.Addr().(*net.TCPAddr).Port
		mdns, err := Advertise(s.config.Instance, port, s.config.Path)
		if err != nil {
			logging.Warn("mDNS registration failed, continuing without it", zap.Error(err))
		} else {
			s.mdns = mdns
		}
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.httpServer.Serve(s.listener)
	}()

	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping bridge...")
	case <-ctx.Done():
		logging.Info("Context cancelled, stopping bridge...")
	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("bridge stopped: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error
		logging.Error("Websocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	remoteAddr := r.RemoteAddr

	s.mu.Lock()
	s.activeConns[remoteAddr] = conn
	s.mu.Unlock()

	s.wg.Add(1)
	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		delete(s.activeConns, remoteAddr)
		s.mu.Unlock()
		logging.LogConnection(remoteAddr, "connection_closed")
		s.wg.Done()
	}()

	logging.LogConnection(remoteAddr, "connection_accepted")

	if err := s.handleConnection(conn, remoteAddr); err != nil {
		logging.Error("Websocket connection error",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
	}
}

// Shutdown stops the bridge and closes every connection
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down bridge...")

	if s.mdns != nil {
		s.mdns.Shutdown()
		s.mdns = nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			logging.Error("Error stopping HTTP server", zap.Error(err))
		}
	} else if s.listener != nil {
		_ = s.listener.Close()
	}

	// Hijacked websocket connections are not closed by http.Server
	s.mu.Lock()
	for addr, conn := range s.activeConns {
		logging.Info("Closing active connection", zap.String("remote_addr", addr))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "bridge shutting down"),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	}

	logging.Sync()
	return nil
}

// ActiveConnections returns the number of connected front-ends
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}
