// Package server implements the artifact server: a loopback-only HTTP preview
// of the regions generated so far.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/net/netutil"

	"git.home.luguber.info/inful/mapexporter/internal/artifact"
	merrors "git.home.luguber.info/inful/mapexporter/internal/errors"
	"git.home.luguber.info/inful/mapexporter/internal/logfields"
	"git.home.luguber.info/inful/mapexporter/internal/metrics"
	"git.home.luguber.info/inful/mapexporter/internal/notify"
	smw "git.home.luguber.info/inful/mapexporter/internal/server/middleware"
)

// Defaults for a Server created without options.
const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 8000
)

// Server serves an artifact store over HTTP. It only reads from the store.
type Server struct {
	host           string
	port           int
	maxConns       int
	liveReload     bool
	metricsHandler http.Handler
	hub            *notify.Hub
	recorder       metrics.Recorder
	logger         *slog.Logger

	store      atomic.Pointer[artifact.Store]
	generation atomic.Uint64
	started    time.Time

	mu          sync.Mutex
	srv         *http.Server
	lr          *LiveReloadHub
	url         string
	unsubscribe func()
	served      chan struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithAddress sets the listen host and port. Port 0 picks a free port.
func WithAddress(host string, port int) Option {
	return func(s *Server) {
		s.host = host
		s.port = port
	}
}

// WithMessages publishes status messages on hub.
func WithMessages(hub *notify.Hub) Option {
	return func(s *Server) {
		if hub != nil {
			s.hub = hub
		}
	}
}

// WithRecorder counts served requests.
func WithRecorder(rec metrics.Recorder) Option {
	return func(s *Server) {
		if rec != nil {
			s.recorder = rec
		}
	}
}

// WithMaxConnections caps concurrent connections. Zero means unlimited.
func WithMaxConnections(n int) Option {
	return func(s *Server) { s.maxConns = n }
}

// WithLiveReload enables the /livereload SSE endpoint.
func WithLiveReload(enabled bool) Option {
	return func(s *Server) { s.liveReload = enabled }
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsHandler = h }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates an inactive server for store.
func New(store *artifact.Store, opts ...Option) *Server {
	s := &Server{
		host:     DefaultHost,
		port:     DefaultPort,
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.hub == nil {
		s.hub = notify.NewHub()
	}
	s.store.Store(store)
	return s
}

// Subscribe registers fn for server status messages.
func (s *Server) Subscribe(fn notify.Handler) func() {
	return s.hub.Subscribe(fn)
}

func (s *Server) addr() string {
	return net.JoinHostPort(s.host, strconv.Itoa(s.port))
}

// Initialize binds the listener and starts serving. Calling it again before
// Dispose fails with an address-in-use error.
func (s *Server) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	addr := s.addr()
	if s.srv != nil {
		return merrors.ServerAddressInUse(addr, errors.New("server already initialized"))
	}

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			s.hub.Publishf(notify.SourceServer, "Port %d is already in use", s.port)
			return merrors.ServerAddressInUse(addr, err)
		}
		return merrors.ServerBindFailure(addr, err)
	}
	if s.maxConns > 0 {
		ln = netutil.LimitListener(ln, s.maxConns)
	}

	if s.liveReload {
		s.lr = NewLiveReloadHub()
		s.lr.Broadcast(s.versionToken())
	}
	s.watchStore(s.store.Load())

	s.srv = &http.Server{
		Handler:           smw.Chain(s.logger, s.hub, s.recorder)(s.routes()),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.url = "http://" + ln.Addr().String()
	s.started = time.Now()
	s.served = make(chan struct{})

	go func(srv *http.Server, done chan struct{}) {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("artifact server error", logfields.Error(err))
		}
	}(s.srv, s.served)

	slog.Info("Artifact server started", logfields.URL(s.url))
	s.hub.Publish(notify.SourceServer, "Server running at "+s.url)
	return nil
}

// Dispose stops the server. It is safe to call repeatedly and before
// Initialize.
func (s *Server) Dispose(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv == nil {
		return nil
	}

	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	if s.lr != nil {
		s.lr.Shutdown()
	}
	err := s.srv.Shutdown(ctx)
	if err != nil {
		_ = s.srv.Close()
		err = fmt.Errorf("artifact server shutdown: %w", err)
	}
	<-s.served

	url := s.url
	s.srv, s.lr, s.url, s.served = nil, nil, "", nil
	slog.Info("Artifact server stopped", logfields.URL(url))
	s.hub.Publish(notify.SourceServer, "Server stopped")
	return err
}

// Active reports whether the server is listening.
func (s *Server) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.srv != nil
}

// URL is the base URL while active, otherwise empty.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

// Store returns the artifact currently served.
func (s *Server) Store() *artifact.Store {
	return s.store.Load()
}

// SetStore points the server at a different artifact and tells live-reload
// clients to refresh.
func (s *Server) SetStore(store *artifact.Store) {
	s.store.Store(store)
	s.generation.Add(1)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv == nil {
		return
	}
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.watchStore(store)
	if s.lr != nil {
		s.lr.Broadcast(s.versionToken())
	}
}

// watchStore forwards store publishes to live-reload clients. Callers hold mu.
func (s *Server) watchStore(store *artifact.Store) {
	s.unsubscribe = nil
	if store == nil || s.lr == nil {
		return
	}
	lr := s.lr
	s.unsubscribe = store.Subscribe(func(artifact.Region) {
		lr.Broadcast(s.versionToken())
	})
}

func (s *Server) versionToken() string {
	var v uint64
	if st := s.store.Load(); st != nil {
		v = st.Version()
	}
	return strconv.FormatUint(s.generation.Load(), 10) + "." + strconv.FormatUint(v, 10)
}
