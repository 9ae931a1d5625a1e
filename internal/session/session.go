// Package session hosts one interactive generation run. A Session owns the
// pipeline, the artifact, the artifact server handle, export dispatch and the
// export cooldown, and exposes a single Tick for the host loop.
package session

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/mapexporter/internal/artifact"
	"git.home.luguber.info/inful/mapexporter/internal/config"
	"git.home.luguber.info/inful/mapexporter/internal/cooldown"
	merrors "git.home.luguber.info/inful/mapexporter/internal/errors"
	"git.home.luguber.info/inful/mapexporter/internal/eventstore"
	"git.home.luguber.info/inful/mapexporter/internal/exporter"
	"git.home.luguber.info/inful/mapexporter/internal/generation"
	"git.home.luguber.info/inful/mapexporter/internal/logfields"
	"git.home.luguber.info/inful/mapexporter/internal/mapgen"
	"git.home.luguber.info/inful/mapexporter/internal/metrics"
	"git.home.luguber.info/inful/mapexporter/internal/notify"
	"git.home.luguber.info/inful/mapexporter/internal/server"
)

// MsgNoRegions is shown when the server is requested before any region exists.
const MsgNoRegions = "No regions ready yet!"

// ExportDrainTimeout bounds how long Close waits for running exports.
const ExportDrainTimeout = 10 * time.Second

// ErrServerNotRunning rejects server exports while the server is stopped.
var ErrServerNotRunning = errors.New("artifact server is not running")

// Snapshot is the host-visible state after one Tick.
type Snapshot struct {
	SessionID    string
	Stage        string
	Progress     float64
	Finished     bool
	Err          error
	Regions      int
	ServerActive bool
	ServerURL    string
	ExportBusy   bool
	ExportReady  bool
	Cooldown     time.Duration
	LastExport   *exporter.Result
	Messages     []notify.Message
}

// Session is driven from a single host goroutine. Only export jobs run
// elsewhere; their results are collected by Tick.
type Session struct {
	id       string
	cfg      *config.Config
	source   fs.FS
	now      func() time.Time
	hub      *notify.Hub
	queue    *notify.Queue
	recorder metrics.Recorder
	registry *prom.Registry
	messages eventstore.Store
	nats     *notify.NATSForwarder

	store    *artifact.Store
	pipeline *generation.Pipeline
	exporter *exporter.Exporter
	server   *server.Server
	gate     *cooldown.Gate

	pending    []<-chan exporter.Result
	lastExport *exporter.Result
}

// Option configures a Session.
type Option func(*Session)

// WithSource reads region files from fsys instead of the configured directory.
func WithSource(fsys fs.FS) Option {
	return func(s *Session) { s.source = fsys }
}

// WithClock overrides the time source of the cooldown gate and the pipeline.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMessageStore persists status messages into store. It takes precedence
// over messages.store_path.
func WithMessageStore(store eventstore.Store) Option {
	return func(s *Session) { s.messages = store }
}

// New builds a session from cfg. Generation starts with the first Tick.
func New(cfg *config.Config, opts ...Option) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Session{
		id:       uuid.NewString(),
		cfg:      cfg,
		now:      time.Now,
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.source == nil {
		s.source = os.DirFS(cfg.Source.Directory)
	}

	if s.messages == nil && cfg.Messages.StorePath != "" {
		store, err := eventstore.NewSQLiteStore(cfg.Messages.StorePath)
		if err != nil {
			return nil, err
		}
		s.messages = store
	}
	var hubOpts []notify.HubOption
	if s.messages != nil {
		hubOpts = append(hubOpts, notify.WithStore(s.messages, s.id))
	}
	s.hub = notify.NewHub(hubOpts...)
	s.queue = notify.NewQueue(cfg.Messages.Buffer)
	s.hub.Subscribe(s.queue.Push)

	if cfg.Messages.NATSURL != "" {
		fwd, err := notify.NewNATSForwarder(s.hub, cfg.Messages.NATSURL, cfg.Messages.NATSSubject)
		if err != nil {
			slog.Warn("Status message forwarding disabled", logfields.Error(err))
		} else {
			s.nats = fwd
		}
	}

	srvOpts := []server.Option{
		server.WithAddress(cfg.Server.Host, cfg.Server.Port),
		server.WithMessages(s.hub),
		server.WithMaxConnections(cfg.Server.MaxConnections),
		server.WithLiveReload(cfg.Server.LiveReload),
	}
	if cfg.Server.Metrics {
		s.registry = prom.NewRegistry()
		s.recorder = metrics.NewPrometheusRecorder(s.registry)
		srvOpts = append(srvOpts, server.WithMetricsHandler(metrics.HTTPHandler(s.registry)))
	}
	srvOpts = append(srvOpts, server.WithRecorder(s.recorder))

	s.gate = cooldown.New(cfg.Export.Cooldown, cooldown.WithClock(s.now))
	if err := s.build(); err != nil {
		_ = s.closeMessages()
		return nil, err
	}
	s.server = server.New(s.store, srvOpts...)

	slog.Info("Session created", logfields.SessionID(s.id), logfields.Path(cfg.Source.Directory))
	return s, nil
}

// build creates a fresh artifact, pipeline and exporter.
func (s *Session) build() error {
	store := artifact.NewStore()
	gen := mapgen.New(store, mapgen.Options{
		Source:          s.source,
		Pattern:         s.cfg.Source.Pattern,
		RoomsPerAdvance: s.cfg.Generation.RoomsPerAdvance,
		StepBudget:      s.cfg.Generation.StepBudget,
		Clock:           s.now,
	})
	pipeline, err := gen.Pipeline(s.cfg.Generation.StageWeights,
		generation.WithMessages(s.hub),
		generation.WithRecorder(s.recorder),
		generation.WithClock(s.now),
	)
	if err != nil {
		return err
	}
	s.store = store
	s.pipeline = pipeline
	s.exporter = exporter.New(store,
		exporter.WithServerURL(s.serverURL),
		exporter.WithConcurrency(s.cfg.Export.Concurrency),
		exporter.WithRecorder(s.recorder),
		exporter.WithMessages(s.hub),
	)
	return nil
}

func (s *Session) serverURL() string {
	if s.server == nil {
		return ""
	}
	return s.server.URL()
}

// ID identifies the session in logs and the message store.
func (s *Session) ID() string { return s.id }

// Config is the configuration the session was built from.
func (s *Session) Config() *config.Config { return s.cfg }

// Store is the current artifact.
func (s *Session) Store() *artifact.Store { return s.store }

// Pipeline is the current generation pipeline.
func (s *Session) Pipeline() *generation.Pipeline { return s.pipeline }

// Server is the artifact server handle.
func (s *Session) Server() *server.Server { return s.server }

// Exporter is the exporter bound to the current artifact.
func (s *Session) Exporter() *exporter.Exporter { return s.exporter }

// Gate is the export cooldown gate.
func (s *Session) Gate() *cooldown.Gate { return s.gate }

// Subscribe registers fn for every status message of the session.
func (s *Session) Subscribe(fn notify.Handler) func() { return s.hub.Subscribe(fn) }

// Tick advances generation once, collects finished exports and drains queued
// messages.
func (s *Session) Tick(ctx context.Context) Snapshot {
	if !s.pipeline.Finished() && s.pipeline.Err() == nil {
		if _, err := s.pipeline.Advance(ctx); err != nil && s.pipeline.Err() == nil {
			slog.Debug("Advance interrupted", logfields.Error(err))
		}
	}
	s.collectExports()
	return s.snapshot(s.queue.Drain())
}

func (s *Session) collectExports() {
	remaining := s.pending[:0]
	for _, ch := range s.pending {
		select {
		case res, ok := <-ch:
			if ok {
				s.lastExport = &res
			}
			s.gate.Release()
		default:
			remaining = append(remaining, ch)
		}
	}
	s.pending = remaining
}

func (s *Session) snapshot(msgs []notify.Message) Snapshot {
	snap := Snapshot{
		SessionID:    s.id,
		Progress:     s.pipeline.OverallProgress(),
		Finished:     s.pipeline.Finished(),
		Err:          s.pipeline.Err(),
		Regions:      s.store.Len(),
		ServerActive: s.server.Active(),
		ServerURL:    s.server.URL(),
		ExportBusy:   s.gate.Busy(),
		ExportReady:  s.gate.Ready(),
		Cooldown:     s.gate.Remaining(),
		LastExport:   s.lastExport,
		Messages:     msgs,
	}
	if cur := s.pipeline.Current(); cur != nil {
		snap.Stage = cur.Name()
	}
	return snap
}

// ToggleServer starts the artifact server, or stops it when running. It
// reports whether the server is active afterwards.
func (s *Session) ToggleServer(ctx context.Context) (bool, error) {
	if s.server.Active() {
		return false, s.server.Dispose(ctx)
	}
	if s.store.Len() == 0 {
		s.hub.Publish(notify.SourceSession, MsgNoRegions)
		return false, merrors.NoRegions()
	}
	if err := s.server.Initialize(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// RequestExport exports with the configured kind, directory and name.
func (s *Session) RequestExport(ctx context.Context) error {
	kind, err := exporter.ParseKind(s.cfg.Export.Kind)
	if err != nil {
		return err
	}
	return s.RequestExportTo(ctx, kind, s.cfg.Export.Directory, s.cfg.Export.Name)
}

// RequestExportTo dispatches a background export. It is rejected while the
// cooldown gate is closed. The job keeps running if ctx is cancelled.
func (s *Session) RequestExportTo(ctx context.Context, kind exporter.Kind, dir, name string) error {
	if s.store.Len() == 0 {
		s.hub.Publish(notify.SourceSession, MsgNoRegions)
		return merrors.NoRegions()
	}
	if kind == exporter.KindServer && !s.server.Active() {
		s.hub.Publish(notify.SourceSession, "Start the server before exporting through it")
		return ErrServerNotRunning
	}
	dest, err := exporter.Destination(dir, name)
	if err != nil {
		return err
	}
	if !s.gate.TryAcquire() {
		s.hub.Publish(notify.SourceSession, "Export cooling down")
		return merrors.CooldownActive()
	}

	job := exporter.Job{Kind: kind, Destination: dest}
	s.pending = append(s.pending, s.exporter.Dispatch(context.WithoutCancel(ctx), job))
	return nil
}

// Restart discards the current pipeline and artifact and starts generation
// over. A running server switches to the new artifact.
func (s *Session) Restart(_ context.Context) error {
	if err := s.build(); err != nil {
		return err
	}
	s.server.SetStore(s.store)
	s.hub.Publish(notify.SourceSession, "Regenerating")
	slog.Info("Session restarted", logfields.SessionID(s.id))
	return nil
}

// Close waits a bounded time for running exports, stops the server and
// releases message sinks.
func (s *Session) Close(ctx context.Context) error {
	s.waitExports(ctx)

	var errs []error
	if err := s.server.Dispose(ctx); err != nil {
		errs = append(errs, err)
	}
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.closeMessages(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// waitExports collects the results of dispatched exports until they are all
// done or the wait is cut short by ctx or ExportDrainTimeout.
func (s *Session) waitExports(ctx context.Context) {
	if len(s.pending) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, ExportDrainTimeout)
	defer cancel()
	for i, ch := range s.pending {
		select {
		case res, ok := <-ch:
			if ok {
				s.lastExport = &res
			}
			s.gate.Release()
		case <-ctx.Done():
			slog.Warn("Exports still running at shutdown", logfields.SessionID(s.id), slog.Int("pending", len(s.pending)-i))
			s.pending = s.pending[i:]
			return
		}
	}
	s.pending = nil
}

func (s *Session) closeMessages() error {
	if s.messages == nil {
		return nil
	}
	s.hub.DetachStore()
	err := s.messages.Close()
	s.messages = nil
	return err
}

// Generate advances the pipeline until it finishes, without pacing. It is
// meant for headless runs.
func (s *Session) Generate(ctx context.Context) error {
	for !s.pipeline.Finished() {
		if _, err := s.pipeline.Advance(ctx); err != nil {
			return err
		}
	}
	return nil
}
