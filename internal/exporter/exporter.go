package exporter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/mapexporter/internal/artifact"
	merrors "git.home.luguber.info/inful/mapexporter/internal/errors"
	"git.home.luguber.info/inful/mapexporter/internal/logfields"
	"git.home.luguber.info/inful/mapexporter/internal/metrics"
	"git.home.luguber.info/inful/mapexporter/internal/notify"
)

// File names written at the export root.
const (
	ManifestFile = "manifest.json"
	IndexFile    = "index.html"
)

// DefaultConcurrency bounds parallel file writes.
const DefaultConcurrency = 4

// Job describes one export request.
type Job struct {
	Kind        Kind
	Destination string
}

// Result reports the outcome of one export. Err is nil on success.
type Result struct {
	JobID       string
	Kind        Kind
	Destination string
	Files       int
	Bytes       int64
	Duration    time.Duration
	Err         error
}

// Exporter serialises an artifact to disk. It keeps no state between jobs;
// callers decide whether a new job may start.
type Exporter struct {
	store       *artifact.Store
	serverURL   func() string
	client      *http.Client
	concurrency int
	recorder    metrics.Recorder
	hub         *notify.Hub
	now         func() time.Time
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithServerURL supplies the base URL of the running artifact server for
// server exports.
func WithServerURL(url func() string) Option {
	return func(e *Exporter) { e.serverURL = url }
}

// WithHTTPClient overrides the client used for server exports.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Exporter) {
		if c != nil {
			e.client = c
		}
	}
}

// WithConcurrency bounds parallel file writes.
func WithConcurrency(n int) Option {
	return func(e *Exporter) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithRecorder records export outcomes and durations.
func WithRecorder(rec metrics.Recorder) Option {
	return func(e *Exporter) {
		if rec != nil {
			e.recorder = rec
		}
	}
}

// WithMessages publishes export progress on hub.
func WithMessages(hub *notify.Hub) Option {
	return func(e *Exporter) { e.hub = hub }
}

// New creates an exporter reading static exports from store.
func New(store *artifact.Store, opts ...Option) *Exporter {
	e := &Exporter{
		store:       store,
		client:      &http.Client{Timeout: 30 * time.Second},
		concurrency: DefaultConcurrency,
		recorder:    metrics.NoopRecorder{},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dispatch runs job on its own goroutine. The channel delivers exactly one
// Result and is then closed.
func (e *Exporter) Dispatch(ctx context.Context, job Job) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		out <- e.Export(ctx, job.Kind, job.Destination)
	}()
	return out
}

// ExportTo exports into directory/name after sanitizing name.
func (e *Exporter) ExportTo(ctx context.Context, kind Kind, directory, name string) Result {
	dest, err := Destination(directory, name)
	if err != nil {
		return e.finish(Result{JobID: uuid.NewString(), Kind: kind}, e.now(), err)
	}
	return e.Export(ctx, kind, dest)
}

// Destination sanitizes name and joins it onto directory. The result always
// names a single entry directly below directory.
func Destination(directory, name string) (string, error) {
	if directory == "" {
		return "", merrors.ExportInvalidDestination(name, "destination directory is empty")
	}
	clean, err := sanitizeLeaf(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(directory, clean), nil
}

func sanitizeLeaf(name string) (string, error) {
	clean := Sanitize(name)
	if clean == "" || clean == "." || clean == ".." {
		return "", merrors.ExportInvalidDestination(name, "destination name is empty after sanitizing")
	}
	return clean, nil
}

// Export writes the artifact to destinationPath. The leaf of the path is
// sanitized first. Output is staged in a sibling directory and only replaces
// the destination once every file was written.
func (e *Exporter) Export(ctx context.Context, kind Kind, destinationPath string) Result {
	start := e.now()
	res := Result{JobID: uuid.NewString(), Kind: kind}

	dest, err := resolveDestination(destinationPath)
	if err != nil {
		return e.finish(res, start, err)
	}
	res.Destination = dest

	src, err := e.source(kind)
	if err != nil {
		return e.finish(res, start, merrors.ExportIOFailure(dest, err))
	}

	slog.Info("Export started", logfields.JobID(res.JobID), logfields.ExportKind(string(kind)), logfields.Destination(dest))
	e.hub.Publish(notify.SourceExporter, "Exporting to "+dest)

	files, size, err := e.write(ctx, src, dest, res.JobID)
	res.Files, res.Bytes = files, size
	if err != nil {
		return e.finish(res, start, classify(dest, err))
	}
	return e.finish(res, start, nil)
}

func (e *Exporter) source(kind Kind) (Source, error) {
	switch kind {
	case KindStatic:
		return StoreSource{Store: e.store}, nil
	case KindServer:
		var base string
		if e.serverURL != nil {
			base = e.serverURL()
		}
		if base == "" {
			return nil, errors.New("artifact server is not running")
		}
		return HTTPSource{BaseURL: base, Client: e.client}, nil
	default:
		return nil, fmt.Errorf("unknown export kind %q", kind)
	}
}

func (e *Exporter) finish(res Result, start time.Time, err error) Result {
	res.Duration = e.now().Sub(start)
	res.Err = err

	outcome := outcomeLabel(err)
	e.recorder.IncExportOutcome(string(res.Kind), outcome)
	e.recorder.ObserveExportDuration(string(res.Kind), res.Duration)

	if err != nil {
		slog.Warn("Export failed", logfields.JobID(res.JobID), logfields.Destination(res.Destination), logfields.Error(err))
		e.hub.Publish(notify.SourceExporter, "Export failed: "+err.Error())
		return res
	}
	slog.Info("Export finished",
		logfields.JobID(res.JobID),
		logfields.Destination(res.Destination),
		logfields.Files(res.Files),
		logfields.Bytes(res.Bytes),
		logfields.Elapsed(res.Duration))
	e.hub.Publishf(notify.SourceExporter, "Exported %d files to %s", res.Files, res.Destination)
	return res
}

// resolveDestination sanitizes the raw leaf of path and rejects destinations
// that cannot hold a directory. Dot segments in the leaf are never resolved.
func resolveDestination(path string) (string, error) {
	trimmed := strings.TrimRight(path, `/`+string(filepath.Separator))
	if trimmed == "" {
		return "", merrors.ExportInvalidDestination(path, "destination path is empty")
	}
	dir, leaf := filepath.Split(trimmed)
	clean, err := sanitizeLeaf(leaf)
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = "."
	}
	dest := filepath.Join(dir, clean)
	if info, err := os.Stat(dest); err == nil && !info.IsDir() {
		return "", merrors.ExportInvalidDestination(dest, "destination exists and is not a directory")
	}
	return dest, nil
}

func (e *Exporter) write(ctx context.Context, src Source, dest, jobID string) (int, int64, error) {
	manifest, err := src.Manifest(ctx)
	if err != nil {
		return 0, 0, err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, 0, err
	}
	stage := dest + ".stage-" + jobID[:8]
	if err := os.Mkdir(stage, 0o755); err != nil {
		return 0, 0, err
	}
	promoted := false
	defer func() {
		if !promoted {
			abortStaging(stage)
		}
	}()

	var files atomic.Int64
	var size atomic.Int64
	put := func(rel string, data []byte) error {
		p := filepath.Join(stage, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(p, data, 0o644); err != nil {
			return err
		}
		files.Add(1)
		size.Add(int64(len(data)))
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for _, region := range manifest.Regions {
		for _, name := range region.Files {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				data, err := src.File(gctx, region.Key, name)
				if err != nil {
					return err
				}
				return put(region.Key+"/"+name, data)
			})
		}
	}
	g.Go(func() error {
		index, err := src.Index(gctx)
		if err != nil || index == nil {
			return err
		}
		return put(IndexFile, index)
	})
	if err := g.Wait(); err != nil {
		return int(files.Load()), size.Load(), err
	}

	raw, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return int(files.Load()), size.Load(), err
	}
	if err := put(ManifestFile, raw); err != nil {
		return int(files.Load()), size.Load(), err
	}

	if err := promote(stage, dest, jobID); err != nil {
		return int(files.Load()), size.Load(), err
	}
	promoted = true
	return int(files.Load()), size.Load(), nil
}

// promote swaps stage into place, keeping the previous destination until the
// rename succeeded. The backup name is unique to the job.
func promote(stage, dest, jobID string) error {
	prev := dest + ".prev-" + jobID[:8]
	backedUp := false
	if _, err := os.Stat(dest); err == nil {
		if err := os.Rename(dest, prev); err != nil {
			return fmt.Errorf("backup existing export: %w", err)
		}
		backedUp = true
	}
	if err := os.Rename(stage, dest); err != nil {
		if backedUp {
			_ = os.Rename(prev, dest)
		}
		return fmt.Errorf("promote staging: %w", err)
	}
	if !backedUp {
		return nil
	}
	if err := os.RemoveAll(prev); err != nil {
		slog.Warn("Failed to remove previous export", logfields.Path(prev), logfields.Error(err))
	}
	return nil
}

func abortStaging(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		slog.Warn("Failed to remove staging directory after abort", logfields.Path(dir), logfields.Error(err))
	}
}

// classify maps a write failure onto the export error taxonomy.
func classify(dest string, err error) error {
	var mee *merrors.MapExportError
	if errors.As(err, &mee) && mee.Category == merrors.CategoryExport {
		return err
	}
	if errors.Is(err, fs.ErrPermission) {
		return merrors.ExportPermissionDenied(dest, err)
	}
	return merrors.ExportIOFailure(dest, err)
}

func outcomeLabel(err error) metrics.ExportOutcomeLabel {
	switch {
	case err == nil:
		return metrics.ExportSuccess
	case errors.Is(err, merrors.ErrPermissionDenied):
		return metrics.ExportPermissionDenied
	case errors.Is(err, merrors.ErrInvalidDestination):
		return metrics.ExportInvalidDestination
	default:
		return metrics.ExportIOFailure
	}
}
