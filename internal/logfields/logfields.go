package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeySessionID   = "session_id"
	KeyJobID       = "job_id"
	KeyStage       = "stage"
	KeyStageIndex  = "stage_index"
	KeyProgress    = "progress"
	KeyRegion      = "region"
	KeyDurationMS  = "duration_ms"
	KeyAddr        = "addr"
	KeyPort        = "port"
	KeyURL         = "url"
	KeyDestination = "destination"
	KeyExportKind  = "export_kind"
	KeyFiles       = "files"
	KeyBytes       = "bytes"
	KeyPath        = "path"
	KeyMethod      = "method"
	KeyStatus      = "status"
	KeyUserAgent   = "user_agent"
	KeyRemoteAddr  = "remote_addr"
	KeySource      = "source"
	KeyError       = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func SessionID(id string) slog.Attr     { return slog.String(KeySessionID, id) }
func JobID(id string) slog.Attr         { return slog.String(KeyJobID, id) }
func Stage(name string) slog.Attr       { return slog.String(KeyStage, name) }
func StageIndex(i int) slog.Attr        { return slog.Int(KeyStageIndex, i) }
func Progress(p float64) slog.Attr      { return slog.Float64(KeyProgress, p) }
func Region(key string) slog.Attr       { return slog.String(KeyRegion, key) }
func DurationMS(ms float64) slog.Attr   { return slog.Float64(KeyDurationMS, ms) }
func Addr(a string) slog.Attr           { return slog.String(KeyAddr, a) }
func Port(p int) slog.Attr              { return slog.Int(KeyPort, p) }
func URL(u string) slog.Attr            { return slog.String(KeyURL, u) }
func Destination(d string) slog.Attr    { return slog.String(KeyDestination, d) }
func ExportKind(k string) slog.Attr     { return slog.String(KeyExportKind, k) }
func Files(n int) slog.Attr             { return slog.Int(KeyFiles, n) }
func Bytes(n int64) slog.Attr           { return slog.Int64(KeyBytes, n) }
func Path(p string) slog.Attr           { return slog.String(KeyPath, p) }
func Method(m string) slog.Attr         { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr         { return slog.Int(KeyStatus, code) }
func UserAgent(ua string) slog.Attr     { return slog.String(KeyUserAgent, ua) }
func RemoteAddr(addr string) slog.Attr  { return slog.String(KeyRemoteAddr, addr) }
func Source(s string) slog.Attr         { return slog.String(KeySource, s) }
func Elapsed(d time.Duration) slog.Attr { return DurationMS(float64(d) / float64(time.Millisecond)) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
