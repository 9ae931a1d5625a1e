// Package exporter writes a generated artifact to disk, either straight from
// the in-memory store or through the running artifact server.
package exporter

import (
	"strings"

	merrors "git.home.luguber.info/inful/mapexporter/internal/errors"
)

// Kind selects where an export reads the artifact from.
type Kind string

const (
	// KindStatic reads regions directly from the artifact store.
	KindStatic Kind = "static"
	// KindServer fetches everything from the artifact server over HTTP,
	// including the viewer page.
	KindServer Kind = "server"
)

// ParseKind accepts "static" or "server", case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindStatic, KindServer:
		return k, nil
	default:
		return "", merrors.ValidationFailed("export.kind", "unknown export kind "+s)
	}
}

func (k Kind) String() string { return string(k) }
