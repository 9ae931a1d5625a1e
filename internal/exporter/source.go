package exporter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"git.home.luguber.info/inful/mapexporter/internal/artifact"
)

// Source provides the artifact content to export.
type Source interface {
	Manifest(ctx context.Context) (artifact.Manifest, error)
	File(ctx context.Context, region, name string) ([]byte, error)
	// Index returns the viewer page, or nil when the source has none.
	Index(ctx context.Context) ([]byte, error)
}

// StoreSource reads from an in-memory artifact store.
type StoreSource struct {
	Store *artifact.Store
}

func (s StoreSource) Manifest(context.Context) (artifact.Manifest, error) {
	if s.Store == nil {
		return artifact.Manifest{}, errors.New("no artifact store")
	}
	return s.Store.Manifest(), nil
}

func (s StoreSource) File(_ context.Context, region, name string) ([]byte, error) {
	data, ok := s.Store.File(region, name)
	if !ok {
		return nil, fmt.Errorf("region %s has no file %s", region, name)
	}
	return data, nil
}

func (StoreSource) Index(context.Context) ([]byte, error) { return nil, nil }

// HTTPSource reads from a running artifact server.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

func (s HTTPSource) Manifest(ctx context.Context) (artifact.Manifest, error) {
	var m artifact.Manifest
	body, err := s.get(ctx, "/api/manifest")
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(body, &m); err != nil {
		return m, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}

func (s HTTPSource) File(ctx context.Context, region, name string) ([]byte, error) {
	segments := strings.Split(name, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.get(ctx, "/regions/"+url.PathEscape(region)+"/"+strings.Join(segments, "/"))
}

func (s HTTPSource) Index(ctx context.Context) ([]byte, error) {
	return s.get(ctx, "/")
}

func (s HTTPSource) get(ctx context.Context, path string) ([]byte, error) {
	if s.BaseURL == "" {
		return nil, errors.New("artifact server is not running")
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(s.BaseURL, "/")+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", path, resp.Status)
	}
	return io.ReadAll(resp.Body)
}
