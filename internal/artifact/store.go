// Package artifact holds the regions produced by generation. The store is
// append-only while generation runs and read-only once sealed; the preview
// server and the exporter only ever read from it.
package artifact

import (
	"fmt"
	"io/fs"
	"maps"
	"slices"
	"sync"
	"time"

	merrors "git.home.luguber.info/inful/mapexporter/internal/errors"
)

// Region is one published unit of generated output.
type Region struct {
	Key         string
	Name        string
	Files       map[string][]byte
	PublishedAt time.Time
}

// FileNames lists the region's files in lexical order.
func (r Region) FileNames() []string {
	return slices.Sorted(maps.Keys(r.Files))
}

// Manifest is the JSON listing served at /api/manifest and written by exports.
type Manifest struct {
	Complete bool             `json:"complete"`
	Version  uint64           `json:"version"`
	Regions  []ManifestRegion `json:"regions"`
}

// ManifestRegion describes one region in a Manifest.
type ManifestRegion struct {
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	Files       []string  `json:"files"`
	PublishedAt time.Time `json:"published_at"`
}

// Store is the shared region collection.
type Store struct {
	mu          sync.RWMutex
	order       []string
	regions     map[string]Region
	sealed      bool
	version     uint64
	nextID      int
	subscribers map[int]func(Region)
	now         func() time.Time
}

// NewStore creates an empty, unsealed store.
func NewStore() *Store {
	return &Store{
		regions:     make(map[string]Region),
		subscribers: make(map[int]func(Region)),
		now:         time.Now,
	}
}

// Publish appends a region. Keys are unique and regions are never replaced.
func (s *Store) Publish(r Region) error {
	if r.Key == "" {
		return merrors.ValidationFailed("region.key", "region key is required")
	}
	for name := range r.Files {
		if !validFileName(name) {
			return merrors.ValidationFailed("region.files", fmt.Sprintf("invalid file name %q", name)).
				WithContext("region", r.Key)
		}
	}

	s.mu.Lock()
	if s.sealed {
		s.mu.Unlock()
		return merrors.New(merrors.CategoryInternal, merrors.SeverityError, "artifact is sealed").
			WithContext("region", r.Key)
	}
	if _, dup := s.regions[r.Key]; dup {
		s.mu.Unlock()
		return merrors.ValidationFailed("region.key", fmt.Sprintf("region %q already published", r.Key))
	}
	r.Files = maps.Clone(r.Files)
	if r.Files == nil {
		r.Files = map[string][]byte{}
	}
	if r.PublishedAt.IsZero() {
		r.PublishedAt = s.now()
	}
	s.regions[r.Key] = r
	s.order = append(s.order, r.Key)
	s.version++
	subs := slices.Collect(maps.Values(s.subscribers))
	s.mu.Unlock()

	for _, fn := range subs {
		fn(r)
	}
	return nil
}

// Seal marks generation as complete. Sealing twice is harmless.
func (s *Store) Seal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.sealed {
		s.sealed = true
		s.version++
	}
}

// Sealed reports whether the store accepts no more regions.
func (s *Store) Sealed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sealed
}

// Get returns the region stored under key.
func (s *Store) Get(key string) (Region, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.regions[key]
	if ok {
		r.Files = maps.Clone(r.Files)
	}
	return r, ok
}

// Keys lists region keys in publish order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}

// Len is the number of published regions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Version increases on every publish and on seal.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// File returns the contents of one region file.
func (s *Store) File(key, name string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.regions[key]
	if !ok {
		return nil, false
	}
	data, ok := r.Files[name]
	return data, ok
}

// Manifest snapshots the current contents.
func (s *Store) Manifest() Manifest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := Manifest{
		Complete: s.sealed,
		Version:  s.version,
		Regions:  make([]ManifestRegion, 0, len(s.order)),
	}
	for _, key := range s.order {
		r := s.regions[key]
		m.Regions = append(m.Regions, ManifestRegion{
			Key:         r.Key,
			Name:        r.Name,
			Files:       r.FileNames(),
			PublishedAt: r.PublishedAt,
		})
	}
	return m
}

// Subscribe registers fn to be called after each publish. The returned
// function removes the subscription.
func (s *Store) Subscribe(fn func(Region)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// validFileName accepts unrooted slash paths without dot segments.
func validFileName(name string) bool {
	return name != "." && fs.ValidPath(name)
}
