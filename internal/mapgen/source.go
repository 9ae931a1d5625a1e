// Package mapgen produces map regions from YAML region sources. It supplies
// the three generation stages (load, layout, publish) that fill an artifact
// store.
package mapgen

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	merrors "git.home.luguber.info/inful/mapexporter/internal/errors"
)

// RoomSource is one room as written in a region file.
type RoomSource struct {
	Name        string   `yaml:"name"`
	X           int      `yaml:"x"`
	Y           int      `yaml:"y"`
	Width       int      `yaml:"width"`
	Height      int      `yaml:"height"`
	Connections []string `yaml:"connections,omitempty"`
}

// RegionSource is the decoded content of one region file.
type RegionSource struct {
	Key   string       `yaml:"key"`
	Name  string       `yaml:"name"`
	Notes string       `yaml:"notes,omitempty"`
	Rooms []RoomSource `yaml:"rooms"`

	Path string `yaml:"-"`
}

var keyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ParseRegion decodes and validates a region file. When the key is omitted it
// is derived from the file name.
func ParseRegion(name string, data []byte) (RegionSource, error) {
	var src RegionSource
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&src); err != nil && !errors.Is(err, io.EOF) {
		return RegionSource{}, merrors.ValidationFailed("region", err.Error()).WithContext("path", name)
	}
	src.Path = name
	if src.Key == "" {
		src.Key = deriveKey(name)
	}
	if src.Name == "" {
		src.Name = src.Key
	}
	if err := src.validate(); err != nil {
		return RegionSource{}, err
	}
	return src, nil
}

func deriveKey(name string) string {
	base := strings.TrimSuffix(path.Base(name), path.Ext(name))
	base = strings.ToLower(base)
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return strings.TrimLeft(b.String(), "-_")
}

func (s RegionSource) validate() error {
	fail := func(reason string) error {
		return merrors.ValidationFailed("region", reason).WithContext("path", s.Path)
	}
	if !keyPattern.MatchString(s.Key) {
		return fail(fmt.Sprintf("invalid region key %q", s.Key))
	}
	rooms := make(map[string]struct{}, len(s.Rooms))
	for _, r := range s.Rooms {
		if r.Name == "" {
			return fail("room without name")
		}
		if _, dup := rooms[r.Name]; dup {
			return fail(fmt.Sprintf("duplicate room %q", r.Name))
		}
		if r.Width <= 0 || r.Height <= 0 {
			return fail(fmt.Sprintf("room %q has non-positive size", r.Name))
		}
		rooms[r.Name] = struct{}{}
	}
	for _, r := range s.Rooms {
		for _, c := range r.Connections {
			if _, ok := rooms[c]; !ok {
				return fail(fmt.Sprintf("room %q connects to unknown room %q", r.Name, c))
			}
		}
	}
	return nil
}
