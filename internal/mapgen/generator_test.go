package mapgen

import (
	"context"
	"encoding/json"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mapexporter/internal/artifact"
	merrors "git.home.luguber.info/inful/mapexporter/internal/errors"
	"git.home.luguber.info/inful/mapexporter/internal/generation"
)

const caves = `
key: caves
name: The Caves
notes: |
  # Caves
  Watch for **bats**.
rooms:
  - {name: entrance, x: 0, y: 0, width: 4, height: 4, connections: [hall]}
  - {name: hall, x: 4, y: 0, width: 6, height: 2, connections: [entrance, pit]}
  - {name: pit, x: 4, y: 6, width: 2, height: 2}
`

const town = `
name: Town
rooms:
  - {name: square, x: -2, y: -2, width: 4, height: 4}
`

func runToEnd(t *testing.T, p *generation.Pipeline) int {
	t.Helper()
	advances := 0
	for !p.Finished() {
		_, err := p.Advance(context.Background())
		require.NoError(t, err)
		advances++
		require.Less(t, advances, 1000)
	}
	return advances
}

func TestGeneratorPublishesRegions(t *testing.T) {
	src := fstest.MapFS{
		"caves.yaml":  {Data: []byte(caves)},
		"town.yaml":   {Data: []byte(town)},
		"ignored.txt": {Data: []byte("nope")},
	}
	store := artifact.NewStore()
	g := New(store, Options{Source: src, RoomsPerAdvance: 2})
	p, err := g.Pipeline(nil)
	require.NoError(t, err)

	runToEnd(t, p)
	assert.True(t, store.Sealed())
	assert.Equal(t, []string{"caves", "town"}, store.Keys())

	raw, ok := store.File("caves", FileMap)
	require.True(t, ok)
	var l Layout
	require.NoError(t, json.Unmarshal(raw, &l))
	assert.Equal(t, Rect{X: 0, Y: 0, Width: 10, Height: 8}, l.Bounds)
	require.Len(t, l.Rooms, 3)
	require.Len(t, l.Segments, 2, "entrance<->hall must be a single segment")
	assert.Equal(t, Segment{From: "entrance", To: "hall", Start: Point{2, 2}, End: Point{7, 1}}, l.Segments[0])

	notes, ok := store.File("caves", FileNotes)
	require.True(t, ok)
	assert.Contains(t, string(notes), "<h1>Caves</h1>")
	assert.Contains(t, string(notes), "<strong>bats</strong>")

	r, ok := store.Get("town")
	require.True(t, ok)
	assert.Equal(t, "Town", r.Name)
	assert.Contains(t, r.Files, FileRooms)
}

func TestGeneratorRegionsAppearIncrementally(t *testing.T) {
	src := fstest.MapFS{
		"a.yaml": {Data: []byte("rooms: [{name: r, x: 0, y: 0, width: 1, height: 1}]")},
		"b.yaml": {Data: []byte("rooms: [{name: r, x: 0, y: 0, width: 1, height: 1}]")},
	}
	store := artifact.NewStore()
	p, err := New(store, Options{Source: src}).Pipeline(nil)
	require.NoError(t, err)

	for store.Len() == 0 {
		_, err := p.Advance(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 1, store.Len())
	assert.False(t, store.Sealed())
	assert.Equal(t, "Publishing regions", p.Current().Name())
	runToEnd(t, p)
	assert.Equal(t, 2, store.Len())
}

func TestGeneratorEmptySource(t *testing.T) {
	store := artifact.NewStore()
	p, err := New(store, Options{Source: fstest.MapFS{}}).Pipeline(nil)
	require.NoError(t, err)
	runToEnd(t, p)
	assert.True(t, store.Sealed())
	assert.Zero(t, store.Len())
}

func TestGeneratorInvalidSourceFailsLoadStage(t *testing.T) {
	src := fstest.MapFS{"bad.yaml": {Data: []byte("rooms: [{name: a, width: 1, height: 1, connections: [ghost]}]")}}
	p, err := New(artifact.NewStore(), Options{Source: src}).Pipeline(nil)
	require.NoError(t, err)

	for range 3 {
		_, err = p.Advance(context.Background())
		if err != nil {
			break
		}
	}
	require.ErrorIs(t, err, merrors.ErrStageFailure)
	assert.Equal(t, 0, p.Cursor())
}

func TestDuplicateRegionKeys(t *testing.T) {
	src := fstest.MapFS{
		"one.yaml": {Data: []byte("key: same\nrooms: []")},
		"two.yaml": {Data: []byte("key: same\nrooms: []")},
	}
	p, err := New(artifact.NewStore(), Options{Source: src}).Pipeline(nil)
	require.NoError(t, err)
	var advErr error
	for i := 0; i < 5 && advErr == nil; i++ {
		_, advErr = p.Advance(context.Background())
	}
	assert.ErrorIs(t, advErr, merrors.ErrStageFailure)
}

func TestWeights(t *testing.T) {
	assert.Equal(t, []float64{1, 3, 2}, Weights(nil))
	assert.Equal(t, []float64{5, 3, 0}, Weights(map[string]float64{"load": 5, "publish": 0}))
}

func TestParseRegion(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		data    string
		wantKey string
		wantErr bool
	}{
		{"derived key", "Old Mill.yaml", "rooms: []", "old-mill", false},
		{"explicit key", "x.yaml", "key: mill\nrooms: []", "mill", false},
		{"bad key", "x.yaml", "key: Mill!\n", "", true},
		{"unknown field", "x.yaml", "colour: red\n", "", true},
		{"zero size", "x.yaml", "rooms: [{name: a, width: 0, height: 1}]", "", true},
		{"duplicate room", "x.yaml", "rooms: [{name: a, width: 1, height: 1}, {name: a, width: 1, height: 1}]", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := ParseRegion(tt.file, []byte(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, src.Key)
			assert.Equal(t, tt.wantKey, src.Name)
		})
	}
}
