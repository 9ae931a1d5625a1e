package artifact

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func region(key string) Region {
	return Region{
		Key:   key,
		Name:  "Region " + key,
		Files: map[string][]byte{"map.json": []byte(`{}`), "notes.html": []byte("<p>x</p>")},
	}
}

func TestPublishAndRead(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Publish(region("north")))
	require.NoError(t, s.Publish(region("south")))

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"north", "south"}, s.Keys())
	assert.Equal(t, uint64(2), s.Version())

	data, ok := s.File("north", "map.json")
	require.True(t, ok)
	assert.JSONEq(t, `{}`, string(data))
	_, ok = s.File("north", "missing")
	assert.False(t, ok)
	_, ok = s.File("west", "map.json")
	assert.False(t, ok)

	r, ok := s.Get("south")
	require.True(t, ok)
	assert.False(t, r.PublishedAt.IsZero())
	assert.Equal(t, []string{"map.json", "notes.html"}, r.FileNames())
}

func TestPublishRejectsDuplicatesAndBadNames(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Publish(region("a")))
	assert.Error(t, s.Publish(region("a")))
	assert.Error(t, s.Publish(Region{}))
	assert.Error(t, s.Publish(Region{Key: "b", Files: map[string][]byte{"../evil": nil}}))
	assert.Error(t, s.Publish(Region{Key: "b", Files: map[string][]byte{"/abs": nil}}))
	assert.Equal(t, 1, s.Len())
}

func TestSealedStoreIsReadOnly(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Publish(region("a")))
	s.Seal()
	s.Seal()
	assert.True(t, s.Sealed())
	assert.Error(t, s.Publish(region("b")))
	assert.Equal(t, 1, s.Len())
}

func TestPublishedRegionIsIsolated(t *testing.T) {
	s := NewStore()
	r := region("a")
	require.NoError(t, s.Publish(r))
	r.Files["map.json"] = []byte("changed")
	delete(r.Files, "notes.html")

	got, _ := s.Get("a")
	assert.Equal(t, `{}`, string(got.Files["map.json"]))
	got.Files["injected"] = nil
	_, ok := s.File("a", "injected")
	assert.False(t, ok)
}

func TestManifest(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Publish(region("a")))
	m := s.Manifest()
	assert.False(t, m.Complete)
	require.Len(t, m.Regions, 1)
	assert.Equal(t, []string{"map.json", "notes.html"}, m.Regions[0].Files)

	s.Seal()
	raw, err := json.Marshal(s.Manifest())
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"complete":true`)
}

func TestSubscribe(t *testing.T) {
	s := NewStore()
	var got []string
	unsubscribe := s.Subscribe(func(r Region) { got = append(got, r.Key) })
	require.NoError(t, s.Publish(region("a")))
	unsubscribe()
	require.NoError(t, s.Publish(region("b")))
	assert.Equal(t, []string{"a"}, got)
}
