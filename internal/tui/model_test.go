package tui

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mapexporter/internal/config"
	"git.home.luguber.info/inful/mapexporter/internal/session"
)

func newModel(t *testing.T, opts ...Option) *Model {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Export.Directory = t.TempDir()
	src := fstest.MapFS{"a.yaml": {Data: []byte("name: A\nrooms: [{name: r, x: 0, y: 0, width: 1, height: 1}]")}}
	s, err := session.New(cfg, session.WithSource(src))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	opts = append([]Option{WithOpener(func(string) error { return errors.New("no browser") })}, opts...)
	return New(context.Background(), s, time.Millisecond, opts...)
}

func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestServerKeyBeforeRegions(t *testing.T) {
	m := newModel(t)
	m.Update(key('r'))
	assert.Equal(t, session.MsgNoRegions, m.status)
	assert.Contains(t, m.View(), session.MsgNoRegions)
}

func TestTicksAdvanceGeneration(t *testing.T) {
	m := newModel(t)
	for i := 0; i < 100 && !m.snap.Finished; i++ {
		_, cmd := m.Update(tickMsg(time.Now()))
		require.NotNil(t, cmd)
	}
	require.True(t, m.snap.Finished)
	view := m.View()
	assert.Contains(t, view, "Generation finished: 1 regions")
	assert.Contains(t, view, "Finished: Publishing regions")

	m.Update(key('r'))
	assert.Contains(t, m.status, "Server running at http://")
	m.Update(key('o'))
	assert.Contains(t, m.status, "Open http://")
	m.Update(key('r'))
	assert.Equal(t, "Server stopped", m.status)
}

func TestOpenKeyLaunchesBrowser(t *testing.T) {
	var opened []string
	m := newModel(t, WithOpener(func(url string) error {
		opened = append(opened, url)
		return nil
	}))

	m.Update(key('o'))
	assert.Equal(t, "Server is not running", m.status)
	assert.Empty(t, opened)

	for i := 0; i < 100 && !m.snap.Finished; i++ {
		m.Update(tickMsg(time.Now()))
	}
	m.Update(key('r'))
	m.Update(key('o'))
	require.Len(t, opened, 1)
	assert.Equal(t, m.session.Server().URL(), opened[0])
	assert.Equal(t, "Opened "+opened[0], m.status)
	m.Update(key('r'))
}

func TestQuitKey(t *testing.T) {
	m := newModel(t)
	_, cmd := m.Update(key('q'))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestWindowResize(t *testing.T) {
	m := newModel(t)
	m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	assert.Equal(t, 56, m.bar.Width)
}
