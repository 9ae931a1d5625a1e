package cooldown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestGateLifecycle(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	g := New(2*time.Second, WithClock(clock.now))

	require.True(t, g.Ready())
	require.True(t, g.TryAcquire())
	assert.True(t, g.Busy())
	assert.False(t, g.TryAcquire(), "busy gate refuses")
	assert.Zero(t, g.Remaining())

	g.Release()
	assert.False(t, g.Busy())
	assert.False(t, g.Ready())
	assert.False(t, g.TryAcquire(), "window refuses")
	assert.Equal(t, 2*time.Second, g.Remaining())

	clock.advance(1500 * time.Millisecond)
	assert.Equal(t, 500*time.Millisecond, g.Remaining())
	assert.False(t, g.TryAcquire())

	clock.advance(500 * time.Millisecond)
	assert.Zero(t, g.Remaining())
	assert.True(t, g.TryAcquire())
}

func TestReleaseIdleGateIsNoop(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	g := New(time.Minute, WithClock(clock.now))
	g.Release()
	assert.True(t, g.Ready())
}

func TestZeroWindow(t *testing.T) {
	g := New(-time.Second)
	require.True(t, g.TryAcquire())
	g.Release()
	assert.True(t, g.TryAcquire())
}
