package driver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_ResolveDeliversDecision(t *testing.T) {
	g := NewGate(time.Minute)

	id, future := g.Intercept()
	require.NotEmpty(t, id)

	ok := g.Resolve(id, Decision{Allow: true})
	assert.True(t, ok)

	d := <-future
	assert.True(t, d.Allow)
	assert.Equal(t, 0, g.PendingCount())
}

func TestGate_ResolveOnce(t *testing.T) {
	g := NewGate(time.Minute)

	id, _ := g.Intercept()
	require.True(t, g.Resolve(id, Decision{Allow: true}))
	assert.False(t, g.Resolve(id, Decision{Allow: false}), "second resolution must be a no-op")
	assert.False(t, g.Resolve("no-such-id", Decision{}))
}

func TestGate_TimeoutAutoDenies(t *testing.T) {
	g := NewGate(20 * time.Millisecond)

	_, future := g.Intercept()

	select {
	case d := <-future:
		assert.False(t, d.Allow)
		assert.Equal(t, timeoutDenyMessage, d.Message)
	case <-time.After(time.Second):
		t.Fatal("timeout decision never arrived")
	}

	assert.Equal(t, 0, g.PendingCount())
}

func TestGate_ResolveCancelsTimer(t *testing.T) {
	g := NewGate(20 * time.Millisecond)

	id, future := g.Intercept()
	require.True(t, g.Resolve(id, Decision{Allow: true}))

	time.Sleep(50 * time.Millisecond)

	d := <-future
	assert.True(t, d.Allow, "stale timeout must not overwrite the explicit decision")
	select {
	case <-future:
		t.Fatal("future received a second decision")
	default:
	}
}

func TestGate_AbortDeniesPendingAndFuture(t *testing.T) {
	g := NewGate(time.Minute)

	_, pending := g.Intercept()
	g.Abort()

	d := <-pending
	assert.False(t, d.Allow)
	assert.Equal(t, abortDenyMessage, d.Message)

	// Intercepts after the abort deny immediately.
	_, after := g.Intercept()
	select {
	case d := <-after:
		assert.False(t, d.Allow)
	default:
		t.Fatal("post-abort intercept should resolve immediately")
	}
	assert.Equal(t, 0, g.PendingCount())

	// Reset restores normal operation for the next turn.
	g.Reset()
	id, _ := g.Intercept()
	assert.Equal(t, 1, g.PendingCount())
	assert.True(t, g.Resolve(id, Decision{Allow: true}))
}
