package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressTickerStopsWhenEditFails(t *testing.T) {
	env := newTestEnvTicking(5 * time.Millisecond)
	sess := env.registry.GetOrCreate("g1")

	_, err := sess.Play("vc1", "text", "u1", testSong("alpha", 300))
	require.NoError(t, err)
	require.NotNil(t, env.waitStarted())

	require.True(t, waitFor(func() bool {
		sess.mu.Lock()
		defer sess.mu.Unlock()
		return sess.npMessage != nil
	}), "now-playing message should be posted and the ticker armed")
	assert.Equal(t, 1, env.progressJobCount())

	env.transport.failEdits(errors.New("message deleted"))

	// A failed refresh drops the display reference and cancels the job
	assert.True(t, waitFor(func() bool {
		sess.mu.Lock()
		defer sess.mu.Unlock()
		return sess.npMessage == nil
	}), "edit failure should clear the now-playing reference")
	assert.True(t, waitFor(func() bool {
		return env.progressJobCount() == 0
	}), "edit failure should cancel the progress job")

	// Playback itself is untouched
	assert.Equal(t, StatePlaying, sess.State())
}

func TestProgressTickerNotArmedWhenPublishFails(t *testing.T) {
	env := newTestEnvTicking(5 * time.Millisecond)
	env.transport.embedErr = errors.New("missing embed permission")
	sess := env.registry.GetOrCreate("g1")

	_, err := sess.Play("vc1", "text", "u1", testSong("alpha", 300))
	require.NoError(t, err)
	require.NotNil(t, env.waitStarted())

	assert.True(t, waitFor(func() bool {
		return sess.State() == StatePlaying
	}))
	sess.mu.Lock()
	assert.Nil(t, sess.npMessage)
	sess.mu.Unlock()
	assert.Equal(t, 0, env.progressJobCount())
}
