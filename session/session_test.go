package session

import (
	"errors"
	"testing"

	"Nocturne/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSong(id string, durationSeconds int) *queue.Song {
	return &queue.Song{
		ID:              id,
		Title:           id,
		SourceURL:       "https://youtu.be/" + id,
		DurationSeconds: durationSeconds,
		RequestedBy:     "u1",
		Source:          queue.SourceYouTube,
	}
}

func TestPlayFromIdleJoinsAndStreams(t *testing.T) {
	env := newTestEnv()
	sess := env.registry.GetOrCreate("g1")

	assert.Equal(t, StateIdle, sess.State())

	added, err := sess.Play("vc1", "text", "u1", testSong("alpha", 0))
	require.NoError(t, err)
	assert.False(t, added)

	started := env.waitStarted()
	require.NotNil(t, started)
	assert.Equal(t, "alpha", started.ID)
	assert.Equal(t, StatePlaying, sess.State())
	assert.Equal(t, "u1", sess.SummonerID())
	assert.Equal(t, 1, env.transport.joinCount())
}

func TestPlayWhileActiveOnlyAppends(t *testing.T) {
	env := newTestEnv()
	sess := env.registry.GetOrCreate("g1")

	_, err := sess.Play("vc1", "text", "u1", testSong("alpha", 0))
	require.NoError(t, err)
	require.NotNil(t, env.waitStarted())

	added, err := sess.Play("vc1", "text", "u2", testSong("beta", 0))
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, 1, env.transport.joinCount(), "an active session never re-joins voice")
	assert.Equal(t, 2, sess.Queue().Len())

	// The summoner stays whoever triggered the join
	assert.Equal(t, "u1", sess.SummonerID())
}

func TestPlayNoTargetWhileActiveIsRejected(t *testing.T) {
	env := newTestEnv()
	sess := env.registry.GetOrCreate("g1")

	_, err := sess.Play("vc1", "text", "u1", testSong("alpha", 0))
	require.NoError(t, err)
	require.NotNil(t, env.waitStarted())

	_, err = sess.Play("vc1", "text", "u1", nil)
	assert.ErrorIs(t, err, ErrAlreadyPlaying)
}

func TestPlayJoinFailureResetsToIdle(t *testing.T) {
	env := newTestEnv()
	env.transport.joinErr = errors.New("missing connect permission")
	sess := env.registry.GetOrCreate("g1")

	_, err := sess.Play("vc1", "text", "u1", testSong("alpha", 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing connect permission")

	assert.Equal(t, StateIdle, sess.State())
	assert.Nil(t, sess.Queue())

	// The session must be retryable after a failed join
	env.transport.joinErr = nil
	_, err = sess.Play("vc1", "text", "u1", testSong("alpha", 0))
	require.NoError(t, err)
	require.NotNil(t, env.waitStarted())
}

func TestFinishedStreamAdvancesQueue(t *testing.T) {
	env := newTestEnv()
	sess := env.registry.GetOrCreate("g1")

	_, err := sess.Play("vc1", "text", "u1", testSong("alpha", 0))
	require.NoError(t, err)
	_, err = sess.Play("vc1", "text", "u1", testSong("beta", 0))
	require.NoError(t, err)

	first := env.waitStarted()
	require.NotNil(t, first)
	assert.Equal(t, "alpha", first.ID)

	env.finishStream(nil)

	second := env.waitStarted()
	require.NotNil(t, second)
	assert.Equal(t, "beta", second.ID)
	assert.Equal(t, 1, sess.Queue().Len())
	assert.False(t, env.transport.sentContaining("ended earlier"))
}

func TestSkipSuppressesEarlyFinishWarning(t *testing.T) {
	env := newTestEnv()
	sess := env.registry.GetOrCreate("g1")

	// Both declare five minutes; both end within milliseconds.
	_, err := sess.Play("vc1", "text", "u1", testSong("alpha", 300))
	require.NoError(t, err)
	_, err = sess.Play("vc1", "text", "u1", testSong("beta", 300))
	require.NoError(t, err)
	require.NotNil(t, env.waitStarted())

	require.NoError(t, sess.Skip())

	second := env.waitStarted()
	require.NotNil(t, second)
	assert.Equal(t, "beta", second.ID)
	assert.False(t, env.transport.sentContaining("ended earlier"), "a skipped stream is expected to end early")

	// The flag is one-shot: the next early finish warns again.
	env.finishStream(nil)
	assert.True(t, waitFor(func() bool {
		return env.transport.sentContaining("ended earlier")
	}))
}

func TestSkipWhileIdle(t *testing.T) {
	env := newTestEnv()
	sess := env.registry.GetOrCreate("g1")
	assert.ErrorIs(t, sess.Skip(), ErrNotPlaying)
}

func TestStreamErrorAdvancesRegardlessOfLoopMode(t *testing.T) {
	env := newTestEnv()
	sess := env.registry.GetOrCreate("g1")

	_, err := sess.Play("vc1", "text", "u1", testSong("alpha", 0))
	require.NoError(t, err)
	_, err = sess.Play("vc1", "text", "u1", testSong("beta", 0))
	require.NoError(t, err)
	sess.SetLoopMode(queue.LoopList)
	require.NotNil(t, env.waitStarted())

	env.finishStream(errors.New("connection reset"))

	second := env.waitStarted()
	require.NotNil(t, second)
	assert.Equal(t, "beta", second.ID)
	// List mode would have rotated alpha to the back; the error drops it.
	assert.Equal(t, 1, sess.Queue().Len())
	assert.True(t, env.transport.sentContaining("Playback error"))
}

func TestAudioFetchFailureDropsSong(t *testing.T) {
	env := newTestEnv()
	env.resolver.audioErr["beta"] = true
	sess := env.registry.GetOrCreate("g1")

	_, err := sess.Play("vc1", "text", "u1", testSong("alpha", 0))
	require.NoError(t, err)
	_, err = sess.Play("vc1", "text", "u1", testSong("beta", 0))
	require.NoError(t, err)
	_, err = sess.Play("vc1", "text", "u1", testSong("gamma", 0))
	require.NoError(t, err)
	require.NotNil(t, env.waitStarted())

	env.finishStream(nil)

	// beta never reaches the player
	second := env.waitStarted()
	require.NotNil(t, second)
	assert.Equal(t, "gamma", second.ID)
	assert.True(t, env.transport.sentContaining("Couldn't play"))
}

func TestEmptyQueueFallsBackToCataloguePick(t *testing.T) {
	env := newTestEnv()
	env.catalog.randomIDs = []string{"broken", "golden"}
	env.resolver.failIDs["broken"] = true
	env.resolver.songs["golden"] = testSong("golden", 0)
	sess := env.registry.GetOrCreate("g1")

	added, err := sess.Play("vc1", "text", "u1", nil)
	require.NoError(t, err)
	assert.False(t, added)

	started := env.waitStarted()
	require.NotNil(t, started)
	assert.Equal(t, "golden", started.ID)

	env.catalog.mu.Lock()
	defer env.catalog.mu.Unlock()
	assert.Equal(t, 1, env.catalog.picks["golden"])
}

func TestExhaustedCatalogueTearsDown(t *testing.T) {
	env := newTestEnv()
	sess := env.registry.GetOrCreate("g1")

	_, err := sess.Play("vc1", "text", "u1", nil)
	require.NoError(t, err)

	assert.True(t, waitFor(func() bool {
		return sess.State() == StateIdle
	}))
	assert.True(t, waitFor(func() bool {
		_, ok := env.registry.Get("g1")
		return !ok
	}))
	assert.True(t, env.transport.voiceConn().wasDisconnected())
}

func TestTeardownResetsEverything(t *testing.T) {
	env := newTestEnv()
	sess := env.registry.GetOrCreate("g1")

	_, err := sess.Play("vc1", "text", "u1", testSong("alpha", 0))
	require.NoError(t, err)
	require.NotNil(t, env.waitStarted())
	sess.SetLoopMode(queue.LoopSingle)

	sess.Teardown("test")

	assert.Equal(t, StateIdle, sess.State())
	assert.Nil(t, sess.Queue())
	assert.Equal(t, "", sess.SummonerID())
	assert.Equal(t, queue.LoopNone, sess.LoopMode())
	assert.True(t, env.transport.voiceConn().wasDisconnected())
	_, ok := env.registry.Get("g1")
	assert.False(t, ok)
}

func TestBotVoiceDisconnectTearsDown(t *testing.T) {
	env := newTestEnv()
	sess := env.registry.GetOrCreate("g1")

	_, err := sess.Play("vc1", "text", "u1", testSong("alpha", 0))
	require.NoError(t, err)
	require.NotNil(t, env.waitStarted())

	sess.HandleVoiceMembershipChange("bot", "vc1", "")

	assert.Equal(t, StateIdle, sess.State())
	_, ok := env.registry.Get("g1")
	assert.False(t, ok)
}

func TestNowPlaying(t *testing.T) {
	env := newTestEnv()
	sess := env.registry.GetOrCreate("g1")

	_, _, _, err := sess.NowPlaying()
	assert.ErrorIs(t, err, ErrNotPlaying)

	_, err = sess.Play("vc1", "text", "u1", testSong("alpha", 300))
	require.NoError(t, err)
	require.NotNil(t, env.waitStarted())

	head, elapsed, songs, err := sess.NowPlaying()
	require.NoError(t, err)
	assert.Equal(t, "alpha", head.ID)
	assert.GreaterOrEqual(t, elapsed.Nanoseconds(), int64(0))
	assert.Len(t, songs, 1)
}

func TestVolumePersistsThroughSettings(t *testing.T) {
	env := newTestEnv()
	sess := env.registry.GetOrCreate("g1")

	assert.Equal(t, 100, sess.Volume())
	sess.SetVolume(40)
	assert.Equal(t, 40, sess.Volume())

	// A fresh session for the guild rehydrates the stored volume
	env.registry.Remove("g1")
	fresh := env.registry.GetOrCreate("g1")
	assert.Equal(t, 40, fresh.Volume())
}

func TestRegistryGetOrCreateIsStable(t *testing.T) {
	env := newTestEnv()

	a := env.registry.GetOrCreate("g1")
	b := env.registry.GetOrCreate("g1")
	assert.Same(t, a, b)

	_, ok := env.registry.Get("g2")
	assert.False(t, ok)

	env.registry.Remove("g1")
	_, ok = env.registry.Get("g1")
	assert.False(t, ok)
}

func TestRegistryNotBlockedBySettingsLoad(t *testing.T) {
	env := newTestEnv()

	// A settings read that turns around and hits the registry must not
	// deadlock: the store runs outside the registry lock.
	env.catalog.onLoad = func() {
		_, ok := env.registry.Get("g2")
		assert.False(t, ok)
	}

	sess := env.registry.GetOrCreate("g1")
	assert.Equal(t, 100, sess.Volume())
}
