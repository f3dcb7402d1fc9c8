package yt

import (
	"testing"

	"Nocturne/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlatOutput(t *testing.T) {
	out := []byte(`{"id":"abc","title":"First","channel":"Chan","duration":213.4}
not json
{"id":"def","title":"Second","uploader":"Up","duration":61}

{"title":"no id, skipped"}`)

	entries := parseFlatOutput(out)
	require.Len(t, entries, 2)

	assert.Equal(t, "abc", entries[0].ID)
	assert.Equal(t, "First", entries[0].Title)
	assert.Equal(t, "def", entries[1].ID)
}

func TestSongFromFlatEntry(t *testing.T) {
	song := songFromFlatEntry(flatEntry{
		ID:       "abc",
		Title:    "First",
		Channel:  "Chan",
		Duration: 213.4,
	}, queue.SourceYouTube)

	assert.Equal(t, "abc", song.ID)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", song.SourceURL)
	assert.Equal(t, "Chan", song.ChannelName)
	assert.Equal(t, 213, song.DurationSeconds)
	assert.Equal(t, queue.SourceYouTube, song.Source)
}

func TestSongFromFlatEntry_UploaderFallback(t *testing.T) {
	song := songFromFlatEntry(flatEntry{
		ID:         "sc1",
		Title:      "Track",
		Uploader:   "Artist",
		WebpageURL: "https://soundcloud.com/artist/track",
		Duration:   120,
	}, queue.SourceSoundCloud)

	assert.Equal(t, "Artist", song.ChannelName)
	assert.Equal(t, "https://soundcloud.com/artist/track", song.SourceURL)
	assert.Equal(t, queue.SourceSoundCloud, song.Source)
}

func TestIsSoundCloudURL(t *testing.T) {
	assert.True(t, IsSoundCloudURL("https://soundcloud.com/artist/track"))
	assert.False(t, IsSoundCloudURL("https://www.youtube.com/watch?v=abc"))
	assert.False(t, IsSoundCloudURL("dQw4w9WgXcQ"))
}
