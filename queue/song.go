package queue

// Source identifies where a song's audio comes from
type Source int

const (
	SourceYouTube Source = iota
	SourceSoundCloud
)

// String returns the human readable name of the source
func (s Source) String() string {
	switch s {
	case SourceSoundCloud:
		return "SoundCloud"
	default:
		return "YouTube"
	}
}

// Song is an immutable description of a playable track
type Song struct {
	ID                 string // Source-specific video/track identifier
	Title              string // Display title
	SourceURL          string // Canonical URL of the track
	ChannelName        string // Uploader / author channel name
	ThumbnailURL       string // Thumbnail image URL
	DurationSeconds    int    // Declared length in whole seconds
	RequestedBy        string // User ID of the requesting member
	Source             Source // Which platform the track comes from
	StartOffsetSeconds int    // Playback start offset, usually 0
}

// Hours returns the whole-hour component of the song duration
func (s *Song) Hours() int {
	return s.DurationSeconds / 3600
}

// Minutes returns the minute component of the song duration
func (s *Song) Minutes() int {
	return (s.DurationSeconds % 3600) / 60
}

// Seconds returns the second component of the song duration
func (s *Song) Seconds() int {
	return s.DurationSeconds % 60
}
