package session

import (
	"errors"

	"Nocturne/queue"

	"github.com/bwmarrin/discordgo"
)

var (
	ErrNotPlaying     = errors.New("no song is currently playing")
	ErrAlreadyPlaying = errors.New("a session is already active for this guild")
	ErrCatalogueEmpty = errors.New("catalogue has no songs to pick from")
)

// MessageRef identifies a message for later edit, reaction or deletion
type MessageRef struct {
	ChannelID string
	MessageID string
}

// VoiceConn is the session's handle on a live voice connection
type VoiceConn interface {
	ChannelID() string
	Move(channelID string) error
	Disconnect() error
}

// Transport is the slice of the chat client the session layer needs. The
// concrete implementation wraps *discordgo.Session; tests use fakes.
type Transport interface {
	SendMessage(channelID, content string) (MessageRef, error)
	SendEmbed(channelID string, embed *discordgo.MessageEmbed) (MessageRef, error)
	EditMessage(ref MessageRef, content string) error
	EditEmbed(ref MessageRef, embed *discordgo.MessageEmbed) error
	DeleteMessage(ref MessageRef) error
	React(ref MessageRef, emoji string) error
	ClearReactions(ref MessageRef) error
	JoinVoice(guildID, channelID string) (VoiceConn, error)
	// ChannelOccupants returns the user IDs currently in a voice channel,
	// the bot included when connected.
	ChannelOccupants(guildID, channelID string) ([]string, error)
	HasElevatedRole(guildID, userID, roleID string) bool
	BotUserID() string
}

// Resolver turns URLs, catalogue identifiers and keywords into songs and
// makes their audio available for streaming.
type Resolver interface {
	Resolve(query, requestedBy string) (*queue.Song, error)
	Search(keyword, requestedBy string, limit int) ([]*queue.Song, error)
	ResolvePlaylist(url, requestedBy string) ([]*queue.Song, error)
	// EnsureAudio makes the song's audio locally available and returns the
	// file path to stream from.
	EnsureAudio(song *queue.Song) (string, error)
}

// GuildSettings is the per-guild configuration the persistence layer stores
type GuildSettings struct {
	Volume           int
	CommandChannelID string
	ElevatedRoleID   string
}

// Catalog is the persistence collaborator. All of it is best-effort from the
// session's point of view; failures never block playback.
type Catalog interface {
	EnsureCatalogued(guildID string, song *queue.Song) error
	IncrementPlayCount(guildID, songID string) error
	IncrementPickCount(guildID, songID string) error
	RandomSongID(guildID string) (string, error)
	LoadSettings(guildID string) (GuildSettings, error)
	SaveSettings(guildID string, settings GuildSettings) error
}

// StreamPlayer streams one song's audio to a voice connection. Play blocks
// until the stream finishes, errors, or Stop is called; Stop causes Play to
// return nil.
type StreamPlayer interface {
	Play(vc VoiceConn, filename string, song *queue.Song, volume int) error
	Stop()
}
