package yt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"Nocturne/queue"
	"Nocturne/redis_client"

	"github.com/Strum355/log"
	"github.com/kkdai/youtube/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// Resolver turns URLs, video IDs and keywords into songs, with song metadata
// cached in Redis.
type Resolver struct {
	client    youtube.Client
	redis     *redis.Client
	cacheMeta time.Duration
}

// NewResolver creates a Resolver backed by the given Redis cache
func NewResolver(rdb *redis.Client) *Resolver {
	return &Resolver{
		redis:     rdb,
		cacheMeta: time.Duration(viper.GetInt("cache.youtube")) * time.Second,
	}
}

// Resolve maps a URL or bare video identifier to a song
func (r *Resolver) Resolve(query, requestedBy string) (*queue.Song, error) {
	if IsSoundCloudURL(query) {
		return r.resolveSoundCloud(query, requestedBy)
	}

	videoID := query
	if id, err := youtube.ExtractVideoID(query); err == nil {
		videoID = id
	}

	song, err := r.videoMetadata(videoID)
	if err != nil {
		return nil, err
	}
	song.RequestedBy = requestedBy
	return song, nil
}

// videoMetadata fetches song metadata for a YouTube video ID, trying the
// Redis cache first.
func (r *Resolver) videoMetadata(videoID string) (*queue.Song, error) {
	cached, err := r.redis.Get(redis_client.Ctx, "song:"+videoID).Result()
	if err == nil && cached != "" {
		var song queue.Song
		if err := json.Unmarshal([]byte(cached), &song); err == nil {
			return &song, nil
		}
	}

	video, err := r.client.GetVideo("https://www.youtube.com/watch?v=" + videoID)
	if err != nil {
		return nil, err
	}
	song := songFromVideo(video)

	data, _ := json.Marshal(song)
	r.redis.Set(redis_client.Ctx, "song:"+videoID, data, r.cacheMeta)

	return song, nil
}

// songFromVideo maps kkdai video metadata to the queue's song shape
func songFromVideo(v *youtube.Video) *queue.Song {
	thumbnail := ""
	if len(v.Thumbnails) > 0 {
		thumbnail = v.Thumbnails[0].URL
	}
	return &queue.Song{
		ID:              v.ID,
		Title:           v.Title,
		SourceURL:       "https://www.youtube.com/watch?v=" + v.ID,
		ChannelName:     v.Author,
		ThumbnailURL:    thumbnail,
		DurationSeconds: int(v.Duration.Seconds()),
		Source:          queue.SourceYouTube,
	}
}

// IsSoundCloudURL reports whether a query points at SoundCloud
func IsSoundCloudURL(query string) bool {
	return strings.Contains(query, "soundcloud.com/")
}

// resolveSoundCloud shells out to yt-dlp for SoundCloud metadata, same
// fallback tool the YouTube download path uses.
func (r *Resolver) resolveSoundCloud(url, requestedBy string) (*queue.Song, error) {
	entry, err := probeURL(url)
	if err != nil {
		return nil, err
	}
	song := songFromFlatEntry(entry, queue.SourceSoundCloud)
	song.SourceURL = url
	song.RequestedBy = requestedBy
	return song, nil
}

// Search runs a bounded keyword search and returns candidate songs
func (r *Resolver) Search(keyword, requestedBy string, limit int) ([]*queue.Song, error) {
	if limit <= 0 {
		limit = 5
	}

	entries, err := flatQuery(fmt.Sprintf("ytsearch%d:%s", limit, keyword))
	if err != nil {
		return nil, err
	}

	songs := make([]*queue.Song, 0, len(entries))
	for _, entry := range entries {
		song := songFromFlatEntry(entry, queue.SourceYouTube)
		song.RequestedBy = requestedBy
		songs = append(songs, song)
	}
	return songs, nil
}

// ResolvePlaylist expands a playlist URL into its songs, in playlist order.
// Entries that fail to resolve are logged and skipped.
func (r *Resolver) ResolvePlaylist(url, requestedBy string) ([]*queue.Song, error) {
	entries, err := flatQuery(url)
	if err != nil {
		return nil, err
	}

	songs := make([]*queue.Song, 0, len(entries))
	for _, entry := range entries {
		song, err := r.videoMetadata(entry.ID)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{"video_id": entry.ID}).Error("Skipping unresolvable playlist entry")
			continue
		}
		song.RequestedBy = requestedBy
		songs = append(songs, song)
	}
	return songs, nil
}
