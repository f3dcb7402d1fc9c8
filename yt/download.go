package yt

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/exec"
	"time"

	"Nocturne/queue"
	"Nocturne/redis_client"
	"Nocturne/utils"

	"github.com/spf13/viper"
)

// EnsureAudio makes a song's audio locally available and returns the cache
// path to stream from. Already-cached files are reused; each ensure refreshes
// the Redis liveness key the cache sweeper checks.
func (r *Resolver) EnsureAudio(song *queue.Song) (string, error) {
	filename := utils.AudioFilePath(song.ID)

	ttl := time.Duration(viper.GetInt("cache.audio")) * time.Second
	r.redis.Set(redis_client.Ctx, "audio:"+song.ID, true, ttl)

	if _, err := os.Stat(filename); err == nil {
		return filename, nil
	}

	if err := os.MkdirAll(utils.CacheDir, 0755); err != nil {
		return "", err
	}

	if song.Source == queue.SourceYouTube {
		if err := r.directDownload(song.ID, filename); err == nil {
			return filename, nil
		}
	}

	// yt-dlp handles SoundCloud and the YouTube formats the direct client
	// chokes on.
	if err := ytdlpDownload(song.SourceURL, filename); err != nil {
		return "", err
	}
	return filename, nil
}

// directDownload copies the best audio stream straight from YouTube
func (r *Resolver) directDownload(videoID, filename string) error {
	video, err := r.client.GetVideo("https://www.youtube.com/watch?v=" + videoID)
	if err != nil {
		return err
	}

	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return errors.New("no audio formats available")
	}

	stream, _, err := r.client.GetStream(video, &formats[0])
	if err != nil {
		return err
	}
	defer stream.Close()

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := io.Copy(file, stream); err != nil {
		os.Remove(filename)
		return err
	}
	return nil
}

// ytdlpDownload fetches audio with the yt-dlp binary
func ytdlpDownload(url, filename string) error {
	cmd := exec.Command("yt-dlp",
		"-f", "bestaudio[ext=opus]/bestaudio",
		"-o", filename,
		url,
	)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		return errors.New(stderr.String())
	}
	return nil
}

// flatEntry is one line of yt-dlp's flat JSON output
type flatEntry struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	WebpageURL string  `json:"webpage_url"`
	Uploader   string  `json:"uploader"`
	Channel    string  `json:"channel"`
	Duration   float64 `json:"duration"`
	Thumbnail  string  `json:"thumbnail"`
}

// flatQuery runs yt-dlp in flat-playlist mode and parses one entry per line
func flatQuery(query string) ([]flatEntry, error) {
	cmd := exec.Command("yt-dlp", "-j", "--flat-playlist", query)
	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}
	return parseFlatOutput(out), nil
}

// probeURL fetches full metadata for a single URL
func probeURL(url string) (flatEntry, error) {
	cmd := exec.Command("yt-dlp", "-j", url)
	out, err := cmd.Output()
	if err != nil {
		return flatEntry{}, err
	}

	var entry flatEntry
	if err := json.Unmarshal(out, &entry); err != nil {
		return flatEntry{}, err
	}
	return entry, nil
}

// parseFlatOutput decodes newline-delimited JSON entries, skipping junk lines
func parseFlatOutput(out []byte) []flatEntry {
	var entries []flatEntry
	for _, line := range bytes.Split(out, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var entry flatEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		if entry.ID == "" {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

// songFromFlatEntry maps a yt-dlp entry to the queue's song shape
func songFromFlatEntry(entry flatEntry, source queue.Source) *queue.Song {
	url := entry.WebpageURL
	if url == "" {
		url = entry.URL
	}
	if url == "" && source == queue.SourceYouTube {
		url = "https://www.youtube.com/watch?v=" + entry.ID
	}

	channel := entry.Channel
	if channel == "" {
		channel = entry.Uploader
	}

	return &queue.Song{
		ID:              entry.ID,
		Title:           entry.Title,
		SourceURL:       url,
		ChannelName:     channel,
		ThumbnailURL:    entry.Thumbnail,
		DurationSeconds: int(entry.Duration),
		Source:          source,
	}
}
