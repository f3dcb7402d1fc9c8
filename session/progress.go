package session

import (
	"fmt"
	"sync"
	"time"

	"Nocturne/queue"
	"Nocturne/utils"

	"github.com/Strum355/log"
	"github.com/bwmarrin/discordgo"
	"github.com/go-co-op/gocron/v2"
	"github.com/spf13/viper"
)

// ProgressScheduler owns the periodic now-playing refresh jobs, at most one
// per session. It wraps a single process-wide gocron scheduler.
type ProgressScheduler struct {
	sched gocron.Scheduler
	mu    sync.Mutex
	jobs  map[string]gocron.Job
}

// NewProgressScheduler creates and starts the scheduler
func NewProgressScheduler() (*ProgressScheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	sched.Start()
	return &ProgressScheduler{
		sched: sched,
		jobs:  map[string]gocron.Job{},
	}, nil
}

// Start schedules a repeating tick for the guild, replacing any live one
func (p *ProgressScheduler) Start(guildID string, every time.Duration, tick func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if job, ok := p.jobs[guildID]; ok {
		if err := p.sched.RemoveJob(job.ID()); err != nil {
			log.WithError(err).WithFields(log.Fields{"guild_id": guildID}).Error("Failed to replace progress job")
		}
		delete(p.jobs, guildID)
	}

	job, err := p.sched.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(tick),
	)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{"guild_id": guildID}).Error("Failed to schedule progress job")
		return
	}
	p.jobs[guildID] = job
}

// Stop cancels the guild's tick, if one is live
func (p *ProgressScheduler) Stop(guildID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	job, ok := p.jobs[guildID]
	if !ok {
		return
	}
	if err := p.sched.RemoveJob(job.ID()); err != nil {
		log.WithError(err).WithFields(log.Fields{"guild_id": guildID}).Error("Failed to remove progress job")
	}
	delete(p.jobs, guildID)
}

// Shutdown stops the underlying scheduler and every job on it
func (p *ProgressScheduler) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.sched.Shutdown(); err != nil {
		log.WithError(err).Error("Failed to shut down progress scheduler")
	}
	p.jobs = map[string]gocron.Job{}
}

// publishNowPlaying posts (or replaces) the session's now-playing display and
// arms the progress ticker for it.
func (s *PlaybackSession) publishNowPlaying(song *queue.Song) {
	s.mu.Lock()
	channelID := s.textChannelID
	old := s.npMessage
	s.mu.Unlock()

	if channelID == "" {
		return
	}
	if old != nil {
		if err := s.transport.DeleteMessage(*old); err != nil {
			log.WithError(err).Error("Failed to delete stale now-playing message")
		}
	}

	ref, err := s.transport.SendEmbed(channelID, s.nowPlayingEmbed(song, 0))
	if err != nil {
		log.WithError(err).WithFields(log.Fields{"guild_id": s.guildID}).Error("Failed to post now-playing message")
		return
	}

	s.mu.Lock()
	s.npMessage = &ref
	s.mu.Unlock()

	s.progress.Start(s.guildID, s.tickEvery, s.progressTick)
}

// progressTick refreshes the now-playing display. Any reason it can't — the
// display reference gone, the song gone, an edit failure — stops the ticker
// instead of retrying.
func (s *PlaybackSession) progressTick() {
	s.mu.Lock()
	if s.state != StatePlaying || s.npMessage == nil || s.queue == nil {
		s.mu.Unlock()
		s.progress.Stop(s.guildID)
		return
	}
	ref := *s.npMessage
	head := s.queue.Head()
	elapsed := time.Since(s.songStart)
	s.mu.Unlock()

	if head == nil {
		s.progress.Stop(s.guildID)
		return
	}

	if err := s.transport.EditEmbed(ref, s.nowPlayingEmbed(head, elapsed)); err != nil {
		log.WithError(err).WithFields(log.Fields{"guild_id": s.guildID}).Error("Now-playing edit failed, stopping ticker")
		s.mu.Lock()
		s.npMessage = nil
		s.mu.Unlock()
		s.progress.Stop(s.guildID)
	}
}

// nowPlayingEmbed renders the display for a song at a given elapsed offset
func (s *PlaybackSession) nowPlayingEmbed(song *queue.Song, elapsed time.Duration) *discordgo.MessageEmbed {
	elapsedSecs := int(elapsed.Seconds()) + song.StartOffsetSeconds
	if song.DurationSeconds > 0 && elapsedSecs > song.DurationSeconds {
		elapsedSecs = song.DurationSeconds
	}

	return &discordgo.MessageEmbed{
		Title: "🎵 Now Playing: " + song.Title,
		URL:   song.SourceURL,
		Description: fmt.Sprintf("%s\n`%s / %s`\nRequested by: <@%s>",
			utils.ProgressBar(elapsedSecs, song.DurationSeconds, 20),
			utils.FormatSongDuration(elapsedSecs),
			utils.FormatSongDuration(song.DurationSeconds),
			song.RequestedBy,
		),
		Thumbnail: &discordgo.MessageEmbedThumbnail{URL: song.ThumbnailURL},
		Footer:    &discordgo.MessageEmbedFooter{Text: song.ChannelName + " · " + song.Source.String()},
		Color:     viper.GetInt("theme"),
	}
}
