package session

import (
	"sync"
	"time"

	"Nocturne/queue"

	"github.com/Strum355/log"
)

// State is the lifecycle phase of a guild's playback session
type State int

const (
	StateIdle       State = iota // No connection, no queue
	StateConnecting              // Voice join in flight
	StatePlaying                 // Stream active
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StatePlaying:
		return "playing"
	default:
		return "idle"
	}
}

// earlyFinishSlack is how far short of the declared duration a stream may end
// before the completion is considered unexpected.
const earlyFinishSlack = 3 * time.Second

const defaultVolume = 100

// PlaybackSession coordinates one guild's voice connection, queue, loop mode
// and open prompts. All field mutation goes through s.mu; blocking collaborator
// calls (voice join, audio fetch, streaming) happen outside the lock.
type PlaybackSession struct {
	guildID string

	mu            sync.Mutex
	state         State
	queue         *queue.Queue
	vc            VoiceConn
	loopMode      queue.LoopMode
	skipRequested bool
	songStart     time.Time
	summonerID    string
	textChannelID string
	npMessage     *MessageRef
	pending       map[string]PendingInteraction
	volume        int

	transport Transport
	resolver  Resolver
	catalog   Catalog
	player    StreamPlayer
	progress  *ProgressScheduler
	tickEvery time.Duration
	registry  *Registry
}

func newSession(guildID string, r *Registry) *PlaybackSession {
	s := &PlaybackSession{
		guildID:   guildID,
		pending:   map[string]PendingInteraction{},
		volume:    defaultVolume,
		transport: r.deps.Transport,
		resolver:  r.deps.Resolver,
		catalog:   r.deps.Catalog,
		player:    r.deps.NewPlayer(),
		progress:  r.deps.Progress,
		tickEvery: r.deps.ProgressInterval,
		registry:  r,
	}
	return s
}

// loadStoredVolume picks up the guild's saved volume. Called from GetOrCreate
// after the registry lock is released; the catalog read can block.
func (s *PlaybackSession) loadStoredVolume() {
	settings, err := s.catalog.LoadSettings(s.guildID)
	if err != nil || settings.Volume <= 0 {
		return
	}
	s.mu.Lock()
	s.volume = settings.Volume
	s.mu.Unlock()
}

// State returns the current lifecycle phase
func (s *PlaybackSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Queue returns the live queue, or nil while idle
func (s *PlaybackSession) Queue() *queue.Queue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue
}

// SummonerID returns the member attributed with the current voice connection
func (s *PlaybackSession) SummonerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summonerID
}

// LoopMode returns the active loop mode
func (s *PlaybackSession) LoopMode() queue.LoopMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loopMode
}

// SetLoopMode switches the loop mode, effective from the next advance
func (s *PlaybackSession) SetLoopMode(mode queue.LoopMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loopMode = mode
}

// Volume returns the session volume in percent
func (s *PlaybackSession) Volume() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// SetVolume stores the volume and persists it best-effort. It applies from
// the next stream.
func (s *PlaybackSession) SetVolume(volume int) {
	s.mu.Lock()
	s.volume = volume
	s.mu.Unlock()

	settings, err := s.catalog.LoadSettings(s.guildID)
	if err != nil {
		settings = GuildSettings{}
	}
	settings.Volume = volume
	if err := s.catalog.SaveSettings(s.guildID, settings); err != nil {
		log.WithError(err).WithFields(log.Fields{"guild_id": s.guildID}).Error("Failed to persist volume")
	}
}

// Play handles a play request. With a live queue it only appends; from idle it
// joins voice first. A nil song from idle falls back to a random catalogue
// pick; a nil song while playing is rejected.
func (s *PlaybackSession) Play(voiceChannelID, textChannelID, requesterID string, song *queue.Song) (added bool, err error) {
	s.mu.Lock()
	s.textChannelID = textChannelID

	// Live queue means a join is outstanding or a stream is active; never
	// re-join, only append.
	if s.queue != nil {
		if song == nil {
			s.mu.Unlock()
			return false, ErrAlreadyPlaying
		}
		s.queue.Enqueue(song)
		s.mu.Unlock()
		if cErr := s.catalog.EnsureCatalogued(s.guildID, song); cErr != nil {
			log.WithError(cErr).WithFields(log.Fields{"song_id": song.ID}).Error("Failed to catalogue song")
		}
		return true, nil
	}

	s.state = StateConnecting
	s.queue = queue.New()
	if song != nil {
		s.queue.Enqueue(song)
	}
	s.mu.Unlock()

	vc, joinErr := s.transport.JoinVoice(s.guildID, voiceChannelID)

	s.mu.Lock()
	if joinErr != nil {
		s.state = StateIdle
		s.queue = nil
		s.mu.Unlock()
		return false, joinErr
	}
	if s.state != StateConnecting {
		// Torn down while the join was in flight
		s.mu.Unlock()
		vc.Disconnect()
		return false, nil
	}
	s.vc = vc
	s.summonerID = requesterID
	s.state = StatePlaying
	s.mu.Unlock()

	if song != nil {
		if cErr := s.catalog.EnsureCatalogued(s.guildID, song); cErr != nil {
			log.WithError(cErr).WithFields(log.Fields{"song_id": song.ID}).Error("Failed to catalogue song")
		}
	}

	go s.run()
	return false, nil
}

// Skip requests the current stream to end. The resulting finished signal sees
// the flag and suppresses the unexpected-completion warning.
func (s *PlaybackSession) Skip() error {
	s.mu.Lock()
	if s.state != StatePlaying {
		s.mu.Unlock()
		return ErrNotPlaying
	}
	s.skipRequested = true
	s.mu.Unlock()

	s.player.Stop()
	return nil
}

// NowPlaying returns the head, its elapsed play time and a copy of the queue
func (s *PlaybackSession) NowPlaying() (*queue.Song, time.Duration, []*queue.Song, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePlaying || s.queue == nil {
		return nil, 0, nil, ErrNotPlaying
	}
	head := s.queue.Head()
	if head == nil {
		return nil, 0, nil, ErrNotPlaying
	}
	return head, time.Since(s.songStart), s.queue.Songs(), nil
}

// run is the playback loop: exactly one per session, started on a successful
// join. Each iteration streams the head, then decides the queue advance from
// the finish signal.
func (s *PlaybackSession) run() {
	for {
		s.mu.Lock()
		if s.state != StatePlaying || s.queue == nil {
			s.mu.Unlock()
			return
		}
		head := s.queue.Head()
		q := s.queue
		vc := s.vc
		volume := s.volume
		s.mu.Unlock()

		if head == nil {
			head = s.pickFallback()
			if head == nil {
				s.Teardown("catalogue exhausted")
				return
			}
			q.Enqueue(head)
		}

		filename, err := s.resolver.EnsureAudio(head)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"guild_id": s.guildID,
				"song_id":  head.ID,
			}).Error("Failed to fetch audio, dropping song")
			s.notify("⚠️ Couldn't play **" + head.Title + "**, skipping it.")
			q.Advance(queue.LoopNone)
			continue
		}

		s.mu.Lock()
		if s.state != StatePlaying {
			s.mu.Unlock()
			return
		}
		s.songStart = time.Now()
		s.mu.Unlock()

		if err := s.catalog.IncrementPlayCount(s.guildID, head.ID); err != nil {
			log.WithError(err).WithFields(log.Fields{"song_id": head.ID}).Error("Failed to bump play count")
		}
		s.publishNowPlaying(head)

		streamErr := s.player.Play(vc, filename, head, volume)

		s.mu.Lock()
		if s.state != StatePlaying {
			s.mu.Unlock()
			return
		}
		skipped := s.skipRequested
		s.skipRequested = false
		elapsed := time.Since(s.songStart)
		s.mu.Unlock()

		if streamErr != nil {
			// An errored song is never retried or repeated, whatever the
			// loop mode says.
			log.WithError(streamErr).WithFields(log.Fields{
				"guild_id": s.guildID,
				"song_id":  head.ID,
			}).Error("Stream failed mid-play")
			s.notify("❌ Playback error on **" + head.Title + "**, moving on.")
			q.Advance(queue.LoopNone)
			continue
		}

		declared := time.Duration(head.DurationSeconds) * time.Second
		if !skipped && declared > 0 && elapsed < declared-earlyFinishSlack {
			log.WithFields(log.Fields{
				"guild_id":     s.guildID,
				"song_id":      head.ID,
				"elapsed_secs": int(elapsed.Seconds()),
				"declared":     head.DurationSeconds,
			}).Warn("Stream finished unexpectedly early")
			s.notify("⚠️ **" + head.Title + "** ended earlier than expected.")
		}

		q.Advance(s.LoopMode())
	}
}

// pickFallback draws random catalogue entries until one resolves. Resolution
// failures log the offending identifier and redraw; only an empty catalogue
// ends the loop.
func (s *PlaybackSession) pickFallback() *queue.Song {
	for {
		id, err := s.catalog.RandomSongID(s.guildID)
		if err != nil || id == "" {
			if err != nil {
				log.WithError(err).WithFields(log.Fields{"guild_id": s.guildID}).Error("Random catalogue pick failed")
			}
			return nil
		}

		song, err := s.resolver.Resolve(id, s.transport.BotUserID())
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"guild_id": s.guildID,
				"song_id":  id,
			}).Error("Fallback pick failed to resolve, redrawing")
			continue
		}

		if err := s.catalog.IncrementPickCount(s.guildID, song.ID); err != nil {
			log.WithError(err).WithFields(log.Fields{"song_id": song.ID}).Error("Failed to bump pick count")
		}
		return song
	}
}

// Teardown resets the session to idle: every field cleared, the progress
// ticker cancelled, open prompts orphaned, the voice connection dropped and
// the session removed from the registry.
func (s *PlaybackSession) Teardown(reason string) {
	s.mu.Lock()
	s.state = StateIdle
	s.queue = nil
	vc := s.vc
	s.vc = nil
	s.loopMode = queue.LoopNone
	s.skipRequested = false
	s.songStart = time.Time{}
	s.summonerID = ""
	s.npMessage = nil
	orphaned := s.pending
	s.pending = map[string]PendingInteraction{}
	s.mu.Unlock()

	s.progress.Stop(s.guildID)
	s.player.Stop()

	for _, p := range orphaned {
		if v, ok := p.(*VoteRequest); ok {
			s.closeVotePrompt(v, "Vote cancelled: session ended.")
		}
	}

	if vc != nil {
		vc.Disconnect()
	}
	s.registry.Remove(s.guildID)

	log.WithFields(log.Fields{
		"guild_id": s.guildID,
		"reason":   reason,
	}).Info("Session torn down")
}

// HandleVoiceMembershipChange feeds a voice-state transition into the session:
// the bot's own disconnect tears the session down, the bot moving invalidates
// stale leave votes, and member moves re-evaluate open votes.
func (s *PlaybackSession) HandleVoiceMembershipChange(userID, oldChannelID, newChannelID string) {
	if userID == s.transport.BotUserID() {
		if newChannelID == "" {
			s.Teardown("voice disconnect")
			return
		}
		s.handleBotMoved(newChannelID)
		return
	}
	s.handleMemberMoved(userID, oldChannelID, newChannelID)
}

// notify sends a best-effort message to the session's text channel
func (s *PlaybackSession) notify(content string) {
	s.mu.Lock()
	channelID := s.textChannelID
	s.mu.Unlock()

	if channelID == "" {
		return
	}
	if _, err := s.transport.SendMessage(channelID, content); err != nil {
		log.WithError(err).WithFields(log.Fields{"guild_id": s.guildID}).Error("Failed to notify channel")
	}
}
