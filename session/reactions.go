package session

import (
	"github.com/Strum355/log"

	"Nocturne/queue"
)

// NumberEmojis are the selection affordances on search prompts, in order
var NumberEmojis = []string{"1️⃣", "2️⃣", "3️⃣", "4️⃣", "5️⃣"}

// HandleReactionAdd routes a reaction to the prompt it belongs to, if any.
// Reactions on unknown messages and reactions from the bot are ignored.
func (s *PlaybackSession) HandleReactionAdd(messageID, userID, emoji string) {
	if userID == s.transport.BotUserID() {
		return
	}

	s.mu.Lock()
	p, ok := s.pending[messageID]
	s.mu.Unlock()
	if !ok {
		return
	}

	switch v := p.(type) {
	case *VoteRequest:
		s.voteReactionAdd(v, userID, emoji)
	case *SearchSelection:
		s.searchReaction(v, userID, emoji)
	case *PlaylistConfirm:
		s.playlistReaction(v, userID, emoji)
	}
}

// HandleReactionRemove routes a retracted reaction. Only votes care.
func (s *PlaybackSession) HandleReactionRemove(messageID, userID, emoji string) {
	if userID == s.transport.BotUserID() {
		return
	}

	s.mu.Lock()
	p, ok := s.pending[messageID]
	s.mu.Unlock()
	if !ok {
		return
	}

	if v, ok := p.(*VoteRequest); ok {
		s.voteReactionRemove(v, userID, emoji)
	}
}

// OpenSearchSelection posts a numbered candidate list and waits for the
// requester to pick one by reaction.
func (s *PlaybackSession) OpenSearchSelection(sel *SearchSelection, prompt string) error {
	ref, err := s.transport.SendMessage(sel.TextChannelID, prompt)
	if err != nil {
		return err
	}
	sel.Message = ref

	for i := range sel.Candidates {
		if i >= len(NumberEmojis) {
			break
		}
		if err := s.transport.React(ref, NumberEmojis[i]); err != nil {
			log.WithError(err).Error("Failed to add selection reaction")
		}
	}

	s.mu.Lock()
	s.addPending(ref, sel)
	s.mu.Unlock()
	return nil
}

// OpenPlaylistConfirm posts an import confirmation for a parsed playlist
func (s *PlaybackSession) OpenPlaylistConfirm(pc *PlaylistConfirm, prompt string) error {
	ref, err := s.transport.SendMessage(pc.TextChannelID, prompt)
	if err != nil {
		return err
	}
	pc.Message = ref

	if err := s.transport.React(ref, emojiAccept); err != nil {
		log.WithError(err).Error("Failed to add accept reaction")
	}
	if err := s.transport.React(ref, emojiDeny); err != nil {
		log.WithError(err).Error("Failed to add deny reaction")
	}

	s.mu.Lock()
	s.addPending(ref, pc)
	s.mu.Unlock()
	return nil
}

// searchReaction resolves a numbered pick on a search prompt. Only the
// requester may pick or dismiss.
func (s *PlaybackSession) searchReaction(sel *SearchSelection, userID, emoji string) {
	if userID != sel.RequesterID {
		return
	}

	if emoji == emojiDeny {
		s.mu.Lock()
		s.removePending(sel.Message.MessageID)
		s.mu.Unlock()
		if err := s.transport.EditMessage(sel.Message, "Search dismissed."); err != nil {
			log.WithError(err).Error("Failed to edit search prompt")
		}
		return
	}

	pick := -1
	for i, e := range NumberEmojis {
		if emoji == e && i < len(sel.Candidates) {
			pick = i
			break
		}
	}
	if pick < 0 {
		return
	}

	s.mu.Lock()
	s.removePending(sel.Message.MessageID)
	s.mu.Unlock()

	song := sel.Candidates[pick]
	if err := s.transport.EditMessage(sel.Message, "Picked **"+song.Title+"** 🎶"); err != nil {
		log.WithError(err).Error("Failed to edit search prompt")
	}
	if err := s.transport.ClearReactions(sel.Message); err != nil {
		log.WithError(err).Error("Failed to clear search reactions")
	}

	if _, err := s.Play(sel.VoiceChannelID, sel.TextChannelID, userID, song); err != nil {
		log.WithError(err).WithFields(log.Fields{"guild_id": s.guildID}).Error("Failed to play search pick")
		s.notify("❌ Couldn't start **" + song.Title + "**: " + err.Error())
	}
}

// playlistReaction confirms or dismisses a playlist import
func (s *PlaybackSession) playlistReaction(pc *PlaylistConfirm, userID, emoji string) {
	if userID != pc.RequesterID {
		return
	}

	switch emoji {
	case emojiDeny:
		s.mu.Lock()
		s.removePending(pc.Message.MessageID)
		s.mu.Unlock()
		if err := s.transport.EditMessage(pc.Message, "Playlist import dismissed."); err != nil {
			log.WithError(err).Error("Failed to edit playlist prompt")
		}
	case emojiAccept:
		s.mu.Lock()
		s.removePending(pc.Message.MessageID)
		s.mu.Unlock()
		s.importPlaylist(pc)
	}
}

// importPlaylist starts playback with the first song when idle and appends
// the rest. Cataloguing is best-effort per song and never stops the import.
func (s *PlaybackSession) importPlaylist(pc *PlaylistConfirm) {
	if len(pc.Songs) == 0 {
		return
	}

	songs := pc.Songs
	s.mu.Lock()
	idle := s.queue == nil
	s.mu.Unlock()

	if idle {
		if _, err := s.Play(pc.VoiceChannelID, pc.TextChannelID, pc.RequesterID, songs[0]); err != nil {
			log.WithError(err).WithFields(log.Fields{"guild_id": s.guildID}).Error("Failed to start playlist")
			s.notify("❌ Couldn't start the playlist: " + err.Error())
			return
		}
		songs = songs[1:]
	}

	q := s.Queue()
	if q == nil {
		return
	}
	q.EnqueueAll(songs, func(song *queue.Song) error {
		return s.catalog.EnsureCatalogued(s.guildID, song)
	})

	if err := s.transport.EditMessage(pc.Message, "Playlist queued 🎶"); err != nil {
		log.WithError(err).Error("Failed to edit playlist prompt")
	}
	if err := s.transport.ClearReactions(pc.Message); err != nil {
		log.WithError(err).Error("Failed to clear playlist reactions")
	}
}
