package session

import "Nocturne/queue"

// PendingInteraction is a prompt waiting on a reaction, keyed by the prompt's
// message ID on the session. One registry holds every variant so an incoming
// reaction needs a single lookup.
type PendingInteraction interface {
	isPending()
}

// SearchSelection is a numbered list of search candidates awaiting a pick
type SearchSelection struct {
	RequesterID    string
	VoiceChannelID string
	TextChannelID  string
	Candidates     []*queue.Song
	Message        MessageRef
}

// PlaylistConfirm is a parsed playlist awaiting an import confirmation
type PlaylistConfirm struct {
	RequesterID    string
	VoiceChannelID string
	TextChannelID  string
	Songs          []*queue.Song
	Message        MessageRef
}

func (*SearchSelection) isPending() {}
func (*PlaylistConfirm) isPending() {}
func (*VoteRequest) isPending()     {}

// addPending registers a prompt. Caller must hold s.mu.
func (s *PlaybackSession) addPending(ref MessageRef, p PendingInteraction) {
	s.pending[ref.MessageID] = p
}

// removePending drops a prompt from the registry. Caller must hold s.mu.
func (s *PlaybackSession) removePending(messageID string) {
	delete(s.pending, messageID)
}
