package session

import (
	"errors"
	"fmt"
	"math"

	"github.com/Strum355/log"
)

const (
	emojiAccept = "✅"
	emojiDeny   = "❌"
)

var ErrAlreadyInChannel = errors.New("bot is already in that channel")

// VoteKind distinguishes the two quorum-gated actions
type VoteKind int

const (
	VoteMove VoteKind = iota
	VoteLeave
)

// VoteOutcome reports how a move/leave request was handled
type VoteOutcome int

const (
	VoteStarted  VoteOutcome = iota // Prompt posted, quorum pending
	VoteBypassed                    // Fast path hit, action executed immediately
)

// VoteRequest is an open majority-consensus prompt. For a move the target is
// the destination channel; for a leave it is the channel being vacated.
// Quorum is recomputed from live occupancy on every event, never cached.
// Accepted is guarded by the owning session's mutex: reaction and membership
// events arrive on separate gateway goroutines.
type VoteRequest struct {
	Kind            VoteKind
	RequesterID     string
	TargetChannelID string
	Accepted        map[string]struct{}
	Message         MessageRef
}

// minimumAccepts is the quorum threshold for a channel occupancy that still
// includes the bot itself.
func minimumAccepts(occupants int) int {
	return int(math.Round(float64(occupants-1) / 2))
}

// RequestMove asks to move the bot to destChannelID. The requester's own
// accept is implicit and never counted; their deny cancels the request.
func (s *PlaybackSession) RequestMove(requesterID, destChannelID, textChannelID string) (VoteOutcome, error) {
	s.mu.Lock()
	vc := s.vc
	s.mu.Unlock()
	if vc == nil {
		return 0, ErrNotPlaying
	}
	if vc.ChannelID() == destChannelID {
		return 0, ErrAlreadyInChannel
	}

	if s.bypassesVote(requesterID, VoteMove) {
		if err := s.executeMove(destChannelID, requesterID); err != nil {
			return 0, err
		}
		return VoteBypassed, nil
	}

	return s.openVote(&VoteRequest{
		Kind:            VoteMove,
		RequesterID:     requesterID,
		TargetChannelID: destChannelID,
		Accepted:        map[string]struct{}{},
	}, textChannelID, fmt.Sprintf("<@%s> wants to move me to another channel. %s to agree, %s to refuse.", requesterID, emojiAccept, emojiDeny))
}

// RequestLeave asks to disconnect the bot. Unlike a move, the requester's
// accept is an explicit vote and counts toward quorum.
func (s *PlaybackSession) RequestLeave(requesterID, textChannelID string) (VoteOutcome, error) {
	s.mu.Lock()
	vc := s.vc
	s.mu.Unlock()
	if vc == nil {
		return 0, ErrNotPlaying
	}

	if s.bypassesVote(requesterID, VoteLeave) {
		s.Teardown("vote-approved stop (bypassed)")
		return VoteBypassed, nil
	}

	return s.openVote(&VoteRequest{
		Kind:            VoteLeave,
		RequesterID:     requesterID,
		TargetChannelID: vc.ChannelID(),
		Accepted:        map[string]struct{}{},
	}, textChannelID, fmt.Sprintf("<@%s> wants me to leave. %s to vote me out, %s to keep me.", requesterID, emojiAccept, emojiDeny))
}

// bypassesVote reports whether the action may skip quorum voting entirely
func (s *PlaybackSession) bypassesVote(requesterID string, kind VoteKind) bool {
	s.mu.Lock()
	summoner := s.summonerID
	vc := s.vc
	s.mu.Unlock()

	if summoner == "" || requesterID == summoner {
		return true
	}

	settings, err := s.catalog.LoadSettings(s.guildID)
	if err == nil && settings.ElevatedRoleID != "" &&
		s.transport.HasElevatedRole(s.guildID, requesterID, settings.ElevatedRoleID) {
		return true
	}

	occupants, err := s.transport.ChannelOccupants(s.guildID, vc.ChannelID())
	if err != nil {
		return false
	}
	switch kind {
	case VoteLeave:
		return len(occupants) <= 3
	default:
		return len(occupants) == 1 // nobody to out-vote
	}
}

func (s *PlaybackSession) openVote(v *VoteRequest, textChannelID, prompt string) (VoteOutcome, error) {
	ref, err := s.transport.SendMessage(textChannelID, prompt)
	if err != nil {
		return 0, err
	}
	v.Message = ref

	if err := s.transport.React(ref, emojiAccept); err != nil {
		log.WithError(err).Error("Failed to add accept reaction")
	}
	if err := s.transport.React(ref, emojiDeny); err != nil {
		log.WithError(err).Error("Failed to add deny reaction")
	}

	s.mu.Lock()
	s.addPending(ref, v)
	s.mu.Unlock()

	log.WithFields(log.Fields{
		"guild_id":  s.guildID,
		"requester": v.RequesterID,
		"kind":      int(v.Kind),
	}).Info("Vote opened")
	return VoteStarted, nil
}

// voteReactionAdd tallies one accept/deny reaction on an open vote
func (s *PlaybackSession) voteReactionAdd(v *VoteRequest, userID, emoji string) {
	switch emoji {
	case emojiDeny:
		if userID == v.RequesterID {
			s.cancelVote(v, "Vote cancelled by the requester.")
		}
	case emojiAccept:
		// A move requester's accept is implicit and never enters the set;
		// a leave requester's accept is an explicit vote.
		if userID == v.RequesterID && v.Kind == VoteMove {
			return
		}
		s.mu.Lock()
		v.Accepted[userID] = struct{}{}
		s.mu.Unlock()
		s.evaluateVote(v)
	}
}

// voteReactionRemove retracts a prior accept. Retraction never cancels the
// request by itself.
func (s *PlaybackSession) voteReactionRemove(v *VoteRequest, userID, emoji string) {
	if emoji != emojiAccept {
		return
	}
	s.mu.Lock()
	delete(v.Accepted, userID)
	s.mu.Unlock()
	s.evaluateVote(v)
}

// evaluateVote recomputes quorum from current occupancy of the bot's channel.
// Accepters who have since left the channel do not count.
func (s *PlaybackSession) evaluateVote(v *VoteRequest) {
	s.mu.Lock()
	vc := s.vc
	s.mu.Unlock()
	if vc == nil {
		s.cancelVote(v, "Vote cancelled: no active session.")
		return
	}

	occupants, err := s.transport.ChannelOccupants(s.guildID, vc.ChannelID())
	if err != nil {
		log.WithError(err).WithFields(log.Fields{"guild_id": s.guildID}).Error("Failed to read channel occupancy")
		return
	}

	s.mu.Lock()
	accepted := 0
	for _, id := range occupants {
		if _, ok := v.Accepted[id]; ok {
			accepted++
		}
	}
	s.mu.Unlock()

	if accepted >= minimumAccepts(len(occupants)) {
		s.approveVote(v)
	}
}

func (s *PlaybackSession) approveVote(v *VoteRequest) {
	s.mu.Lock()
	if _, open := s.pending[v.Message.MessageID]; !open {
		// Already resolved by a concurrent event
		s.mu.Unlock()
		return
	}
	s.removePending(v.Message.MessageID)
	s.mu.Unlock()

	log.WithFields(log.Fields{
		"guild_id":  s.guildID,
		"requester": v.RequesterID,
		"kind":      int(v.Kind),
	}).Info("Vote approved")

	switch v.Kind {
	case VoteMove:
		s.closeVotePrompt(v, "Vote passed, moving over. 🚚")
		if err := s.executeMove(v.TargetChannelID, v.RequesterID); err != nil {
			log.WithError(err).WithFields(log.Fields{"guild_id": s.guildID}).Error("Approved move failed")
			s.notify("❌ Couldn't move to the new channel.")
		}
	case VoteLeave:
		s.closeVotePrompt(v, "Vote passed, see you around. 👋")
		s.Teardown("vote-approved stop")
	}
}

// executeMove transfers the connection and records the triggering member as
// the new summoner.
func (s *PlaybackSession) executeMove(destChannelID, byUserID string) error {
	s.mu.Lock()
	vc := s.vc
	s.mu.Unlock()
	if vc == nil {
		return ErrNotPlaying
	}
	if err := vc.Move(destChannelID); err != nil {
		return err
	}

	s.mu.Lock()
	s.summonerID = byUserID
	s.mu.Unlock()

	s.handleBotMoved(destChannelID)
	return nil
}

func (s *PlaybackSession) cancelVote(v *VoteRequest, notice string) {
	s.mu.Lock()
	s.removePending(v.Message.MessageID)
	s.mu.Unlock()
	s.closeVotePrompt(v, notice)
}

// closeVotePrompt edits the prompt to a terminal notice and clears the
// reaction affordances, best-effort.
func (s *PlaybackSession) closeVotePrompt(v *VoteRequest, notice string) {
	if v.Message.MessageID == "" {
		return
	}
	if err := s.transport.EditMessage(v.Message, notice); err != nil {
		log.WithError(err).Error("Failed to edit vote prompt")
	}
	if err := s.transport.ClearReactions(v.Message); err != nil {
		log.WithError(err).Error("Failed to clear vote reactions")
	}
}

// handleBotMoved invalidates leave votes opened against a channel the bot is
// no longer in, then re-evaluates what remains under the new occupancy.
func (s *PlaybackSession) handleBotMoved(newChannelID string) {
	for _, v := range s.openVotes() {
		if v.Kind == VoteLeave && v.TargetChannelID != newChannelID {
			s.cancelVote(v, "Vote cancelled: I've moved to another channel.")
			continue
		}
		s.evaluateVote(v)
	}
}

// handleMemberMoved applies one member's channel transition to every open
// vote: a requester leaving the bot's channel cancels their request, and any
// membership change can tip a quorum without a new reaction.
func (s *PlaybackSession) handleMemberMoved(userID, oldChannelID, newChannelID string) {
	s.mu.Lock()
	vc := s.vc
	s.mu.Unlock()
	if vc == nil {
		return
	}
	botChannel := vc.ChannelID()

	for _, v := range s.openVotes() {
		if userID == v.RequesterID && oldChannelID == botChannel && newChannelID != botChannel {
			s.cancelVote(v, "Vote cancelled: the requester left the channel.")
			continue
		}
		s.evaluateVote(v)
	}
}

// openVotes snapshots the vote entries of the pending registry
func (s *PlaybackSession) openVotes() []*VoteRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	votes := make([]*VoteRequest, 0, len(s.pending))
	for _, p := range s.pending {
		if v, ok := p.(*VoteRequest); ok {
			votes = append(votes, v)
		}
	}
	return votes
}
