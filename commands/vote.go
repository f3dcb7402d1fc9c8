package commands

import (
	"context"
	"errors"

	"Nocturne/session"

	"github.com/bwmarrin/discordgo"
)

// moveBot asks the bot over to the caller's voice channel, opening a quorum
// vote unless a fast path applies.
func moveBot(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	destChannel, ok := requireVoiceChannel(s, i)
	if !ok {
		return nil
	}

	sess, ok := registry.Get(i.GuildID)
	if !ok {
		respond(s, i, "Nothing is playing right now 😶")
		return nil
	}

	outcome, err := sess.RequestMove(i.Member.User.ID, destChannel, i.ChannelID)
	if errors.Is(err, session.ErrAlreadyInChannel) {
		respond(s, i, "I'm already in your channel 😅")
		return nil
	}
	if errors.Is(err, session.ErrNotPlaying) {
		respond(s, i, "Nothing is playing right now 😶")
		return nil
	}
	if err != nil {
		return &interactionError{err, "Failed to handle move request"}
	}

	if outcome == session.VoteBypassed {
		respond(s, i, "🚚 Coming over!")
		return nil
	}
	respond(s, i, "🗳️ Vote started, the channel gets to decide")
	return nil
}

// leaveBot asks the bot to disconnect, opening a quorum vote unless a fast
// path applies.
func leaveBot(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	sess, ok := registry.Get(i.GuildID)
	if !ok {
		respond(s, i, "I'm not connected to voice 😶")
		return nil
	}

	outcome, err := sess.RequestLeave(i.Member.User.ID, i.ChannelID)
	if errors.Is(err, session.ErrNotPlaying) {
		respond(s, i, "I'm not connected to voice 😶")
		return nil
	}
	if err != nil {
		return &interactionError{err, "Failed to handle leave request"}
	}

	if outcome == session.VoteBypassed {
		respond(s, i, "👋 Leaving, see you around")
		return nil
	}
	respond(s, i, "🗳️ Vote started, the channel gets to decide")
	return nil
}
