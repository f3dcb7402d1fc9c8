package commands

import (
	"context"
	"fmt"

	"Nocturne/session"
	"Nocturne/yt"

	"github.com/bwmarrin/discordgo"
)

// importPlaylist parses a playlist and asks for confirmation before queueing
func importPlaylist(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	voiceChannel, ok := requireVoiceChannel(s, i)
	if !ok {
		return nil
	}

	deferResponse(s, i)

	url := i.ApplicationCommandData().Options[0].StringValue()
	songs, err := resolver.ResolvePlaylist(url, i.Member.User.ID)
	if err != nil || len(songs) == 0 {
		followUp(s, i, "❌ Couldn't read that playlist, it may be private or empty.")
		return nil
	}

	// Warm the audio cache while the confirmation sits open
	if r, ok := resolver.(*yt.Resolver); ok {
		go r.PrefetchAudio(songs, 3)
	}

	sess := registry.GetOrCreate(i.GuildID)
	prompt := fmt.Sprintf("📜 Found **%d** songs. %s to queue them all, %s to forget it.",
		len(songs), "✅", "❌")
	if err := sess.OpenPlaylistConfirm(&session.PlaylistConfirm{
		RequesterID:    i.Member.User.ID,
		VoiceChannelID: voiceChannel,
		TextChannelID:  i.ChannelID,
		Songs:          songs,
	}, prompt); err != nil {
		return &interactionError{err, "Failed to post playlist confirmation"}
	}

	followUp(s, i, "Confirmation is up 👆")
	return nil
}
