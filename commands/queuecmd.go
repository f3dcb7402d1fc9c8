package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"Nocturne/queue"
	"Nocturne/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/viper"
)

// currentQueue shows the playing song and the pending queue using an embed
func currentQueue(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	sess, ok := registry.Get(i.GuildID)
	if !ok {
		respond(s, i, "🎶 The queue is empty 😶")
		return nil
	}

	head, _, songs, err := sess.NowPlaying()
	if err != nil || head == nil {
		respond(s, i, "🎶 The queue is empty 😶")
		return nil
	}

	guild, _ := s.Guild(i.GuildID)
	guildName := i.GuildID
	if guild != nil {
		guildName = guild.Name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "1. `%s` [%s] (requested by <@%s>) ▶️\n",
		head.Title, utils.FormatSongDuration(head.DurationSeconds), head.RequestedBy)
	for idx, song := range songs[1:] {
		if idx >= 10 {
			fmt.Fprintf(&b, "...and %d more", len(songs)-1-idx)
			break
		}
		fmt.Fprintf(&b, "%d. `%s` [%s] (requested by <@%s>)\n",
			idx+2, song.Title, utils.FormatSongDuration(song.DurationSeconds), song.RequestedBy)
	}

	loopBadge := ""
	switch sess.LoopMode() {
	case queue.LoopSingle:
		loopBadge = "🔂"
	case queue.LoopList:
		loopBadge = "🔁"
	}

	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("🎶 Queue for `%s`", guildName),
		Color: viper.GetInt("theme"),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:  strings.TrimSpace("Queue " + loopBadge),
				Value: b.String(),
			},
		},
	}

	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
	return nil
}

// removeSong deletes a pending song from the queue by position
func removeSong(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	sess, ok := registry.Get(i.GuildID)
	if !ok || sess.Queue() == nil {
		respond(s, i, "🎶 The queue is empty 😶")
		return nil
	}

	position := int(i.ApplicationCommandData().Options[0].IntValue())
	removed, err := sess.Queue().DeleteAt(position)
	if errors.Is(err, queue.ErrIndexOutOfRange) {
		respond(s, i, fmt.Sprintf("❌ No pending song at position %d. The playing song can't be removed, try `/skip`.", position))
		return nil
	}
	if err != nil {
		return &interactionError{err, "Failed to remove song"}
	}

	respond(s, i, fmt.Sprintf("🗑️ Removed **%s** from the queue", removed.Title))
	return nil
}

// reorderSong moves a pending song to a new position in the queue
func reorderSong(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	sess, ok := registry.Get(i.GuildID)
	if !ok || sess.Queue() == nil {
		respond(s, i, "🎶 The queue is empty 😶")
		return nil
	}

	opts := i.ApplicationCommandData().Options
	from := int(opts[0].IntValue())
	to := int(opts[1].IntValue())

	err := sess.Queue().Reorder(from, to)
	if errors.Is(err, queue.ErrSameIndex) {
		respond(s, i, "Those are the same position, nothing moved 🤷")
		return nil
	}
	if errors.Is(err, queue.ErrIndexOutOfRange) {
		respond(s, i, "❌ Positions must point at pending songs, the playing one stays put.")
		return nil
	}
	if err != nil {
		return &interactionError{err, "Failed to reorder queue"}
	}

	respond(s, i, fmt.Sprintf("↕️ Moved position %d to %d", from, to))
	return nil
}

// clearQueue drops every pending song, keeping the playing one
func clearQueue(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	sess, ok := registry.Get(i.GuildID)
	if !ok || sess.Queue() == nil {
		respond(s, i, "🎶 The queue is empty 😶")
		return nil
	}

	sess.Queue().Clear()
	respond(s, i, "🧹 Queue cleared, the playing song keeps going")
	return nil
}

// loopQueue sets the loop mode for the session
func loopQueue(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	sess, ok := registry.Get(i.GuildID)
	if !ok {
		respond(s, i, "Nothing is playing right now 😶")
		return nil
	}

	var mode queue.LoopMode
	switch i.ApplicationCommandData().Options[0].StringValue() {
	case "single":
		mode = queue.LoopSingle
	case "list":
		mode = queue.LoopList
	default:
		mode = queue.LoopNone
	}

	sess.SetLoopMode(mode)
	respond(s, i, fmt.Sprintf("🔁 Loop mode set to `%s`", mode))
	return nil
}

// setVolume validates and stores the playback volume
func setVolume(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	level := int(i.ApplicationCommandData().Options[0].IntValue())
	if level < 1 || level > 100 {
		respond(s, i, "❌ Volume must be between 1 and 100")
		return nil
	}

	sess := registry.GetOrCreate(i.GuildID)
	sess.SetVolume(level)
	respond(s, i, fmt.Sprintf("🔊 Volume set to %d%%, applies from the next song", level))
	return nil
}
