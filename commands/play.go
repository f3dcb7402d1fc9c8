package commands

import (
	"context"
	"errors"
	"fmt"

	"Nocturne/queue"
	"Nocturne/session"
	"Nocturne/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/viper"
)

// playSong starts or extends playback. Without a link the session falls back
// to a random catalogued song.
func playSong(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	voiceChannel, ok := requireVoiceChannel(s, i)
	if !ok {
		return nil
	}

	deferResponse(s, i)

	var song *queue.Song
	if opts := i.ApplicationCommandData().Options; len(opts) > 0 {
		var err error
		song, err = resolver.Resolve(opts[0].StringValue(), i.Member.User.ID)
		if err != nil {
			followUp(s, i, "❌ Could not fetch the song. It may be private or removed.")
			return nil
		}
	}

	sess := registry.GetOrCreate(i.GuildID)
	added, err := sess.Play(voiceChannel, i.ChannelID, i.Member.User.ID, song)
	if errors.Is(err, session.ErrAlreadyPlaying) {
		followUp(s, i, "I'm already playing, give me a link to queue 🎶")
		return nil
	}
	if err != nil {
		// Join failures surface the raw detail for diagnosis
		followUp(s, i, "❌ Couldn't join your voice channel: "+err.Error())
		return nil
	}

	if added {
		followUp(s, i, fmt.Sprintf("🎵 **%s** added to the queue (`%s`)",
			song.Title, utils.FormatSongDuration(song.DurationSeconds)))
		return nil
	}
	if song != nil {
		followUp(s, i, fmt.Sprintf("▶️ Now playing **%s** (`%s`)",
			song.Title, utils.FormatSongDuration(song.DurationSeconds)))
		return nil
	}
	followUp(s, i, "🎲 Picking something from the catalogue...")
	return nil
}

// skipSong skips the current song playing and moves on to the next
func skipSong(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	sess, ok := registry.Get(i.GuildID)
	if !ok {
		respond(s, i, "Nothing is playing right now 😶")
		return nil
	}

	if err := sess.Skip(); err != nil {
		respond(s, i, "Nothing is playing right now 😶")
		return nil
	}

	respond(s, i, "⏭️ Skipped")
	return nil
}

// nowPlaying displays the current song and its progress
func nowPlaying(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	sess, ok := registry.Get(i.GuildID)
	if !ok {
		respond(s, i, "🎶 Nothing is playing right now 😶")
		return nil
	}

	head, elapsed, _, err := sess.NowPlaying()
	if err != nil {
		respond(s, i, "🎶 Nothing is playing right now 😶")
		return nil
	}

	elapsedSecs := int(elapsed.Seconds()) + head.StartOffsetSeconds
	embed := &discordgo.MessageEmbed{
		Title: "🎵 Now Playing: " + head.Title,
		URL:   head.SourceURL,
		Description: fmt.Sprintf("%s\n`%s / %s`\nRequested by: <@%s>",
			utils.ProgressBar(elapsedSecs, head.DurationSeconds, 20),
			utils.FormatSongDuration(elapsedSecs),
			utils.FormatSongDuration(head.DurationSeconds),
			head.RequestedBy,
		),
		Thumbnail: &discordgo.MessageEmbedThumbnail{URL: head.ThumbnailURL},
		Color:     viper.GetInt("theme"),
	}

	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
	return nil
}

// songInfo returns the metadata of a given song
func songInfo(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	deferResponse(s, i)

	url := i.ApplicationCommandData().Options[0].StringValue()
	song, err := resolver.Resolve(url, i.Member.User.ID)
	if err != nil {
		followUp(s, i, "❌ Could not fetch the song. It may be private or removed.")
		return nil
	}

	embed := &discordgo.MessageEmbed{
		Title: song.Title,
		URL:   song.SourceURL,
		Description: fmt.Sprintf("%s · `%s`",
			song.ChannelName, utils.FormatSongDuration(song.DurationSeconds)),
		Thumbnail: &discordgo.MessageEmbedThumbnail{URL: song.ThumbnailURL},
		Footer:    &discordgo.MessageEmbedFooter{Text: song.Source.String()},
		Color:     viper.GetInt("theme"),
	}

	s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embed},
	})
	return nil
}
