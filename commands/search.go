package commands

import (
	"context"
	"fmt"
	"strings"

	"Nocturne/session"
	"Nocturne/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/viper"
)

// searchSong posts a numbered candidate list; the pick happens by reaction
func searchSong(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	voiceChannel, ok := requireVoiceChannel(s, i)
	if !ok {
		return nil
	}

	deferResponse(s, i)

	keyword := i.ApplicationCommandData().Options[0].StringValue()
	songs, err := resolver.Search(keyword, i.Member.User.ID, viper.GetInt("search.limit"))
	if err != nil || len(songs) == 0 {
		followUp(s, i, "🔍 No results for `"+keyword+"`")
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔍 Results for `%s`, react to pick:\n", keyword)
	for idx, song := range songs {
		if idx >= len(session.NumberEmojis) {
			break
		}
		fmt.Fprintf(&b, "%s `%s` [%s]\n",
			session.NumberEmojis[idx], song.Title, utils.FormatSongDuration(song.DurationSeconds))
	}

	sess := registry.GetOrCreate(i.GuildID)
	if err := sess.OpenSearchSelection(&session.SearchSelection{
		RequesterID:    i.Member.User.ID,
		VoiceChannelID: voiceChannel,
		TextChannelID:  i.ChannelID,
		Candidates:     songs,
	}, b.String()); err != nil {
		return &interactionError{err, "Failed to post search results"}
	}

	followUp(s, i, "Results are up, pick one 👆")
	return nil
}
