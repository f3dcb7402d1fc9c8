package handlers

import (
	"github.com/bwmarrin/discordgo"
	"github.com/spf13/viper"
)

// HelpEmbedding creates the embedding for the help menu
func HelpEmbedding(s *discordgo.Session, m *discordgo.MessageCreate) {
	botAvatarURL := s.State.User.AvatarURL("64")
	helpEmbed := &discordgo.MessageEmbed{
		Title: "Nocturne Help",
		Thumbnail: &discordgo.MessageEmbedThumbnail{
			URL: botAvatarURL,
		},
		Color: viper.GetInt("theme"),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "Playback",
				Value: "`/play` `/search` `/skip` `/np` `/loop` `/volume`",
			},
			{
				Name: "Queue",
				Value: "`/queue` `/remove` `/move` `/clear` `/playlist`",
			},
			{
				Name: "Voice",
				Value: "`/movebot` `/leave` — channel occupants vote on these",
			},
			{
				Name: "Admin",
				Value: "`/settings` — command channel and vote bypass role",
			},
		},
	}
	s.ChannelMessageSendEmbed(m.ChannelID, helpEmbed)
}
