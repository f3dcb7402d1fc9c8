package commands

import (
	"github.com/bwmarrin/discordgo"
)

// userVoiceChannel returns the voice channel the user currently sits in
func userVoiceChannel(s *discordgo.Session, guildID, userID string) (string, bool) {
	vs, err := s.State.VoiceState(guildID, userID)
	if err != nil || vs == nil || vs.ChannelID == "" {
		return "", false
	}
	return vs.ChannelID, true
}

// requireVoiceChannel resolves the caller's voice channel, replying with a
// rejection when they aren't in one.
func requireVoiceChannel(s *discordgo.Session, i *discordgo.InteractionCreate) (string, bool) {
	channelID, ok := userVoiceChannel(s, i.GuildID, i.Member.User.ID)
	if !ok {
		respond(s, i, "Join a voice channel first 😉")
		return "", false
	}
	return channelID, true
}

// respond sends an immediate text reply to the interaction
func respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	})
}

// deferResponse acknowledges the interaction so slower work can follow up
func deferResponse(s *discordgo.Session, i *discordgo.InteractionCreate) {
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
}

// followUp completes a deferred interaction with a text reply
func followUp(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
	})
}
