package handlers

import (
	"Nocturne/session"

	"github.com/bwmarrin/discordgo"
)

var registry *session.Registry

// HandlerConfig handles configs for intents and handlers
func HandlerConfig(s *discordgo.Session, reg *session.Registry) {
	registry = reg

	s.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsGuilds |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMessageReactions

	s.AddHandler(MessageHandler)
	s.AddHandler(VoiceStateHandler)
	s.AddHandler(ReactionAddHandler)
	s.AddHandler(ReactionRemoveHandler)
}
