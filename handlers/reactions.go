package handlers

import (
	"github.com/bwmarrin/discordgo"
)

// ReactionAddHandler routes reactions into the guild session's pending
// prompts: vote tallies, search picks and playlist confirmations.
func ReactionAddHandler(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if r.GuildID == "" {
		return
	}
	sess, ok := registry.Get(r.GuildID)
	if !ok {
		return
	}
	sess.HandleReactionAdd(r.MessageID, r.UserID, r.Emoji.Name)
}

// ReactionRemoveHandler routes retracted reactions; only votes care
func ReactionRemoveHandler(s *discordgo.Session, r *discordgo.MessageReactionRemove) {
	if r.GuildID == "" {
		return
	}
	sess, ok := registry.Get(r.GuildID)
	if !ok {
		return
	}
	sess.HandleReactionRemove(r.MessageID, r.UserID, r.Emoji.Name)
}
