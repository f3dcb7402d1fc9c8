package handlers

import (
	"github.com/bwmarrin/discordgo"
)

// VoiceStateHandler feeds voice channel joins, moves and leaves into the
// guild's session: open votes get their quorum recomputed, and the bot's own
// disconnect tears the session down.
func VoiceStateHandler(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	sess, ok := registry.Get(v.GuildID)
	if !ok {
		return
	}

	oldChannel := ""
	if v.BeforeUpdate != nil {
		oldChannel = v.BeforeUpdate.ChannelID
	}
	if oldChannel == v.ChannelID {
		// Mute/deafen toggles don't change membership
		return
	}

	sess.HandleVoiceMembershipChange(v.UserID, oldChannel, v.ChannelID)
}
