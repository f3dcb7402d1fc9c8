package commands

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// configureGuild updates the per-guild settings. Only members with Manage
// Server may change them.
func configureGuild(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	if i.Member.Permissions&discordgo.PermissionManageServer == 0 {
		respond(s, i, "You need the Manage Server permission for that.")
		return nil
	}

	settings, err := store.LoadSettings(i.GuildID)
	if err != nil {
		return &interactionError{err, "Couldn't load the server settings"}
	}

	var changes []string
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "commandchannel":
			ch := opt.ChannelValue(s)
			if ch == nil {
				continue
			}
			settings.CommandChannelID = ch.ID
			changes = append(changes, "commands restricted to <#"+ch.ID+">")
		case "djrole":
			role := opt.RoleValue(s, i.GuildID)
			if role == nil {
				continue
			}
			settings.ElevatedRoleID = role.ID
			changes = append(changes, "vote bypass role set to <@&"+role.ID+">")
		case "reset":
			if opt.BoolValue() {
				settings.CommandChannelID = ""
				settings.ElevatedRoleID = ""
				changes = append(changes, "channel and role restrictions cleared")
			}
		}
	}

	if len(changes) == 0 {
		respond(s, i, "Nothing to change, pick an option.")
		return nil
	}

	if err := store.SaveSettings(i.GuildID, settings); err != nil {
		return &interactionError{err, "Couldn't save the server settings"}
	}

	respond(s, i, "Settings updated: "+strings.Join(changes, ", ")+".")
	return nil
}
