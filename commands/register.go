package commands

import (
	"context"
	"errors"

	"Nocturne/session"

	"github.com/Strum355/log"
	"github.com/bwmarrin/discordgo"
	"github.com/spf13/viper"
)

var (
	commands = &Commands{}
	registry *session.Registry
	resolver session.Resolver
	store    session.Catalog
)

// RegisterSlashCommands adds all slash commands to the session.
func RegisterSlashCommands(s *discordgo.Session, reg *session.Registry, res session.Resolver, cat session.Catalog) {
	registry = reg
	resolver = res
	store = cat

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "play",
			Description: "Play a song, or a random catalogued one when no link is given.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "url",
					Description: "YouTube or SoundCloud link for the song",
					Required:    false,
				},
			},
		},
		playSong,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "search",
			Description: "Search for a song by keyword and pick from the results.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "keyword",
					Description: "What to search for",
					Required:    true,
				},
			},
		},
		searchSong,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "skip",
			Description: "Skip the current song.",
		},
		skipSong,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "np",
			Description: "Show the song that's now playing.",
		},
		nowPlaying,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "queue",
			Description: "Show the current song queue.",
		},
		currentQueue,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "remove",
			Description: "Remove a pending song from the queue by position.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "position",
					Description: "Queue position to remove (1 is up next)",
					Required:    true,
				},
			},
		},
		removeSong,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "move",
			Description: "Move a pending song to another queue position.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "from",
					Description: "Current position",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "to",
					Description: "New position",
					Required:    true,
				},
			},
		},
		reorderSong,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "clear",
			Description: "Clear the pending queue, keeping the playing song.",
		},
		clearQueue,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "loop",
			Description: "Set the loop mode.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "mode",
					Description: "none, single or list",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "none", Value: "none"},
						{Name: "single", Value: "single"},
						{Name: "list", Value: "list"},
					},
				},
			},
		},
		loopQueue,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "volume",
			Description: "Set the playback volume.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "level",
					Description: "Volume from 1 to 100",
					Required:    true,
				},
			},
		},
		setVolume,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "movebot",
			Description: "Ask the bot to move to your voice channel (may start a vote).",
		},
		moveBot,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "leave",
			Description: "Ask the bot to leave voice chat (may start a vote).",
		},
		leaveBot,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "playlist",
			Description: "Import a playlist into the queue.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "url",
					Description: "Playlist link",
					Required:    true,
				},
			},
		},
		importPlaylist,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "settings",
			Description: "Configure the bot for this server.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "commandchannel",
					Description: "Restrict bot commands to one text channel",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionRole,
					Name:        "djrole",
					Description: "Role whose members bypass move/leave votes",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "reset",
					Description: "Clear the channel and role restrictions",
					Required:    false,
				},
			},
		},
		configureGuild,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "songinfo",
			Description: "Show the metadata of a song.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "url",
					Description: "Link for the song",
					Required:    true,
				},
			},
		},
		songInfo,
	)

	if err := commands.Register(s); err != nil {
		log.WithError(err).Error("Failed to register slash commands")
	}
}

type CommandHandler func(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError

type Commands struct {
	commands          []*discordgo.ApplicationCommand
	handlers          map[string]CommandHandler
	componentHandlers map[string]CommandHandler
}

// Adds command to the slash commands.
func (c *Commands) Add(com *discordgo.ApplicationCommand, handler CommandHandler) {
	c.commands = append(c.commands, com)
	if c.handlers == nil {
		c.handlers = map[string]CommandHandler{}
	}
	c.handlers[com.Name] = handler
}

// Adds command to component commands
func (c *Commands) AddComponent(name string, handler CommandHandler) {
	if c.componentHandlers == nil {
		c.componentHandlers = map[string]CommandHandler{}
	}
	c.componentHandlers[string(name[0])] = handler
}

// Register all slash commands and component commands
func (c *Commands) Register(s *discordgo.Session) error {
	// Handles all interactions and routes them to the correct command handler
	s.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		switch i.Type {
		case discordgo.InteractionApplicationCommand:
			callCommandHandler(s, i)
		case discordgo.InteractionMessageComponent:
			callComponentHandler(s, i)
		}
	})

	// Registers slash commands
	if _, err := s.ApplicationCommandBulkOverwrite(viper.GetString("discord.app.id"), "", c.commands); err != nil {
		log.WithError(err).Error("Failed to create commands")
		return err
	}
	return nil
}

// Cannot be an interaction through DMs
func checkDirectMessage(i *discordgo.InteractionCreate) (*discordgo.User, *interactionError) {
	if i.GuildID == "" {
		return nil, &interactionError{
			errors.New("command invoked outside of valid guild"),
			"This command is only available in a valid server",
		}
	}
	return i.Member.User, nil
}

// Component or button based interactions
func callComponentHandler(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	m := i.MessageComponentData()
	if m.CustomID == "" {
		iErr := &interactionError{
			errors.New("No custom_id assigned to component on message " + i.Message.ID),
			"Couldn't handle component, invalid custom_id",
		}
		iErr.Handle(s, i)
		return
	}
	commandLabel := string(m.CustomID[0])
	if handler, ok := commands.componentHandlers[commandLabel]; ok {
		ctx := context.WithValue(ctx, log.Key, log.Fields{
			"user_id":          i.Member.User.ID,
			"channel_id":       i.ChannelID,
			"guild_id":         i.GuildID,
			"user":             i.Member.User.Username,
			"interaction_type": "component",
			"command":          commandLabel,
		})
		log.WithContext(ctx).Info("Invoking component command")
		iErr := handler(ctx, s, i)
		if iErr != nil {
			iErr.Handle(s, i)
		}
	}
}

// Text or slash command interactions
func callCommandHandler(s *discordgo.Session, i *discordgo.InteractionCreate) {
	var iError *interactionError
	ctx := context.Background()
	commandAuthor, iError := checkDirectMessage(i)
	if iError != nil {
		iError.Handle(s, i)
		return
	}

	commandName := i.ApplicationCommandData().Name

	// Honour a configured command channel; settings itself stays reachable so
	// a stale restriction can be undone.
	if commandName != "settings" && store != nil {
		if settings, err := store.LoadSettings(i.GuildID); err == nil &&
			settings.CommandChannelID != "" && settings.CommandChannelID != i.ChannelID {
			respond(s, i, "Use <#"+settings.CommandChannelID+"> for bot commands.")
			return
		}
	}

	channel, err := s.Channel(i.ChannelID)
	if err != nil {
		iError = &interactionError{err, "Couldn't query channel"}
		iError.Handle(s, i)
		return
	}

	if handler, ok := commands.handlers[commandName]; ok {
		ctx := context.WithValue(ctx, log.Key, log.Fields{
			"author_id":        commandAuthor.ID,
			"channel_id":       i.ChannelID,
			"guild_id":         i.GuildID,
			"user":             commandAuthor.Username,
			"channel_name":     channel.Name,
			"interaction_type": "application",
			"command":          commandName,
		})
		log.WithContext(ctx).Info("Invoking application command")
		iError = handler(ctx, s, i)
		if iError != nil {
			iError.Handle(s, i)
		}
	}
}
