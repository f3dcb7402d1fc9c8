package session

import (
	"errors"

	"github.com/bwmarrin/discordgo"
)

// DiscordTransport implements Transport on top of a live discordgo session
type DiscordTransport struct {
	s *discordgo.Session
}

// NewDiscordTransport wraps a discordgo session
func NewDiscordTransport(s *discordgo.Session) *DiscordTransport {
	return &DiscordTransport{s: s}
}

func (t *DiscordTransport) SendMessage(channelID, content string) (MessageRef, error) {
	m, err := t.s.ChannelMessageSend(channelID, content)
	if err != nil {
		return MessageRef{}, err
	}
	return MessageRef{ChannelID: channelID, MessageID: m.ID}, nil
}

func (t *DiscordTransport) SendEmbed(channelID string, embed *discordgo.MessageEmbed) (MessageRef, error) {
	m, err := t.s.ChannelMessageSendEmbed(channelID, embed)
	if err != nil {
		return MessageRef{}, err
	}
	return MessageRef{ChannelID: channelID, MessageID: m.ID}, nil
}

func (t *DiscordTransport) EditMessage(ref MessageRef, content string) error {
	_, err := t.s.ChannelMessageEdit(ref.ChannelID, ref.MessageID, content)
	return err
}

func (t *DiscordTransport) EditEmbed(ref MessageRef, embed *discordgo.MessageEmbed) error {
	_, err := t.s.ChannelMessageEditEmbed(ref.ChannelID, ref.MessageID, embed)
	return err
}

func (t *DiscordTransport) DeleteMessage(ref MessageRef) error {
	return t.s.ChannelMessageDelete(ref.ChannelID, ref.MessageID)
}

func (t *DiscordTransport) React(ref MessageRef, emoji string) error {
	return t.s.MessageReactionAdd(ref.ChannelID, ref.MessageID, emoji)
}

func (t *DiscordTransport) ClearReactions(ref MessageRef) error {
	return t.s.MessageReactionsRemoveAll(ref.ChannelID, ref.MessageID)
}

func (t *DiscordTransport) JoinVoice(guildID, channelID string) (VoiceConn, error) {
	vc, err := t.s.ChannelVoiceJoin(guildID, channelID, false, false)
	if err != nil {
		return nil, err
	}
	return &DiscordVoice{vc: vc}, nil
}

// ChannelOccupants lists the members currently in a voice channel, the bot
// included when connected, from gateway voice state.
func (t *DiscordTransport) ChannelOccupants(guildID, channelID string) ([]string, error) {
	guild, err := t.s.State.Guild(guildID)
	if err != nil {
		return nil, err
	}

	var occupants []string
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID == channelID {
			occupants = append(occupants, vs.UserID)
		}
	}
	return occupants, nil
}

func (t *DiscordTransport) HasElevatedRole(guildID, userID, roleID string) bool {
	member, err := t.s.State.Member(guildID, userID)
	if err != nil {
		member, err = t.s.GuildMember(guildID, userID)
		if err != nil {
			return false
		}
	}
	for _, r := range member.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}

func (t *DiscordTransport) BotUserID() string {
	if t.s.State.User == nil {
		return ""
	}
	return t.s.State.User.ID
}

// DiscordVoice adapts a discordgo voice connection to the VoiceConn interface
type DiscordVoice struct {
	vc *discordgo.VoiceConnection
}

func (v *DiscordVoice) ChannelID() string {
	return v.vc.ChannelID
}

func (v *DiscordVoice) Move(channelID string) error {
	return v.vc.ChangeChannel(channelID, false, false)
}

func (v *DiscordVoice) Disconnect() error {
	return v.vc.Disconnect()
}

var errNotDiscordVoice = errors.New("voice connection is not a discord connection")
