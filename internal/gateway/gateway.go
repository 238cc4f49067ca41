// Package gateway wires the Discord client library to the archiver: pin
// events in, archive writes and embed reposts out.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/rooksworth/magpie/internal/adapter/storage"
	"github.com/rooksworth/magpie/internal/core"
	"github.com/rooksworth/magpie/internal/usecase/archive"
)

type Listener struct {
	session *discordgo.Session
	svc     *archive.Service
	log     *zap.Logger
}

func New(token string, svc *archive.Service, log *zap.Logger) (*Listener, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMessages |
		discordgo.IntentMessageContent

	l := &Listener{session: session, svc: svc, log: log}
	session.AddHandler(l.onReady)
	session.AddHandler(l.onChannelPinsUpdate)
	session.AddHandler(l.onInteraction)
	return l, nil
}

// Run opens the gateway connection and blocks until ctx is cancelled.
// Reconnects after transient drops are the client library's job.
func (l *Listener) Run(ctx context.Context) error {
	if err := l.session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	<-ctx.Done()
	return l.session.Close()
}

func (l *Listener) onReady(s *discordgo.Session, r *discordgo.Ready) {
	l.log.Info("gateway ready",
		zap.String("user", r.User.Username),
		zap.Int("guilds", len(r.Guilds)))

	for _, cmd := range commands() {
		if _, err := s.ApplicationCommandCreate(s.State.User.ID, "", cmd); err != nil {
			l.log.Error("register command failed",
				zap.String("command", cmd.Name), zap.Error(err))
		}
	}
}

// onChannelPinsUpdate archives every pin in the channel that fired the event
// and, when the channel nears the pin limit, relocates one to the archive
// channel.
func (l *Listener) onChannelPinsUpdate(s *discordgo.Session, e *discordgo.ChannelPinsUpdate) {
	if e.GuildID == "" {
		return
	}
	ctx := context.Background()

	settings, err := l.svc.Current(ctx, e.GuildID)
	if errors.Is(err, storage.ErrNotFound) {
		return
	}
	if err != nil {
		l.log.Error("settings lookup failed", zap.String("guild_id", e.GuildID), zap.Error(err))
		return
	}

	msgs, err := s.ChannelMessagesPinned(e.ChannelID)
	if err != nil {
		l.log.Error("could not read channel pins",
			zap.String("guild_id", e.GuildID),
			zap.String("channel_id", e.ChannelID),
			zap.Error(err))
		return
	}

	pins := make([]core.PinnedMessage, 0, len(msgs))
	for _, m := range msgs {
		pin := toPinnedMessage(m, e.GuildID, e.ChannelID)
		pins = append(pins, pin)

		if _, _, err := l.svc.ArchivePin(ctx, pin); err != nil {
			l.log.Error("archive failed",
				zap.String("message_id", pin.MessageID), zap.Error(err))
		}
	}

	pick := l.svc.SelectOverflow(settings, pins)
	if pick == nil {
		return
	}
	if err := l.relocate(s, settings, pick, msgs); err != nil {
		l.log.Error("pin relocation failed",
			zap.String("guild_id", e.GuildID),
			zap.String("message_id", pick.MessageID),
			zap.Error(err))
	}
}

// relocate unpins the selected message and reposts it as an embed in the
// guild's archive channel.
func (l *Listener) relocate(s *discordgo.Session, settings core.GuildSettings, pick *core.PinnedMessage, msgs []*discordgo.Message) error {
	var src *discordgo.Message
	for _, m := range msgs {
		if m.ID == pick.MessageID {
			src = m
			break
		}
	}
	if src == nil {
		return fmt.Errorf("selected pin %s not in fetched list", pick.MessageID)
	}

	if err := s.ChannelMessageUnpin(pick.ChannelID, pick.MessageID); err != nil {
		return fmt.Errorf("unpin: %w", err)
	}

	embed := pinEmbed(src, settings.GuildID, l.channelName(s, pick.ChannelID))
	if _, err := s.ChannelMessageSendEmbed(settings.ArchiveChannelID, embed); err != nil {
		return fmt.Errorf("repost: %w", err)
	}

	l.log.Info("relocated pin",
		zap.String("guild_id", settings.GuildID),
		zap.String("from_channel", pick.ChannelID),
		zap.String("to_channel", settings.ArchiveChannelID),
		zap.String("message_id", pick.MessageID))
	return nil
}

func (l *Listener) channelName(s *discordgo.Session, channelID string) string {
	if ch, err := s.State.Channel(channelID); err == nil {
		return ch.Name
	}
	if ch, err := s.Channel(channelID); err == nil {
		return ch.Name
	}
	return channelID
}

func toPinnedMessage(m *discordgo.Message, guildID, channelID string) core.PinnedMessage {
	pin := core.PinnedMessage{
		MessageID: m.ID,
		ChannelID: channelID,
		GuildID:   guildID,
		Content:   m.Content,
		PinnedAt:  m.Timestamp,
	}
	if m.Author != nil {
		pin.AuthorID = m.Author.ID
		pin.AuthorName = m.Author.Username
	}
	for _, a := range m.Attachments {
		pin.Attachment = append(pin.Attachment, a.URL)
	}
	return pin
}
