package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/rooksworth/magpie/internal/adapter/storage"
	"github.com/rooksworth/magpie/internal/core"
	"github.com/rooksworth/magpie/internal/token"
)

// Permission mask for the invite link: manage messages, send messages,
// embed links, read history, view channels.
const invitePermissions = 321536

func commands() []*discordgo.ApplicationCommand {
	managePerms := int64(discordgo.PermissionManageServer)
	noDM := false

	modeChoices := []*discordgo.ApplicationCommandOptionChoice{
		{Name: "oldest", Value: int(core.PinModeOldest)},
		{Name: "newest", Value: int(core.PinModeNewest)},
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:                     "pin",
			Description:              "Commands for controlling your pin archive.",
			DefaultMemberPermissions: &managePerms,
			DMPermission:             &noDM,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "setup",
					Description: "Set up (or replace) this server's pin archive settings.",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:         discordgo.ApplicationCommandOptionChannel,
							Name:         "archive_channel",
							Description:  "The channel where moved pins will be stored.",
							ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
							Required:     true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "mode",
							Description: "Which pin gets moved when a channel fills up (default: oldest).",
							Choices:     modeChoices,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "update",
					Description: "Update archive settings; omitted options keep their value.",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:         discordgo.ApplicationCommandOptionChannel,
							Name:         "archive_channel",
							Description:  "The channel where moved pins will be stored.",
							ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "mode",
							Description: "Which pin gets moved when a channel fills up.",
							Choices:     modeChoices,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "current",
					Description: "Show this server's pin archive settings.",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "disable",
					Description: "Stop moving pins in this server. Re-enable with /pin setup.",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "export",
					Description: "Get a resume token for exporting this server's archive with magpiectl.",
				},
			},
		},
		{
			Name:        "invite",
			Description: "Get a link to invite this bot to a server.",
		},
	}
}

func (l *Listener) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()

	switch data.Name {
	case "invite":
		l.handleInvite(s, i)
	case "pin":
		if i.GuildID == "" || len(data.Options) == 0 {
			l.respondText(s, i, "This command only works inside a server.", true)
			return
		}
		l.handlePin(s, i, data.Options[0])
	}
}

func (l *Listener) handlePin(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	ctx := context.Background()

	switch sub.Name {
	case "setup":
		set := core.GuildSettings{GuildID: i.GuildID, Mode: core.PinModeOldest}
		for _, opt := range sub.Options {
			switch opt.Name {
			case "archive_channel":
				set.ArchiveChannelID = opt.ChannelValue(nil).ID
			case "mode":
				set.Mode = core.PinMode(opt.IntValue())
			}
		}
		if err := l.svc.Setup(ctx, set); err != nil {
			l.fail(s, i, "setup", err)
			return
		}
		l.respondEmbed(s, i, settingsEmbed("Current Pin Archive Settings", set))

	case "update":
		var patch storage.SettingsPatch
		for _, opt := range sub.Options {
			switch opt.Name {
			case "archive_channel":
				id := opt.ChannelValue(nil).ID
				patch.ArchiveChannelID = &id
			case "mode":
				mode := core.PinMode(opt.IntValue())
				patch.Mode = &mode
			}
		}
		if patch.ArchiveChannelID == nil && patch.Mode == nil {
			l.respondText(s, i, "No new settings put in: No changes made.", false)
			return
		}
		set, err := l.svc.Update(ctx, i.GuildID, patch)
		if errors.Is(err, storage.ErrNotFound) {
			l.respondText(s, i, "The pin archive has not been set up for this server.", true)
			return
		}
		if err != nil {
			l.fail(s, i, "update", err)
			return
		}
		l.respondEmbed(s, i, settingsEmbed("Updated Pin Archive Settings", set))

	case "current":
		set, err := l.svc.Current(ctx, i.GuildID)
		if errors.Is(err, storage.ErrNotFound) {
			l.respondText(s, i, "The pin archive has not been set up for this server.", true)
			return
		}
		if err != nil {
			l.fail(s, i, "current", err)
			return
		}
		l.respondEmbed(s, i, settingsEmbed("Current Pin Archive Settings", set))

	case "disable":
		if err := l.svc.Disable(ctx, i.GuildID); err != nil {
			l.fail(s, i, "disable", err)
			return
		}
		l.respondText(s, i, "The bot will no longer update the pin archive. To re-enable, use `/pin setup`.", false)

	case "export":
		cur, n, err := l.svc.ExportCursor(ctx, i.GuildID)
		if err != nil {
			l.fail(s, i, "export", err)
			return
		}
		msg := fmt.Sprintf("%d pins archived for this server.\nResume token: `%s`\nUse `magpiectl export --guild %s --after <token>` to pull anything newer.",
			n, token.Encode(cur), i.GuildID)
		l.respondText(s, i, msg, true)
	}
}

func (l *Listener) handleInvite(s *discordgo.Session, i *discordgo.InteractionCreate) {
	url := fmt.Sprintf(
		"https://discord.com/api/oauth2/authorize?client_id=%s&permissions=%d&scope=bot%%20applications.commands",
		s.State.User.ID, invitePermissions)
	l.respondText(s, i, "Click to invite me to one of your servers: "+url, true)
}

func (l *Listener) fail(s *discordgo.Session, i *discordgo.InteractionCreate, op string, err error) {
	l.log.Error("command failed", zap.String("op", op), zap.Error(err))
	l.respondText(s, i, "Something went wrong; try again in a moment.", true)
}

func (l *Listener) respondText(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Content: content}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	l.respond(s, i, data)
}

func (l *Listener) respondEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	l.respond(s, i, &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{embed},
	})
}

func (l *Listener) respond(s *discordgo.Session, i *discordgo.InteractionCreate, data *discordgo.InteractionResponseData) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		l.log.Error("interaction respond failed", zap.Error(err))
	}
}
