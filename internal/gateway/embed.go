package gateway

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/rooksworth/magpie/internal/core"
)

const embedColor = 0x71368A // dark purple

// pinEmbed renders a message for reposting in the archive channel.
func pinEmbed(m *discordgo.Message, guildID, channelName string) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Color:       embedColor,
		Description: m.Content,
		Timestamp:   m.Timestamp.Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Source", Value: fmt.Sprintf("[Jump!](%s)", jumpURL(guildID, m.ChannelID, m.ID))},
		},
	}

	if m.Author != nil {
		embed.Author = &discordgo.MessageEmbedAuthor{
			Name:    m.Author.Username,
			IconURL: m.Author.AvatarURL(""),
		}
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("%s • In #%s", m.Author.ID, channelName),
		}
	}

	if len(m.Attachments) > 0 {
		embed.Image = &discordgo.MessageEmbedImage{URL: m.Attachments[0].URL}
	}
	return embed
}

func jumpURL(guildID, channelID, messageID string) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guildID, channelID, messageID)
}

// settingsEmbed renders a guild's archive configuration for command replies.
func settingsEmbed(title string, set core.GuildSettings) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: title,
		Color: embedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Channel", Value: fmt.Sprintf("<#%s>", set.ArchiveChannelID)},
			{Name: "Mode", Value: fmt.Sprintf("The `%s` pins will be prioritized for archival.", set.Mode)},
		},
	}
}
