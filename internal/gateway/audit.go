package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"questboard/internal/ingest"
)

// Embed colors for audit events.
const (
	colorCreated   = 0x2ecc71
	colorUpdated   = 0x3498db
	colorCancelled = 0xe74c3c
)

// Emit posts an audit embed for an ingestion event to the configured audit
// channel. Implements ingest.AuditSink. Delivery failures are logged and
// dropped; the audit trail is best effort.
func (g *Gateway) Emit(event ingest.AuditEvent) {
	channelID := g.cfg.Discord.AuditChannel
	if channelID == "" {
		return
	}
	g.mu.Lock()
	connected := g.connected
	g.mu.Unlock()
	if !connected {
		return
	}

	embed := auditEmbed(event)
	err := g.retryOnRateLimit(context.Background(), func() error {
		_, sendErr := g.sess.ChannelMessageSendEmbed(channelID, embed)
		return sendErr
	})
	if err != nil {
		g.log.Warn().Err(err).Str("action", event.Action).Str("id", event.ID).
			Msg("audit embed delivery failed")
	}
}

// auditEmbed renders one ingestion event as a Discord embed.
func auditEmbed(event ingest.AuditEvent) *discordgo.MessageEmbed {
	kind := event.Kind
	if kind == "" {
		kind = "quest"
	}
	title := fmt.Sprintf("%s %s", capitalize(kind), event.Action)

	embed := &discordgo.MessageEmbed{
		Title: title,
		Color: auditColor(event.Action),
	}
	if event.ID != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "ID", Value: event.ID, Inline: true,
		})
	}
	if event.Title != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Title", Value: event.Title, Inline: true,
		})
	}
	if event.Source.MessageID != "" {
		link := fmt.Sprintf("https://discord.com/channels/%s/%s/%s",
			event.Source.GuildID, event.Source.ChannelID, event.Source.MessageID)
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Message", Value: link,
		})
	}
	return embed
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func auditColor(action string) int {
	switch action {
	case "created":
		return colorCreated
	case "cancelled":
		return colorCancelled
	default:
		return colorUpdated
	}
}
