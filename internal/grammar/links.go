package grammar

import (
	"net/url"
	"strings"
)

// extractLinkedMessages scans the lines under the "**Linked Quests:**" label
// for Discord deep links. The scan stops at the next bold section header. A
// trailing link carrying only a channel/message pair is tolerated by
// substituting fallbackChannel (captured from the table link).
func extractLinkedMessages(raw, fallbackChannel string) []MessageRef {
	var refs []MessageRef
	seen := map[MessageRef]bool{}
	collecting := false

	appendRefs := func(text string) {
		for _, ref := range linksFromText(text, fallbackChannel) {
			if !seen[ref] {
				seen[ref] = true
				refs = append(refs, ref)
			}
		}
	}

	for _, line := range strings.Split(raw, "\n") {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}
		lowered := strings.ToLower(stripped)
		if strings.HasPrefix(lowered, "**linked quests:**") {
			collecting = true
			appendRefs(stripped[len("**Linked Quests:**"):])
			continue
		}
		if !collecting {
			continue
		}
		if strings.HasPrefix(lowered, "**") && !strings.HasPrefix(lowered, "**linked quests") {
			break
		}
		appendRefs(stripped)
	}

	return refs
}

// linksFromText pulls every Discord deep link out of one line of text.
func linksFromText(text, fallbackChannel string) []MessageRef {
	var refs []MessageRef
	for _, match := range urlPattern.FindAllString(text, -1) {
		guildID, channelID, messageID := splitChannelPath(cleanURL(match))
		if guildID == "" {
			continue
		}
		if messageID == "" {
			// Link ends at the channel segment: the community habitually
			// pastes guild/message pairs, so treat the second segment as
			// the message id and fall back to the table channel.
			if channelID == "" || fallbackChannel == "" {
				continue
			}
			refs = append(refs, MessageRef{GuildID: guildID, ChannelID: fallbackChannel, MessageID: channelID})
			continue
		}
		channel := channelID
		if channel == "" {
			channel = fallbackChannel
		}
		if channel == "" {
			continue
		}
		refs = append(refs, MessageRef{GuildID: guildID, ChannelID: channel, MessageID: messageID})
	}
	return refs
}

// splitChannelPath decomposes a discord.com/channels deep link into its
// guild/channel/message segments. Missing segments come back empty.
func splitChannelPath(raw string) (guildID, channelID, messageID string) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", "", ""
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", "", ""
	}
	host := strings.ToLower(parsed.Host)
	if host != "discord.com" && host != "discordapp.com" {
		return "", "", ""
	}

	var segments []string
	for _, segment := range strings.Split(parsed.Path, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	if len(segments) == 0 || strings.ToLower(segments[0]) != "channels" {
		return "", "", ""
	}
	if len(segments) > 1 {
		guildID = segments[1]
	}
	if len(segments) > 2 {
		channelID = segments[2]
	}
	if len(segments) > 3 {
		messageID = segments[3]
	}
	return guildID, channelID, messageID
}
