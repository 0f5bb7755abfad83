package grammar

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const shortSummaryLimit = 280

var (
	fieldPattern     = regexp.MustCompile(`(?m)^\*\*([^*]+)\*\*:\s*(.+)$`)
	sectionPattern   = regexp.MustCompile(`(?m)^##\s*(.+)$`)
	mentionPattern   = regexp.MustCompile(`<@!?(\d+)>`)
	questIDPattern   = regexp.MustCompile(`QUES\d{4,}`)
	summaryKindHints = regexp.MustCompile(`(?i)player|referee`)
)

var booleanTrue = map[string]bool{"yes": true, "y": true, "true": true, "1": true}

// Participant is one player mentioned in a summary's player list. Exactly
// one of DiscordID or DisplayName is set.
type Participant struct {
	DiscordID   string
	DisplayName string
}

// SummaryDraft is the parse result for one adventure-summary post. QuestID
// may be empty when the post only carries a deep link to the quest message;
// the coordinator resolves that reference against the record store.
type SummaryDraft struct {
	QuestID         string
	QuestMessageRef *MessageRef
	Title           string
	ShortSummaryMD  string
	ContentMD       string
	RegionText      string
	Players         []Participant
	RelatedLinks    []string
	KindHint        string
	InCharacter     bool
	AuthorID        string
	Source          MessageRef
	Raw             string
}

// ParseSummary extracts a SummaryDraft from one raw adventure-summary post.
// The metadata grammar is looser than the quest grammar: bolded
// "**Field**: value" lines plus optional "## Section" blocks.
func ParseSummary(raw, authorID string, source MessageRef) (*SummaryDraft, error) {
	metadata := parseMetadata(raw)
	sections := parseSections(raw)

	questID := metadata["quest id"]
	if questID == "" {
		questID = questIDPattern.FindString(raw)
	}
	questID = strings.ToUpper(strings.TrimSpace(questID))

	questRef := findQuestMessageRef(raw, metadata["quest link"])

	var errs []string
	if questID == "" && questRef == nil {
		errs = append(errs, "missing quest identifier (expected '**Quest ID**: QUES1234' or a quest message link)")
	}

	title := ""
	if m := genericTitlePattern.FindStringSubmatch(raw); m != nil {
		title = strings.TrimSpace(m[1])
	}

	content := strings.TrimSpace(sections["summary"])
	if content == "" {
		content = strings.TrimSpace(stripMetadataLines(raw))
	}
	if content == "" {
		errs = append(errs, "missing summary body")
	}

	players := parsePlayers(sections["players"])
	if len(players) == 0 {
		players = []Participant{{DiscordID: authorID}}
	}

	region := metadata["region"]
	if region == "" {
		region = sections["region"]
	}

	inCharacter := true
	if v := firstNonEmpty(metadata["in character"], metadata["in-character"]); v != "" {
		inCharacter = booleanTrue[strings.ToLower(strings.TrimSpace(v))]
	}

	if len(errs) > 0 {
		return nil, &ParseError{Errors: errs}
	}

	return &SummaryDraft{
		QuestID:         questID,
		QuestMessageRef: questRef,
		Title:           title,
		ShortSummaryMD:  shorten(content, shortSummaryLimit),
		ContentMD:       content,
		RegionText:      strings.TrimSpace(region),
		Players:         players,
		RelatedLinks:    extractRelatedLinks(raw),
		KindHint:        parseKindHint(metadata["summary type"]),
		InCharacter:     inCharacter,
		AuthorID:        authorID,
		Source:          source,
		Raw:             raw,
	}, nil
}

// parseMetadata collects all "**Field**: value" lines, keyed by the
// lower-cased field name.
func parseMetadata(raw string) map[string]string {
	metadata := map[string]string{}
	for _, m := range fieldPattern.FindAllStringSubmatch(raw, -1) {
		metadata[strings.ToLower(strings.TrimSpace(m[1]))] = strings.TrimSpace(m[2])
	}
	return metadata
}

// parseSections splits the message on "## Heading" lines, keyed by the
// lower-cased heading.
func parseSections(raw string) map[string]string {
	sections := map[string]string{}
	current := ""
	var body []string

	flush := func() {
		if current != "" {
			sections[current] = strings.TrimSpace(strings.Join(body, "\n"))
		}
		body = body[:0]
	}

	for _, line := range strings.Split(raw, "\n") {
		if m := sectionPattern.FindStringSubmatch(line); m != nil {
			flush()
			current = strings.ToLower(strings.TrimSpace(m[1]))
			continue
		}
		if current != "" {
			body = append(body, line)
		}
	}
	flush()
	return sections
}

// parsePlayers reads one participant per line from the players section,
// preferring an embedded mention over the display text.
func parsePlayers(section string) []Participant {
	var players []Participant
	for _, line := range strings.Split(section, "\n") {
		stripped := strings.TrimSpace(line)
		stripped = strings.TrimSpace(strings.TrimPrefix(stripped, "-"))
		if stripped == "" {
			continue
		}
		if id := firstMention(stripped); id != "" {
			players = append(players, Participant{DiscordID: id})
			continue
		}
		players = append(players, Participant{DisplayName: stripped})
	}
	return players
}

// findQuestMessageRef returns the first Discord deep link in the labeled
// quest-link value or, failing that, anywhere in the message.
func findQuestMessageRef(raw, labeled string) *MessageRef {
	for _, text := range []string{labeled, raw} {
		for _, match := range urlPattern.FindAllString(text, -1) {
			guildID, channelID, messageID := splitChannelPath(cleanURL(match))
			if guildID != "" && channelID != "" && messageID != "" {
				return &MessageRef{GuildID: guildID, ChannelID: channelID, MessageID: messageID}
			}
		}
	}
	return nil
}

func extractRelatedLinks(raw string) []string {
	var links []string
	seen := map[string]bool{}
	for _, match := range urlPattern.FindAllString(raw, -1) {
		url := strings.TrimRight(match, ".,)")
		if !seen[url] {
			seen[url] = true
			links = append(links, url)
		}
	}
	return links
}

func firstMention(value string) string {
	if m := mentionPattern.FindStringSubmatch(value); m != nil {
		return m[1]
	}
	cleaned := strings.TrimSpace(value)
	if cleaned != "" && strings.Trim(cleaned, "0123456789") == "" {
		return cleaned
	}
	return ""
}

func parseKindHint(value string) string {
	return strings.ToLower(summaryKindHints.FindString(value))
}

func stripMetadataLines(raw string) string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if fieldPattern.MatchString(line) {
			continue
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// shorten truncates by runes, not bytes, so multibyte text stays valid
// UTF-8 after the cut.
func shorten(text string, limit int) string {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) <= limit {
		return trimmed
	}
	runes := []rune(trimmed)
	return strings.TrimSpace(string(runes[:limit-3])) + "..."
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
