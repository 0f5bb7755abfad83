// Package grammar extracts structured drafts from raw Discord markdown.
//
// Quest announcements and adventure summaries are free-form community posts,
// so every extractor is tolerant: all field extractors run on every parse and
// the accumulated errors come back in a single ParseError instead of stopping
// at the first bad section.
package grammar

import (
	"regexp"
	"strings"
)

// Duration clamp applied by the flexible schedule grammar.
const (
	MinDurationMinutes = 15
	MaxDurationMinutes = 24 * 60
)

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".webp", ".gif"}

var (
	// titlePattern requires the decorative :gw: marker after the heading.
	titlePattern        = regexp.MustCompile(`(?m)^#\s*(?:<:gw:\d+>|:gw:)\s*(.+)$`)
	genericTitlePattern = regexp.MustCompile(`(?m)^#\s*(.+)$`)
	regionPattern       = regexp.MustCompile(`(?m)^\*\*Region:\*\*\s*([^\n,]+?)(?:,\s*(\S+))?\s*$`)
	tagsPattern         = regexp.MustCompile(`(?m)^\*\*Tags:\*\*\s*(.+)$`)
	tagTokenPattern     = regexp.MustCompile("`([^`]+)`")
	strictSchedPattern  = regexp.MustCompile(`(?m)^\*\*Scheduling\s*&\s*Duration:\*\*\s*(.+?)\s*UTC\s*[-–]\s*(.+?)\s*UTC`)
	flexSchedPattern    = regexp.MustCompile(`(?m)^\*\*Scheduling\s*&\s*Duration:\*\*\s*(.+)$`)
	tablePattern        = regexp.MustCompile(`(?m)^\*\*My table:\*\*\s*(\S+)\s*$`)
	eventPattern        = regexp.MustCompile(`(?m)^\*\*Link to event:\*\*\s*(\S+)\s*$`)
	timestampPattern    = regexp.MustCompile(`<t:(\d+)(?::[a-zA-Z])?>`)
	hourRangePattern    = regexp.MustCompile(`(?i)(\d+)(?:\s*[-–]\s*(\d+))?\s*(?:hour|hr)`)
	urlPattern          = regexp.MustCompile(`https?://[^\s>]+`)
)

// MessageRef identifies one Discord message.
type MessageRef struct {
	GuildID   string
	ChannelID string
	MessageID string
}

// ParseError reports every missing or malformed required section found in a
// single pass over the message.
type ParseError struct {
	Errors []string
}

func (e *ParseError) Error() string {
	return "grammar: " + strings.Join(e.Errors, "; ")
}

// cleanURL strips trailing punctuation that markdown link rendering tends to
// glue onto a bare URL.
func cleanURL(url string) string {
	return strings.TrimRight(url, ").,>\n\r")
}

// firstImageURL returns the first URL in raw that ends in a known image
// extension, or "".
func firstImageURL(raw string) string {
	for _, url := range urlPattern.FindAllString(raw, -1) {
		lowered := strings.ToLower(cleanURL(url))
		for _, ext := range imageExtensions {
			if strings.HasSuffix(lowered, ext) {
				return cleanURL(url)
			}
		}
	}
	return ""
}
