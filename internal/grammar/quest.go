package grammar

import (
	"strings"
	"time"
)

// Draft is the complete parse result for one quest announcement. It is
// produced fresh on every parse; a Draft is never partially constructed.
type Draft struct {
	Title           string
	DescriptionMD   string
	RegionName      string
	RegionHex       string
	Tags            []string
	StartsAt        time.Time
	EndsAt          time.Time
	DurationMinutes int
	TableURL        string
	LinkedMessages  []MessageRef
	EventURL        string
	ImageURL        string
	AuthorID        string
	Source          MessageRef
	Raw             string
}

// Parse extracts a quest Draft from one raw announcement. Every extractor
// runs even after earlier ones fail, so the returned ParseError lists all
// missing or malformed sections at once.
func Parse(raw, authorID string, source MessageRef) (*Draft, error) {
	var errs []string

	title := extractTitle(raw)
	if title == "" {
		errs = append(errs, "missing quest title heading '# :gw:'")
	}

	description := extractDescription(raw)
	if description == "" {
		errs = append(errs, "missing description body after title")
	}

	regionName, regionHex := extractRegion(raw)
	if regionName == "" {
		errs = append(errs, "missing '**Region:**' section")
	}

	tags := extractTags(raw)
	if len(tags) == 0 {
		errs = append(errs, "missing or malformed '**Tags:**' section")
	}

	var startsAt, endsAt time.Time
	var duration int
	if m := strictSchedPattern.FindStringSubmatch(raw); m != nil {
		var err error
		startsAt, endsAt, duration, err = parseStrictSchedule(m[1], m[2])
		if err != nil {
			errs = append(errs, err.Error())
		}
	} else if m := flexSchedPattern.FindStringSubmatch(raw); m != nil {
		var err error
		startsAt, endsAt, duration, err = parseFlexibleSchedule(m[1])
		if err != nil {
			errs = append(errs, err.Error())
		}
	} else {
		errs = append(errs, "missing '**Scheduling & Duration:**' section")
	}

	tableURL := ""
	if m := tablePattern.FindStringSubmatch(raw); m != nil {
		tableURL = cleanURL(m[1])
	} else {
		errs = append(errs, "missing '**My table:**' URL")
	}
	_, tableChannel, _ := splitChannelPath(tableURL)

	eventURL := extractEventURL(raw)
	if eventURL == "" {
		eventURL = tableURL
		if eventURL == "" {
			errs = append(errs, "missing event URL")
		}
	}

	linked := extractLinkedMessages(raw, tableChannel)
	if len(linked) == 0 {
		errs = append(errs, "missing linked quest URLs under '**Linked Quests:**'")
	}

	if len(errs) > 0 {
		return nil, &ParseError{Errors: errs}
	}

	return &Draft{
		Title:           title,
		DescriptionMD:   description,
		RegionName:      regionName,
		RegionHex:       regionHex,
		Tags:            tags,
		StartsAt:        startsAt,
		EndsAt:          endsAt,
		DurationMinutes: duration,
		TableURL:        tableURL,
		LinkedMessages:  linked,
		EventURL:        eventURL,
		ImageURL:        firstImageURL(raw),
		AuthorID:        authorID,
		Source:          source,
		Raw:             raw,
	}, nil
}

// extractTitle tries the decorated heading first, then any level-1 heading.
func extractTitle(raw string) string {
	if m := titlePattern.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := genericTitlePattern.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// extractDescription returns everything between the title line and the next
// level-2 heading, trimmed of trailing blank lines.
func extractDescription(raw string) string {
	lines := strings.Split(raw, "\n")
	titleIdx := -1
	for i, line := range lines {
		stripped := strings.TrimSpace(line)
		if titlePattern.MatchString(stripped) || genericTitlePattern.MatchString(stripped) {
			titleIdx = i
			break
		}
	}
	if titleIdx < 0 {
		return ""
	}

	var desc []string
	for _, line := range lines[titleIdx+1:] {
		if strings.HasPrefix(strings.TrimSpace(line), "## ") {
			break
		}
		desc = append(desc, line)
	}
	for len(desc) > 0 && strings.TrimSpace(desc[len(desc)-1]) == "" {
		desc = desc[:len(desc)-1]
	}
	return strings.TrimSpace(strings.Join(desc, "\n"))
}

func extractRegion(raw string) (name, hex string) {
	m := regionPattern.FindStringSubmatch(raw)
	if m == nil {
		return "", ""
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
}

// extractTags reads the backtick-delimited tag line and returns the tags
// case-folded, de-duplicated, order preserved.
func extractTags(raw string) []string {
	m := tagsPattern.FindStringSubmatch(raw)
	if m == nil {
		return nil
	}

	var tags []string
	seen := map[string]bool{}
	for _, token := range tagTokenPattern.FindAllStringSubmatch(m[1], -1) {
		tag := strings.ToLower(strings.TrimSpace(token[1]))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}

// extractEventURL prefers the labeled event line, then any URL that looks
// like an event link, then any Discord invite or channel link.
func extractEventURL(raw string) string {
	if m := eventPattern.FindStringSubmatch(raw); m != nil {
		return cleanURL(m[1])
	}

	var preferred, secondary []string
	for _, match := range urlPattern.FindAllString(raw, -1) {
		url := cleanURL(match)
		lowered := strings.ToLower(url)
		switch {
		case strings.Contains(lowered, "event"):
			preferred = append(preferred, url)
		case strings.Contains(lowered, "discord.gg"), strings.Contains(lowered, "discord.com/channels"):
			secondary = append(secondary, url)
		}
	}
	if len(preferred) > 0 {
		return preferred[0]
	}
	if len(secondary) > 0 {
		return secondary[0]
	}
	return ""
}
