package grammar

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

const validQuest = "# :gw: The Goblin Warrens\n" +
	"\n" +
	"A dangerous delve into the warrens beneath the Barrowfields.\n" +
	"\n" +
	"**Region:** Barrowfields, 0412\n" +
	"**Tags:** `Combat` `exploration` `combat`\n" +
	"**Scheduling & Duration:** 2026-03-14 19:00 UTC – 22:30 UTC\n" +
	"**My table:** https://discord.com/channels/100/200/300\n" +
	"**Link to event:** https://discord.com/channels/100/200/400\n" +
	"**Linked Quests:**\n" +
	"https://discord.com/channels/100/200/301\n" +
	"https://discord.com/channels/100/250/302\n"

func testSource() MessageRef {
	return MessageRef{GuildID: "100", ChannelID: "200", MessageID: "999"}
}

func TestParse_ValidQuest(t *testing.T) {
	draft, err := Parse(validQuest, "author1", testSource())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if draft.Title != "The Goblin Warrens" {
		t.Errorf("Title = %q", draft.Title)
	}
	if !strings.Contains(draft.DescriptionMD, "dangerous delve") {
		t.Errorf("DescriptionMD = %q", draft.DescriptionMD)
	}
	if draft.RegionName != "Barrowfields" || draft.RegionHex != "0412" {
		t.Errorf("Region = %q/%q", draft.RegionName, draft.RegionHex)
	}
	if want := []string{"combat", "exploration"}; !reflect.DeepEqual(draft.Tags, want) {
		t.Errorf("Tags = %v, want %v", draft.Tags, want)
	}

	wantStart := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)
	if !draft.StartsAt.Equal(wantStart) {
		t.Errorf("StartsAt = %v, want %v", draft.StartsAt, wantStart)
	}
	if draft.DurationMinutes != 210 {
		t.Errorf("DurationMinutes = %d, want 210", draft.DurationMinutes)
	}
	if !draft.EndsAt.Equal(wantStart.Add(210 * time.Minute)) {
		t.Errorf("EndsAt = %v", draft.EndsAt)
	}

	if draft.TableURL != "https://discord.com/channels/100/200/300" {
		t.Errorf("TableURL = %q", draft.TableURL)
	}
	if draft.EventURL != "https://discord.com/channels/100/200/400" {
		t.Errorf("EventURL = %q", draft.EventURL)
	}

	wantLinked := []MessageRef{
		{GuildID: "100", ChannelID: "200", MessageID: "301"},
		{GuildID: "100", ChannelID: "250", MessageID: "302"},
	}
	if !reflect.DeepEqual(draft.LinkedMessages, wantLinked) {
		t.Errorf("LinkedMessages = %v, want %v", draft.LinkedMessages, wantLinked)
	}

	if draft.AuthorID != "author1" {
		t.Errorf("AuthorID = %q", draft.AuthorID)
	}
	if draft.Source != testSource() {
		t.Errorf("Source = %v", draft.Source)
	}
	if draft.Raw != validQuest {
		t.Error("Raw not preserved")
	}
}

func TestParse_PlainHeadingAccepted(t *testing.T) {
	raw := strings.Replace(validQuest, "# :gw: The Goblin Warrens", "# The Goblin Warrens", 1)
	draft, err := Parse(raw, "author1", testSource())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if draft.Title != "The Goblin Warrens" {
		t.Errorf("Title = %q", draft.Title)
	}
}

func TestParse_CustomEmojiMarker(t *testing.T) {
	raw := strings.Replace(validQuest, "# :gw: The Goblin Warrens", "# <:gw:123456789> The Goblin Warrens", 1)
	draft, err := Parse(raw, "author1", testSource())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if draft.Title != "The Goblin Warrens" {
		t.Errorf("Title = %q", draft.Title)
	}
}

func TestParse_EventURLFallsBackToTable(t *testing.T) {
	raw := strings.Replace(validQuest, "**Link to event:** https://discord.com/channels/100/200/400\n", "", 1)
	draft, err := Parse(raw, "author1", testSource())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if draft.EventURL != draft.TableURL {
		t.Errorf("EventURL = %q, want table URL %q", draft.EventURL, draft.TableURL)
	}
}

func TestParse_AccumulatesAllErrors(t *testing.T) {
	_, err := Parse("just some text without any sections", "author1", testSource())
	if err == nil {
		t.Fatal("expected ParseError")
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error type = %T", err)
	}
	// One error per missing required section, all reported together.
	if len(parseErr.Errors) < 6 {
		t.Errorf("len(Errors) = %d, want at least 6: %v", len(parseErr.Errors), parseErr.Errors)
	}
	for _, want := range []string{"title", "Region", "Tags", "Scheduling", "table", "linked quest"} {
		found := false
		for _, e := range parseErr.Errors {
			if strings.Contains(strings.ToLower(e), strings.ToLower(want)) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("no error mentioning %q in %v", want, parseErr.Errors)
		}
	}
}

func TestParse_SingleMissingSection(t *testing.T) {
	raw := strings.Replace(validQuest, "**Region:** Barrowfields, 0412\n", "", 1)
	_, err := Parse(raw, "author1", testSource())
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error = %v", err)
	}
	if len(parseErr.Errors) != 1 {
		t.Fatalf("Errors = %v, want exactly one", parseErr.Errors)
	}
	if !strings.Contains(parseErr.Errors[0], "Region") {
		t.Errorf("error = %q", parseErr.Errors[0])
	}
}

func TestExtractTags(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"normalized and deduplicated", "**Tags:** `Combat` `COMBAT` `social`", []string{"combat", "social"}},
		{"whitespace trimmed", "**Tags:** ` mystery ` `heist`", []string{"mystery", "heist"}},
		{"no backtick tokens", "**Tags:** combat, social", nil},
		{"empty token skipped", "**Tags:** `` `combat`", []string{"combat"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractTags(tt.line)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("extractTags = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractDescription_StopsAtSection(t *testing.T) {
	raw := "# :gw: Title\n\nFirst paragraph.\n\nSecond paragraph.\n\n## Rules\nNo rules here.\n"
	got := extractDescription(raw)
	if !strings.Contains(got, "Second paragraph.") {
		t.Errorf("description = %q, want both paragraphs", got)
	}
	if strings.Contains(got, "No rules") {
		t.Errorf("description leaked past section heading: %q", got)
	}
}

func TestExtractRegion_NoHex(t *testing.T) {
	name, hex := extractRegion("**Region:** The Shattered Coast\n")
	if name != "The Shattered Coast" || hex != "" {
		t.Errorf("region = %q/%q", name, hex)
	}
}

func TestFirstImageURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"png", "look https://cdn.example.com/map.png here", "https://cdn.example.com/map.png"},
		{"case insensitive", "https://cdn.example.com/MAP.PNG", "https://cdn.example.com/MAP.PNG"},
		{"trailing paren stripped", "(https://cdn.example.com/map.webp)", "https://cdn.example.com/map.webp"},
		{"non-image skipped", "https://example.com/page https://x.com/a.gif", "https://x.com/a.gif"},
		{"none", "no links at all", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := firstImageURL(tt.raw); got != tt.want {
				t.Errorf("firstImageURL = %q, want %q", got, tt.want)
			}
		})
	}
}
