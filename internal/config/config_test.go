package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fullYAML = `
guild: westmarch

discord:
  token: bot-token-abc
  guild_id: "111111111111111111"
  quest_channels:
    - "222222222222222222"
    - "333333333333333333"
  summary_channels:
    - "444444444444444444"
  audit_channel: "555555555555555555"

database:
  host: 10.0.0.5
  port: 3307
  user: questboard
  password: secret
  database: questboard_westmarch

dashboard:
  port: 9000

reminder:
  schedule: "0 18 * * *"
  channel: "666666666666666666"
`

const minimalYAML = `
guild: eastmarch
discord:
  token: bot-token-xyz
  guild_id: "999999999999999999"
  quest_channels:
    - "888888888888888888"
`

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Guild != "westmarch" {
		t.Errorf("Guild = %q, want %q", cfg.Guild, "westmarch")
	}
	if cfg.Discord.Token != "bot-token-abc" {
		t.Errorf("Discord.Token = %q, want %q", cfg.Discord.Token, "bot-token-abc")
	}
	if cfg.Discord.GuildID != "111111111111111111" {
		t.Errorf("Discord.GuildID = %q, want %q", cfg.Discord.GuildID, "111111111111111111")
	}
	if len(cfg.Discord.QuestChannels) != 2 {
		t.Fatalf("len(QuestChannels) = %d, want 2", len(cfg.Discord.QuestChannels))
	}
	if len(cfg.Discord.SummaryChannels) != 1 {
		t.Fatalf("len(SummaryChannels) = %d, want 1", len(cfg.Discord.SummaryChannels))
	}
	if cfg.Discord.AuditChannel != "555555555555555555" {
		t.Errorf("Discord.AuditChannel = %q, want %q", cfg.Discord.AuditChannel, "555555555555555555")
	}
	if cfg.Database.Host != "10.0.0.5" {
		t.Errorf("Database.Host = %q, want %q", cfg.Database.Host, "10.0.0.5")
	}
	if cfg.Database.Port != 3307 {
		t.Errorf("Database.Port = %d, want %d", cfg.Database.Port, 3307)
	}
	if cfg.Database.Database != "questboard_westmarch" {
		t.Errorf("Database.Database = %q, want %q", cfg.Database.Database, "questboard_westmarch")
	}
	if cfg.Dashboard.Port != 9000 {
		t.Errorf("Dashboard.Port = %d, want %d", cfg.Dashboard.Port, 9000)
	}
	if cfg.Reminder.Schedule != "0 18 * * *" {
		t.Errorf("Reminder.Schedule = %q, want %q", cfg.Reminder.Schedule, "0 18 * * *")
	}
	if cfg.Reminder.Channel != "666666666666666666" {
		t.Errorf("Reminder.Channel = %q, want %q", cfg.Reminder.Channel, "666666666666666666")
	}
}

func TestParse_MinimalConfig_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Database.Host != "127.0.0.1" {
		t.Errorf("Database.Host = %q, want %q (default)", cfg.Database.Host, "127.0.0.1")
	}
	if cfg.Database.Port != 3306 {
		t.Errorf("Database.Port = %d, want %d (default)", cfg.Database.Port, 3306)
	}
	if cfg.Database.User != "root" {
		t.Errorf("Database.User = %q, want %q (default)", cfg.Database.User, "root")
	}
	if cfg.Database.Database != "questboard_eastmarch" {
		t.Errorf("Database.Database = %q, want %q (derived from guild)", cfg.Database.Database, "questboard_eastmarch")
	}
	if cfg.Dashboard.Port != 8090 {
		t.Errorf("Dashboard.Port = %d, want %d (default)", cfg.Dashboard.Port, 8090)
	}
	if cfg.Reminder.Schedule != "0 9 * * *" {
		t.Errorf("Reminder.Schedule = %q, want %q (default)", cfg.Reminder.Schedule, "0 9 * * *")
	}
}

func TestParse_ExplicitDatabase_NotOverridden(t *testing.T) {
	yaml := `
guild: westmarch
discord:
  token: t
  guild_id: "1"
  quest_channels: ["2"]
database:
  database: my_custom_db
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Database != "my_custom_db" {
		t.Errorf("Database.Database = %q, want %q (should not be overridden)", cfg.Database.Database, "my_custom_db")
	}
}

func TestParse_MissingGuild(t *testing.T) {
	yaml := `
discord:
  token: t
  guild_id: "1"
  quest_channels: ["2"]
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected error for missing guild")
	}
	if !strings.Contains(err.Error(), "guild is required") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "guild is required")
	}
}

func TestParse_MissingToken(t *testing.T) {
	yaml := `
guild: westmarch
discord:
  guild_id: "1"
  quest_channels: ["2"]
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected error for missing token")
	}
	if !strings.Contains(err.Error(), "discord.token is required") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "discord.token is required")
	}
}

func TestParse_NoQuestChannels(t *testing.T) {
	yaml := `
guild: westmarch
discord:
  token: t
  guild_id: "1"
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected error for no quest channels")
	}
	if !strings.Contains(err.Error(), "at least one quest channel is required") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "at least one quest channel is required")
	}
}

func TestParse_EmptyQuestChannel(t *testing.T) {
	yaml := `
guild: westmarch
discord:
  token: t
  guild_id: "1"
  quest_channels: [""]
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected error for empty quest channel")
	}
	if !strings.Contains(err.Error(), "discord.quest_channels[0] is empty") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "discord.quest_channels[0] is empty")
	}
}

func TestParse_MultipleValidationErrors(t *testing.T) {
	yaml := `
discord:
  quest_channels: ["2"]
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "guild is required") {
		t.Errorf("error missing 'guild is required': %s", msg)
	}
	if !strings.Contains(msg, "discord.token is required") {
		t.Errorf("error missing 'discord.token is required': %s", msg)
	}
	if !strings.Contains(msg, "discord.guild_id is required") {
		t.Errorf("error missing 'discord.guild_id is required': %s", msg)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte(":::invalid"))
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "config: parse:") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "config: parse:")
	}
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(minimalYAML), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Guild != "eastmarch" {
		t.Errorf("Guild = %q, want %q", cfg.Guild, "eastmarch")
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "config: read") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "config: read")
	}
}

func TestWatchesQuestChannel(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.WatchesQuestChannel("222222222222222222") {
		t.Error("WatchesQuestChannel(configured) = false, want true")
	}
	if cfg.WatchesQuestChannel("444444444444444444") {
		t.Error("WatchesQuestChannel(summary channel) = true, want false")
	}
	if !cfg.WatchesSummaryChannel("444444444444444444") {
		t.Error("WatchesSummaryChannel(configured) = false, want true")
	}
	if cfg.WatchesSummaryChannel("nope") {
		t.Error("WatchesSummaryChannel(unknown) = true, want false")
	}
}
