// Package config provides YAML-based configuration loading for Questboard.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Questboard configuration, loaded from config.yaml.
type Config struct {
	Guild     string          `yaml:"guild"`
	Discord   DiscordConfig   `yaml:"discord"`
	Database  DatabaseConfig  `yaml:"database"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Reminder  ReminderConfig  `yaml:"reminder"`
}

// DiscordConfig holds the bot token and the channels the bot watches.
type DiscordConfig struct {
	Token           string   `yaml:"token"`
	GuildID         string   `yaml:"guild_id"`
	QuestChannels   []string `yaml:"quest_channels"`
	SummaryChannels []string `yaml:"summary_channels"`
	AuditChannel    string   `yaml:"audit_channel"`
}

// DatabaseConfig holds connection settings for the MySQL server.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// DashboardConfig controls the read-only HTTP API.
type DashboardConfig struct {
	Port int `yaml:"port"`
}

// ReminderConfig controls the summary-reminder sweep.
type ReminderConfig struct {
	Schedule string `yaml:"schedule"`
	Channel  string `yaml:"channel"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}
	if c.Database.Database == "" && c.Guild != "" {
		c.Database.Database = "questboard_" + c.Guild
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8090
	}
	if c.Reminder.Schedule == "" {
		c.Reminder.Schedule = "0 9 * * *"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Guild == "" {
		errs = append(errs, "guild is required")
	}
	if c.Discord.Token == "" {
		errs = append(errs, "discord.token is required")
	}
	if c.Discord.GuildID == "" {
		errs = append(errs, "discord.guild_id is required")
	}
	if len(c.Discord.QuestChannels) == 0 {
		errs = append(errs, "at least one quest channel is required")
	}
	for i, ch := range c.Discord.QuestChannels {
		if ch == "" {
			errs = append(errs, fmt.Sprintf("discord.quest_channels[%d] is empty", i))
		}
	}
	for i, ch := range c.Discord.SummaryChannels {
		if ch == "" {
			errs = append(errs, fmt.Sprintf("discord.summary_channels[%d] is empty", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// WatchesQuestChannel reports whether channelID is a configured quest channel.
func (c *Config) WatchesQuestChannel(channelID string) bool {
	return containsString(c.Discord.QuestChannels, channelID)
}

// WatchesSummaryChannel reports whether channelID is a configured summary channel.
func (c *Config) WatchesSummaryChannel(channelID string) bool {
	return containsString(c.Discord.SummaryChannels, channelID)
}

func containsString(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
