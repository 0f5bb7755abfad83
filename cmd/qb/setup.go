package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"questboard/internal/config"
)

func newSetupCmd() *cobra.Command {
	var (
		configPath string
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Interactively create a Questboard config file",
		Long: `Walks through the required settings and writes a starter config file.
The bot token is read without echoing when run in a terminal.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetup(cmd, configPath, force)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "questboard.yaml", "path to write the config file")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

func runSetup(cmd *cobra.Command, configPath string, force bool) error {
	out := cmd.OutOrStdout()

	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
	}

	reader := bufio.NewReader(cmd.InOrStdin())

	guild, err := promptLine(out, reader, "Guild short name (e.g. westmarch): ")
	if err != nil {
		return err
	}
	guildID, err := promptLine(out, reader, "Discord guild ID: ")
	if err != nil {
		return err
	}
	questChannels, err := promptLine(out, reader, "Quest channel IDs (comma separated): ")
	if err != nil {
		return err
	}
	summaryChannels, err := promptLine(out, reader, "Summary channel IDs (comma separated, optional): ")
	if err != nil {
		return err
	}
	token, err := promptToken(cmd, reader)
	if err != nil {
		return err
	}

	cfg := config.Config{
		Guild: guild,
		Discord: config.DiscordConfig{
			Token:           token,
			GuildID:         guildID,
			QuestChannels:   splitIDs(questChannels),
			SummaryChannels: splitIDs(summaryChannels),
		},
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("write %s: %w", configPath, err)
	}

	fmt.Fprintf(out, "\nWrote %s\n", configPath)
	fmt.Fprintln(out, "Next: qb db init, then qb bot")
	return nil
}

// promptToken reads the bot token without echoing when stdin is a terminal,
// falling back to a plain line read otherwise (pipes, tests).
func promptToken(cmd *cobra.Command, reader *bufio.Reader) (string, error) {
	out := cmd.OutOrStdout()
	fmt.Fprint(out, "Discord bot token: ")

	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("read token: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func promptLine(out io.Writer, reader *bufio.Reader, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func splitIDs(raw string) []string {
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
