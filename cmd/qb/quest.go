package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"questboard/internal/config"
	"questboard/internal/db"
	"questboard/internal/models"
	"questboard/internal/quest"
	"questboard/internal/store"
)

// saveRetries bounds reload-and-retry on optimistic-concurrency conflicts.
const saveRetries = 3

func newQuestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quest",
		Short: "Quest lifecycle commands",
	}

	cmd.AddCommand(newQuestCreateCmd())
	cmd.AddCommand(newQuestListCmd())
	cmd.AddCommand(newQuestShowCmd())
	cmd.AddCommand(newQuestAnnounceCmd())
	cmd.AddCommand(newQuestOpenCmd())
	cmd.AddCommand(newQuestSignupCmd())
	cmd.AddCommand(newQuestWithdrawCmd())
	cmd.AddCommand(newQuestCloseCmd())
	cmd.AddCommand(newQuestRosterCmd())
	cmd.AddCommand(newQuestStartCmd())
	cmd.AddCommand(newQuestCompleteCmd())
	cmd.AddCommand(newQuestCancelCmd())
	cmd.AddCommand(newQuestNudgeCmd())
	return cmd
}

func newQuestCreateCmd() *cobra.Command {
	var (
		configPath string
		referee    string
		title      string
		startAt    string
		duration   int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new quest in DRAFT",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			var startingAt *time.Time
			if startAt != "" {
				t, err := time.Parse("2006-01-02 15:04", startAt)
				if err != nil {
					return fmt.Errorf("parse --start (want \"2006-01-02 15:04\"): %w", err)
				}
				startingAt = &t
			}

			ids := store.IDs{DB: gormDB}
			questID, err := ids.NextQuestID()
			if err != nil {
				return err
			}

			q := quest.New(questID, referee, title, startingAt, duration, time.Now().UTC())
			if err := (store.Quests{DB: gormDB}).Save(q); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created quest %s (draft)\n", q.QuestID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "questboard.yaml", "path to Questboard config file")
	cmd.Flags().StringVar(&referee, "referee", "", "referee Discord ID (required)")
	cmd.Flags().StringVar(&title, "title", "", "quest title (required)")
	cmd.Flags().StringVar(&startAt, "start", "", "scheduled start, UTC (\"2006-01-02 15:04\")")
	cmd.Flags().IntVar(&duration, "duration", 180, "expected duration in minutes")
	cmd.MarkFlagRequired("referee")
	cmd.MarkFlagRequired("title")
	return cmd
}

func newQuestListCmd() *cobra.Command {
	var (
		configPath string
		status     string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List quests",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			quests, err := (store.Quests{DB: gormDB}).List(status)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(quests) == 0 {
				fmt.Fprintln(out, "No quests found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tREFEREE\tTITLE\tSTART")
			for _, q := range quests {
				start := ""
				if q.StartingAt != nil {
					start = q.StartingAt.UTC().Format("2006-01-02 15:04")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", q.QuestID, q.Status, q.RefereeID, q.Title, start)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "questboard.yaml", "path to Questboard config file")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	return cmd
}

func newQuestShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <quest-id>",
		Short: "Show one quest with its signups and roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			q, err := (store.Quests{DB: gormDB}).Get(args[0])
			if err != nil {
				return err
			}
			printQuest(cmd, q)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "questboard.yaml", "path to Questboard config file")
	return cmd
}

func printQuest(cmd *cobra.Command, q *models.Quest) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s  %s\n", q.QuestID, q.Title)
	fmt.Fprintf(out, "Status:   %s (since %s)\n", q.Status, q.StatusUpdatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(out, "Referee:  %s\n", q.RefereeID)
	if q.StartingAt != nil {
		fmt.Fprintf(out, "Start:    %s UTC (%d min)\n", q.StartingAt.UTC().Format("2006-01-02 15:04"), q.DurationMinutes)
	}
	if q.CancelledAt != nil {
		fmt.Fprintf(out, "Cancelled: %s (%s)\n", q.CancelledAt.UTC().Format(time.RFC3339), q.CancelReason)
	}
	if q.SummaryNeeded {
		fmt.Fprintln(out, "Summary:  pending")
	}

	if len(q.Signups) > 0 {
		fmt.Fprintf(out, "\nSignups (%d):\n", len(q.Signups))
		for _, s := range q.Signups {
			fmt.Fprintf(out, "  %s as %s [%s]\n", s.UserID, s.CharacterID, s.Status)
		}
	}
	if len(q.Roster) > 0 {
		fmt.Fprintf(out, "\nRoster (%d):\n", len(q.Roster))
		for _, r := range q.Roster {
			marker := ""
			if r.Waitlisted {
				marker = " (waitlisted)"
			}
			fmt.Fprintf(out, "  %s as %s%s\n", r.UserID, r.CharacterID, marker)
		}
	}
}

func newQuestAnnounceCmd() *cobra.Command {
	return newTransitionCmd("announce", "Announce a draft quest", quest.Announce)
}

func newQuestOpenCmd() *cobra.Command {
	return newTransitionCmd("open-signups", "Open signups for an announced quest", quest.OpenSignups)
}

func newQuestCloseCmd() *cobra.Command {
	return newTransitionCmd("close-signups", "Stop accepting signups", quest.CloseSignups)
}

func newQuestStartCmd() *cobra.Command {
	return newTransitionCmd("start", "Mark the quest as running", quest.MarkRunning)
}

func newQuestCompleteCmd() *cobra.Command {
	return newTransitionCmd("complete", "Mark the quest as completed", quest.MarkCompleted)
}

// newTransitionCmd builds a command for a plain status transition taking no
// arguments beyond the quest id.
func newTransitionCmd(use, short string, op func(*models.Quest, time.Time) error) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   use + " <quest-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateQuest(cmd, configPath, args[0], func(q *models.Quest) error {
				return op(q, time.Now().UTC())
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "questboard.yaml", "path to Questboard config file")
	return cmd
}

func newQuestSignupCmd() *cobra.Command {
	var (
		configPath string
		userID     string
		character  string
	)

	cmd := &cobra.Command{
		Use:   "signup <quest-id>",
		Short: "Apply a player to a quest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateQuest(cmd, configPath, args[0], func(q *models.Quest) error {
				return quest.AddSignup(q, userID, character, time.Now().UTC())
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "questboard.yaml", "path to Questboard config file")
	cmd.Flags().StringVar(&userID, "user", "", "player Discord ID (required)")
	cmd.Flags().StringVar(&character, "character", "", "character ID (required)")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("character")
	return cmd
}

func newQuestWithdrawCmd() *cobra.Command {
	var (
		configPath string
		userID     string
	)

	cmd := &cobra.Command{
		Use:   "withdraw <quest-id>",
		Short: "Withdraw a player's application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateQuest(cmd, configPath, args[0], func(q *models.Quest) error {
				return quest.RemoveSignup(q, userID, time.Now().UTC())
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "questboard.yaml", "path to Questboard config file")
	cmd.Flags().StringVar(&userID, "user", "", "player Discord ID (required)")
	cmd.MarkFlagRequired("user")
	return cmd
}

func newQuestRosterCmd() *cobra.Command {
	var (
		configPath string
		selected   []string
		waitlisted []string
	)

	cmd := &cobra.Command{
		Use:   "roster <quest-id>",
		Short: "Select the roster and waitlist",
		Long: `Selects the roster from signups. Seats are given as user:character
pairs. Re-running replaces the previous roster; signups not named keep
their current status.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := parseSeats(selected)
			if err != nil {
				return err
			}
			wait, err := parseSeats(waitlisted)
			if err != nil {
				return err
			}
			return mutateQuest(cmd, configPath, args[0], func(q *models.Quest) error {
				return quest.SelectRoster(q, sel, wait, time.Now().UTC())
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "questboard.yaml", "path to Questboard config file")
	cmd.Flags().StringSliceVar(&selected, "select", nil, "selected seats as user:character")
	cmd.Flags().StringSliceVar(&waitlisted, "waitlist", nil, "waitlisted seats as user:character")
	return cmd
}

func parseSeats(raw []string) ([]quest.Seat, error) {
	seats := make([]quest.Seat, 0, len(raw))
	for _, pair := range raw {
		user, character, ok := strings.Cut(pair, ":")
		if !ok || user == "" || character == "" {
			return nil, fmt.Errorf("invalid seat %q (want user:character)", pair)
		}
		seats = append(seats, quest.Seat{UserID: user, CharacterID: character})
	}
	return seats, nil
}

func newQuestCancelCmd() *cobra.Command {
	var (
		configPath string
		reason     string
	)

	cmd := &cobra.Command{
		Use:   "cancel <quest-id>",
		Short: "Cancel a quest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateQuest(cmd, configPath, args[0], func(q *models.Quest) error {
				return quest.Cancel(q, reason, time.Now().UTC())
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "questboard.yaml", "path to Questboard config file")
	cmd.Flags().StringVar(&reason, "reason", "", "cancellation reason")
	return cmd
}

func newQuestNudgeCmd() *cobra.Command {
	var (
		configPath string
		actorID    string
	)

	cmd := &cobra.Command{
		Use:   "nudge <quest-id>",
		Short: "Re-announce a quest with open signups",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateQuest(cmd, configPath, args[0], func(q *models.Quest) error {
				return quest.Nudge(q, actorID, time.Now().UTC())
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "questboard.yaml", "path to Questboard config file")
	cmd.Flags().StringVar(&actorID, "as", "", "acting referee Discord ID (required)")
	cmd.MarkFlagRequired("as")
	return cmd
}

// mutateQuest loads the aggregate, applies op, and saves, retrying from a
// fresh load when a concurrent writer bumps the version first.
func mutateQuest(cmd *cobra.Command, configPath, questID string, op func(*models.Quest) error) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	quests := store.Quests{DB: gormDB}

	for attempt := 0; ; attempt++ {
		q, err := quests.Get(questID)
		if err != nil {
			return err
		}
		if err := op(q); err != nil {
			return err
		}
		err = quests.Save(q)
		if err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Quest %s is now %s\n", q.QuestID, q.Status)
			return nil
		}
		if !errors.Is(err, store.ErrVersionConflict) || attempt == saveRetries {
			return err
		}
	}
}

func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to %s: %w", cfg.Database.Database, err)
	}

	return cfg, gormDB, nil
}
