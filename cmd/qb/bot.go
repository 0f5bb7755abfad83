package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"questboard/internal/config"
	"questboard/internal/dashboard"
	"questboard/internal/db"
	"questboard/internal/gateway"
	"questboard/internal/ingest"
	"questboard/internal/reminder"
	"questboard/internal/store"
)

func newBotCmd() *cobra.Command {
	var (
		configPath    string
		logLevel      string
		withDashboard bool
	)

	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Run the Questboard bot",
		Long: `Connects to the Discord Gateway and ingests quest and summary posts
from the configured channels until interrupted. Also runs the summary
reminder sweep, and the dashboard API when requested.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd, configPath, logLevel, withDashboard)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "questboard.yaml", "path to Questboard config file")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&withDashboard, "dashboard", false, "also serve the dashboard API")
	return cmd
}

func runBot(cmd *cobra.Command, configPath, logLevel string, withDashboard bool) error {
	log := newLogger(logLevel)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}

	quests := store.Quests{DB: gormDB}
	coord, err := ingest.NewCoordinator(ingest.CoordinatorOpts{
		Records:   store.Records{DB: gormDB},
		Summaries: store.Summaries{DB: gormDB},
		IDs:       store.IDs{DB: gormDB},
		Failures:  store.Failures{DB: gormDB},
		Flags:     quests,
		Log:       log.With().Str("component", "ingest").Logger(),
	})
	if err != nil {
		return err
	}

	gw, err := gateway.New(gateway.Opts{
		Config:   cfg,
		Ingester: coord,
		Logger:   log.With().Str("component", "gateway").Logger(),
	})
	if err != nil {
		return err
	}
	coord.SetAudit(gw)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := gw.Connect(ctx); err != nil {
		return err
	}
	defer gw.Close()
	log.Info().Str("guild", cfg.Guild).Msg("questboard bot started")

	if cfg.Reminder.Channel != "" {
		sweeper, err := reminder.New(reminder.Opts{
			Quests:    quests,
			Poster:    gw,
			ChannelID: cfg.Reminder.Channel,
			Logger:    log.With().Str("component", "reminder").Logger(),
		})
		if err != nil {
			return err
		}
		if err := sweeper.Start(cfg.Reminder.Schedule); err != nil {
			return err
		}
		defer sweeper.Stop()
		log.Info().Str("schedule", cfg.Reminder.Schedule).Msg("summary reminder sweep scheduled")
	}

	if withDashboard {
		go func() {
			if err := dashboard.Start(ctx, dashboard.StartOpts{DB: gormDB, Port: cfg.Dashboard.Port}); err != nil {
				log.Error().Err(err).Msg("dashboard stopped")
			}
		}()
		log.Info().Int("port", cfg.Dashboard.Port).Msg("dashboard API serving")
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")
	return nil
}

// newLogger builds the service logger writing console output to stderr.
func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("service", "questboard").Logger()
}
