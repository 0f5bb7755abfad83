// Package gateway connects quest and summary channels to the ingestion
// pipeline over the Discord Gateway WebSocket.
package gateway

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"questboard/internal/config"
	"questboard/internal/grammar"
	"questboard/internal/ingest"
)

const (
	// maxRetries is the max number of retries for rate-limited API calls.
	maxRetries = 3
	// baseBackoff is the initial backoff duration for rate-limited calls.
	baseBackoff = 2 * time.Second
	// maxBackoff caps the exponential backoff.
	maxBackoff = 2 * time.Minute
)

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	Open() error
	Close() error
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	AddHandler(handler interface{}) func()
}

// realSession wraps *discordgo.Session to implement the session interface.
type realSession struct {
	s *discordgo.Session
}

func (r *realSession) Open() error  { return r.s.Open() }
func (r *realSession) Close() error { return r.s.Close() }
func (r *realSession) ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return r.s.ChannelMessage(channelID, messageID, options...)
}
func (r *realSession) ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return r.s.ChannelMessageSend(channelID, content, options...)
}
func (r *realSession) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return r.s.ChannelMessageSendEmbed(channelID, embed, options...)
}
func (r *realSession) AddHandler(handler interface{}) func() {
	return r.s.AddHandler(handler)
}

// ingester is the slice of Coordinator the gateway drives.
type ingester interface {
	IngestQuest(msg ingest.Message)
	IngestQuestEdit(before, after ingest.Message)
	IngestQuestDelete(ref grammar.MessageRef)
	IngestSummary(msg ingest.Message)
	IngestSummaryEdit(before, after ingest.Message)
}

// Gateway routes message events on watched channels to the ingestion
// coordinator. It never blocks the event loop on ingestion failures.
type Gateway struct {
	sess      session
	cfg       *config.Config
	ingester  ingester
	log       zerolog.Logger
	mu        sync.Mutex
	botUserID string
	connected bool
	closed    bool
	handlers  []func()
}

// Opts holds parameters for creating a Gateway.
type Opts struct {
	Config   *config.Config
	Ingester ingester
	Logger   zerolog.Logger
	// For testing: inject a mock session instead of real Discord API.
	Session session
}

// New creates a Gateway.
func New(opts Opts) (*Gateway, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("gateway: config is required")
	}
	if opts.Ingester == nil {
		return nil, fmt.Errorf("gateway: ingester is required")
	}
	if opts.Session == nil && opts.Config.Discord.Token == "" {
		return nil, fmt.Errorf("gateway: bot token is required")
	}
	return &Gateway{
		sess:     opts.Session,
		cfg:      opts.Config,
		ingester: opts.Ingester,
		log:      opts.Logger,
	}, nil
}

// Connect opens the Gateway WebSocket and registers event handlers.
func (g *Gateway) Connect(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return fmt.Errorf("gateway: already closed")
	}
	if g.connected {
		return nil
	}

	if g.sess == nil {
		dg, err := discordgo.New("Bot " + g.cfg.Discord.Token)
		if err != nil {
			return fmt.Errorf("gateway: create session: %w", err)
		}
		dg.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent
		g.sess = &realSession{s: dg}
	}

	g.handlers = append(g.handlers,
		g.sess.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
			g.mu.Lock()
			g.botUserID = r.User.ID
			g.mu.Unlock()
			g.log.Info().Str("username", r.User.Username).Str("user_id", r.User.ID).Msg("gateway connected")
		}),
		g.sess.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
			g.log.Warn().Msg("gateway disconnected, awaiting auto-reconnect")
		}),
		g.sess.AddHandler(func(_ *discordgo.Session, _ *discordgo.Resumed) {
			g.log.Info().Msg("gateway session resumed")
		}),
		g.sess.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
			g.HandleCreate(m)
		}),
		g.sess.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageUpdate) {
			g.HandleUpdate(m)
		}),
		g.sess.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageDelete) {
			g.HandleDelete(m)
		}),
	)

	if err := g.sess.Open(); err != nil {
		return fmt.Errorf("gateway: open: %w", err)
	}
	g.connected = true
	return nil
}

// Close shuts down the Gateway connection.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	g.connected = false
	for _, remove := range g.handlers {
		remove()
	}
	g.handlers = nil
	if g.sess != nil {
		return g.sess.Close()
	}
	return nil
}

// HandleCreate routes a new message on a watched channel to ingestion.
func (g *Gateway) HandleCreate(m *discordgo.MessageCreate) {
	msg, ok := g.inboundMessage(m.Message)
	if !ok {
		return
	}
	switch {
	case g.cfg.WatchesQuestChannel(m.ChannelID):
		g.ingester.IngestQuest(msg)
	case g.cfg.WatchesSummaryChannel(m.ChannelID):
		g.ingester.IngestSummary(msg)
	}
}

// HandleUpdate routes an edited message to re-ingestion. Discord edit events
// may carry a partial message without an author; those are fetched back from
// the API before processing.
func (g *Gateway) HandleUpdate(m *discordgo.MessageUpdate) {
	if !g.cfg.WatchesQuestChannel(m.ChannelID) && !g.cfg.WatchesSummaryChannel(m.ChannelID) {
		return
	}

	full := m.Message
	if full.Author == nil || full.Content == "" {
		fetched, err := g.sess.ChannelMessage(m.ChannelID, m.ID)
		if err != nil {
			g.log.Warn().Err(err).Str("channel_id", m.ChannelID).Str("message_id", m.ID).
				Msg("fetch edited message failed")
			return
		}
		full = fetched
	}

	after, ok := g.inboundMessage(full)
	if !ok {
		return
	}
	var before ingest.Message
	if m.BeforeUpdate != nil {
		before, _ = g.inboundMessage(m.BeforeUpdate)
	}

	if g.cfg.WatchesQuestChannel(m.ChannelID) {
		g.ingester.IngestQuestEdit(before, after)
	} else {
		g.ingester.IngestSummaryEdit(before, after)
	}
}

// HandleDelete marks the record for a deleted quest message as cancelled.
// Summary deletions are ignored; published prose is kept.
func (g *Gateway) HandleDelete(m *discordgo.MessageDelete) {
	if !g.cfg.WatchesQuestChannel(m.ChannelID) {
		return
	}
	g.ingester.IngestQuestDelete(grammar.MessageRef{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		MessageID: m.ID,
	})
}

// inboundMessage converts a Discord message into an ingestion message,
// filtering bots and messages from the gateway's own user.
func (g *Gateway) inboundMessage(m *discordgo.Message) (ingest.Message, bool) {
	if m == nil || m.Author == nil {
		return ingest.Message{}, false
	}
	g.mu.Lock()
	botID := g.botUserID
	g.mu.Unlock()
	if m.Author.Bot || (botID != "" && m.Author.ID == botID) {
		return ingest.Message{}, false
	}
	if m.GuildID == "" {
		// DMs carry no guild and are never quest boards.
		return ingest.Message{}, false
	}

	createdAt := m.Timestamp
	if createdAt.IsZero() {
		createdAt, _ = discordgo.SnowflakeTimestamp(m.ID)
	}

	return ingest.Message{
		Raw:      m.Content,
		AuthorID: m.Author.ID,
		Source: grammar.MessageRef{
			GuildID:   m.GuildID,
			ChannelID: m.ChannelID,
			MessageID: m.ID,
		},
		CreatedAt: createdAt,
	}, true
}

// PostReminder sends a plain reminder message to a channel. Used by the
// summary-reminder sweep.
func (g *Gateway) PostReminder(channelID, content string) error {
	g.mu.Lock()
	connected := g.connected
	g.mu.Unlock()
	if !connected {
		return fmt.Errorf("gateway: not connected")
	}
	err := g.retryOnRateLimit(context.Background(), func() error {
		_, sendErr := g.sess.ChannelMessageSend(channelID, content)
		return sendErr
	})
	if err != nil {
		return fmt.Errorf("gateway: post reminder: %w", err)
	}
	return nil
}

// retryOnRateLimit calls fn and retries with exponential backoff on Discord
// rate limit errors.
func (g *Gateway) retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		restErr, ok := err.(*discordgo.RESTError)
		if !ok || restErr.Response == nil || restErr.Response.StatusCode != 429 {
			return err
		}
		if attempt == maxRetries {
			return err
		}

		wait := time.Duration(math.Pow(2, float64(attempt))) * baseBackoff
		if wait > maxBackoff {
			wait = maxBackoff
		}
		g.log.Warn().Int("attempt", attempt+1).Dur("wait", wait).Msg("gateway rate limited, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil // unreachable
}
