package discord

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/xackery/talktranslate/config"
	"github.com/xackery/talktranslate/model"
	"github.com/xackery/talktranslate/userdb"
)

// maxMessageLength is the longest message discord accepts
const maxMessageLength = 2000

// Discord represents a discord connection
type Discord struct {
	ctx         context.Context
	cancel      context.CancelFunc
	isConnected bool
	mu          sync.RWMutex
	config      config.Discord
	routes      map[string]config.Route
	conn        *discordgo.Session
	subscribers []func(context.Context, model.InboundMessage)
	id          string
	users       *userdb.UserDB
	commands    map[string]func(msg model.InboundMessage, args []string) string
}

// New creates a new discord connect
func New(ctx context.Context, cfg config.Discord, routes []config.Route, users *userdb.UserDB) (*Discord, error) {
	ctx, cancel := context.WithCancel(ctx)

	t := &Discord{
		ctx:    ctx,
		cancel: cancel,
		config: cfg,
		routes: make(map[string]config.Route),
		users:  users,
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	log.Debug().Msg("verifying discord configuration")

	if cfg.Token == "" {
		cancel()
		return nil, fmt.Errorf("bot_token must be set")
	}
	for _, route := range routes {
		t.routes[route.SourceChannelID] = route
	}
	if t.config.CommandPrefix == "" {
		t.config.CommandPrefix = "!"
	}
	t.commands = map[string]func(msg model.InboundMessage, args []string) string{
		"ping":      t.ping,
		"routes":    t.listRoutes,
		"languages": t.listLanguages,
		"name":      t.setName,
	}
	return t, nil
}

// Connect establishes a new connection with Discord
func (t *Discord) Connect(ctx context.Context) error {
	var err error
	t.mu.Lock()
	defer t.mu.Unlock()

	log.Info().Msgf("discord connecting, listening on %d channels...", len(t.routes))

	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
		t.cancel()
	}
	t.ctx, t.cancel = context.WithCancel(ctx)

	t.conn, err = discordgo.New("Bot " + t.config.Token)
	if err != nil {
		return errors.Wrap(err, "new")
	}

	t.conn.StateEnabled = true
	// one MessageCreate at a time, in arrival order
	t.conn.SyncEvents = true
	t.conn.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent
	t.conn.AddHandler(t.handleMessage)

	err = t.conn.Open()
	if err != nil {
		t.conn = nil
		return errors.Wrap(err, "open")
	}

	myUser, err := t.conn.User("@me")
	if err != nil {
		t.conn.Close()
		t.conn = nil
		var restErr *discordgo.RESTError
		if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusUnauthorized {
			return errors.Wrap(model.ErrAuth{Message: "discord rejected bot_token"}, "get my username")
		}
		return errors.Wrap(err, "get my username")
	}
	t.id = myUser.ID
	log.Debug().Str("id", t.id).Msg("@me")

	for _, route := range t.routes {
		st, err := t.conn.Channel(route.SourceChannelID)
		if err != nil {
			log.Warn().Err(err).Str("route", route.Name).Msgf("discord channel %s not visible to bot", route.SourceChannelID)
			continue
		}
		log.Info().Str("route", route.Name).Msgf("listening on #%s", st.Name)
	}

	t.isConnected = true
	log.Info().Msgf("discord connected successfully as %s", myUser.Username)

	if t.config.BotStatus != "" {
		err = t.conn.UpdateGameStatus(0, t.config.BotStatus)
		if err != nil {
			log.Warn().Err(err).Msg("discord status update")
		}
	}
	return nil
}

// ID returns the bot's own user id, empty until connected
func (t *Discord) ID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.id
}

// IsConnected returns if a connection is established
func (t *Discord) IsConnected() bool {
	t.mu.RLock()
	isConnected := t.isConnected
	t.mu.RUnlock()
	return isConnected
}

// Disconnect stops a previously started connection with Discord.
// If called while a connection is not active, returns nil
func (t *Discord) Disconnect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.isConnected {
		log.Debug().Msg("discord is already disconnected, skipping disconnect")
		return nil
	}
	err := t.conn.Close()
	if err != nil {
		log.Warn().Err(err).Msg("discord disconnect")
	}
	t.cancel()
	t.conn = nil
	t.isConnected = false
	return nil
}

// Send posts message to channelID
func (t *Discord) Send(ctx context.Context, channelID string, message string) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.isConnected {
		return fmt.Errorf("discord is not connected")
	}
	if channelID == "" {
		return model.ErrNoDestination
	}

	_, err := t.conn.ChannelMessageSend(channelID, truncate(message, maxMessageLength), discordgo.WithContext(ctx))
	if err != nil {
		return &model.ErrMessage{ChannelID: channelID, Err: err}
	}

	log.Debug().Str("channel", channelID).Str("message", message).Msg("sent to discord")
	return nil
}

// Subscribe listens for new messages on discord
func (t *Discord) Subscribe(ctx context.Context, onMessage func(context.Context, model.InboundMessage)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subscribers = append(t.subscribers, onMessage)
	return nil
}

// truncate cuts s to at most max runes
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max-1])) + "…"
}
