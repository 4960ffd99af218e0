package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	cmodel "github.com/cloudwego/eino/components/model"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/xackery/talktranslate/api"
	"github.com/xackery/talktranslate/completion"
	"github.com/xackery/talktranslate/config"
	"github.com/xackery/talktranslate/discord"
	"github.com/xackery/talktranslate/nats"
	"github.com/xackery/talktranslate/retry"
	"github.com/xackery/talktranslate/router"
	"github.com/xackery/talktranslate/talker"
	"github.com/xackery/talktranslate/telemetry"
	"github.com/xackery/talktranslate/translate"
	"github.com/xackery/talktranslate/userdb"
)

// Client wraps all talking endpoints
type Client struct {
	ctx        context.Context
	cancel     context.CancelFunc
	config     *config.Config
	users      *userdb.UserDB
	discord    *discord.Discord
	api        *api.API
	nats       *nats.Nats
	translator *translate.Translator
	router     *router.Router
	inbox      chan inboxMessage
}

// New creates a new client from a loaded config
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	chat, err := newChatModel(ctx, cfg.Completion)
	if err != nil {
		return nil, errors.Wrap(err, "completion")
	}
	return newClient(ctx, cfg, chat)
}

func newClient(ctx context.Context, cfg *config.Config, chat cmodel.BaseChatModel) (*Client, error) {
	var err error
	ctx, cancel := context.WithCancel(ctx)
	c := &Client{
		ctx:    ctx,
		cancel: cancel,
		config: cfg,
		inbox:  make(chan inboxMessage, inboxSize),
	}
	defer func() {
		if err != nil {
			cancel()
		}
	}()

	if c.config.IsKeepAliveEnabled && c.config.KeepAliveRetry.Seconds() < 2 {
		c.config.KeepAliveRetry.Duration = 10 * time.Second
	}

	policy := retry.New(cfg.Retry.MaxAttempts, cfg.Retry.Delay.Duration, cfg.Retry.RateLimitDelay.Duration)
	policy.OnRetry = onRetry

	opts := translate.Options{
		Fallback:    cfg.Completion.Fallback,
		Temperature: float32(cfg.Completion.Temperature),
	}
	copy(opts.Languages[:], cfg.Completion.Languages)
	c.translator, err = translate.New(chat, policy, opts)
	if err != nil {
		return nil, errors.Wrap(err, "translate")
	}

	c.users, err = userdb.New(ctx, cfg.UsersDatabasePath)
	if err != nil {
		return nil, errors.Wrap(err, "userdb")
	}
	log.Debug().Int("users", c.users.Len()).Msg("user database loaded")

	c.discord, err = discord.New(ctx, cfg.Discord, cfg.Routes, c.users)
	if err != nil {
		return nil, errors.Wrap(err, "discord")
	}

	c.router, err = router.New(cfg.Routes, c.translator, c.discord, c.discord)
	if err != nil {
		return nil, errors.Wrap(err, "router")
	}

	err = c.discord.Subscribe(ctx, c.onMessage)
	if err != nil {
		return nil, errors.Wrap(err, "discord subscribe")
	}

	c.api, err = api.New(ctx, cfg.API, cfg.Routes)
	if err != nil {
		return nil, errors.Wrap(err, "api")
	}

	c.nats, err = nats.New(ctx, cfg.Nats)
	if err != nil {
		return nil, errors.Wrap(err, "nats")
	}

	go c.pump()
	return c, nil
}

// newChatModel returns the chat model of the configured provider
func newChatModel(ctx context.Context, cfg config.Completion) (cmodel.BaseChatModel, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", config.ProviderDeepSeek:
		chat, err := completion.New(completion.Config{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: float32(cfg.Temperature),
			Timeout:     cfg.Timeout.Duration,
		})
		if err != nil {
			return nil, err
		}
		return chat, nil
	case config.ProviderArk:
		chat, err := completion.NewArk(ctx, completion.ArkConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			Region:      cfg.Region,
			Temperature: float32(cfg.Temperature),
			Timeout:     cfg.Timeout.Duration,
		})
		if err != nil {
			return nil, err
		}
		return chat, nil
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
}

func onRetry(attempt int, kind retry.Kind, err error) {
	telemetry.Retries.WithLabelValues(kind.String()).Inc()
	log.Warn().Err(err).Int("attempt", attempt).Str("kind", kind.String()).Msg("completion call failed, retrying")
}

// Connect starts the liveness server and the discord listener
func (c *Client) Connect(ctx context.Context) error {
	err := c.api.Connect(ctx)
	if err != nil {
		return errors.Wrap(err, "api connect")
	}

	err = c.nats.Connect(ctx)
	if err != nil {
		return errors.Wrap(err, "nats connect")
	}

	err = c.discord.Connect(ctx)
	if err != nil {
		if !c.config.IsKeepAliveEnabled {
			return errors.Wrap(err, "discord connect")
		}
		log.Warn().Err(err).Msg("discord connect")
	}
	c.router.SetBotID(c.discord.ID())

	go c.loop(ctx)
	return nil
}

func (c *Client) loop(ctx context.Context) {
	if !c.config.IsKeepAliveEnabled {
		log.Debug().Msg("keep_alive disabled in config, exiting client loop")
		return
	}
	ticker := time.NewTicker(c.config.KeepAliveRetry.Duration)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("client loop exit, context done")
			return
		case <-c.ctx.Done():
			log.Debug().Msg("client loop exit, client closed")
			return
		case <-ticker.C:
		}
		if c.discord.IsConnected() {
			continue
		}
		log.Info().Msg("attempting to reconnect to discord")
		err := c.discord.Connect(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("discord connect")
			continue
		}
		c.router.SetBotID(c.discord.ID())
	}
}

// talkers returns every connection in shutdown order
func (c *Client) talkers() []talker.Named {
	return []talker.Named{
		{Name: "discord", Talker: c.discord},
		{Name: "nats", Talker: c.nats},
		{Name: "api", Talker: c.api},
	}
}

// IsConnected reports each connection's state by name
func (c *Client) IsConnected() map[string]bool {
	state := make(map[string]bool)
	for _, t := range c.talkers() {
		state[t.Name] = t.Talker.IsConnected()
	}
	return state
}

// Disconnect attempts to gracefully disconnect all endpoints
func (c *Client) Disconnect(ctx context.Context) error {
	for _, t := range c.talkers() {
		err := t.Talker.Disconnect(ctx)
		if err != nil {
			return errors.Wrap(err, t.Name)
		}
	}
	c.cancel()
	return nil
}
