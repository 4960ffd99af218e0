// Package nats publishes relay outcomes to a nats server, so other services can follow translated chat.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	nats "github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/xackery/talktranslate/config"
	"github.com/xackery/talktranslate/model"
)

// Nats represents a nats connection
type Nats struct {
	ctx         context.Context
	cancel      context.CancelFunc
	isConnected bool
	mutex       sync.RWMutex
	config      config.Nats
	conn        *nats.Conn
}

// Event is the json payload published for every handled message
type Event struct {
	ID                   string    `json:"id"`
	Route                string    `json:"route,omitempty"`
	State                string    `json:"state"`
	Reason               string    `json:"reason,omitempty"`
	Author               string    `json:"author"`
	AuthorID             string    `json:"author_id"`
	ChannelID            string    `json:"channel_id"`
	DestinationChannelID string    `json:"destination_channel_id,omitempty"`
	Source               string    `json:"source_language,omitempty"`
	Target               string    `json:"target_language,omitempty"`
	Original             string    `json:"original"`
	Output               string    `json:"output,omitempty"`
	Error                string    `json:"error,omitempty"`
	Time                 time.Time `json:"time"`
}

// New creates a new nats publisher
func New(ctx context.Context, cfg config.Nats) (*Nats, error) {
	ctx, cancel := context.WithCancel(ctx)
	t := &Nats{
		ctx:    ctx,
		config: cfg,
		cancel: cancel,
	}

	log.Debug().Msg("verifying nats configuration")

	if !cfg.IsEnabled {
		return t, nil
	}
	if cfg.URL == "" {
		cancel()
		return nil, fmt.Errorf("url must be set")
	}
	if t.config.SubjectPrefix == "" {
		t.config.SubjectPrefix = "talktranslate"
	}
	return t, nil
}

// IsConnected returns if a connection is established
func (t *Nats) IsConnected() bool {
	t.mutex.RLock()
	isConnected := t.isConnected
	t.mutex.RUnlock()
	return isConnected
}

// Connect establishes a new connection with Nats
func (t *Nats) Connect(ctx context.Context) error {
	var err error
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if !t.config.IsEnabled {
		log.Debug().Msg("nats is disabled, skipping connect")
		return nil
	}
	log.Info().Msgf("connecting to nats %s...", t.config.URL)

	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
	t.ctx, t.cancel = context.WithCancel(ctx)

	t.conn, err = nats.Connect(t.config.URL,
		nats.Name("talktranslate"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			log.Info().Msgf("nats reconnected to %s", conn.ConnectedUrl())
		}),
	)
	if err != nil {
		return errors.Wrap(err, "nats connect")
	}
	t.isConnected = true
	log.Info().Msg("nats connected successfully")
	return nil
}

// Disconnect stops a previously started connection with Nats.
// If called while a connection is not active, returns nil
func (t *Nats) Disconnect(ctx context.Context) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if !t.config.IsEnabled {
		log.Debug().Msg("nats is disabled, skipping disconnect")
		return nil
	}
	if !t.isConnected {
		log.Debug().Msg("nats is already disconnected, skipping disconnect")
		return nil
	}
	err := t.conn.Drain()
	if err != nil {
		log.Warn().Err(err).Msg("nats drain")
	}
	t.conn.Close()

	t.cancel()
	t.conn = nil
	t.isConnected = false
	return nil
}

// Publish sends the outcome of msg. It is a no-op when nats is disabled.
func (t *Nats) Publish(ctx context.Context, msg model.InboundMessage, out model.Outcome) error {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	if !t.config.IsEnabled {
		return nil
	}
	if !t.isConnected {
		return fmt.Errorf("nats not connected")
	}

	data, err := json.Marshal(NewEvent(msg, out, time.Now()))
	if err != nil {
		return errors.Wrap(err, "marshal")
	}
	subject := Subject(t.config.SubjectPrefix, out)
	err = t.conn.Publish(subject, data)
	if err != nil {
		return errors.Wrapf(err, "publish %s", subject)
	}
	logger := model.NewLogger(ctx)
	logger.Debug().Str("subject", subject).Msg("published to nats")
	return nil
}

// NewEvent builds the payload published for msg
func NewEvent(msg model.InboundMessage, out model.Outcome, now time.Time) Event {
	e := Event{
		ID:                   msg.ID,
		Route:                out.Route,
		State:                out.State.String(),
		Reason:               out.Reason,
		Author:               msg.Name(),
		AuthorID:             msg.AuthorID,
		ChannelID:            msg.ChannelID,
		DestinationChannelID: out.DestinationChannelID,
		Source:               out.Source,
		Target:               out.Target,
		Original:             msg.Content,
		Output:               out.Output,
		Time:                 now.UTC(),
	}
	if out.Err != nil {
		e.Error = out.Err.Error()
	}
	return e
}

var subjectTokenRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Subject returns <prefix>.<route>.<state>, with tokens nats would reject replaced
func Subject(prefix string, out model.Outcome) string {
	route := subjectTokenRegex.ReplaceAllString(out.Route, "_")
	if route == "" {
		route = "none"
	}
	return strings.Join([]string{prefix, route, out.State.String()}, ".")
}
