// Package router decides what happens to every inbound chat message: filter it, detect its language,
// translate it and dispatch the result to the route's destination channel.
package router

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/xackery/talktranslate/config"
	"github.com/xackery/talktranslate/model"
	"github.com/xackery/talktranslate/telemetry"
)

// Translator detects and translates text
type Translator interface {
	DetectLanguage(ctx context.Context, text string, languages []string) string
	Translate(ctx context.Context, text string, target string) (string, error)
}

// Sender sends text to a chat channel
type Sender interface {
	Send(ctx context.Context, channelID string, message string) error
}

// CommandProcessor is handed every message that reaches a terminal state, regardless of translation outcome
type CommandProcessor interface {
	ProcessCommands(ctx context.Context, msg model.InboundMessage)
}

// Router handles inbound messages one at a time
type Router struct {
	routes     map[string]*config.Route
	translator Translator
	sender     Sender
	commands   CommandProcessor
	mu         sync.RWMutex
	botID      string
}

// New creates a new router. routes must already be verified, commands may be nil
func New(routes []config.Route, translator Translator, sender Sender, commands CommandProcessor) (*Router, error) {
	if translator == nil {
		return nil, fmt.Errorf("translator must be set")
	}
	if sender == nil {
		return nil, fmt.Errorf("sender must be set")
	}
	r := &Router{
		routes:     make(map[string]*config.Route),
		translator: translator,
		sender:     sender,
		commands:   commands,
	}
	for i := range routes {
		route := routes[i]
		if _, ok := r.routes[route.SourceChannelID]; ok {
			return nil, fmt.Errorf("route %s: duplicate source channel %s", route.Name, route.SourceChannelID)
		}
		r.routes[route.SourceChannelID] = &route
	}
	return r, nil
}

// SetBotID sets the id of the bot account, messages from it are never relayed
func (r *Router) SetBotID(id string) {
	r.mu.Lock()
	r.botID = id
	r.mu.Unlock()
}

// Handle runs msg through the relay pipeline. It never returns an error and never panics,
// failures end as an Errored outcome with a notice posted in the source channel.
func (r *Router) Handle(ctx context.Context, msg model.InboundMessage) (out model.Outcome) {
	if model.Correlation(ctx) == "" {
		ctx = model.WithCorrelation(ctx, uuid.NewString())
	}
	logger := model.NewLogger(ctx)
	out.State = model.StateReceived

	isSelf := r.isSelf(msg)
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().Interface("panic", rec).Str("channel", msg.ChannelID).Msg("router panic")
			out.State = model.StateErrored
			out.Err = fmt.Errorf("panic: %v", rec)
		}
		telemetry.MessagesTotal.WithLabelValues(out.State.String()).Inc()
		if isSelf || r.commands == nil {
			return
		}
		r.commands.ProcessCommands(ctx, msg)
	}()

	if isSelf {
		out.State = model.StateFiltered
		out.Reason = ReasonSelf
		logger.Debug().Str("author", msg.AuthorID).Msg("message from bot ignored")
		return
	}

	route, ok := r.routes[msg.ChannelID]
	if !ok {
		out.State = model.StateFiltered
		out.Reason = ReasonChannel
		return
	}
	out.Route = route.Name

	content := strings.TrimSpace(msg.Content)
	if reason := filterReason(content); reason != "" {
		out.State = model.StateFiltered
		out.Reason = reason
		logger.Debug().Str("route", route.Name).Str("reason", reason).Msg("message filtered")
		return
	}

	if route.IsDetect() {
		out.State = model.StateDetecting
		out.Source = r.translator.DetectLanguage(ctx, content, route.Languages)
	}
	out.Target = route.Target(out.Source)

	out.State = model.StateTranslating
	translated, err := r.translator.Translate(ctx, content, out.Target)
	if err != nil {
		r.fail(ctx, msg, &out, errors.Wrap(err, "translate"))
		return
	}

	text, err := route.Render(config.MessageData{
		Name:     msg.Name(),
		Message:  translated,
		Language: out.Target,
		Source:   out.Source,
	})
	if err != nil {
		r.fail(ctx, msg, &out, errors.Wrap(err, "render"))
		return
	}

	if route.DestinationChannelID == "" {
		r.fail(ctx, msg, &out, model.ErrNoDestination)
		return
	}
	err = r.sender.Send(ctx, route.DestinationChannelID, text)
	if err != nil {
		r.fail(ctx, msg, &out, errors.Wrapf(err, "send to %s", route.DestinationChannelID))
		return
	}

	out.State = model.StateDispatched
	out.Output = text
	out.DestinationChannelID = route.DestinationChannelID
	logger.Info().Str("route", route.Name).Str("author", msg.Name()).Str("source", out.Source).Str("target", out.Target).Msgf("[%s->%s] %s", msg.ChannelID, route.DestinationChannelID, text)
	return
}

func (r *Router) isSelf(msg model.InboundMessage) bool {
	if msg.IsBot {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.botID != "" && msg.AuthorID == r.botID
}

// fail marks out as errored and tells the author in the source channel
func (r *Router) fail(ctx context.Context, msg model.InboundMessage, out *model.Outcome, err error) {
	logger := model.NewLogger(ctx)
	out.State = model.StateErrored
	out.Err = err
	logger.Warn().Err(err).Str("route", out.Route).Str("author", msg.Name()).Msg("relay failed")

	notice := ErrorNotice(msg.Name(), out.Source, out.Target)
	sendErr := r.sender.Send(ctx, msg.ChannelID, notice)
	if sendErr != nil {
		logger.Warn().Err(sendErr).Str("channel", msg.ChannelID).Msg("error notice send failed")
	}
}

// ErrorNotice is the message posted in the source channel when a relay fails
func ErrorNotice(author string, source string, target string) string {
	switch {
	case source != "" && target != "":
		return fmt.Sprintf("Error: could not translate the message from %s (%s → %s).", author, source, target)
	case target != "":
		return fmt.Sprintf("Error: could not translate the message from %s (to %s).", author, target)
	}
	return fmt.Sprintf("Error: could not translate the message from %s.", author)
}
