package client

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/xackery/talktranslate/model"
	"github.com/xackery/talktranslate/router"
)

const (
	inboxSize    = 64
	queueTimeout = 30 * time.Second
)

type inboxMessage struct {
	ctx  context.Context
	msg  model.InboundMessage
	done chan model.Outcome
}

// onMessage queues msg for the pump. It blocks while the inbox is full, keeping arrival order.
func (c *Client) onMessage(ctx context.Context, msg model.InboundMessage) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = model.WithCorrelation(ctx, uuid.NewString())
	_, err := c.enqueue(ctx, msg, nil)
	if err != nil {
		logger := model.NewLogger(ctx)
		logger.Warn().Err(err).Str("channel", msg.ChannelID).Msg("message dropped")
	}
}

// enqueue hands msg to the pump. When done is set it receives the outcome once handled.
func (c *Client) enqueue(ctx context.Context, msg model.InboundMessage, done chan model.Outcome) (bool, error) {
	if err := c.ctx.Err(); err != nil {
		return false, err
	}
	select {
	case <-c.ctx.Done():
		return false, c.ctx.Err()
	case <-ctx.Done():
		return false, ctx.Err()
	case <-time.After(queueTimeout):
		return false, context.DeadlineExceeded
	case c.inbox <- inboxMessage{ctx: ctx, msg: msg, done: done}:
		return true, nil
	}
}

// pump handles queued messages one at a time, in arrival order
func (c *Client) pump() {
	for {
		select {
		case <-c.ctx.Done():
			log.Debug().Msg("client pump exit, context done")
			return
		case item := <-c.inbox:
			out := c.router.Handle(item.ctx, item.msg)
			if isPublished(out) {
				err := c.nats.Publish(item.ctx, item.msg, out)
				if err != nil {
					logger := model.NewLogger(item.ctx)
					logger.Warn().Err(err).Msg("nats publish")
				}
			}
			if item.done == nil {
				continue
			}
			select {
			case item.done <- out:
			default:
			}
		}
	}
}

// isPublished is false for messages the bot never considered relaying: its own and those of unrouted channels
func isPublished(out model.Outcome) bool {
	if out.State != model.StateFiltered {
		return true
	}
	return out.Reason != router.ReasonSelf && out.Reason != router.ReasonChannel
}
