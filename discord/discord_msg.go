package discord

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/xackery/talktranslate/model"
)

// maxInboundLength caps how much of a message is handed to subscribers
const maxInboundLength = 4000

func (t *Discord) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Msg("discord message handler panic")
		}
	}()
	if m == nil || m.Message == nil || m.Author == nil {
		return
	}

	t.mu.RLock()
	ctx := t.ctx
	t.mu.RUnlock()

	t.dispatch(ctx, t.inbound(m.Message, m.ContentWithMentionsReplaced()))
}

// inbound converts a discord message into the relay's message type
func (t *Discord) inbound(m *discordgo.Message, content string) model.InboundMessage {
	return model.InboundMessage{
		ID:          m.ID,
		AuthorID:    m.Author.ID,
		AuthorName:  m.Author.Username,
		DisplayName: t.displayName(m),
		ChannelID:   m.ChannelID,
		GuildID:     m.GuildID,
		Content:     truncate(content, maxInboundLength),
		IsBot:       m.Author.Bot,
	}
}

// displayName picks the name shown for an author: users database, then server nick, then global name, then username
func (t *Discord) displayName(m *discordgo.Message) string {
	if name := t.users.Name(m.Author.ID); name != "" {
		return name
	}
	if m.Member != nil {
		if nick := strings.TrimSpace(m.Member.Nick); nick != "" {
			return nick
		}
	}
	if name := strings.TrimSpace(m.Author.GlobalName); name != "" {
		return name
	}
	return m.Author.Username
}

// dispatch hands msg to every subscriber
func (t *Discord) dispatch(ctx context.Context, msg model.InboundMessage) {
	t.mu.RLock()
	subscribers := t.subscribers
	t.mu.RUnlock()
	if len(subscribers) == 0 {
		log.Debug().Msg("discord message, but no subscribers to notify, ignoring")
		return
	}
	for _, sub := range subscribers {
		sub(ctx, msg)
	}
}
