package discord

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/xackery/talktranslate/language"
	"github.com/xackery/talktranslate/model"
)

// ProcessCommands runs a text command found in msg and replies in the same channel.
// Only routed channels are served, unknown commands are ignored.
func (t *Discord) ProcessCommands(ctx context.Context, msg model.InboundMessage) {
	logger := model.NewLogger(ctx)
	if !t.config.IsCommandsEnabled {
		return
	}
	content, ok := t.command(msg)
	if !ok {
		return
	}
	logger.Debug().Str("author", msg.Name()).Msgf("command %s", msg.Content)

	err := t.Send(ctx, msg.ChannelID, content)
	if err != nil {
		logger.Warn().Err(err).Msgf("failed to reply to command %s", msg.Content)
	}
}

// command returns the reply to msg, and false when msg is not a command this bot answers
func (t *Discord) command(msg model.InboundMessage) (string, bool) {
	if msg.IsBot {
		return "", false
	}
	if _, ok := t.routes[msg.ChannelID]; !ok {
		return "", false
	}
	text := strings.TrimSpace(msg.Content)
	if !strings.HasPrefix(text, t.config.CommandPrefix) {
		return "", false
	}
	fields := strings.Fields(strings.TrimPrefix(text, t.config.CommandPrefix))
	if len(fields) == 0 {
		return "", false
	}
	cmdFunc, ok := t.commands[strings.ToLower(fields[0])]
	if !ok {
		return "", false
	}
	return cmdFunc(msg, fields[1:]), true
}

func (t *Discord) ping(msg model.InboundMessage, args []string) string {
	return "pong"
}

func (t *Discord) listRoutes(msg model.InboundMessage, args []string) string {
	names := make([]string, 0, len(t.routes))
	for _, route := range t.routes {
		line := fmt.Sprintf("%s: <#%s> → <#%s>", route.Name, route.SourceChannelID, route.DestinationChannelID)
		if route.IsDetect() {
			line += fmt.Sprintf(" (detect %s)", strings.Join(route.Languages, "/"))
		} else {
			line += fmt.Sprintf(" (to %s)", route.TargetLanguage)
		}
		names = append(names, line)
	}
	sort.Strings(names)
	return strings.Join(names, "\n")
}

func (t *Discord) listLanguages(msg model.InboundMessage, args []string) string {
	codes := language.Codes()
	lines := make([]string, 0, len(codes))
	for _, code := range codes {
		lines = append(lines, fmt.Sprintf("%s (%s)", code, language.Name(code)))
	}
	return strings.Join(lines, ", ")
}

// setName overrides the author's display name in relayed messages, no argument clears it
func (t *Discord) setName(msg model.InboundMessage, args []string) string {
	if t.users == nil {
		return "display names cannot be changed"
	}
	name := strings.Join(args, " ")
	err := t.users.Set(msg.AuthorID, name)
	if err != nil {
		log.Warn().Err(err).Str("author", msg.AuthorID).Msg("set display name")
		return "failed to save display name"
	}
	if name == "" {
		return "display name cleared"
	}
	return fmt.Sprintf("display name set to %s", name)
}
