package model

// InboundMessage wraps a chat message received from discord
type InboundMessage struct {
	// ID is the discord message id
	ID       string
	AuthorID string
	// AuthorName is the account username
	AuthorName string
	// DisplayName is what is shown when relaying, falls back to AuthorName
	DisplayName string
	ChannelID   string
	GuildID     string
	Content     string
	// IsBot is set when the author is any bot account
	IsBot bool
}

// Name returns the best name to display for the author
func (m InboundMessage) Name() string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return m.AuthorName
}
