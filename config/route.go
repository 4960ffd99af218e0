package config

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/template"
)

// Route modes
const (
	// ModeDetect detects the language of each message and picks the target from the route's language pair
	ModeDetect = "detect"
	// ModeFixed always translates to TargetLanguage
	ModeFixed = "fixed"
)

const (
	// PatternNamed prefixes the translation with the author
	PatternNamed = "{{.Name}}: {{.Message}}"
	// PatternAnnounce labels the translation with its language
	PatternAnnounce = "**Translated ({{.Language}}):** {{.Message}}"
)

// Route is how to route a message from a source channel
type Route struct {
	Name                   string   `toml:"name" desc:"Label used in logs"`
	SourceChannelID        string   `toml:"source_channel_id" desc:"Channel to listen on, right click a channel in discord and Copy ID to paste here"`
	DestinationChannelID   string   `toml:"destination_channel_id" desc:"Channel to send translations to, defaults to the source channel"`
	Mode                   string   `toml:"mode" desc:"detect or fixed"`
	TargetLanguage         string   `toml:"target_language" desc:"fixed mode: language code to translate to"`
	Languages              []string `toml:"languages" desc:"detect mode: [primary, other]. Messages detected as primary go to other, anything else goes to primary"`
	MessagePattern         string   `toml:"message_pattern" desc:"Destination message. Variables: {{.Name}} {{.Message}} {{.Language}} {{.Source}}"`
	messagePatternTemplate *template.Template
}

// MessageData is passed to a route's message pattern
type MessageData struct {
	Name     string
	Message  string
	Language string
	Source   string
}

// BidirectionalRoutes returns the route pair relaying between a japanese and an english channel
func BidirectionalRoutes(japaneseChannelID string, englishChannelID string) []Route {
	return []Route{
		{
			Name:                 "japanese",
			SourceChannelID:      japaneseChannelID,
			DestinationChannelID: englishChannelID,
			Mode:                 ModeDetect,
			Languages:            []string{"en", "ja"},
			MessagePattern:       PatternNamed,
		},
		{
			Name:                 "english",
			SourceChannelID:      englishChannelID,
			DestinationChannelID: japaneseChannelID,
			Mode:                 ModeDetect,
			Languages:            []string{"en", "ja"},
			MessagePattern:       PatternNamed,
		},
	}
}

// FixedRoute returns a route translating everything in source to target, posting to destination
func FixedRoute(sourceChannelID string, destinationChannelID string, target string) Route {
	return Route{
		Name:                 "fixed",
		SourceChannelID:      sourceChannelID,
		DestinationChannelID: destinationChannelID,
		Mode:                 ModeFixed,
		TargetLanguage:       target,
		MessagePattern:       PatternAnnounce,
	}
}

// Verify checks the route, filling defaults, and loads its message pattern
func (r *Route) Verify(defaultLanguages []string) error {
	r.SourceChannelID = strings.TrimSpace(r.SourceChannelID)
	r.DestinationChannelID = strings.TrimSpace(r.DestinationChannelID)
	if !isSnowflake(r.SourceChannelID) {
		return fmt.Errorf("invalid source channel id %q", r.SourceChannelID)
	}
	if r.DestinationChannelID == "" {
		r.DestinationChannelID = r.SourceChannelID
	}
	if !isSnowflake(r.DestinationChannelID) {
		return fmt.Errorf("invalid destination channel id %q", r.DestinationChannelID)
	}
	if r.Name == "" {
		r.Name = r.SourceChannelID
	}
	r.Mode = strings.ToLower(strings.TrimSpace(r.Mode))
	switch r.Mode {
	case "", ModeDetect:
		r.Mode = ModeDetect
		if len(r.Languages) == 0 {
			r.Languages = append([]string{}, defaultLanguages...)
		}
		if len(r.Languages) != 2 {
			return fmt.Errorf("detect mode needs exactly two languages, got %d", len(r.Languages))
		}
		for i, code := range r.Languages {
			r.Languages[i] = strings.ToLower(strings.TrimSpace(code))
			if !isLanguage(r.Languages[i]) {
				return fmt.Errorf("invalid language %q", code)
			}
		}
		if r.MessagePattern == "" {
			r.MessagePattern = PatternNamed
		}
	case ModeFixed:
		r.TargetLanguage = strings.ToLower(strings.TrimSpace(r.TargetLanguage))
		if !isLanguage(r.TargetLanguage) {
			return fmt.Errorf("invalid target language %q", r.TargetLanguage)
		}
		if r.MessagePattern == "" {
			r.MessagePattern = PatternAnnounce
		}
	default:
		return fmt.Errorf("unknown mode %q", r.Mode)
	}
	return r.LoadMessagePattern()
}

// isSnowflake is true for a non zero discord id
func isSnowflake(id string) bool {
	v, err := strconv.ParseUint(id, 10, 64)
	return err == nil && v != 0
}

// IsDetect is true when the route picks its target by language detection
func (r *Route) IsDetect() bool {
	return r.Mode == ModeDetect
}

// Target returns the language to translate to, given the detected source language.
// For fixed routes detected is ignored.
func (r *Route) Target(detected string) string {
	if !r.IsDetect() {
		return r.TargetLanguage
	}
	if detected == r.Languages[0] {
		return r.Languages[1]
	}
	return r.Languages[0]
}

// LoadMessagePattern is called after config is loaded, and verified patterns are valid
func (r *Route) LoadMessagePattern() error {
	var err error
	r.messagePatternTemplate, err = template.New("root").Option("missingkey=error").Parse(r.MessagePattern)
	if err != nil {
		return fmt.Errorf("failed to parse: %w", err)
	}
	return nil
}

// Render executes the message pattern
func (r *Route) Render(data MessageData) (string, error) {
	if r.messagePatternTemplate == nil {
		err := r.LoadMessagePattern()
		if err != nil {
			return "", err
		}
	}
	buf := new(bytes.Buffer)
	err := r.messagePatternTemplate.Execute(buf, data)
	if err != nil {
		return "", fmt.Errorf("execute pattern: %w", err)
	}
	return buf.String(), nil
}
