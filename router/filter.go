package router

import (
	"regexp"
	"strings"
	"unicode"
)

// Filter reasons
const (
	ReasonSelf    = "self"
	ReasonChannel = "channel"
	ReasonEmpty   = "empty"
	ReasonEmoji   = "emoji"
)

// emojis is the fixed set of reactions that are not worth translating on their own
var emojis = map[rune]bool{
	'😀': true, '😃': true, '😄': true, '😁': true, '😆': true, '😅': true, '😂': true, '🤣': true,
	'😊': true, '😇': true, '🙂': true, '😉': true, '😍': true, '😘': true, '😎': true, '🤔': true,
	'😢': true, '😭': true, '😡': true, '😱': true, '🥺': true, '🙄': true, '😴': true, '💀': true,
	'👍': true, '👎': true, '👏': true, '🙏': true, '🙌': true, '👀': true, '👋': true, '💪': true,
	'🎉': true, '🔥': true, '💯': true, '✨': true, '❤': true, '♥': true, '💕': true, '⭐': true,
	'✅': true, '❌': true,
}

var customEmojiRegex = regexp.MustCompile(`<a?:\w+:\d+>`)

func isEmojiModifier(r rune) bool {
	switch {
	case r == '\u200d', r == '\ufe0f', r == '\ufe0e':
		return true
	case r >= 0x1f3fb && r <= 0x1f3ff:
		return true
	}
	return false
}

// IsEmojiOnly is true when content has at least one emoji and nothing but emojis,
// discord custom emojis and whitespace
func IsEmojiOnly(content string) bool {
	content = customEmojiRegex.ReplaceAllString(content, "😀")
	found := false
	for _, r := range content {
		if unicode.IsSpace(r) || isEmojiModifier(r) {
			continue
		}
		if !emojis[r] {
			return false
		}
		found = true
	}
	return found
}

// filterReason returns why content should not be translated, or empty string
func filterReason(content string) string {
	if strings.TrimSpace(content) == "" {
		return ReasonEmpty
	}
	if IsEmojiOnly(content) {
		return ReasonEmoji
	}
	return ""
}
