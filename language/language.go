package language

import (
	"sort"
	"strings"
	"sync"
)

const (
	// English language code
	English = "en"
	// Japanese language code
	Japanese = "ja"
)

var (
	// https://en.wikipedia.org/wiki/List_of_ISO_639-1_codes
	languages = map[string]string{
		"ar": "Arabic",
		"de": "German",
		"en": "English",
		"es": "Spanish",
		"fr": "French",
		"hi": "Hindi",
		"id": "Indonesian",
		"it": "Italian",
		"ja": "Japanese",
		"ko": "Korean",
		"nl": "Dutch",
		"pl": "Polish",
		"pt": "Portuguese",
		"ru": "Russian",
		"th": "Thai",
		"tr": "Turkish",
		"uk": "Ukrainian",
		"vi": "Vietnamese",
		"zh": "Chinese",
	}
	mutex sync.RWMutex
)

// Name returns the english name of a language code, or the code itself if unknown
func Name(code string) string {
	mutex.RLock()
	defer mutex.RUnlock()
	name, ok := languages[strings.ToLower(code)]
	if !ok {
		return code
	}
	return name
}

// IsValid returns true if code is a known two letter language code
func IsValid(code string) bool {
	mutex.RLock()
	defer mutex.RUnlock()
	_, ok := languages[code]
	return ok
}

// Codes returns all known language codes, sorted
func Codes() []string {
	mutex.RLock()
	defer mutex.RUnlock()
	codes := make([]string, 0, len(languages))
	for k := range languages {
		codes = append(codes, k)
	}
	sort.Strings(codes)
	return codes
}

// Normalize turns a free form model answer into a known language code.
// Accepts "en", "EN.", "`ja`", "en-US", "ja_JP" and names like "Japanese".
// Returns empty string if nothing matches.
func Normalize(answer string) string {
	answer = strings.ToLower(strings.TrimSpace(answer))
	answer = strings.Trim(answer, " \t\r\n.,:;!?\"'`*()[]{}")
	if answer == "" {
		return ""
	}

	if idx := strings.IndexAny(answer, "-_"); idx > 0 {
		answer = answer[:idx]
	}
	if fields := strings.Fields(answer); len(fields) > 0 {
		answer = fields[0]
	}

	mutex.RLock()
	defer mutex.RUnlock()
	if _, ok := languages[answer]; ok {
		return answer
	}
	for code, name := range languages {
		if strings.ToLower(name) == answer {
			return code
		}
	}
	return ""
}
