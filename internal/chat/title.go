package chat

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"snaptext/internal/config"
)

// FallbackTitle is used only when title normalization cannot process the
// input at all. Empty input normalizes to empty, not to the fallback.
const FallbackTitle = "New Chat"

// NormalizeTitle title-cases each space-separated word of the first user
// message to produce a chat title. Input that is not valid UTF-8 falls
// back to FallbackTitle; overlong results are truncated, not failed.
func NormalizeTitle(input string) string {
	if !utf8.ValidString(input) {
		return FallbackTitle
	}

	words := strings.Split(input, " ")
	for i, word := range words {
		if word == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(word)
		words[i] = string(unicode.ToUpper(r)) + word[size:]
	}

	title := strings.Join(words, " ")
	if utf8.RuneCountInString(title) > config.MaxChatTitleLength {
		runes := []rune(title)
		title = string(runes[:config.MaxChatTitleLength])
	}

	return title
}
